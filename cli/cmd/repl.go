package cmd

import (
	"context"

	"github.com/ardnew/orml/cli/cmd/repl"
	"github.com/ardnew/orml/log"
)

// Repl starts an interactive session against the store.
type Repl struct {
	Statements []string `help:"Statements to evaluate before the session starts" short:"e"`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	rt := runtimeFrom(ctx)

	store, err := rt.open(ctx)
	if err != nil {
		return ErrEval.Wrap(err)
	}

	return repl.Run(ctx, repl.Config{
		Evaluator: rt.evaluator(store),
		Catalog:   store,
		CacheDir:  rt.CacheDir,
		Logger:    log.Default(),
		Preload:   r.Statements,
	})
}
