package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ardnew/orml/lang"
	"github.com/ardnew/orml/log"
	"github.com/ardnew/orml/pkg"
)

// Output names a result format.
type Output string

// Result formats.
const (
	OutputNative Output = "native"
	OutputJSON   Output = "json"
	OutputYAML   Output = "yaml"
)

// write formats v to w. Indent applies to json and yaml; zero selects the
// compact form.
func (o Output) write(ctx context.Context, w io.Writer, v lang.Value, indent int) error {
	var (
		err  error
		wrap pkg.Error
	)

	switch o {
	case OutputNative, "":
		return lang.FormatNative(ctx, w, v)

	case OutputJSON:
		err, wrap = lang.FormatJSON(ctx, w, v, indent), pkg.ErrJSONMarshal

	case OutputYAML:
		err, wrap = lang.FormatYAML(ctx, w, v, indent), pkg.ErrYAMLMarshal

	default:
		return pkg.ErrInvalidFormat.Wrapf("%q (want %s, %s, or %s)",
			string(o), OutputNative, OutputJSON, OutputYAML)
	}

	// Store failures while reading record sets keep their own class.
	if le := new(lang.Error); err != nil && !errors.As(err, &le) {
		return wrap.Wrap(err)
	}

	return err
}

// Eval evaluates statements against the store and prints the result.
//
// Statements from script files are evaluated first, followed by those given
// as arguments, all as one block sharing one environment.
type Eval struct {
	Statements []string `arg:"" help:"Statements to evaluate" name:"statement" optional:""`

	Source []string `help:"Script file(s) or '-' for stdin"                   short:"f" type:"path"`
	Output Output   `default:"native" enum:"native,json,yaml" help:"Output format" short:"o"`
	Indent int      `default:"2"                            help:"Indent width for json and yaml output (0 for compact)" short:"i"`
}

// Run executes the eval command.
func (e *Eval) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	rt := runtimeFrom(ctx)

	lines, err := readSources(e.Source)
	if err != nil {
		return ErrEval.Wrap(err)
	}

	lines = append(lines, e.Statements...)
	if len(lines) == 0 {
		return ErrNoInput
	}

	store, err := rt.open(ctx)
	if err != nil {
		return ErrEval.Wrap(err)
	}

	ev := rt.evaluator(store)

	var v lang.Value

	if len(lines) == 1 {
		v, err = ev.Eval(ctx, lines[0])
	} else {
		v, err = ev.EvalBlock(ctx, lines)
	}

	if err != nil {
		if snip := lang.Snippet(strings.Join(lines, "\n"), err); snip != "" {
			fmt.Fprint(rt.Stderr, snip)
		}

		return ErrEval.Wrap(err).With(slog.String("command", "eval"))
	}

	log.DebugContext(ctx, "evaluated",
		slog.Int("statements", len(lines)),
		slog.String("kind", v.Kind().String()))

	return e.Output.write(ctx, rt.Stdout, v, e.Indent)
}
