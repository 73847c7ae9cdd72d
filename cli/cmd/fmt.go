package cmd

import (
	"context"
	"log/slog"

	"github.com/ardnew/orml/lang"
	"github.com/ardnew/orml/log"
)

// Fmt parses a script and writes it back in the chosen format.
type Fmt struct {
	Native Native `cmd:"" default:"withargs" help:"Format as canonical orml source (default)."`
	JSON   JSON   `cmd:""                    help:"Format the syntax tree as JSON."`
	YAML   YAML   `cmd:""                    help:"Format the syntax tree as YAML."`
	AST    AST    `cmd:""                    help:"Format as an indented syntax tree."`
}

// Script is the positional script argument shared by the fmt subcommands.
type Script struct {
	Source string `arg:"" default:"-" help:"Script file or '-' for stdin." name:"source"`
}

func (s Script) parse(ctx context.Context, format string) (*lang.Block, error) {
	lines, err := readSources([]string{s.Source})
	if err != nil {
		return nil, ErrFormat.Wrap(err).With(slog.String("format", format))
	}

	b, err := lang.ParseBlock(ctx, lines, lang.WithLogger(log.Default()))
	if err != nil {
		return nil, ErrFormat.Wrap(err).With(slog.String("format", format))
	}

	return b, nil
}

// Native formats a script as canonical orml source, one statement per line.
type Native struct {
	Script `embed:""`
}

// Run executes the native command.
func (f *Native) Run(ctx context.Context) error {
	b, err := f.parse(ctx, string(OutputNative))
	if err != nil {
		return err
	}

	return b.FormatSource(runtimeFrom(ctx).Stdout)
}

// JSON writes the syntax tree of a script as JSON.
type JSON struct {
	Indent int `default:"2" help:"Indent width for JSON output (0 for compact)" short:"i"`

	Script `embed:""`
}

// Run executes the json command.
func (j *JSON) Run(ctx context.Context) error {
	b, err := j.parse(ctx, string(OutputJSON))
	if err != nil {
		return err
	}

	return OutputJSON.write(ctx, runtimeFrom(ctx).Stdout, b.Tree(), j.Indent)
}

// YAML writes the syntax tree of a script as YAML.
type YAML struct {
	Indent int `default:"2" help:"Indent width for YAML output (0 for flow style)" short:"i"`

	Script `embed:""`
}

// Run executes the yaml command.
func (y *YAML) Run(ctx context.Context) error {
	b, err := y.parse(ctx, string(OutputYAML))
	if err != nil {
		return err
	}

	return OutputYAML.write(ctx, runtimeFrom(ctx).Stdout, b.Tree(), y.Indent)
}

// AST writes an indented syntax tree of a script.
type AST struct {
	Script `embed:""`
}

// Run executes the ast command.
func (a *AST) Run(ctx context.Context) error {
	b, err := a.parse(ctx, "ast")
	if err != nil {
		return err
	}

	b.Print(ctx, runtimeFrom(ctx).Stdout)

	return nil
}
