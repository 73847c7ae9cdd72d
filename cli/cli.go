package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ardnew/orml/cli/cmd"
	"github.com/ardnew/orml/log"
	"github.com/ardnew/orml/metrics"
	"github.com/ardnew/orml/pkg"
)

// CLI is the top-level command-line interface for orml.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Version kong.VersionFlag `help:"Print version and exit" short:"V"`

	EnvFile []string `help:"Load environment variables from dotenv file(s)" name:"env-file" placeholder:"FILE" type:"existingfile"`
	Store   []string `help:"Fixture file(s) loaded into the entity store, before those in ${storePathEnv}" placeholder:"FILE" short:"s" type:"existingfile"`
	Metrics string   `help:"Write Prometheus metrics to file on exit" placeholder:"FILE" type:"path"`

	Init cmd.Init `cmd:"" help:"Write current flags to the configuration file"`
	Fmt  cmd.Fmt  `cmd:"" help:"Format scripts as source, JSON, YAML, or syntax tree"`
	Repl cmd.Repl `cmd:"" help:"Start an interactive session"`

	Eval cmd.Eval `cmd:"" default:"withargs" help:"Evaluate statements against the store"`
}

// Run executes the orml CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) (err error) {
	var cli CLI

	if err := mkdirAllRequired(); err != nil {
		return err
	}

	// Dotenv files may set variables read while parsing.
	if err := loadEnv(envFiles(args)); err != nil {
		return err
	}

	configFilePath := configPath(baseConfig + ".yaml")

	vars := kong.Vars{
		cmd.ConfigIdentifier: configFilePath,
		cmd.CacheIdentifier:  pkg.CacheDir(),
		"storePathEnv":       storePathEnv,
		"version":            pkg.VersionString(),
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Pre-scan for logger flags so messages emitted during parsing already
	// use them.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(kong.JSON, configPath(baseConfig+".json")),
		kong.Configuration(resolve, configFilePath),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	defer cli.Log.start(ctx)()

	// [pprofConfig.start] is a no-op unless built with tag pprof.
	defer cli.Pprof.start(ctx)()

	rt := cmd.Runtime{
		Stores:   storePath(os.Getenv, cli.Store...),
		CacheDir: pkg.CacheDir(),
	}

	if cli.Metrics != "" {
		reg := prometheus.NewRegistry()
		rt.Observer = metrics.New(reg)

		defer func() {
			if werr := metrics.WriteFile(cli.Metrics, reg); werr != nil {
				log.WarnContext(ctx, "could not write metrics",
					slog.String("file", cli.Metrics), slog.Any("error", werr))
			}
		}()
	}

	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithRuntime(ctx, rt)

	return ktx.Run(ctx, &cli)
}
