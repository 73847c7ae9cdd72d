// Command orml evaluates orml scripts against entity stores.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/ardnew/orml/cli"
	"github.com/ardnew/orml/log"
)

func main() {
	// An interrupt cancels in-flight store queries.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := cli.Run(ctx, os.Exit, os.Args[1:]...)

	stop()

	if err != nil {
		log.Error("orml failed", slog.Any("error", err))
		os.Exit(1)
	}
}
