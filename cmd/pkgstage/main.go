package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/danieljhkim/pkgstage/internal/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		cli.ReportError(err)
		stop()
		os.Exit(1)
	}
}
