// Command acerace is the command line client for the pick game.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/acerace/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
