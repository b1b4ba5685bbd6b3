package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/clipforge/clipforge-go/internal/cli/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := commands.Execute(ctx)
	stop()
	os.Exit(commands.ExitCode(err))
}
