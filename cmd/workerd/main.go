package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/corvid-labs/blueprint-engine/cmd/workerd/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := commands.NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Cobra has already printed the error; nothing more to add.
		os.Exit(1)
	}
}
