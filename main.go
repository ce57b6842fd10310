// ./main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/vigil/cmd"
)

// main is the entry point for the Vigil CLI application.
func main() {
	// SIGINT/SIGTERM cancel the context so an in-flight wait unwinds as a
	// CancelledError instead of being killed mid-poll.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
