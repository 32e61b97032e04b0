package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/revisify/backend/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := app.New(ctx)
	if err != nil {
		fmt.Printf("Failed to start: %v\n", err)
		os.Exit(1)
	}

	engine.Start(ctx)
	engine.Log.Info("Engine running; waiting for shutdown signal")
	<-ctx.Done()

	engine.Log.Info("Shutting down")
	engine.Shutdown(context.Background())
}
