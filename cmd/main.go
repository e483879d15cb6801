package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"kilometers.ai/libbundle/internal/interfaces/cli"
	"kilometers.ai/libbundle/internal/interfaces/di"
)

func main() {
	container, err := di.NewContainer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := container.HealthCheck(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Application health check failed: %v\n", err)
		os.Exit(1)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		container.Logger.LogInfo("Received shutdown signal, stopping after the current reference", nil)
		cancel()
	}()

	code := cli.Execute(ctx, container.GetCLIContainer(), os.Args[1:])
	cancel()
	os.Exit(code)
}
