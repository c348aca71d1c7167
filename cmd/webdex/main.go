// Command webdex crawls a configured set of website origins into a
// durable cache, indexes the extracted text, and serves an
// interactive query REPL over the result.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kestrelcode/webdex/internal/config"
	"github.com/kestrelcode/webdex/internal/orchestrator"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := "config.toml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "err", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	orch, err := orchestrator.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize orchestrator", "err", err)
		return 1
	}

	fmt.Println("webdex ready; crawling configured seeds...")
	if err := orch.Run(ctx, os.Stdin, os.Stdout); err != nil {
		slog.Error("run failed", "err", err)
		return 1
	}

	return 0
}
