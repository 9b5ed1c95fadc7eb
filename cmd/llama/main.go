// Llama - wake-word voice assistant that routes each request to a tool,
// a fast model or a smart model.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/SoulPlaya/Llama-AIAgent/internal/app"
	"github.com/SoulPlaya/Llama-AIAgent/internal/log"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Init("info")
		log.Error("configuration error", "error", err)
		os.Exit(2)
	}

	log.Init(cfg.LogLevel)

	assistant, err := app.New(cfg, app.WithLogger(log.L()))
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(2)
	}

	if err := assistant.Init(); err != nil {
		log.Error("initialization failed", "error", err)
		assistant.Shutdown()
		os.Exit(1)
	}
	defer assistant.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := assistant.Run(ctx); err != nil {
		log.Error("runtime error", "error", err)
	}
}
