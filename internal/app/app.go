// Package app wires configuration into a running assistant.
// It owns the lifecycle: New validates, Init builds every component and
// announces the assistant, Run listens, Shutdown drains speech and closes.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/SoulPlaya/Llama-AIAgent/internal/config"
	"github.com/SoulPlaya/Llama-AIAgent/internal/httpc"
	"github.com/SoulPlaya/Llama-AIAgent/pkg/assistant"
	"github.com/SoulPlaya/Llama-AIAgent/pkg/conversation"
	"github.com/SoulPlaya/Llama-AIAgent/pkg/inference"
	"github.com/SoulPlaya/Llama-AIAgent/pkg/router"
	"github.com/SoulPlaya/Llama-AIAgent/pkg/speech"
	"github.com/SoulPlaya/Llama-AIAgent/pkg/tools"
)

// healthTimeout bounds the startup backend check.
const healthTimeout = 5 * time.Second

// Option customises an App.
type Option func(*App)

// WithConsole replaces stdin and stdout for console input and output.
func WithConsole(in io.Reader, out io.Writer) Option {
	return func(a *App) {
		a.in, a.out = in, out
	}
}

// WithTools overrides the built-in tool dependencies.
func WithTools(cfg tools.Config) Option {
	return func(a *App) {
		a.tools = cfg
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// App is the assembled assistant.
type App struct {
	config config.Config
	in     io.Reader
	out    io.Writer
	tools  tools.Config
	logger *slog.Logger

	backend      inference.Provider
	queue        *speech.Queue
	listener     speech.Listener
	conversation *conversation.Manager
	assistant    *assistant.Assistant
	closers      []io.Closer
}

// New validates cfg and returns an uninitialised App.
func New(cfg config.Config, opts ...Option) (*App, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		config: cfg,
		in:     os.Stdin,
		out:    os.Stdout,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.tools.ScreenshotPath == "" {
		a.tools.ScreenshotPath = cfg.ScreenshotPath
	}
	return a, nil
}

// Init builds every component and announces the assistant.
// A failure here is fatal.
func (a *App) Init() error {
	cfg := a.config

	hc, err := httpc.New(cfg.SocksProxy, cfg.Timeout)
	if err != nil {
		return fmt.Errorf("http client: %w", err)
	}

	a.backend, err = newBackend(cfg, hc, a.logger)
	if err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	a.closers = append(a.closers, a.backend)
	a.checkBackend()

	a.queue, err = a.newOutput(hc)
	if err != nil {
		return fmt.Errorf("speech output: %w", err)
	}

	a.listener, err = a.newListener()
	if err != nil {
		return fmt.Errorf("speech input: %w", err)
	}

	registry, err := tools.NewRegistry(tools.Builtins(a.tools)...)
	if err != nil {
		return fmt.Errorf("tools: %w", err)
	}

	rcfg := router.Config{
		Backend:     a.backend,
		Model:       cfg.FastModel,
		Temperature: cfg.ClassifyTemperature,
		Logger:      a.logger,
	}

	a.conversation = conversation.New(conversation.Config{
		Backend:    a.backend,
		Name:       cfg.AssistantName(),
		MaxHistory: cfg.MaxHistory,
		Logger:     a.logger,
	})

	a.assistant, err = assistant.New(assistant.Deps{
		Listener:   a.listener,
		Output:     a.queue,
		Registry:   registry,
		Classifier: router.NewClassifier(rcfg),
		Selector:   router.NewSelector(rcfg, registry),
		Resolver:   router.NewResolver(rcfg),
		Executor: tools.NewExecutor(tools.ExecutorConfig{
			Registry:    registry,
			Vision:      a.backend,
			VisionModel: cfg.VisionModel,
			Logger:      a.logger,
		}),
		Conversation: a.conversation,
		Logger:       a.logger,
	}, assistant.Options{
		WakeWord:      cfg.WakeWord,
		ShutdownWords: cfg.ShutdownWords,
		FastModel:     cfg.FastModel,
		SmartModel:    cfg.SmartModel,
		MaxConcurrent: cfg.MaxConcurrent,
	})
	if err != nil {
		return err
	}

	if err := a.queue.Enqueue(cfg.AssistantName() + " online."); err != nil {
		return fmt.Errorf("announce: %w", err)
	}

	a.logger.Info("assistant ready",
		"provider", cfg.Provider,
		"fast_model", cfg.FastModel,
		"smart_model", cfg.SmartModel,
		"input", cfg.InputMode,
		"speech", cfg.SpeechMode,
	)
	return nil
}

// checkBackend logs whether the backend answers. A local server may come
// up after the assistant, so this never fails Init.
func (a *App) checkBackend() {
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()
	if err := a.backend.Health(ctx); err != nil {
		a.logger.Warn("backend not reachable yet", "base_url", a.config.BaseURL, "error", err)
	}
}

// Run listens until a shutdown word, end of input or ctx cancellation.
func (a *App) Run(ctx context.Context) error {
	if a.assistant == nil {
		return errors.New("app: Run called before Init")
	}
	err := a.assistant.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Shutdown gives queued speech the configured grace period, then closes
// everything. In-flight commands are not awaited.
func (a *App) Shutdown() {
	if a.queue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownGrace)
		defer cancel()
		if err := a.queue.Close(ctx); err != nil {
			a.logger.Warn("speech not drained", "error", err)
		}
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}

// History returns a copy of the conversation so far.
func (a *App) History() []inference.Message {
	if a.conversation == nil {
		return nil
	}
	return a.conversation.Snapshot()
}
