// Package assistant is the wake-word orchestrator.
//
// Run listens for utterances containing the wake word and hands each
// command to its own goroutine, which classifies it and either runs a
// tool or asks the conversation manager for a reply. Every task ends by
// enqueuing exactly one piece of text on the speech output.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/SoulPlaya/Llama-AIAgent/pkg/router"
	"github.com/SoulPlaya/Llama-AIAgent/pkg/speech"
	"github.com/SoulPlaya/Llama-AIAgent/pkg/tools"
)

// Fixed phrases spoken by the orchestrator.
const (
	MsgFollowUp     = "Yes?"
	MsgFarewell     = "Goodbye!"
	MsgInterstitial = "This might take a moment."
	MsgBusy         = "I'm still working on your other requests. Please try again in a moment."
)

// DefaultRetryDelay is the pause after a failed listen before trying again.
const DefaultRetryDelay = 100 * time.Millisecond

// DefaultShutdownWords end the session.
var DefaultShutdownWords = []string{"exit", "quit", "goodbye", "shutdown", "shut down"}

// Classifier is satisfied by *router.Classifier.
type Classifier interface {
	Classify(ctx context.Context, utterance string) router.Class
}

// Selector is satisfied by *router.Selector.
type Selector interface {
	Select(ctx context.Context, utterance string) (tools.Invocation, bool)
}

// Resolver is satisfied by *router.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, spec tools.Spec, partial map[string]any, utterance string) (map[string]any, error)
}

// Executor is satisfied by *tools.Executor.
type Executor interface {
	Execute(ctx context.Context, inv tools.Invocation) (string, error)
}

// Responder is satisfied by *conversation.Manager.
type Responder interface {
	Respond(ctx context.Context, utterance, model string) string
}

// Output is satisfied by *speech.Queue.
type Output interface {
	Enqueue(text string) error
}

// Deps are the collaborators the orchestrator drives.
type Deps struct {
	Listener     speech.Listener
	Output       Output
	Registry     *tools.Registry
	Classifier   Classifier
	Selector     Selector
	Resolver     Resolver
	Executor     Executor
	Conversation Responder
	Logger       *slog.Logger
}

func (d Deps) validate() error {
	switch {
	case d.Listener == nil:
		return errors.New("assistant: listener required")
	case d.Output == nil:
		return errors.New("assistant: output required")
	case d.Registry == nil:
		return errors.New("assistant: tool registry required")
	case d.Classifier == nil, d.Selector == nil, d.Resolver == nil:
		return errors.New("assistant: router components required")
	case d.Executor == nil:
		return errors.New("assistant: executor required")
	case d.Conversation == nil:
		return errors.New("assistant: conversation required")
	}
	return nil
}

// Options tune the orchestrator.
type Options struct {
	// WakeWord must appear in an utterance for it to be acted on.
	WakeWord string

	// ShutdownWords end the session. Defaults to DefaultShutdownWords.
	ShutdownWords []string

	// FastModel answers SIMPLE queries, SmartModel answers COMPLEX ones.
	FastModel  string
	SmartModel string

	// MaxConcurrent bounds in-flight commands. Zero means unbounded; when the
	// bound is reached new commands are rejected with MsgBusy.
	MaxConcurrent int

	// SkipInterstitial suppresses MsgInterstitial before COMPLEX replies.
	SkipInterstitial bool

	// RetryDelay is the pause after a listen error so a failing device does
	// not spin the loop. Defaults to DefaultRetryDelay.
	RetryDelay time.Duration

	// OnState, if set, is called from task goroutines on every state change.
	// A panicking hook is logged and ignored.
	OnState func(taskID string, state State)
}

// Assistant is the orchestrator.
type Assistant struct {
	deps   Deps
	opts   Options
	logger *slog.Logger

	sem *semaphore.Weighted // nil when unbounded
	wg  sync.WaitGroup
}

// New creates an assistant.
func New(deps Deps, opts Options) (*Assistant, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	opts.WakeWord = strings.ToLower(strings.TrimSpace(opts.WakeWord))
	if opts.WakeWord == "" {
		return nil, errors.New("assistant: wake word required")
	}
	if opts.MaxConcurrent < 0 {
		return nil, errors.New("assistant: max concurrent must not be negative")
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if len(opts.ShutdownWords) == 0 {
		opts.ShutdownWords = DefaultShutdownWords
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Assistant{
		deps:   deps,
		opts:   opts,
		logger: logger.With("component", "assistant"),
	}
	if opts.MaxConcurrent > 0 {
		a.sem = semaphore.NewWeighted(int64(opts.MaxConcurrent))
	}
	return a, nil
}

// Wait blocks until every dispatched command has finished.
func (a *Assistant) Wait() {
	a.wg.Wait()
}

// say enqueues text for speaking. A closed output is logged, not fatal.
func (a *Assistant) say(logger *slog.Logger, text string) {
	if err := a.deps.Output.Enqueue(text); err != nil {
		logger.Error("enqueue speech failed", "error", err, "text", text)
	}
}
