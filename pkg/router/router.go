// Package router decides what to do with an utterance.
//
// A Classifier sorts the utterance into TOOL, SIMPLE or COMPLEX. For TOOL,
// a Selector picks a registered tool and a Resolver fills in any required
// arguments the selector left out. Every step talks to the fast model with
// low-temperature decoding and degrades to a safe outcome on failure.
package router

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/SoulPlaya/Llama-AIAgent/pkg/inference"
)

// User-facing phrases for routing failures.
const (
	MsgNoTool       = "I couldn't decide which tool to use."
	MsgBadArguments = "Tool invocation failed: missing or bad arguments."
)

// ErrBadArguments is returned when required tool arguments cannot be resolved.
var ErrBadArguments = errors.New("router: missing or bad arguments")

// DefaultTemperature keeps routing answers near-deterministic.
const DefaultTemperature = 0.1

// Completer is the slice of inference.Provider the router needs.
type Completer interface {
	Chat(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error)
}

// Config is shared by Classifier, Selector and Resolver.
type Config struct {
	Backend Completer
	Model   string

	// Temperature for every routing call. Zero means DefaultTemperature.
	Temperature float64

	Logger *slog.Logger
}

func (c Config) withDefaults(component string) Config {
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	c.Logger = c.Logger.With("component", "router."+component)
	return c
}

// ask sends a system instruction and the user's text, returning the reply.
func (c Config) ask(ctx context.Context, system, user string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("router: backend panicked")
			c.Logger.Error("backend panic", "panic", r)
		}
	}()

	resp, err := c.Backend.Chat(ctx, &inference.ChatRequest{
		Model: c.Model,
		Messages: []inference.Message{
			inference.NewSystemMessage(system),
			inference.NewUserMessage(user),
		},
		Temperature: c.Temperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Message.Content), nil
}
