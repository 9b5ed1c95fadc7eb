package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Chain speaks through the first engine that works. The assistant puts a
// remote voice first and the local espeak engine last, so a lost network
// connection degrades the voice instead of silencing it.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain creates a chain. At least one provider is required.
func NewChain(providers ...Provider) (*Chain, error) {
	return NewChainWithLogger(slog.Default(), providers...)
}

// NewChainWithLogger creates a chain that logs fallbacks to logger.
func NewChainWithLogger(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	return &Chain{
		providers: providers,
		logger:    logger.With("component", "tts.chain"),
	}, nil
}

// Synthesize returns audio from the first engine that succeeds. Blank text
// ends the walk at the first engine; no other engine can speak it either.
func (c *Chain) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	var errs []error

	for i, p := range c.providers {
		result, err := p.Synthesize(ctx, text)
		if err == nil {
			if len(errs) > 0 {
				c.logger.Info("spoke with fallback engine", "engine", i, "chars", len(text))
			}
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, ErrEmptyText) {
			return nil, err
		}

		errs = append(errs, err)
		c.logger.Warn("engine failed", "engine", i, "error", err)
	}

	return nil, &ChainError{Errors: errs}
}

// Health succeeds when any engine is usable.
func (c *Chain) Health(ctx context.Context) error {
	var errs []error
	for i, p := range c.providers {
		if err := p.Health(ctx); err != nil {
			errs = append(errs, fmt.Errorf("engine %d: %w", i, err))
			continue
		}
		return nil
	}
	return fmt.Errorf("tts chain: no usable engine: %w", errors.Join(errs...))
}

// Close closes every engine.
func (c *Chain) Close() error {
	var errs []error
	for _, p := range c.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// Providers returns the engines in order.
func (c *Chain) Providers() []Provider {
	return c.providers
}

// Verify Chain implements Provider at compile time.
var _ Provider = (*Chain)(nil)
