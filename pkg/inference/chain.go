package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Chain sends each request to its backends in order and returns the first
// answer. The first backend is the primary; the rest are fallbacks for when
// it is down or overloaded.
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
		logger:    logger.With("component", "inference.chain"),
	}, nil
}

// Chat returns the first backend's reply that succeeds.
func (c *Chain) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return try(ctx, c, "chat", ErrProviderUnavailable,
		func(caps Capabilities) bool { return caps.Chat },
		func(p Provider) (*ChatResponse, error) { return p.Chat(ctx, req) })
}

// Vision returns the first description that succeeds, skipping backends
// without vision support.
func (c *Chain) Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error) {
	return try(ctx, c, "vision", ErrVisionNotSupported,
		func(caps Capabilities) bool { return caps.Vision },
		func(p Provider) (*VisionResponse, error) { return p.Vision(ctx, req) })
}

// try walks the backends that support op. A malformed request fails the
// same way everywhere, so it ends the walk instead of falling through.
func try[T any](ctx context.Context, c *Chain, op string, unsupported error,
	supports func(Capabilities) bool, call func(Provider) (T, error)) (T, error) {
	var zero T
	var errs []error

	for i, p := range c.providers {
		if !supports(p.Capabilities()) {
			continue
		}

		resp, err := call(p)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback backend answered", "op", op, "backend", label(i))
			}
			return resp, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		errs = append(errs, err)
		if isRequestError(err) {
			break
		}
		c.logger.Warn("backend failed", "op", op, "backend", label(i), "error", err)
	}

	if len(errs) == 0 {
		return zero, unsupported
	}
	return zero, &ChainError{Errors: errs}
}

func isRequestError(err error) bool {
	return errors.Is(err, ErrNoModel) || errors.Is(err, ErrNoImage)
}

func label(i int) string {
	switch i {
	case 0:
		return "primary"
	case 1:
		return "fallback"
	default:
		return fmt.Sprintf("fallback-%d", i)
	}
}

// Capabilities is the union of the backends' capabilities.
func (c *Chain) Capabilities() Capabilities {
	var caps Capabilities
	for _, p := range c.providers {
		pc := p.Capabilities()
		caps.Chat = caps.Chat || pc.Chat
		caps.Vision = caps.Vision || pc.Vision
	}
	return caps
}

// Health succeeds when any backend is healthy. Otherwise every backend's
// error is returned.
func (c *Chain) Health(ctx context.Context) error {
	var errs []error
	for i, p := range c.providers {
		if err := p.Health(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label(i), err))
			continue
		}
		if i > 0 {
			c.logger.Warn("primary backend unhealthy, fallback up", "backend", label(i))
		}
		return nil
	}
	return WrapError("chain", errors.Join(errs...))
}

// Close closes every backend.
func (c *Chain) Close() error {
	var errs []error
	for _, p := range c.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// Providers returns the backends in order.
func (c *Chain) Providers() []Provider {
	return c.providers
}

// Verify Chain implements Provider at compile time.
var _ Provider = (*Chain)(nil)
