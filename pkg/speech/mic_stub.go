//go:build !whisper

package speech

import (
	"context"
	"log/slog"
)

// MicListener is unavailable without the whisper build tag.
type MicListener struct{}

// NewMicListener returns ErrMicUnavailable.
func NewMicListener(cfg MicConfig, logger *slog.Logger) (*MicListener, error) {
	return nil, ErrMicUnavailable
}

// Listen returns ErrMicUnavailable.
func (m *MicListener) Listen(ctx context.Context) (string, error) {
	return "", ErrMicUnavailable
}

// Close is a no-op.
func (m *MicListener) Close() error {
	return nil
}
