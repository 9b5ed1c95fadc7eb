//go:build !whisper

package speech

import (
	"context"
	"errors"
	"testing"
)

func TestMicUnavailable(t *testing.T) {
	if _, err := NewMicListener(MicConfig{ModelPath: "models/ggml-base.en.bin"}, nil); !errors.Is(err, ErrMicUnavailable) {
		t.Errorf("NewMicListener = %v, want ErrMicUnavailable", err)
	}
	var m MicListener
	if _, err := m.Listen(context.Background()); !errors.Is(err, ErrMicUnavailable) {
		t.Errorf("Listen = %v, want ErrMicUnavailable", err)
	}
}
