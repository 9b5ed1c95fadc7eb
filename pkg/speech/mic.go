//go:build whisper

package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// MicListener records from the microphone and transcribes with whisper.cpp.
type MicListener struct {
	cfg    MicConfig
	rec    *Recorder
	model  whisper.Model
	logger *slog.Logger
}

// NewMicListener opens the audio device and loads the whisper model.
func NewMicListener(cfg MicConfig, logger *slog.Logger) (*MicListener, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ModelPath == "" {
		return nil, errors.New("speech: whisper model path required")
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}

	rec, err := NewRecorder()
	if err != nil {
		return nil, fmt.Errorf("speech: init audio: %w", err)
	}

	model, err := whisper.New(cfg.ModelPath)
	if err != nil {
		rec.Close()
		return nil, fmt.Errorf("speech: load model: %w", err)
	}

	return &MicListener{
		cfg:    cfg,
		rec:    rec,
		model:  model,
		logger: logger.With("component", "speech.mic"),
	}, nil
}

// Listen records one phrase and returns its normalized transcript.
func (m *MicListener) Listen(ctx context.Context) (string, error) {
	pcm, err := m.rec.Record(ctx, m.cfg.ListenTimeout, m.cfg.PhraseLimit)
	if err != nil {
		return "", fmt.Errorf("speech: record: %w", err)
	}
	if len(pcm) == 0 {
		return "", nil
	}

	m.logger.Debug("recorded", "samples", len(pcm))

	text, err := m.transcribe(ctx, pcm)
	if err != nil {
		return "", err
	}
	return Normalize(text), nil
}

func (m *MicListener) transcribe(ctx context.Context, pcm []float32) (string, error) {
	wctx, err := m.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("speech: new context: %w", err)
	}
	if err := wctx.SetLanguage(m.cfg.Language); err != nil {
		return "", fmt.Errorf("speech: set language: %w", err)
	}

	threads := m.cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		return "", fmt.Errorf("speech: process: %w", err)
	}

	var parts []string
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("speech: next segment: %w", err)
		}
		parts = append(parts, seg.Text)
	}
	return strings.Join(parts, " "), nil
}

// Close releases the model and the audio device.
func (m *MicListener) Close() error {
	return errors.Join(m.model.Close(), m.rec.Close())
}
