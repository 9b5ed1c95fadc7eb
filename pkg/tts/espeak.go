package tts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const providerEspeak = "espeak"

// Espeak synthesizes speech with a local espeak-ng (or espeak) process.
// The engine writes a WAV file to stdout.
type Espeak struct {
	config *Config
	binary string
	logger *slog.Logger
}

// NewEspeak finds the engine binary and returns a provider.
// Without WithBinary it looks for espeak-ng, then espeak, on PATH.
func NewEspeak(opts ...Option) (*Espeak, error) {
	cfg := DefaultConfig()
	cfg.OutputFormat = EncodingWAV
	cfg.Apply(opts...)

	candidates := []string{"espeak-ng", "espeak"}
	if cfg.Binary != "" {
		candidates = []string{cfg.Binary}
	}

	var binary string
	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			binary = path
			break
		}
	}
	if binary == "" {
		return nil, WrapError(providerEspeak, fmt.Errorf("%w: tried %s", ErrEngineNotFound, strings.Join(candidates, ", ")))
	}

	return &Espeak{
		config: cfg,
		binary: binary,
		logger: cfg.Logger.With("component", "tts.espeak"),
	}, nil
}

// Synthesize runs the engine and returns its WAV output.
func (e *Espeak) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(providerEspeak, ErrEmptyText)
	}

	start := time.Now()

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.binary, e.args(text)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, WrapError(providerEspeak, fmt.Errorf("run: %w: %s", err, strings.TrimSpace(stderr.String())))
	}
	if stdout.Len() == 0 {
		return nil, WrapError(providerEspeak, fmt.Errorf("no audio produced"))
	}

	latency := time.Since(start).Milliseconds()
	e.logger.Debug("synthesized audio", "chars", len(text), "bytes", stdout.Len(), "latency_ms", latency)

	return &AudioResult{
		Audio:     stdout.Bytes(),
		Format:    AudioFormat{Encoding: EncodingWAV, Channels: 1},
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

func (e *Espeak) args(text string) []string {
	args := []string{"--stdout"}
	if e.config.Rate > 0 {
		args = append(args, "-s", strconv.Itoa(e.config.Rate))
	}
	if e.config.VoiceID != "" {
		args = append(args, "-v", e.config.VoiceID)
	}
	// "--" keeps text starting with "-" from being read as a flag.
	return append(args, "--", text)
}

// Health checks the binary can still be found.
func (e *Espeak) Health(ctx context.Context) error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return WrapError(providerEspeak, fmt.Errorf("%w: %v", ErrEngineNotFound, err))
	}
	return nil
}

// Close is a no-op.
func (e *Espeak) Close() error {
	return nil
}

// Binary returns the resolved engine path.
func (e *Espeak) Binary() string {
	return e.binary
}

// Verify Espeak implements Provider at compile time.
var _ Provider = (*Espeak)(nil)
