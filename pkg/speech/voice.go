package speech

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SoulPlaya/Llama-AIAgent/pkg/tts"
)

// Player renders synthesized audio. *tts.Player implements it.
type Player interface {
	Play(ctx context.Context, res *tts.AudioResult) error
}

// Voice speaks through a TTS provider and an audio player.
type Voice struct {
	provider tts.Provider
	player   Player
	logger   *slog.Logger
}

// NewVoice creates a voice.
func NewVoice(provider tts.Provider, player Player, logger *slog.Logger) *Voice {
	if logger == nil {
		logger = slog.Default()
	}
	return &Voice{
		provider: provider,
		player:   player,
		logger:   logger.With("component", "speech.voice"),
	}
}

// Speak synthesizes text and blocks until it has been played.
// Blank text is a no-op.
func (v *Voice) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	res, err := v.provider.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("speech: synthesize: %w", err)
	}

	v.logger.Debug("playing", "bytes", len(res.Audio), "latency_ms", res.LatencyMs)

	if err := v.player.Play(ctx, res); err != nil {
		return fmt.Errorf("speech: play: %w", err)
	}
	return nil
}

// Close releases the provider.
func (v *Voice) Close() error {
	return v.provider.Close()
}
