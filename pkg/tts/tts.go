// Package tts provides a unified interface for text-to-speech providers
// and a Player that renders their audio on the default output device.
//
// Three engines are supported: the OpenAI speech endpoint, ElevenLabs over
// its stream-input WebSocket, and a local espeak-ng process. Each returns a
// complete buffer (MP3, WAV or raw PCM) which Player decodes with beep.
//
// Example usage:
//
//	provider, _ := tts.NewEspeak(tts.WithRate(180))
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "Llama online.")
//	_ = tts.NewPlayer().Play(ctx, result)
package tts

import "context"

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks that the provider can be used.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the encoded audio data.
	Audio []byte

	// Format describes the audio encoding.
	Format AudioFormat

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the synthesis time in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int // Hz, zero when the container carries it
	Channels   int
}

// Encoding is an audio container understood by Player.
type Encoding string

const (
	EncodingMP3 Encoding = "mp3"
	EncodingWAV Encoding = "wav"

	// EncodingPCM is headerless signed 16-bit little-endian samples; the
	// AudioFormat must carry SampleRate.
	EncodingPCM Encoding = "pcm"
)
