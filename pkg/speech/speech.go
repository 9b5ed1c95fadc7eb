// Package speech adapts audio input and output to the assistant.
//
// A Listener produces lowercased utterances; a Speaker vocalises text.
// Queue serialises all speech through a single worker so concurrent
// command tasks never talk over each other.
package speech

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrClosed is returned by a Listener whose input is exhausted.
	ErrClosed = errors.New("speech: input closed")

	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("speech: queue closed")

	// ErrMicUnavailable is returned when the binary was built without
	// microphone support.
	ErrMicUnavailable = errors.New("speech: microphone support not built (use -tags whisper)")
)

// Listener captures one utterance.
// An empty string with a nil error means nothing was heard.
type Listener interface {
	Listen(ctx context.Context) (string, error)
}

// Speaker vocalises text, blocking until done.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// SpeakerFunc adapts a function to Speaker.
type SpeakerFunc func(ctx context.Context, text string) error

// Speak calls f.
func (f SpeakerFunc) Speak(ctx context.Context, text string) error {
	return f(ctx, text)
}

// Multi speaks through every speaker in order.
func Multi(speakers ...Speaker) Speaker {
	return SpeakerFunc(func(ctx context.Context, text string) error {
		var errs []error
		for _, s := range speakers {
			if err := s.Speak(ctx, text); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// MicConfig configures the microphone listener.
type MicConfig struct {
	// ModelPath is the whisper.cpp ggml model file.
	ModelPath string

	// Language is passed to whisper; "en" when empty.
	Language string

	// ListenTimeout bounds how long to wait for speech to start.
	ListenTimeout time.Duration

	// PhraseLimit bounds the length of one utterance.
	PhraseLimit time.Duration

	// Threads for transcription; <=0 uses every CPU.
	Threads int
}

// Normalize lowercases and trims a transcript and drops bracketed
// annotations such as "[BLANK_AUDIO]" or "(wind blowing)".
func Normalize(text string) string {
	var b strings.Builder
	depth := 0
	for _, r := range text {
		switch r {
		case '[', '(':
			depth++
			continue
		case ']', ')':
			if depth > 0 {
				depth--
				continue
			}
		}
		if depth == 0 {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(strings.ToLower(b.String())), " ")
}
