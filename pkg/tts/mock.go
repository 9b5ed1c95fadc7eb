package tts

import (
	"context"
	"sync"
)

// MockSampleRate is the rate NewMock tags its audio with.
const MockSampleRate = 16000

// Mock is a Provider for tests. It remembers every text it was asked to
// speak.
type Mock struct {
	SynthesizeFunc func(ctx context.Context, text string) (*AudioResult, error)
	HealthFunc     func(ctx context.Context) error
	CloseFunc      func() error

	mu     sync.Mutex
	counts map[string]int
	texts  []string
}

// NewMock returns the text's bytes as 16kHz PCM, so results play through
// Player and tests can read back what was spoken with string(res.Audio).
func NewMock() *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, text string) (*AudioResult, error) {
			return &AudioResult{
				Audio:     []byte(text),
				Format:    AudioFormat{Encoding: EncodingPCM, SampleRate: MockSampleRate, Channels: 1},
				CharCount: len(text),
			}, nil
		},
	}
}

// WithError returns a mock whose Synthesize and Health fail with err.
func WithError(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(context.Context, string) (*AudioResult, error) {
			return nil, err
		},
		HealthFunc: func(context.Context) error {
			return err
		},
	}
}

// Synthesize records text and calls SynthesizeFunc.
func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	m.mu.Lock()
	m.count("Synthesize")
	m.texts = append(m.texts, text)
	fn := m.SynthesizeFunc
	m.mu.Unlock()

	if fn == nil {
		return nil, WrapError("mock", ErrProviderUnavailable)
	}
	return fn(ctx, text)
}

// Health calls HealthFunc; a nil HealthFunc is healthy.
func (m *Mock) Health(ctx context.Context) error {
	m.mu.Lock()
	m.count("Health")
	fn := m.HealthFunc
	m.mu.Unlock()

	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Close calls CloseFunc.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.count("Close")
	fn := m.CloseFunc
	m.mu.Unlock()

	if fn == nil {
		return nil
	}
	return fn()
}

// count must be called with mu held.
func (m *Mock) count(method string) {
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[method]++
}

// CallCount returns how many times method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[method]
}

// Texts returns what Synthesize was asked to speak, oldest first.
func (m *Mock) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// Reset forgets every recorded call.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts = nil
	m.texts = nil
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
