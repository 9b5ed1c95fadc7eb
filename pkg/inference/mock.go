package inference

import (
	"context"
	"sync"
)

// Mock is a Provider for tests. It keeps every request it receives so tests
// can check the prompts and models that reached the backend.
//
// A nil ChatFunc or VisionFunc also turns off the matching capability.
type Mock struct {
	ChatFunc   func(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	VisionFunc func(ctx context.Context, req *VisionRequest) (*VisionResponse, error)
	HealthFunc func(ctx context.Context) error
	CloseFunc  func() error

	mu      sync.Mutex
	counts  map[string]int
	chats   []*ChatRequest
	visions []*VisionRequest
}

// NewMock answers every chat with "Mock response" and every image with
// "I see a mock image".
func NewMock() *Mock {
	return &Mock{
		ChatFunc: func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
			return &ChatResponse{Message: NewAssistantMessage("Mock response"), Model: req.Model}, nil
		},
		VisionFunc: func(ctx context.Context, req *VisionRequest) (*VisionResponse, error) {
			return &VisionResponse{Content: "I see a mock image", Model: req.Model}, nil
		},
	}
}

// NewReplyMock returns a mock whose Chat always answers with text.
func NewReplyMock(text string) *Mock {
	m := NewMock()
	m.ChatFunc = func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
		return &ChatResponse{Message: NewAssistantMessage(text), Model: req.Model}, nil
	}
	return m
}

// WithError returns a mock whose every call fails with err.
func WithError(err error) *Mock {
	return &Mock{
		ChatFunc: func(context.Context, *ChatRequest) (*ChatResponse, error) {
			return nil, err
		},
		VisionFunc: func(context.Context, *VisionRequest) (*VisionResponse, error) {
			return nil, err
		},
		HealthFunc: func(context.Context) error {
			return err
		},
	}
}

// Chat records req and calls ChatFunc.
func (m *Mock) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	m.mu.Lock()
	m.count("Chat")
	m.chats = append(m.chats, req)
	fn := m.ChatFunc
	m.mu.Unlock()

	if fn == nil {
		return nil, WrapError("mock", ErrProviderUnavailable)
	}
	return fn(ctx, req)
}

// Vision records req and calls VisionFunc.
func (m *Mock) Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error) {
	m.mu.Lock()
	m.count("Vision")
	m.visions = append(m.visions, req)
	fn := m.VisionFunc
	m.mu.Unlock()

	if fn == nil {
		return nil, WrapError("mock", ErrVisionNotSupported)
	}
	return fn(ctx, req)
}

// Capabilities follows which funcs are set.
func (m *Mock) Capabilities() Capabilities {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Capabilities{Chat: m.ChatFunc != nil, Vision: m.VisionFunc != nil}
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

// ChatRequests returns the chat requests received, oldest first.
func (m *Mock) ChatRequests() []*ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ChatRequest(nil), m.chats...)
}

// VisionRequests returns the vision requests received, oldest first.
func (m *Mock) VisionRequests() []*VisionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*VisionRequest(nil), m.visions...)
}

// Reset forgets every recorded call.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts = nil
	m.chats = nil
	m.visions = nil
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
