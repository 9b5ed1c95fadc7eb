// Package conversation keeps the rolling chat history and turns an
// utterance into a model reply.
//
// Each exchange appends the user message, sends the most recent MaxHistory
// messages behind a persona system message, and appends the reply, even
// when the reply is empty or the backend failed. Exchanges are serialized,
// so user and assistant messages always alternate.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/SoulPlaya/Llama-AIAgent/pkg/inference"
)

// Fixed replies.
const (
	MsgError         = "I encountered an error while thinking."
	MsgEmptyResponse = "I'm sorry, I didn't get a response."
)

// DefaultMaxHistory is the number of messages sent with each request.
const DefaultMaxHistory = 10

// Completer is the slice of inference.Provider the manager needs.
type Completer interface {
	Chat(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error)
}

// Config configures a Manager.
type Config struct {
	Backend Completer

	// Name is used in the persona ("You are <Name>, ...").
	Name string

	// Persona overrides the system message entirely.
	Persona string

	// MaxHistory caps the messages sent per request. Defaults to DefaultMaxHistory.
	MaxHistory int

	Logger *slog.Logger
}

// Persona returns the default system message for name.
func Persona(name string) string {
	return fmt.Sprintf("You are %s, a concise helpful AI. For simple queries, keep responses brief.", name)
}

// Manager owns the history and talks to the backend.
type Manager struct {
	backend    Completer
	system     inference.Message
	maxHistory int
	history    History
	logger     *slog.Logger

	// exchange serializes whole exchanges so turns never interleave.
	exchange sync.Mutex
}

// New creates a conversation manager.
func New(cfg Config) *Manager {
	persona := cfg.Persona
	if persona == "" {
		persona = Persona(cfg.Name)
	}
	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		backend:    cfg.Backend,
		system:     inference.NewSystemMessage(persona),
		maxHistory: maxHistory,
		logger:     logger.With("component", "conversation"),
	}
}

// Respond sends utterance to model and returns the text to speak.
//
// The returned text is never empty. On backend failure it is MsgError, which
// is also what gets recorded as the assistant turn.
func (m *Manager) Respond(ctx context.Context, utterance, model string) string {
	m.exchange.Lock()
	defer m.exchange.Unlock()

	m.history.Append(inference.NewUserMessage(utterance))

	messages := append([]inference.Message{m.system}, m.history.Last(m.maxHistory)...)

	reply, err := m.complete(ctx, model, messages)
	if err != nil {
		m.logger.Error("chat failed", "model", model, "error", err)
		reply = MsgError
	}

	m.history.Append(inference.NewAssistantMessage(reply))

	if reply == "" {
		m.logger.Warn("empty reply", "model", model)
		return MsgEmptyResponse
	}
	return reply
}

func (m *Manager) complete(ctx context.Context, model string, messages []inference.Message) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("conversation: backend panic: %v", r)
		}
	}()

	resp, err := m.backend.Chat(ctx, &inference.ChatRequest{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Message.Content), nil
}

// Snapshot returns a copy of the full history.
func (m *Manager) Snapshot() []inference.Message {
	return m.history.Snapshot()
}

// Len returns the number of messages in the history.
func (m *Manager) Len() int {
	return m.history.Len()
}

// Reset clears the history.
func (m *Manager) Reset() {
	m.exchange.Lock()
	defer m.exchange.Unlock()
	m.history.Reset()
}

// MaxHistory returns the per-request message cap.
func (m *Manager) MaxHistory() int {
	return m.maxHistory
}
