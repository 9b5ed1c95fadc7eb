package inference

import (
	"context"
	"strings"
	"time"
)

const providerOllama = "ollama"

// Ollama talks to the Ollama native API (/api/chat).
// Sampling options go under "options" and images ride on the user message
// as base64 strings.
type Ollama struct {
	t      *transport
	config *Config
}

// NewOllama creates a provider for a local or remote Ollama server.
func NewOllama(opts ...Option) (*Ollama, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	return &Ollama{
		t:      newTransport(providerOllama, cfg),
		config: cfg,
	}, nil
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatRequest struct {
	Model    string                 `json:"model"`
	Messages []ollamaMessage        `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// Chat generates a chat completion.
func (o *Ollama) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	model := pickModel(req.Model, o.config.Model)
	if model == "" {
		return nil, WrapError(providerOllama, ErrNoModel)
	}

	msgs := make([]ollamaMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = ollamaMessage{Role: string(m.Role), Content: m.Content}
	}

	raw, err := o.t.postJSON(ctx, "/api/chat", ollamaChatRequest{
		Model:    model,
		Messages: msgs,
		Options:  o.options(req.Temperature, req.MaxTokens),
	})
	if err != nil {
		return nil, err
	}

	return &ChatResponse{
		Message:   NewAssistantMessage(ExtractText(raw)),
		Model:     model,
		Raw:       raw,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// Vision describes an image with a vision model such as llama3.2-vision.
func (o *Ollama) Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error) {
	start := time.Now()

	if len(req.Image) == 0 {
		return nil, WrapError(providerOllama, ErrNoImage)
	}

	model := pickModel(req.Model, o.config.VisionModel)
	if model == "" {
		return nil, WrapError(providerOllama, ErrNoModel)
	}

	raw, err := o.t.postJSON(ctx, "/api/chat", ollamaChatRequest{
		Model: model,
		Messages: []ollamaMessage{
			{Role: string(RoleSystem), Content: req.system()},
			{Role: string(RoleUser), Content: req.prompt(), Images: []string{EncodeImageBase64(req.Image)}},
		},
		Options: o.options(0, req.MaxTokens),
	})
	if err != nil {
		return nil, err
	}

	return &VisionResponse{
		Content:   strings.TrimSpace(ExtractText(raw)),
		Model:     model,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

func (o *Ollama) options(temperature float64, maxTokens int) map[string]interface{} {
	opts := map[string]interface{}{}
	if temp := pickFloat(temperature, o.config.Temperature); temp > 0 {
		opts["temperature"] = temp
	}
	if n := pickInt(maxTokens, o.config.MaxTokens); n > 0 {
		opts["num_predict"] = n
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}

// Capabilities returns what this provider supports.
func (o *Ollama) Capabilities() Capabilities {
	return Capabilities{Chat: true, Vision: true}
}

// Health lists local models to check the server is up.
func (o *Ollama) Health(ctx context.Context) error {
	return o.t.get(ctx, "/api/tags")
}

// Close releases resources.
func (o *Ollama) Close() error {
	o.t.close()
	return nil
}

// Verify Ollama implements Provider at compile time.
var _ Provider = (*Ollama)(nil)
