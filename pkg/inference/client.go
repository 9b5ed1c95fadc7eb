package inference

import (
	"context"
	"strings"
	"time"
)

const providerClient = "client"

// Client is the standard HTTP-based inference provider.
// Works with any OpenAI-compatible API (OpenAI, Ollama's /v1, vLLM, Together, Groq, etc.).
type Client struct {
	t      *transport
	config *Config
}

// NewClient creates a new OpenAI-compatible inference client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = "https://api.openai.com/v1"
	cfg.Apply(opts...)

	return &Client{
		t:      newTransport(providerClient, cfg),
		config: cfg,
	}, nil
}

// Chat generates a chat completion.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	model := pickModel(req.Model, c.config.Model)
	if model == "" {
		return nil, WrapError(providerClient, ErrNoModel)
	}

	payload := map[string]interface{}{
		"model":    model,
		"messages": req.Messages,
	}
	if n := pickInt(req.MaxTokens, c.config.MaxTokens); n > 0 {
		payload["max_tokens"] = n
	}
	if temp := pickFloat(req.Temperature, c.config.Temperature); temp > 0 {
		payload["temperature"] = temp
	}

	raw, err := c.t.postJSON(ctx, "/chat/completions", payload)
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

// Vision describes an image with a prompt.
func (c *Client) Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error) {
	start := time.Now()

	if len(req.Image) == 0 {
		return nil, WrapError(providerClient, ErrNoImage)
	}

	model := pickModel(req.Model, c.config.VisionModel)
	if model == "" {
		return nil, WrapError(providerClient, ErrNoModel)
	}

	content := []map[string]interface{}{
		{"type": "text", "text": req.prompt()},
		{
			"type":      "image_url",
			"image_url": map[string]string{"url": ImageDataURL(req.Image)},
		},
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 500
	}

	payload := map[string]interface{}{
		"model": model,
		"messages": []map[string]interface{}{
			{"role": "system", "content": req.system()},
			{"role": "user", "content": content},
		},
		"max_tokens": maxTokens,
	}

	raw, err := c.t.postJSON(ctx, "/chat/completions", payload)
	if err != nil {
		return nil, err
	}

	return &VisionResponse{
		Content:   strings.TrimSpace(ExtractText(raw)),
		Model:     model,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// Capabilities returns what this client supports.
func (c *Client) Capabilities() Capabilities {
	return Capabilities{Chat: true, Vision: true}
}

// Health checks API connectivity.
func (c *Client) Health(ctx context.Context) error {
	return c.t.get(ctx, "/models")
}

// Close releases resources.
func (c *Client) Close() error {
	c.t.close()
	return nil
}

func pickInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

func pickFloat(v, fallback float64) float64 {
	if v != 0 {
		return v
	}
	return fallback
}

// Verify Client implements Provider at compile time.
var _ Provider = (*Client)(nil)
