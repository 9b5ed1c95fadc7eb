// Package inference provides a unified interface for chat completion and
// image description backends.
//
// The assistant talks to three kinds of backend through the same Provider
// interface: the Ollama native API, any OpenAI-compatible HTTP endpoint, and
// the OpenAI SDK. Responses are reduced to a single text field by
// ExtractText, so callers never depend on a backend's response shape.
//
// Example usage:
//
//	client, _ := inference.NewOllama(
//	    inference.WithBaseURL("http://localhost:11434"),
//	    inference.WithModel("llama3.1:8b-instruct-q4_K_M"),
//	)
//	defer client.Close()
//
//	resp, _ := client.Chat(ctx, &inference.ChatRequest{
//	    Messages: []inference.Message{
//	        inference.NewUserMessage("Hello!"),
//	    },
//	    Temperature: 0.1,
//	})
//	fmt.Println(resp.Message.Content)
package inference

import (
	"context"
	"strings"
)

// Provider is the unified inference interface for chat and vision.
// All implementations must satisfy this interface.
type Provider interface {
	// Chat generates a response from a sequence of messages.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Vision describes an image with a text prompt.
	Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error)

	// Capabilities returns what features this provider supports.
	Capabilities() Capabilities

	// Health checks provider connectivity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Capabilities describes what features a provider supports.
type Capabilities struct {
	Chat   bool // Supports chat completions
	Vision bool // Supports image input
}

// ChatRequest for chat completions.
type ChatRequest struct {
	// Messages is the ordered conversation.
	Messages []Message

	// Model overrides the default model.
	Model string

	// MaxTokens limits the response length. Zero uses the provider default.
	MaxTokens int

	// Temperature controls randomness (0.0-2.0). Zero uses the provider default.
	Temperature float64
}

// ChatResponse from chat completion.
type ChatResponse struct {
	// Message is the assistant's response.
	Message Message

	// Model used for generation.
	Model string

	// Raw is the undecoded response body, when the provider has one.
	Raw []byte

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// Text returns the trimmed reply text.
func (r *ChatResponse) Text() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Message.Content)
}

// VisionRequest for image description.
type VisionRequest struct {
	// Image is the encoded image (PNG or JPEG).
	Image []byte

	// System is the instruction message. Defaults to DefaultVisionSystem.
	System string

	// Prompt is the question about the image. Defaults to DefaultVisionPrompt.
	Prompt string

	// Model overrides the default vision model.
	Model string

	// MaxTokens limits the response length.
	MaxTokens int
}

// VisionResponse from image description.
type VisionResponse struct {
	// Content is the natural language description.
	Content string

	// Model used for analysis.
	Model string

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// Fixed instruction pair sent with every image.
const (
	DefaultVisionSystem = "Describe the image."
	DefaultVisionPrompt = "What's in this image?"
)

func (r *VisionRequest) system() string {
	if r.System != "" {
		return r.System
	}
	return DefaultVisionSystem
}

func (r *VisionRequest) prompt() string {
	if r.Prompt != "" {
		return r.Prompt
	}
	return DefaultVisionPrompt
}
