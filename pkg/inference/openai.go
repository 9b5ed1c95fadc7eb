package inference

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const providerOpenAI = "openai"

// OpenAI implements Provider on top of the official OpenAI SDK.
type OpenAI struct {
	client openai.Client
	config *Config
}

// NewOpenAI creates a provider backed by the OpenAI SDK.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = ""
	cfg.Model = "gpt-4o-mini"
	cfg.VisionModel = "gpt-4o"
	cfg.Apply(opts...)

	if cfg.APIKey == "" {
		return nil, WrapError(providerOpenAI, ErrNoAPIKey)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithHTTPClient(cfg.httpClient()),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAI{
		client: openai.NewClient(reqOpts...),
		config: cfg,
	}, nil
}

// Chat generates a chat completion.
func (o *OpenAI) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	model := pickModel(req.Model, o.config.Model)
	if model == "" {
		return nil, WrapError(providerOpenAI, ErrNoModel)
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: msgs,
	}
	if temp := pickFloat(req.Temperature, o.config.Temperature); temp > 0 {
		params.Temperature = openai.Float(temp)
	}
	if n := pickInt(req.MaxTokens, o.config.MaxTokens); n > 0 {
		params.MaxCompletionTokens = openai.Int(int64(n))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, o.wrap(err)
	}

	raw := []byte(resp.RawJSON())
	text := ""
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	} else {
		text = ExtractText(raw)
	}

	return &ChatResponse{
		Message:   NewAssistantMessage(text),
		Model:     resp.Model,
		Raw:       raw,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// Vision describes an image with a prompt.
func (o *OpenAI) Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error) {
	start := time.Now()

	if len(req.Image) == 0 {
		return nil, WrapError(providerOpenAI, ErrNoImage)
	}

	model := pickModel(req.Model, o.config.VisionModel)
	if model == "" {
		return nil, WrapError(providerOpenAI, ErrNoModel)
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.system()),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(req.prompt()),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: ImageDataURL(req.Image),
				}),
			}),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, o.wrap(err)
	}
	if len(resp.Choices) == 0 {
		return nil, WrapError(providerOpenAI, ErrEmptyResponse)
	}

	return &VisionResponse{
		Content:   strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:     resp.Model,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// Capabilities returns what this provider supports.
func (o *OpenAI) Capabilities() Capabilities {
	return Capabilities{Chat: true, Vision: true}
}

// Health lists models to check the key is accepted.
func (o *OpenAI) Health(ctx context.Context) error {
	if _, err := o.client.Models.List(ctx); err != nil {
		return o.wrap(err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no resources of its own.
func (o *OpenAI) Close() error {
	return nil
}

// wrap converts SDK errors to APIError so callers can inspect status codes.
func (o *OpenAI) wrap(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &APIError{
			StatusCode: apiErr.StatusCode,
			Message:    err.Error(),
			Provider:   providerOpenAI,
		}
	}
	return WrapError(providerOpenAI, err)
}

// Verify OpenAI implements Provider at compile time.
var _ Provider = (*OpenAI)(nil)
