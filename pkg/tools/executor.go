package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/SoulPlaya/Llama-AIAgent/pkg/inference"
)

// Fixed phrases returned by the executor.
const (
	MsgExecuted       = "Tool executed successfully."
	MsgFailed         = "Tool execution failed."
	MsgDescribeFailed = "Couldn't describe the image."
	MsgUnknownTool    = "Unknown tool requested."
)

var (
	// ErrUnsupportedPayload is returned when a tool result cannot be turned into bytes.
	ErrUnsupportedPayload = errors.New("tools: unsupported payload type")

	// ErrEmptyPayload is returned when a tool produced an empty image.
	ErrEmptyPayload = errors.New("tools: empty payload")
)

// Describer describes images. inference.Provider satisfies it.
type Describer interface {
	Vision(ctx context.Context, req *inference.VisionRequest) (*inference.VisionResponse, error)
}

// ExecutorConfig holds executor dependencies.
type ExecutorConfig struct {
	Registry    *Registry
	Vision      Describer
	VisionModel string
	Logger      *slog.Logger
}

// Executor runs tool invocations.
type Executor struct {
	registry    *Registry
	vision      Describer
	visionModel string
	logger      *slog.Logger
}

// NewExecutor creates an executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry:    cfg.Registry,
		vision:      cfg.Vision,
		visionModel: cfg.VisionModel,
		logger:      logger.With("component", "tools.executor"),
	}
}

// Execute runs inv and returns text to speak.
//
// The returned text is always speakable. On failure it is one of the fixed
// phrases and err says what went wrong. Panics inside a tool are recovered.
func (e *Executor) Execute(ctx context.Context, inv Invocation) (string, error) {
	spec, ok := e.registry.Lookup(inv.Tool)
	if !ok {
		return MsgUnknownTool, fmt.Errorf("%w: %q", ErrUnknownTool, inv.Tool)
	}

	e.logger.Info("executing tool", "tool", spec.Name, "args", inv.Arguments)

	result, err := call(ctx, spec, inv.Arguments)
	if err != nil {
		return MsgFailed, fmt.Errorf("tools: %s: %w", spec.Name, err)
	}

	if spec.Describe && result != nil {
		text, err := e.describe(ctx, result)
		if err != nil {
			return MsgDescribeFailed, fmt.Errorf("tools: %s: describe: %w", spec.Name, err)
		}
		return text, nil
	}

	if text := resultText(result); text != "" {
		return text, nil
	}
	return MsgExecuted, nil
}

func call(ctx context.Context, spec Spec, args map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if args == nil {
		args = map[string]any{}
	}
	return spec.Func(ctx, args)
}

func (e *Executor) describe(ctx context.Context, result any) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if e.vision == nil {
		return "", inference.ErrVisionNotSupported
	}

	image, err := Payload(result)
	if err != nil {
		return "", err
	}

	resp, err := e.vision.Vision(ctx, &inference.VisionRequest{
		Image: image,
		Model: e.visionModel,
	})
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(resp.Content)
	if text == "" {
		return "", inference.ErrEmptyResponse
	}
	return text, nil
}

// Payload normalizes a tool result to raw bytes. A string is read as a
// file path, a byte slice is used as is, and an io.Reader is read to the
// end and closed if it is also an io.Closer.
func Payload(v any) ([]byte, error) {
	var (
		data []byte
		err  error
	)

	switch x := v.(type) {
	case string:
		data, err = os.ReadFile(x)
	case []byte:
		data = x
	case io.Reader:
		data, err = io.ReadAll(x)
		if c, ok := x.(io.Closer); ok {
			if cerr := c.Close(); err == nil {
				err = cerr
			}
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedPayload, v)
	}

	if err != nil {
		return nil, fmt.Errorf("tools: read payload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	return data, nil
}

func resultText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case []byte:
		return strings.TrimSpace(string(x))
	case fmt.Stringer:
		return strings.TrimSpace(x.String())
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
