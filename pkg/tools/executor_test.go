package tools

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SoulPlaya/Llama-AIAgent/internal/log"
	"github.com/SoulPlaya/Llama-AIAgent/pkg/inference"
)

func newTestExecutor(t *testing.T, cfg Config, vision Describer) *Executor {
	t.Helper()
	return NewExecutor(ExecutorConfig{
		Registry:    Default(cfg),
		Vision:      vision,
		VisionModel: "llama3.2-vision:11b",
		Logger:      log.Discard(),
	})
}

func TestExecuteSearchWeb(t *testing.T) {
	var opened []string
	cfg := Config{OpenURL: func(u string) error {
		opened = append(opened, u)
		return nil
	}}
	exec := newTestExecutor(t, cfg, nil)

	text, err := exec.Execute(context.Background(), Invocation{
		Tool:      "search_web",
		Arguments: map[string]any{"query": "cats"},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if text != MsgExecuted {
		t.Errorf("Expected %q, got %q", MsgExecuted, text)
	}
	if len(opened) != 1 || opened[0] != "https://duckduckgo.com/?q=cats" {
		t.Errorf("Unexpected opened URLs: %v", opened)
	}
}

func TestExecuteScreenshotDescribes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	cfg := Config{
		ScreenshotPath: path,
		Capture: func() (image.Image, error) {
			return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
		},
	}

	vision := inference.NewMock()
	vision.VisionFunc = func(ctx context.Context, req *inference.VisionRequest) (*inference.VisionResponse, error) {
		return &inference.VisionResponse{Content: " A code editor. "}, nil
	}

	exec := newTestExecutor(t, cfg, vision)
	text, err := exec.Execute(context.Background(), Invocation{Tool: "take_screenshot"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if text != "A code editor." {
		t.Errorf("Unexpected description %q", text)
	}
	reqs := vision.VisionRequests()
	if len(reqs) != 1 {
		t.Fatalf("Expected one vision call, got %d", len(reqs))
	}
	if !bytes.HasPrefix(reqs[0].Image, []byte("\x89PNG")) {
		t.Error("Vision should receive the PNG bytes")
	}
	if reqs[0].Model != "llama3.2-vision:11b" {
		t.Errorf("Expected vision model, got %q", reqs[0].Model)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Screenshot artifact missing: %v", err)
	}
}

func TestExecuteScreenshotDescribeFails(t *testing.T) {
	cfg := Config{
		ScreenshotPath: filepath.Join(t.TempDir(), "shot.png"),
		Capture: func() (image.Image, error) {
			return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
		},
	}
	exec := newTestExecutor(t, cfg, inference.WithError(errors.New("vision down")))

	text, err := exec.Execute(context.Background(), Invocation{Tool: "take_screenshot"})
	if err == nil {
		t.Error("Expected error")
	}
	if text != MsgDescribeFailed {
		t.Errorf("Expected %q, got %q", MsgDescribeFailed, text)
	}
}

func TestExecuteFailures(t *testing.T) {
	boom := errors.New("boom")
	r, _ := NewRegistry(
		Spec{Name: "fails", Func: func(ctx context.Context, args map[string]any) (any, error) { return nil, boom }},
		Spec{Name: "panics", Func: func(ctx context.Context, args map[string]any) (any, error) { panic("kaboom") }},
		Spec{Name: "talks", Func: func(ctx context.Context, args map[string]any) (any, error) { return " opened it ", nil }},
		Spec{Name: "bad_image", Describe: true, Func: func(ctx context.Context, args map[string]any) (any, error) { return 42, nil }},
	)
	exec := NewExecutor(ExecutorConfig{Registry: r, Vision: inference.NewMock(), Logger: log.Discard()})
	ctx := context.Background()

	tests := []struct {
		tool    string
		want    string
		wantErr error
	}{
		{"fails", MsgFailed, boom},
		{"panics", MsgFailed, nil},
		{"talks", "opened it", nil},
		{"bad_image", MsgDescribeFailed, ErrUnsupportedPayload},
		{"launch_rockets", MsgUnknownTool, ErrUnknownTool},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			text, err := exec.Execute(ctx, Invocation{Tool: tt.tool})
			if text != tt.want {
				t.Errorf("text = %q, want %q", text, tt.want)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.tool == "panics" && (err == nil || !strings.Contains(err.Error(), "kaboom")) {
				t.Errorf("Expected recovered panic, got %v", err)
			}
		})
	}
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	os.WriteFile(path, []byte("from-file"), 0o644)

	if got, err := Payload(path); err != nil || string(got) != "from-file" {
		t.Errorf("Payload(path) = %q, %v", got, err)
	}
	if got, err := Payload([]byte("raw")); err != nil || string(got) != "raw" {
		t.Errorf("Payload(bytes) = %q, %v", got, err)
	}

	rc := &closeRecorder{Reader: strings.NewReader("stream")}
	if got, err := Payload(rc); err != nil || string(got) != "stream" {
		t.Errorf("Payload(reader) = %q, %v", got, err)
	}
	if !rc.closed {
		t.Error("Reader should be closed")
	}

	if _, err := Payload([]byte{}); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("Expected ErrEmptyPayload, got %v", err)
	}
	if _, err := Payload(3.14); !errors.Is(err, ErrUnsupportedPayload) {
		t.Errorf("Expected ErrUnsupportedPayload, got %v", err)
	}
	if _, err := Payload(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("Expected error for missing file")
	}
}
