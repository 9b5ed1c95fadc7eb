package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/SoulPlaya/Llama-AIAgent/internal/config"
	"github.com/SoulPlaya/Llama-AIAgent/internal/log"
	"github.com/SoulPlaya/Llama-AIAgent/pkg/inference"
	"github.com/SoulPlaya/Llama-AIAgent/pkg/tools"
	"github.com/SoulPlaya/Llama-AIAgent/pkg/tts"
)

// syncBuffer is shared by the listener prompt and the speech worker.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// ollamaServer answers /api/chat like Ollama: classification requests get
// SIMPLE, everything else gets reply.
func ollamaServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.Write([]byte(`{"models":[]}`))
			return
		case "/api/chat":
		default:
			http.NotFound(w, r)
			return
		}

		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
			return
		}

		content := reply
		if len(req.Messages) > 0 && strings.HasPrefix(req.Messages[0].Content, "Classify") {
			content = "SIMPLE"
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": content},
			"done":    true,
		})
	}))
}

func testConfig(baseURL string) config.Config {
	cfg := config.Default()
	cfg.BaseURL = baseURL
	cfg.ScreenshotPath = ""
	return cfg
}

func TestSession(t *testing.T) {
	server := ollamaServer(t, "Hello from Ollama.")
	defer server.Close()

	out := &syncBuffer{}
	in := strings.NewReader("good morning\nLlama hello\nllama goodbye\n")

	a, err := New(testConfig(server.URL),
		WithConsole(in, out),
		WithLogger(log.Discard()),
		WithTools(tools.Config{ScreenshotPath: filepath.Join(t.TempDir(), "s.png")}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	a.assistant.Wait()
	a.Shutdown()

	got := out.String()
	for _, want := range []string{"Llama: Llama online.\n", "Llama: Hello from Ollama.\n", "Llama: Goodbye!\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Index(got, "Llama online.") > strings.Index(got, "Hello from Ollama.") {
		t.Error("announcement should come first")
	}

	history := a.History()
	if len(history) != 2 || history[0].Content != "hello" {
		t.Errorf("history = %+v", history)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = "carrier-pigeon"
	if _, err := New(cfg); err == nil {
		t.Error("New should reject an unknown provider")
	}
}

func TestRunBeforeInit(t *testing.T) {
	a, err := New(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Run(context.Background()); err == nil {
		t.Error("Run before Init should fail")
	}
}

func TestNewBackend(t *testing.T) {
	tests := []struct {
		provider string
		fallback string
		check    func(inference.Provider) bool
	}{
		{config.ProviderOllama, "", func(p inference.Provider) bool { _, ok := p.(*inference.Ollama); return ok }},
		{config.ProviderCompatible, "", func(p inference.Provider) bool { _, ok := p.(*inference.Client); return ok }},
		{config.ProviderOpenAI, "", func(p inference.Provider) bool { _, ok := p.(*inference.OpenAI); return ok }},
		{config.ProviderOllama, "http://backup:11434", func(p inference.Provider) bool {
			c, ok := p.(*inference.Chain)
			return ok && len(c.Providers()) == 2
		}},
	}

	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.fallback, func(t *testing.T) {
			cfg := config.Default()
			cfg.Provider = tt.provider
			cfg.FallbackURL = tt.fallback
			cfg.APIKey = "sk-test"

			p, err := newBackend(cfg, http.DefaultClient, log.Discard())
			if err != nil {
				t.Fatalf("newBackend: %v", err)
			}
			if !tt.check(p) {
				t.Errorf("unexpected provider type %T", p)
			}
		})
	}
}

func TestShutdownWithoutInit(t *testing.T) {
	a, err := New(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	a.Shutdown()
}

func TestNewTTSRemoteModes(t *testing.T) {
	tests := []struct {
		mode  string
		check func(tts.Provider) bool
	}{
		{config.SpeechOpenAI, func(p tts.Provider) bool { _, ok := p.(*tts.OpenAI); return ok }},
		{config.SpeechElevenLabs, func(p tts.Provider) bool { _, ok := p.(*tts.ElevenLabs); return ok }},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			cfg := config.Default()
			cfg.SpeechMode = tt.mode
			cfg.APIKey = "sk-test"
			cfg.ElevenLabsKey = "xi-test"
			cfg.TTSVoice = "voice-1"

			a, err := New(cfg, WithLogger(log.Discard()))
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			p, err := a.newTTS(http.DefaultClient)
			if err != nil {
				t.Fatalf("newTTS: %v", err)
			}
			defer p.Close()

			// With espeak installed the remote engine is first in a chain.
			if chain, ok := p.(*tts.Chain); ok {
				p = chain.Providers()[0]
			}
			if !tt.check(p) {
				t.Errorf("newTTS(%s) = %T", tt.mode, p)
			}
		})
	}
}
