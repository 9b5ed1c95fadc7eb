// Package config holds the assistant configuration.
// Flag parsing is done in cmd/llama; this package is data, defaults and env.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Completion backends.
const (
	ProviderOllama     = "ollama"     // Ollama native /api/chat
	ProviderOpenAI     = "openai"     // OpenAI SDK
	ProviderCompatible = "compatible" // any OpenAI-compatible /chat/completions endpoint
)

// Speech output modes.
const (
	SpeechConsole    = "console"
	SpeechEspeak     = "espeak"
	SpeechOpenAI     = "openai"
	SpeechElevenLabs = "elevenlabs"
)

// Input modes.
const (
	InputConsole = "console"
	InputMic     = "mic"
)

// Default configuration values. Model names follow the local Ollama setup
// the assistant was built around.
const (
	DefaultFastModel   = "llama3.1:8b-instruct-q4_K_M"
	DefaultSmartModel  = "qwen2.5:32b-instruct-q4_K_M"
	DefaultVisionModel = "llama3.2-vision:11b"
	DefaultWakeWord    = "llama"
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOpenAIURL   = "https://api.openai.com/v1"
	DefaultMaxHistory  = 10
)

// DefaultShutdownWords end the session when heard after the wake word.
var DefaultShutdownWords = []string{"exit", "quit", "goodbye", "shutdown", "shut down"}

// Config holds all configuration for the assistant.
type Config struct {
	// Completion backend.
	Provider    string
	BaseURL     string
	APIKey      string
	FallbackURL string // optional second backend tried when the first fails
	SocksProxy  string
	Timeout     time.Duration

	// Models.
	FastModel   string
	SmartModel  string
	VisionModel string

	// ClassifyTemperature is used for classification, tool selection and
	// argument resolution.
	ClassifyTemperature float64

	// Conversation.
	WakeWord      string
	ShutdownWords []string
	MaxHistory    int

	// Concurrency. Zero means unbounded.
	MaxConcurrent int

	// Input.
	InputMode     string
	WhisperModel  string
	ListenTimeout time.Duration
	PhraseLimit   time.Duration

	// Output.
	SpeechMode    string
	TTSVoice      string // OpenAI voice name or ElevenLabs voice ID
	TTSModel      string
	TTSRate       int
	ElevenLabsKey string
	ShutdownGrace time.Duration

	// Tools.
	ScreenshotPath string

	// Logging.
	LogLevel string
}

// Default returns sensible defaults for a local Ollama setup.
func Default() Config {
	return Config{
		Provider:            ProviderOllama,
		BaseURL:             DefaultOllamaURL,
		Timeout:             120 * time.Second,
		FastModel:           DefaultFastModel,
		SmartModel:          DefaultSmartModel,
		VisionModel:         DefaultVisionModel,
		ClassifyTemperature: 0.1,
		WakeWord:            DefaultWakeWord,
		ShutdownWords:       append([]string(nil), DefaultShutdownWords...),
		MaxHistory:          DefaultMaxHistory,
		InputMode:           InputConsole,
		WhisperModel:        "models/ggml-base.en.bin",
		ListenTimeout:       10 * time.Second,
		PhraseLimit:         10 * time.Second,
		SpeechMode:          SpeechConsole,
		TTSRate:             180,
		ShutdownGrace:       5 * time.Second,
		ScreenshotPath:      "screenshot.png",
		LogLevel:            "info",
	}
}

// LoadEnv applies environment overrides. Call it before flag parsing so
// flags win over the environment.
func (c *Config) LoadEnv() error {
	str := map[string]*string{
		"LLAMA_PROVIDER":      &c.Provider,
		"LLAMA_BASE_URL":      &c.BaseURL,
		"LLAMA_FALLBACK_URL":  &c.FallbackURL,
		"LLAMA_SOCKS_PROXY":   &c.SocksProxy,
		"LLAMA_FAST_MODEL":    &c.FastModel,
		"LLAMA_SMART_MODEL":   &c.SmartModel,
		"LLAMA_VISION_MODEL":  &c.VisionModel,
		"LLAMA_WAKE_WORD":     &c.WakeWord,
		"LLAMA_INPUT":         &c.InputMode,
		"LLAMA_WHISPER_MODEL": &c.WhisperModel,
		"LLAMA_SPEECH":        &c.SpeechMode,
		"LLAMA_TTS_VOICE":     &c.TTSVoice,
		"LLAMA_TTS_MODEL":     &c.TTSModel,
		"LLAMA_SCREENSHOT":    &c.ScreenshotPath,
		"LLAMA_LOG_LEVEL":     &c.LogLevel,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	// OPENAI_API_KEY is the conventional name; LLAMA_API_KEY wins if both are set.
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("LLAMA_API_KEY"); v != "" {
		c.APIKey = v
	}

	if v := os.Getenv("ELEVENLABS_API_KEY"); v != "" {
		c.ElevenLabsKey = v
	}
	if v := os.Getenv("ELEVENLABS_VOICE_ID"); v != "" && c.TTSVoice == "" {
		c.TTSVoice = v
	}

	if v := os.Getenv("LLAMA_SHUTDOWN_WORDS"); v != "" {
		c.ShutdownWords = splitList(v)
	}

	ints := map[string]*int{
		"LLAMA_MAX_HISTORY":    &c.MaxHistory,
		"LLAMA_MAX_CONCURRENT": &c.MaxConcurrent,
		"LLAMA_TTS_RATE":       &c.TTSRate,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", key, err)
			}
			*dst = n
		}
	}

	durs := map[string]*time.Duration{
		"LLAMA_TIMEOUT":        &c.Timeout,
		"LLAMA_LISTEN_TIMEOUT": &c.ListenTimeout,
		"LLAMA_PHRASE_LIMIT":   &c.PhraseLimit,
		"LLAMA_SHUTDOWN_GRACE": &c.ShutdownGrace,
	}
	for key, dst := range durs {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", key, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv("LLAMA_CLASSIFY_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: LLAMA_CLASSIFY_TEMPERATURE: %w", err)
		}
		c.ClassifyTemperature = f
	}

	return nil
}

// Normalize lowercases matching keys and fills in provider-specific defaults.
func (c *Config) Normalize() {
	c.WakeWord = strings.ToLower(strings.TrimSpace(c.WakeWord))
	for i, w := range c.ShutdownWords {
		c.ShutdownWords[i] = strings.ToLower(strings.TrimSpace(w))
	}
	if c.Provider != ProviderOllama && c.BaseURL == DefaultOllamaURL {
		c.BaseURL = DefaultOpenAIURL
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOllama, ProviderCompatible:
	case ProviderOpenAI:
		if c.APIKey == "" {
			return errors.New("config: OpenAI provider requires an API key")
		}
	default:
		return fmt.Errorf("config: unknown provider %q", c.Provider)
	}

	if c.WakeWord == "" {
		return errors.New("config: wake word required")
	}
	if c.FastModel == "" || c.SmartModel == "" || c.VisionModel == "" {
		return errors.New("config: fast, smart and vision models are required")
	}
	if c.MaxHistory <= 0 {
		return errors.New("config: max history must be positive")
	}
	if c.MaxConcurrent < 0 {
		return errors.New("config: max concurrent must not be negative")
	}
	// Zero would mean "provider default" downstream, not greedy decoding.
	if c.ClassifyTemperature <= 0 || c.ClassifyTemperature > 2 {
		return errors.New("config: classify temperature must be above 0 and at most 2")
	}

	switch c.InputMode {
	case InputConsole, InputMic:
	default:
		return fmt.Errorf("config: unknown input mode %q", c.InputMode)
	}

	switch c.SpeechMode {
	case SpeechConsole, SpeechEspeak:
	case SpeechOpenAI:
		if c.APIKey == "" {
			return errors.New("config: OpenAI speech requires an API key")
		}
	case SpeechElevenLabs:
		if c.ElevenLabsKey == "" || c.TTSVoice == "" {
			return errors.New("config: ElevenLabs speech requires an API key and a voice ID")
		}
	default:
		return fmt.Errorf("config: unknown speech mode %q", c.SpeechMode)
	}

	return nil
}

// AssistantName is the wake word with its first letter capitalised.
func (c *Config) AssistantName() string {
	if c.WakeWord == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(c.WakeWord)
	return string(unicode.ToUpper(r)) + c.WakeWord[size:]
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
