package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/SoulPlaya/Llama-AIAgent/internal/config"
)

// parseFlags builds the configuration. Precedence, lowest first: defaults,
// the env file, the environment, flags.
func parseFlags(args []string) (config.Config, error) {
	envFile, envSet := envFileFlag(args)
	if err := godotenv.Load(envFile); err != nil {
		// A missing default .env is normal; a missing explicit one is not.
		if envSet || !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := config.Default()
	if err := cfg.LoadEnv(); err != nil {
		return config.Config{}, err
	}

	flags := newFlagSet(&cfg)
	if err := flags.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// envFileFlag finds --env before the full parse so the env file can supply
// flag defaults.
func envFileFlag(args []string) (string, bool) {
	pre := pflag.NewFlagSet("llama", pflag.ContinueOnError)
	pre.ParseErrorsWhitelist.UnknownFlags = true
	pre.SetOutput(io.Discard)
	pre.Usage = func() {}

	path := pre.StringP("env", "e", ".env", "")
	_ = pre.Parse(args)
	return *path, pre.Changed("env")
}

func newFlagSet(cfg *config.Config) *pflag.FlagSet {
	f := pflag.NewFlagSet("llama", pflag.ContinueOnError)
	f.SetOutput(os.Stderr)

	f.StringP("env", "e", ".env", "Env file path")

	f.StringVar(&cfg.Provider, "provider", cfg.Provider, "Completion backend: ollama, openai, compatible")
	f.StringVarP(&cfg.BaseURL, "url", "u", cfg.BaseURL, "Backend base URL")
	f.StringVar(&cfg.FallbackURL, "fallback-url", cfg.FallbackURL, "Second backend tried when the first fails")
	f.StringVarP(&cfg.SocksProxy, "proxy", "p", cfg.SocksProxy, "SOCKS5 proxy address")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Backend request timeout")

	f.StringVar(&cfg.FastModel, "fast-model", cfg.FastModel, "Model for classification and simple queries")
	f.StringVar(&cfg.SmartModel, "smart-model", cfg.SmartModel, "Model for complex queries")
	f.StringVar(&cfg.VisionModel, "vision-model", cfg.VisionModel, "Model for screenshot descriptions")
	f.Float64Var(&cfg.ClassifyTemperature, "classify-temperature", cfg.ClassifyTemperature, "Temperature for routing calls")

	f.StringVarP(&cfg.WakeWord, "wake-word", "w", cfg.WakeWord, "Wake word")
	f.StringSliceVar(&cfg.ShutdownWords, "shutdown-words", cfg.ShutdownWords, "Words that end the session")
	f.IntVar(&cfg.MaxHistory, "max-history", cfg.MaxHistory, "Messages of history sent per request")
	f.IntVar(&cfg.MaxConcurrent, "max-concurrent", cfg.MaxConcurrent, "Commands processed at once (0 = unbounded)")

	f.StringVarP(&cfg.InputMode, "input", "i", cfg.InputMode, "Input: console, mic")
	f.StringVar(&cfg.WhisperModel, "whisper-model", cfg.WhisperModel, "whisper.cpp model file for mic input")
	f.DurationVar(&cfg.ListenTimeout, "listen-timeout", cfg.ListenTimeout, "How long to wait for speech to start")
	f.DurationVar(&cfg.PhraseLimit, "phrase-limit", cfg.PhraseLimit, "Longest utterance recorded")

	f.StringVarP(&cfg.SpeechMode, "speech", "s", cfg.SpeechMode, "Speech output: console, espeak, openai, elevenlabs")
	f.StringVar(&cfg.TTSVoice, "tts-voice", cfg.TTSVoice, "Voice name, or ElevenLabs voice ID")
	f.StringVar(&cfg.TTSModel, "tts-model", cfg.TTSModel, "Model for OpenAI speech output")
	f.IntVar(&cfg.TTSRate, "tts-rate", cfg.TTSRate, "Words per minute for espeak")
	f.StringVar(&cfg.ElevenLabsKey, "elevenlabs-key", cfg.ElevenLabsKey, "ElevenLabs API key")
	f.DurationVar(&cfg.ShutdownGrace, "shutdown-grace", cfg.ShutdownGrace, "Time allowed to finish speaking on exit")

	f.StringVar(&cfg.ScreenshotPath, "screenshot", cfg.ScreenshotPath, "Where take_screenshot writes its image")
	f.StringVarP(&cfg.LogLevel, "log", "l", cfg.LogLevel, "Log level: debug, info, warn, error")

	return f
}
