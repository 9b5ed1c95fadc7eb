package app

import (
	"fmt"
	"net/http"

	"github.com/SoulPlaya/Llama-AIAgent/internal/config"
	"github.com/SoulPlaya/Llama-AIAgent/pkg/speech"
	"github.com/SoulPlaya/Llama-AIAgent/pkg/tts"
)

// newOutput always prints what is said; the other speech modes also
// vocalise it.
func (a *App) newOutput(hc *http.Client) (*speech.Queue, error) {
	cfg := a.config
	var speaker speech.Speaker = speech.NewConsoleSpeaker(a.out, cfg.AssistantName())

	if cfg.SpeechMode != config.SpeechConsole {
		provider, err := a.newTTS(hc)
		if err != nil {
			return nil, err
		}
		voice := speech.NewVoice(provider, tts.NewPlayerWithLogger(a.logger), a.logger)
		a.closers = append(a.closers, voice)
		speaker = speech.Multi(speaker, voice)
	}

	return speech.NewQueue(speaker, a.logger), nil
}

func (a *App) newTTS(hc *http.Client) (tts.Provider, error) {
	cfg := a.config
	opts := []tts.Option{tts.WithLogger(a.logger)}
	if cfg.TTSVoice != "" {
		opts = append(opts, tts.WithVoice(cfg.TTSVoice))
	}
	if cfg.TTSModel != "" {
		opts = append(opts, tts.WithModel(cfg.TTSModel))
	}

	var remote tts.Provider
	var err error
	switch cfg.SpeechMode {
	case config.SpeechEspeak:
		return tts.NewEspeak(append(opts, tts.WithRate(cfg.TTSRate))...)
	case config.SpeechOpenAI:
		remote, err = tts.NewOpenAI(append(opts,
			tts.WithAPIKey(cfg.APIKey),
			tts.WithHTTPClient(hc),
		)...)
	case config.SpeechElevenLabs:
		remote, err = tts.NewElevenLabs(append(opts,
			tts.WithAPIKey(cfg.ElevenLabsKey),
			tts.WithTimeout(cfg.Timeout),
		)...)
	default:
		return nil, fmt.Errorf("unknown speech mode %q", cfg.SpeechMode)
	}
	if err != nil {
		return nil, err
	}

	// Fall back to the local engine when it is installed.
	if espeak, err := tts.NewEspeak(tts.WithRate(cfg.TTSRate), tts.WithLogger(a.logger)); err == nil {
		return tts.NewChainWithLogger(a.logger, remote, espeak)
	}
	return remote, nil
}

func (a *App) newListener() (speech.Listener, error) {
	cfg := a.config
	switch cfg.InputMode {
	case config.InputMic:
		mic, err := speech.NewMicListener(speech.MicConfig{
			ModelPath:     cfg.WhisperModel,
			ListenTimeout: cfg.ListenTimeout,
			PhraseLimit:   cfg.PhraseLimit,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, mic)
		return mic, nil
	default:
		return speech.NewConsoleListener(a.in, a.out), nil
	}
}
