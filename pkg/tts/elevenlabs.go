package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	elevenLabsWSBaseURL = "wss://api.elevenlabs.io/v1/text-to-speech"
	providerElevenLabs  = "elevenlabs"

	// elevenLabsSampleRate matches the pcm_24000 output format requested below.
	elevenLabsSampleRate = 24000
)

// ElevenLabs model IDs
const (
	ModelTurboV2_5 = "eleven_turbo_v2_5" // fastest English model
	ModelFlashV2_5 = "eleven_flash_v2_5" // fastest multilingual model
)

// ElevenLabs synthesizes over the stream-input WebSocket. Each Synthesize
// call opens its own connection, sends the whole text, and collects the
// PCM chunks until the server marks the stream final.
type ElevenLabs struct {
	config  *Config
	dialer  *websocket.Dialer
	logger  *slog.Logger
	baseURL string
}

// NewElevenLabs creates a WebSocket ElevenLabs provider. An API key and a
// voice ID are required.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg := DefaultConfig()
	cfg.ModelID = ModelTurboV2_5
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.VoiceID == "" {
		return nil, ErrNoVoiceID
	}
	if cfg.ModelID == "" {
		cfg.ModelID = ModelTurboV2_5
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = elevenLabsWSBaseURL
	}

	return &ElevenLabs{
		config: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		logger:  cfg.Logger.With("component", "tts.elevenlabs"),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// elevenLabsMessage is one server frame.
type elevenLabsMessage struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Synthesize converts text to 24kHz mono PCM.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(providerElevenLabs, ErrEmptyText)
	}

	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	conn, err := e.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	// A blocked read only notices cancellation when the socket closes.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	frames := []map[string]interface{}{
		{
			"text": " ",
			"voice_settings": map[string]interface{}{
				"stability":        0.5,
				"similarity_boost": 0.75,
			},
		},
		{"text": text + " ", "try_trigger_generation": true},
		{"text": ""},
	}
	for _, f := range frames {
		if err := conn.WriteJSON(f); err != nil {
			return nil, e.connErr(ctx, fmt.Errorf("send text: %w", err))
		}
	}

	var audio []byte
	for {
		var msg elevenLabsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			return nil, e.connErr(ctx, fmt.Errorf("read audio: %w", err))
		}
		if msg.Error != "" {
			return nil, &APIError{
				StatusCode: http.StatusBadRequest,
				Message:    msg.Message,
				Code:       msg.Error,
				Provider:   providerElevenLabs,
			}
		}
		if msg.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(msg.Audio)
			if err != nil {
				return nil, WrapError(providerElevenLabs, fmt.Errorf("decode audio: %w", err))
			}
			audio = append(audio, chunk...)
		}
		if msg.IsFinal {
			break
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	if len(audio) == 0 {
		return nil, WrapError(providerElevenLabs, ErrNoAudio)
	}

	latency := time.Since(start).Milliseconds()
	e.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", latency,
		"voice", e.config.VoiceID,
	)

	return &AudioResult{
		Audio:     audio,
		Format:    AudioFormat{Encoding: EncodingPCM, SampleRate: elevenLabsSampleRate, Channels: 1},
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

// dial opens the stream-input socket. A rejected handshake becomes an
// APIError carrying the HTTP status.
func (e *ElevenLabs) dial(ctx context.Context) (*websocket.Conn, error) {
	u := fmt.Sprintf("%s/%s/stream-input?model_id=%s&output_format=pcm_%d",
		e.baseURL, url.PathEscape(e.config.VoiceID), url.QueryEscape(e.config.ModelID), elevenLabsSampleRate)

	header := http.Header{}
	header.Set("xi-api-key", e.config.APIKey)

	conn, resp, err := e.dialer.DialContext(ctx, u, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Message:    err.Error(),
				Provider:   providerElevenLabs,
			}
		}
		return nil, e.connErr(ctx, fmt.Errorf("dial: %w", err))
	}
	return conn, nil
}

// connErr prefers the context error, since closing the socket on
// cancellation surfaces as an unrelated network error.
func (e *ElevenLabs) connErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return WrapError(providerElevenLabs, errors.Join(ctxErr, err))
	}
	return WrapError(providerElevenLabs, err)
}

// Health opens and closes a connection to check the key and voice.
func (e *ElevenLabs) Health(ctx context.Context) error {
	conn, err := e.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Close is a no-op; connections live for one Synthesize call.
func (e *ElevenLabs) Close() error {
	return nil
}

// VoiceID returns the configured voice ID.
func (e *ElevenLabs) VoiceID() string {
	return e.config.VoiceID
}

// Verify ElevenLabs implements Provider at compile time.
var _ Provider = (*ElevenLabs)(nil)
