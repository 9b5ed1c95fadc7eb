package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// transport is the JSON-over-HTTP plumbing shared by the HTTP providers.
type transport struct {
	provider string
	baseURL  string
	apiKey   string
	config   *Config
	http     *http.Client
	logger   *slog.Logger
}

func newTransport(provider string, cfg *Config) *transport {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &transport{
		provider: provider,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		config:   cfg,
		http:     cfg.httpClient(),
		logger:   logger.With("component", "inference."+provider),
	}
}

// postJSON posts payload and returns the body of a 200 response.
func (t *transport) postJSON(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(t.provider, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(t.provider, fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.doWithRetry(ctx, req, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, t.parseError(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(t.provider, fmt.Errorf("read response: %w", err))
	}
	return raw, nil
}

// get makes a GET request and checks for a 200.
func (t *transport) get(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, nil)
	if err != nil {
		return WrapError(t.provider, fmt.Errorf("create request: %w", err))
	}

	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return WrapError(t.provider, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return t.parseError(resp)
	}
	return nil
}

// doWithRetry performs the request with retry logic.
func (t *transport) doWithRetry(ctx context.Context, req *http.Request, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= t.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(t.config.RetryDelay * time.Duration(attempt)):
			}
			// Reset body for retry
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		resp, err := t.http.Do(req)
		if err != nil {
			lastErr = WrapError(t.provider, err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			t.logger.Warn("request failed, retrying",
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		// Check if retryable
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = t.parseError(resp)
			resp.Body.Close()
			t.logger.Warn("retrying request",
				"attempt", attempt+1,
				"status", resp.StatusCode,
			)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// parseError reads and parses an error response.
// Handles both OpenAI ({"error": {"message": ...}}) and Ollama ({"error": "..."}) shapes.
func (t *transport) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error json.RawMessage `json:"error"`
	}

	message := strings.TrimSpace(string(body))
	code := ""
	if json.Unmarshal(body, &errResp) == nil && len(errResp.Error) > 0 {
		var detailed struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		}
		var plain string
		switch {
		case json.Unmarshal(errResp.Error, &detailed) == nil && detailed.Message != "":
			message, code = detailed.Message, detailed.Code
		case json.Unmarshal(errResp.Error, &plain) == nil && plain != "":
			message = plain
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Code:       code,
		Provider:   t.provider,
	}
}

func (t *transport) close() {
	t.http.CloseIdleConnections()
}

// pickModel returns the first non-empty model name.
func pickModel(models ...string) string {
	for _, m := range models {
		if m != "" {
			return m
		}
	}
	return ""
}
