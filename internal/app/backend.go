package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SoulPlaya/Llama-AIAgent/internal/config"
	"github.com/SoulPlaya/Llama-AIAgent/pkg/inference"
)

// newBackend builds the completion backend. With a fallback URL the primary
// and a second provider of the same kind are tried in order.
func newBackend(cfg config.Config, hc *http.Client, logger *slog.Logger) (inference.Provider, error) {
	primary, err := newProvider(cfg, cfg.BaseURL, hc, logger)
	if err != nil {
		return nil, err
	}
	if cfg.FallbackURL == "" {
		return primary, nil
	}

	fallback, err := newProvider(cfg, cfg.FallbackURL, hc, logger)
	if err != nil {
		return nil, fmt.Errorf("fallback: %w", err)
	}
	return inference.NewChainWithLogger(logger, primary, fallback)
}

func newProvider(cfg config.Config, baseURL string, hc *http.Client, logger *slog.Logger) (inference.Provider, error) {
	opts := []inference.Option{
		inference.WithBaseURL(baseURL),
		inference.WithAPIKey(cfg.APIKey),
		inference.WithModel(cfg.FastModel),
		inference.WithVisionModel(cfg.VisionModel),
		inference.WithTimeout(cfg.Timeout),
		inference.WithHTTPClient(hc),
		inference.WithLogger(logger),
	}

	switch cfg.Provider {
	case config.ProviderOllama:
		return inference.NewOllama(opts...)
	case config.ProviderOpenAI:
		return inference.NewOpenAI(opts...)
	case config.ProviderCompatible:
		return inference.NewClient(opts...)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
