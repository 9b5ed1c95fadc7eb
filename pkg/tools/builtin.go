package tools

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/url"
	"os"

	"github.com/kbinani/screenshot"
	"github.com/pkg/browser"
)

// Names of the built-in tools.
const (
	SearchWebName      = "search_web"
	TakeScreenshotName = "take_screenshot"
)

// ErrNoDisplay is returned when there is no active display to capture.
var ErrNoDisplay = errors.New("tools: no active display")

// Config holds dependencies for the built-in tools.
type Config struct {
	// ScreenshotPath is where take_screenshot writes its PNG.
	ScreenshotPath string

	// OpenURL opens a URL in the user's browser. Defaults to browser.OpenURL.
	OpenURL func(url string) error

	// Capture grabs the primary display. Defaults to CapturePrimaryDisplay.
	Capture func() (image.Image, error)
}

func (c Config) withDefaults() Config {
	if c.ScreenshotPath == "" {
		c.ScreenshotPath = "screenshot.png"
	}
	if c.OpenURL == nil {
		c.OpenURL = browser.OpenURL
	}
	if c.Capture == nil {
		c.Capture = CapturePrimaryDisplay
	}
	return c
}

// Builtins returns the two tools the assistant ships with.
func Builtins(cfg Config) []Spec {
	cfg = cfg.withDefaults()
	return []Spec{
		{
			Name:        SearchWebName,
			Description: "Open a web search for a query in the default browser.",
			Args:        map[string]bool{"query": true},
			Func: func(ctx context.Context, args map[string]any) (any, error) {
				query := fmt.Sprint(args["query"])
				return nil, cfg.OpenURL(SearchURL(query))
			},
		},
		{
			Name:        TakeScreenshotName,
			Description: "Capture the screen so it can be described.",
			Args:        map[string]bool{},
			Describe:    true,
			Func: func(ctx context.Context, args map[string]any) (any, error) {
				img, err := cfg.Capture()
				if err != nil {
					return nil, err
				}
				if err := writePNG(cfg.ScreenshotPath, img); err != nil {
					return nil, err
				}
				return cfg.ScreenshotPath, nil
			},
		},
	}
}

// Default returns the registry of built-in tools.
func Default(cfg Config) *Registry {
	r, err := NewRegistry(Builtins(cfg)...)
	if err != nil {
		// Builtins have fixed, distinct names.
		panic(err)
	}
	return r
}

// SearchURL builds the DuckDuckGo search URL for query.
func SearchURL(query string) string {
	return "https://duckduckgo.com/?q=" + url.QueryEscape(query)
}

// CapturePrimaryDisplay captures display 0.
func CapturePrimaryDisplay() (image.Image, error) {
	if screenshot.NumActiveDisplays() < 1 {
		return nil, ErrNoDisplay
	}
	img, err := screenshot.CaptureDisplay(0)
	if err != nil {
		return nil, fmt.Errorf("tools: capture display: %w", err)
	}
	return img, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tools: create screenshot: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("tools: encode screenshot: %w", err)
	}
	return f.Close()
}
