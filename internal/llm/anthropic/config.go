package anthropic

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joseph-ayodele/syllabus-tracker/internal/llm"
)

// Config for the Anthropic Messages client.
type Config struct {
	APIKey      string        // if empty, falls back to env ANTHROPIC_API_KEY
	BaseURL     string        // default https://api.anthropic.com/v1
	Model       string        // default claude-haiku-4-5-20251001
	Version     string        // anthropic-version header, default 2023-06-01
	MaxTokens   int           // default 4096
	Temperature float32       // sent only when > 0
	Timeout     time.Duration // per request, default 30s

	// Now supplies "today" for the prompt; defaults to time.Now.
	Now func() time.Time
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-haiku-4-5-20251001"
	}
	if cfg.Version == "" {
		cfg.Version = "2023-06-01"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = llm.DefaultTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: logger,
	}
}
