// Package provider picks the parsing backend named in configuration.
package provider

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
	"github.com/joseph-ayodele/syllabus-tracker/internal/llm"
	"github.com/joseph-ayodele/syllabus-tracker/internal/llm/anthropic"
	"github.com/joseph-ayodele/syllabus-tracker/internal/llm/openai"
)

func New(cfg common.LLMConfig, logger *slog.Logger) (llm.Parser, error) {
	switch cfg.Provider {
	case "", "anthropic":
		return anthropic.NewClient(anthropic.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	}
	return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown LLM provider %q", cfg.Provider), common.ErrInvalidInput)
}
