package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
	"github.com/joseph-ayodele/syllabus-tracker/internal/llm"
)

var _ llm.Parser = (*Client)(nil)

// ParseSyllabus implements llm.Parser using the Messages API.
func (c *Client) ParseSyllabus(ctx context.Context, text string) (llm.ParsedSyllabus, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
		ctx = common.WithRequestID(ctx, rid)
	}
	start := time.Now()

	if strings.TrimSpace(text) == "" {
		c.logger.Warn("llm.parse.empty_text", "req_id", rid)
		return llm.ParsedSyllabus{}, common.NewParsingError("no syllabus text to parse", common.ErrInvalidRequest)
	}

	c.logger.Info("llm.parse.start",
		"req_id", rid,
		"provider", "anthropic",
		"model", c.cfg.Model,
		"text_len", len(text),
	)

	body := map[string]any{
		"model":      c.cfg.Model,
		"max_tokens": c.cfg.MaxTokens,
		"system":     llm.SystemPrompt,
		"messages": []map[string]any{
			{"role": "user", "content": llm.BuildUserPrompt(text, c.cfg.Now())},
		},
	}
	if c.cfg.Temperature > 0 {
		body["temperature"] = c.cfg.Temperature
	}
	headers := map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": c.cfg.Version,
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/messages"
	raw, err := llm.PostJSON(ctx, c.http, c.cfg.Timeout, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.parse.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ParsedSyllabus{}, err
	}

	var msg struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.Error("llm.parse.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return llm.ParsedSyllabus{}, common.NewParsingError("decode anthropic response",
			fmt.Errorf("%w: %v", common.ErrMalformedResponse, err))
	}
	var reply string
	for _, block := range msg.Content {
		if block.Type == "" || block.Type == "text" {
			reply = block.Text
			break
		}
	}
	if strings.TrimSpace(reply) == "" {
		c.logger.Error("llm.parse.no_content", "req_id", rid, "raw", string(raw))
		return llm.ParsedSyllabus{}, common.NewParsingError("no text content in anthropic response", common.ErrMalformedResponse)
	}

	out, err := llm.DecodeSyllabus(reply, c.logger)
	if err != nil {
		return llm.ParsedSyllabus{}, err
	}

	c.logger.Info("llm.parse.ok",
		"req_id", rid,
		"course", out.CourseName,
		"code", out.CourseCode,
		"assignments", len(out.Assignments),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
