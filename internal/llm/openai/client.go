package openai

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

// ParseSyllabus implements llm.Parser using text-only chat/completions in
// JSON mode. The schema is sent alongside the instructions and enforced locally.
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
		"provider", "openai",
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(text),
	)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"max_tokens":      c.cfg.MaxTokens,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.SystemPrompt},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(llm.BuildSyllabusJSONSchema())},
			{"role": "user", "content": llm.BuildUserPrompt(text, c.cfg.Now())},
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := llm.PostJSON(ctx, c.http, c.cfg.Timeout, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.parse.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ParsedSyllabus{}, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.parse.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ParsedSyllabus{}, common.NewParsingError("decode openai response",
			fmt.Errorf("%w: %v", common.ErrMalformedResponse, err))
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.parse.no_choices",
			"req_id", rid, "raw", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ParsedSyllabus{}, common.NewParsingError("no choices in openai response", common.ErrMalformedResponse)
	}

	out, err := llm.DecodeSyllabus(cc.Choices[0].Message.Content, c.logger)
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

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
