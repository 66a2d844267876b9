package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
)

// DefaultTimeout bounds one parse round trip.
const DefaultTimeout = 30 * time.Second

// SendJSON sends a JSON request to a full URL with optional headers and returns the raw response body.
// It does not assume any provider. Callers decide the URL and headers.
// A non-2xx answer is returned as *common.APIError carrying the server's
// error.message when present, else "HTTP <code>".
func SendJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string, logger *slog.Logger) ([]byte, int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{}
	}

	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		logger.Error("llm.http.encode_error", "req_id", reqID, "error", err)
		return nil, 0, fmt.Errorf("%w: encode json: %v", common.ErrInvalidRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		logger.Error("llm.http.build_request_error", "req_id", reqID, "error", err)
		return nil, 0, fmt.Errorf("%w: build request: %v", common.ErrInvalidRequest, err)
	}

	// Default headers; allow caller overrides.
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	logger.Info("llm.http.request",
		"req_id", reqID,
		"url", url,
		"content_length", len(bs),
	)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("llm.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, 0, err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			logger.Warn("llm.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("llm.http.read_error", "req_id", reqID, "error", err)
		return nil, resp.StatusCode, err
	}

	logger.Info("llm.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, resp.StatusCode, apiErrorFromBody(resp.StatusCode, raw)
	}
	return raw, resp.StatusCode, nil
}

// PostJSON is SendJSON under an explicit timeout, with errors sorted into
// the parsing taxonomy. Caller cancellation comes back as the context error.
func PostJSON(ctx context.Context, client *http.Client, timeout time.Duration, url string, body any, headers map[string]string, logger *slog.Logger) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, _, err := SendJSON(callCtx, client, url, body, headers, logger)
	if err == nil {
		return raw, nil
	}
	var apiErr *common.APIError
	switch {
	case errors.As(err, &apiErr):
		return nil, common.NewParsingError("parsing service rejected the request", apiErr)
	case errors.Is(err, common.ErrInvalidRequest):
		return nil, common.NewParsingError("could not build request", err)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case isTimeout(err):
		return nil, common.NewParsingError("parsing service did not answer", &common.APIError{Message: "request timed out"})
	}
	return nil, common.NewParsingError("parsing service unreachable", err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func apiErrorFromBody(status int, raw []byte) *common.APIError {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		return &common.APIError{Status: status, Message: body.Error.Message}
	}
	return &common.APIError{Status: status, Message: fmt.Sprintf("HTTP %d", status)}
}
