package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/syllabus-tracker/internal/capture"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
)

// InvalidPagePolicy decides what happens when one page of a batch cannot be read.
type InvalidPagePolicy string

const (
	// SkipInvalid warns, records the page in Result.Invalid and continues.
	SkipInvalid InvalidPagePolicy = "skip"
	// AbortInvalid fails the whole batch on the first unreadable page.
	AbortInvalid InvalidPagePolicy = "abort"
)

// ParsePolicy maps a config value to a policy; anything unknown is skip.
func ParsePolicy(s string) InvalidPagePolicy {
	if InvalidPagePolicy(strings.ToLower(strings.TrimSpace(s))) == AbortInvalid {
		return AbortInvalid
	}
	return SkipInvalid
}

type PageError struct {
	Index int
	Path  string
	Err   error
}

func (e PageError) Error() string {
	return fmt.Sprintf("page %d (%s): %v", e.Index+1, filepath.Base(e.Path), e.Err)
}

func (e PageError) Unwrap() error { return e.Err }

// PageText is the normalized text recognized on one input page.
type PageText struct {
	Index      int
	Text       string
	Method     string
	Confidence float32
}

type Result struct {
	Text       string
	Pages      []PageText
	Invalid    []PageError
	Warnings   []string
	Confidence float32
	Duration   time.Duration
}

// FileExtractor is the single-file recognizer; *Extractor implements it.
type FileExtractor interface {
	ExtractFile(ctx context.Context, path string) (ExtractionResult, error)
}

// PageExtractor turns an ordered batch of pages into one text.
type PageExtractor struct {
	files  FileExtractor
	policy InvalidPagePolicy
	logger *slog.Logger
}

func NewPageExtractor(files FileExtractor, policy InvalidPagePolicy, logger *slog.Logger) *PageExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == "" {
		policy = SkipInvalid
	}
	return &PageExtractor{files: files, policy: policy, logger: logger}
}

// ExtractPages recognizes pages one at a time in input order. Pages that
// produce text are joined with a blank line. An empty overall result is an
// extraction error wrapping ErrNoTextFound.
func (x *PageExtractor) ExtractPages(ctx context.Context, pages []capture.RawPage) (Result, error) {
	start := time.Now()
	if len(pages) == 0 {
		return Result{}, common.NewExtractionError("no pages", capture.ErrNoPages)
	}

	var res Result
	var parts []string
	var confSum float32
	for i, p := range pages {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if p.Err != nil {
			if err := x.invalid(&res, i, p.Path, p.Err); err != nil {
				return Result{}, err
			}
			continue
		}

		fr, err := x.files.ExtractFile(ctx, p.Path)
		res.Warnings = append(res.Warnings, nonEmpty(fr.Warnings)...)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			if errors.Is(err, exec.ErrNotFound) {
				x.logger.Error("ocr.tool.missing", "error", err)
				return Result{}, common.NewExtractionError("ocr tool unavailable", err)
			}
			if err := x.invalid(&res, i, p.Path, pageFailure(p.Path, err)); err != nil {
				return Result{}, err
			}
			continue
		}

		text := strings.TrimSpace(fr.Text)
		res.Pages = append(res.Pages, PageText{Index: i, Text: text, Method: fr.Method, Confidence: fr.Confidence})
		if text == "" {
			x.logger.Debug("ocr.page.empty", "index", i, "path", p.Path)
			continue
		}
		parts = append(parts, text)
		confSum += fr.Confidence
	}

	res.Text = strings.Join(parts, "\n\n")
	res.Duration = time.Since(start)
	if res.Text == "" {
		errs := []error{common.ErrNoTextFound}
		for _, pe := range res.Invalid {
			errs = append(errs, pe)
		}
		x.logger.Warn("ocr.extract.empty", "pages", len(pages), "invalid", len(res.Invalid))
		return res, common.NewExtractionError("no text found in scanned pages", errors.Join(errs...))
	}
	res.Confidence = confSum / float32(len(parts))

	x.logger.Info("ocr.extract.ok",
		"pages", len(pages),
		"with_text", len(parts),
		"invalid", len(res.Invalid),
		"chars", len(res.Text),
		"confidence", res.Confidence,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	if res.Confidence < LowConfidenceThreshold {
		res.Warnings = append(res.Warnings, "low recognition confidence; consider rescanning")
	}
	return res, nil
}

func (x *PageExtractor) invalid(res *Result, index int, path string, err error) error {
	pe := PageError{Index: index, Path: path, Err: err}
	if x.policy == AbortInvalid {
		x.logger.Error("ocr.page.invalid", "index", index, "path", path, "policy", x.policy, "error", err)
		return pe
	}
	x.logger.Warn("ocr.page.invalid", "index", index, "path", path, "policy", x.policy, "error", err)
	res.Invalid = append(res.Invalid, pe)
	res.Warnings = append(res.Warnings, pe.Error())
	return nil
}

// pageFailure keeps existing capture errors and reports anything else as an
// unreadable image.
func pageFailure(path string, err error) error {
	if common.HasCode(err, common.CodeCapture) {
		return err
	}
	return common.NewCaptureError(filepath.Base(path), fmt.Errorf("%w: %v", common.ErrInvalidImage, err))
}

func nonEmpty(ss []string) []string {
	out := ss[:0:0]
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
