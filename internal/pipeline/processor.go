package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/syllabus-tracker/internal/capture"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
	"github.com/joseph-ayodele/syllabus-tracker/internal/llm"
	"github.com/joseph-ayodele/syllabus-tracker/internal/ocr"
)

// TextExtractor turns an ordered page set into one document.
type TextExtractor interface {
	ExtractPages(ctx context.Context, pages []capture.RawPage) (ocr.Result, error)
}

// Processor runs text extraction then syllabus parsing for one page set.
type Processor struct {
	Logger *slog.Logger
	OCR    TextExtractor
	Parse  llm.Parser
}

func NewProcessor(logger *slog.Logger, ocr TextExtractor, parse llm.Parser) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, OCR: ocr, Parse: parse}
}

// Process returns the parsed syllabus and the extraction warnings.
func (p *Processor) Process(ctx context.Context, pages []capture.RawPage) (llm.ParsedSyllabus, []string, error) {
	start := time.Now()
	session := common.SessionFromContext(ctx)

	res, err := p.OCR.ExtractPages(ctx, pages)
	if err != nil {
		p.Logger.Error("processor.ocr.failed", "session", session, "pages", len(pages), "error", err)
		return llm.ParsedSyllabus{}, nil, err
	}
	p.Logger.Info("processor.ocr.ok",
		"session", session,
		"pages", len(res.Pages),
		"invalid", len(res.Invalid),
		"chars", len(res.Text),
		"confidence", res.Confidence,
	)

	syl, err := p.Parse.ParseSyllabus(ctx, res.Text)
	if err != nil {
		p.Logger.Error("processor.parse.failed", "session", session, "error", err)
		return llm.ParsedSyllabus{}, res.Warnings, err
	}
	p.Logger.Info("processor.parse.ok",
		"session", session,
		"course", syl.CourseName,
		"assignments", len(syl.Assignments),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return syl, res.Warnings, nil
}
