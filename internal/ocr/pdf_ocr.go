package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rsc.io/pdf"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
)

func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	var warns []string
	text, pages, err := pdfTextLayer(path, e.cfg.MaxPages)
	if err != nil {
		warns = append(warns, err.Error())
	}
	text = Normalize(text)
	if len(text) >= e.cfg.MinPDFTextChars {
		e.logger.Debug("pdf text layer used", "path", path, "pages", pages, "chars", len(text))
		return ExtractionResult{
			Text:       text,
			Pages:      pages,
			SourceType: constants.PDF,
			Method:     "pdf-text",
			Language:   e.cfg.TesseractLang,
			Warnings:   warns,
			Confidence: 0.95,
		}, nil
	}

	e.logger.Debug("pdf text layer too short, rasterizing", "path", path, "chars", len(text))
	text, pages, w, err := e.pdfToOCR(ctx, path)
	warns = append(warns, w...)
	if err != nil {
		return ExtractionResult{SourceType: constants.PDF, Warnings: warns}, err
	}
	text = Normalize(text)
	return ExtractionResult{
		Text:       text,
		Pages:      pages,
		SourceType: constants.PDF,
		Method:     "pdf-ocr",
		Language:   e.cfg.TesseractLang,
		Warnings:   warns,
		Confidence: heuristicConfidence(text),
	}, nil
}

// pdfTextLayer reads embedded text with rsc.io/pdf. Glyph runs are grouped
// into lines by baseline; scanned documents yield little or nothing.
func pdfTextLayer(path string, maxPages int) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf text layer: %v", r)
		}
	}()
	doc, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	pages = doc.NumPage()
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}
	var b strings.Builder
	for i := 1; i <= pages; i++ {
		p := doc.Page(i)
		if p.V.IsNull() {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(pageText(p.Content().Text))
	}
	return b.String(), pages, nil
}

func pageText(runs []pdf.Text) string {
	if len(runs) == 0 {
		return ""
	}
	// top of page first, then left to right
	sort.SliceStable(runs, func(i, j int) bool {
		if d := runs[i].Y - runs[j].Y; d > 2 || d < -2 {
			return runs[i].Y > runs[j].Y
		}
		return runs[i].X < runs[j].X
	})
	var b strings.Builder
	lastY, lastEnd := runs[0].Y, runs[0].X
	for i, r := range runs {
		if i > 0 {
			switch {
			case lastY-r.Y > 2 || r.Y-lastY > 2:
				b.WriteByte('\n')
			case r.X-lastEnd > r.FontSize*0.2:
				b.WriteByte(' ')
			}
		}
		b.WriteString(r.S)
		lastY, lastEnd = r.Y, r.X+r.W
	}
	return b.String()
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	tmpDir, err := os.MkdirTemp("", "sylly-pp-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			e.logger.Warn("failed to remove temp dir", "dir", path, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", fmt.Sprintf("%d", e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", fmt.Sprintf("%d", e.cfg.MaxPages))
	}
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, append(args, path, prefix)...)
	if err != nil {
		return "", 0, []string{string(errb)}, fmt.Errorf("pdftoppm: %w", err)
	}

	// prefix-1.png, prefix-2.png, ... (zero padded for long documents)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	var parts []string
	var warns []string
	for _, img := range matches {
		if err := ctx.Err(); err != nil {
			return "", 0, warns, err
		}
		txt, w, err := e.tesseractOCR(ctx, img)
		if err != nil {
			warns = append(warns, err.Error())
			continue
		}
		warns = append(warns, w...)
		if t := strings.TrimSpace(txt); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n"), len(matches), warns, nil
}
