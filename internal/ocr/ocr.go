package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit

	TessdataDir         string
	HeicConverter       string
	EnableTSVConfidence bool

	PSM int // page segmentation mode, default 3 (fully automatic)
	OEM int // engine mode, default 1 (LSTM only)

	// DisableLanguageCorrection turns off tesseract's dictionary passes.
	DisableLanguageCorrection bool

	// MinPDFTextChars is the text-layer length below which a PDF is treated
	// as scanned and rasterized instead.
	MinPDFTextChars int

	ArtifactCacheDir string
}

type ExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// Extractor runs OCR over one file.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return NewExtractorWithRunner(cfg, commandRunner{logger: logger}, logger)
}

// NewExtractorWithRunner is NewExtractor with a custom command runner.
func NewExtractorWithRunner(cfg Config, runner Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 3
	}
	if cfg.OEM <= 0 {
		cfg.OEM = 1
	}
	if cfg.MinPDFTextChars <= 0 {
		cfg.MinPDFTextChars = 40
	}
	if cfg.HeicConverter == "" {
		cfg.HeicConverter = "magick"
	}
	return &Extractor{cfg: cfg, runner: runner, logger: logger}
}

// ExtractFile picks a strategy based on file extension.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("starting ocr extraction", "path", path, "ext", ext)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err := e.extractPDF(ctx, path)
		res.Duration = time.Since(start)
		return res, err
	case constants.IMAGE:
		var warns []string
		if constants.IsHEICExt(ext) {
			out, w, cleanup, err := convertHEICtoPNG(ctx, e.runner, e.logger, e.cfg.HeicConverter, path, e.cfg.ArtifactCacheDir)
			warns = append(warns, w...)
			if cleanup != nil {
				defer cleanup()
			}
			if err != nil {
				e.logger.Error("heic conversion failed", "path", path, "error", err)
				return ExtractionResult{SourceType: constants.IMAGE, Warnings: warns}, err
			}
			path = out
		}
		res, err := e.extractImage(ctx, path)
		res.Duration = time.Since(start)
		res.Warnings = append(res.Warnings, warns...)
		return res, err
	default:
		e.logger.Error("unsupported ocr extension", "extension", ext)
		return ExtractionResult{}, common.NewCaptureError("unsupported file", fmt.Errorf("%w: extension %q", common.ErrInvalidImage, ext))
	}
}
