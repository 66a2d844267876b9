package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
	"rsc.io/pdf"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
)

// ErrNoPages is returned when a batch has nothing to load.
var ErrNoPages = errors.New("no pages to load")

// Loader inspects imported page files in parallel and returns them in
// input order.
type Loader struct {
	workers int
	logger  *slog.Logger
}

type Option func(*Loader)

func WithWorkers(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

func NewLoader(logger *slog.Logger, opts ...Option) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{workers: 4, logger: logger}
	for _, o := range opts {
		o(l)
	}
	return l
}

type loaded struct {
	index int
	page  RawPage
}

// Load decodes every path with at most `workers` files in flight. A page
// that cannot be decoded is returned with Err set; only cancellation fails
// the whole batch. Results are collected by a single goroutine and joined
// before Load returns.
func (l *Loader) Load(ctx context.Context, paths []string) ([]RawPage, error) {
	if len(paths) == 0 {
		return nil, ErrNoPages
	}
	start := time.Now()

	pages := make([]RawPage, len(paths))
	results := make(chan loaded)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for r := range results {
			pages[r.index] = r.page
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := l.inspect(i, path)
			select {
			case results <- loaded{index: i, page: p}:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	err := g.Wait()
	close(results)
	<-collected
	if err != nil {
		l.logger.Warn("capture.load.cancelled", "pages", len(paths), "error", err)
		return nil, err
	}

	invalid := 0
	for _, p := range pages {
		if p.Err != nil {
			invalid++
		}
	}
	l.logger.Info("capture.load.ok",
		"pages", len(pages),
		"invalid", invalid,
		"workers", l.workers,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return pages, nil
}

func (l *Loader) inspect(index int, path string) (p RawPage) {
	defer func() {
		if p.Err != nil {
			l.logger.Warn("capture.page.invalid", "index", index, "path", path, "error", p.Err)
		}
	}()
	ext := extOf(path)
	p = RawPage{Index: index, Path: path, Ext: ext, Format: constants.MapExtToFormat(ext), PageCount: 1}
	if p.Format == "" {
		p.Err = invalidPage(path, fmt.Errorf("unsupported extension %q", ext))
		return p
	}

	f, err := os.Open(path)
	if err != nil {
		p.Err = invalidPage(path, err)
		return p
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			l.logger.Warn("failed to close page file", "path", path, "error", err)
		}
	}(f)

	switch {
	case p.Format == constants.PDF:
		n, err := pdfPageCount(path)
		if err != nil {
			p.Err = invalidPage(path, err)
			return p
		}
		p.PageCount = n
	case constants.IsHEICExt(ext):
		if err := checkHEIC(f); err != nil {
			p.Err = invalidPage(path, err)
		}
	default:
		cfg, _, err := image.DecodeConfig(f)
		if err != nil {
			p.Err = invalidPage(path, err)
			return p
		}
		if cfg.Width == 0 || cfg.Height == 0 {
			p.Err = invalidPage(path, errors.New("empty image"))
			return p
		}
		p.Width, p.Height = cfg.Width, cfg.Height
	}
	return p
}

func invalidPage(path string, cause error) error {
	return common.NewCaptureError(filepath.Base(path), fmt.Errorf("%w: %v", common.ErrInvalidImage, cause))
}

// pdfPageCount opens the document with rsc.io/pdf; malformed files can make
// the reader panic, which is reported as an error.
func pdfPageCount(path string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	doc, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	n = doc.NumPage()
	if n == 0 {
		return 0, errors.New("pdf has no pages")
	}
	return n, nil
}

// checkHEIC verifies the ISO-BMFF "ftyp" box; Go has no HEIC decoder, the
// OCR stage converts these files before recognition.
func checkHEIC(r io.Reader) error {
	head := make([]byte, 12)
	if _, err := io.ReadFull(r, head); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if !bytes.Equal(head[4:8], []byte("ftyp")) {
		return errors.New("not a HEIF container")
	}
	return nil
}

func extOf(path string) string {
	return constants.NormalizeExt(filepath.Ext(path))
}
