package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/joseph-ayodele/syllabus-tracker/internal/capture"
	"github.com/joseph-ayodele/syllabus-tracker/internal/pipeline"
)

// Pipeline is the part of the coordinator the inbox drives.
type Pipeline interface {
	StartScan(ctx context.Context) error
	SubmitPages(ctx context.Context, pages []capture.RawPage) error
	Await(ctx context.Context, pred func(pipeline.State) bool) (pipeline.State, error)
}

type PageLoader interface {
	Load(ctx context.Context, paths []string) ([]capture.RawPage, error)
}

// Inbox feeds watched batches into the pipeline, one at a time, whenever
// the pipeline is back at Home. Files already submitted (same content) are
// not submitted again.
type Inbox struct {
	pipe   Pipeline
	loader PageLoader
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]string // sha256 -> path
}

func NewInbox(pipe Pipeline, loader PageLoader, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{pipe: pipe, loader: loader, logger: logger, seen: map[string]string{}}
}

// Run consumes batches until the channel closes or ctx is done.
func (in *Inbox) Run(ctx context.Context, batches <-chan []string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			if err := in.Submit(ctx, batch); err != nil {
				in.logger.Error("inbox.submit.failed", "files", len(batch), "error", err)
			}
		}
	}
}

// Submit waits for the pipeline to be idle and starts a scan of paths.
// Content hashes are remembered only once the pages reach the pipeline, so
// a batch that fails on the way can be dropped again.
func (in *Inbox) Submit(ctx context.Context, paths []string) error {
	fresh, sums := in.dedupe(paths)
	if len(fresh) == 0 {
		in.logger.Info("inbox.batch.duplicate", "files", len(paths))
		return nil
	}

	if _, err := in.pipe.Await(ctx, pipeline.StageIs(pipeline.StageHome)); err != nil {
		return err
	}
	pages, err := in.loader.Load(ctx, fresh)
	if err != nil {
		return err
	}
	if err := in.pipe.StartScan(ctx); err != nil {
		return err
	}
	if err := in.pipe.SubmitPages(ctx, pages); err != nil {
		return err
	}
	in.remember(sums)
	in.logger.Info("inbox.batch.submitted", "files", len(fresh))
	return nil
}

// dedupe drops paths whose content was already submitted, or appears
// earlier in the same batch. sums maps the kept paths' hashes to paths.
func (in *Inbox) dedupe(paths []string) ([]string, map[string]string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	var out []string
	sums := map[string]string{}
	for _, p := range paths {
		sum, err := hashFile(p)
		if err != nil {
			// let the loader report the unreadable page
			in.logger.Warn("inbox.hash.failed", "path", p, "error", err)
			out = append(out, p)
			continue
		}
		prev, ok := in.seen[sum]
		if !ok {
			prev, ok = sums[sum]
		}
		if ok {
			in.logger.Debug("inbox.file.deduplicated", "path", p, "original", prev)
			continue
		}
		sums[sum] = p
		out = append(out, p)
	}
	return out, sums
}

func (in *Inbox) remember(sums map[string]string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	for sum, p := range sums {
		in.seen[sum] = p
	}
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
