package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// heicConverters builds each supported converter's argv for in -> out.
var heicConverters = map[string]func(in, out string) []string{
	"heif-convert": func(in, out string) []string { return []string{in, out} },
	"magick":       func(in, out string) []string { return []string{in, out} },
	"sips":         func(in, out string) []string { return []string{"-s", "format", "png", in, "--out", out} },
}

// convertHEICtoPNG converts a HEIC/HEIF photo to PNG so tesseract can read it.
// When cacheDir is set the PNG is kept at {cacheDir}/{sha256}.png and reused;
// cleanup is nil in that case. Otherwise cleanup removes the temp directory.
func convertHEICtoPNG(
	ctx context.Context,
	r Runner,
	logger *slog.Logger,
	converter string,
	in string,
	cacheDir string,
) (string, []string, func(), error) {
	var cached string
	if cacheDir != "" {
		sum, err := fileSHA256(in)
		if err != nil {
			return "", nil, nil, err
		}
		cached = filepath.Join(cacheDir, sum+".png")
		if st, err := os.Stat(cached); err == nil && !st.IsDir() {
			logger.Debug("using cached heic->png", "cache", cached)
			return cached, nil, nil, nil
		}
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return "", nil, nil, err
		}
	}

	tmpDir, err := os.MkdirTemp("", "sylly-heic-*")
	if err != nil {
		return "", nil, nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }
	out := filepath.Join(tmpDir, "page.png")

	argv, ok := heicConverters[converter]
	if !ok {
		return "", nil, cleanup, fmt.Errorf("no HEIC converter %q (HEIC_CONVERTER: heif-convert, magick or sips)", converter)
	}
	if _, errb, err := r.Run(ctx, converter, argv(in, out)...); err != nil {
		return "", []string{string(errb)}, cleanup, fmt.Errorf("%s: convert %s: %w", converter, filepath.Base(in), err)
	}

	if _, statErr := os.Stat(out); statErr != nil {
		return "", nil, cleanup, fmt.Errorf("%s wrote no png: %w", converter, statErr)
	}
	if cached == "" {
		return out, nil, cleanup, nil
	}

	if err := os.Rename(out, cached); err != nil {
		// cross-device: copy instead
		if err := copyFile(out, cached); err != nil {
			return "", nil, cleanup, err
		}
	}
	cleanup()
	logger.Debug("cached heic->png", "cache", cached)
	return cached, nil, nil, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
