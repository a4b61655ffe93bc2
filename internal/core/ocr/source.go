// Package ocr recognizes per-page text for the extraction core. Recognition
// engines are external tools or services; this package only drives them.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rkocherlakota/pepsico-dpod-target/constants"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
)

// PageText is one page of recognized text. Err is set when recognition of
// that page failed; Text is then empty.
type PageText struct {
	Page       int
	Text       string
	Err        string
	Confidence float32
}

// Failed reports whether recognition of the page failed.
func (p PageText) Failed() bool { return p.Err != "" }

// PageSource yields the recognized text of every page of a document, in order.
type PageSource interface {
	Pages(ctx context.Context, path string) ([]PageText, error)
}

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI, default 200
	MaxPages      int // 0 = no limit
}

// ConfigFrom maps application config onto the engine config.
func ConfigFrom(c common.OCRConfig) Config {
	return Config{
		TesseractLang: c.TesseractLang,
		TessdataDir:   c.TessdataDir,
		DPI:           c.DPI,
		MaxPages:      c.MaxPages,
	}
}

func (c Config) withDefaults() Config {
	if c.Pdftotext == "" {
		c.Pdftotext = "pdftotext"
	}
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.TesseractLang == "" {
		c.TesseractLang = "eng"
	}
	if c.DPI <= 0 {
		c.DPI = 200
	}
	return c
}

// Format checks path against the allowed extensions and returns PDF or IMAGE.
func Format(path string) (string, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if !constants.AllowedExt(ext) {
		return "", fmt.Errorf("%w: %q", common.ErrUnsupportedFormat, ext)
	}
	return constants.MapExtToFormat(ext), nil
}

// rasterize renders each PDF page to a PNG with pdftoppm. cleanup removes the
// images and must be called once the pages have been read.
func rasterize(ctx context.Context, r Runner, logger *slog.Logger, cfg Config, path string) ([]string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "dpod-pp-*")
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			logger.Warn("ocr.rasterize.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", strconv.Itoa(cfg.DPI), "-png"}
	if cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(cfg.MaxPages))
	}
	args = append(args, path, prefix)
	if _, errb, err := r.Run(ctx, cfg.Pdftoppm, logger, args...); err != nil {
		cleanup()
		return nil, nil, toolError("pdftoppm", err, errb)
	}

	// prefix-1.png, prefix-2.png, ... (zero-padded by pdftoppm for long documents)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if cfg.MaxPages > 0 && len(matches) > cfg.MaxPages {
		matches = matches[:cfg.MaxPages]
	}
	if len(matches) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("pdftoppm produced no images for %s", path)
	}
	return matches, cleanup, nil
}

// TesseractSource rasterizes PDFs and runs tesseract on every page image.
type TesseractSource struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewTesseractSource(cfg Config, logger *slog.Logger) *TesseractSource {
	return newTesseractSource(cfg, execRunner{}, logger)
}

func newTesseractSource(cfg Config, r Runner, logger *slog.Logger) *TesseractSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractSource{cfg: cfg.withDefaults(), runner: r, logger: logger}
}

func (s *TesseractSource) Pages(ctx context.Context, path string) ([]PageText, error) {
	return imagePages(ctx, s.runner, s.logger, s.cfg, path, s.recognize)
}

func (s *TesseractSource) recognize(ctx context.Context, img string) (string, error) {
	args := []string{img, "stdout", "-l", s.cfg.TesseractLang}
	if s.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", s.cfg.TessdataDir)
	}
	out, errb, err := s.runner.Run(ctx, s.cfg.Tesseract, s.logger, args...)
	if err != nil {
		return "", toolError("tesseract", err, errb)
	}
	return string(out), nil
}

// recognizeFunc turns one page image into raw text.
type recognizeFunc func(ctx context.Context, img string) (string, error)

// imagePages is shared by the image-based engines: PDFs are rasterized first,
// images are a single page. A failing page is recorded and the rest continue.
func imagePages(ctx context.Context, r Runner, logger *slog.Logger, cfg Config, path string, recognize recognizeFunc) ([]PageText, error) {
	format, err := Format(path)
	if err != nil {
		return nil, err
	}
	images := []string{path}
	if format == constants.PDF {
		imgs, cleanup, err := rasterize(ctx, r, logger, cfg, path)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		images = imgs
	}

	pages := make([]PageText, 0, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		pt := PageText{Page: i + 1}
		raw, err := recognize(ctx, img)
		if err != nil {
			pt.Err = err.Error()
			logger.Warn("ocr.page.failed", "path", path, "page", pt.Page, "error", err)
		} else {
			pt.Text = Normalize(raw)
			pt.Confidence = heuristicConfidence(pt.Text)
			logger.Debug("ocr.page.ok", "path", path, "page", pt.Page,
				"chars", len(pt.Text), "elapsed_ms", time.Since(start).Milliseconds())
		}
		pages = append(pages, pt)
	}
	return pages, nil
}
