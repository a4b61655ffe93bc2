package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/rkocherlakota/pepsico-dpod-target/constants"
)

// PDFTextSource reads the embedded text layer of born-digital PDFs page by
// page with pdftotext. It does no recognition and rejects images.
type PDFTextSource struct {
	cfg       Config
	runner    Runner
	logger    *slog.Logger
	pageCount func(path string) (int, error)
}

func NewPDFTextSource(cfg Config, logger *slog.Logger) *PDFTextSource {
	return newPDFTextSource(cfg, execRunner{}, api.PageCountFile, logger)
}

func newPDFTextSource(cfg Config, r Runner, pageCount func(string) (int, error), logger *slog.Logger) *PDFTextSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFTextSource{cfg: cfg.withDefaults(), runner: r, logger: logger, pageCount: pageCount}
}

func (s *PDFTextSource) Pages(ctx context.Context, path string) ([]PageText, error) {
	format, err := Format(path)
	if err != nil {
		return nil, err
	}
	if format != constants.PDF {
		return nil, fmt.Errorf("text engine reads PDFs only, got %s", path)
	}
	n, err := s.pageCount(path)
	if err != nil {
		return nil, fmt.Errorf("page count %s: %w", path, err)
	}
	if s.cfg.MaxPages > 0 && n > s.cfg.MaxPages {
		n = s.cfg.MaxPages
	}

	pages := make([]PageText, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pt := PageText{Page: i}
		p := strconv.Itoa(i)
		out, errb, err := s.runner.Run(ctx, s.cfg.Pdftotext, s.logger,
			"-f", p, "-l", p, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
		if err != nil {
			pt.Err = toolError("pdftotext", err, errb).Error()
			s.logger.Warn("ocr.page.failed", "path", path, "page", i, "error", err)
		} else {
			pt.Text = Normalize(string(out))
			pt.Confidence = heuristicConfidence(pt.Text)
		}
		pages = append(pages, pt)
	}
	s.logger.Debug("ocr.pdftext.ok", "path", path, "pages", n)
	return pages, nil
}
