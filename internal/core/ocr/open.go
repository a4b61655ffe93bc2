package ocr

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the PageSource named by cfg.Engine. The closer releases any
// client the engine holds.
func Open(ctx context.Context, cfg common.OCRConfig, logger *slog.Logger) (PageSource, io.Closer, error) {
	c := ConfigFrom(cfg)
	switch cfg.Engine {
	case common.EngineTesseract, "":
		return NewTesseractSource(c, logger), nopCloser{}, nil
	case common.EngineText:
		return NewPDFTextSource(c, logger), nopCloser{}, nil
	case common.EngineVision:
		s, err := NewVisionSource(ctx, c, cfg.CredentialsJSON, cfg.CredentialsFile, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown OCR engine %q", common.ErrInvalidInput, cfg.Engine)
	}
}
