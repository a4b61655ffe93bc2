// Package detect turns visual detections into the document-level signals the
// extraction core consumes. The detector itself runs elsewhere; this package
// only reads and summarizes its output.
package detect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
)

// Labels emitted by the detector.
const (
	LabelSticker        = "sticker"
	LabelSignature      = "signature"
	LabelReceiptOutline = "receipt_outline"
)

// DefaultThreshold drops low-confidence detections.
const DefaultThreshold = 0.25

// Detection is one labelled box on a 1-based page.
type Detection struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	BBox  [4]int  `json:"bbox"`
	Page  int     `json:"page"`
}

// Summary is what the core needs from a document's detections.
type Summary struct {
	Signals entity.Signals
	// Crops holds receipt_outline boxes per page; reported, not applied.
	Crops map[int][4]int
	Kept  int
}

// Summarize keeps detections at or above threshold and ORs their labels across pages.
func Summarize(dets []Detection, threshold float64) Summary {
	s := Summary{Crops: map[int][4]int{}}
	for _, d := range dets {
		if d.Score < threshold {
			continue
		}
		s.Kept++
		switch strings.ToLower(d.Label) {
		case LabelSticker:
			s.Signals.HasSticker = true
		case LabelSignature:
			s.Signals.HasSignature = true
		case LabelReceiptOutline:
			if _, seen := s.Crops[d.Page]; !seen {
				s.Crops[d.Page] = d.BBox
			}
		}
	}
	return s
}

// Source yields detections for a document.
type Source interface {
	Detect(ctx context.Context, path string) ([]Detection, error)
}

// SidecarSource reads "<path><Suffix>" written next to the document by the detector.
type SidecarSource struct {
	Suffix string
	logger *slog.Logger
}

func NewSidecarSource(suffix string, logger *slog.Logger) *SidecarSource {
	if suffix == "" {
		suffix = ".detections.json"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SidecarSource{Suffix: suffix, logger: logger}
}

// Detect returns no detections when the sidecar is missing.
func (s *SidecarSource) Detect(ctx context.Context, path string) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := path + s.Suffix
	b, err := os.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("detect.sidecar.missing", "path", name)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read detections %s: %w", name, err)
	}
	var dets []Detection
	if err := json.Unmarshal(b, &dets); err != nil {
		return nil, fmt.Errorf("parse detections %s: %w", name, err)
	}
	s.logger.Debug("detect.sidecar.ok", "path", name, "detections", len(dets))
	return dets, nil
}

// StaticSource reports fixed flags for every document.
type StaticSource struct {
	Signals entity.Signals
}

func (s StaticSource) Detect(context.Context, string) ([]Detection, error) {
	var out []Detection
	if s.Signals.HasSticker {
		out = append(out, Detection{Label: LabelSticker, Score: 1, Page: 1})
	}
	if s.Signals.HasSignature {
		out = append(out, Detection{Label: LabelSignature, Score: 1, Page: 1})
	}
	return out, nil
}
