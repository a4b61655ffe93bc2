package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rkocherlakota/pepsico-dpod-target/constants"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/core/aggregate"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/core/extract"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/core/ocr"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/core/validity"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/detect"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/ledger"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/metrics"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/schema"
)

// DocumentInput is everything the extraction core needs for one document.
type DocumentInput struct {
	Filename string
	Pages    []ocr.PageText
	Signals  entity.Signals
}

// TextPages wraps already-recognized page texts, numbering them from 1.
func TextPages(texts ...string) []ocr.PageText {
	out := make([]ocr.PageText, len(texts))
	for i, t := range texts {
		out[i] = ocr.PageText{Page: i + 1, Text: t}
	}
	return out
}

// FileOptions controls ProcessFile.
type FileOptions struct {
	ProcessType constants.ProcessType
	// SkipLedger leaves the ledger untouched.
	SkipLedger bool
}

// Processor coordinates page recognition, detection and extraction, then
// writes the ledger row.
type Processor struct {
	logger    *slog.Logger
	pages     ocr.PageSource
	detector  detect.Source
	threshold float64
	store     ledger.Store
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewProcessor(
	logger *slog.Logger,
	pages ocr.PageSource,
	detector detect.Source,
	threshold float64,
	store ledger.Store,
	m *metrics.Metrics,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if detector == nil {
		detector = detect.StaticSource{}
	}
	if threshold <= 0 {
		threshold = detect.DefaultThreshold
	}
	return &Processor{
		logger:    logger,
		pages:     pages,
		detector:  detector,
		threshold: threshold,
		store:     store,
		metrics:   m,
		now:       time.Now,
	}
}

// Store is the ledger the processor writes to; nil when none is configured.
func (p *Processor) Store() ledger.Store { return p.store }

// ProcessDocument extracts every page in order, folds the pages into a master
// record and stamps validity. It never fails: unreadable pages degrade to
// flag-only field sets and a document with no readable page is Failed.
func (p *Processor) ProcessDocument(ctx context.Context, in DocumentInput) entity.DocumentResult {
	if len(in.Pages) == 0 {
		p.logger.Warn("processor.document.empty", "filename", in.Filename)
		return entity.FailedResult(in.Filename, errors.New("document has no pages"))
	}

	folder := aggregate.NewFolder()
	details := make([]entity.PageRecord, 0, len(in.Pages))
	var failedPages []string
	for i, pg := range in.Pages {
		num := pg.Page
		if num <= 0 {
			num = i + 1
		}
		var fields entity.FieldSet
		if pg.Failed() {
			fields = extract.Degraded(in.Signals)
			failedPages = append(failedPages, strconv.Itoa(num))
			p.logger.Warn("extract.page.failed", "filename", in.Filename, "page", num, "error", pg.Err)
		} else {
			res := extract.Extract(pg.Text, in.Signals)
			fields = res.Fields
			p.logger.Debug("extract.page.ok",
				"filename", in.Filename,
				"page", num,
				"chars", len(pg.Text),
				"fired", res.Fired,
			)
		}
		marks := folder.Add(fields)
		details = append(details, entity.PageRecord{
			Page:           num,
			Fields:         fields,
			UpdatesApplied: marks,
			Error:          pg.Err,
		})
	}

	if len(failedPages) == len(in.Pages) {
		res := entity.FailedResult(in.Filename, fmt.Errorf("%w on every page", common.ErrRecognition))
		res.TotalPages = len(in.Pages)
		res.PageDetails = details
		return res
	}

	master := validity.Evaluate(folder.Master(), in.Signals)
	res := entity.DocumentResult{
		Filename:         in.Filename,
		TotalPages:       len(in.Pages),
		MasterFields:     master,
		FieldsFound:      master.Found(),
		PageDetails:      details,
		ProcessingStatus: constants.StatusSuccess,
	}
	if len(failedPages) > 0 {
		res.ProcessingStatus = constants.StatusPartial
		res.ErrorMessage = "recognition failed on pages " + strings.Join(failedPages, ", ")
	}
	return res
}

// ProcessFile recognizes and extracts the document at path and upserts its
// ledger row. Document-level problems yield a Failed result, not an error;
// the error is reserved for ledger failures.
func (p *Processor) ProcessFile(ctx context.Context, path string, opts FileOptions) (entity.DocumentResult, error) {
	if opts.ProcessType == "" {
		opts.ProcessType = constants.ProcessSingle
	}
	start := p.now()
	filename := filepath.Base(path)
	logger := p.logger.With("filename", filename, "process_type", opts.ProcessType)
	if id := common.RequestIDFromContext(ctx); id != "" {
		logger = logger.With("request_id", id)
	}
	if id := common.RunIDFromContext(ctx); id != "" {
		logger = logger.With("run_id", id)
	}

	res, pagesOK, pagesFailed := p.run(ctx, logger, path, filename)
	if err := checkResult(res); err != nil {
		logger.Error("processor.schema.failed", "error", err)
		res = entity.FailedResult(filename, err)
	}
	res.Timing = entity.Timing{ProcessType: opts.ProcessType, Start: start, End: p.now()}
	elapsed := res.Timing.End.Sub(start)
	p.metrics.RecordDocument(string(res.ProcessingStatus), pagesOK, pagesFailed, res.FieldsFound, elapsed)

	if res.ProcessingStatus == constants.StatusFailed {
		logger.Error("processor.document.failed", "error", res.ErrorMessage, "elapsed_ms", elapsed.Milliseconds())
	} else {
		logger.Info("processor.document.ok",
			"status", res.ProcessingStatus,
			"pages", res.TotalPages,
			"fields_found", len(res.FieldsFound),
			"is_valid", res.MasterFields.IsValid,
			"elapsed_ms", elapsed.Milliseconds(),
		)
	}

	if opts.SkipLedger || p.store == nil {
		return res, nil
	}
	if err := p.store.Upsert(ctx, entity.RowFromResult(res)); err != nil {
		logger.Error("processor.ledger.failed", "error", err)
		return res, err
	}
	return res, nil
}

func (p *Processor) run(ctx context.Context, logger *slog.Logger, path, filename string) (entity.DocumentResult, int, int) {
	if _, err := ocr.Format(path); err != nil {
		return entity.FailedResult(filename, err), 0, 0
	}
	if p.pages == nil {
		return entity.FailedResult(filename, fmt.Errorf("%w: no page source configured", common.ErrInternal)), 0, 0
	}

	pages, err := p.pages.Pages(ctx, path)
	if err != nil {
		return entity.FailedResult(filename, fmt.Errorf("%w: %v", common.ErrRecognition, err)), 0, 0
	}
	dets, err := p.detector.Detect(ctx, path)
	if err != nil {
		return entity.FailedResult(filename, fmt.Errorf("detections: %w", err)), 0, 0
	}
	sum := detect.Summarize(dets, p.threshold)
	logger.Debug("processor.detect.ok",
		"detections", len(dets),
		"kept", sum.Kept,
		"has_sticker", sum.Signals.HasSticker,
		"has_signature", sum.Signals.HasSignature,
		"crops", len(sum.Crops),
	)

	failed := 0
	for _, pg := range pages {
		if pg.Failed() {
			failed++
		}
	}
	res := p.ProcessDocument(ctx, DocumentInput{Filename: filename, Pages: pages, Signals: sum.Signals})
	return res, len(pages) - failed, failed
}

func checkResult(res entity.DocumentResult) error {
	if err := res.Validate(); err != nil {
		return err
	}
	return schema.ValidateResult(res)
}
