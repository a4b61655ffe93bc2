package core

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rkocherlakota/pepsico-dpod-target/constants"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/core/ocr"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/detect"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/ledger"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/metrics"
)

const (
	page1 = "FRITO-LAY NORTH AMERICA\nDOCUMENT NO: 12345\nDATE 04/14/2025"
	page2 = "STORE NUMBER: 2516\nDOCUMENT NO: 999\nTOTAL QTY: 24"
)

type fakePages struct {
	pages []ocr.PageText
	err   error
}

func (f fakePages) Pages(context.Context, string) ([]ocr.PageText, error) {
	return f.pages, f.err
}

func TestProcessDocumentMergesPages(t *testing.T) {
	p := NewProcessor(nil, nil, nil, 0, nil, nil)
	sig := entity.Signals{HasSticker: true, HasSignature: true}
	res := p.ProcessDocument(context.Background(), DocumentInput{
		Filename: "inv.pdf",
		Pages:    TextPages(page1, page2),
		Signals:  sig,
	})

	if res.ProcessingStatus != constants.StatusSuccess || res.ErrorMessage != "" {
		t.Fatalf("status = %s (%q)", res.ProcessingStatus, res.ErrorMessage)
	}
	m := res.MasterFields
	if m.InvoiceNumber == nil || *m.InvoiceNumber != 12345 {
		t.Errorf("invoice_number = %v, want first page's 12345", m.InvoiceNumber)
	}
	if m.StoreNumber == nil || *m.StoreNumber != 2516 {
		t.Errorf("store_number = %v", m.StoreNumber)
	}
	if m.InvoiceDate == nil || *m.InvoiceDate != "04/14/2025" {
		t.Errorf("invoice_date = %v", m.InvoiceDate)
	}
	if m.TotalQuantity == nil || m.TotalQuantity.String() != "24" {
		t.Errorf("total_quantity = %v", m.TotalQuantity)
	}
	if !m.HasFritoLay || m.IsValid != constants.Valid {
		t.Errorf("has_frito_lay = %v, is_valid = %s", m.HasFritoLay, m.IsValid)
	}
	if res.TotalPages != 2 || len(res.PageDetails) != 2 {
		t.Fatalf("pages = %d / %d", res.TotalPages, len(res.PageDetails))
	}
	if got := res.PageDetails[1].UpdatesApplied[entity.FieldInvoiceNumber]; got != constants.Skipped {
		t.Errorf("page 2 invoice mark = %s", got)
	}
	if got := res.PageDetails[1].UpdatesApplied[entity.FieldStoreNumber]; got != constants.Updated {
		t.Errorf("page 2 store mark = %s", got)
	}
	want := []string{"invoice_number", "store_number", "invoice_date", "sticker_date", "total_quantity",
		"has_frito_lay", "has_signature", "has_sticker", "is_valid"}
	if strings.Join(res.FieldsFound, ",") != strings.Join(want, ",") {
		t.Errorf("fields_found = %v", res.FieldsFound)
	}
}

func TestProcessDocumentStatuses(t *testing.T) {
	p := NewProcessor(nil, nil, nil, 0, nil, nil)
	failed := ocr.PageText{Page: 2, Err: "tesseract: exit status 1"}

	tests := []struct {
		name    string
		pages   []ocr.PageText
		status  constants.ProcessingStatus
		msgPart string
		total   int
	}{
		{"no pages", nil, constants.StatusFailed, "no pages", 0},
		{"one failed page", append(TextPages(page1), failed), constants.StatusPartial, "pages 2", 2},
		{"every page failed", []ocr.PageText{{Page: 1, Err: "x"}, failed}, constants.StatusFailed, "every page", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := p.ProcessDocument(context.Background(), DocumentInput{
				Filename: "doc.pdf",
				Pages:    tt.pages,
				Signals:  entity.Signals{HasSignature: true},
			})
			if res.ProcessingStatus != tt.status {
				t.Errorf("status = %s, want %s", res.ProcessingStatus, tt.status)
			}
			if !strings.Contains(res.ErrorMessage, tt.msgPart) {
				t.Errorf("error_message = %q, want it to mention %q", res.ErrorMessage, tt.msgPart)
			}
			if res.TotalPages != tt.total {
				t.Errorf("total_pages = %d, want %d", res.TotalPages, tt.total)
			}
		})
	}
}

func TestProcessDocumentDegradedPageKeepsFlags(t *testing.T) {
	p := NewProcessor(nil, nil, nil, 0, nil, nil)
	res := p.ProcessDocument(context.Background(), DocumentInput{
		Filename: "doc.pdf",
		Pages:    []ocr.PageText{{Page: 1, Err: "unreadable"}, {Page: 2, Text: "INVOICE NO: 42"}},
		Signals:  entity.Signals{HasSignature: true},
	})
	pf := res.PageDetails[0].Fields
	if pf.InvoiceNumber != nil || !pf.HasSignature || pf.HasSticker {
		t.Errorf("degraded page fields = %+v", pf)
	}
	if res.PageDetails[0].Error != "unreadable" {
		t.Errorf("page error = %q", res.PageDetails[0].Error)
	}
	if res.MasterFields.StickerDate == nil || *res.MasterFields.StickerDate != constants.NotAvailable {
		t.Errorf("sticker_date = %v, want sentinel", res.MasterFields.StickerDate)
	}
	if res.MasterFields.IsValid != constants.Invalid {
		t.Errorf("is_valid = %s without a sticker", res.MasterFields.IsValid)
	}
}

func newFileProcessor(t *testing.T, src ocr.PageSource, sig entity.Signals) (*Processor, ledger.Store, *metrics.Metrics) {
	t.Helper()
	store := ledger.NewXLSX(filepath.Join(t.TempDir(), "ledger.xlsx"), "Results", nil, nil)
	m := metrics.New(prometheus.NewRegistry())
	p := NewProcessor(nil, src, detect.StaticSource{Signals: sig}, 0, store, m)
	clock := time.Date(2025, 4, 14, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time {
		clock = clock.Add(1500 * time.Millisecond)
		return clock
	}
	return p, store, m
}

func TestProcessFileWritesLedgerRow(t *testing.T) {
	src := fakePages{pages: TextPages(page1, page2)}
	p, store, m := newFileProcessor(t, src, entity.Signals{HasSticker: true, HasSignature: true})

	res, err := p.ProcessFile(context.Background(), "/data/in/inv.pdf", FileOptions{ProcessType: constants.ProcessBatch})
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if res.Filename != "inv.pdf" || res.ProcessingStatus != constants.StatusSuccess {
		t.Fatalf("result = %s %s", res.Filename, res.ProcessingStatus)
	}

	row, err := store.Lookup(context.Background(), "inv.pdf")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if row.ProcessType != constants.ProcessBatch || row.IsValid != constants.Valid {
		t.Errorf("row = %+v", row)
	}
	if row.StartTime != "2025-04-14 10:00:01" || row.ProcessingTime == nil || *row.ProcessingTime != 1.5 {
		t.Errorf("timing = %s / %v", row.StartTime, row.ProcessingTime)
	}
	if got := testutil.ToFloat64(m.DocumentsTotal.WithLabelValues("Success")); got != 1 {
		t.Errorf("documents metric = %v", got)
	}
}

func TestProcessFileFailures(t *testing.T) {
	tests := []struct {
		name string
		path string
		src  ocr.PageSource
	}{
		{"unsupported extension", "/in/notes.txt", fakePages{pages: TextPages(page1)}},
		{"recognition error", "/in/scan.png", fakePages{err: errors.New("tesseract missing")}},
		{"no pages", "/in/empty.pdf", fakePages{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store, _ := newFileProcessor(t, tt.src, entity.Signals{})
			res, err := p.ProcessFile(context.Background(), tt.path, FileOptions{})
			if err != nil {
				t.Fatalf("ProcessFile: %v", err)
			}
			if res.ProcessingStatus != constants.StatusFailed || res.ErrorMessage == "" {
				t.Errorf("result = %s %q", res.ProcessingStatus, res.ErrorMessage)
			}
			row, err := store.Lookup(context.Background(), filepath.Base(tt.path))
			if err != nil {
				t.Fatalf("failed documents still get a row: %v", err)
			}
			if row.ProcessingStatus != constants.StatusFailed || row.ProcessType != constants.ProcessSingle {
				t.Errorf("row = %+v", row)
			}
		})
	}
}

func TestProcessFileSkipLedger(t *testing.T) {
	p, store, _ := newFileProcessor(t, fakePages{pages: TextPages(page1)}, entity.Signals{})
	if _, err := p.ProcessFile(context.Background(), "a.pdf", FileOptions{SkipLedger: true}); err != nil {
		t.Fatal(err)
	}
	rows, err := store.List(context.Background())
	if err != nil || len(rows) != 0 {
		t.Errorf("rows = %v, err = %v", rows, err)
	}
}
