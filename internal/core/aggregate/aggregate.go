// Package aggregate folds per-page field sets into one master record.
package aggregate

import (
	"github.com/rkocherlakota/pepsico-dpod-target/constants"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
)

// Folder accumulates pages in order. The earliest page that supplies a field
// wins it; booleans only move from false to true.
type Folder struct {
	master entity.FieldSet
	pages  int
}

func NewFolder() *Folder {
	return &Folder{master: entity.NewFieldSet()}
}

// Add folds one page into the master and reports, per field, whether the page
// supplied the value.
func (f *Folder) Add(page entity.FieldSet) map[string]constants.UpdateMark {
	f.pages++
	m := &f.master
	marks := make(map[string]constants.UpdateMark, len(entity.MergeFields))
	mark := func(field string, updated bool) {
		if updated {
			marks[field] = constants.Updated
		} else {
			marks[field] = constants.Skipped
		}
	}

	takeInt := intAbsent(m.InvoiceNumber) && !intAbsent(page.InvoiceNumber)
	if takeInt {
		m.InvoiceNumber = entity.Int64Ptr(*page.InvoiceNumber)
	}
	mark(entity.FieldInvoiceNumber, takeInt)

	takeStore := intAbsent(m.StoreNumber) && !intAbsent(page.StoreNumber)
	if takeStore {
		m.StoreNumber = entity.Int64Ptr(*page.StoreNumber)
	}
	mark(entity.FieldStoreNumber, takeStore)

	takeDate := strAbsent(m.InvoiceDate) && !strAbsent(page.InvoiceDate)
	if takeDate {
		m.InvoiceDate = entity.StringPtr(*page.InvoiceDate)
	}
	mark(entity.FieldInvoiceDate, takeDate)

	takeSticker := strAbsent(m.StickerDate) && !strAbsent(page.StickerDate)
	if takeSticker {
		m.StickerDate = entity.StringPtr(*page.StickerDate)
	}
	mark(entity.FieldStickerDate, takeSticker)

	takeQty := qtyAbsent(m.TotalQuantity) && !qtyAbsent(page.TotalQuantity)
	if takeQty {
		q := *page.TotalQuantity
		m.TotalQuantity = &q
	}
	mark(entity.FieldTotalQuantity, takeQty)

	mark(entity.FieldHasFritoLay, orInto(&m.HasFritoLay, page.HasFritoLay))
	mark(entity.FieldHasSignature, orInto(&m.HasSignature, page.HasSignature))
	mark(entity.FieldHasSticker, orInto(&m.HasSticker, page.HasSticker))
	return marks
}

// Master returns a copy of the current master record.
func (f *Folder) Master() entity.FieldSet { return f.master.Clone() }

// Pages is the number of pages folded so far.
func (f *Folder) Pages() int { return f.pages }

// Merge folds pages in order and returns the master plus per-page provenance.
func Merge(pages []entity.FieldSet) (entity.FieldSet, []map[string]constants.UpdateMark) {
	f := NewFolder()
	marks := make([]map[string]constants.UpdateMark, 0, len(pages))
	for _, p := range pages {
		marks = append(marks, f.Add(p))
	}
	return f.Master(), marks
}

// Numeric zero counts as absent on either side of the merge.
func intAbsent(p *int64) bool { return p == nil || *p == 0 }

func strAbsent(p *string) bool { return p == nil || *p == "" }

func qtyAbsent(q *entity.Quantity) bool {
	return q == nil || (!q.IsSentinel() && q.Value == 0)
}

func orInto(dst *bool, v bool) bool {
	if v && !*dst {
		*dst = true
		return true
	}
	return false
}
