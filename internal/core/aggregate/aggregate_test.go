package aggregate

import (
	"reflect"
	"testing"

	"github.com/rkocherlakota/pepsico-dpod-target/constants"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
)

func page(inv int64, date string, qty float64, frito bool) entity.FieldSet {
	f := entity.NewFieldSet()
	if inv != 0 {
		f.InvoiceNumber = entity.Int64Ptr(inv)
	}
	if date != "" {
		f.InvoiceDate = entity.StringPtr(date)
	}
	if qty != 0 {
		f.TotalQuantity = entity.NumericQuantity(qty)
	}
	f.HasFritoLay = frito
	return f
}

func TestMergeFirstNonEmptyWins(t *testing.T) {
	p1 := page(0, "07/04/2025", 0, false)
	p2 := page(1001, "08/01/2025", 12, true)
	p3 := page(2002, "", 40, false)

	master, marks := Merge([]entity.FieldSet{p1, p2, p3})

	if master.InvoiceNumber == nil || *master.InvoiceNumber != 1001 {
		t.Errorf("invoice_number = %v, want 1001", master.InvoiceNumber)
	}
	if master.InvoiceDate == nil || *master.InvoiceDate != "07/04/2025" {
		t.Errorf("invoice_date = %v, want first page date", master.InvoiceDate)
	}
	if master.TotalQuantity == nil || master.TotalQuantity.Value != 12 {
		t.Errorf("total_quantity = %v, want 12", master.TotalQuantity)
	}
	if !master.HasFritoLay {
		t.Errorf("has_frito_lay should stay true once set")
	}

	want := []map[string]constants.UpdateMark{
		{"invoice_number": "SKIPPED", "invoice_date": "UPDATED", "total_quantity": "SKIPPED", "has_frito_lay": "SKIPPED"},
		{"invoice_number": "UPDATED", "invoice_date": "SKIPPED", "total_quantity": "UPDATED", "has_frito_lay": "UPDATED"},
		{"invoice_number": "SKIPPED", "invoice_date": "SKIPPED", "total_quantity": "SKIPPED", "has_frito_lay": "SKIPPED"},
	}
	for i, w := range want {
		if len(marks[i]) != len(entity.MergeFields) {
			t.Fatalf("page %d marks %d fields, want %d", i+1, len(marks[i]), len(entity.MergeFields))
		}
		for field, mark := range w {
			if marks[i][field] != mark {
				t.Errorf("page %d %s = %s, want %s", i+1, field, marks[i][field], mark)
			}
		}
	}
}

func TestMergeZeroMasterIsOverwritten(t *testing.T) {
	p1 := entity.NewFieldSet()
	p1.StoreNumber = entity.Int64Ptr(0)
	p2 := entity.NewFieldSet()
	p2.StoreNumber = entity.Int64Ptr(2516)

	master, marks := Merge([]entity.FieldSet{p1, p2})
	if master.StoreNumber == nil || *master.StoreNumber != 2516 {
		t.Fatalf("store_number = %v, want 2516", master.StoreNumber)
	}
	if marks[1]["store_number"] != constants.Updated {
		t.Errorf("second page should get credit for store_number")
	}
}

func TestMergeIdempotent(t *testing.T) {
	pages := []entity.FieldSet{page(5, "", 0, false), page(0, "01/02/2025", 3, true)}
	a, _ := Merge(pages)
	b, _ := Merge(pages)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("merge not idempotent: %+v vs %+v", a, b)
	}
}

func TestMergeOrderInvariantPresence(t *testing.T) {
	p1 := page(5, "", 0, false)
	p2 := page(0, "01/02/2025", 3, true)
	p3 := page(0, "", 0, false)
	p3.HasSignature = true

	fwd, _ := Merge([]entity.FieldSet{p1, p2, p3})
	rev, _ := Merge([]entity.FieldSet{p3, p2, p1})
	if !reflect.DeepEqual(fwd, rev) {
		t.Errorf("non-conflicting pages merged differently by order:\n%+v\n%+v", fwd, rev)
	}

	// Conflicting values change which page wins, not which fields are present.
	c1 := page(1, "01/01/2025", 0, false)
	c2 := page(2, "02/02/2025", 0, false)
	x, _ := Merge([]entity.FieldSet{c1, c2})
	y, _ := Merge([]entity.FieldSet{c2, c1})
	if !reflect.DeepEqual(x.Found(), y.Found()) {
		t.Errorf("found differs: %v vs %v", x.Found(), y.Found())
	}
}

func TestMergeDoesNotAliasPages(t *testing.T) {
	p := page(7, "03/03/2025", 9, false)
	master, _ := Merge([]entity.FieldSet{p})
	*master.InvoiceNumber = 99
	*master.InvoiceDate = "changed"
	if *p.InvoiceNumber != 7 || *p.InvoiceDate != "03/03/2025" {
		t.Errorf("page mutated through master")
	}
}

func TestMergeEmpty(t *testing.T) {
	master, marks := Merge(nil)
	if len(marks) != 0 {
		t.Errorf("marks = %v", marks)
	}
	if len(master.Found()) != 0 {
		t.Errorf("found = %v, want none", master.Found())
	}
	if master.IsValid != constants.Invalid {
		t.Errorf("is_valid = %q", master.IsValid)
	}
}

func TestSentinelQuantityKept(t *testing.T) {
	p1 := entity.NewFieldSet()
	p1.TotalQuantity = entity.SentinelQuantity()
	p2 := page(0, "", 10, false)
	master, _ := Merge([]entity.FieldSet{p1, p2})
	if master.TotalQuantity == nil || !master.TotalQuantity.IsSentinel() {
		t.Errorf("total_quantity = %v, want sentinel from first page", master.TotalQuantity)
	}
}
