package extract

import (
	"strings"
	"testing"

	"github.com/rkocherlakota/pepsico-dpod-target/constants"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
)

func TestInvoiceNumber(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int64
		rule string
	}{
		{"document label wins", "INVOICE NO: 111\nDOCUMENT NO: 12345", 12345, "document"},
		{"invoice skips date label", "INVOICE DATE: 07/04/2025\nINVOICE NO: 98765", 98765, "invoice"},
		{"invoice hash", "Invoice # 4410", 4410, "invoice"},
		{"inv abbreviation with hyphen", "INV# 55-01", 5501, "inv"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Extract(tc.text, entity.Signals{})
			got := res.Fields.InvoiceNumber
			if got == nil || *got != tc.want {
				t.Fatalf("invoice_number = %v, want %d", got, tc.want)
			}
			if res.Fired["invoice_number"] != tc.rule {
				t.Errorf("rule = %q, want %q", res.Fired["invoice_number"], tc.rule)
			}
		})
	}
}

func TestInvoiceNumberNonNumericIsAbsent(t *testing.T) {
	res := Extract("DOCUMENT: ABC\nINVOICE NO: 77", entity.Signals{})
	if res.Fields.InvoiceNumber != nil {
		t.Fatalf("invoice_number = %d, want absent", *res.Fields.InvoiceNumber)
	}
	if _, ok := res.Fired["invoice_number"]; ok {
		t.Errorf("unexpected fired rule for absent field")
	}
}

func TestStoreNumber(t *testing.T) {
	res := Extract("Store Number: 2516\nSTORE NO. 99", entity.Signals{})
	if res.Fields.StoreNumber == nil || *res.Fields.StoreNumber != 2516 {
		t.Fatalf("store_number = %v, want 2516", res.Fields.StoreNumber)
	}
	if res := Extract("STORE 12", entity.Signals{}); res.Fields.StoreNumber != nil {
		t.Errorf("bare STORE should not match")
	}
}

func TestDates(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"numeric", "Invoice Date: 7/4/2025", "07/04/2025"},
		{"day month name", "Delivered 04.Jul.2025", "07/04/2025"},
		{"month name first", "Date Jul 04, 2025", "07/04/2025"},
		{"iso", "printed 2025-07-04 10:00", "07/04/2025"},
		{"numeric preferred over iso", "2025-01-02 and 03/05/2025", "03/05/2025"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := Extract(tc.text, entity.Signals{}).Fields
			if f.InvoiceDate == nil || *f.InvoiceDate != tc.want {
				t.Fatalf("invoice_date = %v, want %q", f.InvoiceDate, tc.want)
			}
		})
	}
}

func TestStickerDateRequiresSticker(t *testing.T) {
	text := "Received 07/10/2025"
	if f := Extract(text, entity.Signals{}).Fields; f.StickerDate != nil {
		t.Errorf("sticker_date = %q without sticker", *f.StickerDate)
	}
	f := Extract(text, entity.Signals{HasSticker: true}).Fields
	if f.StickerDate == nil || *f.StickerDate != "07/10/2025" {
		t.Fatalf("sticker_date = %v, want 07/10/2025", f.StickerDate)
	}
	if !f.HasSticker || f.HasSignature {
		t.Errorf("flags = sticker %v signature %v", f.HasSticker, f.HasSignature)
	}
}

func TestQuantity(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		absent bool
	}{
		{name: "total qty thousands", text: "TOTAL QTY: 1,250", want: "1250"},
		{name: "qty total", text: "Qty Total - 36", want: "36"},
		{name: "number before qty", text: "TOTAL 24 QTY", want: "24"},
		{name: "eaches sold", text: "TOTAL EACHES SOLD: 80", want: "80"},
		{name: "decimal amount", text: "AMOUNT: 12.5", want: "12.5"},
		{name: "zero is absent", text: "TOTAL: 0", absent: true},
		{name: "zero decimal is absent", text: "QTY 0.00", absent: true},
		{name: "negative is absent", text: "TOTAL: -5", absent: true},
		{name: "not available token", text: "TOTAL QTY: N/A", want: constants.NotAvailable},
		{name: "keyword line first", text: "Cases 9\nQTY: 14\nTOTAL 3", want: "14"},
		{name: "full text fallback", text: "QTY\n5", want: "5"},
		{name: "none", text: "nothing to see", absent: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := Extract(tc.text, entity.Signals{}).Fields.TotalQuantity
			if tc.absent {
				if q != nil {
					t.Fatalf("total_quantity = %s, want absent", q)
				}
				return
			}
			if q == nil || q.String() != tc.want {
				t.Fatalf("total_quantity = %v, want %s", q, tc.want)
			}
		})
	}
}

func TestFritoLay(t *testing.T) {
	for _, text := range []string{"FRITO LAY INC", "Frito-Lay", "fritolay north america", "FRITO - LAY"} {
		if !Extract(text, entity.Signals{}).Fields.HasFritoLay {
			t.Errorf("HasFritoLay false for %q", text)
		}
	}
	for _, text := range []string{"FRITOS CORN CHIPS", "LAY'S", ""} {
		if Extract(text, entity.Signals{}).Fields.HasFritoLay {
			t.Errorf("HasFritoLay true for %q", text)
		}
	}
}

func TestFlagsCopiedNotDerived(t *testing.T) {
	f := Extract("SIGNATURE: ______ STICKER", entity.Signals{HasSignature: true}).Fields
	if !f.HasSignature || f.HasSticker {
		t.Errorf("flags = signature %v sticker %v", f.HasSignature, f.HasSticker)
	}
	if f.IsValid != constants.Invalid {
		t.Errorf("is_valid = %q before evaluation", f.IsValid)
	}
}

func TestExtractNeverPanicsOnNoise(t *testing.T) {
	inputs := []string{
		"",
		"\x00\xff\xfe",
		strings.Repeat("TOTAL ", 500),
		"INVOICE INVOICE INVOICE DATE DATE",
		"QTY: ,,,,",
		"DOCUMENT NO: 99999999999999999999999999",
	}
	for _, in := range inputs {
		f := Extract(in, entity.Signals{}).Fields
		if f.TotalQuantity != nil && !f.TotalQuantity.IsSentinel() && f.TotalQuantity.Value <= 0 {
			t.Errorf("non-positive quantity from %q", in)
		}
	}
}

func TestDegraded(t *testing.T) {
	f := Degraded(entity.Signals{HasSticker: true, HasSignature: true})
	if len(f.Found()) != 2 {
		t.Errorf("found = %v, want only the two flags", f.Found())
	}
}
