package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rkocherlakota/pepsico-dpod-target/constants"
)

// Field names, in the order they are reported in fields_found and ledger rows.
const (
	FieldInvoiceNumber = "invoice_number"
	FieldStoreNumber   = "store_number"
	FieldInvoiceDate   = "invoice_date"
	FieldStickerDate   = "sticker_date"
	FieldTotalQuantity = "total_quantity"
	FieldHasFritoLay   = "has_frito_lay"
	FieldHasSignature  = "has_signature"
	FieldHasSticker    = "has_sticker"
	FieldIsValid       = "is_valid"
)

// MergeFields are the fields folded page by page; is_valid is derived afterwards.
var MergeFields = []string{
	FieldInvoiceNumber,
	FieldStoreNumber,
	FieldInvoiceDate,
	FieldStickerDate,
	FieldTotalQuantity,
	FieldHasFritoLay,
	FieldHasSignature,
	FieldHasSticker,
}

// Signals are the document-level detection flags supplied by the visual detector.
type Signals struct {
	HasSticker   bool `json:"has_sticker"`
	HasSignature bool `json:"has_signature"`
}

// FieldSet is the typed set of invoice attributes for one page or a merged document.
// Nil pointers mean "absent".
type FieldSet struct {
	InvoiceNumber *int64             `json:"invoice_number"`
	StoreNumber   *int64             `json:"store_number"`
	InvoiceDate   *string            `json:"invoice_date"`
	StickerDate   *string            `json:"sticker_date"`
	TotalQuantity *Quantity          `json:"total_quantity"`
	HasFritoLay   bool               `json:"has_frito_lay"`
	HasSignature  bool               `json:"has_signature"`
	HasSticker    bool               `json:"has_sticker"`
	IsValid       constants.Validity `json:"is_valid"`
}

// NewFieldSet returns an empty field set; is_valid starts Invalid.
func NewFieldSet() FieldSet {
	return FieldSet{IsValid: constants.Invalid}
}

// StickerNotApplicable reports whether sticker_date carries the "not applicable" sentinel.
func (f FieldSet) StickerNotApplicable() bool {
	return f.StickerDate != nil && *f.StickerDate == constants.NotAvailable
}

// Found lists populated fields in canonical order. The sticker sentinel and
// false booleans do not count; is_valid counts only when Valid.
func (f FieldSet) Found() []string {
	found := make([]string, 0, 9)
	if f.InvoiceNumber != nil {
		found = append(found, FieldInvoiceNumber)
	}
	if f.StoreNumber != nil {
		found = append(found, FieldStoreNumber)
	}
	if f.InvoiceDate != nil && *f.InvoiceDate != "" {
		found = append(found, FieldInvoiceDate)
	}
	if f.StickerDate != nil && *f.StickerDate != "" && !f.StickerNotApplicable() {
		found = append(found, FieldStickerDate)
	}
	if f.TotalQuantity != nil {
		found = append(found, FieldTotalQuantity)
	}
	if f.HasFritoLay {
		found = append(found, FieldHasFritoLay)
	}
	if f.HasSignature {
		found = append(found, FieldHasSignature)
	}
	if f.HasSticker {
		found = append(found, FieldHasSticker)
	}
	if f.IsValid == constants.Valid {
		found = append(found, FieldIsValid)
	}
	return found
}

// Clone returns a deep copy so pages and the master record never share storage.
func (f FieldSet) Clone() FieldSet {
	out := f
	if f.InvoiceNumber != nil {
		out.InvoiceNumber = Int64Ptr(*f.InvoiceNumber)
	}
	if f.StoreNumber != nil {
		out.StoreNumber = Int64Ptr(*f.StoreNumber)
	}
	if f.InvoiceDate != nil {
		out.InvoiceDate = StringPtr(*f.InvoiceDate)
	}
	if f.StickerDate != nil {
		out.StickerDate = StringPtr(*f.StickerDate)
	}
	if f.TotalQuantity != nil {
		q := *f.TotalQuantity
		out.TotalQuantity = &q
	}
	return out
}

// Quantity is a non-negative number, or a preserved "not available" token.
type Quantity struct {
	Value float64
	Token string
}

// NumericQuantity wraps a parsed number.
func NumericQuantity(v float64) *Quantity { return &Quantity{Value: v} }

// SentinelQuantity is the canonical "not available" quantity.
func SentinelQuantity() *Quantity { return &Quantity{Token: constants.NotAvailable} }

// IsSentinel reports whether q carries a token instead of a number.
func (q Quantity) IsSentinel() bool { return q.Token != "" }

func (q Quantity) String() string {
	if q.IsSentinel() {
		return q.Token
	}
	return strconv.FormatFloat(q.Value, 'f', -1, 64)
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	if q.IsSentinel() {
		return json.Marshal(q.Token)
	}
	return json.Marshal(q.Value)
}

func (q *Quantity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed := ParseQuantity(s)
		if parsed == nil {
			return fmt.Errorf("quantity: unrecognized value %q", s)
		}
		*q = *parsed
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("quantity: %w", err)
	}
	*q = Quantity{Value: v}
	return nil
}

// notAvailableTokens are compared after upper-casing and collapsing whitespace.
var notAvailableTokens = map[string]struct{}{
	"N/A":           {},
	"NA":            {},
	"NOT AVAILABLE": {},
	"NOT AVAIL":     {},
	"UNAVAILABLE":   {},
}

// IsNotAvailableToken reports whether s is a recognized "not available" spelling.
func IsNotAvailableToken(s string) bool {
	key := strings.ToUpper(strings.Join(strings.Fields(s), " "))
	_, ok := notAvailableTokens[key]
	return ok
}

// quantityEpsilon is the magnitude under which a parsed quantity counts as absent.
const quantityEpsilon = 1e-9

// ParseQuantity converts raw text into a Quantity. Thousands separators are
// dropped; negative, negligible, and unparsable values collapse to nil.
func ParseQuantity(raw string) *Quantity {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if IsNotAvailableToken(s) {
		return SentinelQuantity()
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return nil
	}
	if v < 0 {
		return nil
	}
	if v < quantityEpsilon {
		return nil
	}
	return NumericQuantity(v)
}

// ParseInvoiceInt strips everything but digits and hyphens, drops the hyphens,
// and parses the rest. Anything unparsable is absent, never zero.
func ParseInvoiceInt(raw string) *int64 {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return nil
	}
	v, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func Int64Ptr(v int64) *int64    { return &v }
func StringPtr(s string) *string { return &s }
