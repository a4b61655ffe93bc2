// Package extract turns one page of recognized text into a typed FieldSet.
// Every field is resolved by an ordered rule chain; a miss is an absent field,
// never an error.
package extract

import (
	"strconv"
	"strings"

	"github.com/rkocherlakota/pepsico-dpod-target/internal/core/datefmt"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
)

// Result is a page's FieldSet plus the rule that fired for each text-derived field.
type Result struct {
	Fields entity.FieldSet
	Fired  map[string]string
}

// Extract scans text with every rule chain. Booleans other than has_frito_lay
// come from sig; sticker_date is only attempted when a sticker was detected.
func Extract(text string, sig entity.Signals) Result {
	res := Result{Fields: entity.NewFieldSet(), Fired: map[string]string{}}
	f := &res.Fields
	f.HasSignature = sig.HasSignature
	f.HasSticker = sig.HasSticker

	if v, rule, ok := InvoiceNumberRules.First(text); ok {
		f.InvoiceNumber = entity.ParseInvoiceInt(v)
		res.fired(entity.FieldInvoiceNumber, rule, f.InvoiceNumber != nil)
	}
	if v, rule, ok := StoreNumberRules.First(text); ok {
		f.StoreNumber = entity.ParseInvoiceInt(v)
		res.fired(entity.FieldStoreNumber, rule, f.StoreNumber != nil)
	}
	if v, rule, ok := DateRules.First(text); ok {
		f.InvoiceDate = entity.StringPtr(datefmt.Normalize(v))
		res.fired(entity.FieldInvoiceDate, rule, true)
	}
	if sig.HasSticker {
		if v, rule, ok := DateRules.First(text); ok {
			f.StickerDate = entity.StringPtr(datefmt.Normalize(v))
			res.fired(entity.FieldStickerDate, rule, true)
		}
	}
	if q, rule := Quantity(text); q != nil {
		f.TotalQuantity = q
		res.fired(entity.FieldTotalQuantity, rule, true)
	}
	if _, rule, ok := BrandRules.First(text); ok {
		f.HasFritoLay = true
		res.fired(entity.FieldHasFritoLay, rule, true)
	}
	return res
}

// Degraded is the FieldSet for a page whose text could not be recognized:
// every text-derived field is absent and only the supplied flags are set.
func Degraded(sig entity.Signals) entity.FieldSet {
	f := entity.NewFieldSet()
	f.HasSignature = sig.HasSignature
	f.HasSticker = sig.HasSticker
	return f
}

func (r *Result) fired(field, rule string, parsed bool) {
	if parsed {
		r.Fired[field] = rule
	}
}

// Quantity looks first at lines carrying a quantity keyword, then at the whole
// text. The first candidate that parses as a number (or a not-available token)
// ends the search; zero and negative values then collapse to absent.
func Quantity(text string) (*entity.Quantity, string) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !reQuantityLine.MatchString(line) {
			continue
		}
		if q, rule, done := quantityCandidate(line); done {
			return q, rule
		}
	}
	if q, rule, done := quantityCandidate(text); done {
		return q, rule
	}
	return nil, ""
}

func quantityCandidate(text string) (*entity.Quantity, string, bool) {
	v, rule, ok := QuantityRules.First(text)
	if !ok {
		return nil, "", false
	}
	if entity.IsNotAvailableToken(v) {
		return entity.SentinelQuantity(), rule, true
	}
	if !parsesAsNumber(v) {
		return nil, "", false
	}
	q := entity.ParseQuantity(v)
	if q == nil {
		return nil, "", true
	}
	return q, rule, true
}

func parsesAsNumber(v string) bool {
	_, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	return err == nil
}
