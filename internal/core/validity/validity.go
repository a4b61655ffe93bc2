// Package validity stamps a merged record with its document-level classification.
package validity

import (
	"github.com/rkocherlakota/pepsico-dpod-target/constants"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
)

// Classify is Valid only when both a sticker and a signature were detected.
func Classify(sig entity.Signals) constants.Validity {
	if sig.HasSticker && sig.HasSignature {
		return constants.Valid
	}
	return constants.Invalid
}

// Evaluate returns master with is_valid set. Without a detected sticker the
// sticker_date is replaced by the not-applicable sentinel, whatever the text said.
func Evaluate(master entity.FieldSet, sig entity.Signals) entity.FieldSet {
	out := master.Clone()
	out.IsValid = Classify(sig)
	if !sig.HasSticker {
		out.StickerDate = entity.StringPtr(constants.NotAvailable)
	}
	return out
}
