package extract

import (
	"regexp"
	"strings"
)

// Rule is one step of a precedence chain. A rule fires when Pattern matches and
// Accept (if set) approves the match; the first capture group is the value,
// or the whole match when the pattern has no groups.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Accept  func(text string, loc []int) bool
}

// Find scans text for the first acceptable match of r.
func (r Rule) Find(text string) (string, bool) {
	for _, loc := range r.Pattern.FindAllStringSubmatchIndex(text, -1) {
		if r.Accept != nil && !r.Accept(text, loc) {
			continue
		}
		if len(loc) >= 4 && loc[2] >= 0 {
			return text[loc[2]:loc[3]], true
		}
		return text[loc[0]:loc[1]], true
	}
	return "", false
}

// Chain is an ordered list of rules evaluated short-circuit.
type Chain []Rule

// First returns the value and rule name of the first rule that fires.
func (c Chain) First(text string) (value, rule string, ok bool) {
	for _, r := range c {
		if v, hit := r.Find(text); hit {
			return v, r.Name, true
		}
	}
	return "", "", false
}

const (
	monthAlt  = `(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:t|tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)`
	dayAlt    = `(?:0?[1-9]|[12][0-9]|3[01])`
	monthNum  = `(?:0?[1-9]|1[0-2])`
	yearShape = `(?:20)?\d{2}`
	number    = `([-]?[0-9,]+(?:\.[0-9]+)?)`
	naToken   = `(N/A|NA|NOT\s+AVAIL(?:ABLE)?|UNAVAILABLE)`
)

var reDateLabel = regexp.MustCompile(`(?i)^\s+DATE\b`)

// notDateLabel rejects "INVOICE DATE" style hits: either the captured token is
// the word DATE or the match is immediately followed by it.
func notDateLabel(text string, loc []int) bool {
	if len(loc) >= 4 && loc[2] >= 0 && strings.EqualFold(text[loc[2]:loc[3]], "DATE") {
		return false
	}
	return !reDateLabel.MatchString(text[loc[1]:])
}

// InvoiceNumberRules: DOCUMENT label, then INVOICE label, then INV abbreviation.
var InvoiceNumberRules = Chain{
	{Name: "document", Pattern: regexp.MustCompile(`(?i)\bDOCUMENT\s*(?:NO\.?|#|NUMBER)?\s*[:\-]?\s*([A-Z0-9\-]+)\b`)},
	{Name: "invoice", Pattern: regexp.MustCompile(`(?i)\bINVOICE\s*(?:NO\.?|#|NUMBER)?\s*[:\-]?\s*([A-Z0-9\-]+)\b`), Accept: notDateLabel},
	{Name: "inv", Pattern: regexp.MustCompile(`(?i)\bINV\s*(?:NO\.?|#)?\s*[:\-]?\s*([A-Z0-9\-]+)\b`)},
}

// StoreNumberRules recognizes "STORE NUMBER: 2516" and "STORE NO. 2516".
var StoreNumberRules = Chain{
	{Name: "store", Pattern: regexp.MustCompile(`(?i)\bSTORE\s*(?:NUMBER|NO\.?)\s*[:\-]?\s*([A-Z0-9\-]{2,})\b`)},
}

// DateRules are shared by invoice_date and sticker_date; the whole match is the value.
var DateRules = Chain{
	{Name: "mm/dd/yyyy", Pattern: regexp.MustCompile(`(?i)\b` + monthNum + `[/\-.]` + dayAlt + `[/\-.]` + yearShape + `\b`)},
	{Name: "dd mon yyyy", Pattern: regexp.MustCompile(`(?i)\b` + dayAlt + `[.\-/\s]` + monthAlt + `[.\-/\s]` + yearShape + `\b`)},
	{Name: "mon dd, yyyy", Pattern: regexp.MustCompile(`(?i)\b` + monthAlt + `\s+` + dayAlt + `,?\s+` + yearShape + `\b`)},
	{Name: "yyyy/mm/dd", Pattern: regexp.MustCompile(`(?i)\b` + yearShape + `[/\-.]` + monthNum + `[/\-.]` + dayAlt + `\b`)},
}

// QuantityRules handle labelled totals with signed numbers, thousands
// separators, the TOTAL EACHES SOLD variant, and a trailing not-available token.
var QuantityRules = Chain{
	{Name: "total qty", Pattern: regexp.MustCompile(`(?i)\bTOTAL\s*(?:QTY|QUANTITY)\s*[:\-]?\s*` + number + `\b`)},
	{Name: "qty total", Pattern: regexp.MustCompile(`(?i)\b(?:QTY|QUANTITY)\s*TOTAL\s*[:\-]?\s*` + number + `\b`)},
	{Name: "total n qty", Pattern: regexp.MustCompile(`(?i)\bTOTAL\s*[:\-]?\s*` + number + `\s*(?:QTY|QUANTITY)\b`)},
	{Name: "total", Pattern: regexp.MustCompile(`(?i)\bTOTAL\s*[:\-]?\s*` + number + `\b`)},
	{Name: "qty", Pattern: regexp.MustCompile(`(?i)\b(?:QTY|QUANTITY)\s*[:\-]?\s*` + number + `\b`)},
	{Name: "amount", Pattern: regexp.MustCompile(`(?i)\bAMOUNT\s*[:\-]?\s*` + number + `\b`)},
	{Name: "total eaches sold", Pattern: regexp.MustCompile(`(?i)\bTOTAL\s*EACHES\s*SOLD\s*[:\-]?\s*` + number + `\b`)},
	{Name: "qty not available", Pattern: regexp.MustCompile(`(?i)\b(?:TOTAL\s*)?(?:QTY|QUANTITY)\s*[:\-]?\s*` + naToken + `\b`)},
}

// reQuantityLine selects the lines scanned before the full-text fallback.
var reQuantityLine = regexp.MustCompile(`(?i)\b(QTY|QUANTITY|TOTAL|AMOUNT)\b`)

// BrandRules are the Frito-Lay spellings: FRITO LAY, FRITO-LAY, FRITOLAY.
var BrandRules = Chain{
	{Name: "frito lay", Pattern: regexp.MustCompile(`(?i)\bFRITO[\s\-]*LAY\b`)},
}
