package ocr

import (
	"regexp"
	"strings"
)

var (
	reDate    = regexp.MustCompile(`\b\d{1,4}[/\-.]\d{1,2}[/\-.]\d{2,4}\b`)
	reLabel   = regexp.MustCompile(`\b(invoice|document|store|inv)\b`)
	reQtyWord = regexp.MustCompile(`\b(qty|quantity|total|amount)\b`)
)

// heuristicConfidence scores recognized text by the invoice landmarks it contains.
// It is reported alongside each page and never gates extraction.
func heuristicConfidence(txt string) float32 {
	if strings.TrimSpace(txt) == "" {
		return 0
	}
	txtL := strings.ToLower(txt)
	score := float32(0.2) // base
	if reDate.MatchString(txtL) {
		score += 0.2
	}
	if reLabel.MatchString(txtL) {
		score += 0.25
	}
	if reQtyWord.MatchString(txtL) {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.1
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}
