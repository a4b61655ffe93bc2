// Package datefmt canonicalizes the date shapes found on invoices into MM/DD/YYYY.
package datefmt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Layout is the canonical output shape.
const Layout = "MM/DD/YYYY"

// rule recognizes one input shape anchored at the start of the string and
// returns month, day and year components when it applies.
type rule struct {
	name    string
	pattern *regexp.Regexp
	parse   func(m []string) (month, day int, year string, ok bool)
}

const monthNames = `(Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:t|tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)`

var months = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// rules run in order; the first one that matches wins.
var rules = []rule{
	{
		name:    "dd.mon.yyyy",
		pattern: regexp.MustCompile(`(?i)^(\d{1,2})[.\-/\s]` + monthNames + `[.\-/\s](\d{4})`),
		parse: func(m []string) (int, int, string, bool) {
			day, _ := strconv.Atoi(m[1])
			return monthNumber(m[2]), day, m[3], true
		},
	},
	{
		name:    "a/b/yyyy",
		pattern: regexp.MustCompile(`^(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4})`),
		parse: func(m []string) (int, int, string, bool) {
			a, _ := strconv.Atoi(m[1])
			b, _ := strconv.Atoi(m[2])
			// Only an impossible month flips the order; ambiguous input stays month-first.
			if a > 12 && b <= 12 {
				return b, a, m[3], true
			}
			return a, b, m[3], true
		},
	},
	{
		name:    "mon dd, yyyy",
		pattern: regexp.MustCompile(`(?i)^` + monthNames + `\s+(\d{1,2}),?\s+(\d{4})`),
		parse: func(m []string) (int, int, string, bool) {
			day, _ := strconv.Atoi(m[2])
			return monthNumber(m[1]), day, m[3], true
		},
	},
	{
		name:    "yyyy-mm-dd",
		pattern: regexp.MustCompile(`^(\d{4})[\-/.](\d{1,2})[\-/.](\d{1,2})`),
		parse: func(m []string) (int, int, string, bool) {
			month, _ := strconv.Atoi(m[2])
			day, _ := strconv.Atoi(m[3])
			return month, day, m[1], true
		},
	},
}

// Normalize renders s as MM/DD/YYYY when a known shape is recognized and
// returns it unchanged otherwise. It never fails.
func Normalize(s string) string {
	out, _ := NormalizeRule(s)
	return out
}

// NormalizeRule is Normalize plus the name of the rule that fired ("" when none did).
func NormalizeRule(s string) (string, string) {
	in := strings.TrimSpace(s)
	if in == "" {
		return s, ""
	}
	for _, r := range rules {
		m := r.pattern.FindStringSubmatch(in)
		if m == nil {
			continue
		}
		month, day, year, ok := r.parse(m)
		if !ok {
			continue
		}
		return fmt.Sprintf("%02d/%02d/%s", month, day, year), r.name
	}
	return s, ""
}

func monthNumber(name string) int {
	key := strings.ToLower(name)
	if len(key) > 3 {
		key = key[:3]
	}
	if n, ok := months[key]; ok {
		return n
	}
	return 1
}
