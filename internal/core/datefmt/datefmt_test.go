package datefmt

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"dotted month abbrev", "04.Jul.2025", "07/04/2025"},
		{"dotted same day month", "07.Jul.2025", "07/07/2025"},
		{"dotted december", "25.Dec.2025", "12/25/2025"},
		{"dotted lower case", "4.jul.2025", "07/04/2025"},
		{"spaced full month", "4 July 2025", "07/04/2025"},
		{"month first padded", "7/4/2025", "07/04/2025"},
		{"already canonical", "07/04/2025", "07/04/2025"},
		{"ambiguous stays month first", "04/07/2025", "04/07/2025"},
		{"impossible month swaps", "13/04/2025", "04/13/2025"},
		{"both over twelve kept", "13/14/2025", "13/14/2025"},
		{"dashed numeric", "7-4-2025", "07/04/2025"},
		{"month name first", "Jul 04, 2025", "07/04/2025"},
		{"month name no comma", "July 4 2025", "07/04/2025"},
		{"iso", "2025-07-04", "07/04/2025"},
		{"iso slashes", "2025/7/4", "07/04/2025"},
		{"two digit year verbatim", "7/4/25", "7/4/25"},
		{"unrecognized verbatim", "sometime soon", "sometime soon"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeRule(t *testing.T) {
	if _, rule := NormalizeRule("2025-07-04"); rule != "yyyy-mm-dd" {
		t.Errorf("rule = %q, want yyyy-mm-dd", rule)
	}
	if _, rule := NormalizeRule("n/a"); rule != "" {
		t.Errorf("rule = %q, want none", rule)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, in := range []string{"04.Jul.2025", "13/04/2025", "Jul 04, 2025", "2025-07-04"} {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not stable for %q: %q then %q", in, once, twice)
		}
	}
}
