package constants

// ProcessingStatus is the document-level outcome stored in results and ledger rows.
type ProcessingStatus string

// Stable values (store these exact strings in the ledger).
const (
	StatusSuccess ProcessingStatus = "Success" // every page recognized
	StatusPartial ProcessingStatus = "Partial" // some pages failed recognition
	StatusFailed  ProcessingStatus = "Failed"  // document-level failure
)

var allStatuses = []ProcessingStatus{StatusSuccess, StatusFailed, StatusPartial}

// ValidStatus reports whether s is one of the stable status strings.
func ValidStatus(s string) bool {
	for _, st := range allStatuses {
		if string(st) == s {
			return true
		}
	}
	return false
}

// UpdateMark records whether a page contributed a field to the master record.
type UpdateMark string

const (
	Updated UpdateMark = "UPDATED"
	Skipped UpdateMark = "SKIPPED"
)

// Validity is the derived document classification.
type Validity string

const (
	Valid   Validity = "Valid"
	Invalid Validity = "Invalid"
)

// NotAvailable is the sentinel for "not applicable" values, distinct from absent.
const NotAvailable = "Not Available"

// ProcessType tags how a ledger row was produced.
type ProcessType string

const (
	ProcessSingle ProcessType = "Single"
	ProcessBatch  ProcessType = "Batch"
)
