package constants

import "strings"

// Source formats understood by the page sources.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// AllowedExtensions holds the file extensions accepted for extraction.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// AllowedExt checks a (possibly dotted) extension against AllowedExtensions.
func AllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// MapExtToFormat maps an extension to PDF or IMAGE; "" when unsupported.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png":
		return IMAGE
	default:
		return ""
	}
}

// TimestampLayout is the layout of start_time / end_time ledger columns.
const TimestampLayout = "2006-01-02 15:04:05"

// DefaultLedgerFile is the workbook name used when no ledger path is configured.
const DefaultLedgerFile = "dpod_target_results.xlsx"
