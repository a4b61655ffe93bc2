package entity

import (
	"strconv"
	"strings"

	"github.com/rkocherlakota/pepsico-dpod-target/constants"
)

// Ledger column names, in persisted order.
const (
	ColFilename         = "filename"
	ColProcessingStatus = "processing_status"
	ColErrorMessage     = "error_message"
	ColProcessType      = "process_type"
	ColStartTime        = "start_time"
	ColEndTime          = "end_time"
	ColProcessingTime   = "processing_time"
)

// LedgerColumns is the fixed schema; stores may carry extra columns after these.
var LedgerColumns = []string{
	ColFilename,
	FieldInvoiceNumber,
	FieldStoreNumber,
	FieldInvoiceDate,
	FieldStickerDate,
	FieldTotalQuantity,
	FieldHasFritoLay,
	FieldHasSignature,
	FieldHasSticker,
	FieldIsValid,
	ColProcessingStatus,
	ColErrorMessage,
	ColProcessType,
	ColStartTime,
	ColEndTime,
	ColProcessingTime,
}

// EmptyMarker fills columns a row has no value for.
const EmptyMarker = ""

// Display tokens for booleans in the persisted form.
const (
	Yes = "Yes"
	No  = "No"
)

// LedgerRow is the persisted projection of a DocumentResult, keyed by Filename.
type LedgerRow struct {
	Filename         string
	InvoiceNumber    *int64
	StoreNumber      *int64
	InvoiceDate      string
	StickerDate      string
	TotalQuantity    *Quantity
	HasFritoLay      bool
	HasSignature     bool
	HasSticker       bool
	IsValid          constants.Validity
	ProcessingStatus constants.ProcessingStatus
	ErrorMessage     string
	ProcessType      constants.ProcessType
	StartTime        string
	EndTime          string
	ProcessingTime   *float64

	// Extra holds values of columns outside LedgerColumns found in an existing store.
	Extra map[string]string
}

// RowFromResult projects a finalized result into a ledger row.
func RowFromResult(d DocumentResult) LedgerRow {
	m := d.MasterFields
	row := LedgerRow{
		Filename:         d.Filename,
		InvoiceNumber:    m.InvoiceNumber,
		StoreNumber:      m.StoreNumber,
		InvoiceDate:      deref(m.InvoiceDate),
		StickerDate:      deref(m.StickerDate),
		TotalQuantity:    m.TotalQuantity,
		HasFritoLay:      m.HasFritoLay,
		HasSignature:     m.HasSignature,
		HasSticker:       m.HasSticker,
		IsValid:          m.IsValid,
		ProcessingStatus: d.ProcessingStatus,
		ErrorMessage:     d.ErrorMessage,
	}
	if row.IsValid == "" {
		row.IsValid = constants.Invalid
	}
	row.applyTiming(d.Timing)
	return row
}

// RowFromFailed builds the row for a document that never produced a result.
func RowFromFailed(filename, errMsg string, t Timing) LedgerRow {
	row := LedgerRow{
		Filename:         filename,
		IsValid:          constants.Invalid,
		ProcessingStatus: constants.StatusFailed,
		ErrorMessage:     errMsg,
	}
	row.applyTiming(t)
	return row
}

func (r *LedgerRow) applyTiming(t Timing) {
	r.ProcessType = t.ProcessType
	if r.ProcessType == "" {
		r.ProcessType = constants.ProcessSingle
	}
	if !t.Start.IsZero() {
		r.StartTime = t.Start.Format(constants.TimestampLayout)
	}
	if !t.End.IsZero() {
		r.EndTime = t.End.Format(constants.TimestampLayout)
	}
	r.ProcessingTime = t.Seconds()
}

// Record renders the row as column -> display string, including extra columns.
func (r LedgerRow) Record() map[string]string {
	rec := make(map[string]string, len(LedgerColumns)+len(r.Extra))
	for k, v := range r.Extra {
		rec[k] = v
	}
	rec[ColFilename] = r.Filename
	rec[FieldInvoiceNumber] = formatInt(r.InvoiceNumber)
	rec[FieldStoreNumber] = formatInt(r.StoreNumber)
	rec[FieldInvoiceDate] = r.InvoiceDate
	rec[FieldStickerDate] = r.StickerDate
	rec[FieldTotalQuantity] = EmptyMarker
	if r.TotalQuantity != nil {
		rec[FieldTotalQuantity] = r.TotalQuantity.String()
	}
	rec[FieldHasFritoLay] = YesNo(r.HasFritoLay)
	rec[FieldHasSignature] = YesNo(r.HasSignature)
	rec[FieldHasSticker] = YesNo(r.HasSticker)
	rec[FieldIsValid] = string(r.IsValid)
	rec[ColProcessingStatus] = string(r.ProcessingStatus)
	rec[ColErrorMessage] = r.ErrorMessage
	rec[ColProcessType] = string(r.ProcessType)
	rec[ColStartTime] = r.StartTime
	rec[ColEndTime] = r.EndTime
	rec[ColProcessingTime] = EmptyMarker
	if r.ProcessingTime != nil {
		rec[ColProcessingTime] = strconv.FormatFloat(*r.ProcessingTime, 'f', 3, 64)
	}
	return rec
}

// Values renders the row in the order of header; unknown columns get EmptyMarker.
func (r LedgerRow) Values(header []string) []string {
	rec := r.Record()
	out := make([]string, len(header))
	for i, col := range header {
		out[i] = rec[col]
	}
	return out
}

// RowFromRecord parses a stored record back into a row, tolerating the
// spellings spreadsheet tools produce for booleans and validity.
func RowFromRecord(rec map[string]string) LedgerRow {
	row := LedgerRow{
		Filename:         strings.TrimSpace(rec[ColFilename]),
		InvoiceNumber:    ParseInvoiceInt(rec[FieldInvoiceNumber]),
		StoreNumber:      ParseInvoiceInt(rec[FieldStoreNumber]),
		InvoiceDate:      rec[FieldInvoiceDate],
		StickerDate:      rec[FieldStickerDate],
		TotalQuantity:    ParseQuantity(rec[FieldTotalQuantity]),
		HasFritoLay:      ParseBool(rec[FieldHasFritoLay]),
		HasSignature:     ParseBool(rec[FieldHasSignature]),
		HasSticker:       ParseBool(rec[FieldHasSticker]),
		IsValid:          ParseValidity(rec[FieldIsValid]),
		ProcessingStatus: constants.ProcessingStatus(rec[ColProcessingStatus]),
		ErrorMessage:     rec[ColErrorMessage],
		ProcessType:      constants.ProcessType(rec[ColProcessType]),
		StartTime:        rec[ColStartTime],
		EndTime:          rec[ColEndTime],
	}
	if s := strings.TrimSpace(rec[ColProcessingTime]); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			row.ProcessingTime = &v
		}
	}
	known := make(map[string]struct{}, len(LedgerColumns))
	for _, c := range LedgerColumns {
		known[c] = struct{}{}
	}
	for k, v := range rec {
		if _, ok := known[k]; ok {
			continue
		}
		if row.Extra == nil {
			row.Extra = map[string]string{}
		}
		row.Extra[k] = v
	}
	return row
}

// YesNo renders a boolean as its display token.
func YesNo(b bool) string {
	if b {
		return Yes
	}
	return No
}

// ParseBool accepts TRUE/1/YES/Y (any case) as true; everything else is false.
func ParseBool(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRUE", "1", "YES", "Y":
		return true
	default:
		return false
	}
}

// ParseValidity maps valid/true/yes/y/1 to Valid and anything else to Invalid.
func ParseValidity(s string) constants.Validity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "valid", "true", "yes", "y", "1":
		return constants.Valid
	default:
		return constants.Invalid
	}
}

func formatInt(p *int64) string {
	if p == nil {
		return EmptyMarker
	}
	return strconv.FormatInt(*p, 10)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
