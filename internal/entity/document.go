package entity

import (
	"time"

	"github.com/rkocherlakota/pepsico-dpod-target/constants"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
)

// PageRecord is one page's extraction plus its merge provenance.
type PageRecord struct {
	Page           int                             `json:"page"`
	Fields         FieldSet                        `json:"page_fields"`
	UpdatesApplied map[string]constants.UpdateMark `json:"updates_applied"`
	Error          string                          `json:"error,omitempty"`
}

// DocumentResult is the consolidated outcome for one document.
type DocumentResult struct {
	Filename         string                     `json:"filename"`
	TotalPages       int                        `json:"total_pages"`
	MasterFields     FieldSet                   `json:"master_fields"`
	FieldsFound      []string                   `json:"fields_found"`
	PageDetails      []PageRecord               `json:"page_details"`
	ProcessingStatus constants.ProcessingStatus `json:"processing_status"`
	ErrorMessage     string                     `json:"error_message"`

	Timing Timing `json:"-"`
}

// Timing carries the batch/timing columns written alongside a result.
type Timing struct {
	ProcessType constants.ProcessType
	Start       time.Time
	End         time.Time
}

// Seconds is the elapsed processing time, or nil when timing was not recorded.
func (t Timing) Seconds() *float64 {
	if t.Start.IsZero() || t.End.IsZero() {
		return nil
	}
	s := t.End.Sub(t.Start).Seconds()
	return &s
}

// FailedResult is the record produced when a whole document could not be processed.
func FailedResult(filename string, err error) DocumentResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return DocumentResult{
		Filename:         filename,
		MasterFields:     NewFieldSet(),
		FieldsFound:      []string{},
		PageDetails:      []PageRecord{},
		ProcessingStatus: constants.StatusFailed,
		ErrorMessage:     msg,
	}
}

// Validate checks the structural invariants of a result.
func (d DocumentResult) Validate() error {
	v := common.NewValidator()
	v.Field("filename", d.Filename, common.Required, common.SafeFilename)
	v.Field("total_pages", d.TotalPages, common.NonNegative)
	v.Field("processing_status", d.ProcessingStatus, common.KnownStatus)
	return v.Error()
}
