package entity

import "github.com/rkocherlakota/pepsico-dpod-target/constants"

// BatchSummary reports a folder run.
type BatchSummary struct {
	RunID          string      `json:"run_id"`
	TotalFiles     int         `json:"total_files"`
	Successful     int         `json:"successful"`
	Partial        int         `json:"partial"`
	Failed         int         `json:"failed"`
	OutputFile     string      `json:"output_file"`
	ProcessingTime float64     `json:"processing_time"`
	Results        []LedgerRow `json:"-"`
}

// Count tallies one row's status into the summary.
func (b *BatchSummary) Count(status constants.ProcessingStatus) {
	b.TotalFiles++
	switch status {
	case constants.StatusSuccess:
		b.Successful++
	case constants.StatusPartial:
		b.Partial++
	default:
		b.Failed++
	}
}

// SuccessRate is the percentage of files that produced a record (Success or Partial).
func (b BatchSummary) SuccessRate() float64 {
	if b.TotalFiles == 0 {
		return 0
	}
	return float64(b.Successful+b.Partial) / float64(b.TotalFiles) * 100
}
