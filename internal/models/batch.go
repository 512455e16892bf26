package models

import "time"

// BatchStatus tracks the outcome of ingesting one source file.
type BatchStatus string

const (
	BatchProcessed       BatchStatus = "Processed"
	BatchProcessedHalted BatchStatus = "Processed_halted"
	BatchError           BatchStatus = "Error"
)

// Batch records one ingestion run over a source file. Clipboard captures
// become file batches through their saved Clipboard_<epoch>.txt path.
type Batch struct {
	Path        string      `json:"path"`
	Source      LinkSource  `json:"source"`
	Status      BatchStatus `json:"status"`
	SizeBytes   int64       `json:"size_bytes"`
	LinksFound  int         `json:"links_found"`
	ProcessedAt time.Time   `json:"processed_at"`
}

// Resumable reports whether the batch halted mid-run and may be re-ingested.
func (b Batch) Resumable() bool {
	return b.Status == BatchProcessedHalted
}
