package models

import "time"

// LinkStatus enumerates the lifecycle states of a tracked link.
type LinkStatus string

const (
	StatusToDownload  LinkStatus = "to_download"
	StatusToSkip      LinkStatus = "to_skip"
	StatusDeleted     LinkStatus = "deleted"
	StatusToReprocess LinkStatus = "to_reprocess"
	StatusToSkipLimit LinkStatus = "to_skip_limit"
	StatusDownloading LinkStatus = "downloading"
	StatusDownloaded  LinkStatus = "downloaded"
	StatusFailed      LinkStatus = "failed"
)

// Valid reports whether s is a known status value.
func (s LinkStatus) Valid() bool {
	switch s {
	case StatusToDownload, StatusToSkip, StatusDeleted, StatusToReprocess,
		StatusToSkipLimit, StatusDownloading, StatusDownloaded, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the download pipeline is finished with a link
// in this state.
func (s LinkStatus) IsTerminal() bool {
	return s == StatusDownloaded || s == StatusFailed
}

// InFlight reports whether a download is currently running for this state.
func (s LinkStatus) InFlight() bool {
	return s == StatusDownloading
}

// LinkSource identifies where a link was ingested from.
type LinkSource string

const (
	SourceFile      LinkSource = "file"
	SourceClipboard LinkSource = "clipboard"
)

// Link is a single tracked URL. Links are never removed from the store;
// deletion is expressed through Status plus the Deleted flag.
type Link struct {
	URL             string     `json:"url"`
	Status          LinkStatus `json:"status"`
	FilterMatchedID *int64     `json:"filter_matched_id,omitempty"`
	Deleted         bool       `json:"deleted"`
	LimitReason     *string    `json:"limit_reason,omitempty"`
	Source          LinkSource `json:"source,omitempty"`
	SourceFile      string     `json:"source_file,omitempty"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
	ItemsCount      int        `json:"items_count,omitempty"`
	SizeMB          float64    `json:"size_mb,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Tokens caches the comparison-token sequence derived from URL.
	// Recomputed on demand, never persisted.
	Tokens []string `json:"-"`
}

// LinkQuery captures filtering criteria for listing links. A zero Status
// matches every status; a nil Deleted matches both flag states.
type LinkQuery struct {
	Status   LinkStatus
	Deleted  *bool
	Search   string
	Page     int
	PageSize int
}

// LinkStats aggregates store-wide counts per status bucket.
type LinkStats struct {
	Total    int                `json:"total"`
	Deleted  int                `json:"deleted"`
	ByStatus map[LinkStatus]int `json:"by_status"`
}
