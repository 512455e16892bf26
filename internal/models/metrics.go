package models

import "time"

// SystemMetrics is the one-page runtime summary served by the system
// status endpoint. The full series lives on the Prometheus registry; this
// aggregate keeps the UI status widget off the scrape path.
type SystemMetrics struct {
	Requests    RequestCounters  `json:"requests"`
	Cache       CacheCounters    `json:"cache"`
	Snapshots   SnapshotCounters `json:"snapshots"`
	Goroutines  int              `json:"goroutines"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// RequestCounters aggregates HTTP traffic since process start.
type RequestCounters struct {
	Total         uint64  `json:"total"`
	AverageMillis float64 `json:"average_ms"`
}

// CacheCounters aggregates Redis lookup outcomes since process start.
type CacheCounters struct {
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
}

// SnapshotCounters aggregates store persistence work since process start.
type SnapshotCounters struct {
	Saves         uint64  `json:"saves"`
	AverageMillis float64 `json:"average_ms"`
}
