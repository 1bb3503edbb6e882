package models

import "time"

// SystemMetrics is a lightweight snapshot of runtime counters for the
// operator dashboard.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"avg_request_duration_ms"`
	ReceiptsSubmitted        uint64    `json:"receipts_submitted"`
	ReceiptsDecided          uint64    `json:"receipts_decided"`
	TransitionsIgnored       uint64    `json:"transitions_ignored"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
