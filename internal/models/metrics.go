package models

import "time"

// SystemMetrics is a point-in-time summary of process instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	VendorFetches            uint64    `json:"vendor_fetches"`
	VendorFailures           uint64    `json:"vendor_failures"`
	AverageVendorDurationMs  float64   `json:"average_vendor_duration_ms"`
	DroppedRecords           uint64    `json:"dropped_records"`
	SyncJobsSucceeded        uint64    `json:"sync_jobs_succeeded"`
	SyncJobsFailed           uint64    `json:"sync_jobs_failed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
