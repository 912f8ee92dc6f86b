package models

import "time"

// ArchiveEntry is one stored snapshot of a target's page content.
type ArchiveEntry struct {
	TargetID    string    `json:"target_id" parquet:"target_id"`
	Owner       string    `json:"owner" parquet:"owner"`
	URL         string    `json:"url" parquet:"url"`
	ContentHash string    `json:"content_hash" parquet:"content_hash"`
	Content     string    `json:"content" parquet:"content,zstd"`
	CapturedAt  time.Time `json:"captured_at" parquet:"captured_at,timestamp(millisecond)"`
}
