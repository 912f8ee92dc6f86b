package models

import "time"

// CheckResult is the state written back after one check cycle.
// NewSentHashes only ever holds digests whose delivery succeeded.
type CheckResult struct {
	TargetID      string
	ContentHash   string
	Content       string
	NewSentHashes []string
	Documents     []Document
	CheckedAt     time.Time
}

// CycleReport summarizes a check cycle for logs, stats and metrics.
type CycleReport struct {
	TargetID       string
	Skipped        bool
	Unreachable    bool
	ContentChanged bool
	Discovered     int
	Delivered      int
	Failed         int
	Filtered       int
	Duration       time.Duration
}
