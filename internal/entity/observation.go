package entity

import "time"

// Observation mirrors the `observations` PostgreSQL table schema.
// One row is written per poll attempt; rows are never read back by the watcher.
type Observation struct {
	ID             int64
	SourceID       string
	Kind           string
	Fingerprint    string
	AvailableCount int
	Changed        bool
	Transition     string
	FailureReason  string
	ObservedAt     time.Time
	DurationMS     int
}
