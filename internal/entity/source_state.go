package entity

// SourceState is the last known result for one source. A source without a
// state has never been polled successfully.
type SourceState struct {
	LastFingerprint    string
	LastAvailableCount int
}
