package entity

// Payload is the result of one successful probe. It is not retained beyond classification.
type Payload struct {
	AvailableCount int
	RawContent     string
	Fingerprint    string
}
