package repository

import "errors"

var (
	// ErrProbeTimeout is returned when a bounded wait for a selector or a response elapses.
	ErrProbeTimeout = errors.New("probe timed out")
	// ErrRateLimited is returned when the remote side signals that we are being throttled.
	ErrRateLimited = errors.New("probe rate limited")
	// ErrProbeTransport covers any other automation or transport fault.
	ErrProbeTransport = errors.New("probe transport failure")
	// ErrUnclassifiedSource is returned when no probe exists for a source's kind.
	ErrUnclassifiedSource = errors.New("unclassified source")
	// ErrNotificationDelivery is returned by notifiers when a message could not be delivered.
	ErrNotificationDelivery = errors.New("notification delivery failed")
	// ErrConfiguration is fatal at startup.
	ErrConfiguration = errors.New("invalid configuration")
)
