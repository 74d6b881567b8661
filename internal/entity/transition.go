package entity

// Transition classifies the change between two successive probes of the same source.
type Transition int

const (
	TransitionUnchanged Transition = iota
	// TransitionNoAppointments: content changed, still nothing bookable.
	TransitionNoAppointments
	TransitionBecameAvailable
	TransitionBecameUnavailable
	// TransitionContentChanged: content changed, still something bookable.
	TransitionContentChanged
)

func (t Transition) String() string {
	switch t {
	case TransitionUnchanged:
		return "unchanged"
	case TransitionNoAppointments:
		return "no_appointments"
	case TransitionBecameAvailable:
		return "became_available"
	case TransitionBecameUnavailable:
		return "became_unavailable"
	case TransitionContentChanged:
		return "content_changed"
	default:
		return "unknown"
	}
}

// Alerting reports whether the transition is worth a notification.
func (t Transition) Alerting() bool {
	return t == TransitionBecameAvailable || t == TransitionBecameUnavailable
}

// Classification is the outcome of comparing a payload against the last known source state.
type Classification struct {
	Changed    bool
	Transition Transition
}
