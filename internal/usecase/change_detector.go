package usecase

import "github.com/user/slot-watcher/internal/entity"

// ChangeDetector compares fresh payloads with the last known state of a source.
type ChangeDetector struct {
	states *SourceStates
}

// NewChangeDetector creates a detector over states. Tests may pre-populate states.
func NewChangeDetector(states *SourceStates) *ChangeDetector {
	if states == nil {
		states = NewSourceStates()
	}
	return &ChangeDetector{states: states}
}

// Classify reports whether the fingerprint changed and how availability moved.
// The source state is updated afterwards whatever the outcome.
func (d *ChangeDetector) Classify(sourceID string, payload *entity.Payload) entity.Classification {
	prev, known := d.states.Get(sourceID)

	result := entity.Classification{Transition: entity.TransitionUnchanged}
	if !known || prev.LastFingerprint != payload.Fingerprint {
		result.Changed = true
		// an unknown previous count counts as zero
		result.Transition = classifyTransition(prev.LastAvailableCount, payload.AvailableCount)
	}

	d.states.Put(sourceID, entity.SourceState{
		LastFingerprint:    payload.Fingerprint,
		LastAvailableCount: payload.AvailableCount,
	})
	return result
}

func classifyTransition(prevCount, newCount int) entity.Transition {
	switch {
	case prevCount == 0 && newCount > 0:
		return entity.TransitionBecameAvailable
	case prevCount > 0 && newCount == 0:
		return entity.TransitionBecameUnavailable
	case newCount == 0:
		return entity.TransitionNoAppointments
	default:
		return entity.TransitionContentChanged
	}
}
