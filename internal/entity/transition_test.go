package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransition_Alerting(t *testing.T) {
	alerting := map[Transition]bool{
		TransitionUnchanged:         false,
		TransitionNoAppointments:    false,
		TransitionBecameAvailable:   true,
		TransitionBecameUnavailable: true,
		TransitionContentChanged:    false,
	}
	for tr, want := range alerting {
		assert.Equal(t, want, tr.Alerting(), tr.String())
	}
}
