package entity

import "time"

// Alert priorities as understood by the push service.
const (
	PriorityBoot              = -2
	PriorityBecameUnavailable = -1
	PriorityBailOut           = 0
	PriorityBecameAvailable   = 1
)

// Alert is one outbound notification.
type Alert struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}
