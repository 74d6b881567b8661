package response

import "time"

// SchedulerStatusResponse is a DTO for usecase.Snapshot.
type SchedulerStatusResponse struct {
	State               string     `json:"state"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	Queue               []string   `json:"queue"`
	LastPollAt          *time.Time `json:"last_poll_at,omitempty"`
	LastSourceID        string     `json:"last_source_id,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
}

// HealthResponse reports the reachability of optional backends.
type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}
