package modelhealth

import "time"

// Status is the health classification of a model.
type Status string

// Health statuses.
const (
	StatusOperational Status = "operational"
	StatusError       Status = "error"
	StatusLimited     Status = "limited"
	StatusUnknown     Status = "unknown"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOperational, StatusError, StatusLimited, StatusUnknown:
		return true
	}
	return false
}

// Record is the latest health check result of one model.
type Record struct {
	// ModelID is the prefixed model id
	ModelID string `json:"model_id"`

	// Status is the outcome of the last check
	Status Status `json:"status"`

	// LatencyMs is the latency of the successful attempt; nil on failure
	LatencyMs *int64 `json:"latency_ms"`

	// LastCheckedAt is when the check finished
	LastCheckedAt time.Time `json:"last_checked_at"`

	// LastError is the last failure message, if any
	LastError string `json:"last_error,omitempty"`

	// Attempts is the number of attempts the check made
	Attempts int `json:"attempts"`
}

// Latency returns the latency as a duration, or 0 when unknown.
func (r Record) Latency() time.Duration {
	if r.LatencyMs == nil {
		return 0
	}
	return time.Duration(*r.LatencyMs) * time.Millisecond
}
