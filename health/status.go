package health

import "time"

// Level is the health state of a feature or of the whole store
type Level string

const (
	// LevelHealthy indicates the feature attached and is live
	LevelHealthy Level = "healthy"
	// LevelDegraded indicates the feature serves defaults only
	LevelDegraded Level = "degraded"
	// LevelUnhealthy indicates the feature could not attach
	LevelUnhealthy Level = "unhealthy"
)

// Status records the health of one feature
type Status struct {
	Feature     string    `json:"feature"`
	Level       Level     `json:"level"`
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
}

// IsHealthy returns true if the status is healthy
func (s Status) IsHealthy() bool {
	return s.Level == LevelHealthy
}

// IsDegraded returns true if the status is degraded
func (s Status) IsDegraded() bool {
	return s.Level == LevelDegraded
}

// NewHealthy creates a healthy status for a feature
func NewHealthy(feature, message string) Status {
	return Status{Feature: feature, Level: LevelHealthy, Message: message, Timestamp: time.Now()}
}

// NewDegraded creates a degraded status for a feature
func NewDegraded(feature, message string) Status {
	return Status{Feature: feature, Level: LevelDegraded, Message: message, Timestamp: time.Now()}
}

// NewUnhealthy creates an unhealthy status for a feature
func NewUnhealthy(feature, message string) Status {
	return Status{Feature: feature, Level: LevelUnhealthy, Message: message, Timestamp: time.Now()}
}

// Aggregate folds feature statuses into a single store-level status.
// The store is unhealthy if any feature is unhealthy, degraded if any
// feature is degraded, healthy otherwise. An empty set is healthy.
func Aggregate(name string, statuses []Status) Status {
	level := LevelHealthy
	message := "all features healthy"

	for _, s := range statuses {
		switch s.Level {
		case LevelUnhealthy:
			level = LevelUnhealthy
			message = s.Feature + ": " + s.Message
		case LevelDegraded:
			if level == LevelHealthy {
				level = LevelDegraded
				message = s.Feature + ": " + s.Message
			}
		}
	}

	return Status{
		Feature:     name,
		Level:       level,
		Message:     message,
		Timestamp:   time.Now(),
		SubStatuses: statuses,
	}
}
