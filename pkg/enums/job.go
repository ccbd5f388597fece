package enums

import "fmt"

// ImportJobType identifies which import chain a task belongs to.
type ImportJobType string

const (
	JobTypeProduct ImportJobType = "product"
	JobTypeOrder   ImportJobType = "order"
	JobTypeImage   ImportJobType = "image"
)

var validImportJobTypes = []ImportJobType{
	JobTypeProduct,
	JobTypeOrder,
	JobTypeImage,
}

// IsValid reports whether the value is a known import job type.
func (j ImportJobType) IsValid() bool {
	for _, candidate := range validImportJobTypes {
		if candidate == j {
			return true
		}
	}
	return false
}

// ParseImportJobType converts raw input into ImportJobType.
func ParseImportJobType(value string) (ImportJobType, error) {
	for _, candidate := range validImportJobTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid import job type %q", value)
}

// ImportJobStatus tracks the lifecycle of an import chain.
type ImportJobStatus string

const (
	JobStatusScheduled ImportJobStatus = "scheduled"
	JobStatusRunning   ImportJobStatus = "running"
	JobStatusCompleted ImportJobStatus = "completed"
	JobStatusFailed    ImportJobStatus = "failed"
)

var validImportJobStatuses = []ImportJobStatus{
	JobStatusScheduled,
	JobStatusRunning,
	JobStatusCompleted,
	JobStatusFailed,
}

// IsValid reports whether the value is a known job status.
func (s ImportJobStatus) IsValid() bool {
	for _, candidate := range validImportJobStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Terminal reports whether the status ends a job chain.
func (s ImportJobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}
