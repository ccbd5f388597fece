package enums

import "fmt"

// SyncType classifies the item-level mutation a sync attempt performed.
type SyncType string

const (
	SyncTypeCreate SyncType = "create"
	SyncTypeUpdate SyncType = "update"
	SyncTypeDelete SyncType = "delete"
	SyncTypeCancel SyncType = "cancel"
)

var validSyncTypes = []SyncType{
	SyncTypeCreate,
	SyncTypeUpdate,
	SyncTypeDelete,
	SyncTypeCancel,
}

// IsValid reports whether the value is a known sync type.
func (s SyncType) IsValid() bool {
	for _, candidate := range validSyncTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSyncType converts raw input into SyncType.
func ParseSyncType(value string) (SyncType, error) {
	for _, candidate := range validSyncTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync type %q", value)
}

// SyncStatus is the outcome of one item-level sync attempt.
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusFailed  SyncStatus = "failed"
)

// IsValid reports whether the value is a known sync status.
func (s SyncStatus) IsValid() bool {
	return s == SyncStatusSuccess || s == SyncStatusFailed
}
