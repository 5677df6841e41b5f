package stagegate

import (
	"fmt"
	"strings"

	"labor_pipeline_backend/internal/legacy"
)

// StageStatus is the tri-state progress value shared by training tracks and
// other simple stages.
type StageStatus string

const (
	NotStarted StageStatus = "not_started"
	InProgress StageStatus = "in_progress"
	Completed  StageStatus = "completed"
)

// Valid reports whether s is one of the canonical values.
func (s StageStatus) Valid() bool {
	switch s {
	case NotStarted, InProgress, Completed:
		return true
	}
	return false
}

// IsCompleted reports whether s is the terminal completed value.
func (s StageStatus) IsCompleted() bool { return s == Completed }

// Advance returns the status after observing activity: not_started moves to
// in_progress, anything else is unchanged. Completed never regresses.
func (s StageStatus) Advance() StageStatus {
	if s == NotStarted || s == "" {
		return InProgress
	}
	return s
}

// ParseStageStatus accepts canonical values and legacy spellings from the
// versioned mapping table.
func ParseStageStatus(raw string) (StageStatus, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if s := StageStatus(v); s.Valid() {
		return s, nil
	}
	if mapped, ok := legacy.Lookup(legacy.FieldStageStatus, v); ok {
		if s := StageStatus(mapped); s.Valid() {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown stage status %q", raw)
}
