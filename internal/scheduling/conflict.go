package scheduling

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
)

// Candidate is a proposed, not-yet-persisted appointment time under
// evaluation. ExcludeID carries the appointment's own ID during a reschedule
// so it does not conflict with its prior slot.
type Candidate struct {
	ClinicianID  uuid.UUID
	Date         string
	StartTime    string
	DurationMins int
	ExcludeID    uuid.UUID
}

// Duration returns the candidate duration, defaulting like appointments do.
func (c Candidate) Duration() int {
	if c.DurationMins <= 0 {
		return model.DefaultDurationMins
	}
	return c.DurationMins
}

func (c Candidate) interval() (Interval, error) {
	return NewInterval(c.Date, c.StartTime, c.Duration())
}

// ConflictResult lists every colliding appointment so callers can show all
// of them, not just the first.
type ConflictResult struct {
	HasConflict bool                 `json:"has_conflict"`
	Conflicts   []*model.Appointment `json:"conflicting_appointments,omitempty"`
}

// CheckConflict scans existing appointments for collisions with the
// candidate. Only active appointments for the same clinician participate;
// cross-clinician double booking of a patient is deliberately not checked,
// since a patient may see two clinicians back to back.
func CheckConflict(cand Candidate, existing []*model.Appointment) (ConflictResult, error) {
	candIv, err := cand.interval()
	if err != nil {
		return ConflictResult{}, fmt.Errorf("invalid candidate: %w", err)
	}

	var result ConflictResult
	for _, apt := range existing {
		if apt.ClinicianID != cand.ClinicianID {
			continue
		}
		if !apt.Active() {
			continue
		}
		if cand.ExcludeID != uuid.Nil && apt.ID == cand.ExcludeID {
			continue
		}

		iv, err := NewInterval(apt.Date, apt.StartTime, apt.Duration())
		if err != nil {
			// A stored appointment that fails to parse cannot be reasoned
			// about; surface it rather than silently skipping.
			return ConflictResult{}, fmt.Errorf("malformed appointment %s: %w", apt.ID, err)
		}
		if candIv.Overlaps(iv) {
			result.HasConflict = true
			result.Conflicts = append(result.Conflicts, apt)
		}
	}
	return result, nil
}
