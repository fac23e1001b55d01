package appointment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jwalitptl/scheduler-api/internal/model"
)

// ErrClinicianNotFound distinguishes a missing clinician from a missing
// appointment when a booking is rejected.
var ErrClinicianNotFound = errors.New("clinician not found")

// ConflictError reports every appointment the candidate collides with, so
// callers can show all of them rather than just the first.
type ConflictError struct {
	Conflicts []*model.Appointment
}

func (e *ConflictError) Error() string {
	times := make([]string, 0, len(e.Conflicts))
	for _, apt := range e.Conflicts {
		times = append(times, fmt.Sprintf("%s %s", apt.Date, apt.StartTime))
	}
	return fmt.Sprintf("time conflicts with %d existing appointment(s): %s",
		len(e.Conflicts), strings.Join(times, ", "))
}

// UnavailableError reports why the candidate time is not bookable.
type UnavailableError struct {
	Reason string
}

func (e *UnavailableError) Error() string {
	return e.Reason
}
