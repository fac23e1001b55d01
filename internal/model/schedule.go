package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AvailabilitySlot is one contiguous open-for-booking window within a day.
// Times are HH:MM, 24-hour. A slot whose end is not after its start is
// treated as wrapping past midnight.
type AvailabilitySlot struct {
	Start string `json:"start" binding:"required,timehm"`
	End   string `json:"end" binding:"required,timehm"`
}

// DaySchedule governs one clinician's bookable hours for one weekday or one
// specific calendar date.
type DaySchedule struct {
	Enabled bool               `json:"enabled"`
	Slots   []AvailabilitySlot `json:"slots"`
}

// WeeklySchedule maps lowercase weekday names ("monday") or ISO dates
// ("2024-03-15") to day schedules. Date-specific entries override weekday
// defaults.
type WeeklySchedule map[string]DaySchedule

// DayKey returns the weekday lookup key for a calendar date.
func DayKey(date time.Time) string {
	return strings.ToLower(date.Weekday().String())
}

// ClinicianSchedule is the persisted schedule document for one clinician.
type ClinicianSchedule struct {
	ClinicianID uuid.UUID      `db:"clinician_id" json:"clinician_id"`
	Schedule    WeeklySchedule `json:"schedule"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

type UpdateScheduleRequest struct {
	Schedule WeeklySchedule `json:"schedule" binding:"required"`
}

// AvailabilityQuery is a candidate time under evaluation against a schedule.
type AvailabilityQuery struct {
	Date         string `form:"date" binding:"required,dateymd"`
	StartTime    string `form:"start_time" binding:"omitempty,timehm"`
	DurationMins *int   `form:"duration_mins" binding:"omitempty,gt=0,lte=480"`
}
