package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusOngoing   AppointmentStatus = "ongoing"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// DefaultDurationMins is applied wherever an appointment or candidate
// carries no explicit duration. Defaulting happens through Duration(),
// never at individual call sites.
const DefaultDurationMins = 30

type Appointment struct {
	Base
	PatientID     uuid.UUID         `db:"patient_id" json:"patient_id"`
	PatientName   string            `db:"patient_name" json:"patient_name"`
	ClinicianID   uuid.UUID         `db:"clinician_id" json:"clinician_id"`
	ClinicianName string            `db:"clinician_name" json:"clinician_name"`
	Date          string            `db:"date" json:"date"`             // YYYY-MM-DD, timezone-naive
	StartTime     string            `db:"start_time" json:"start_time"` // HH:MM, 24-hour
	DurationMins  *int              `db:"duration_mins" json:"duration_mins,omitempty"`
	Status        AppointmentStatus `db:"status" json:"status"`
	Notes         string            `db:"notes" json:"notes,omitempty"`
	BillingAmount *int64            `db:"billing_amount" json:"billing_amount,omitempty"` // cents
	SeriesID      *uuid.UUID        `db:"series_id" json:"series_id,omitempty"`
	CancelReason  *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
}

// Duration returns the appointment duration in minutes, defaulting when unset.
func (a *Appointment) Duration() int {
	if a.DurationMins == nil || *a.DurationMins <= 0 {
		return DefaultDurationMins
	}
	return *a.DurationMins
}

// Active reports whether the appointment still occupies its slot.
// Cancelled appointments are conflict-exempt.
func (a *Appointment) Active() bool {
	return a.Status != AppointmentStatusCancelled
}

type CreateAppointmentRequest struct {
	PatientID     uuid.UUID `json:"patient_id" binding:"required"`
	PatientName   string    `json:"patient_name" binding:"required,max=200"`
	ClinicianID   uuid.UUID `json:"clinician_id" binding:"required"`
	ClinicianName string    `json:"clinician_name" binding:"max=200"`
	Date          string    `json:"date" binding:"required,dateymd"`
	StartTime     string    `json:"start_time" binding:"required,timehm"`
	DurationMins  *int      `json:"duration_mins" binding:"omitempty,gt=0,lte=480"`
	Notes         string    `json:"notes" binding:"max=1000"`
	BillingAmount *int64    `json:"billing_amount" binding:"omitempty,gte=0"`
}

type UpdateAppointmentRequest struct {
	Date         *string `json:"date" binding:"omitempty,dateymd"`
	StartTime    *string `json:"start_time" binding:"omitempty,timehm"`
	DurationMins *int    `json:"duration_mins" binding:"omitempty,gt=0,lte=480"`
	ClinicianID  *string `json:"clinician_id" binding:"omitempty,uuid"`
	Notes        *string `json:"notes" binding:"omitempty,max=1000"`
}

type CreateRecurringRequest struct {
	CreateAppointmentRequest
	Frequency string `json:"frequency" binding:"required,oneof=daily weekly biweekly monthly"`
	Count     int    `json:"count" binding:"required,gte=1,lte=52"`
}

// RecurringDateResult reports the outcome for one generated date of a series.
// Earlier creations stay in place on partial failure; callers reconcile.
type RecurringDateResult struct {
	Date        string       `json:"date"`
	Created     bool         `json:"created"`
	Appointment *Appointment `json:"appointment,omitempty"`
	Reason      string       `json:"reason,omitempty"`
}

type RecurringSeriesResult struct {
	SeriesID uuid.UUID             `json:"series_id"`
	Results  []RecurringDateResult `json:"results"`
	Created  int                   `json:"created"`
	Failed   int                   `json:"failed"`
}

type AppointmentFilters struct {
	ClinicianID uuid.UUID
	PatientID   uuid.UUID
	Status      AppointmentStatus
	Date        string
	SeriesID    uuid.UUID
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
