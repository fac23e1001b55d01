package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

type AppointmentRepository interface {
	Create(ctx context.Context, apt *model.Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	Update(ctx context.Context, apt *model.Appointment) error
	List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	// ListForClinicianDate returns every appointment (any status) for one
	// clinician on one calendar date; the conflict detector filters.
	ListForClinicianDate(ctx context.Context, clinicianID uuid.UUID, date string) ([]*model.Appointment, error)
	// ListActiveForClinician returns the clinician's non-cancelled
	// appointments, used to derive locked availability slots.
	ListActiveForClinician(ctx context.Context, clinicianID uuid.UUID) ([]*model.Appointment, error)
}

type ScheduleRepository interface {
	Get(ctx context.Context, clinicianID uuid.UUID) (*model.ClinicianSchedule, error)
	Save(ctx context.Context, schedule *model.ClinicianSchedule) error
}

type PatientRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
}

type ClinicianRepository interface {
	Create(ctx context.Context, clinician *model.Clinician) error
	Get(ctx context.Context, id uuid.UUID) (*model.Clinician, error)
	List(ctx context.Context) ([]*model.Clinician, error)
}

// AllowanceTx is the transactional view of the allowance store. GetForUpdate
// locks the row for the duration of the transaction.
type AllowanceTx interface {
	GetForUpdate(ctx context.Context, patientID uuid.UUID) (*model.SessionAllowance, error)
	Save(ctx context.Context, a *model.SessionAllowance) error
}

type AllowanceRepository interface {
	Get(ctx context.Context, patientID uuid.UUID) (*model.SessionAllowance, error)
	WithTx(ctx context.Context, fn func(AllowanceTx) error) error
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}
