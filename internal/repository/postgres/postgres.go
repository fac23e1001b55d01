package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/scheduler-api/internal/repository"
)

type appointmentRepository struct {
	db *sqlx.DB
}

type scheduleRepository struct {
	db *sqlx.DB
}

type patientRepository struct {
	db *sqlx.DB
}

type clinicianRepository struct {
	db *sqlx.DB
}

type allowanceRepository struct {
	db *sqlx.DB
}

type outboxRepository struct {
	db *sqlx.DB
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func NewScheduleRepository(db *sqlx.DB) repository.ScheduleRepository {
	return &scheduleRepository{db: db}
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func NewClinicianRepository(db *sqlx.DB) repository.ClinicianRepository {
	return &clinicianRepository{db: db}
}

func NewAllowanceRepository(db *sqlx.DB) repository.AllowanceRepository {
	return &allowanceRepository{db: db}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{db: db}
}
