package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/repository"
)

func (r *appointmentRepository) Create(ctx context.Context, apt *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, patient_name, clinician_id, clinician_name,
			date, start_time, duration_mins, status, notes,
			billing_amount, series_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	apt.CreatedAt = time.Now()
	apt.UpdatedAt = apt.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		apt.ID,
		apt.PatientID,
		apt.PatientName,
		apt.ClinicianID,
		apt.ClinicianName,
		apt.Date,
		apt.StartTime,
		apt.DurationMins,
		apt.Status,
		apt.Notes,
		apt.BillingAmount,
		apt.SeriesID,
		apt.CreatedAt,
		apt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, patient_id, patient_name, clinician_id, clinician_name,
			   date, start_time, duration_mins, status, notes,
			   billing_amount, series_id, cancel_reason, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var apt model.Appointment
	err := r.db.GetContext(ctx, &apt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) Update(ctx context.Context, apt *model.Appointment) error {
	query := `
		UPDATE appointments
		SET clinician_id = $1, clinician_name = $2, date = $3, start_time = $4,
			duration_mins = $5, status = $6, notes = $7, cancel_reason = $8,
			updated_at = $9
		WHERE id = $10
	`
	apt.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		apt.ClinicianID,
		apt.ClinicianName,
		apt.Date,
		apt.StartTime,
		apt.DurationMins,
		apt.Status,
		apt.Notes,
		apt.CancelReason,
		apt.UpdatedAt,
		apt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `
		SELECT id, patient_id, patient_name, clinician_id, clinician_name,
			   date, start_time, duration_mins, status, notes,
			   billing_amount, series_id, cancel_reason, created_at, updated_at
		FROM appointments
		WHERE 1=1
	`
	var args []interface{}
	argCount := 1

	if filters.ClinicianID != uuid.Nil {
		query += fmt.Sprintf(" AND clinician_id = $%d", argCount)
		args = append(args, filters.ClinicianID)
		argCount++
	}
	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND patient_id = $%d", argCount)
		args = append(args, filters.PatientID)
		argCount++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}
	if filters.Date != "" {
		query += fmt.Sprintf(" AND date = $%d", argCount)
		args = append(args, filters.Date)
		argCount++
	}
	if filters.SeriesID != uuid.Nil {
		query += fmt.Sprintf(" AND series_id = $%d", argCount)
		args = append(args, filters.SeriesID)
		argCount++
	}

	query += " ORDER BY date ASC, start_time ASC"

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListActiveForClinician(ctx context.Context, clinicianID uuid.UUID) ([]*model.Appointment, error) {
	query := `
		SELECT id, patient_id, patient_name, clinician_id, clinician_name,
			   date, start_time, duration_mins, status, notes,
			   billing_amount, series_id, cancel_reason, created_at, updated_at
		FROM appointments
		WHERE clinician_id = $1 AND status != $2
		ORDER BY date ASC, start_time ASC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, clinicianID, model.AppointmentStatusCancelled); err != nil {
		return nil, fmt.Errorf("failed to list active appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListForClinicianDate(ctx context.Context, clinicianID uuid.UUID, date string) ([]*model.Appointment, error) {
	query := `
		SELECT id, patient_id, patient_name, clinician_id, clinician_name,
			   date, start_time, duration_mins, status, notes,
			   billing_amount, series_id, cancel_reason, created_at, updated_at
		FROM appointments
		WHERE clinician_id = $1 AND date = $2
		ORDER BY start_time ASC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, clinicianID, date); err != nil {
		return nil, fmt.Errorf("failed to list clinician appointments: %w", err)
	}
	return appointments, nil
}
