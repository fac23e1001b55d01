package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/repository"
)

// Schedules are stored as one JSONB document per clinician, mirroring the
// day-keyed map shape the availability checker consumes.

func (r *scheduleRepository) Get(ctx context.Context, clinicianID uuid.UUID) (*model.ClinicianSchedule, error) {
	query := `
		SELECT clinician_id, schedule, updated_at
		FROM clinician_schedules
		WHERE clinician_id = $1
	`
	var row struct {
		ClinicianID uuid.UUID `db:"clinician_id"`
		Schedule    []byte    `db:"schedule"`
		UpdatedAt   time.Time `db:"updated_at"`
	}
	err := r.db.GetContext(ctx, &row, query, clinicianID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}

	var schedule model.WeeklySchedule
	if err := json.Unmarshal(row.Schedule, &schedule); err != nil {
		return nil, fmt.Errorf("failed to decode schedule: %w", err)
	}
	return &model.ClinicianSchedule{
		ClinicianID: row.ClinicianID,
		Schedule:    schedule,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

func (r *scheduleRepository) Save(ctx context.Context, schedule *model.ClinicianSchedule) error {
	payload, err := json.Marshal(schedule.Schedule)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}
	schedule.UpdatedAt = time.Now()

	query := `
		INSERT INTO clinician_schedules (clinician_id, schedule, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (clinician_id)
		DO UPDATE SET schedule = EXCLUDED.schedule, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, schedule.ClinicianID, payload, schedule.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	return nil
}
