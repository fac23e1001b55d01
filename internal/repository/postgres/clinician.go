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

func (r *clinicianRepository) Create(ctx context.Context, clinician *model.Clinician) error {
	query := `
		INSERT INTO clinicians (id, name, email, specialty, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if clinician.ID == uuid.Nil {
		clinician.ID = uuid.New()
	}
	clinician.CreatedAt = time.Now()
	clinician.UpdatedAt = clinician.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		clinician.ID,
		clinician.Name,
		clinician.Email,
		clinician.Specialty,
		clinician.Status,
		clinician.CreatedAt,
		clinician.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create clinician: %w", err)
	}
	return nil
}

func (r *clinicianRepository) Get(ctx context.Context, id uuid.UUID) (*model.Clinician, error) {
	query := `
		SELECT id, name, email, specialty, status, created_at, updated_at
		FROM clinicians
		WHERE id = $1
	`
	var clinician model.Clinician
	err := r.db.GetContext(ctx, &clinician, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get clinician: %w", err)
	}
	return &clinician, nil
}

func (r *clinicianRepository) List(ctx context.Context) ([]*model.Clinician, error) {
	query := `
		SELECT id, name, email, specialty, status, created_at, updated_at
		FROM clinicians
		ORDER BY name ASC
	`
	var clinicians []*model.Clinician
	if err := r.db.SelectContext(ctx, &clinicians, query); err != nil {
		return nil, fmt.Errorf("failed to list clinicians: %w", err)
	}
	return clinicians, nil
}
