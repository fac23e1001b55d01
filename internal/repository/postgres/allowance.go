package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/repository"
)

const allowanceColumns = `
	patient_id, annual_free_sessions, free_sessions_used,
	pending_paid_sessions, pending_charge_amount,
	next_reset_at, last_reset_at, updated_at
`

func (r *allowanceRepository) Get(ctx context.Context, patientID uuid.UUID) (*model.SessionAllowance, error) {
	query := `SELECT ` + allowanceColumns + ` FROM session_allowances WHERE patient_id = $1`

	var a model.SessionAllowance
	err := r.db.GetContext(ctx, &a, query, patientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get allowance: %w", err)
	}
	return &a, nil
}

// WithTx runs fn inside one database transaction. The ledger's
// read-refresh-increment sequence depends on this being atomic; GetForUpdate
// row-locks the allowance so concurrent completions serialize instead of
// losing increments.
func (r *allowanceRepository) WithTx(ctx context.Context, fn func(repository.AllowanceTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&allowanceTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (after: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type allowanceTx struct {
	tx *sqlx.Tx
}

func (t *allowanceTx) GetForUpdate(ctx context.Context, patientID uuid.UUID) (*model.SessionAllowance, error) {
	query := `SELECT ` + allowanceColumns + ` FROM session_allowances WHERE patient_id = $1 FOR UPDATE`

	var a model.SessionAllowance
	err := t.tx.GetContext(ctx, &a, query, patientID)
	if errors.Is(err, sql.ErrNoRows) {
		// Lazily created by the ledger on first completion.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock allowance: %w", err)
	}
	return &a, nil
}

func (t *allowanceTx) Save(ctx context.Context, a *model.SessionAllowance) error {
	query := `
		INSERT INTO session_allowances (` + allowanceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (patient_id) DO UPDATE SET
			annual_free_sessions = EXCLUDED.annual_free_sessions,
			free_sessions_used = EXCLUDED.free_sessions_used,
			pending_paid_sessions = EXCLUDED.pending_paid_sessions,
			pending_charge_amount = EXCLUDED.pending_charge_amount,
			next_reset_at = EXCLUDED.next_reset_at,
			last_reset_at = EXCLUDED.last_reset_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := t.tx.ExecContext(ctx, query,
		a.PatientID,
		a.AnnualFreeSessions,
		a.FreeSessionsUsed,
		a.PendingPaidSessions,
		a.PendingChargeAmount,
		a.NextResetAt,
		a.LastResetAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save allowance: %w", err)
	}
	return nil
}
