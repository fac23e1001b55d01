// Package allowance maintains per-patient annual free-session quotas for
// capped-benefit patients. State transitions are pure; the Ledger applies
// them inside a single database transaction per completion.
package allowance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/repository"
	"github.com/jwalitptl/scheduler-api/pkg/clock"
)

// DefaultAnnualFreeSessions applies when a capped-benefit patient record
// carries no explicit cap.
const DefaultAnnualFreeSessions = 12

// New initializes an allowance for a patient first seen at now, with the
// next reset on the upcoming January 1st UTC.
func New(patientID uuid.UUID, cap int, now time.Time) *model.SessionAllowance {
	if cap <= 0 {
		cap = DefaultAnnualFreeSessions
	}
	return &model.SessionAllowance{
		PatientID:          patientID,
		AnnualFreeSessions: cap,
		NextResetAt:        nextJanuaryFirst(now),
		UpdatedAt:          now,
	}
}

// Refresh applies every overdue annual reset and returns how many were
// applied. A record untouched for several years catches up in one call
// rather than resetting once.
func Refresh(a *model.SessionAllowance, now time.Time) int {
	resets := 0
	for !now.Before(a.NextResetAt) {
		reset := a.NextResetAt
		a.FreeSessionsUsed = 0
		// Pending paid counters survive the rollover; they represent
		// charges not yet billed.
		a.LastResetAt = &reset
		a.NextResetAt = a.NextResetAt.AddDate(1, 0, 0)
		resets++
	}
	a.UpdatedAt = now
	return resets
}

// Apply accounts one completed session: free while the annual cap has room,
// otherwise overflowing into the paid counters with the session's cost.
func Apply(a *model.SessionAllowance, cost int64, now time.Time) model.SessionKind {
	Refresh(a, now)
	if a.FreeSessionsUsed < a.AnnualFreeSessions {
		a.FreeSessionsUsed++
		return model.SessionFree
	}
	a.PendingPaidSessions++
	a.PendingChargeAmount += cost
	return model.SessionPaid
}

func nextJanuaryFirst(now time.Time) time.Time {
	return time.Date(now.UTC().Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// Ledger records session usage against the backing store. The
// read-refresh-increment sequence runs as one transaction so concurrent
// completions for the same patient cannot lose an update.
type Ledger struct {
	patients repository.PatientRepository
	repo     repository.AllowanceRepository
	clock    clock.Clock
	logger   zerolog.Logger
}

func NewLedger(patients repository.PatientRepository, repo repository.AllowanceRepository, clk clock.Clock, logger zerolog.Logger) *Ledger {
	return &Ledger{
		patients: patients,
		repo:     repo,
		clock:    clk,
		logger:   logger,
	}
}

// RecordCompletion charges one completed session to the patient's allowance.
// Patients outside the capped-benefit category are a no-op. The returned
// kind reports whether the session consumed free quota or overflowed to
// paid.
func (l *Ledger) RecordCompletion(ctx context.Context, patientID uuid.UUID, cost int64) (model.SessionKind, error) {
	patient, err := l.patients.Get(ctx, patientID)
	if err != nil {
		return "", fmt.Errorf("failed to get patient: %w", err)
	}
	if !patient.CappedBenefit() {
		return "", nil
	}

	now := l.clock.Now()
	var kind model.SessionKind
	err = l.repo.WithTx(ctx, func(tx repository.AllowanceTx) error {
		a, err := tx.GetForUpdate(ctx, patientID)
		if err != nil {
			return err
		}
		if a == nil {
			a = New(patientID, patient.AnnualFreeSessions, now)
		}
		kind = Apply(a, cost, now)
		return tx.Save(ctx, a)
	})
	if err != nil {
		return "", fmt.Errorf("failed to record completion: %w", err)
	}

	l.logger.Info().
		Str("patient_id", patientID.String()).
		Str("session_kind", string(kind)).
		Msg("session allowance updated")
	return kind, nil
}
