package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionAllowance tracks a capped-benefit patient's annual free-session
// quota. Counters reset lazily every January 1st UTC; completions past the
// cap overflow into paid sessions.
type SessionAllowance struct {
	PatientID           uuid.UUID  `db:"patient_id" json:"patient_id"`
	AnnualFreeSessions  int        `db:"annual_free_sessions" json:"annual_free_sessions"`
	FreeSessionsUsed    int        `db:"free_sessions_used" json:"free_sessions_used"`
	PendingPaidSessions int        `db:"pending_paid_sessions" json:"pending_paid_sessions"`
	PendingChargeAmount int64      `db:"pending_charge_amount" json:"pending_charge_amount"` // cents
	NextResetAt         time.Time  `db:"next_reset_at" json:"next_reset_at"`
	LastResetAt         *time.Time `db:"last_reset_at" json:"last_reset_at,omitempty"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// SessionKind reports how a completed session was accounted.
type SessionKind string

const (
	SessionFree SessionKind = "free"
	SessionPaid SessionKind = "paid"
)
