package model

type PatientStatus string

const (
	PatientStatusActive   PatientStatus = "active"
	PatientStatusInactive PatientStatus = "inactive"
)

// PatientCategory distinguishes ordinary patients from the capped-benefit
// category whose completions are tracked by the session allowance ledger.
type PatientCategory string

const (
	PatientCategoryStandard      PatientCategory = "standard"
	PatientCategoryCappedBenefit PatientCategory = "capped_benefit"
)

type Patient struct {
	Base
	Name               string          `db:"name" json:"name"`
	Email              string          `db:"email" json:"email"`
	Phone              string          `db:"phone" json:"phone,omitempty"`
	Status             PatientStatus   `db:"status" json:"status"`
	Category           PatientCategory `db:"category" json:"category"`
	AnnualFreeSessions int             `db:"annual_free_sessions" json:"annual_free_sessions,omitempty"`
}

// CappedBenefit reports whether the patient falls under the annual
// free-session quota.
func (p *Patient) CappedBenefit() bool {
	return p.Category == PatientCategoryCappedBenefit
}
