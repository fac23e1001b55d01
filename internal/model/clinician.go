package model

type Clinician struct {
	Base
	Name      string `db:"name" json:"name"`
	Email     string `db:"email" json:"email"`
	Specialty string `db:"specialty" json:"specialty,omitempty"`
	Status    string `db:"status" json:"status"`
}

type CreateClinicianRequest struct {
	Name      string `json:"name" binding:"required,max=200"`
	Email     string `json:"email" binding:"required,email"`
	Specialty string `json:"specialty" binding:"max=200"`
}
