package scheduling

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduler-api/internal/model"
)

func mkAppointment(clinicianID uuid.UUID, date, start string, dur int, status model.AppointmentStatus) *model.Appointment {
	apt := &model.Appointment{
		ClinicianID: clinicianID,
		Date:        date,
		StartTime:   start,
		Status:      status,
	}
	apt.ID = uuid.New()
	if dur > 0 {
		apt.DurationMins = &dur
	}
	return apt
}

func TestCheckConflict_Overlap(t *testing.T) {
	clinician := uuid.New()
	existing := mkAppointment(clinician, "2024-03-15", "10:00", 30, model.AppointmentStatusPending)

	res, err := CheckConflict(Candidate{
		ClinicianID:  clinician,
		Date:         "2024-03-15",
		StartTime:    "10:15",
		DurationMins: 30,
	}, []*model.Appointment{existing})
	require.NoError(t, err)

	assert.True(t, res.HasConflict)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, existing.ID, res.Conflicts[0].ID)
}

func TestCheckConflict_BackToBack(t *testing.T) {
	clinician := uuid.New()
	existing := mkAppointment(clinician, "2024-03-15", "09:00", 30, model.AppointmentStatusPending)

	res, err := CheckConflict(Candidate{
		ClinicianID:  clinician,
		Date:         "2024-03-15",
		StartTime:    "09:30",
		DurationMins: 30,
	}, []*model.Appointment{existing})
	require.NoError(t, err)
	assert.False(t, res.HasConflict)
}

func TestCheckConflict_CancelledExempt(t *testing.T) {
	clinician := uuid.New()
	cancelled := mkAppointment(clinician, "2024-03-15", "10:00", 30, model.AppointmentStatusCancelled)

	res, err := CheckConflict(Candidate{
		ClinicianID: clinician,
		Date:        "2024-03-15",
		StartTime:   "10:00",
	}, []*model.Appointment{cancelled})
	require.NoError(t, err)
	assert.False(t, res.HasConflict)
}

func TestCheckConflict_CrossClinicianIndependent(t *testing.T) {
	existing := mkAppointment(uuid.New(), "2024-03-15", "10:00", 30, model.AppointmentStatusPending)

	res, err := CheckConflict(Candidate{
		ClinicianID: uuid.New(),
		Date:        "2024-03-15",
		StartTime:   "10:00",
	}, []*model.Appointment{existing})
	require.NoError(t, err)
	assert.False(t, res.HasConflict)
}

func TestCheckConflict_ExcludeSelfOnUpdate(t *testing.T) {
	clinician := uuid.New()
	existing := mkAppointment(clinician, "2024-03-15", "10:00", 30, model.AppointmentStatusPending)

	// Rescheduling to its own current slot must not conflict with itself.
	res, err := CheckConflict(Candidate{
		ClinicianID: clinician,
		Date:        "2024-03-15",
		StartTime:   "10:00",
		ExcludeID:   existing.ID,
	}, []*model.Appointment{existing})
	require.NoError(t, err)
	assert.False(t, res.HasConflict)
}

func TestCheckConflict_DefaultDuration(t *testing.T) {
	clinician := uuid.New()
	// No explicit duration: 30 minutes assumed on both sides.
	existing := mkAppointment(clinician, "2024-03-15", "10:00", 0, model.AppointmentStatusPending)

	res, err := CheckConflict(Candidate{
		ClinicianID: clinician,
		Date:        "2024-03-15",
		StartTime:   "10:29",
	}, []*model.Appointment{existing})
	require.NoError(t, err)
	assert.True(t, res.HasConflict)

	res, err = CheckConflict(Candidate{
		ClinicianID: clinician,
		Date:        "2024-03-15",
		StartTime:   "10:30",
	}, []*model.Appointment{existing})
	require.NoError(t, err)
	assert.False(t, res.HasConflict)
}

func TestCheckConflict_ListsAllCollisions(t *testing.T) {
	clinician := uuid.New()
	first := mkAppointment(clinician, "2024-03-15", "10:00", 30, model.AppointmentStatusPending)
	second := mkAppointment(clinician, "2024-03-15", "10:30", 30, model.AppointmentStatusOngoing)
	other := mkAppointment(clinician, "2024-03-15", "14:00", 30, model.AppointmentStatusPending)

	res, err := CheckConflict(Candidate{
		ClinicianID:  clinician,
		Date:         "2024-03-15",
		StartTime:    "10:15",
		DurationMins: 60,
	}, []*model.Appointment{first, second, other})
	require.NoError(t, err)

	assert.True(t, res.HasConflict)
	assert.Len(t, res.Conflicts, 2)
}

func TestCheckConflict_InvalidCandidate(t *testing.T) {
	_, err := CheckConflict(Candidate{
		ClinicianID: uuid.New(),
		Date:        "not-a-date",
		StartTime:   "10:00",
	}, nil)
	assert.Error(t, err)
}
