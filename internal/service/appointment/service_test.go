package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduler-api/internal/allowance"
	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/repository"
	"github.com/jwalitptl/scheduler-api/internal/scheduling"
	"github.com/jwalitptl/scheduler-api/pkg/clock"
	"github.com/jwalitptl/scheduler-api/pkg/lock"
	"github.com/jwalitptl/scheduler-api/pkg/metrics"
)

type fakeAppointmentRepo struct {
	appointments map[uuid.UUID]*model.Appointment
	createErr    error
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (r *fakeAppointmentRepo) Create(_ context.Context, apt *model.Appointment) error {
	if r.createErr != nil {
		return r.createErr
	}
	cp := *apt
	r.appointments[apt.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, ok := r.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *apt
	return &cp, nil
}

func (r *fakeAppointmentRepo) Update(_ context.Context, apt *model.Appointment) error {
	if _, ok := r.appointments[apt.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *apt
	r.appointments[apt.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, apt := range r.appointments {
		if filters.ClinicianID != uuid.Nil && apt.ClinicianID != filters.ClinicianID {
			continue
		}
		if filters.PatientID != uuid.Nil && apt.PatientID != filters.PatientID {
			continue
		}
		if filters.Status != "" && apt.Status != filters.Status {
			continue
		}
		if filters.Date != "" && apt.Date != filters.Date {
			continue
		}
		if filters.SeriesID != uuid.Nil && (apt.SeriesID == nil || *apt.SeriesID != filters.SeriesID) {
			continue
		}
		out = append(out, apt)
	}
	return out, nil
}

func (r *fakeAppointmentRepo) ListForClinicianDate(_ context.Context, clinicianID uuid.UUID, date string) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, apt := range r.appointments {
		if apt.ClinicianID == clinicianID && apt.Date == date {
			out = append(out, apt)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepo) ListActiveForClinician(_ context.Context, clinicianID uuid.UUID) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, apt := range r.appointments {
		if apt.ClinicianID == clinicianID && apt.Active() {
			out = append(out, apt)
		}
	}
	return out, nil
}

type fakeScheduleRepo struct {
	schedules map[uuid.UUID]*model.ClinicianSchedule
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{schedules: make(map[uuid.UUID]*model.ClinicianSchedule)}
}

func (r *fakeScheduleRepo) Get(_ context.Context, clinicianID uuid.UUID) (*model.ClinicianSchedule, error) {
	s, ok := r.schedules[clinicianID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (r *fakeScheduleRepo) Save(_ context.Context, s *model.ClinicianSchedule) error {
	r.schedules[s.ClinicianID] = s
	return nil
}

type fakeClinicianRepo struct {
	clinicians map[uuid.UUID]*model.Clinician
}

func (r *fakeClinicianRepo) Create(_ context.Context, c *model.Clinician) error {
	r.clinicians[c.ID] = c
	return nil
}

func (r *fakeClinicianRepo) Get(_ context.Context, id uuid.UUID) (*model.Clinician, error) {
	c, ok := r.clinicians[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (r *fakeClinicianRepo) List(_ context.Context) ([]*model.Clinician, error) {
	var out []*model.Clinician
	for _, c := range r.clinicians {
		out = append(out, c)
	}
	return out, nil
}

type fakeOutboxRepo struct {
	events []*model.OutboxEvent
}

func (r *fakeOutboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *fakeOutboxRepo) GetPendingEvents(_ context.Context, _ int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) MarkProcessed(_ context.Context, _ uuid.UUID, _ time.Time) error {
	return nil
}

func (r *fakeOutboxRepo) MarkFailed(_ context.Context, _ uuid.UUID, _ string) error {
	return nil
}

type fakePatientRepo struct {
	patients map[uuid.UUID]*model.Patient
}

func (r *fakePatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

type fakeAllowanceRepo struct {
	allowances map[uuid.UUID]*model.SessionAllowance
	txErr      error
}

func newFakeAllowanceRepo() *fakeAllowanceRepo {
	return &fakeAllowanceRepo{allowances: make(map[uuid.UUID]*model.SessionAllowance)}
}

func (r *fakeAllowanceRepo) Get(_ context.Context, patientID uuid.UUID) (*model.SessionAllowance, error) {
	a, ok := r.allowances[patientID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (r *fakeAllowanceRepo) WithTx(_ context.Context, fn func(repository.AllowanceTx) error) error {
	if r.txErr != nil {
		return r.txErr
	}
	return fn(&fakeAllowanceTx{repo: r})
}

type fakeAllowanceTx struct {
	repo *fakeAllowanceRepo
}

func (t *fakeAllowanceTx) GetForUpdate(_ context.Context, patientID uuid.UUID) (*model.SessionAllowance, error) {
	return t.repo.allowances[patientID], nil
}

func (t *fakeAllowanceTx) Save(_ context.Context, a *model.SessionAllowance) error {
	t.repo.allowances[a.PatientID] = a
	return nil
}

type fixture struct {
	svc        *Service
	repo       *fakeAppointmentRepo
	schedules  *fakeScheduleRepo
	clinicians *fakeClinicianRepo
	outbox     *fakeOutboxRepo
	patients   *fakePatientRepo
	allowances *fakeAllowanceRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newFakeAppointmentRepo()
	schedules := newFakeScheduleRepo()
	clinicians := &fakeClinicianRepo{clinicians: make(map[uuid.UUID]*model.Clinician)}
	outbox := &fakeOutboxRepo{}
	patients := &fakePatientRepo{patients: make(map[uuid.UUID]*model.Patient)}
	allowances := newFakeAllowanceRepo()

	logger := zerolog.Nop()
	ledger := allowance.NewLedger(patients, allowances,
		clock.Fixed(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)), logger)
	m := metrics.NewMetricsWith(prometheus.NewRegistry(), "test")

	return &fixture{
		svc:        NewService(repo, schedules, clinicians, outbox, ledger, lock.NoopLocker{}, m, logger),
		repo:       repo,
		schedules:  schedules,
		clinicians: clinicians,
		outbox:     outbox,
		patients:   patients,
		allowances: allowances,
	}
}

func (f *fixture) addClinician(clinicianID uuid.UUID) {
	c := &model.Clinician{Name: "Dr. Priya Nair", Status: "active"}
	c.ID = clinicianID
	f.clinicians.clinicians[clinicianID] = c
}

func (f *fixture) openAllDay(clinicianID uuid.UUID) {
	f.addClinician(clinicianID)
	f.schedules.schedules[clinicianID] = &model.ClinicianSchedule{
		ClinicianID: clinicianID,
		Schedule: model.WeeklySchedule{
			"monday":    {Enabled: true, Slots: []model.AvailabilitySlot{{Start: "00:00", End: "23:59"}}},
			"tuesday":   {Enabled: true, Slots: []model.AvailabilitySlot{{Start: "00:00", End: "23:59"}}},
			"wednesday": {Enabled: true, Slots: []model.AvailabilitySlot{{Start: "00:00", End: "23:59"}}},
			"thursday":  {Enabled: true, Slots: []model.AvailabilitySlot{{Start: "00:00", End: "23:59"}}},
			"friday":    {Enabled: true, Slots: []model.AvailabilitySlot{{Start: "00:00", End: "23:59"}}},
			"saturday":  {Enabled: true, Slots: []model.AvailabilitySlot{{Start: "00:00", End: "23:59"}}},
			"sunday":    {Enabled: true, Slots: []model.AvailabilitySlot{{Start: "00:00", End: "23:59"}}},
		},
	}
}

func createRequest(clinicianID uuid.UUID, date, start string) *model.CreateAppointmentRequest {
	return &model.CreateAppointmentRequest{
		PatientID:   uuid.New(),
		PatientName: "Jordan Reyes",
		ClinicianID: clinicianID,
		Date:        date,
		StartTime:   start,
	}
}

func TestCreateAppointment(t *testing.T) {
	f := newFixture(t)
	clinicianID := uuid.New()
	f.openAllDay(clinicianID)

	apt, err := f.svc.CreateAppointment(context.Background(), createRequest(clinicianID, "2024-03-15", "10:00"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, apt.ID)
	assert.Equal(t, model.AppointmentStatusPending, apt.Status)

	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, model.EventAppointmentCreated, f.outbox.events[0].EventType)
}

func TestCreateAppointment_Conflict(t *testing.T) {
	f := newFixture(t)
	clinicianID := uuid.New()
	f.openAllDay(clinicianID)

	_, err := f.svc.CreateAppointment(context.Background(), createRequest(clinicianID, "2024-03-15", "10:00"))
	require.NoError(t, err)

	_, err = f.svc.CreateAppointment(context.Background(), createRequest(clinicianID, "2024-03-15", "10:15"))
	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Len(t, conflictErr.Conflicts, 1)
}

func TestCreateAppointment_BackToBack(t *testing.T) {
	f := newFixture(t)
	clinicianID := uuid.New()
	f.openAllDay(clinicianID)

	_, err := f.svc.CreateAppointment(context.Background(), createRequest(clinicianID, "2024-03-15", "10:00"))
	require.NoError(t, err)

	// Default 30-minute duration: the next slot starts exactly at 10:30.
	_, err = f.svc.CreateAppointment(context.Background(), createRequest(clinicianID, "2024-03-15", "10:30"))
	assert.NoError(t, err)
}

func TestCreateAppointment_CancelledSlotReusable(t *testing.T) {
	f := newFixture(t)
	clinicianID := uuid.New()
	f.openAllDay(clinicianID)

	apt, err := f.svc.CreateAppointment(context.Background(), createRequest(clinicianID, "2024-03-15", "10:00"))
	require.NoError(t, err)

	_, err = f.svc.CancelAppointment(context.Background(), apt.ID, "patient request")
	require.NoError(t, err)

	_, err = f.svc.CreateAppointment(context.Background(), createRequest(clinicianID, "2024-03-15", "10:00"))
	assert.NoError(t, err)
}

func TestCreateAppointment_OtherClinicianUnaffected(t *testing.T) {
	f := newFixture(t)
	c1, c2 := uuid.New(), uuid.New()
	f.openAllDay(c1)
	f.openAllDay(c2)

	_, err := f.svc.CreateAppointment(context.Background(), createRequest(c1, "2024-03-15", "10:00"))
	require.NoError(t, err)

	_, err = f.svc.CreateAppointment(context.Background(), createRequest(c2, "2024-03-15", "10:00"))
	assert.NoError(t, err)
}

func TestCreateAppointment_UnknownClinician(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateAppointment(context.Background(), createRequest(uuid.New(), "2024-03-15", "10:00"))
	assert.ErrorIs(t, err, ErrClinicianNotFound)
}

func TestCreateAppointment_BackfillsClinicianName(t *testing.T) {
	f := newFixture(t)
	clinicianID := uuid.New()
	f.openAllDay(clinicianID)

	req := createRequest(clinicianID, "2024-03-15", "10:00")
	req.ClinicianName = ""
	apt, err := f.svc.CreateAppointment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Priya Nair", apt.ClinicianName)
}

func TestCreateAppointment_NoScheduleMeansUnavailable(t *testing.T) {
	f := newFixture(t)
	clinicianID := uuid.New()
	f.addClinician(clinicianID)

	_, err := f.svc.CreateAppointment(context.Background(), createRequest(clinicianID, "2024-03-15", "10:00"))
	var unavailableErr *UnavailableError
	require.ErrorAs(t, err, &unavailableErr)
	assert.Equal(t, scheduling.ReasonDayUnavailable, unavailableErr.Reason)
}

func TestCreateAppointment_OutsideHours(t *testing.T) {
	f := newFixture(t)
	clinicianID := uuid.New()
	f.addClinician(clinicianID)
	f.schedules.schedules[clinicianID] = &model.ClinicianSchedule{
		ClinicianID: clinicianID,
		Schedule: model.WeeklySchedule{
			// 2024-03-15 is a Friday.
			"friday": {Enabled: true, Slots: []model.AvailabilitySlot{{Start: "09:00", End: "12:00"}}},
		},
	}

	_, err := f.svc.CreateAppointment(context.Background(), createRequest(clinicianID, "2024-03-15", "11:45"))
	var unavailableErr *UnavailableError
	require.ErrorAs(t, err, &unavailableErr)
	assert.Equal(t, scheduling.ReasonOutsideHours, unavailableErr.Reason)

	_, err = f.svc.CreateAppointment(context.Background(), createRequest(clinicianID, "2024-03-15", "11:30"))
	assert.NoError(t, err)
}

func TestUpdateAppointment_ExcludesSelf(t *testing.T) {
	f := newFixture(t)
	clinicianID := uuid.New()
	f.openAllDay(clinicianID)

	apt, err := f.svc.CreateAppointment(context.Background(), createRequest(clinicianID, "2024-03-15", "10:00"))
	require.NoError(t, err)

	// Shifting 15 minutes overlaps only the appointment's own current slot.
	newStart := "10:15"
	updated, err := f.svc.UpdateAppointment(context.Background(), apt.ID, &model.UpdateAppointmentRequest{
		StartTime: &newStart,
	})
	require.NoError(t, err)
	assert.Equal(t, "10:15", updated.StartTime)
}

func TestUpdateAppointment_ConflictWithOther(t *testing.T) {
	f := newFixture(t)
	clinicianID := uuid.New()
	f.openAllDay(clinicianID)

	apt, err := f.svc.CreateAppointment(context.Background(), createRequest(clinicianID, "2024-03-15", "10:00"))
	require.NoError(t, err)
	_, err = f.svc.CreateAppointment(context.Background(), createRequest(clinicianID, "2024-03-15", "11:00"))
	require.NoError(t, err)

	newStart := "11:15"
	_, err = f.svc.UpdateAppointment(context.Background(), apt.ID, &model.UpdateAppointmentRequest{
		StartTime: &newStart,
	})
	var conflictErr *ConflictError
	assert.ErrorAs(t, err, &conflictErr)
}

func TestUpdateAppointment_RejectsTerminalStates(t *testing.T) {
	f := newFixture(t)
	clinicianID := uuid.New()
	f.openAllDay(clinicianID)

	apt, err := f.svc.CreateAppointment(context.Background(), createRequest(clinicianID, "2024-03-15", "10:00"))
	require.NoError(t, err)
	_, err = f.svc.CancelAppointment(context.Background(), apt.ID, "no show")
	require.NoError(t, err)

	newStart := "12:00"
	_, err = f.svc.UpdateAppointment(context.Background(), apt.ID, &model.UpdateAppointmentRequest{
		StartTime: &newStart,
	})
	assert.Error(t, err)
}

func TestCancelAppointment(t *testing.T) {
	f := newFixture(t)
	clinicianID := uuid.New()
	f.openAllDay(clinicianID)

	apt, err := f.svc.CreateAppointment(context.Background(), createRequest(clinicianID, "2024-03-15", "10:00"))
	require.NoError(t, err)

	cancelled, err := f.svc.CancelAppointment(context.Background(), apt.ID, "patient request")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "patient request", *cancelled.CancelReason)

	_, err = f.svc.CancelAppointment(context.Background(), apt.ID, "again")
	assert.Error(t, err)
}

func TestCompleteAppointment_ChargesAllowance(t *testing.T) {
	f := newFixture(t)
	clinicianID := uuid.New()
	f.openAllDay(clinicianID)

	req := createRequest(clinicianID, "2024-03-15", "10:00")
	f.patients.patients[req.PatientID] = &model.Patient{
		Category:           model.PatientCategoryCappedBenefit,
		AnnualFreeSessions: 1,
	}

	apt, err := f.svc.CreateAppointment(context.Background(), req)
	require.NoError(t, err)

	completed, err := f.svc.CompleteAppointment(context.Background(), apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, completed.Status)

	a := f.allowances.allowances[req.PatientID]
	require.NotNil(t, a)
	assert.Equal(t, 1, a.FreeSessionsUsed)
	assert.Equal(t, 0, a.PendingPaidSessions)
}

func TestCompleteAppointment_LedgerFailureLeavesStatus(t *testing.T) {
	f := newFixture(t)
	clinicianID := uuid.New()
	f.openAllDay(clinicianID)

	req := createRequest(clinicianID, "2024-03-15", "10:00")
	f.patients.patients[req.PatientID] = &model.Patient{
		Category: model.PatientCategoryCappedBenefit,
	}
	f.allowances.txErr = errors.New("deadlock detected")

	apt, err := f.svc.CreateAppointment(context.Background(), req)
	require.NoError(t, err)

	_, err = f.svc.CompleteAppointment(context.Background(), apt.ID)
	require.Error(t, err)

	stored, err := f.repo.Get(context.Background(), apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, stored.Status)
}

func TestCompleteAppointment_StandardPatientSkipsLedger(t *testing.T) {
	f := newFixture(t)
	clinicianID := uuid.New()
	f.openAllDay(clinicianID)

	req := createRequest(clinicianID, "2024-03-15", "10:00")
	f.patients.patients[req.PatientID] = &model.Patient{Category: model.PatientCategoryStandard}

	apt, err := f.svc.CreateAppointment(context.Background(), req)
	require.NoError(t, err)

	_, err = f.svc.CompleteAppointment(context.Background(), apt.ID)
	require.NoError(t, err)
	assert.Empty(t, f.allowances.allowances)
}

func TestCreateRecurringSeries(t *testing.T) {
	f := newFixture(t)
	clinicianID := uuid.New()
	f.openAllDay(clinicianID)

	req := &model.CreateRecurringRequest{
		CreateAppointmentRequest: *createRequest(clinicianID, "2024-03-15", "10:00"),
		Frequency:                "weekly",
		Count:                    4,
	}
	result, err := f.svc.CreateRecurringSeries(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Created)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, result.Results, 4)
	assert.Equal(t, "2024-03-15", result.Results[0].Date)
	assert.Equal(t, "2024-04-05", result.Results[3].Date)
	for _, r := range result.Results {
		require.True(t, r.Created)
		require.NotNil(t, r.Appointment)
		require.NotNil(t, r.Appointment.SeriesID)
		assert.Equal(t, result.SeriesID, *r.Appointment.SeriesID)
	}
}

func TestCreateRecurringSeries_PartialFailure(t *testing.T) {
	f := newFixture(t)
	clinicianID := uuid.New()
	f.openAllDay(clinicianID)

	// Occupy the second weekly occurrence in advance.
	_, err := f.svc.CreateAppointment(context.Background(), createRequest(clinicianID, "2024-03-22", "10:00"))
	require.NoError(t, err)

	req := &model.CreateRecurringRequest{
		CreateAppointmentRequest: *createRequest(clinicianID, "2024-03-15", "10:00"),
		Frequency:                "weekly",
		Count:                    3,
	}
	result, err := f.svc.CreateRecurringSeries(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Failed)
	assert.True(t, result.Results[0].Created)
	assert.False(t, result.Results[1].Created)
	assert.NotEmpty(t, result.Results[1].Reason)
	assert.True(t, result.Results[2].Created)
}

func TestCreateRecurringSeries_InvalidFrequency(t *testing.T) {
	f := newFixture(t)
	req := &model.CreateRecurringRequest{
		CreateAppointmentRequest: *createRequest(uuid.New(), "2024-03-15", "10:00"),
		Frequency:                "hourly",
		Count:                    3,
	}
	_, err := f.svc.CreateRecurringSeries(context.Background(), req)
	assert.Error(t, err)
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	clinicianID := uuid.New()
	f.schedules.schedules[clinicianID] = &model.ClinicianSchedule{
		ClinicianID: clinicianID,
		Schedule: model.WeeklySchedule{
			"friday": {Enabled: true, Slots: []model.AvailabilitySlot{{Start: "09:00", End: "17:00"}}},
		},
	}

	res, err := f.svc.CheckAvailability(context.Background(), clinicianID, &model.AvailabilityQuery{
		Date:      "2024-03-15",
		StartTime: "10:00",
	})
	require.NoError(t, err)
	assert.True(t, res.Available)

	res, err = f.svc.CheckAvailability(context.Background(), clinicianID, &model.AvailabilityQuery{
		Date:      "2024-03-16",
		StartTime: "10:00",
	})
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, scheduling.ReasonDayUnavailable, res.Reason)
}

func TestResolveDay_DateOverride(t *testing.T) {
	f := newFixture(t)
	clinicianID := uuid.New()
	f.schedules.schedules[clinicianID] = &model.ClinicianSchedule{
		ClinicianID: clinicianID,
		Schedule: model.WeeklySchedule{
			"friday":     {Enabled: true, Slots: []model.AvailabilitySlot{{Start: "09:00", End: "17:00"}}},
			"2024-03-15": {Enabled: false},
		},
	}

	ds, ok, err := f.svc.ResolveDay(context.Background(), clinicianID, "2024-03-15")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, ds.Enabled)

	ds, ok, err = f.svc.ResolveDay(context.Background(), clinicianID, "2024-03-22")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, ds.Enabled)
}
