package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/scheduler-api/internal/allowance"
	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/repository"
	"github.com/jwalitptl/scheduler-api/internal/scheduling"
	"github.com/jwalitptl/scheduler-api/pkg/lock"
	"github.com/jwalitptl/scheduler-api/pkg/metrics"
)

// Service orchestrates the booking flow: every candidate passes the conflict
// detector and the availability checker before it is persisted, with the
// read-check-write sequence serialized per clinician.
type Service struct {
	repo       repository.AppointmentRepository
	schedules  repository.ScheduleRepository
	clinicians repository.ClinicianRepository
	outbox     repository.OutboxRepository
	ledger     *allowance.Ledger
	locker     lock.Locker
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

func NewService(
	repo repository.AppointmentRepository,
	schedules repository.ScheduleRepository,
	clinicians repository.ClinicianRepository,
	outbox repository.OutboxRepository,
	ledger *allowance.Ledger,
	locker lock.Locker,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:       repo,
		schedules:  schedules,
		clinicians: clinicians,
		outbox:     outbox,
		ledger:     ledger,
		locker:     locker,
		metrics:    m,
		logger:     logger,
	}
}

func (s *Service) CreateAppointment(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	clinicianName, err := s.resolveClinicianName(ctx, req.ClinicianID, req.ClinicianName)
	if err != nil {
		return nil, err
	}

	apt := &model.Appointment{
		PatientID:     req.PatientID,
		PatientName:   req.PatientName,
		ClinicianID:   req.ClinicianID,
		ClinicianName: clinicianName,
		Date:          req.Date,
		StartTime:     req.StartTime,
		DurationMins:  req.DurationMins,
		Status:        model.AppointmentStatusPending,
		Notes:         req.Notes,
		BillingAmount: req.BillingAmount,
	}
	apt.ID = uuid.New()

	err = s.locker.WithClinicianLock(ctx, apt.ClinicianID, func(ctx context.Context) error {
		if err := s.checkBookable(ctx, candidateFor(apt, uuid.Nil)); err != nil {
			return err
		}
		return s.repo.Create(ctx, apt)
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	s.metrics.BookingsCreated.WithLabelValues("single").Inc()
	s.writeOutbox(ctx, model.EventAppointmentCreated, apt)
	return apt, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return apt, nil
}

func (s *Service) ListAppointments(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	appointments, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// UpdateAppointment reschedules or reassigns an appointment. The appointment
// itself is excluded from conflict detection so moving it to its own current
// slot succeeds.
func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	if apt.Status == model.AppointmentStatusCancelled {
		return nil, fmt.Errorf("cannot reschedule a cancelled appointment")
	}
	if apt.Status == model.AppointmentStatusCompleted {
		return nil, fmt.Errorf("cannot reschedule a completed appointment")
	}

	if req.Date != nil {
		apt.Date = *req.Date
	}
	if req.StartTime != nil {
		apt.StartTime = *req.StartTime
	}
	if req.DurationMins != nil {
		apt.DurationMins = req.DurationMins
	}
	if req.ClinicianID != nil {
		clinicianID, err := uuid.Parse(*req.ClinicianID)
		if err != nil {
			return nil, fmt.Errorf("invalid clinician id: %w", err)
		}
		name, err := s.resolveClinicianName(ctx, clinicianID, "")
		if err != nil {
			return nil, err
		}
		apt.ClinicianID = clinicianID
		apt.ClinicianName = name
	}
	if req.Notes != nil {
		apt.Notes = *req.Notes
	}

	err = s.locker.WithClinicianLock(ctx, apt.ClinicianID, func(ctx context.Context) error {
		if err := s.checkBookable(ctx, candidateFor(apt, apt.ID)); err != nil {
			return err
		}
		return s.repo.Update(ctx, apt)
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	s.writeOutbox(ctx, model.EventAppointmentRescheduled, apt)
	return apt, nil
}

// CancelAppointment is a soft state change; the slot is immediately
// conflict-exempt.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, reason string) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	if apt.Status == model.AppointmentStatusCancelled {
		return nil, fmt.Errorf("appointment is already cancelled")
	}
	if apt.Status == model.AppointmentStatusCompleted {
		return nil, fmt.Errorf("cannot cancel a completed appointment")
	}

	apt.Status = model.AppointmentStatusCancelled
	apt.CancelReason = &reason

	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to cancel appointment: %w", err)
	}

	s.writeOutbox(ctx, model.EventAppointmentCancelled, apt)
	return apt, nil
}

// CompleteAppointment transitions to completed and charges the patient's
// session allowance. Allowance accounting and the status change move
// together: a ledger failure leaves the appointment in its prior status.
func (s *Service) CompleteAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	if apt.Status == model.AppointmentStatusCompleted {
		return nil, fmt.Errorf("appointment is already completed")
	}
	if apt.Status == model.AppointmentStatusCancelled {
		return nil, fmt.Errorf("cannot complete a cancelled appointment")
	}

	var cost int64
	if apt.BillingAmount != nil {
		cost = *apt.BillingAmount
	}

	kind, err := s.ledger.RecordCompletion(ctx, apt.PatientID, cost)
	if err != nil {
		return nil, fmt.Errorf("allowance accounting failed, completion not recorded: %w", err)
	}

	apt.Status = model.AppointmentStatusCompleted
	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to complete appointment: %w", err)
	}

	if kind != "" {
		s.metrics.SessionsCompleted.WithLabelValues(string(kind)).Inc()
	} else {
		s.metrics.SessionsCompleted.WithLabelValues("uncapped").Inc()
	}
	s.writeOutbox(ctx, model.EventAppointmentCompleted, apt)
	return apt, nil
}

// CreateRecurringSeries expands the request into dates and books each one
// independently. There is no all-or-nothing atomicity across the series: a
// date that fails leaves earlier creations in place, and the per-date
// results let the caller reconcile.
func (s *Service) CreateRecurringSeries(ctx context.Context, req *model.CreateRecurringRequest) (*model.RecurringSeriesResult, error) {
	dates, err := scheduling.GenerateSeries(req.Date, scheduling.Frequency(req.Frequency), req.Count)
	if err != nil {
		return nil, fmt.Errorf("invalid recurring request: %w", err)
	}

	clinicianName, err := s.resolveClinicianName(ctx, req.ClinicianID, req.ClinicianName)
	if err != nil {
		return nil, err
	}

	seriesID := uuid.New()
	result := &model.RecurringSeriesResult{
		SeriesID: seriesID,
		Results:  make([]model.RecurringDateResult, 0, len(dates)),
	}

	err = s.locker.WithClinicianLock(ctx, req.ClinicianID, func(ctx context.Context) error {
		for _, date := range dates {
			apt := &model.Appointment{
				PatientID:     req.PatientID,
				PatientName:   req.PatientName,
				ClinicianID:   req.ClinicianID,
				ClinicianName: clinicianName,
				Date:          date,
				StartTime:     req.StartTime,
				DurationMins:  req.DurationMins,
				Status:        model.AppointmentStatusPending,
				Notes:         req.Notes,
				BillingAmount: req.BillingAmount,
				SeriesID:      &seriesID,
			}
			apt.ID = uuid.New()

			if err := s.checkBookable(ctx, candidateFor(apt, uuid.Nil)); err != nil {
				result.Results = append(result.Results, model.RecurringDateResult{
					Date:   date,
					Reason: rejectionReason(err),
				})
				result.Failed++
				continue
			}
			if err := s.repo.Create(ctx, apt); err != nil {
				s.logger.Error().Err(err).Str("date", date).Msg("failed to persist series appointment")
				result.Results = append(result.Results, model.RecurringDateResult{
					Date:   date,
					Reason: "failed to save appointment",
				})
				result.Failed++
				continue
			}
			result.Results = append(result.Results, model.RecurringDateResult{
				Date:        date,
				Created:     true,
				Appointment: apt,
			})
			result.Created++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SeriesCreated.Inc()
	s.metrics.BookingsCreated.WithLabelValues("series").Add(float64(result.Created))
	s.writeOutbox(ctx, model.EventSeriesCreated, result)
	return result, nil
}

// CheckAvailability evaluates a candidate time against the clinician's
// schedule without booking anything.
func (s *Service) CheckAvailability(ctx context.Context, clinicianID uuid.UUID, q *model.AvailabilityQuery) (*scheduling.AvailabilityResult, error) {
	schedule, err := s.loadSchedule(ctx, clinicianID)
	if err != nil {
		return nil, err
	}

	duration := model.DefaultDurationMins
	if q.DurationMins != nil {
		duration = *q.DurationMins
	}
	res, err := scheduling.CheckAvailability(schedule, scheduling.Candidate{
		ClinicianID:  clinicianID,
		Date:         q.Date,
		StartTime:    q.StartTime,
		DurationMins: duration,
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ResolveDay returns the day schedule governing a date for a clinician,
// after date-specific overrides. The second return is false when no entry
// governs the date.
func (s *Service) ResolveDay(ctx context.Context, clinicianID uuid.UUID, date string) (model.DaySchedule, bool, error) {
	schedule, err := s.loadSchedule(ctx, clinicianID)
	if err != nil {
		return model.DaySchedule{}, false, err
	}
	ds, ok := scheduling.ResolveDaySchedule(schedule, date)
	return ds, ok, nil
}

// checkBookable runs the two independent gates every candidate must pass.
func (s *Service) checkBookable(ctx context.Context, cand scheduling.Candidate) error {
	existing, err := s.repo.ListForClinicianDate(ctx, cand.ClinicianID, cand.Date)
	if err != nil {
		return fmt.Errorf("failed to load existing appointments: %w", err)
	}

	conflict, err := scheduling.CheckConflict(cand, existing)
	if err != nil {
		return err
	}
	if conflict.HasConflict {
		return &ConflictError{Conflicts: conflict.Conflicts}
	}

	schedule, err := s.loadSchedule(ctx, cand.ClinicianID)
	if err != nil {
		return err
	}
	avail, err := scheduling.CheckAvailability(schedule, cand)
	if err != nil {
		return err
	}
	if !avail.Available {
		return &UnavailableError{Reason: avail.Reason}
	}
	return nil
}

// resolveClinicianName confirms the clinician exists and fills in the
// denormalized name when the caller left it blank.
func (s *Service) resolveClinicianName(ctx context.Context, clinicianID uuid.UUID, given string) (string, error) {
	clinician, err := s.clinicians.Get(ctx, clinicianID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("clinician %s: %w", clinicianID, ErrClinicianNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get clinician: %w", err)
	}
	if given != "" {
		return given, nil
	}
	return clinician.Name, nil
}

func (s *Service) loadSchedule(ctx context.Context, clinicianID uuid.UUID) (model.WeeklySchedule, error) {
	stored, err := s.schedules.Get(ctx, clinicianID)
	if errors.Is(err, repository.ErrNotFound) {
		// No schedule configured: every day resolves as unavailable.
		return model.WeeklySchedule{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}
	return stored.Schedule, nil
}

func (s *Service) countRejection(err error) {
	var conflictErr *ConflictError
	var unavailableErr *UnavailableError
	switch {
	case errors.As(err, &conflictErr):
		s.metrics.BookingConflicts.Inc()
	case errors.As(err, &unavailableErr):
		s.metrics.BookingUnavailable.Inc()
	case errors.Is(err, lock.ErrLockNotAcquired):
		s.metrics.BookingLockWaits.Inc()
	}
}

func (s *Service) writeOutbox(ctx context.Context, eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to encode outbox payload")
		return
	}
	if err := s.outbox.Create(ctx, &model.OutboxEvent{EventType: eventType, Payload: data}); err != nil {
		// Notification dispatch is best-effort; losing an event must not
		// fail the booking.
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to write outbox event")
	}
}

func candidateFor(apt *model.Appointment, excludeID uuid.UUID) scheduling.Candidate {
	return scheduling.Candidate{
		ClinicianID:  apt.ClinicianID,
		Date:         apt.Date,
		StartTime:    apt.StartTime,
		DurationMins: apt.Duration(),
		ExcludeID:    excludeID,
	}
}

func rejectionReason(err error) string {
	var conflictErr *ConflictError
	var unavailableErr *UnavailableError
	switch {
	case errors.As(err, &conflictErr):
		return conflictErr.Error()
	case errors.As(err, &unavailableErr):
		return unavailableErr.Reason
	default:
		return err.Error()
	}
}
