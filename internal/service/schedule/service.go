package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/repository"
	"github.com/jwalitptl/scheduler-api/internal/scheduling"
)

const (
	cacheTTL      = 5 * time.Minute
	cacheSweep    = 10 * time.Minute
	cacheKeyShape = "schedule:%s"
)

// Service manages clinician weekly schedules. Reads are cached; writes
// validate slot structure and refuse edits that would strand booked
// appointments outside the clinician's hours.
type Service struct {
	repo         repository.ScheduleRepository
	appointments repository.AppointmentRepository
	cache        *gocache.Cache
	logger       zerolog.Logger
}

func NewService(repo repository.ScheduleRepository, appointments repository.AppointmentRepository, logger zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		appointments: appointments,
		cache:        gocache.New(cacheTTL, cacheSweep),
		logger:       logger,
	}
}

func (s *Service) GetSchedule(ctx context.Context, clinicianID uuid.UUID) (*model.ClinicianSchedule, error) {
	key := fmt.Sprintf(cacheKeyShape, clinicianID)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.ClinicianSchedule), nil
	}

	schedule, err := s.repo.Get(ctx, clinicianID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, schedule, gocache.DefaultExpiration)
	return schedule, nil
}

// UpdateSchedule replaces the clinician's schedule document. Day keys must be
// lowercase weekday names or YYYY-MM-DD dates, slots within a day must not
// overlap, and a slot currently holding an appointment can only grow, never
// shrink, move away, or lose its day.
func (s *Service) UpdateSchedule(ctx context.Context, clinicianID uuid.UUID, next model.WeeklySchedule) (*model.ClinicianSchedule, error) {
	if err := validateKeys(next); err != nil {
		return nil, err
	}
	for key, day := range next {
		if err := scheduling.ValidateSlots(day.Slots); err != nil {
			return nil, fmt.Errorf("day %q: %w", key, err)
		}
	}

	current, err := s.repo.Get(ctx, clinicianID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load current schedule: %w", err)
	}
	if current != nil {
		if err := s.checkOccupiedSlots(ctx, clinicianID, current.Schedule, next); err != nil {
			return nil, err
		}
	}

	schedule := &model.ClinicianSchedule{
		ClinicianID: clinicianID,
		Schedule:    next,
		UpdatedAt:   time.Now(),
	}
	if err := s.repo.Save(ctx, schedule); err != nil {
		return nil, fmt.Errorf("failed to save schedule: %w", err)
	}

	s.cache.Delete(fmt.Sprintf(cacheKeyShape, clinicianID))
	s.logger.Info().Str("clinician_id", clinicianID.String()).Msg("schedule updated")
	return schedule, nil
}

// checkOccupiedSlots walks the current schedule and, for every slot that
// holds an active appointment, requires the new schedule to keep that day
// enabled with a slot covering the old one.
func (s *Service) checkOccupiedSlots(ctx context.Context, clinicianID uuid.UUID, current, next model.WeeklySchedule) error {
	appointments, err := s.appointments.ListActiveForClinician(ctx, clinicianID)
	if err != nil {
		return fmt.Errorf("failed to load active appointments: %w", err)
	}
	if len(appointments) == 0 {
		return nil
	}

	for key, day := range current {
		if !day.Enabled {
			continue
		}
		governed := appointmentsForKey(key, current, appointments)
		if len(governed) == 0 {
			continue
		}
		for _, slot := range day.Slots {
			held, err := scheduling.SlotHoldsAppointment(slot, governed)
			if err != nil {
				return err
			}
			if !held {
				continue
			}
			if err := requireCovered(next, key, slot); err != nil {
				return err
			}
		}
	}
	return nil
}

// appointmentsForKey selects the appointments governed by a day key: a date
// key matches its exact date, a weekday key matches dates of that weekday
// that have no date-specific override.
func appointmentsForKey(key string, schedule model.WeeklySchedule, appointments []*model.Appointment) []*model.Appointment {
	isDate := scheduling.ValidateDate(key) == nil
	var out []*model.Appointment
	for _, apt := range appointments {
		if isDate {
			if apt.Date == key {
				out = append(out, apt)
			}
			continue
		}
		d, err := model.ParseDate(apt.Date)
		if err != nil || model.DayKey(d) != key {
			continue
		}
		if _, overridden := schedule[apt.Date]; overridden {
			continue
		}
		out = append(out, apt)
	}
	return out
}

func requireCovered(next model.WeeklySchedule, key string, slot model.AvailabilitySlot) error {
	day, ok := next[key]
	if !ok || !day.Enabled {
		return fmt.Errorf("cannot disable %q: slot %s-%s has booked appointments", key, slot.Start, slot.End)
	}
	for _, candidate := range day.Slots {
		covered, err := scheduling.SlotCovers(candidate, slot)
		if err != nil {
			return err
		}
		if covered {
			return nil
		}
	}
	return fmt.Errorf("cannot remove or shrink slot %s-%s on %q: it has booked appointments", slot.Start, slot.End, key)
}

func validateKeys(schedule model.WeeklySchedule) error {
	for key := range schedule {
		if validDayKeys[key] || scheduling.ValidateDate(key) == nil {
			continue
		}
		return fmt.Errorf("invalid schedule key %q, want a lowercase weekday or YYYY-MM-DD date", key)
	}
	return nil
}

var validDayKeys = map[string]bool{
	"monday":    true,
	"tuesday":   true,
	"wednesday": true,
	"thursday":  true,
	"friday":    true,
	"saturday":  true,
	"sunday":    true,
}
