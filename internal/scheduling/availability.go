package scheduling

import (
	"fmt"

	"github.com/jwalitptl/scheduler-api/internal/model"
)

// Reasons returned when a candidate time is not bookable.
const (
	ReasonDayUnavailable = "clinician is not available on this day"
	ReasonOutsideHours   = "requested time falls outside the clinician's available hours"
)

// AvailabilityResult carries a human-readable reason on failure to support
// UI messaging.
type AvailabilityResult struct {
	Available bool   `json:"is_available"`
	Reason    string `json:"reason,omitempty"`
}

// ResolveDaySchedule finds the day schedule governing a date: a
// date-specific entry wins over the weekday default. The second return is
// false when neither exists.
func ResolveDaySchedule(schedule model.WeeklySchedule, date string) (model.DaySchedule, bool) {
	if ds, ok := schedule[date]; ok {
		return ds, true
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return model.DaySchedule{}, false
	}
	ds, ok := schedule[model.DayKey(d)]
	return ds, ok
}

// CheckAvailability determines whether the candidate's [start, start+dur)
// window lies wholly within a single slot of the schedule resolved for its
// date. Partial overlap with a slot, or stitching across adjacent slots, is
// not sufficient.
func CheckAvailability(schedule model.WeeklySchedule, cand Candidate) (AvailabilityResult, error) {
	candIv, err := cand.interval()
	if err != nil {
		return AvailabilityResult{}, fmt.Errorf("invalid candidate: %w", err)
	}

	ds, ok := ResolveDaySchedule(schedule, cand.Date)
	if !ok || !ds.Enabled {
		return AvailabilityResult{Reason: ReasonDayUnavailable}, nil
	}

	for _, slot := range ds.Slots {
		start, end, err := slotBounds(slot)
		if err != nil {
			return AvailabilityResult{}, fmt.Errorf("malformed slot %s-%s: %w", slot.Start, slot.End, err)
		}
		if candIv.Start >= start && candIv.End <= end {
			return AvailabilityResult{Available: true}, nil
		}
	}
	return AvailabilityResult{Reason: ReasonOutsideHours}, nil
}

// SlotHoldsAppointment reports whether any active appointment's start time
// falls inside the slot, using the same wrap-around bounds as the
// containment check. The schedule-editing flow uses this to refuse
// structural edits to occupied slots.
func SlotHoldsAppointment(slot model.AvailabilitySlot, appointments []*model.Appointment) (bool, error) {
	start, end, err := slotBounds(slot)
	if err != nil {
		return false, fmt.Errorf("malformed slot %s-%s: %w", slot.Start, slot.End, err)
	}
	for _, apt := range appointments {
		if !apt.Active() {
			continue
		}
		m, err := parseMinutes(apt.StartTime)
		if err != nil {
			return false, fmt.Errorf("malformed appointment %s: %w", apt.ID, err)
		}
		if m >= start && m < end {
			return true, nil
		}
	}
	return false, nil
}

// SlotCovers reports whether outer wholly contains inner, using the same
// wrap-around bounds as the containment check.
func SlotCovers(outer, inner model.AvailabilitySlot) (bool, error) {
	os, oe, err := slotBounds(outer)
	if err != nil {
		return false, fmt.Errorf("malformed slot %s-%s: %w", outer.Start, outer.End, err)
	}
	is, ie, err := slotBounds(inner)
	if err != nil {
		return false, fmt.Errorf("malformed slot %s-%s: %w", inner.Start, inner.End, err)
	}
	return os <= is && ie <= oe, nil
}

// ValidateSlots rejects a day schedule whose slots overlap one another.
func ValidateSlots(slots []model.AvailabilitySlot) error {
	for i := range slots {
		s1, e1, err := slotBounds(slots[i])
		if err != nil {
			return err
		}
		for j := i + 1; j < len(slots); j++ {
			s2, e2, err := slotBounds(slots[j])
			if err != nil {
				return err
			}
			if s1 < e2 && s2 < e1 {
				return fmt.Errorf("slot %s-%s overlaps slot %s-%s",
					slots[i].Start, slots[i].End, slots[j].Start, slots[j].End)
			}
		}
	}
	return nil
}

// slotBounds converts a slot to minute bounds. An end at or before the start
// wraps past midnight and is pushed out by 24 hours. Whether the slot's
// conceptual end date differs from its start date is left open; the wrap
// only affects containment math.
func slotBounds(slot model.AvailabilitySlot) (int, int, error) {
	start, err := parseMinutes(slot.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err := parseMinutes(slot.End)
	if err != nil {
		return 0, 0, err
	}
	if end <= start {
		end += minutesPerDay
	}
	return start, end, nil
}
