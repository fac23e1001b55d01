package scheduling

import (
	"fmt"
	"time"

	"github.com/jwalitptl/scheduler-api/internal/model"
)

type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// MaxSeriesCount bounds recurring-series expansion; the UI enforces the same
// ceiling.
const MaxSeriesCount = 52

// GenerateSeries expands a start date and frequency into exactly count
// calendar dates, the first being startDate itself. Monthly steps use
// calendar-month arithmetic with Go's native rollover: a day-of-month that
// does not exist in the target month normalizes forward (2024-01-31 + 1
// month = 2024-03-02). Purely combinatorial; each date is separately
// conflict- and availability-checked before being committed.
func GenerateSeries(startDate string, freq Frequency, count int) ([]string, error) {
	if count < 1 || count > MaxSeriesCount {
		return nil, fmt.Errorf("count must be between 1 and %d, got %d", MaxSeriesCount, count)
	}
	start, err := model.ParseDate(startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}

	var stepDays int
	switch freq {
	case FrequencyDaily:
		stepDays = 1
	case FrequencyWeekly:
		stepDays = 7
	case FrequencyBiweekly:
		stepDays = 14
	case FrequencyMonthly:
		stepDays = 0
	default:
		return nil, fmt.Errorf("invalid frequency %q", freq)
	}

	dates := make([]string, 0, count)
	for i := 0; i < count; i++ {
		var d time.Time
		if stepDays > 0 {
			d = start.AddDate(0, 0, i*stepDays)
		} else {
			d = start.AddDate(0, i, 0)
		}
		dates = append(dates, d.Format("2006-01-02"))
	}
	return dates, nil
}
