package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSeries_Weekly(t *testing.T) {
	dates, err := GenerateSeries("2024-01-01", FrequencyWeekly, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-08", "2024-01-15", "2024-01-22"}, dates)
}

func TestGenerateSeries_Daily(t *testing.T) {
	dates, err := GenerateSeries("2024-02-27", FrequencyDaily, 4)
	require.NoError(t, err)
	// 2024 is a leap year.
	assert.Equal(t, []string{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01"}, dates)
}

func TestGenerateSeries_Biweekly(t *testing.T) {
	dates, err := GenerateSeries("2024-01-01", FrequencyBiweekly, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-15", "2024-01-29"}, dates)
}

func TestGenerateSeries_Monthly(t *testing.T) {
	dates, err := GenerateSeries("2024-03-15", FrequencyMonthly, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-15", "2024-04-15", "2024-05-15"}, dates)
}

func TestGenerateSeries_MonthlyRollover(t *testing.T) {
	// Jan 31 + 1 calendar month normalizes forward past short February.
	dates, err := GenerateSeries("2024-01-31", FrequencyMonthly, 2)
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, "2024-01-31", dates[0])
	assert.Equal(t, "2024-03-02", dates[1])

	// No duplicates regardless of rollover.
	seen := map[string]bool{}
	for _, d := range dates {
		assert.False(t, seen[d], "duplicate date %s", d)
		seen[d] = true
	}
}

func TestGenerateSeries_FirstDateIsStart(t *testing.T) {
	dates, err := GenerateSeries("2024-06-10", FrequencyDaily, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-10"}, dates)
}

func TestGenerateSeries_ExactCount(t *testing.T) {
	dates, err := GenerateSeries("2024-01-01", FrequencyWeekly, MaxSeriesCount)
	require.NoError(t, err)
	assert.Len(t, dates, MaxSeriesCount)
}

func TestGenerateSeries_Invalid(t *testing.T) {
	_, err := GenerateSeries("2024-01-01", "fortnightly", 4)
	assert.Error(t, err)

	_, err = GenerateSeries("2024-01-01", FrequencyWeekly, 0)
	assert.Error(t, err)

	_, err = GenerateSeries("2024-01-01", FrequencyWeekly, MaxSeriesCount+1)
	assert.Error(t, err)

	_, err = GenerateSeries("01/01/2024", FrequencyWeekly, 4)
	assert.Error(t, err)
}
