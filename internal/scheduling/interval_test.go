package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInterval(t *testing.T) {
	iv, err := NewInterval("2024-03-15", "09:30", 45)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", iv.Date)
	assert.Equal(t, 9*60+30, iv.Start)
	assert.Equal(t, 10*60+15, iv.End)
}

func TestNewInterval_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		start    string
		duration int
	}{
		{"bad date", "15-03-2024", "09:00", 30},
		{"bad time", "2024-03-15", "9am", 30},
		{"hour out of range", "2024-03-15", "24:00", 30},
		{"minute out of range", "2024-03-15", "12:60", 30},
		{"zero duration", "2024-03-15", "09:00", 0},
		{"negative duration", "2024-03-15", "09:00", -15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInterval(tt.date, tt.start, tt.duration)
			assert.Error(t, err)
		})
	}
}

func TestInterval_Overlaps(t *testing.T) {
	mk := func(date, start string, dur int) Interval {
		iv, err := NewInterval(date, start, dur)
		if err != nil {
			t.Fatalf("NewInterval: %v", err)
		}
		return iv
	}

	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"identical", mk("2024-03-15", "10:00", 30), mk("2024-03-15", "10:00", 30), true},
		{"partial overlap", mk("2024-03-15", "10:00", 30), mk("2024-03-15", "10:15", 30), true},
		{"contained", mk("2024-03-15", "10:00", 60), mk("2024-03-15", "10:15", 15), true},
		{"back to back", mk("2024-03-15", "09:00", 30), mk("2024-03-15", "09:30", 30), false},
		{"disjoint", mk("2024-03-15", "09:00", 30), mk("2024-03-15", "11:00", 30), false},
		{"different dates same time", mk("2024-03-15", "10:00", 30), mk("2024-03-16", "10:00", 30), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			// overlap is symmetric
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}
