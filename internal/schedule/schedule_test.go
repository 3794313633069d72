package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.UTC)
	require.NoError(t, err)
	return tm
}

func TestEvaluate(t *testing.T) {
	d := Descriptor{
		SessionID:   "42",
		StartTime:   "09:00",
		EndTime:     "10:00",
		SessionDate: "2024-01-01",
	}

	tests := []struct {
		name string
		now  string
		want Status
	}{
		{"before start", "2024-01-01T08:00:00", StatusUpcoming},
		{"one second before start", "2024-01-01T08:59:59", StatusUpcoming},
		{"at start", "2024-01-01T09:00:00", StatusActive},
		{"midway", "2024-01-01T09:30:00", StatusActive},
		{"at end", "2024-01-01T10:00:00", StatusActive},
		{"one second after end", "2024-01-01T10:00:01", StatusCompleted},
		{"after end", "2024-01-01T10:01:00", StatusCompleted},
		{"previous day", "2023-12-31T09:30:00", StatusUpcoming},
		{"next day", "2024-01-02T09:30:00", StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(d, at(t, tt.now))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	d := Descriptor{SessionID: "1", StartTime: "09:00", EndTime: "10:00", SessionDate: "2024-01-01"}
	now := at(t, "2024-01-01T09:30:00")

	first, err := Evaluate(d, now)
	require.NoError(t, err)
	second, err := Evaluate(d, now)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEvaluateSecondsPrecision(t *testing.T) {
	d := Descriptor{SessionID: "1", StartTime: "09:00:30", EndTime: "10:00:00", SessionDate: "2024-01-01"}

	got, err := Evaluate(d, at(t, "2024-01-01T09:00:15"))
	require.NoError(t, err)
	assert.Equal(t, StatusUpcoming, got)
}

func TestEvaluateIncomplete(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
	}{
		{"missing start", Descriptor{SessionID: "1", EndTime: "10:00", SessionDate: "2024-01-01"}},
		{"missing end", Descriptor{SessionID: "1", StartTime: "09:00", SessionDate: "2024-01-01"}},
		{"missing date", Descriptor{SessionID: "1", StartTime: "09:00", EndTime: "10:00"}},
		{"blank date", Descriptor{SessionID: "1", StartTime: "09:00", EndTime: "10:00", SessionDate: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.d.IsComplete())
			status, err := Evaluate(tt.d, at(t, "2024-01-01T09:30:00"))
			assert.ErrorIs(t, err, ErrIncompleteDescriptor)
			assert.ErrorIs(t, err, ErrDescriptor)
			assert.Equal(t, StatusUnknown, status)
		})
	}
}

func TestEvaluateMalformed(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
	}{
		{"bad date", Descriptor{SessionID: "1", StartTime: "09:00", EndTime: "10:00", SessionDate: "01/01/2024"}},
		{"bad start", Descriptor{SessionID: "1", StartTime: "9am", EndTime: "10:00", SessionDate: "2024-01-01"}},
		{"bad end", Descriptor{SessionID: "1", StartTime: "09:00", EndTime: "25:00", SessionDate: "2024-01-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := Evaluate(tt.d, at(t, "2024-01-01T09:30:00"))
			assert.ErrorIs(t, err, ErrMalformedDescriptor)
			assert.NotErrorIs(t, err, ErrIncompleteDescriptor)
			assert.Equal(t, StatusUnknown, status)
		})
	}
}

func TestParseWindowUsesLocation(t *testing.T) {
	loc := time.FixedZone("WAT", 3600)
	d := Descriptor{SessionID: "1", StartTime: "09:00", EndTime: "10:00", SessionDate: "2024-01-01"}

	start, end, err := ParseWindow(d, loc)
	require.NoError(t, err)
	assert.Equal(t, loc, start.Location())
	assert.Equal(t, time.Hour, end.Sub(start))
	assert.Equal(t, 8, start.UTC().Hour())
}

func TestFixedClock(t *testing.T) {
	c := NewFixedClock(at(t, "2024-01-01T09:00:00"))
	c.Advance(90 * time.Second)
	assert.Equal(t, at(t, "2024-01-01T09:01:30"), c.Now())
	c.Set(at(t, "2024-01-02T00:00:00"))
	assert.Equal(t, at(t, "2024-01-02T00:00:00"), c.Now())
}

func TestStatusIsValid(t *testing.T) {
	assert.True(t, StatusActive.IsValid())
	assert.True(t, StatusUpcoming.IsValid())
	assert.True(t, StatusCompleted.IsValid())
	assert.False(t, StatusUnknown.IsValid())
	assert.False(t, Status("cancelled").IsValid())
}
