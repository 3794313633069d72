// Package schedule classifies class sessions against wall-clock time.
// A session is described by a Descriptor carrying its date and the time of
// day it starts and ends. Classification is a pure function of the
// descriptor and the current time.
package schedule

import (
	"strings"
	"time"

	"github.com/cspresent/present/internal/common/apperrors"
)

// Status is the derived temporal relation between a session and now.
type Status string

const (
	StatusUnknown   Status = ""
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// IsValid reports whether s is one of the three classified statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusUpcoming, StatusActive, StatusCompleted:
		return true
	}
	return false
}

const (
	dateLayout = "2006-01-02"
)

// time of day formats accepted, in the order they are tried
var timeLayouts = []string{"15:04", "15:04:05"}

var (
	ErrDescriptor           apperrors.Error = apperrors.New("invalid session descriptor")
	ErrIncompleteDescriptor apperrors.Error = ErrDescriptor.New("session descriptor is incomplete")
	ErrMalformedDescriptor  apperrors.Error = ErrDescriptor.New("session descriptor is malformed")
)

// Descriptor holds the attributes needed to classify one session.
type Descriptor struct {
	SessionID   string `json:"id" yaml:"id" toml:"id"`
	StartTime   string `json:"start_time" yaml:"start_time" toml:"start_time"`
	EndTime     string `json:"end_time" yaml:"end_time" toml:"end_time"`
	SessionDate string `json:"date" yaml:"date" toml:"date"`

	CourseCode  string `json:"course_code,omitempty" yaml:"course_code,omitempty" toml:"course_code"`
	CourseTitle string `json:"course_title,omitempty" yaml:"course_title,omitempty" toml:"course_title"`
	Location    string `json:"location,omitempty" yaml:"location,omitempty" toml:"location"`
}

// IsComplete reports whether the start time, end time and date are all present.
func (d Descriptor) IsComplete() bool {
	return strings.TrimSpace(d.StartTime) != "" &&
		strings.TrimSpace(d.EndTime) != "" &&
		strings.TrimSpace(d.SessionDate) != ""
}

// ParseWindow builds the start and end instants of the session in loc.
func ParseWindow(d Descriptor, loc *time.Location) (time.Time, time.Time, error) {
	if !d.IsComplete() {
		return time.Time{}, time.Time{}, ErrIncompleteDescriptor.Msg("session " + d.SessionID + " is missing start time, end time or date")
	}
	if loc == nil {
		loc = time.Local
	}
	date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(d.SessionDate), loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrMalformedDescriptor.MsgErr("invalid session date "+d.SessionDate, err)
	}
	start, err := atTimeOfDay(date, d.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, ErrMalformedDescriptor.MsgErr("invalid start time "+d.StartTime, err)
	}
	end, err := atTimeOfDay(date, d.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, ErrMalformedDescriptor.MsgErr("invalid end time "+d.EndTime, err)
	}
	return start, end, nil
}

func atTimeOfDay(date time.Time, clock string) (time.Time, error) {
	clock = strings.TrimSpace(clock)
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, clock)
		if err != nil {
			lastErr = err
			continue
		}
		return time.Date(date.Year(), date.Month(), date.Day(),
			t.Hour(), t.Minute(), t.Second(), 0, date.Location()), nil
	}
	return time.Time{}, lastErr
}

// Classify returns the status of a session spanning [start, end] at now.
// Both ends of the window are inclusive.
func Classify(start, end, now time.Time) Status {
	switch {
	case now.Before(start):
		return StatusUpcoming
	case now.After(end):
		return StatusCompleted
	default:
		return StatusActive
	}
}

// Evaluate parses d in the location of now and classifies it.
func Evaluate(d Descriptor, now time.Time) (Status, error) {
	start, end, err := ParseWindow(d, now.Location())
	if err != nil {
		return StatusUnknown, err
	}
	return Classify(start, end, now), nil
}
