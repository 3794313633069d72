// Package action holds the state of the per-session attendance control.
// A control is visible only while its session is active. Triggering it
// runs one request at a time; a failure re-enables the control and shows a
// single error notification.
package action

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/cspresent/present/internal/common/apperrors"
	"github.com/cspresent/present/internal/notify"
	"github.com/cspresent/present/internal/poller"
)

// Control labels.
const (
	LabelMark    = "Mark Present"
	LabelMarking = "Marking..."
	LabelPresent = "Present"
)

const (
	DefaultSuccessMessage = "Attendance marked successfully!"
	DefaultFailureMessage = "Failed to mark attendance. Please try again."
)

var (
	ErrAction      apperrors.Error = apperrors.New("attendance action unavailable")
	ErrHidden      apperrors.Error = ErrAction.New("session is not active")
	ErrInFlight    apperrors.Error = ErrAction.New("a request is already in progress")
	ErrAlreadyDone apperrors.Error = ErrAction.New("attendance already marked")
)

// Func performs the request behind a control and returns the server's
// success message, if any.
type Func func(ctx context.Context) (string, error)

// Notifier shows user-visible notifications. *notify.Notifier satisfies it.
type Notifier interface {
	Show(level notify.Level, message string) notify.Notification
}

// State is a snapshot of a control.
type State struct {
	SessionID string `json:"session_id"`
	Visible   bool   `json:"visible"`
	Enabled   bool   `json:"enabled"`
	Label     string `json:"label"`
	Marked    bool   `json:"marked"`
}

// Options configures messages shown by a control.
type Options struct {
	// Describe turns a failure into the error notification text. When nil
	// or when it returns "", DefaultFailureMessage is used.
	Describe func(err error) string
}

// Control is the attendance action of one session.
type Control struct {
	notifier Notifier
	describe func(error) string

	mu       sync.Mutex
	state    State
	inFlight bool
}

// NewControl creates a hidden control for sessionID.
func NewControl(sessionID string, notifier Notifier, opts ...Options) *Control {
	o := Options{}
	if len(opts) > 0 {
		o = opts[0]
	}
	return &Control{
		notifier: notifier,
		describe: o.Describe,
		state: State{
			SessionID: sessionID,
			Label:     LabelMark,
		},
	}
}

// State returns a copy of the current state.
func (c *Control) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetVisible shows or hides the control. A hidden control is never enabled.
func (c *Control) SetVisible(visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Visible = visible
	c.state.Enabled = visible && !c.inFlight && !c.state.Marked
}

// Trigger runs fn unless the control is hidden, already marked or busy.
// The control is disabled while fn runs. On success it shows "Present" and
// stays disabled. On failure it is re-enabled, exactly one error
// notification is shown and fn is not retried; the error is returned.
func (c *Control) Trigger(ctx context.Context, fn Func) error {
	c.mu.Lock()
	switch {
	case c.inFlight:
		c.mu.Unlock()
		return ErrInFlight
	case c.state.Marked:
		c.mu.Unlock()
		return ErrAlreadyDone
	case !c.state.Visible:
		c.mu.Unlock()
		return ErrHidden
	}
	c.inFlight = true
	c.state.Enabled = false
	c.state.Label = LabelMarking
	id := c.state.SessionID
	c.mu.Unlock()

	msg, err := run(ctx, fn)

	c.mu.Lock()
	c.inFlight = false
	if err == nil {
		c.state.Marked = true
		c.state.Label = LabelPresent
		c.state.Enabled = false
	} else {
		c.state.Label = LabelMark
		c.state.Enabled = c.state.Visible
	}
	c.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Str("session_id", id).Msg("attendance action failed")
		c.show(notify.LevelError, c.failureText(err))
		return err
	}
	if msg == "" {
		msg = DefaultSuccessMessage
	}
	c.show(notify.LevelSuccess, msg)
	return nil
}

// run calls fn, turning a panic into an error.
func run(ctx context.Context, fn Func) (msg string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("attendance action panicked: %v", r)
		}
	}()
	return fn(ctx)
}

func (c *Control) failureText(err error) string {
	if c.describe != nil {
		if s := c.describe(err); s != "" {
			return s
		}
	}
	return DefaultFailureMessage
}

func (c *Control) show(level notify.Level, msg string) {
	if c.notifier != nil {
		c.notifier.Show(level, msg)
	}
}

// Board keeps one Control per session and follows poller status changes.
type Board struct {
	notifier Notifier
	opts     Options

	mu       sync.Mutex
	controls map[string]*Control
}

// NewBoard creates an empty board. Controls created by it share notifier
// and opts.
func NewBoard(notifier Notifier, opts ...Options) *Board {
	o := Options{}
	if len(opts) > 0 {
		o = opts[0]
	}
	return &Board{
		notifier: notifier,
		opts:     o,
		controls: make(map[string]*Control),
	}
}

// Control returns the control of sessionID, creating a hidden one if needed.
func (b *Board) Control(sessionID string) *Control {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.controls[sessionID]
	if !ok {
		c = NewControl(sessionID, b.notifier, b.opts)
		b.controls[sessionID] = c
	}
	return c
}

// Apply updates control visibility from status changes.
func (b *Board) Apply(changes ...poller.StatusChange) {
	for _, ch := range changes {
		b.Control(ch.SessionID).SetVisible(ch.ShowAttendance)
	}
}

// Visible returns the ids of sessions whose control is currently shown.
func (b *Board) Visible() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []string
	for id, c := range b.controls {
		if c.State().Visible {
			ids = append(ids, id)
		}
	}
	return ids
}
