// Package notify manages transient user-visible notifications. Each
// notification is published on the event bus when shown and stays active
// for a fixed time-to-live.
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cspresent/present/internal/common/uuid"
	"github.com/cspresent/present/internal/eventbus"
	"github.com/cspresent/present/internal/schedule"
)

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Icon returns the icon name shown next to a notification of this level.
func (l Level) Icon() string {
	switch l {
	case LevelSuccess:
		return "check-circle"
	case LevelError:
		return "exclamation-circle"
	default:
		return "info-circle"
	}
}

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 5 * time.Second

// Notification is one message shown to the user.
type Notification struct {
	ID        uuid.UUID
	Level     Level
	Message   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Publisher receives shown notifications. *eventbus.EventBus satisfies it.
type Publisher interface {
	Publish(topic string, data any, timeout time.Duration)
}

// Notifier shows notifications and keeps track of the active ones.
type Notifier struct {
	clock     schedule.Clock
	publisher Publisher
	ttl       time.Duration

	mu     sync.Mutex
	active []Notification
}

// New creates a Notifier. A zero ttl selects DefaultTTL; publisher may be nil.
func New(clock schedule.Clock, publisher Publisher, ttl time.Duration) *Notifier {
	if clock == nil {
		clock = schedule.SystemClock{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Notifier{
		clock:     clock,
		publisher: publisher,
		ttl:       ttl,
	}
}

// Show records and publishes a notification.
func (n *Notifier) Show(level Level, message string) Notification {
	now := n.clock.Now()
	note := Notification{
		ID:        uuid.New(),
		Level:     level,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(n.ttl),
	}

	n.mu.Lock()
	n.active = append(n.prune(now), note)
	n.mu.Unlock()

	log.Debug().Str("level", string(level)).Str("message", message).Msg("notification shown")
	if n.publisher != nil {
		n.publisher.Publish(eventbus.NotifyTopic(string(level)), note, 0)
	}
	return note
}

// Success, Error, Warning and Info are shorthands for Show.
func (n *Notifier) Success(msg string) Notification { return n.Show(LevelSuccess, msg) }
func (n *Notifier) Error(msg string) Notification   { return n.Show(LevelError, msg) }
func (n *Notifier) Warning(msg string) Notification { return n.Show(LevelWarning, msg) }
func (n *Notifier) Info(msg string) Notification    { return n.Show(LevelInfo, msg) }

// Dismiss removes a notification before it expires.
func (n *Notifier) Dismiss(id uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	kept := n.active[:0]
	for _, note := range n.active {
		if note.ID != id {
			kept = append(kept, note)
		}
	}
	n.active = kept
}

// Active returns the notifications that have not expired, oldest first.
func (n *Notifier) Active() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.active = n.prune(n.clock.Now())
	out := make([]Notification, len(n.active))
	copy(out, n.active)
	return out
}

// prune drops expired notifications. Callers hold n.mu.
func (n *Notifier) prune(now time.Time) []Notification {
	kept := n.active[:0]
	for _, note := range n.active {
		if now.Before(note.ExpiresAt) {
			kept = append(kept, note)
		}
	}
	return kept
}
