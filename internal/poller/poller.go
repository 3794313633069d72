// Package poller recomputes session statuses on a fixed cadence and
// publishes a StatusChange every time a session's status differs from the
// last one observed.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cspresent/present/internal/eventbus"
	"github.com/cspresent/present/internal/schedule"
)

// DefaultInterval is the period between two ticks.
const DefaultInterval = time.Minute

// DefaultPublishTimeout bounds how long a tick waits on a slow subscriber.
const DefaultPublishTimeout = 100 * time.Millisecond

// Source supplies the current descriptor list. The poller never modifies
// the returned slice.
type Source interface {
	Descriptors(ctx context.Context) ([]schedule.Descriptor, error)
}

// StaticSource serves a fixed list.
type StaticSource []schedule.Descriptor

func (s StaticSource) Descriptors(context.Context) ([]schedule.Descriptor, error) {
	return s, nil
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]schedule.Descriptor, error)

func (f SourceFunc) Descriptors(ctx context.Context) ([]schedule.Descriptor, error) {
	return f(ctx)
}

// Publisher receives status changes. *eventbus.EventBus satisfies it.
type Publisher interface {
	Publish(topic string, data any, timeout time.Duration)
}

// StatusChange is emitted when a session's status differs from the last
// observed one. The first observation of a session always emits.
type StatusChange struct {
	SessionID      string
	Descriptor     schedule.Descriptor
	Previous       schedule.Status
	Current        schedule.Status
	ShowAttendance bool
	At             time.Time
}

// BecameActive reports a transition into the active window.
func (c StatusChange) BecameActive() bool {
	return c.Current == schedule.StatusActive && c.Previous != schedule.StatusActive
}

// Options tunes a Poller. Zero values select the defaults.
type Options struct {
	Interval       time.Duration
	PublishTimeout time.Duration
}

// Poller classifies descriptors from a Source against a Clock.
type Poller struct {
	clock          schedule.Clock
	source         Source
	publisher      Publisher
	interval       time.Duration
	publishTimeout time.Duration

	mu   sync.Mutex
	last map[string]schedule.Status
}

// New creates a Poller. publisher may be nil when only Tick results are used.
func New(clock schedule.Clock, source Source, publisher Publisher, opts ...Options) *Poller {
	o := Options{}
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = DefaultPublishTimeout
	}
	if clock == nil {
		clock = schedule.SystemClock{}
	}
	return &Poller{
		clock:          clock,
		source:         source,
		publisher:      publisher,
		interval:       o.Interval,
		publishTimeout: o.PublishTimeout,
		last:           make(map[string]schedule.Status),
	}
}

// Interval returns the configured tick period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Tick evaluates every descriptor once and returns the changes it published.
// Incomplete or malformed descriptors keep their previous status. An error is
// returned only when the source cannot be read, in which case nothing changes.
func (p *Poller) Tick(ctx context.Context) ([]StatusChange, error) {
	descriptors, err := p.source.Descriptors(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("unable to load session descriptors")
		return nil, err
	}
	now := p.clock.Now()

	p.mu.Lock()

	var changes []StatusChange
	seen := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		seen[d.SessionID] = true
		status, err := schedule.Evaluate(d, now)
		if err != nil {
			if errors.Is(err, schedule.ErrMalformedDescriptor) {
				log.Warn().Str("session_id", d.SessionID).Err(err).Msg("cannot determine session status")
			} else {
				log.Debug().Str("session_id", d.SessionID).Msg("skipping incomplete session descriptor")
			}
			continue
		}
		previous := p.last[d.SessionID]
		if status == previous {
			continue
		}
		p.last[d.SessionID] = status
		change := StatusChange{
			SessionID:      d.SessionID,
			Descriptor:     d,
			Previous:       previous,
			Current:        status,
			ShowAttendance: status == schedule.StatusActive,
			At:             now,
		}
		changes = append(changes, change)
		log.Debug().Str("session_id", d.SessionID).
			Str("previous", string(previous)).
			Str("status", string(status)).
			Msg("session status changed")
	}
	for id := range p.last {
		if !seen[id] {
			delete(p.last, id)
		}
	}
	p.mu.Unlock()

	if p.publisher != nil {
		for _, c := range changes {
			p.publisher.Publish(eventbus.SessionStatusTopic(c.SessionID), c, p.publishTimeout)
		}
	}
	return changes, nil
}

// Run ticks once immediately and then every interval until ctx is done.
// Ticks run on the calling goroutine and never overlap.
func (p *Poller) Run(ctx context.Context) error {
	p.Tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Snapshot returns the last known status of every tracked session.
func (p *Poller) Snapshot() map[string]schedule.Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]schedule.Status, len(p.last))
	for id, s := range p.last {
		out[id] = s
	}
	return out
}

// Status returns the last known status of one session.
func (p *Poller) Status(id string) (schedule.Status, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.last[id]
	return s, ok
}
