// Package eventbus is an in-memory topic publish/subscribe bus. The poller
// publishes session status changes on it and the notifier publishes
// transient notifications; renderers subscribe with dot-separated topic
// patterns where "*" matches one component.
package eventbus

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Topic names used across the application.
const (
	SessionStatusPattern = "session.*.status"
	NotifyPattern        = "notify.*"
)

// SessionStatusTopic is the topic status changes of session id are published on.
func SessionStatusTopic(id string) string {
	// dots would split the id into several components
	return "session." + strings.ReplaceAll(id, ".", "_") + ".status"
}

// NotifyTopic is the topic notifications of the given level are published on.
func NotifyTopic(level string) string {
	return "notify." + level
}

// Event is a single published message.
type Event struct {
	Topic string
	Data  any
}

type subscriber struct {
	ch chan Event

	mu     sync.Mutex
	closed bool
}

// send delivers ev, waiting at most timeout for buffer space.
func (s *subscriber) send(ev Event, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if timeout <= 0 {
		select {
		case s.ch <- ev:
			return true
		default:
			return false
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case s.ch <- ev:
		return true
	case <-timer.C:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// EventBus routes events from publishers to pattern subscribers.
type EventBus struct {
	sync.RWMutex
	subscribers map[string]map[string]*subscriber // pattern -> id -> subscriber
	counter     uint64
	dropped     atomic.Uint64
}

// New creates an empty EventBus.
func New() *EventBus {
	return &EventBus{
		subscribers: make(map[string]map[string]*subscriber),
	}
}

// Subscribe registers interest in pattern. The returned channel is closed by
// the unsubscribe function or by Shutdown.
func (bus *EventBus) Subscribe(pattern string, bufferSize int) (<-chan Event, func()) {
	id := fmt.Sprintf("sub-%d", atomic.AddUint64(&bus.counter, 1))
	sub := &subscriber{ch: make(chan Event, bufferSize)}

	bus.Lock()
	if _, ok := bus.subscribers[pattern]; !ok {
		bus.subscribers[pattern] = make(map[string]*subscriber)
	}
	bus.subscribers[pattern][id] = sub
	bus.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			bus.Lock()
			defer bus.Unlock()
			if subMap, ok := bus.subscribers[pattern]; ok {
				if s, ok := subMap[id]; ok {
					s.close()
					delete(subMap, id)
					if len(subMap) == 0 {
						delete(bus.subscribers, pattern)
					}
				}
			}
		})
	}
	return sub.ch, unsubscribe
}

// Publish delivers data to every subscriber whose pattern matches topic.
// A subscriber whose buffer stays full for timeout misses the event.
func (bus *EventBus) Publish(topic string, data any, timeout time.Duration) {
	ev := Event{Topic: topic, Data: data}

	bus.RLock()
	defer bus.RUnlock()

	for pattern, subMap := range bus.subscribers {
		if !matchTopic(pattern, topic) {
			continue
		}
		for _, sub := range subMap {
			if !sub.send(ev, timeout) {
				bus.dropped.Add(1)
			}
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was
// slow or closed.
func (bus *EventBus) Dropped() uint64 {
	return bus.dropped.Load()
}

// Shutdown closes every subscriber.
func (bus *EventBus) Shutdown() {
	bus.Lock()
	defer bus.Unlock()

	for _, subs := range bus.subscribers {
		for _, sub := range subs {
			sub.close()
		}
	}
	bus.subscribers = make(map[string]map[string]*subscriber)
}

// matchTopic reports whether topic matches pattern. Components are separated
// by dots; "*" alone matches any topic and as a component matches one component.
func matchTopic(pattern, topic string) bool {
	if pattern == "" || topic == "" {
		return false
	}
	if pattern == "*" || pattern == topic {
		return true
	}
	patternParts := strings.Split(pattern, ".")
	topicParts := strings.Split(topic, ".")
	if len(patternParts) != len(topicParts) {
		return false
	}
	for i := range patternParts {
		if patternParts[i] == "*" {
			continue
		}
		if patternParts[i] != topicParts[i] {
			return false
		}
	}
	return true
}
