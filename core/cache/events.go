package cache

import (
	"log/slog"
	"slices"
	"sync"
)

type EventName string

const (
	EventSet        EventName = "set"
	EventDel        EventName = "del"
	EventExpired    EventName = "expired"
	EventFlush      EventName = "flush"
	EventFlushStats EventName = "flush_stats"
)

// Events lists every notification a cache publishes.
var Events = []EventName{EventSet, EventDel, EventExpired, EventFlush, EventFlushStats}

// Event is a notification. Key and Value are nil for flush and
// flush_stats.
type Event struct {
	Name  EventName
	Key   any
	Value any
}

type Listener func(Event)

type subscription struct {
	id uint64
	fn Listener
}

// bus keeps one ordered listener list per event name.
type bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[EventName][]subscription
}

func (b *bus) on(name EventName, fn Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[EventName][]subscription)
	}
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subs[name] = slices.DeleteFunc(b.subs[name], func(s subscription) bool {
			return s.id == id
		})
	}
}

func (b *bus) listeners(name EventName) []subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.subs[name])
}

// publish delivers events in order, each to its listeners in
// registration order. A panicking listener aborts delivery and the panic
// reaches the caller.
func (b *bus) publish(events []Event) {
	for _, ev := range events {
		for _, s := range b.listeners(ev.Name) {
			s.fn(ev)
		}
	}
}

// publishSafe is publish for callers without a caller to fail: listener
// panics are logged and delivery continues.
func (b *bus) publishSafe(log *slog.Logger, events []Event) {
	for _, ev := range events {
		for _, s := range b.listeners(ev.Name) {
			b.deliverSafe(log, s.fn, ev)
		}
	}
}

func (b *bus) deliverSafe(log *slog.Logger, fn Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(
				"listener panicked",
				slog.String("event", string(ev.Name)),
				slog.Any("key", ev.Key),
				slog.Any("recovered", r),
			)
		}
	}()
	fn(ev)
}

// batch collects the events of one operation while the store is locked.
type batch struct {
	events []Event
}

func (b *batch) emit(name EventName, key, value any) {
	b.events = append(b.events, Event{Name: name, Key: key, Value: value})
}
