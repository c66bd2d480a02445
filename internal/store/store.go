// Package store keeps the process-wide event collection.
//
// The whole collection lives in memory and is written out in full after
// every mutation. Event counts are small, so this trades throughput for a
// simple consistency model: a mutation is visible to readers only after it
// has been persisted.
//
// Concurrency: all mutations run through Update, which holds a single write
// lock for the load-modify-save sequence. Readers take the read lock and get
// deep copies, so they never observe a half-applied change.
package store

import (
	"sync"

	"gatherbot/internal/errdef"
	"gatherbot/internal/model"
)

// Backend is the durable side of the store.
type Backend interface {
	// Load returns every persisted event in insertion order. A backend with
	// no data yet returns an empty slice and no error.
	Load() ([]*model.Event, error)
	// Save replaces the persisted collection with events.
	Save(events []*model.Event) error
}

// Store is the in-memory event collection backed by a Backend.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	events  map[string]*model.Event
	order   []string
}

// Open loads the collection from backend. A backend that holds data which
// cannot be parsed yields a storage error; callers should refuse to serve.
func Open(backend Backend) (*Store, error) {
	events, err := backend.Load()
	if err != nil {
		return nil, errdef.NewStorage("load events: %w", err)
	}

	s := &Store{
		backend: backend,
		events:  make(map[string]*model.Event, len(events)),
		order:   make([]string, 0, len(events)),
	}
	for _, ev := range events {
		if _, dup := s.events[ev.Name]; dup {
			return nil, errdef.NewStorage("load events: duplicate event name %q", ev.Name)
		}
		s.events[ev.Name] = ev
		s.order = append(s.order, ev.Name)
	}
	return s, nil
}

// Get returns a copy of the named event.
func (s *Store) Get(name string) (*model.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[name]
	if !ok {
		return nil, false
	}
	return ev.Clone(), true
}

// List returns event names in insertion order.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Events returns copies of all events in insertion order.
func (s *Store) Events() []*model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Event, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.events[name].Clone())
	}
	return out
}

// Len returns the number of events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Update runs fn against a private copy of the collection under the write
// lock and persists the result. The copy replaces the live collection only
// after the backend accepted it; if fn or the save fails, nothing changes.
func (s *Store) Update(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{
		events: make(map[string]*model.Event, len(s.events)),
		order:  append([]string(nil), s.order...),
	}
	for name, ev := range s.events {
		tx.events[name] = ev.Clone()
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := s.backend.Save(tx.Events()); err != nil {
		return errdef.NewStorage("save events: %w", err)
	}

	s.events = tx.events
	s.order = tx.order
	return nil
}

// Tx is the mutable view handed to Update callbacks. It must not be used
// after the callback returns.
type Tx struct {
	events map[string]*model.Event
	order  []string
}

// Get returns the named event for modification in place.
func (tx *Tx) Get(name string) (*model.Event, error) {
	ev, ok := tx.events[name]
	if !ok {
		return nil, errdef.NewNotFound("event %q not found", name)
	}
	return ev, nil
}

// Create adds ev. An existing event with the same name is left untouched.
func (tx *Tx) Create(ev *model.Event) error {
	if _, ok := tx.events[ev.Name]; ok {
		return errdef.NewDuplicateName("an event named %q already exists", ev.Name)
	}
	tx.events[ev.Name] = ev.Clone()
	tx.order = append(tx.order, ev.Name)
	return nil
}

// Delete removes the named event and returns it.
func (tx *Tx) Delete(name string) (*model.Event, error) {
	ev, ok := tx.events[name]
	if !ok {
		return nil, errdef.NewNotFound("event %q not found", name)
	}
	delete(tx.events, name)
	for i, n := range tx.order {
		if n == name {
			tx.order = append(tx.order[:i], tx.order[i+1:]...)
			break
		}
	}
	return ev, nil
}

// Events returns the events of the transaction in insertion order. The
// returned pointers are the transaction's own.
func (tx *Tx) Events() []*model.Event {
	out := make([]*model.Event, 0, len(tx.order))
	for _, name := range tx.order {
		out = append(out, tx.events[name])
	}
	return out
}
