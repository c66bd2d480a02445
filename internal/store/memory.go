package store

import (
	"sync"

	"gatherbot/internal/model"
)

// MemoryBackend keeps the collection in process memory only.
type MemoryBackend struct {
	mu     sync.Mutex
	events []*model.Event
	saves  int
}

func NewMemoryBackend(events ...*model.Event) *MemoryBackend {
	return &MemoryBackend{events: cloneAll(events)}
}

func (b *MemoryBackend) Load() ([]*model.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneAll(b.events), nil
}

func (b *MemoryBackend) Save(events []*model.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = cloneAll(events)
	b.saves++
	return nil
}

// Saves reports how many times Save was called.
func (b *MemoryBackend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

func cloneAll(events []*model.Event) []*model.Event {
	out := make([]*model.Event, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Clone())
	}
	return out
}
