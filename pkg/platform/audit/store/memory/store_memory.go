package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	id "github.com/fudign/kfa-sub000/pkg/domain"
	audit "github.com/fudign/kfa-sub000/pkg/platform/audit"
)

// InMemoryStore keeps events for tests and for running without a database.
// It also behaves as an outbox so the relay can be exercised without Postgres.
type InMemoryStore struct {
	mu        sync.RWMutex
	events    []audit.Event
	outbox    []audit.OutboxEntry
	published map[uuid.UUID]time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{published: make(map[uuid.UUID]time.Time)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.outbox = nil
	s.published = make(map[uuid.UUID]time.Time)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	payload, err := json.Marshal(audit.PayloadFor(uuid.New(), event))
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	s.outbox = append(s.outbox, audit.OutboxEntry{
		ID:          uuid.New(),
		AggregateID: event.Subject,
		EventType:   event.Action,
		Payload:     payload,
		CreatedAt:   event.Timestamp,
	})
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListAll returns every event in append order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events...), nil
}

// Actions returns the action of every event in append order.
func (s *InMemoryStore) Actions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Action)
	}
	return out
}

func (s *InMemoryStore) ClaimBatch(_ context.Context, limit int) ([]audit.OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.OutboxEntry
	for _, entry := range s.outbox {
		if _, done := s.published[entry.ID]; done {
			continue
		}
		out = append(out, entry)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entryID := range ids {
		s.published[entryID] = at
	}
	return nil
}

// Pending reports how many outbox entries are not yet published.
func (s *InMemoryStore) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.outbox) - len(s.published)
}
