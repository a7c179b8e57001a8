package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fudign/kfa-sub000/internal/event/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	"github.com/fudign/kfa-sub000/pkg/platform/sentinel"
)

// Error Contract:
// - ErrNotFound when an event or registration does not exist or is soft-deleted
// - ErrConflict when the subject already has a registration for the event

type InMemoryStore struct {
	mu            sync.RWMutex
	events        map[id.EventID]*models.Event
	registrations map[id.RegistrationID]*models.Registration
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		events:        make(map[id.EventID]*models.Event),
		registrations: make(map[id.RegistrationID]*models.Registration),
	}
}

func cloneEvent(e *models.Event) *models.Event {
	c := *e
	return &c
}

func clone(r *models.Registration) *models.Registration {
	c := *r
	if r.Answers != nil {
		c.Answers = append([]byte(nil), r.Answers...)
	}
	return &c
}

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

func (s *InMemoryStore) CreateEvent(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = cloneEvent(event)
	return nil
}

func (s *InMemoryStore) FindEvent(_ context.Context, eventID id.EventID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[eventID]
	if !ok || e.DeletedAt != nil {
		return nil, fmt.Errorf("event not found: %w", sentinel.ErrNotFound)
	}
	return cloneEvent(e), nil
}

// LockEvent is FindEvent; the tx runner already serializes writers.
func (s *InMemoryStore) LockEvent(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	return s.FindEvent(ctx, eventID)
}

func (s *InMemoryStore) ListEvents(_ context.Context, filter models.EventFilter, page pagination.Params) ([]*models.Event, int, error) {
	s.mu.RLock()
	var matched []*models.Event
	for _, e := range s.events {
		if e.DeletedAt == nil && filter.Matches(e) {
			matched = append(matched, cloneEvent(e))
		}
	}
	s.mu.RUnlock()
	sort.Slice(matched, func(i, j int) bool { return matched[i].StartsAt.Before(matched[j].StartsAt) })
	return pagination.Slice(matched, page), len(matched), nil
}

func (s *InMemoryStore) DeleteEvent(_ context.Context, eventID id.EventID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok || e.DeletedAt != nil {
		return fmt.Errorf("event not found: %w", sentinel.ErrNotFound)
	}
	e.DeletedAt = &now
	e.UpdatedAt = now
	return nil
}

// CountLive counts registrations that still occupy a seat.
func (s *InMemoryStore) CountLive(_ context.Context, eventID id.EventID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.registrations {
		if r.DeletedAt == nil && r.EventID == eventID && r.Status.Counted() {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) AdjustRegistered(_ context.Context, eventID id.EventID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("event not found: %w", sentinel.ErrNotFound)
	}
	if e.RegisteredCount+delta < 0 {
		return fmt.Errorf("registered_count of %s would go negative", eventID)
	}
	e.RegisteredCount += delta
	return nil
}

// -----------------------------------------------------------------------------
// Registrations
// -----------------------------------------------------------------------------

func (s *InMemoryStore) Exists(_ context.Context, eventID id.EventID, userID id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.existsLocked(eventID, userID), nil
}

func (s *InMemoryStore) existsLocked(eventID id.EventID, userID id.UserID) bool {
	for _, r := range s.registrations {
		if r.DeletedAt == nil && r.EventID == eventID && r.UserID == userID {
			return true
		}
	}
	return false
}

func (s *InMemoryStore) Create(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsLocked(reg.EventID, reg.UserID) {
		return fmt.Errorf("already registered: %w", sentinel.ErrConflict)
	}
	s.registrations[reg.ID] = clone(reg)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, regID id.RegistrationID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.registrations[regID]
	if !ok || r.DeletedAt != nil {
		return nil, fmt.Errorf("registration not found: %w", sentinel.ErrNotFound)
	}
	return clone(r), nil
}

func (s *InMemoryStore) Execute(_ context.Context, regID id.RegistrationID, validate func(*models.Registration) error, mutate func(*models.Registration)) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registrations[regID]
	if !ok || r.DeletedAt != nil {
		return nil, fmt.Errorf("registration not found: %w", sentinel.ErrNotFound)
	}
	working := clone(r)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.registrations[regID] = working
	return clone(working), nil
}

func (s *InMemoryStore) SoftDelete(_ context.Context, regID id.RegistrationID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registrations[regID]
	if !ok || r.DeletedAt != nil {
		return fmt.Errorf("registration not found: %w", sentinel.ErrNotFound)
	}
	r.DeletedAt = &now
	r.UpdatedAt = now
	return nil
}

func (s *InMemoryStore) matching(filter models.ListFilter) []*models.Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Registration
	for _, r := range s.registrations {
		if r.DeletedAt != nil || !filter.Matches(r) {
			continue
		}
		if filter.Upcoming {
			e, ok := s.events[r.EventID]
			if !ok || !e.StartsAt.After(filter.At) {
				continue
			}
		}
		out = append(out, clone(r))
	}
	return out
}

func (s *InMemoryStore) List(_ context.Context, filter models.ListFilter, page pagination.Params) ([]*models.Registration, int, error) {
	matched := s.matching(filter)
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return pagination.Slice(matched, page), len(matched), nil
}

func (s *InMemoryStore) Stats(_ context.Context, eventID *id.EventID) (models.Stats, error) {
	stats := models.Stats{ByStatus: make(map[models.Status]int)}
	for _, r := range s.matching(models.ListFilter{EventID: eventID}) {
		stats.Total++
		stats.ByStatus[r.Status]++
		if r.CertificateIssuedAt != nil {
			stats.CertificatesIssued++
		}
		if r.CPEHoursEarned != nil {
			stats.TotalCPEHoursEarned += *r.CPEHoursEarned
		}
	}
	return stats, nil
}
