package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/fudign/kfa-sub000/internal/membership/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	"github.com/fudign/kfa-sub000/pkg/platform/sentinel"
)

// Error Contract:
// - ErrNotFound when the application does not exist or is soft-deleted
// - ErrConflict when the subject already has an open application
// - errors from validate callbacks are returned unchanged

// InMemoryStore keeps applications and the member directory in memory.
type InMemoryStore struct {
	mu           sync.RWMutex
	applications map[id.ApplicationID]*models.Application
	members      map[id.UserID]models.Member
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		applications: make(map[id.ApplicationID]*models.Application),
		members:      make(map[id.UserID]models.Member),
	}
}

func clone(a *models.Application) *models.Application {
	c := *a
	return &c
}

func (s *InMemoryStore) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if app.Status.IsOpen() {
		for _, existing := range s.applications {
			if existing.UserID == app.UserID && existing.Status.IsOpen() && existing.DeletedAt == nil {
				return fmt.Errorf("open application exists for user: %w", sentinel.ErrConflict)
			}
		}
	}
	s.applications[app.ID] = clone(app)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, appID id.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.applications[appID]
	if !ok || app.DeletedAt != nil {
		return nil, fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
	}
	return clone(app), nil
}

func (s *InMemoryStore) HasOpenApplication(_ context.Context, userID id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, app := range s.applications {
		if app.UserID == userID && app.Status.IsOpen() && app.DeletedAt == nil {
			return true, nil
		}
	}
	return false, nil
}

// Execute loads the application under the store lock, runs validate, then
// mutate, and persists the result. Nothing is written when validate fails.
func (s *InMemoryStore) Execute(_ context.Context, appID id.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application)) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.applications[appID]
	if !ok || app.DeletedAt != nil {
		return nil, fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
	}
	working := clone(app)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.applications[appID] = working
	return clone(working), nil
}

func (s *InMemoryStore) SoftDelete(_ context.Context, appID id.ApplicationID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.applications[appID]
	if !ok || app.DeletedAt != nil {
		return fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
	}
	app.DeletedAt = &now
	app.UpdatedAt = now
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter models.ListFilter, page pagination.Params) ([]*models.Application, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*models.Application
	for _, app := range s.applications {
		if app.DeletedAt != nil {
			continue
		}
		if filter.UserID != nil && app.UserID != *filter.UserID {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, app.Status) {
			continue
		}
		if filter.MembershipType != "" && app.MembershipType != filter.MembershipType {
			continue
		}
		matched = append(matched, clone(app))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return pagination.Slice(matched, page), len(matched), nil
}

func (s *InMemoryStore) UpsertMember(_ context.Context, member models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.members[member.UserID]; ok {
		member.JoinedAt = existing.JoinedAt
	}
	s.members[member.UserID] = member
	return nil
}

func (s *InMemoryStore) IsMember(_ context.Context, userID id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[userID]
	return ok, nil
}
