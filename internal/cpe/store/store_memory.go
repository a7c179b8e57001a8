package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fudign/kfa-sub000/internal/cpe/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	"github.com/fudign/kfa-sub000/pkg/platform/sentinel"
)

// Error Contract:
// - ErrNotFound when the activity does not exist or is soft-deleted
// - ErrConflict when a credit for the same (type, source, user) exists

type InMemoryStore struct {
	mu         sync.RWMutex
	activities map[id.ActivityID]*models.Activity
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{activities: make(map[id.ActivityID]*models.Activity)}
}

func clone(a *models.Activity) *models.Activity {
	c := *a
	return &c
}

func (s *InMemoryStore) Create(_ context.Context, activity *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if activity.SourceID != nil {
		for _, existing := range s.activities {
			if sameSource(existing, activity.ActivityType, *activity.SourceID, activity.UserID) {
				return fmt.Errorf("credit already recorded: %w", sentinel.ErrConflict)
			}
		}
	}
	s.activities[activity.ID] = clone(activity)
	return nil
}

func sameSource(a *models.Activity, activityType models.ActivityType, sourceID uuid.UUID, userID id.UserID) bool {
	return a.SourceID != nil && *a.SourceID == sourceID && a.ActivityType == activityType && a.UserID == userID
}

func (s *InMemoryStore) FindByID(_ context.Context, activityID id.ActivityID) (*models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.activities[activityID]
	if !ok || a.DeletedAt != nil {
		return nil, fmt.Errorf("activity not found: %w", sentinel.ErrNotFound)
	}
	return clone(a), nil
}

// FindBySource ignores soft deletion so a removed credit is not re-issued.
func (s *InMemoryStore) FindBySource(_ context.Context, activityType models.ActivityType, sourceID uuid.UUID, userID id.UserID) (*models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.activities {
		if sameSource(a, activityType, sourceID, userID) {
			return clone(a), nil
		}
	}
	return nil, fmt.Errorf("credit not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) Execute(_ context.Context, activityID id.ActivityID, validate func(*models.Activity) error, mutate func(*models.Activity)) (*models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[activityID]
	if !ok || a.DeletedAt != nil {
		return nil, fmt.Errorf("activity not found: %w", sentinel.ErrNotFound)
	}
	working := clone(a)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.activities[activityID] = working
	return clone(working), nil
}

func (s *InMemoryStore) SoftDelete(_ context.Context, activityID id.ActivityID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[activityID]
	if !ok || a.DeletedAt != nil {
		return fmt.Errorf("activity not found: %w", sentinel.ErrNotFound)
	}
	a.DeletedAt = &now
	a.UpdatedAt = now
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter models.ListFilter, page pagination.Params) ([]*models.Activity, int, error) {
	matched := s.matching(filter)
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].ActivityDate.Equal(matched[j].ActivityDate) {
			return matched[i].ActivityDate.After(matched[j].ActivityDate)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return pagination.Slice(matched, page), len(matched), nil
}

func (s *InMemoryStore) matching(filter models.ListFilter) []*models.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Activity
	for _, a := range s.activities {
		if a.DeletedAt == nil && filter.Matches(a) {
			out = append(out, clone(a))
		}
	}
	return out
}

func approvedFilter(userID *id.UserID, w models.Window) models.ListFilter {
	return models.ListFilter{UserID: userID, Status: models.StatusApproved, Window: w}
}

func (s *InMemoryStore) SumApprovedHours(_ context.Context, userID *id.UserID, w models.Window) (float64, error) {
	var total float64
	for _, a := range s.matching(approvedFilter(userID, w)) {
		total += a.Hours
	}
	return total, nil
}

func (s *InMemoryStore) ApprovedHoursByCategory(_ context.Context, userID *id.UserID, w models.Window) (map[models.Category]float64, error) {
	out := make(map[models.Category]float64)
	for _, a := range s.matching(approvedFilter(userID, w)) {
		out[a.Category] += a.Hours
	}
	return out, nil
}

func (s *InMemoryStore) CountByStatus(_ context.Context, userID *id.UserID, w models.Window) (map[models.Status]int, error) {
	out := make(map[models.Status]int)
	for _, a := range s.matching(models.ListFilter{UserID: userID, Window: w}) {
		out[a.Status]++
	}
	return out, nil
}
