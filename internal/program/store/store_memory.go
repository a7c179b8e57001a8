package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fudign/kfa-sub000/internal/program/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	"github.com/fudign/kfa-sub000/pkg/platform/sentinel"
)

// Error Contract:
// - ErrNotFound when a program or enrollment does not exist or is soft-deleted
// - ErrConflict when the subject already has an enrollment in the program

type InMemoryStore struct {
	mu          sync.RWMutex
	programs    map[id.ProgramID]*models.Program
	enrollments map[id.EnrollmentID]*models.Enrollment
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		programs:    make(map[id.ProgramID]*models.Program),
		enrollments: make(map[id.EnrollmentID]*models.Enrollment),
	}
}

func cloneProgram(p *models.Program) *models.Program {
	c := *p
	return &c
}

func clone(e *models.Enrollment) *models.Enrollment {
	c := *e
	return &c
}

func (s *InMemoryStore) CreateProgram(_ context.Context, program *models.Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs[program.ID] = cloneProgram(program)
	return nil
}

func (s *InMemoryStore) FindProgram(_ context.Context, programID id.ProgramID) (*models.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.programs[programID]
	if !ok || p.DeletedAt != nil {
		return nil, fmt.Errorf("program not found: %w", sentinel.ErrNotFound)
	}
	return cloneProgram(p), nil
}

// LockProgram is FindProgram; the tx runner already serializes writers.
func (s *InMemoryStore) LockProgram(ctx context.Context, programID id.ProgramID) (*models.Program, error) {
	return s.FindProgram(ctx, programID)
}

func (s *InMemoryStore) ListPrograms(_ context.Context, filter models.ProgramFilter, page pagination.Params) ([]*models.Program, int, error) {
	s.mu.RLock()
	var matched []*models.Program
	for _, p := range s.programs {
		if p.DeletedAt == nil && filter.Matches(p) {
			matched = append(matched, cloneProgram(p))
		}
	}
	s.mu.RUnlock()
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return pagination.Slice(matched, page), len(matched), nil
}

func (s *InMemoryStore) DeleteProgram(_ context.Context, programID id.ProgramID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.programs[programID]
	if !ok || p.DeletedAt != nil {
		return fmt.Errorf("program not found: %w", sentinel.ErrNotFound)
	}
	p.DeletedAt = &now
	p.UpdatedAt = now
	return nil
}

func (s *InMemoryStore) CountLive(_ context.Context, programID id.ProgramID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.enrollments {
		if e.DeletedAt == nil && e.ProgramID == programID && e.Status.Counted() {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) AdjustEnrolled(_ context.Context, programID id.ProgramID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.programs[programID]
	if !ok {
		return fmt.Errorf("program not found: %w", sentinel.ErrNotFound)
	}
	if p.EnrolledCount+delta < 0 {
		return fmt.Errorf("enrolled_count of %s would go negative", programID)
	}
	p.EnrolledCount += delta
	return nil
}

func (s *InMemoryStore) Exists(_ context.Context, programID id.ProgramID, userID id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.existsLocked(programID, userID), nil
}

func (s *InMemoryStore) existsLocked(programID id.ProgramID, userID id.UserID) bool {
	for _, e := range s.enrollments {
		if e.DeletedAt == nil && e.ProgramID == programID && e.UserID == userID {
			return true
		}
	}
	return false
}

func (s *InMemoryStore) Create(_ context.Context, enrollment *models.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsLocked(enrollment.ProgramID, enrollment.UserID) {
		return fmt.Errorf("already enrolled: %w", sentinel.ErrConflict)
	}
	s.enrollments[enrollment.ID] = clone(enrollment)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.enrollments[enrollmentID]
	if !ok || e.DeletedAt != nil {
		return nil, fmt.Errorf("enrollment not found: %w", sentinel.ErrNotFound)
	}
	return clone(e), nil
}

func (s *InMemoryStore) Execute(_ context.Context, enrollmentID id.EnrollmentID, validate func(*models.Enrollment) error, mutate func(*models.Enrollment)) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enrollments[enrollmentID]
	if !ok || e.DeletedAt != nil {
		return nil, fmt.Errorf("enrollment not found: %w", sentinel.ErrNotFound)
	}
	working := clone(e)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.enrollments[enrollmentID] = working
	return clone(working), nil
}

func (s *InMemoryStore) SoftDelete(_ context.Context, enrollmentID id.EnrollmentID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enrollments[enrollmentID]
	if !ok || e.DeletedAt != nil {
		return fmt.Errorf("enrollment not found: %w", sentinel.ErrNotFound)
	}
	e.DeletedAt = &now
	e.UpdatedAt = now
	return nil
}

func (s *InMemoryStore) matching(filter models.ListFilter) []*models.Enrollment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Enrollment
	for _, e := range s.enrollments {
		if e.DeletedAt == nil && filter.Matches(e) {
			out = append(out, clone(e))
		}
	}
	return out
}

func (s *InMemoryStore) List(_ context.Context, filter models.ListFilter, page pagination.Params) ([]*models.Enrollment, int, error) {
	matched := s.matching(filter)
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return pagination.Slice(matched, page), len(matched), nil
}

func (s *InMemoryStore) Stats(_ context.Context, programID *id.ProgramID) (models.Stats, error) {
	stats := models.Stats{ByStatus: make(map[models.Status]int)}
	progressSum, progressRows := 0, 0
	for _, e := range s.matching(models.ListFilter{ProgramID: programID}) {
		stats.Total++
		stats.ByStatus[e.Status]++
		switch e.Status {
		case models.StatusActive, models.StatusCompleted:
			stats.Started++
			progressSum += e.Progress
			progressRows++
		case models.StatusFailed:
			stats.Started++
		}
		if e.Passed != nil && *e.Passed {
			stats.Passed++
		}
		if e.CertificateIssuedAt != nil {
			stats.CertificatesIssued++
		}
		if e.CPEHoursEarned != nil {
			stats.TotalCPEHoursEarned += *e.CPEHoursEarned
		}
	}
	if progressRows > 0 {
		stats.AverageProgress = float64(progressSum) / float64(progressRows)
	}
	return stats, nil
}
