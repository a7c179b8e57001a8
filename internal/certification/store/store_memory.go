package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fudign/kfa-sub000/internal/certification/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	"github.com/fudign/kfa-sub000/pkg/platform/sentinel"
)

// Error Contract:
// - ErrNotFound when a program or certification does not exist or is soft-deleted
// - ErrConflict when a program code is taken, a certificate number repeats,
//   or the subject already holds a live certification for the program

type InMemoryStore struct {
	mu             sync.RWMutex
	programs       map[id.CertificationProgramID]*models.Program
	certifications map[id.CertificationID]*models.Certification
	sequences      map[string]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		programs:       make(map[id.CertificationProgramID]*models.Program),
		certifications: make(map[id.CertificationID]*models.Certification),
		sequences:      make(map[string]int),
	}
}

func cloneProgram(p *models.Program) *models.Program {
	c := *p
	return &c
}

func clone(c *models.Certification) *models.Certification {
	out := *c
	if c.ExamResults != nil {
		out.ExamResults = append([]byte(nil), c.ExamResults...)
	}
	return &out
}

func (s *InMemoryStore) CreateProgram(_ context.Context, program *models.Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.programs {
		if p.DeletedAt == nil && p.Code == program.Code {
			return fmt.Errorf("program code %s taken: %w", program.Code, sentinel.ErrConflict)
		}
	}
	s.programs[program.ID] = cloneProgram(program)
	return nil
}

func (s *InMemoryStore) FindProgram(_ context.Context, programID id.CertificationProgramID) (*models.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.programs[programID]
	if !ok || p.DeletedAt != nil {
		return nil, fmt.Errorf("program not found: %w", sentinel.ErrNotFound)
	}
	return cloneProgram(p), nil
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
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	return pagination.Slice(matched, page), len(matched), nil
}

func (s *InMemoryStore) DeleteProgram(_ context.Context, programID id.CertificationProgramID, now time.Time) error {
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

// CountHeld counts in-progress and passed certifications for a program.
func (s *InMemoryStore) CountHeld(_ context.Context, programID id.CertificationProgramID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.certifications {
		if c.DeletedAt == nil && c.ProgramID == programID &&
			(c.Status == models.StatusInProgress || c.Status == models.StatusPassed) {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) NextSequence(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[prefix]++
	return s.sequences[prefix], nil
}

func (s *InMemoryStore) HasLive(_ context.Context, userID id.UserID, programID id.CertificationProgramID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasLiveLocked(userID, programID), nil
}

func (s *InMemoryStore) hasLiveLocked(userID id.UserID, programID id.CertificationProgramID) bool {
	for _, c := range s.certifications {
		if c.DeletedAt == nil && c.UserID == userID && c.ProgramID == programID && c.Status.Live() {
			return true
		}
	}
	return false
}

func (s *InMemoryStore) Create(_ context.Context, cert *models.Certification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasLiveLocked(cert.UserID, cert.ProgramID) {
		return fmt.Errorf("live certification exists: %w", sentinel.ErrConflict)
	}
	for _, c := range s.certifications {
		if c.CertificateNumber == cert.CertificateNumber {
			return fmt.Errorf("certificate number %s taken: %w", cert.CertificateNumber, sentinel.ErrConflict)
		}
	}
	s.certifications[cert.ID] = clone(cert)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, certID id.CertificationID) (*models.Certification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.certifications[certID]
	if !ok || c.DeletedAt != nil {
		return nil, fmt.Errorf("certification not found: %w", sentinel.ErrNotFound)
	}
	return clone(c), nil
}

// FindVerification resolves a certificate number to its public record. The
// program is looked up even when it has since been deleted.
func (s *InMemoryStore) FindVerification(_ context.Context, number string) (*models.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.certifications {
		if c.DeletedAt == nil && c.CertificateNumber == number {
			p, ok := s.programs[c.ProgramID]
			if !ok {
				return nil, fmt.Errorf("program of %s missing: %w", number, sentinel.ErrNotFound)
			}
			rec := models.RecordOf(c, p)
			return &rec, nil
		}
	}
	return nil, fmt.Errorf("certificate not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) Execute(_ context.Context, certID id.CertificationID, validate func(*models.Certification) error, mutate func(*models.Certification)) (*models.Certification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.certifications[certID]
	if !ok || c.DeletedAt != nil {
		return nil, fmt.Errorf("certification not found: %w", sentinel.ErrNotFound)
	}
	working := clone(c)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.certifications[certID] = working
	return clone(working), nil
}

func (s *InMemoryStore) SoftDelete(_ context.Context, certID id.CertificationID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.certifications[certID]
	if !ok || c.DeletedAt != nil {
		return fmt.Errorf("certification not found: %w", sentinel.ErrNotFound)
	}
	c.DeletedAt = &now
	c.UpdatedAt = now
	return nil
}

func (s *InMemoryStore) matching(filter models.ListFilter) []*models.Certification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Certification
	for _, c := range s.certifications {
		if c.DeletedAt == nil && filter.Matches(c) {
			out = append(out, clone(c))
		}
	}
	return out
}

func (s *InMemoryStore) List(_ context.Context, filter models.ListFilter, page pagination.Params) ([]*models.Certification, int, error) {
	matched := s.matching(filter)
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return pagination.Slice(matched, page), len(matched), nil
}

func (s *InMemoryStore) Registry(_ context.Context, filter models.RegistryFilter, page pagination.Params) ([]models.RegistryEntry, int, error) {
	matched := s.matching(filter.ListFilter())
	sort.Slice(matched, func(i, j int) bool {
		return strings.ToLower(matched[i].HolderName) < strings.ToLower(matched[j].HolderName)
	})
	total := len(matched)
	matched = pagination.Slice(matched, page)

	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]models.RegistryEntry, 0, len(matched))
	for _, c := range matched {
		p := s.programs[c.ProgramID]
		entry := models.RegistryEntry{
			CertificationID:   c.ID,
			CertificateNumber: c.CertificateNumber,
			Holder:            c.HolderName,
			ProgramID:         c.ProgramID,
			IssuedDate:        *c.IssuedDate,
			ExpiryDate:        *c.ExpiryDate,
		}
		if p != nil {
			entry.ProgramName = p.Name
			entry.ProgramCode = p.Code
		}
		entries = append(entries, entry)
	}
	return entries, total, nil
}

func (s *InMemoryStore) CountByStatus(_ context.Context) (map[models.Status]int, error) {
	out := make(map[models.Status]int)
	for _, c := range s.matching(models.ListFilter{}) {
		out[c.Status]++
	}
	return out, nil
}

func (s *InMemoryStore) CountExpired(_ context.Context, now time.Time) (int, error) {
	return len(s.matching(models.ListFilter{Expired: true, At: now})), nil
}

func (s *InMemoryStore) CountActive(_ context.Context, now time.Time) (int, error) {
	return len(s.matching(models.ListFilter{Active: true, At: now})), nil
}

func (s *InMemoryStore) CountPassedByProgram(_ context.Context) ([]models.ProgramCount, error) {
	counts := make(map[id.CertificationProgramID]int)
	for _, c := range s.matching(models.ListFilter{Status: models.StatusPassed}) {
		counts[c.ProgramID]++
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ProgramCount, 0, len(counts))
	for programID, n := range counts {
		pc := models.ProgramCount{ProgramID: programID, Count: n}
		if p, ok := s.programs[programID]; ok {
			pc.Name, pc.Code = p.Name, p.Code
		}
		out = append(out, pc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
