package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reporthere/reporthere/internal/models"
	"github.com/reporthere/reporthere/internal/store"
)

// CompanyStore implements store.CompanyStore using in-memory storage.
// This implementation is for testing and local development - data is
// lost on restart.
type CompanyStore struct {
	mu sync.RWMutex

	companies map[uuid.UUID]*models.Company
	bySlug    map[string]uuid.UUID
}

// NewCompanyStore creates a new in-memory company store.
func NewCompanyStore() *CompanyStore {
	return &CompanyStore{
		companies: make(map[uuid.UUID]*models.Company),
		bySlug:    make(map[string]uuid.UUID),
	}
}

// Create creates a new company in memory.
func (s *CompanyStore) Create(ctx context.Context, company *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.companies[company.CompanyID]; exists {
		return store.ErrCompanyAlreadyExists
	}
	if _, exists := s.bySlug[company.Slug]; exists {
		return store.ErrCompanyAlreadyExists
	}

	clone := cloneCompany(company)
	s.companies[company.CompanyID] = clone
	s.bySlug[company.Slug] = company.CompanyID

	return nil
}

// Get retrieves a company by ID.
func (s *CompanyStore) Get(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	company, exists := s.companies[companyID]
	if !exists {
		return nil, store.ErrCompanyNotFound
	}
	return cloneCompany(company), nil
}

// GetBySlug retrieves a company by its URL slug.
func (s *CompanyStore) GetBySlug(ctx context.Context, slug string) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	companyID, exists := s.bySlug[slug]
	if !exists {
		return nil, store.ErrCompanyNotFound
	}
	return cloneCompany(s.companies[companyID]), nil
}

// Update updates an existing company.
func (s *CompanyStore) Update(ctx context.Context, company *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.companies[company.CompanyID]
	if !exists {
		return store.ErrCompanyNotFound
	}

	company.UpdatedAt = time.Now()

	if existing.Slug != company.Slug {
		delete(s.bySlug, existing.Slug)
		s.bySlug[company.Slug] = company.CompanyID
	}
	s.companies[company.CompanyID] = cloneCompany(company)

	return nil
}

// IncrementComplaints bumps the complaint counter for a company.
func (s *CompanyStore) IncrementComplaints(ctx context.Context, companyID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	company, exists := s.companies[companyID]
	if !exists {
		return store.ErrCompanyNotFound
	}
	company.TotalComplaints++
	company.UpdatedAt = time.Now()

	return nil
}

func cloneCompany(c *models.Company) *models.Company {
	clone := *c
	clone.ClaimedBy = append([]uuid.UUID(nil), c.ClaimedBy...)
	return &clone
}
