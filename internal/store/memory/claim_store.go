package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/reporthere/reporthere/internal/models"
	"github.com/reporthere/reporthere/internal/store"
)

// ClaimStore implements store.ClaimStore using in-memory storage.
type ClaimStore struct {
	mu sync.RWMutex

	claims map[uuid.UUID]*models.CompanyClaim
}

// NewClaimStore creates a new in-memory claim store.
func NewClaimStore() *ClaimStore {
	return &ClaimStore{
		claims: make(map[uuid.UUID]*models.CompanyClaim),
	}
}

// Create creates a new claim in memory.
func (s *ClaimStore) Create(ctx context.Context, claim *models.CompanyClaim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.claims[claim.ClaimID] = cloneClaim(claim)
	return nil
}

// Get retrieves a claim by ID.
func (s *ClaimStore) Get(ctx context.Context, claimID uuid.UUID) (*models.CompanyClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	claim, exists := s.claims[claimID]
	if !exists {
		return nil, store.ErrClaimNotFound
	}
	return cloneClaim(claim), nil
}

// Update updates an existing claim.
func (s *ClaimStore) Update(ctx context.Context, claim *models.CompanyClaim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.claims[claim.ClaimID]; !exists {
		return store.ErrClaimNotFound
	}
	s.claims[claim.ClaimID] = cloneClaim(claim)
	return nil
}

// ListByCompany returns all claims for a company, newest first.
func (s *ClaimStore) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.CompanyClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.CompanyClaim
	for _, claim := range s.claims {
		if claim.CompanyID == companyID {
			result = append(result, cloneClaim(claim))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func cloneClaim(c *models.CompanyClaim) *models.CompanyClaim {
	clone := *c
	clone.EvidenceURLs = append([]string(nil), c.EvidenceURLs...)
	return &clone
}
