package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/reporthere/reporthere/internal/models"
	"github.com/reporthere/reporthere/internal/store"
)

type memberKey struct {
	companyID uuid.UUID
	userID    uuid.UUID
}

// MemberStore implements store.MemberStore using in-memory storage.
type MemberStore struct {
	mu sync.RWMutex

	members map[memberKey]*models.CompanyMember
}

// NewMemberStore creates a new in-memory member store.
func NewMemberStore() *MemberStore {
	return &MemberStore{
		members: make(map[memberKey]*models.CompanyMember),
	}
}

// Create creates a new membership. Returns ErrMemberAlreadyExists if a
// row for (company_id, user_id) is already present.
func (s *MemberStore) Create(ctx context.Context, member *models.CompanyMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey{companyID: member.CompanyID, userID: member.UserID}
	if _, exists := s.members[key]; exists {
		return store.ErrMemberAlreadyExists
	}

	clone := *member
	s.members[key] = &clone
	return nil
}

// Get retrieves a membership by company and user.
func (s *MemberStore) Get(ctx context.Context, companyID, userID uuid.UUID) (*models.CompanyMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	member, exists := s.members[memberKey{companyID: companyID, userID: userID}]
	if !exists {
		return nil, store.ErrMemberNotFound
	}
	clone := *member
	return &clone, nil
}

// ListByCompany returns all memberships for a company.
func (s *MemberStore) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.CompanyMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.CompanyMember
	for key, member := range s.members {
		if key.companyID == companyID {
			clone := *member
			result = append(result, &clone)
		}
	}
	return result, nil
}

// CountByCompany returns the number of memberships for a company.
func (s *MemberStore) CountByCompany(ctx context.Context, companyID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for key := range s.members {
		if key.companyID == companyID {
			count++
		}
	}
	return count, nil
}
