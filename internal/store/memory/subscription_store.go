package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/reporthere/reporthere/internal/models"
	"github.com/reporthere/reporthere/internal/store"
)

// SubscriptionStore implements store.SubscriptionStore using in-memory
// storage.
type SubscriptionStore struct {
	mu sync.RWMutex

	byCompany map[uuid.UUID]*models.Subscription
}

// NewSubscriptionStore creates a new in-memory subscription store.
func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{
		byCompany: make(map[uuid.UUID]*models.Subscription),
	}
}

// Create stores a subscription for a company, replacing any existing one.
func (s *SubscriptionStore) Create(ctx context.Context, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *sub
	s.byCompany[sub.CompanyID] = &clone
	return nil
}

// GetByCompany retrieves the subscription for a company.
func (s *SubscriptionStore) GetByCompany(ctx context.Context, companyID uuid.UUID) (*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, exists := s.byCompany[companyID]
	if !exists {
		return nil, store.ErrSubscriptionNotFound
	}
	clone := *sub
	return &clone, nil
}
