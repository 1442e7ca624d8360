package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reporthere/reporthere/internal/models"
	"github.com/reporthere/reporthere/internal/store"
)

// ComplaintStore implements store.ComplaintStore using in-memory storage.
type ComplaintStore struct {
	mu sync.RWMutex

	complaints map[uuid.UUID]*models.Complaint
}

// NewComplaintStore creates a new in-memory complaint store.
func NewComplaintStore() *ComplaintStore {
	return &ComplaintStore{
		complaints: make(map[uuid.UUID]*models.Complaint),
	}
}

// Create creates a new complaint in memory.
func (s *ComplaintStore) Create(ctx context.Context, complaint *models.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.complaints[complaint.ComplaintID] = cloneComplaint(complaint)
	return nil
}

// Get retrieves a complaint by ID.
func (s *ComplaintStore) Get(ctx context.Context, complaintID uuid.UUID) (*models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	complaint, exists := s.complaints[complaintID]
	if !exists {
		return nil, store.ErrComplaintNotFound
	}
	return cloneComplaint(complaint), nil
}

// Update updates an existing complaint.
func (s *ComplaintStore) Update(ctx context.Context, complaint *models.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.complaints[complaint.ComplaintID]; !exists {
		return store.ErrComplaintNotFound
	}
	complaint.UpdatedAt = time.Now()
	s.complaints[complaint.ComplaintID] = cloneComplaint(complaint)
	return nil
}

// ListByCompany returns all complaints against a company, newest first.
func (s *ComplaintStore) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Complaint
	for _, complaint := range s.complaints {
		if complaint.CompanyID == companyID {
			result = append(result, cloneComplaint(complaint))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func cloneComplaint(c *models.Complaint) *models.Complaint {
	clone := *c
	clone.Notes = append([]models.ComplaintNote(nil), c.Notes...)
	if c.AssignedTo != nil {
		id := *c.AssignedTo
		clone.AssignedTo = &id
	}
	return &clone
}
