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

// OutboxStore implements store.OutboxStore using in-memory storage.
type OutboxStore struct {
	mu sync.RWMutex

	messages map[uuid.UUID]*models.EmailMessage
}

// NewOutboxStore creates a new in-memory outbox store.
func NewOutboxStore() *OutboxStore {
	return &OutboxStore{
		messages: make(map[uuid.UUID]*models.EmailMessage),
	}
}

// Enqueue adds a message in the pending state.
func (s *OutboxStore) Enqueue(ctx context.Context, msg *models.EmailMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *msg
	s.messages[msg.MessageID] = &clone
	return nil
}

// Get retrieves a message by ID.
func (s *OutboxStore) Get(ctx context.Context, messageID uuid.UUID) (*models.EmailMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, exists := s.messages[messageID]
	if !exists {
		return nil, store.ErrMessageNotFound
	}
	clone := *msg
	return &clone, nil
}

// NextPending returns up to limit pending messages, oldest first.
func (s *OutboxStore) NextPending(ctx context.Context, limit int) ([]*models.EmailMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.EmailMessage
	for _, msg := range s.messages {
		if msg.Status == models.EmailStatusPending {
			clone := *msg
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// MarkSent transitions a message to the sent terminal state.
func (s *OutboxStore) MarkSent(ctx context.Context, messageID uuid.UUID, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, exists := s.messages[messageID]
	if !exists {
		return store.ErrMessageNotFound
	}
	msg.Status = models.EmailStatusSent
	msg.SentAt = &sentAt
	return nil
}

// MarkFailed records a failed attempt, optionally moving the message to
// the failed terminal state.
func (s *OutboxStore) MarkFailed(ctx context.Context, messageID uuid.UUID, lastError string, final bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, exists := s.messages[messageID]
	if !exists {
		return store.ErrMessageNotFound
	}
	msg.Attempts++
	msg.LastError = lastError
	if final {
		msg.Status = models.EmailStatusFailed
	}
	return nil
}
