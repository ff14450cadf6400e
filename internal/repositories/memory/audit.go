package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/models"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/repositories"
)

// AuditStore keeps audit entries in insertion order.
type AuditStore struct {
	mu      sync.RWMutex
	entries []models.AuditLog
}

var _ repositories.AuditStore = (*AuditStore)(nil)

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Log(_ context.Context, entry models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *AuditStore) GetByEntity(_ context.Context, entityType, entityKey string, limit, offset int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.AuditLog
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.EntityType != entityType || e.EntityKey != entityKey {
			continue
		}
		if offset > 0 {
			offset--
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Actions returns the recorded actions for an entity, oldest first.
func (s *AuditStore) Actions(entityType, entityKey string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, e := range s.entries {
		if e.EntityType == entityType && e.EntityKey == entityKey {
			out = append(out, e.Action)
		}
	}
	return out
}
