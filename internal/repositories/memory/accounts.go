// Package memory holds in-process record stores used when no database is
// configured and in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/models"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/repositories"
)

// AccountStore is an in-memory repositories.AccountStore.
type AccountStore struct {
	mu        sync.RWMutex
	byAddress map[string]*models.Account
	now       func() time.Time
}

var _ repositories.AccountStore = (*AccountStore)(nil)

func NewAccountStore() *AccountStore {
	return &AccountStore{
		byAddress: make(map[string]*models.Account),
		now:       time.Now,
	}
}

// Create returns ErrDuplicateKey if the address already exists.
func (s *AccountStore) Create(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byAddress[a.Address]; exists {
		return repositories.ErrDuplicateKey
	}

	a.ID = uuid.New()
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt
	accCopy := *a
	s.byAddress[a.Address] = &accCopy
	return nil
}

func (s *AccountStore) GetByAddress(_ context.Context, address string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.byAddress[address]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	accCopy := *a
	return &accCopy, nil
}

func (s *AccountStore) LinkToken(_ context.Context, address, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.byAddress[address]
	if !exists {
		return repositories.ErrNotFound
	}
	a.TokenID = &tokenID
	a.LinkState = models.LinkStateLinked
	a.UpdatedAt = s.now()
	return nil
}

func (s *AccountStore) Delete(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byAddress[address]; !exists {
		return repositories.ErrNotFound
	}
	delete(s.byAddress, address)
	return nil
}

func (s *AccountStore) List(_ context.Context) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]models.Account, 0, len(s.byAddress))
	for _, a := range s.byAddress {
		accounts = append(accounts, *a)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Nickname < accounts[j].Nickname
	})
	return accounts, nil
}
