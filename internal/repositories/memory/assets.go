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

// AssetStore is an in-memory repositories.AssetStore.
type AssetStore struct {
	mu     sync.RWMutex
	byHash map[string]*models.Asset
	now    func() time.Time
}

var _ repositories.AssetStore = (*AssetStore)(nil)

func NewAssetStore() *AssetStore {
	return &AssetStore{
		byHash: make(map[string]*models.Asset),
		now:    time.Now,
	}
}

// Create returns ErrDuplicateKey if the hash already exists.
func (s *AssetStore) Create(_ context.Context, a *models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byHash[a.Hash]; exists {
		return repositories.ErrDuplicateKey
	}

	a.ID = uuid.New()
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt
	assetCopy := *a
	s.byHash[a.Hash] = &assetCopy
	return nil
}

func (s *AssetStore) GetByHash(_ context.Context, hash string) (*models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.byHash[hash]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	assetCopy := *a
	return &assetCopy, nil
}

func (s *AssetStore) LinkToken(_ context.Context, hash, tokenID string) error {
	return s.update(hash, func(a *models.Asset) {
		a.TokenID = &tokenID
		a.LinkState = models.LinkStateLinked
	})
}

func (s *AssetStore) SetUploadStatus(_ context.Context, hash, status string) error {
	return s.update(hash, func(a *models.Asset) {
		a.UploadStatus = status
	})
}

func (s *AssetStore) update(hash string, fn func(*models.Asset)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.byHash[hash]
	if !exists {
		return repositories.ErrNotFound
	}
	fn(a)
	a.UpdatedAt = s.now()
	return nil
}

func (s *AssetStore) Delete(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byHash[hash]; !exists {
		return repositories.ErrNotFound
	}
	delete(s.byHash, hash)
	return nil
}

func (s *AssetStore) List(_ context.Context) ([]models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	assets := make([]models.Asset, 0, len(s.byHash))
	for _, a := range s.byHash {
		assets = append(assets, *a)
	}
	sort.SliceStable(assets, func(i, j int) bool {
		return assets[i].CreatedAt.After(assets[j].CreatedAt)
	})
	return assets, nil
}
