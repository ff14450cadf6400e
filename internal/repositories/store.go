package repositories

import (
	"context"
	"errors"

	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when a record with the same unique key
	// already exists.
	ErrDuplicateKey = errors.New("duplicate key")
)

// AccountStore persists account records keyed by wallet address.
type AccountStore interface {
	// Create inserts a pending account and fills ID and timestamps.
	Create(ctx context.Context, a *models.Account) error
	GetByAddress(ctx context.Context, address string) (*models.Account, error)
	// LinkToken records the token id and marks the account linked.
	LinkToken(ctx context.Context, address, tokenID string) error
	Delete(ctx context.Context, address string) error
	// List returns all accounts ordered by nickname.
	List(ctx context.Context) ([]models.Account, error)
}

// AssetStore persists asset records keyed by content hash.
type AssetStore interface {
	Create(ctx context.Context, a *models.Asset) error
	GetByHash(ctx context.Context, hash string) (*models.Asset, error)
	LinkToken(ctx context.Context, hash, tokenID string) error
	SetUploadStatus(ctx context.Context, hash, status string) error
	Delete(ctx context.Context, hash string) error
	// List returns all assets, newest first.
	List(ctx context.Context) ([]models.Asset, error)
}

// AuditStore records saga transitions.
type AuditStore interface {
	Log(ctx context.Context, entry models.AuditLog) error
	// GetByEntity returns the newest entries first.
	GetByEntity(ctx context.Context, entityType, entityKey string, limit, offset int) ([]models.AuditLog, error)
}
