package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/models"
)

type AssetRepo struct {
	pool *pgxpool.Pool
}

var _ AssetStore = (*AssetRepo)(nil)

func NewAssetRepo(pool *pgxpool.Pool) *AssetRepo {
	return &AssetRepo{pool: pool}
}

const assetColumns = `id, hash, owner_address, token_id, source_url, likes, upload_status, link_state, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*models.Asset, error) {
	var a models.Asset
	var likes int64
	err := row.Scan(&a.ID, &a.Hash, &a.OwnerAddress, &a.TokenID, &a.SourceURL, &likes,
		&a.UploadStatus, &a.LinkState, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Likes = uint64(likes)
	return &a, nil
}

func (r *AssetRepo) Create(ctx context.Context, a *models.Asset) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO assets (hash, owner_address, token_id, source_url, likes, upload_status, link_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, a.Hash, a.OwnerAddress, a.TokenID, a.SourceURL, int64(a.Likes), a.UploadStatus, a.LinkState,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

func (r *AssetRepo) GetByHash(ctx context.Context, hash string) (*models.Asset, error) {
	a, err := scanAsset(r.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE hash = $1`, hash))
	if err != nil {
		if isNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return a, nil
}

func (r *AssetRepo) LinkToken(ctx context.Context, hash, tokenID string) error {
	return r.update(ctx, "link asset token", `
		UPDATE assets SET token_id = $1, link_state = $2, updated_at = now()
		WHERE hash = $3
	`, tokenID, models.LinkStateLinked, hash)
}

func (r *AssetRepo) SetUploadStatus(ctx context.Context, hash, status string) error {
	return r.update(ctx, "set asset upload status", `
		UPDATE assets SET upload_status = $1, updated_at = now()
		WHERE hash = $2
	`, status, hash)
}

func (r *AssetRepo) Delete(ctx context.Context, hash string) error {
	return r.update(ctx, "delete asset", `DELETE FROM assets WHERE hash = $1`, hash)
}

func (r *AssetRepo) update(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AssetRepo) List(ctx context.Context) ([]models.Asset, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+assetColumns+` FROM assets ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []models.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}
