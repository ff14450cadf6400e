package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/models"
)

type AccountRepo struct {
	pool *pgxpool.Pool
}

var _ AccountStore = (*AccountRepo)(nil)

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func (r *AccountRepo) Create(ctx context.Context, a *models.Account) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (address, nickname, token_id, link_state)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, a.Address, a.Nickname, a.TokenID, a.LinkState).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepo) GetByAddress(ctx context.Context, address string) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, address, nickname, token_id, link_state, created_at, updated_at
		FROM accounts WHERE address = $1
	`, address).Scan(&a.ID, &a.Address, &a.Nickname, &a.TokenID, &a.LinkState, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

func (r *AccountRepo) LinkToken(ctx context.Context, address, tokenID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts SET token_id = $1, link_state = $2, updated_at = now()
		WHERE address = $3
	`, tokenID, models.LinkStateLinked, address)
	if err != nil {
		return fmt.Errorf("link account token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepo) Delete(ctx context.Context, address string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE address = $1`, address)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepo) List(ctx context.Context) ([]models.Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, address, nickname, token_id, link_state, created_at, updated_at
		FROM accounts ORDER BY nickname ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Address, &a.Nickname, &a.TokenID, &a.LinkState, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
