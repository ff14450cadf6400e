package models

import (
	"time"

	"github.com/google/uuid"
)

// Link states shared by accounts and assets
const (
	LinkStatePending = "pending"
	LinkStateLinked  = "linked"
)

type Account struct {
	ID        uuid.UUID `json:"id"`
	Address   string    `json:"blockchain_account_address"`
	Nickname  string    `json:"nickname"`
	TokenID   *string   `json:"token_id,omitempty"`
	LinkState string    `json:"link_state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
