package models

import (
	"time"

	"github.com/google/uuid"
)

// Upload statuses
const (
	UploadStatusPending   = "pending"
	UploadStatusCompleted = "completed"
	UploadStatusFailed    = "failed"
)

// Asset is a registered photo.
type Asset struct {
	ID           uuid.UUID `json:"id"`
	Hash         string    `json:"hash"`
	OwnerAddress string    `json:"blockchain_account_address"`
	TokenID      *string   `json:"token_id,omitempty"`
	SourceURL    string    `json:"insta_photo_url"`
	Likes        uint64    `json:"like_count"`
	UploadStatus string    `json:"upload_status"`
	LinkState    string    `json:"link_state"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
