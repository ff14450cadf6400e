package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID `json:"id"`
	ActorType  string    `json:"actor_type"` // user/system
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"` // account/asset/token
	EntityKey  string    `json:"entity_key"`  // address or content hash
	Meta       any       `json:"meta,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
