package events

import "context"

// StreamRegistrations carries saga outcomes.
const StreamRegistrations = "events:registration"

// Event types
const (
	EventRegistrationCompleted  = "registration_completed"
	EventRegistrationRolledBack = "registration_rolled_back"
	EventMetadataWriteFailed    = "metadata_write_failed"
	EventLinkFailed             = "link_failed"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
