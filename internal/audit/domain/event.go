// Package domain defines the audit event model recording mapping lifecycle events
// for compliance and security monitoring.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Action identifies a mapping lifecycle event type.
type Action string

const (
	// ActionMappingCreated records the creation of a new pseudonym mapping.
	ActionMappingCreated Action = "mapping_created"
	// ActionMappingReused records reuse of an existing mapping during substitution.
	ActionMappingReused Action = "mapping_reused"
	// ActionDecryptionError records a mapping whose ciphertext could not be decrypted.
	ActionDecryptionError Action = "decryption_error"
	// ActionMappingsExpired records an expiry sweep summary.
	ActionMappingsExpired Action = "mappings_expired"
)

// ResourceTypeMapping is the resource type carried by all mapping lifecycle events.
const ResourceTypeMapping = "mapping"

// Event records one mapping lifecycle event. Details never contain plaintext
// sensitive values; only pseudonyms, identifiers, and counts.
type Event struct {
	ID           uuid.UUID
	ActorID      string
	Action       Action
	ResourceType string
	ResourceID   string
	Details      map[string]any
	CreatedAt    time.Time
}
