package ports

import (
	"context"
	"time"

	"prefill/domain/core/aggregates"
	"prefill/domain/core/entities"
	"prefill/domain/events"
)

// GraphSource fetches blueprint graphs from the blueprint server.
// Implementations return transport and status failures unwrapped so callers can
// match them with errors.Is / errors.As.
type GraphSource interface {
	FetchGraph(ctx context.Context, tenantID, blueprintID string) (*aggregates.BlueprintGraph, error)
}

// GlobalNodeSource lists the global nodes offered as mapping targets in every graph
type GlobalNodeSource interface {
	ListGlobalNodes(ctx context.Context) ([]*entities.GraphNode, error)
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
}

// MappingSnapshot is the committed mapping set of one session at one revision
type MappingSnapshot struct {
	SessionID   string             `json:"session_id"`
	TenantID    string             `json:"tenant_id"`
	BlueprintID string             `json:"blueprint_id"`
	Version     int                `json:"version"`
	Checksum    string             `json:"checksum"`
	Mappings    []entities.Mapping `json:"mappings"`
	SavedAt     time.Time          `json:"saved_at"`
}

// MappingStore keeps the latest mapping snapshot per session
type MappingStore interface {
	// Save stores the snapshot unless a newer version is already stored
	Save(ctx context.Context, snapshot MappingSnapshot) error

	// Load returns the latest snapshot of a session; NotFound when there is none
	Load(ctx context.Context, sessionID string) (*MappingSnapshot, error)

	// Delete removes the snapshot of a session
	Delete(ctx context.Context, sessionID string) error
}

// Cache stores values with a TTL in seconds
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl int) error
	Delete(ctx context.Context, key string) error
}
