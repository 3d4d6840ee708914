package events

import (
	"time"

	"prefill/domain/core/entities"
	"prefill/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Event type names
const (
	TypeSessionStarted   = "session.started"
	TypeGraphLoaded      = "session.graph_loaded"
	TypeMappingCommitted = "mapping.committed"
	TypeMappingRemoved   = "mapping.removed"
)

// Session Events

// SessionStarted is raised when a mapping session is created for a blueprint
type SessionStarted struct {
	BaseEvent
	SessionID   string `json:"session_id"`
	TenantID    string `json:"tenant_id"`
	BlueprintID string `json:"blueprint_id"`
}

// NewSessionStarted creates a SessionStarted event
func NewSessionStarted(sessionID, tenantID, blueprintID string, timestamp time.Time) SessionStarted {
	return SessionStarted{
		BaseEvent: BaseEvent{
			AggregateID: sessionID,
			EventType:   TypeSessionStarted,
			Timestamp:   timestamp,
			Version:     1,
		},
		SessionID:   sessionID,
		TenantID:    tenantID,
		BlueprintID: blueprintID,
	}
}

// GraphLoaded is raised when a session's graph future resolves successfully
type GraphLoaded struct {
	BaseEvent
	SessionID string `json:"session_id"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

// NewGraphLoaded creates a GraphLoaded event
func NewGraphLoaded(sessionID string, nodeCount, edgeCount int, timestamp time.Time) GraphLoaded {
	return GraphLoaded{
		BaseEvent: BaseEvent{
			AggregateID: sessionID,
			EventType:   TypeGraphLoaded,
			Timestamp:   timestamp,
			Version:     1,
		},
		SessionID: sessionID,
		NodeCount: nodeCount,
		EdgeCount: edgeCount,
	}
}

// Mapping Events

// MappingCommitted is raised when a field mapping is appended to a session
type MappingCommitted struct {
	BaseEvent
	SessionID string                `json:"session_id"`
	Field     valueobjects.FieldRef `json:"field"`
	Target    valueobjects.FieldRef `json:"target"`
}

// NewMappingCommitted creates a MappingCommitted event
func NewMappingCommitted(sessionID string, mapping entities.Mapping, version int, timestamp time.Time) MappingCommitted {
	return MappingCommitted{
		BaseEvent: BaseEvent{
			AggregateID: sessionID,
			EventType:   TypeMappingCommitted,
			Timestamp:   timestamp,
			Version:     version,
		},
		SessionID: sessionID,
		Field:     mapping.Field,
		Target:    mapping.Target,
	}
}

// MappingRemoved is raised when a committed mapping is removed from a session
type MappingRemoved struct {
	BaseEvent
	SessionID string                `json:"session_id"`
	Field     valueobjects.FieldRef `json:"field"`
	Target    valueobjects.FieldRef `json:"target"`
}

// NewMappingRemoved creates a MappingRemoved event
func NewMappingRemoved(sessionID string, mapping entities.Mapping, version int, timestamp time.Time) MappingRemoved {
	return MappingRemoved{
		BaseEvent: BaseEvent{
			AggregateID: sessionID,
			EventType:   TypeMappingRemoved,
			Timestamp:   timestamp,
			Version:     version,
		},
		SessionID: sessionID,
		Field:     mapping.Field,
		Target:    mapping.Target,
	}
}
