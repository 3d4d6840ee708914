package memory

import (
	"context"
	"sync"

	"prefill/application/ports"
	"prefill/domain/core/entities"
	pkgerrors "prefill/pkg/errors"
)

// MappingStore keeps mapping snapshots in process memory
type MappingStore struct {
	mu        sync.RWMutex
	snapshots map[string]ports.MappingSnapshot
}

// NewMappingStore creates an empty store
func NewMappingStore() *MappingStore {
	return &MappingStore{snapshots: make(map[string]ports.MappingSnapshot)}
}

// Save implements ports.MappingStore
func (s *MappingStore) Save(_ context.Context, snapshot ports.MappingSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.snapshots[snapshot.SessionID]; ok && cur.Version >= snapshot.Version {
		return nil
	}
	snapshot.Mappings = cloneMappings(snapshot.Mappings)
	s.snapshots[snapshot.SessionID] = snapshot
	return nil
}

// Load implements ports.MappingStore
func (s *MappingStore) Load(_ context.Context, sessionID string) (*ports.MappingSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[sessionID]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("mapping snapshot")
	}
	snapshot.Mappings = cloneMappings(snapshot.Mappings)
	return &snapshot, nil
}

// Delete implements ports.MappingStore
func (s *MappingStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, sessionID)
	return nil
}

func cloneMappings(in []entities.Mapping) []entities.Mapping {
	out := make([]entities.Mapping, len(in))
	copy(out, in)
	return out
}
