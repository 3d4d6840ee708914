package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"prefill/application/ports"
	"prefill/domain/core/aggregates"
	"prefill/domain/core/entities"
	"prefill/domain/events"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGraphSource struct {
	mock.Mock
}

func (m *mockGraphSource) FetchGraph(ctx context.Context, tenantID, blueprintID string) (*aggregates.BlueprintGraph, error) {
	args := m.Called(ctx, tenantID, blueprintID)
	if bp := args.Get(0); bp != nil {
		return bp.(*aggregates.BlueprintGraph), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockGlobalSource struct {
	mock.Mock
}

func (m *mockGlobalSource) ListGlobalNodes(ctx context.Context) ([]*entities.GraphNode, error) {
	args := m.Called(ctx)
	if nodes := args.Get(0); nodes != nil {
		return nodes.([]*entities.GraphNode), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Save(ctx context.Context, snapshot ports.MappingSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *mockStore) Load(ctx context.Context, sessionID string) (*ports.MappingSnapshot, error) {
	args := m.Called(ctx, sessionID)
	if s := args.Get(0); s != nil {
		return s.(*ports.MappingSnapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// mapCache is a ports.Cache without expiry
type mapCache struct {
	mu    sync.Mutex
	items map[string]interface{}
}

func newMapCache() *mapCache {
	return &mapCache{items: map[string]interface{}{}}
}

func (c *mapCache) Get(_ context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

const blueprintJSON = `{
  "id": "bp_1",
  "tenant_id": "1",
  "name": "Onboarding",
  "nodes": [
    {"id": "form-a", "type": "form", "position": {"x": 0, "y": 100},
     "data": {"id": "bp_c-a", "component_id": "f_1", "name": "Form A"}},
    {"id": "form-b", "type": "form", "position": {"x": 300, "y": 100},
     "data": {"id": "bp_c-b", "component_id": "f_1", "name": "Form B"}}
  ],
  "edges": [{"source": "form-a", "target": "form-b"}],
  "forms": [
    {"id": "f_1", "name": "contact", "field_schema": {"type": "object",
      "properties": {"name": {"type": "string"}, "email": {"type": "string"}}}}
  ]
}`

func testBlueprint(t *testing.T) *aggregates.BlueprintGraph {
	t.Helper()
	var bp aggregates.BlueprintGraph
	require.NoError(t, json.Unmarshal([]byte(blueprintJSON), &bp))
	return &bp
}

func testGlobals(t *testing.T) []*entities.GraphNode {
	t.Helper()
	g1, err := entities.NewGlobalNode("node1", "Global Node 1", []string{"email", "name"})
	require.NoError(t, err)
	return []*entities.GraphNode{g1}
}
