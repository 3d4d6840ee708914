package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"prefill/domain/core/entities"
)

func TestMappingIndex_Labels(t *testing.T) {
	nodes := testIndex(t)
	idx := BuildMappingIndex([]entities.Mapping{
		entities.NewMapping(ref("n1", "f1"), ref("g1", "email")),
		entities.NewMapping(ref("n2", "b1"), ref("gone", "x")),
	})

	tests := []struct {
		name   string
		field  string
		node   string
		active bool
		label  string
	}{
		{name: "active", node: "n1", field: "f1", active: true, label: "f1: Global 1.email"},
		{name: "basic", node: "n1", field: "f2", active: false, label: "f2"},
		{name: "missing target node", node: "n2", field: "b1", active: true, label: "b1: gone.x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ref(tt.node, tt.field)
			assert.Equal(t, tt.active, idx.IsActive(r))
			assert.Equal(t, tt.label, idx.Label(r, nodes))
		})
	}
}

func TestMappingIndex_KeyedByFieldAndNode(t *testing.T) {
	idx := BuildMappingIndex([]entities.Mapping{
		entities.NewMapping(ref("n1", "f1"), ref("g1", "email")),
	})

	m, ok := idx.LookupKey("f1-n1")
	require.True(t, ok)
	assert.Equal(t, ref("g1", "email"), m.Target)
	assert.False(t, idx.IsActive(ref("n2", "f1")))
	assert.Equal(t, 1, idx.Len())
}

func TestMappingIndex_ComparesNodeAndFieldSeparately(t *testing.T) {
	idx := BuildMappingIndex([]entities.Mapping{
		entities.NewMapping(ref("a", "b-c"), ref("g1", "email")),
	})

	assert.True(t, idx.IsActive(ref("a", "b-c")))
	assert.False(t, idx.IsActive(ref("a-b", "c")), "both fields join to b-c-a")
	_, ok := idx.Lookup(ref("a-b", "c"))
	assert.False(t, ok)

	m, ok := idx.LookupKey("b-c-a")
	require.True(t, ok)
	assert.Equal(t, ref("a", "b-c"), m.Field)
}

func TestMappingIndex_AmbiguousKeyIsNotReported(t *testing.T) {
	idx := BuildMappingIndex([]entities.Mapping{
		entities.NewMapping(ref("a", "b-c"), ref("g1", "email")),
		entities.NewMapping(ref("a-b", "c"), ref("g2", "role")),
	})

	assert.Equal(t, 2, idx.Len())
	_, ok := idx.LookupKey("b-c-a")
	assert.False(t, ok)
}

func TestSession_MappingIndexIsMemoized(t *testing.T) {
	s := loadedSession(t)

	first := s.MappingIndex()
	s.OpenNode("n1")
	s.SelectField(ref("n1", "f1"))
	s.SelectTarget(ref("g1", "email"))
	assert.Same(t, first, s.MappingIndex(), "selection changes do not rebuild the index")

	s.Commit()
	second := s.MappingIndex()
	assert.NotSame(t, first, second)
	assert.True(t, second.IsActive(ref("n1", "f1")))
	assert.Same(t, second, s.MappingIndex())

	s.RemoveMapping(ref("n1", "f1"))
	assert.NotSame(t, second, s.MappingIndex())
	assert.False(t, s.MappingIndex().IsActive(ref("n1", "f1")))
}
