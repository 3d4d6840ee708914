package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"prefill/domain/config"
	"prefill/domain/core/aggregates"
	"prefill/domain/core/entities"
	"prefill/domain/core/valueobjects"
)

func ref(node, field string) valueobjects.FieldRef {
	return valueobjects.NewFieldRef(valueobjects.NodeID(node), field)
}

func mustNode(t *testing.T, id, title string, fields ...string) *entities.GraphNode {
	t.Helper()
	pos := valueobjects.NewPosition(0, 0)
	n, err := entities.NewGraphNode(valueobjects.NodeID(id), title, fields, &pos)
	require.NoError(t, err)
	return n
}

func mustGlobal(t *testing.T, id, title string, fields ...string) *entities.GraphNode {
	t.Helper()
	n, err := entities.NewGlobalNode(valueobjects.NodeID(id), title, fields)
	require.NoError(t, err)
	return n
}

// testIndex builds p1 -> n1 -> n2 plus an unrelated node u1 and globals g1, g2.
func testIndex(t *testing.T) *aggregates.NodeIndex {
	t.Helper()
	nodes := aggregates.ResolvePredecessors(
		[]*entities.GraphNode{
			mustNode(t, "p1", "Form P", "p_email", "p_name"),
			mustNode(t, "n1", "Form A", "f1", "f2"),
			mustNode(t, "n2", "Form B", "b1"),
			mustNode(t, "u1", "Form U", "u_field"),
		},
		[]aggregates.Edge{
			{Source: "p1", Target: "n1"},
			{Source: "n1", Target: "n2"},
		},
	)
	all := append(nodes,
		mustGlobal(t, "g1", "Global 1", "f2", "email"),
		mustGlobal(t, "g2", "Global 2", "role"),
	)
	return aggregates.NewNodeIndex(all...)
}

func loadedSession(t *testing.T) *Session {
	t.Helper()
	s := New(nil)
	s.Attach(testIndex(t))
	return s
}

func TestSession_StartsIdleAndLoading(t *testing.T) {
	s := New(nil)

	assert.True(t, s.Loading())
	assert.Equal(t, PhaseIdle, s.Phase())
	assert.Empty(t, s.Mappings())
	assert.False(t, s.OpenNode("n1").Applied, "open is ignored while the index is unavailable")
	assert.Equal(t, PhaseIdle, s.Phase())

	s.Attach(testIndex(t))
	assert.False(t, s.Loading())
	assert.True(t, s.OpenNode("n1").Applied)
}

func TestSession_HappyPath(t *testing.T) {
	s := loadedSession(t)

	require.True(t, s.OpenNode("n1").Applied)
	require.True(t, s.SelectField(ref("n1", "f1")).Applied)
	require.True(t, s.SelectTarget(ref("g1", "f2")).Applied)

	out := s.Commit()
	require.True(t, out.Applied)
	require.NotNil(t, out.Committed)
	assert.True(t, out.MappingsChanged())

	expected := []entities.Mapping{entities.NewMapping(ref("n1", "f1"), ref("g1", "f2"))}
	assert.Equal(t, expected, s.Mappings())
	assert.Equal(t, PhaseNodeOpen, s.Phase())

	removed := s.RemoveMapping(ref("n1", "f1"))
	assert.True(t, removed.Applied)
	require.NotNil(t, removed.Removed)
	assert.Equal(t, expected[0], *removed.Removed)
	assert.Empty(t, s.Mappings())
	assert.Equal(t, PhaseNodeOpen, s.Phase(), "remove leaves the selection alone")
}

func TestSession_CommitWithoutTargetIsNoop(t *testing.T) {
	s := loadedSession(t)

	s.OpenNode("n1")
	s.SelectField(ref("n1", "f1"))
	out := s.Commit()

	assert.False(t, out.Applied)
	assert.Nil(t, out.Committed)
	assert.Empty(t, s.Mappings())
	assert.Equal(t, PhaseFieldSelecting, s.Phase())
}

func TestSession_CloseNodeIsIdempotent(t *testing.T) {
	s := loadedSession(t)
	s.OpenNode("n1")
	s.SelectField(ref("n1", "f1"))

	s.CloseNode()
	assert.Equal(t, PhaseIdle, s.Phase())

	out := s.CloseNode()
	assert.False(t, out.Applied)
	assert.Equal(t, PhaseIdle, s.Phase())
}

func TestSession_TransitionGuards(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *Session)
		act   func(s *Session) Outcome
		phase Phase
	}{
		{
			name:  "open unknown node",
			setup: func(s *Session) {},
			act:   func(s *Session) Outcome { return s.OpenNode("missing") },
			phase: PhaseIdle,
		},
		{
			name:  "select field while idle",
			setup: func(s *Session) {},
			act:   func(s *Session) Outcome { return s.SelectField(ref("n1", "f1")) },
			phase: PhaseIdle,
		},
		{
			name:  "select field of another node",
			setup: func(s *Session) { s.OpenNode("n1") },
			act:   func(s *Session) Outcome { return s.SelectField(ref("n2", "b1")) },
			phase: PhaseNodeOpen,
		},
		{
			name:  "select unknown field key",
			setup: func(s *Session) { s.OpenNode("n1") },
			act:   func(s *Session) Outcome { return s.SelectField(ref("n1", "nope")) },
			phase: PhaseNodeOpen,
		},
		{
			name:  "select target from node open",
			setup: func(s *Session) { s.OpenNode("n1") },
			act:   func(s *Session) Outcome { return s.SelectTarget(ref("g1", "email")) },
			phase: PhaseNodeOpen,
		},
		{
			name: "select target on the open node itself",
			setup: func(s *Session) {
				s.OpenNode("n1")
				s.SelectField(ref("n1", "f1"))
			},
			act:   func(s *Session) Outcome { return s.SelectTarget(ref("n1", "f2")) },
			phase: PhaseFieldSelecting,
		},
		{
			name: "select target on a descendant",
			setup: func(s *Session) {
				s.OpenNode("n1")
				s.SelectField(ref("n1", "f1"))
			},
			act:   func(s *Session) Outcome { return s.SelectTarget(ref("n2", "b1")) },
			phase: PhaseFieldSelecting,
		},
		{
			name: "select target on an unrelated node",
			setup: func(s *Session) {
				s.OpenNode("n1")
				s.SelectField(ref("n1", "f1"))
			},
			act:   func(s *Session) Outcome { return s.SelectTarget(ref("u1", "u_field")) },
			phase: PhaseFieldSelecting,
		},
		{
			name: "select unknown field of a candidate",
			setup: func(s *Session) {
				s.OpenNode("n1")
				s.SelectField(ref("n1", "f1"))
			},
			act:   func(s *Session) Outcome { return s.SelectTarget(ref("g1", "missing")) },
			phase: PhaseFieldSelecting,
		},
		{
			name:  "back from node open",
			setup: func(s *Session) { s.OpenNode("n1") },
			act:   func(s *Session) Outcome { return s.Back() },
			phase: PhaseNodeOpen,
		},
		{
			name:  "remove missing mapping",
			setup: func(s *Session) { s.OpenNode("n1") },
			act:   func(s *Session) Outcome { return s.RemoveMapping(ref("n1", "f1")) },
			phase: PhaseNodeOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := loadedSession(t)
			tt.setup(s)

			out := tt.act(s)

			assert.False(t, out.Applied)
			assert.Equal(t, tt.phase, s.Phase())
			_, hasTarget := s.SelectedTarget()
			assert.False(t, hasTarget)
			assert.Empty(t, s.Mappings())
		})
	}
}

func TestSession_BackDiscardsSelection(t *testing.T) {
	s := loadedSession(t)
	s.OpenNode("n1")
	s.SelectField(ref("n1", "f1"))
	s.SelectTarget(ref("p1", "p_email"))

	out := s.Back()

	assert.True(t, out.Applied)
	assert.Equal(t, PhaseNodeOpen, s.Phase())
	_, hasField := s.SelectedField()
	assert.False(t, hasField)
	assert.Empty(t, s.Mappings())
	node, ok := s.SelectedNode()
	require.True(t, ok)
	assert.Equal(t, valueobjects.NodeID("n1"), node.ID())
}

func TestSession_SelectTargetCanBeChangedAndCleared(t *testing.T) {
	s := loadedSession(t)
	s.OpenNode("n1")
	s.SelectField(ref("n1", "f1"))

	require.True(t, s.SelectTarget(ref("g1", "email")).Applied)
	require.True(t, s.SelectTarget(ref("g2", "role")).Applied)
	assert.False(t, s.SelectTarget(ref("g2", "role")).Applied, "same target again changes nothing")

	target, ok := s.SelectedTarget()
	require.True(t, ok)
	assert.Equal(t, ref("g2", "role"), target)

	require.True(t, s.ClearTarget().Applied)
	_, ok = s.SelectedTarget()
	assert.False(t, ok)
	field, ok := s.SelectedField()
	require.True(t, ok)
	assert.Equal(t, ref("n1", "f1"), field)
	assert.False(t, s.ClearTarget().Applied)
}

func TestSession_OpenNodeReentry(t *testing.T) {
	s := loadedSession(t)
	s.OpenNode("n1")
	s.SelectField(ref("n1", "f1"))
	s.SelectTarget(ref("g1", "email"))

	out := s.OpenNode("n2")

	assert.True(t, out.Applied)
	assert.Equal(t, PhaseNodeOpen, s.Phase())
	node, _ := s.SelectedNode()
	assert.Equal(t, valueobjects.NodeID("n2"), node.ID())
	_, hasTarget := s.SelectedTarget()
	assert.False(t, hasTarget)
}

func TestSession_AlreadyMappedFieldIsRefused(t *testing.T) {
	s := loadedSession(t)
	s.OpenNode("n1")
	s.SelectField(ref("n1", "f1"))
	s.SelectTarget(ref("g1", "email"))
	s.Commit()

	out := s.SelectField(ref("n1", "f1"))

	assert.False(t, out.Applied)
	assert.Equal(t, PhaseNodeOpen, s.Phase())
	assert.Len(t, s.Mappings(), 1)

	s.RemoveMapping(ref("n1", "f1"))
	assert.True(t, s.SelectField(ref("n1", "f1")).Applied)
}

func TestSession_CandidateTargets(t *testing.T) {
	s := loadedSession(t)
	assert.Empty(t, s.CandidateTargets())

	s.OpenNode("n2")
	s.SelectField(ref("n2", "b1"))

	var ids []valueobjects.NodeID
	for _, n := range s.CandidateTargets() {
		ids = append(ids, n.ID())
	}

	// globals first, then predecessors in discovery order
	assert.Equal(t, []valueobjects.NodeID{"g1", "g2", "n1", "p1"}, ids)
	assert.NotContains(t, ids, valueobjects.NodeID("n2"))
	assert.NotContains(t, ids, valueobjects.NodeID("u1"))
}

func TestSession_MaxMappings(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	cfg.MaxMappingsPerSession = 1
	s := New(cfg)
	s.Attach(testIndex(t))

	s.OpenNode("n1")
	s.SelectField(ref("n1", "f1"))
	s.SelectTarget(ref("g1", "email"))
	require.True(t, s.Commit().Applied)

	s.SelectField(ref("n1", "f2"))
	s.SelectTarget(ref("g2", "role"))
	out := s.Commit()

	assert.False(t, out.Applied)
	assert.Len(t, s.Mappings(), 1)
}

func TestSession_AttachNewIndexResetsSelection(t *testing.T) {
	s := loadedSession(t)
	s.OpenNode("n1")
	s.SelectField(ref("n1", "f1"))
	s.SelectTarget(ref("g1", "email"))
	s.Commit()

	s.Attach(testIndex(t))

	assert.Equal(t, PhaseIdle, s.Phase())
	assert.Len(t, s.Mappings(), 1)
}

func TestRestore_DropsDuplicateFields(t *testing.T) {
	s := Restore(nil, []entities.Mapping{
		entities.NewMapping(ref("n1", "f1"), ref("g1", "email")),
		entities.NewMapping(ref("n1", "f1"), ref("g2", "role")),
		entities.NewMapping(ref("n1", "f2"), ref("g2", "role")),
	})

	assert.Len(t, s.Mappings(), 2)
	assert.Equal(t, 1, s.Revision())
	assert.True(t, s.Loading())
}

func TestRestore_HonoursMappingLimit(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	cfg.MaxMappingsPerSession = 1
	s := Restore(cfg, []entities.Mapping{
		entities.NewMapping(ref("n1", "f1"), ref("g1", "email")),
		entities.NewMapping(ref("n1", "f2"), ref("g2", "role")),
	})
	s.Attach(testIndex(t))

	require.Len(t, s.Mappings(), 1)
	assert.Equal(t, ref("n1", "f1"), s.Mappings()[0].Field)

	s.OpenNode("n2")
	s.SelectField(ref("n2", "b1"))
	s.SelectTarget(ref("n1", "f1"))
	assert.False(t, s.Commit().Applied, "a restored session at the limit accepts no more mappings")
	assert.Len(t, s.Mappings(), 1)
}

func TestSession_SeparatorInIdsDoesNotAliasFields(t *testing.T) {
	s := New(nil)
	s.Attach(aggregates.NewNodeIndex(
		mustNode(t, "a", "Form A", "b-c"),
		mustNode(t, "a-b", "Form AB", "c"),
		mustGlobal(t, "g1", "Global 1", "email"),
	))

	s.OpenNode("a")
	s.SelectField(ref("a", "b-c"))
	s.SelectTarget(ref("g1", "email"))
	require.True(t, s.Commit().Applied)

	assert.False(t, s.MappingIndex().IsActive(ref("a-b", "c")))

	s.OpenNode("a-b")
	out := s.SelectField(ref("a-b", "c"))
	assert.True(t, out.Applied, "a field whose joined key collides with a mapped field is still selectable")
	assert.Equal(t, PhaseFieldSelecting, s.Phase())
}
