package session

import (
	"prefill/domain/config"
	"prefill/domain/core/aggregates"
	"prefill/domain/core/entities"
	"prefill/domain/core/valueobjects"
)

// Session tracks the node being configured, the field being mapped, the chosen
// target and the committed mappings of one user.
type Session struct {
	nodes       *aggregates.NodeIndex
	state       State
	mappings    []entities.Mapping
	revision    int
	maxMappings int
	keySep      string

	index         *MappingIndex
	indexRevision int
}

// New creates an empty session in the loading condition (no NodeIndex yet).
// A nil cfg uses the default domain configuration.
func New(cfg *config.DomainConfig) *Session {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &Session{
		state:       Idle{},
		maxMappings: cfg.MaxMappingsPerSession,
		keySep:      cfg.FieldKeySeparator,
	}
}

// Restore creates a session seeded with previously committed mappings. Mappings
// beyond the per-session limit are dropped, first occurrence wins.
func Restore(cfg *config.DomainConfig, mappings []entities.Mapping) *Session {
	s := New(cfg)
	seen := make(map[valueobjects.FieldRef]struct{}, len(mappings))
	for _, m := range mappings {
		if s.maxMappings > 0 && len(s.mappings) >= s.maxMappings {
			break
		}
		if _, dup := seen[m.Field]; dup {
			continue
		}
		seen[m.Field] = struct{}{}
		s.mappings = append(s.mappings, m)
	}
	if len(s.mappings) > 0 {
		s.revision++
	}
	return s
}

// Attach installs the NodeIndex of a loaded graph. Attaching a different index
// replaces the graph wholesale and closes any open node; committed mappings are kept.
func (s *Session) Attach(nodes *aggregates.NodeIndex) {
	if nodes == nil || s.nodes == nodes {
		return
	}
	if s.nodes != nil {
		s.state = Idle{}
	}
	s.nodes = nodes
}

// Loading reports whether the NodeIndex is still unavailable
func (s *Session) Loading() bool {
	return s.nodes == nil
}

// Nodes returns the attached NodeIndex, nil while loading
func (s *Session) Nodes() *aggregates.NodeIndex {
	return s.nodes
}

// State returns the current state
func (s *Session) State() State {
	return s.state
}

// Phase returns the name of the current state
func (s *Session) Phase() Phase {
	return s.state.Phase()
}

// SelectedNode returns the open node
func (s *Session) SelectedNode() (*entities.GraphNode, bool) {
	switch st := s.state.(type) {
	case NodeOpen:
		return st.Node, true
	case FieldSelecting:
		return st.Node, true
	}
	return nil, false
}

// SelectedField returns the field being mapped
func (s *Session) SelectedField() (valueobjects.FieldRef, bool) {
	if st, ok := s.state.(FieldSelecting); ok {
		return st.Field, true
	}
	return valueobjects.FieldRef{}, false
}

// SelectedTarget returns the chosen, uncommitted target
func (s *Session) SelectedTarget() (valueobjects.FieldRef, bool) {
	if st, ok := s.state.(FieldSelecting); ok {
		return st.Target()
	}
	return valueobjects.FieldRef{}, false
}

// Mappings returns the committed mappings in insertion order
func (s *Session) Mappings() []entities.Mapping {
	out := make([]entities.Mapping, len(s.mappings))
	copy(out, s.mappings)
	return out
}

// Revision is incremented every time the mapping set changes
func (s *Session) Revision() int {
	return s.revision
}

// MappingIndex returns the lookup over the committed mappings. The index is
// rebuilt only after the mapping set changed.
func (s *Session) MappingIndex() *MappingIndex {
	if s.index == nil || s.indexRevision != s.revision {
		s.index = BuildMappingIndexWith(s.mappings, s.keySep)
		s.indexRevision = s.revision
	}
	return s.index
}

// OpenNode opens the node with the given id. It is ignored while loading and
// for ids missing from the NodeIndex.
func (s *Session) OpenNode(id valueobjects.NodeID) Outcome {
	node, ok := s.nodes.Get(id)
	if !ok {
		return noop
	}
	s.state = NodeOpen{Node: node}
	return applied
}

// CloseNode returns to Idle from any state
func (s *Session) CloseNode() Outcome {
	if _, idle := s.state.(Idle); idle {
		return noop
	}
	s.state = Idle{}
	return applied
}

// SelectField starts mapping a field of the open node. Fields of other nodes,
// unknown keys and fields that already carry a mapping are refused.
func (s *Session) SelectField(ref valueobjects.FieldRef) Outcome {
	st, ok := s.state.(NodeOpen)
	if !ok {
		return noop
	}
	if ref.NodeID() != st.Node.ID() || !st.Node.HasField(ref.FieldKey()) {
		return noop
	}
	if s.MappingIndex().IsActive(ref) {
		return noop
	}
	s.state = FieldSelecting{Node: st.Node, Field: ref}
	return applied
}

// SelectTarget chooses the field the selected field will be prefilled from.
// The target must be one of the candidate targets.
func (s *Session) SelectTarget(ref valueobjects.FieldRef) Outcome {
	st, ok := s.state.(FieldSelecting)
	if !ok {
		return noop
	}
	if !s.isCandidate(st.Node, ref) {
		return noop
	}
	if cur, has := st.Target(); has && cur == ref {
		return noop
	}
	s.state = st.withTarget(ref)
	return applied
}

// ClearTarget drops the chosen target but keeps the selected field
func (s *Session) ClearTarget() Outcome {
	st, ok := s.state.(FieldSelecting)
	if !ok {
		return noop
	}
	if _, has := st.Target(); !has {
		return noop
	}
	s.state = st.withoutTarget()
	return applied
}

// Back abandons the selection in progress and returns to the open node
func (s *Session) Back() Outcome {
	st, ok := s.state.(FieldSelecting)
	if !ok {
		return noop
	}
	s.state = NodeOpen{Node: st.Node}
	return applied
}

// Commit records the selected field and target as a mapping and returns to the
// open node. Without a chosen target it does nothing.
func (s *Session) Commit() Outcome {
	st, ok := s.state.(FieldSelecting)
	if !ok {
		return noop
	}
	target, has := st.Target()
	if !has {
		return noop
	}
	if s.maxMappings > 0 && len(s.mappings) >= s.maxMappings {
		return noop
	}
	m := entities.NewMapping(st.Field, target)
	s.mappings = append(s.mappings, m)
	s.revision++
	s.state = NodeOpen{Node: st.Node}
	return Outcome{Applied: true, Committed: &m}
}

// RemoveMapping deletes the mapping of the given field. Selection is unchanged.
func (s *Session) RemoveMapping(field valueobjects.FieldRef) Outcome {
	for i, m := range s.mappings {
		if m.Field != field {
			continue
		}
		removed := m
		s.mappings = append(s.mappings[:i:i], s.mappings[i+1:]...)
		s.revision++
		return Outcome{Applied: true, Removed: &removed}
	}
	return noop
}

// CandidateTargets returns the nodes whose fields may be chosen as a target
// while a field is being mapped: global nodes first, then the open node's
// predecessors. It is empty outside FieldSelecting.
func (s *Session) CandidateTargets() []*entities.GraphNode {
	st, ok := s.state.(FieldSelecting)
	if !ok {
		return nil
	}
	return s.candidatesFor(st.Node)
}

func (s *Session) candidatesFor(open *entities.GraphNode) []*entities.GraphNode {
	seen := map[valueobjects.NodeID]struct{}{open.ID(): {}}
	var out []*entities.GraphNode
	add := func(n *entities.GraphNode) {
		if _, dup := seen[n.ID()]; dup {
			return
		}
		seen[n.ID()] = struct{}{}
		out = append(out, n)
	}
	for _, g := range s.nodes.GlobalNodes() {
		add(g)
	}
	for _, id := range open.PredecessorIDs() {
		if n, ok := s.nodes.Get(id); ok {
			add(n)
		}
	}
	return out
}

func (s *Session) isCandidate(open *entities.GraphNode, ref valueobjects.FieldRef) bool {
	for _, n := range s.candidatesFor(open) {
		if n.ID() == ref.NodeID() {
			return n.HasField(ref.FieldKey())
		}
	}
	return false
}
