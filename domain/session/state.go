package session

import (
	"prefill/domain/core/entities"
	"prefill/domain/core/valueobjects"
)

// Phase names a state of the mapping session
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseNodeOpen       Phase = "node_open"
	PhaseFieldSelecting Phase = "field_selecting"
)

// State is one of Idle, NodeOpen or FieldSelecting
type State interface {
	Phase() Phase
	isState()
}

// Idle means no node is open
type Idle struct{}

// NodeOpen means a node is open and its field list is shown
type NodeOpen struct {
	Node *entities.GraphNode
}

// FieldSelecting means a field of the open node is being mapped and candidate
// targets are shown. The target stays optional until commit.
type FieldSelecting struct {
	Node      *entities.GraphNode
	Field     valueobjects.FieldRef
	target    valueobjects.FieldRef
	hasTarget bool
}

func (Idle) Phase() Phase           { return PhaseIdle }
func (NodeOpen) Phase() Phase       { return PhaseNodeOpen }
func (FieldSelecting) Phase() Phase { return PhaseFieldSelecting }

func (Idle) isState()           {}
func (NodeOpen) isState()       {}
func (FieldSelecting) isState() {}

// Target returns the chosen, not yet committed, target field
func (s FieldSelecting) Target() (valueobjects.FieldRef, bool) {
	return s.target, s.hasTarget
}

func (s FieldSelecting) withTarget(ref valueobjects.FieldRef) FieldSelecting {
	s.target = ref
	s.hasTarget = true
	return s
}

func (s FieldSelecting) withoutTarget() FieldSelecting {
	s.target = valueobjects.FieldRef{}
	s.hasTarget = false
	return s
}

// Outcome reports what a transition did
type Outcome struct {
	// Applied is false when the transition was a no-op
	Applied bool
	// Committed is set by a successful Commit
	Committed *entities.Mapping
	// Removed is set by a RemoveMapping that found an entry
	Removed *entities.Mapping
}

// MappingsChanged reports whether the transition altered the mapping set
func (o Outcome) MappingsChanged() bool {
	return o.Committed != nil || o.Removed != nil
}

var noop = Outcome{}

var applied = Outcome{Applied: true}
