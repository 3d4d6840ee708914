package services

import (
	"prefill/domain/core/aggregates"
	"prefill/domain/core/entities"
	"prefill/domain/core/valueobjects"
	"prefill/domain/session"
)

// SessionView is the read model of a mapping session
type SessionView struct {
	SessionID      string                 `json:"session_id"`
	TenantID       string                 `json:"tenant_id"`
	BlueprintID    string                 `json:"blueprint_id"`
	Loading        bool                   `json:"loading"`
	LoadError      string                 `json:"load_error,omitempty"`
	Phase          session.Phase          `json:"phase"`
	SelectedNode   *NodeView              `json:"selected_node,omitempty"`
	SelectedField  *valueobjects.FieldRef `json:"selected_field,omitempty"`
	SelectedTarget *valueobjects.FieldRef `json:"selected_target,omitempty"`
	Fields         []FieldRow             `json:"fields"`
	Candidates     []CandidateGroup       `json:"candidates"`
	Mappings       []MappingView          `json:"mappings"`
	Revision       int                    `json:"revision"`
}

// NodeView identifies a node for display
type NodeView struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// FieldRow is one field of the open node
type FieldRow struct {
	FieldKey string `json:"field_key"`
	Active   bool   `json:"active"`
	Label    string `json:"label"`
}

// CandidateGroup is one node offered as a mapping target
type CandidateGroup struct {
	NodeID string           `json:"node_id"`
	Title  string           `json:"title"`
	Global bool             `json:"global"`
	Fields []CandidateField `json:"fields"`
}

// CandidateField is one selectable target field
type CandidateField struct {
	FieldKey string `json:"field_key"`
	Selected bool   `json:"selected"`
}

// MappingView is a committed mapping with its display label
type MappingView struct {
	Field  valueobjects.FieldRef `json:"field"`
	Target valueobjects.FieldRef `json:"target"`
	Label  string                `json:"label"`
}

// CanvasView is the projected graph of a session
type CanvasView struct {
	Loading bool                    `json:"loading"`
	Nodes   []aggregates.CanvasNode `json:"nodes"`
	Edges   []aggregates.CanvasEdge `json:"edges"`
}

func buildSessionView(e *sessionEntry) *SessionView {
	s := e.session
	v := &SessionView{
		SessionID:   e.id,
		TenantID:    e.key.TenantID,
		BlueprintID: e.key.BlueprintID,
		Loading:     s.Loading(),
		Phase:       s.Phase(),
		Fields:      []FieldRow{},
		Candidates:  []CandidateGroup{},
		Mappings:    []MappingView{},
		Revision:    s.Revision(),
	}
	if e.loadErr != nil {
		v.LoadError = e.loadErr.Error()
	}

	nodes := s.Nodes()
	index := s.MappingIndex()

	if node, ok := s.SelectedNode(); ok {
		v.SelectedNode = &NodeView{ID: node.ID().String(), Title: node.Title()}
		for _, key := range node.Fields() {
			ref := valueobjects.NewFieldRef(node.ID(), key)
			v.Fields = append(v.Fields, FieldRow{
				FieldKey: key,
				Active:   index.IsActive(ref),
				Label:    index.Label(ref, nodes),
			})
		}
	}

	if field, ok := s.SelectedField(); ok {
		f := field
		v.SelectedField = &f
		target, hasTarget := s.SelectedTarget()
		if hasTarget {
			t := target
			v.SelectedTarget = &t
		}
		for _, c := range s.CandidateTargets() {
			v.Candidates = append(v.Candidates, candidateGroup(c, target, hasTarget))
		}
	}

	for _, m := range s.Mappings() {
		v.Mappings = append(v.Mappings, MappingView{
			Field:  m.Field,
			Target: m.Target,
			Label:  session.ActiveLabel(m, nodes),
		})
	}

	return v
}

func candidateGroup(node *entities.GraphNode, target valueobjects.FieldRef, hasTarget bool) CandidateGroup {
	group := CandidateGroup{
		NodeID: node.ID().String(),
		Title:  node.Title(),
		Global: node.IsGlobal(),
		Fields: make([]CandidateField, 0, len(node.Fields())),
	}
	for _, key := range node.Fields() {
		selected := hasTarget && target.Equals(valueobjects.NewFieldRef(node.ID(), key))
		group.Fields = append(group.Fields, CandidateField{FieldKey: key, Selected: selected})
	}
	return group
}

func buildCanvasView(g *aggregates.Graph) *CanvasView {
	if g == nil {
		return &CanvasView{Loading: true, Nodes: []aggregates.CanvasNode{}, Edges: []aggregates.CanvasEdge{}}
	}
	c := g.Canvas()
	v := &CanvasView{Nodes: c.Nodes, Edges: c.Edges}
	if v.Nodes == nil {
		v.Nodes = []aggregates.CanvasNode{}
	}
	if v.Edges == nil {
		v.Edges = []aggregates.CanvasEdge{}
	}
	return v
}
