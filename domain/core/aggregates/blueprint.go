package aggregates

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"prefill/domain/core/entities"
	"prefill/domain/core/valueobjects"
)

// BlueprintGraph is the action blueprint graph as served by the blueprint server.
type BlueprintGraph struct {
	ID          string           `json:"id"`
	TenantID    string           `json:"tenant_id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Nodes       []BlueprintNode  `json:"nodes"`
	Edges       []BlueprintEdge  `json:"edges"`
	Forms       []BlueprintForm  `json:"forms"`
	Branches    []map[string]any `json:"branches,omitempty"`
	Triggers    []map[string]any `json:"triggers,omitempty"`
}

// BlueprintNode is one process step of a blueprint
type BlueprintNode struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Position *valueobjects.Position `json:"position,omitempty"`
	Data     BlueprintNodeData      `json:"data"`
}

// BlueprintNodeData carries the component a node renders
type BlueprintNodeData struct {
	ID               string            `json:"id"`
	ComponentKey     string            `json:"component_key"`
	ComponentType    string            `json:"component_type"`
	ComponentID      string            `json:"component_id"`
	Name             string            `json:"name"`
	Prerequisites    []string          `json:"prerequisites"`
	PermittedRoles   []string          `json:"permitted_roles"`
	InputMapping     map[string]any    `json:"input_mapping"`
	SLADuration      BlueprintDuration `json:"sla_duration"`
	ApprovalRequired bool              `json:"approval_required"`
	ApprovalRoles    []string          `json:"approval_roles"`
}

// BlueprintDuration is an SLA duration
type BlueprintDuration struct {
	Number int    `json:"number"`
	Unit   string `json:"unit"`
}

// BlueprintEdge is a directed execution-order edge
type BlueprintEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// BlueprintForm is the form schema a node component points at
type BlueprintForm struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	IsReusable  bool                 `json:"is_reusable"`
	FieldSchema BlueprintFieldSchema `json:"field_schema"`
}

// BlueprintFieldSchema lists the fields of a form
type BlueprintFieldSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]BlueprintField `json:"properties"`
	Required   []string                  `json:"required"`

	order []string
}

// UnmarshalJSON decodes the schema and records the declaration order of its properties.
func (s *BlueprintFieldSchema) UnmarshalJSON(data []byte) error {
	type plain BlueprintFieldSchema
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	var raw struct {
		Properties json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	order, err := objectKeys(raw.Properties)
	if err != nil {
		return fmt.Errorf("field_schema properties: %w", err)
	}
	*s = BlueprintFieldSchema(decoded)
	s.order = order
	return nil
}

// FieldKeys returns the property keys in declaration order. Schemas built in code
// carry no order and fall back to sorted keys.
func (s *BlueprintFieldSchema) FieldKeys() []string {
	if s.order != nil {
		return append([]string(nil), s.order...)
	}
	keys := make([]string, 0, len(s.Properties))
	for key := range s.Properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func objectKeys(raw json.RawMessage) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	keys := []string{}
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys, nil
}

// BlueprintField describes a single form field
type BlueprintField struct {
	AvantosType string `json:"avantos_type"`
	Title       string `json:"title,omitempty"`
	Type        string `json:"type"`
	Format      string `json:"format,omitempty"`
}

// EdgeList converts the upstream edges to domain edges, keeping duplicates
func (b *BlueprintGraph) EdgeList() []Edge {
	edges := make([]Edge, 0, len(b.Edges))
	for _, e := range b.Edges {
		edges = append(edges, Edge{
			Source: valueobjects.NodeID(e.Source),
			Target: valueobjects.NodeID(e.Target),
		})
	}
	return edges
}

// SelectGraphNodes derives the graph nodes of a blueprint: title from the node name,
// fields from the keys of the node's form field schema, predecessors from the edges.
// Field keys keep the order the form schema declares them in.
func (b *BlueprintGraph) SelectGraphNodes() ([]*entities.GraphNode, error) {
	forms := make(map[string]*BlueprintForm, len(b.Forms))
	for i := range b.Forms {
		forms[b.Forms[i].ID] = &b.Forms[i]
	}

	nodes := make([]*entities.GraphNode, 0, len(b.Nodes))
	for _, raw := range b.Nodes {
		form, ok := forms[raw.Data.ComponentID]
		if !ok {
			return nil, fmt.Errorf("node %q references unknown form %q", raw.ID, raw.Data.ComponentID)
		}

		node, err := entities.NewGraphNode(valueobjects.NodeID(raw.ID), raw.Data.Name, form.FieldSchema.FieldKeys(), raw.Position)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", raw.ID, err)
		}
		nodes = append(nodes, node)
	}

	return ResolvePredecessors(nodes, b.EdgeList()), nil
}
