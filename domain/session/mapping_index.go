package session

import (
	"prefill/domain/core/aggregates"
	"prefill/domain/core/entities"
	"prefill/domain/core/valueobjects"
)

// MappingIndex looks up committed mappings by their field. Matching compares the
// node id and field key separately; the joined key is only for display and LookupKey.
type MappingIndex struct {
	sep     string
	byField map[valueobjects.FieldRef]entities.Mapping
}

// BuildMappingIndex indexes mappings by source field. With duplicates, the
// last mapping for a field wins.
func BuildMappingIndex(mappings []entities.Mapping) *MappingIndex {
	return BuildMappingIndexWith(mappings, valueobjects.DefaultFieldKeySeparator)
}

// BuildMappingIndexWith indexes mappings using a custom key separator
func BuildMappingIndexWith(mappings []entities.Mapping, sep string) *MappingIndex {
	idx := &MappingIndex{
		sep:     sep,
		byField: make(map[valueobjects.FieldRef]entities.Mapping, len(mappings)),
	}
	for _, m := range mappings {
		idx.byField[m.Field] = m
	}
	return idx
}

// Len returns the number of indexed fields
func (i *MappingIndex) Len() int {
	return len(i.byField)
}

// Lookup returns the mapping committed for the field, if any
func (i *MappingIndex) Lookup(field valueobjects.FieldRef) (entities.Mapping, bool) {
	m, ok := i.byField[field]
	return m, ok
}

// LookupKey returns the mapping whose joined "fieldKey<sep>nodeId" key equals key.
// Joined keys can be ambiguous when ids contain the separator; the match is only
// reported when exactly one field produces the key.
func (i *MappingIndex) LookupKey(key string) (entities.Mapping, bool) {
	var (
		found entities.Mapping
		hits  int
	)
	for field, m := range i.byField {
		if field.KeyWith(i.sep) == key {
			found = m
			hits++
		}
	}
	return found, hits == 1
}

// IsActive reports whether the field is mapped
func (i *MappingIndex) IsActive(field valueobjects.FieldRef) bool {
	_, ok := i.Lookup(field)
	return ok
}

// Label returns the display label of a field: the active label when mapped,
// the bare field key otherwise.
func (i *MappingIndex) Label(field valueobjects.FieldRef, nodes *aggregates.NodeIndex) string {
	m, ok := i.Lookup(field)
	if !ok {
		return field.FieldKey()
	}
	return ActiveLabel(m, nodes)
}

// ActiveLabel formats "<fieldKey>: <targetNodeTitle>.<targetFieldKey>", falling back
// to the target node id when the node is not indexed.
func ActiveLabel(m entities.Mapping, nodes *aggregates.NodeIndex) string {
	title := m.Target.NodeID().String()
	if n, ok := nodes.Get(m.Target.NodeID()); ok {
		title = n.Title()
	}
	return m.Label(title)
}
