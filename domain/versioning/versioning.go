package versioning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"prefill/domain/core/aggregates"
	"prefill/domain/core/entities"
	"prefill/domain/core/valueobjects"
)

// MappingVersion identifies one state of a session's mapping set
type MappingVersion struct {
	SessionID    string    `json:"session_id"`
	Version      int       `json:"version"`
	Checksum     string    `json:"checksum"`
	MappingCount int       `json:"mapping_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewMappingVersion stamps the mapping set of a session at the given revision
func NewMappingVersion(sessionID string, revision int, mappings []entities.Mapping, at time.Time) MappingVersion {
	return MappingVersion{
		SessionID:    sessionID,
		Version:      revision,
		Checksum:     MappingChecksum(mappings),
		MappingCount: len(mappings),
		CreatedAt:    at,
	}
}

// MappingChecksum hashes a mapping set. Insertion order does not matter.
func MappingChecksum(mappings []entities.Mapping) string {
	lines := make([]string, 0, len(mappings))
	for _, m := range mappings {
		lines = append(lines, refLine(m.Field)+"="+refLine(m.Target))
	}
	sort.Strings(lines)
	return hashJSON(lines)
}

func refLine(f valueobjects.FieldRef) string {
	return strconv.Quote(f.NodeID().String()) + "." + strconv.Quote(f.FieldKey())
}

// GraphChecksum hashes the nodes, fields and edges of a loaded graph, so a reload
// that changed nothing is recognisable.
func GraphChecksum(g *aggregates.Graph) string {
	type node struct {
		ID     string   `json:"id"`
		Title  string   `json:"title"`
		Fields []string `json:"fields"`
		Global bool     `json:"global"`
	}
	data := struct {
		Nodes []node            `json:"nodes"`
		Edges []aggregates.Edge `json:"edges"`
	}{
		Edges: g.Edges(),
	}
	for _, n := range g.Index().Nodes() {
		data.Nodes = append(data.Nodes, node{
			ID:     n.ID().String(),
			Title:  n.Title(),
			Fields: n.Fields(),
			Global: n.IsGlobal(),
		})
	}
	return hashJSON(data)
}

// MappingDiff lists what changed between two mapping sets
type MappingDiff struct {
	Added   []entities.Mapping `json:"added"`
	Removed []entities.Mapping `json:"removed"`
}

// Empty reports whether the sets were equal
func (d MappingDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// CompareMappings returns the mappings present only in next (Added) and only in
// prev (Removed). A field retargeted between the two shows up in both lists.
func CompareMappings(prev, next []entities.Mapping) MappingDiff {
	inPrev := make(map[entities.Mapping]struct{}, len(prev))
	for _, m := range prev {
		inPrev[m] = struct{}{}
	}
	inNext := make(map[entities.Mapping]struct{}, len(next))
	for _, m := range next {
		inNext[m] = struct{}{}
	}

	var diff MappingDiff
	for _, m := range next {
		if _, ok := inPrev[m]; !ok {
			diff.Added = append(diff.Added, m)
		}
	}
	for _, m := range prev {
		if _, ok := inNext[m]; !ok {
			diff.Removed = append(diff.Removed, m)
		}
	}
	return diff
}

func hashJSON(v interface{}) string {
	// Marshal cannot fail for the plain structs hashed here.
	data, _ := json.Marshal(v)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
