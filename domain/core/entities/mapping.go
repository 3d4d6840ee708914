package entities

import (
	"prefill/domain/core/valueobjects"
)

// Mapping states that Field is prefilled from Target.
type Mapping struct {
	Field  valueobjects.FieldRef `json:"field"`
	Target valueobjects.FieldRef `json:"target"`
}

// NewMapping creates a mapping
func NewMapping(field, target valueobjects.FieldRef) Mapping {
	return Mapping{Field: field, Target: target}
}

// Label formats the display label of an active field:
// "<fieldKey>: <targetNodeTitle>.<targetFieldKey>"
func (m Mapping) Label(targetTitle string) string {
	return m.Field.FieldKey() + ": " + targetTitle + "." + m.Target.FieldKey()
}
