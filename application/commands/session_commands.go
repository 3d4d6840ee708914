package commands

import (
	"prefill/application/services"
	"prefill/domain/core/valueobjects"
	"prefill/domain/session"
	pkgerrors "prefill/pkg/errors"
	"prefill/pkg/utils"
)

// TransitionCommand is a command that runs one mapping session transition
type TransitionCommand interface {
	Validate() error
	Session() string
	Transition() (name string, fn services.Transition)
}

func validate(cmd interface{}) error {
	if err := utils.ValidateStruct(cmd); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

// CreateSessionCommand opens a mapping session for a blueprint
type CreateSessionCommand struct {
	SessionID   string `validate:"required,uuid4"`
	TenantID    string `validate:"required,max=128,printascii"`
	BlueprintID string `validate:"required,max=128,printascii,excludesall=/?#"`
	RestoreFrom string `validate:"omitempty,uuid4"`
}

// Validate implements bus.Command
func (c CreateSessionCommand) Validate() error { return validate(c) }

// DeleteSessionCommand discards a session
type DeleteSessionCommand struct {
	SessionID string `validate:"required"`
}

// Validate implements bus.Command
func (c DeleteSessionCommand) Validate() error { return validate(c) }

// OpenNodeCommand opens a node of the session's graph
type OpenNodeCommand struct {
	SessionID string `validate:"required"`
	NodeID    string `validate:"required,max=256"`
}

// Validate implements bus.Command
func (c OpenNodeCommand) Validate() error { return validate(c) }

// Session returns the id of the targeted session
func (c OpenNodeCommand) Session() string { return c.SessionID }

// Transition returns the named session transition the command applies
func (c OpenNodeCommand) Transition() (string, services.Transition) {
	id := valueobjects.NodeID(c.NodeID)
	return "open_node", func(s *session.Session) session.Outcome { return s.OpenNode(id) }
}

// CloseNodeCommand closes the open node
type CloseNodeCommand struct {
	SessionID string `validate:"required"`
}

// Validate implements bus.Command
func (c CloseNodeCommand) Validate() error { return validate(c) }

// Session returns the id of the targeted session
func (c CloseNodeCommand) Session() string { return c.SessionID }

// Transition returns the named session transition the command applies
func (c CloseNodeCommand) Transition() (string, services.Transition) {
	return "close_node", (*session.Session).CloseNode
}

// FieldCommand carries a field reference
type FieldCommand struct {
	SessionID string `validate:"required"`
	NodeID    string `validate:"required,max=256"`
	FieldKey  string `validate:"required,max=256"`
}

func (c FieldCommand) ref() valueobjects.FieldRef {
	return valueobjects.NewFieldRef(valueobjects.NodeID(c.NodeID), c.FieldKey)
}

// SelectFieldCommand starts mapping a field of the open node
type SelectFieldCommand struct{ FieldCommand }

// Validate implements bus.Command
func (c SelectFieldCommand) Validate() error { return validate(c) }

// Session returns the id of the targeted session
func (c SelectFieldCommand) Session() string { return c.SessionID }

// Transition returns the named session transition the command applies
func (c SelectFieldCommand) Transition() (string, services.Transition) {
	ref := c.ref()
	return "select_field", func(s *session.Session) session.Outcome { return s.SelectField(ref) }
}

// SelectTargetCommand chooses the target of the selected field
type SelectTargetCommand struct{ FieldCommand }

// Validate implements bus.Command
func (c SelectTargetCommand) Validate() error { return validate(c) }

// Session returns the id of the targeted session
func (c SelectTargetCommand) Session() string { return c.SessionID }

// Transition returns the named session transition the command applies
func (c SelectTargetCommand) Transition() (string, services.Transition) {
	ref := c.ref()
	return "select_target", func(s *session.Session) session.Outcome { return s.SelectTarget(ref) }
}

// ClearTargetCommand drops the chosen target
type ClearTargetCommand struct {
	SessionID string `validate:"required"`
}

// Validate implements bus.Command
func (c ClearTargetCommand) Validate() error { return validate(c) }

// Session returns the id of the targeted session
func (c ClearTargetCommand) Session() string { return c.SessionID }

// Transition returns the named session transition the command applies
func (c ClearTargetCommand) Transition() (string, services.Transition) {
	return "clear_target", (*session.Session).ClearTarget
}

// BackCommand abandons the selection in progress
type BackCommand struct {
	SessionID string `validate:"required"`
}

// Validate implements bus.Command
func (c BackCommand) Validate() error { return validate(c) }

// Session returns the id of the targeted session
func (c BackCommand) Session() string { return c.SessionID }

// Transition returns the named session transition the command applies
func (c BackCommand) Transition() (string, services.Transition) {
	return "back", (*session.Session).Back
}

// CommitCommand records the selected field and target as a mapping
type CommitCommand struct {
	SessionID string `validate:"required"`
}

// Validate implements bus.Command
func (c CommitCommand) Validate() error { return validate(c) }

// Session returns the id of the targeted session
func (c CommitCommand) Session() string { return c.SessionID }

// Transition returns the named session transition the command applies
func (c CommitCommand) Transition() (string, services.Transition) {
	return "commit", (*session.Session).Commit
}

// RemoveMappingCommand deletes the mapping of a field
type RemoveMappingCommand struct{ FieldCommand }

// Validate implements bus.Command
func (c RemoveMappingCommand) Validate() error { return validate(c) }

// Session returns the id of the targeted session
func (c RemoveMappingCommand) Session() string { return c.SessionID }

// Transition returns the named session transition the command applies
func (c RemoveMappingCommand) Transition() (string, services.Transition) {
	ref := c.ref()
	return "remove_mapping", func(s *session.Session) session.Outcome { return s.RemoveMapping(ref) }
}
