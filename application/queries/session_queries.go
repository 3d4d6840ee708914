package queries

import (
	pkgerrors "prefill/pkg/errors"
)

// GetSessionViewQuery returns the read model of a session
type GetSessionViewQuery struct {
	SessionID string
}

// Validate validates the GetSessionViewQuery
func (q GetSessionViewQuery) Validate() error {
	if q.SessionID == "" {
		return pkgerrors.NewValidationError("session ID is required")
	}
	return nil
}

// GetCanvasQuery returns the projected graph of a session
type GetCanvasQuery struct {
	SessionID string
	// Wait blocks until the graph finished loading
	Wait bool
}

// Validate validates the GetCanvasQuery
func (q GetCanvasQuery) Validate() error {
	if q.SessionID == "" {
		return pkgerrors.NewValidationError("session ID is required")
	}
	return nil
}
