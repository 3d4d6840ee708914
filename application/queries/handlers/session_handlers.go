package handlers

import (
	"context"
	"fmt"

	"prefill/application/queries"
	"prefill/application/queries/bus"
	"prefill/application/services"
)

// SessionViewHandler answers GetSessionViewQuery
type SessionViewHandler struct {
	sessions *services.SessionService
}

// NewSessionViewHandler creates a new session view handler
func NewSessionViewHandler(sessions *services.SessionService) *SessionViewHandler {
	return &SessionViewHandler{sessions: sessions}
}

// Handle implements bus.QueryHandler
func (h *SessionViewHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.GetSessionViewQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query %T", query)
	}
	return h.sessions.View(ctx, q.SessionID)
}

// CanvasHandler answers GetCanvasQuery
type CanvasHandler struct {
	sessions *services.SessionService
}

// NewCanvasHandler creates a new canvas handler
func NewCanvasHandler(sessions *services.SessionService) *CanvasHandler {
	return &CanvasHandler{sessions: sessions}
}

// Handle implements bus.QueryHandler. A failed graph load is returned as the
// graph source reported it.
func (h *CanvasHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.GetCanvasQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query %T", query)
	}
	if q.Wait {
		if err := h.sessions.AwaitGraph(ctx, q.SessionID); err != nil {
			return nil, err
		}
	}
	return h.sessions.Canvas(ctx, q.SessionID)
}

// Register adds the session query handlers to the bus, each wrapped by wrap
func Register(b *bus.QueryBus, sessions *services.SessionService, wrap func(bus.QueryHandler) bus.QueryHandler) error {
	if wrap == nil {
		wrap = func(h bus.QueryHandler) bus.QueryHandler { return h }
	}
	if err := b.Register(queries.GetSessionViewQuery{}, wrap(NewSessionViewHandler(sessions))); err != nil {
		return err
	}
	return b.Register(queries.GetCanvasQuery{}, wrap(NewCanvasHandler(sessions)))
}
