package handlers

import (
	"context"
	"fmt"

	"prefill/application/commands"
	"prefill/application/commands/bus"
	"prefill/application/services"

	"go.uber.org/zap"
)

// SessionCommandHandler executes session commands against the session service
type SessionCommandHandler struct {
	sessions *services.SessionService
	logger   *zap.Logger
}

// NewSessionCommandHandler creates a new handler instance
func NewSessionCommandHandler(sessions *services.SessionService, logger *zap.Logger) *SessionCommandHandler {
	return &SessionCommandHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// Handle implements bus.CommandHandler
func (h *SessionCommandHandler) Handle(ctx context.Context, cmd bus.Command) error {
	switch c := cmd.(type) {
	case commands.CreateSessionCommand:
		_, err := h.sessions.CreateSession(ctx, services.CreateSessionInput{
			SessionID:   c.SessionID,
			TenantID:    c.TenantID,
			BlueprintID: c.BlueprintID,
			RestoreFrom: c.RestoreFrom,
		})
		return err

	case commands.DeleteSessionCommand:
		return h.sessions.DeleteSession(ctx, c.SessionID)

	case commands.TransitionCommand:
		name, fn := c.Transition()
		_, out, err := h.sessions.Apply(ctx, c.Session(), name, fn)
		if err != nil {
			return err
		}
		if !out.Applied {
			h.logger.Debug("Transition ignored",
				zap.String("sessionID", c.Session()),
				zap.String("transition", name),
			)
		}
		return nil
	}

	return fmt.Errorf("unsupported command %T", cmd)
}

// Register adds the handler for every session command to the bus
func (h *SessionCommandHandler) Register(b *bus.CommandBus) error {
	for _, cmd := range []bus.Command{
		commands.CreateSessionCommand{},
		commands.DeleteSessionCommand{},
		commands.OpenNodeCommand{},
		commands.CloseNodeCommand{},
		commands.SelectFieldCommand{},
		commands.SelectTargetCommand{},
		commands.ClearTargetCommand{},
		commands.BackCommand{},
		commands.CommitCommand{},
		commands.RemoveMappingCommand{},
	} {
		if err := b.Register(cmd, h); err != nil {
			return err
		}
	}
	return nil
}
