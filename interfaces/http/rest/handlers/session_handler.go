package handlers

import (
	"net/http"
	"strconv"

	"prefill/application/commands"
	"prefill/application/commands/bus"
	"prefill/application/queries"
	querybus "prefill/application/queries/bus"
	"prefill/pkg/auth"
	"prefill/pkg/common"
	pkgerrors "prefill/pkg/errors"
	"prefill/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionHandler handles mapping session HTTP requests
type SessionHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errorHandler,
		logger:     logger,
	}
}

// CreateSessionRequest represents the request body for creating a session
type CreateSessionRequest struct {
	TenantID         string `json:"tenant_id" validate:"required,max=128"`
	BlueprintID      string `json:"blueprint_id" validate:"required,max=128"`
	RestoreSessionID string `json:"restore_session_id,omitempty" validate:"omitempty,uuid4"`
}

// CreateSessionResponse represents the response for creating a session
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// NodeRequest names a node of the session graph
type NodeRequest struct {
	NodeID string `json:"node_id" validate:"required"`
}

// FieldRequest names a field of a node
type FieldRequest struct {
	NodeID   string `json:"node_id" validate:"required"`
	FieldKey string `json:"field_key" validate:"required"`
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	// A token scoped to a tenant may only open sessions of that tenant
	if user, err := auth.GetUserFromContext(r.Context()); err == nil && user.TenantID != "" && user.TenantID != req.TenantID {
		h.errors.Handle(w, r, pkgerrors.NewForbiddenError("tenant mismatch"))
		return
	}

	sessionID := uuid.New().String()
	cmd := commands.CreateSessionCommand{
		SessionID:   sessionID,
		TenantID:    req.TenantID,
		BlueprintID: req.BlueprintID,
		RestoreFrom: req.RestoreSessionID,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.logger.Info("Session opened",
		zap.String("sessionID", sessionID),
		zap.String("tenantID", req.TenantID),
		zap.String("blueprintID", req.BlueprintID),
	)
	h.respond(w, http.StatusCreated, CreateSessionResponse{SessionID: sessionID})
}

// GetSession handles GET /sessions/{sessionID}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.respondView(w, r, chi.URLParam(r, "sessionID"))
}

// DeleteSession handles DELETE /sessions/{sessionID}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	cmd := commands.DeleteSessionCommand{SessionID: chi.URLParam(r, "sessionID")}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetCanvas handles GET /sessions/{sessionID}/canvas[?wait=true]
func (h *SessionHandler) GetCanvas(w http.ResponseWriter, r *http.Request) {
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	query := queries.GetCanvasQuery{
		SessionID: chi.URLParam(r, "sessionID"),
		Wait:      wait,
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errors.HandleUpstream(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, result)
}

// OpenNode handles POST /sessions/{sessionID}/open
func (h *SessionHandler) OpenNode(w http.ResponseWriter, r *http.Request) {
	var req NodeRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.send(w, r, commands.OpenNodeCommand{SessionID: chi.URLParam(r, "sessionID"), NodeID: req.NodeID})
}

// CloseNode handles POST /sessions/{sessionID}/close
func (h *SessionHandler) CloseNode(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, commands.CloseNodeCommand{SessionID: chi.URLParam(r, "sessionID")})
}

// SelectField handles POST /sessions/{sessionID}/field
func (h *SessionHandler) SelectField(w http.ResponseWriter, r *http.Request) {
	field, ok := h.fieldCommand(w, r)
	if !ok {
		return
	}
	h.send(w, r, commands.SelectFieldCommand{FieldCommand: field})
}

// SelectTarget handles POST /sessions/{sessionID}/target
func (h *SessionHandler) SelectTarget(w http.ResponseWriter, r *http.Request) {
	field, ok := h.fieldCommand(w, r)
	if !ok {
		return
	}
	h.send(w, r, commands.SelectTargetCommand{FieldCommand: field})
}

// ClearTarget handles DELETE /sessions/{sessionID}/target
func (h *SessionHandler) ClearTarget(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, commands.ClearTargetCommand{SessionID: chi.URLParam(r, "sessionID")})
}

// Back handles POST /sessions/{sessionID}/back
func (h *SessionHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, commands.BackCommand{SessionID: chi.URLParam(r, "sessionID")})
}

// Commit handles POST /sessions/{sessionID}/commit
func (h *SessionHandler) Commit(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, commands.CommitCommand{SessionID: chi.URLParam(r, "sessionID")})
}

// RemoveMapping handles DELETE /sessions/{sessionID}/mappings
func (h *SessionHandler) RemoveMapping(w http.ResponseWriter, r *http.Request) {
	field, ok := h.fieldCommand(w, r)
	if !ok {
		return
	}
	h.send(w, r, commands.RemoveMappingCommand{FieldCommand: field})
}

func (h *SessionHandler) fieldCommand(w http.ResponseWriter, r *http.Request) (commands.FieldCommand, bool) {
	var req FieldRequest
	if !h.decode(w, r, &req) {
		return commands.FieldCommand{}, false
	}
	return commands.FieldCommand{
		SessionID: chi.URLParam(r, "sessionID"),
		NodeID:    req.NodeID,
		FieldKey:  req.FieldKey,
	}, true
}

// send runs a transition and answers with the session view, also when the
// transition did not apply
func (h *SessionHandler) send(w http.ResponseWriter, r *http.Request, cmd commands.TransitionCommand) {
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondView(w, r, cmd.Session())
}

func (h *SessionHandler) respondView(w http.ResponseWriter, r *http.Request, sessionID string) {
	view, err := h.queryBus.Ask(r.Context(), queries.GetSessionViewQuery{SessionID: sessionID})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, view)
}

func (h *SessionHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := common.ParseJSONBody(w, r, v, common.DefaultMaxBodyBytes); err != nil {
		h.errors.HandleStatus(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	if err := utils.ValidateStruct(v); err != nil {
		h.errors.HandleStatus(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return false
	}
	return true
}

func (h *SessionHandler) respond(w http.ResponseWriter, status int, data interface{}) {
	if err := common.RespondJSON(w, status, data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
