package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"lifetree-backend/application/commands"
	"lifetree-backend/application/commands/bus"
	cmdhandlers "lifetree-backend/application/commands/handlers"
	"lifetree-backend/application/queries"
	querybus "lifetree-backend/application/queries/bus"
	"lifetree-backend/pkg/common"
	pkgerrors "lifetree-backend/pkg/errors"
	"lifetree-backend/pkg/utils"
)

// NodeHandler handles node-level requests within a session.
type NodeHandler struct {
	expand     *cmdhandlers.ExpandNodeOrchestrator
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errs       *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(
	expand *cmdhandlers.ExpandNodeOrchestrator,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *NodeHandler {
	return &NodeHandler{
		expand:     expand,
		commandBus: commandBus,
		queryBus:   queryBus,
		errs:       errs,
		logger:     logger,
	}
}

// EditNodeRequest is a partial edit of one node's scenario fields.
type EditNodeRequest struct {
	Title              *string  `json:"title,omitempty" validate:"omitempty,max=200"`
	ChangeDescription  *string  `json:"change_description,omitempty" validate:"omitempty,max=2000"`
	Location           *string  `json:"location,omitempty" validate:"omitempty,max=120"`
	RelationshipStatus *string  `json:"relationship_status,omitempty" validate:"omitempty,max=60"`
	LivingSituation    *string  `json:"living_situation,omitempty" validate:"omitempty,max=120"`
	CareerStatus       *string  `json:"career_status,omitempty" validate:"omitempty,max=120"`
	MonthlyIncome      *float64 `json:"monthly_income,omitempty" validate:"omitempty,gte=0"`
	AgeYears           *int     `json:"age_years,omitempty" validate:"omitempty,gte=0,lte=120"`
	AgeWeeks           *int     `json:"age_weeks,omitempty" validate:"omitempty,gte=0,lte=51"`
}

// MoveNodeRequest drops a node at the given position.
type MoveNodeRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GetNode handles GET /sessions/{sessionID}/nodes/{nodeID}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	sessionID, nodeID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetNodeQuery{
		SessionID: sessionID,
		NodeID:    nodeID,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetAncestry handles GET /sessions/{sessionID}/nodes/{nodeID}/ancestry
func (h *NodeHandler) GetAncestry(w http.ResponseWriter, r *http.Request) {
	sessionID, nodeID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetAncestryQuery{
		SessionID: sessionID,
		NodeID:    nodeID,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// ExpandNode handles POST /sessions/{sessionID}/nodes/{nodeID}/expand.
// It answers 202 as soon as the placeholder children exist; generated
// content streams in afterwards.
func (h *NodeHandler) ExpandNode(w http.ResponseWriter, r *http.Request) {
	sessionID, nodeID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	cmd := commands.ExpandNodeCommand{SessionID: sessionID, NodeID: nodeID}
	if err := cmd.Validate(); err != nil {
		h.errs.HandleStatus(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.expand.Handle(r.Context(), cmd)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusAccepted, result)
}

// EditNode handles PATCH /sessions/{sessionID}/nodes/{nodeID}
func (h *NodeHandler) EditNode(w http.ResponseWriter, r *http.Request) {
	sessionID, nodeID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	var req EditNodeRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		h.errs.HandleStatus(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errs.HandleStatus(w, r, http.StatusBadRequest, err.Error())
		return
	}

	cmd := commands.EditNodeCommand{
		SessionID:          sessionID,
		NodeID:             nodeID,
		Title:              req.Title,
		ChangeDescription:  req.ChangeDescription,
		Location:           req.Location,
		RelationshipStatus: req.RelationshipStatus,
		LivingSituation:    req.LivingSituation,
		CareerStatus:       req.CareerStatus,
		MonthlyIncome:      req.MonthlyIncome,
		AgeYears:           req.AgeYears,
		AgeWeeks:           req.AgeWeeks,
	}
	if err := cmd.Validate(); err != nil {
		h.errs.HandleStatus(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	// Return the node as it stands after the edit.
	result, err := h.queryBus.Ask(r.Context(), queries.GetNodeQuery{
		SessionID: sessionID,
		NodeID:    nodeID,
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// MoveNode handles PUT /sessions/{sessionID}/nodes/{nodeID}/position
func (h *NodeHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	sessionID, nodeID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	var req MoveNodeRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil && !errors.Is(err, io.EOF) {
		h.errs.HandleStatus(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	cmd := commands.MoveNodeCommand{
		SessionID: sessionID,
		NodeID:    nodeID,
		X:         req.X,
		Y:         req.Y,
	}
	if err := cmd.Validate(); err != nil {
		h.errs.HandleStatus(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pathIDs extracts and validates the session and node path parameters.
func (h *NodeHandler) pathIDs(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		h.errs.HandleStatus(w, r, http.StatusBadRequest, "session ID is required")
		return "", 0, false
	}

	nodeID, err := strconv.Atoi(chi.URLParam(r, "nodeID"))
	if err != nil || nodeID < 0 {
		h.errs.HandleStatus(w, r, http.StatusBadRequest, "node ID must be a non-negative integer")
		return "", 0, false
	}

	return sessionID, nodeID, true
}
