// Package handlers exposes the session tree service over REST. Handlers
// translate HTTP requests into commands and queries and let the shared
// error handler map failures onto status codes.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"lifetree-backend/application/commands"
	"lifetree-backend/application/commands/bus"
	cmdhandlers "lifetree-backend/application/commands/handlers"
	"lifetree-backend/application/ports"
	"lifetree-backend/application/queries"
	querybus "lifetree-backend/application/queries/bus"
	"lifetree-backend/pkg/common"
	pkgerrors "lifetree-backend/pkg/errors"
	"lifetree-backend/pkg/utils"
)

const maxBodyBytes = 1 << 20

// SessionHandler handles session lifecycle requests.
type SessionHandler struct {
	create     *cmdhandlers.CreateSessionOrchestrator
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errs       *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	create *cmdhandlers.CreateSessionOrchestrator,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		create:     create,
		commandBus: commandBus,
		queryBus:   queryBus,
		errs:       errs,
		logger:     logger,
	}
}

// CreateSessionRequest is the optional root seed for a new session. An
// empty body seeds the tree with the configured defaults.
type CreateSessionRequest struct {
	Title              string           `json:"title,omitempty" validate:"omitempty,max=200"`
	AgeYears           int              `json:"age_years,omitempty" validate:"omitempty,gte=0,lte=120"`
	AgeWeeks           int              `json:"age_weeks,omitempty" validate:"omitempty,gte=0,lte=51"`
	Location           string           `json:"location,omitempty" validate:"omitempty,max=120"`
	RelationshipStatus string           `json:"relationship_status,omitempty" validate:"omitempty,max=60"`
	LivingSituation    string           `json:"living_situation,omitempty" validate:"omitempty,max=120"`
	CareerStatus       string           `json:"career_status,omitempty" validate:"omitempty,max=120"`
	MonthlyIncome      float64          `json:"monthly_income,omitempty" validate:"omitempty,gte=0"`
	Appearance         AppearanceFields `json:"appearance,omitempty"`
}

// AppearanceFields mirrors the portrait-relevant traits of the seed.
type AppearanceFields struct {
	HairColor     string `json:"hair_color,omitempty" validate:"omitempty,max=40"`
	HairStyle     string `json:"hair_style,omitempty" validate:"omitempty,max=40"`
	EyeColor      string `json:"eye_color,omitempty" validate:"omitempty,max=40"`
	SkinTone      string `json:"skin_tone,omitempty" validate:"omitempty,max=40"`
	Build         string `json:"build,omitempty" validate:"omitempty,max=40"`
	ClothingStyle string `json:"clothing_style,omitempty" validate:"omitempty,max=60"`
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil && !errors.Is(err, io.EOF) {
		h.errs.HandleStatus(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		h.errs.HandleStatus(w, r, http.StatusBadRequest, err.Error())
		return
	}

	cmd := commands.CreateSessionCommand{
		Title:              req.Title,
		AgeYears:           req.AgeYears,
		AgeWeeks:           req.AgeWeeks,
		Location:           req.Location,
		RelationshipStatus: req.RelationshipStatus,
		LivingSituation:    req.LivingSituation,
		CareerStatus:       req.CareerStatus,
		MonthlyIncome:      req.MonthlyIncome,
		Appearance: ports.AppearanceRecord{
			HairColor:     req.Appearance.HairColor,
			HairStyle:     req.Appearance.HairStyle,
			EyeColor:      req.Appearance.EyeColor,
			SkinTone:      req.Appearance.SkinTone,
			Build:         req.Appearance.Build,
			ClothingStyle: req.Appearance.ClothingStyle,
		},
	}
	if err := cmd.Validate(); err != nil {
		h.errs.HandleStatus(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.create.Handle(r.Context(), cmd)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, result)
}

// ListSessions handles GET /sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	params := common.ExtractPaginationParams(r)

	result, err := h.queryBus.Ask(r.Context(), queries.ListSessionsQuery{
		Limit:  params.PageSize,
		Offset: params.CalculateOffset(),
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	list, ok := result.(*queries.ListSessionsResult)
	if !ok {
		h.errs.Handle(w, r, pkgerrors.NewInternalError("unexpected list result type"))
		return
	}

	common.RespondWithMeta(w, http.StatusOK, list.Sessions, &common.MetaInfo{
		RequestID:  common.ExtractRequestID(r),
		Timestamp:  utils.NowRFC3339(),
		Pagination: common.BuildPaginationMeta(params.Page, params.PageSize, list.TotalCount),
	})
}

// GetSession handles GET /sessions/{sessionID}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	result, err := h.queryBus.Ask(r.Context(), queries.GetSessionStatsQuery{
		SessionID:       sessionID,
		IncludeVersions: r.URL.Query().Get("include_versions") == "true",
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetTree handles GET /sessions/{sessionID}/tree
func (h *SessionHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	result, err := h.queryBus.Ask(r.Context(), queries.GetTreeQuery{SessionID: sessionID})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// ResetSession handles POST /sessions/{sessionID}/reset
func (h *SessionHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	cmd := commands.ResetSessionCommand{SessionID: sessionID}
	if err := cmd.Validate(); err != nil {
		h.errs.HandleStatus(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	// Hand the fresh tree back so clients can redraw without a second
	// round trip.
	result, err := h.queryBus.Ask(r.Context(), queries.GetTreeQuery{SessionID: sessionID})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// DestroySession handles DELETE /sessions/{sessionID}
func (h *SessionHandler) DestroySession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	cmd := commands.DestroySessionCommand{SessionID: sessionID}
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
