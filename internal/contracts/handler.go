package contracts

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pactline/pactline/internal/authz"
	"github.com/pactline/pactline/internal/platform/httpx"
	"github.com/pactline/pactline/internal/shared"
)

// Handler exposes contract endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers contract routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
	r.Post("/{id}/activate", h.activate)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/archive", h.archive)
	r.Get("/{id}/shares", h.shares)
	r.Post("/{id}/shares", h.share)
	r.Delete("/{id}/shares/{userID}", h.revokeShare)
}

type createContractRequest struct {
	Title            string  `json:"title" validate:"required,min=2,max=300"`
	Number           string  `json:"number" validate:"omitempty,max=64"`
	CompanyID        int64   `json:"company_id" validate:"required,gt=0"`
	WorkspaceID      int64   `json:"workspace_id" validate:"omitempty,gt=0"`
	AllowedEditorIDs []int64 `json:"allowed_editor_ids" validate:"omitempty,dive,gt=0"`
}

type updateContractRequest struct {
	Title            string  `json:"title" validate:"required,min=2,max=300"`
	WorkspaceID      int64   `json:"workspace_id" validate:"omitempty,gt=0"`
	AllowedEditorIDs []int64 `json:"allowed_editor_ids" validate:"omitempty,dive,gt=0"`
}

type shareContractRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	query := ListQuery{
		CompanyID:   queryID(r, "company_id"),
		WorkspaceID: queryID(r, "workspace_id"),
	}
	if status := Status(r.URL.Query().Get("status")); status != "" {
		if !status.Known() {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unknown status")
			return
		}
		query.Status = status
	}
	list, err := h.service.List(r.Context(), actor, query)
	if err != nil {
		h.logger.Error("list contracts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"contracts": list})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	contract, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, contract)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	var req createContractRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	contract, err := h.service.Create(r.Context(), actor, Contract{
		Title:            req.Title,
		Number:           req.Number,
		CompanyID:        req.CompanyID,
		WorkspaceID:      req.WorkspaceID,
		AllowedEditorIDs: req.AllowedEditorIDs,
	})
	if err != nil {
		h.logger.Error("create contract", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, contract)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	var req updateContractRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	contract, err := h.service.Update(r.Context(), actor, id, Contract{
		Title:            req.Title,
		WorkspaceID:      req.WorkspaceID,
		AllowedEditorIDs: req.AllowedEditorIDs,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, contract)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.service.Delete, "deleted")
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.service.Activate, "active")
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.service.Approve, "approved")
}

func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.service.Archive, "archived")
}

func (h *Handler) shares(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	list, err := h.service.Shares(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"shares": list})
}

func (h *Handler) share(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	var req shareContractRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	if err := h.service.Share(r.Context(), actor, id, req.UserID); err != nil {
		h.logger.Error("share contract", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "shared"})
}

func (h *Handler) revokeShare(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	userID, err := parseID(r, "userID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	if err := h.service.RevokeShare(r.Context(), actor, id, userID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "revoked"})
}

func (h *Handler) action(w http.ResponseWriter, r *http.Request, op func(context.Context, authz.Actor, int64) error, status string) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	if err := op(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": status})
}

func parseID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, key), 10, 64)
}

func queryID(r *http.Request, key string) int64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
