package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pactline/pactline/internal/authz"
	"github.com/pactline/pactline/internal/platform/httpx"
	"github.com/pactline/pactline/internal/shared"
)

// Handler exposes the activity timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.timeline)
}

// timeline requires the view-compliance capability; the activity log spans
// companies and is not filtered per tenant.
func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok || !authz.HasCapability(actor, authz.CapViewCompliance) {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}

	filters := TimelineFilters{
		ActorID:  queryInt64(r, "actor_id"),
		Action:   r.URL.Query().Get("action"),
		Page:     int(queryInt64(r, "page")),
		PageSize: int(queryInt64(r, "page_size")),
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.From = ts
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.To = ts
		}
	}

	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"entries": result.Rows,
		"paging":  result.Paging,
	})
}

func queryInt64(r *http.Request, key string) int64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
