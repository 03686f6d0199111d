package overrides

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-crm/meridian-crm/internal/permissions"
	"github.com/meridian-crm/meridian-crm/internal/platform/httpx"
	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// Handler exposes member override endpoints, nested under members.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     permissions.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, guard permissions.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers override routes. Expects a parent route carrying a
// {memberID} URL parameter.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll(permissions.PermMembersManage))
		r.Get("/", h.list)
		r.Put("/", h.set)
		r.Delete("/{key}", h.clear)
	})
}

type overrideResponse struct {
	PermissionKey string `json:"permission_key"`
	Value         bool   `json:"value"`
	Reason        string `json:"reason"`
	CreatedBy     string `json:"created_by"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	agencyID, memberID, ok := h.scope(w, r)
	if !ok {
		return
	}

	items, err := h.service.List(r.Context(), agencyID, memberID)
	if err != nil {
		h.respondServiceError(w, "list overrides", err)
		return
	}
	out := make([]overrideResponse, 0, len(items))
	for _, o := range items {
		out = append(out, overrideResponse{
			PermissionKey: o.PermissionKey,
			Value:         o.Value,
			Reason:        o.Reason,
			CreatedBy:     o.CreatedBy.String(),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"overrides": out})
}

func (h *Handler) set(w http.ResponseWriter, r *http.Request) {
	agencyID, memberID, ok := h.scope(w, r)
	if !ok {
		return
	}
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req SetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if err := h.service.Set(r.Context(), actorID, agencyID, memberID, req.PermissionKey, *req.Value, req.Reason); err != nil {
		h.respondServiceError(w, "set override", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	agencyID, memberID, ok := h.scope(w, r)
	if !ok {
		return
	}
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")

	if err := h.service.Clear(r.Context(), actorID, agencyID, memberID, key); err != nil {
		h.respondServiceError(w, "clear override", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "override not found")
	case errors.Is(err, ErrUnknownKey):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.Agency() == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "no active agency selected")
		return uuid.Nil, uuid.Nil, false
	}
	agencyID, err := uuid.Parse(sess.Agency())
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid active agency")
		return uuid.Nil, uuid.Nil, false
	}
	memberID, err := uuid.Parse(chi.URLParam(r, "memberID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid member id")
		return uuid.Nil, uuid.Nil, false
	}
	return agencyID, memberID, true
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "not signed in")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(sess.User())
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid session user")
		return uuid.Nil, false
	}
	return id, true
}
