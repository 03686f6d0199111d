package agencies

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-crm/meridian-crm/internal/platform/httpx"
	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// Handler exposes agency endpoints. Creating an agency needs only a signed
// in user; the creator becomes the owner.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers agency routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/{id}/activate", h.activate)
}

type agencyResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actor(w, r)
	if !ok {
		return
	}
	items, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list agencies", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	out := make([]agencyResponse, 0, len(items))
	for _, a := range items {
		out = append(out, agencyResponse{ID: a.ID.String(), Name: a.Name})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"agencies": out})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	agency, err := h.service.Create(r.Context(), userID, req.Name)
	if err != nil {
		h.logger.Error("create agency", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	// New agencies become the active one immediately.
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.SetAgency(agency.ID.String())
	}
	httpx.JSON(w, http.StatusCreated, agencyResponse{ID: agency.ID.String(), Name: agency.Name})
}

// activate switches the session's active agency after a membership check.
func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.actor(w, r)
	if !ok {
		return
	}
	agencyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid agency id")
		return
	}

	member, err := h.service.IsMember(r.Context(), userID, agencyID)
	if err != nil {
		h.logger.Error("membership check", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if !member {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "not a member of this agency")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "not signed in")
		return
	}
	sess.SetAgency(agencyID.String())
	httpx.JSON(w, http.StatusOK, map[string]any{"active_agency_id": agencyID.String()})
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
