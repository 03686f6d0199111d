package members

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-crm/meridian-crm/internal/permissions"
	"github.com/meridian-crm/meridian-crm/internal/platform/httpx"
	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// Handler exposes member management endpoints. All routes act within the
// session's active agency.
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

// MountRoutes registers member routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(permissions.PermMembersView, permissions.PermMembersManage))
		r.Get("/", h.list)
		r.Get("/{memberID}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll(permissions.PermMembersManage))
		r.Post("/", h.invite)
		r.Patch("/{memberID}/tier", h.changeTier)
		r.Delete("/{memberID}", h.remove)
	})
}

type memberResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	AgencyID   string `json:"agency_id"`
	MemberType string `json:"member_type"`
	Email      string `json:"email"`
	Name       string `json:"name"`
}

func toResponse(m Member) memberResponse {
	return memberResponse{
		ID:         m.ID.String(),
		UserID:     m.UserID.String(),
		AgencyID:   m.AgencyID.String(),
		MemberType: string(m.MemberType),
		Email:      m.Email,
		Name:       m.Name,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	agencyID, ok := h.activeAgency(w, r)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	members, paging, err := h.service.List(r.Context(), ListRequest{AgencyID: agencyID, Page: page, PerPage: perPage})
	if err != nil {
		h.logger.Error("list members", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	items := make([]memberResponse, 0, len(members))
	for _, m := range members {
		items = append(items, toResponse(m))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"members": items, "pagination": paging})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	agencyID, ok := h.activeAgency(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "memberID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid member id")
		return
	}

	member, err := h.service.Get(r.Context(), id)
	if err != nil || member.AgencyID != agencyID {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "member not found")
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*member))
}

func (h *Handler) invite(w http.ResponseWriter, r *http.Request) {
	agencyID, ok := h.activeAgency(w, r)
	if !ok {
		return
	}
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req InviteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}

	member, err := h.service.Invite(r.Context(), actorID, agencyID, userID, permissions.MemberType(req.MemberType))
	if err != nil {
		h.respondServiceError(w, "invite member", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(*member))
}

func (h *Handler) changeTier(w http.ResponseWriter, r *http.Request) {
	agencyID, ok := h.activeAgency(w, r)
	if !ok {
		return
	}
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "memberID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid member id")
		return
	}

	var req ChangeTierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	member, err := h.service.ChangeTier(r.Context(), actorID, agencyID, id, permissions.MemberType(req.MemberType))
	if err != nil {
		h.respondServiceError(w, "change member tier", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*member))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	agencyID, ok := h.activeAgency(w, r)
	if !ok {
		return
	}
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "memberID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid member id")
		return
	}

	if err := h.service.Remove(r.Context(), actorID, agencyID, id); err != nil {
		h.respondServiceError(w, "remove member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "member not found")
	case errors.Is(err, ErrAlreadyExists):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "user is already a member of this agency")
	case errors.Is(err, ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrLastOwner):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) activeAgency(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.Agency() == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "no active agency selected")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(sess.Agency())
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid active agency")
		return uuid.Nil, false
	}
	return id, true
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
