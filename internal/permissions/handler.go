package permissions

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-crm/meridian-crm/internal/platform/httpx"
)

// Handler exposes the permission catalog and the caller's own resolved
// access.
type Handler struct {
	logger   *slog.Logger
	resolver *Resolver
	guard    Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, resolver *Resolver, guard Middleware) *Handler {
	return &Handler{logger: logger, resolver: resolver, guard: guard}
}

// MountRoutes registers permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/catalog", h.showCatalog)
	r.Get("/me", h.showOwn)
	r.Get("/me/sections", h.showOwnSections)
}

type catalogEntryResponse struct {
	Key         string `json:"key"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

func (h *Handler) showCatalog(w http.ResponseWriter, r *http.Request) {
	entries := Catalog()
	items := make([]catalogEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, catalogEntryResponse{Key: e.Key, Category: e.Category, Description: e.Description})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"permissions": items,
		"categories":  Categories(),
		"sections":    Sections(),
	})
}

func (h *Handler) showOwn(w http.ResponseWriter, r *http.Request) {
	memberID, email, ok := h.guard.currentMember(r)
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "no membership in the active agency")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"permissions": h.resolver.Resolve(r.Context(), memberID, email),
	})
}

func (h *Handler) showOwnSections(w http.ResponseWriter, r *http.Request) {
	memberID, email, ok := h.guard.currentMember(r)
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "no membership in the active agency")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"sections": h.resolver.SectionAccess(r.Context(), memberID, email),
	})
}
