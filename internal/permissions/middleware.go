package permissions

import (
	"errors"
	"net/http"
	"strings"

	"log/slog"

	"github.com/google/uuid"

	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// Middleware wires permission checks for HTTP handlers. The current member
// is derived from the session's user and active agency.
type Middleware struct {
	Resolver *Resolver
	Members  MemberStore
	Logger   *slog.Logger
}

// RequireAny ensures the current member holds at least one of the required
// permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizeKeys(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			memberID, email, ok := m.currentMember(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if m.Resolver.HasAnyPermission(r.Context(), memberID, normalized, email) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// RequireAll ensures the current member holds every required permission.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizeKeys(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			memberID, email, ok := m.currentMember(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if m.Resolver.HasAllPermissions(r.Context(), memberID, normalized, email) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// RequireSection ensures the current member may see the given UI section.
func (m Middleware) RequireSection(section string) func(http.Handler) http.Handler {
	section = strings.TrimSpace(strings.ToLower(section))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if section == "" {
				next.ServeHTTP(w, r)
				return
			}
			memberID, email, ok := m.currentMember(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if m.Resolver.SectionAccess(r.Context(), memberID, email).Value(section) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// currentMember maps the session to a member of the active agency. God-mode
// users pass without a membership record; everyone else must be seated in
// the active agency.
func (m Middleware) currentMember(r *http.Request) (uuid.UUID, string, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return uuid.Nil, "", false
	}
	email := strings.TrimSpace(sess.Email())
	if m.Resolver.IsGodMode(email) {
		return uuid.Nil, email, true
	}

	rawUser := strings.TrimSpace(sess.User())
	rawAgency := strings.TrimSpace(sess.Agency())
	if rawUser == "" || rawAgency == "" {
		return uuid.Nil, "", false
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		m.logError("parse session user", slog.String("value", rawUser))
		return uuid.Nil, "", false
	}
	agencyID, err := uuid.Parse(rawAgency)
	if err != nil {
		m.logError("parse session agency", slog.String("value", rawAgency))
		return uuid.Nil, "", false
	}

	member, err := m.Members.GetMemberByUserAndAgency(r.Context(), userID, agencyID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logError("member lookup", slog.Any("error", err))
		}
		return uuid.Nil, "", false
	}
	return member.ID, email, true
}

func (m Middleware) logError(msg string, attrs ...any) {
	if m.Logger != nil {
		m.Logger.Error(msg, attrs...)
	}
}

func normalizeKeys(keys []string) []string {
	unique := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(strings.ToLower(k))
		if k == "" {
			continue
		}
		unique[k] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for k := range unique {
		normalized = append(normalized, k)
	}
	return normalized
}
