package permissions

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridian-crm/meridian-crm/internal/shared"
)

func okHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func requestWithSession(m Member) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess := &shared.Session{}
	sess.SetUser(m.UserID.String(), m.Email)
	sess.SetAgency(m.AgencyID.String())
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestRequireAnyAllowsGrantedMember(t *testing.T) {
	s := newStubStores()
	m := s.addMember(MemberTypeSeated, "rep@agency.test")
	s.roles[m.ID] = []RoleGrant{grant(map[string]bool{PermLeadsView: true})}
	r, _ := newTestResolver(s)
	mw := Middleware{Resolver: r, Members: s}

	next, called := okHandler()
	rec := httptest.NewRecorder()
	mw.RequireAny(PermLeadsView, PermLeadsEdit)(next).ServeHTTP(rec, requestWithSession(m))

	assert.True(t, *called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAnyRejectsWithoutPermission(t *testing.T) {
	s := newStubStores()
	m := s.addMember(MemberTypeSeated, "rep@agency.test")
	r, _ := newTestResolver(s)
	mw := Middleware{Resolver: r, Members: s}

	next, called := okHandler()
	rec := httptest.NewRecorder()
	mw.RequireAny(PermRolesManage)(next).ServeHTTP(rec, requestWithSession(m))

	assert.False(t, *called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAnyRejectsWithoutSession(t *testing.T) {
	s := newStubStores()
	r, _ := newTestResolver(s)
	mw := Middleware{Resolver: r, Members: s}

	next, called := okHandler()
	rec := httptest.NewRecorder()
	mw.RequireAny(PermLeadsView)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.False(t, *called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAllNeedsEveryPermission(t *testing.T) {
	s := newStubStores()
	m := s.addMember(MemberTypeSeated, "rep@agency.test")
	s.roles[m.ID] = []RoleGrant{grant(map[string]bool{PermLeadsView: true, PermLeadsEdit: false})}
	r, _ := newTestResolver(s)
	mw := Middleware{Resolver: r, Members: s}

	next, called := okHandler()
	rec := httptest.NewRecorder()
	mw.RequireAll(PermLeadsView, PermLeadsEdit)(next).ServeHTTP(rec, requestWithSession(m))

	assert.False(t, *called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGodModePassesWithoutMembership(t *testing.T) {
	s := newStubStores()
	r, _ := newTestResolver(s, "root@example.com")
	mw := Middleware{Resolver: r, Members: s}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess := &shared.Session{}
	sess.SetUser("not-a-uuid", "root@example.com")
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	next, called := okHandler()
	rec := httptest.NewRecorder()
	mw.RequireAll(PermBillingManage)(next).ServeHTTP(rec, req)

	assert.True(t, *called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireSection(t *testing.T) {
	s := newStubStores()
	m := s.addMember(MemberTypeSeated, "rep@agency.test")
	s.roles[m.ID] = []RoleGrant{{ID: m.ID, SectionAccess: SectionSet{SectionLeads: true}}}
	r, _ := newTestResolver(s)
	mw := Middleware{Resolver: r, Members: s}

	next, called := okHandler()
	rec := httptest.NewRecorder()
	mw.RequireSection(SectionLeads)(next).ServeHTTP(rec, requestWithSession(m))
	assert.True(t, *called)

	next2, called2 := okHandler()
	rec2 := httptest.NewRecorder()
	mw.RequireSection(SectionSettings)(next2).ServeHTTP(rec2, requestWithSession(m))
	assert.False(t, *called2)
	assert.Equal(t, http.StatusForbidden, rec2.Code)
}
