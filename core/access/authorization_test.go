package access

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verifier map[string]*Authorization

func (v verifier) Verify(_ context.Context, token string) (*Authorization, error) {
	if auth, ok := v[token]; ok {
		return auth, nil
	}
	return nil, errors.New("unknown token")
}

func TestAuthorization_HasRole(t *testing.T) {
	auth := &Authorization{Identity: "ana", Roles: []string{RoleAdmin}}
	assert.True(t, auth.HasRole(RoleAdmin))
	assert.False(t, auth.HasRole("editor"))

	var none *Authorization
	assert.False(t, none.HasRole(RoleAdmin))
}

func TestAuthorization_Property(t *testing.T) {
	auth := &Authorization{Properties: map[string]string{"email": "ana@ceconi3d.com.br"}}
	value, ok := auth.Property("email")
	assert.True(t, ok)
	assert.Equal(t, "ana@ceconi3d.com.br", value)

	_, ok = auth.Property("phone")
	assert.False(t, ok)

	var none *Authorization
	_, ok = none.Property("email")
	assert.False(t, ok)
}

func TestAuthorization_Context(t *testing.T) {
	assert.Nil(t, AuthorizationFromContext(context.Background()))
	auth := &Authorization{Identity: "ana"}
	assert.Same(t, auth, AuthorizationFromContext(auth.ContextWithAuthorization(context.Background())))
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", TokenFromRequest(r))

	r.Header.Set("Authorization", "null")
	assert.Equal(t, "", TokenFromRequest(r))

	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "from-cookie"})
	assert.Equal(t, "from-cookie", TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", TokenFromRequest(r))

	r.Header.Set("Authorization", "plain")
	assert.Equal(t, "plain", TokenFromRequest(r))
}

func newTestRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(NewTokenMiddleware(verifier{
		"admin-token":  {Identity: "ana", Roles: []string{RoleAdmin}},
		"viewer-token": {Identity: "bia"},
	}))
	HandleAuthorizationRoute(router)
	router.HandleFunc("/public", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(RequireRole(RoleAdmin))
	admin.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return router
}

func serve(router http.Handler, path, token string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)
	return rec
}

func TestRequireRole(t *testing.T) {
	router := newTestRouter()
	assert.Equal(t, http.StatusUnauthorized, serve(router, "/admin/ping", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "/admin/ping", "expired").Code)
	assert.Equal(t, http.StatusForbidden, serve(router, "/admin/ping", "viewer-token").Code)
	assert.Equal(t, http.StatusNoContent, serve(router, "/admin/ping", "admin-token").Code)
}

func TestHandleAuthorizationRoute(t *testing.T) {
	router := newTestRouter()
	assert.Equal(t, http.StatusNoContent, serve(router, "/authorization", "").Code)

	rec := serve(router, "/authorization", "admin-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"identity":"ana","roles":["admin"]}`, rec.Body.String())
}

func TestUnverifiedTokenPassesUnauthenticated(t *testing.T) {
	router := newTestRouter()
	assert.Equal(t, http.StatusOK, serve(router, "/public", "stale").Code)
	assert.Equal(t, http.StatusNoContent, serve(router, "/authorization", "stale").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "/admin/ping", "stale").Code)
}
