/*
Package access provides utilities for access control

An Authorization is added to the request context by the token middleware, based on
the session token in the request, and checked by handlers with HasRole.
*/
package access

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/vitrine/core/logger"
)

// contextKey is the type for context keys. Go linter does not like plain strings
type contextKey string

// the predefined context key
const (
	contextKeyAuthorization contextKey = "_authorization_"
)

// RoleAdmin is the role of catalog administrators
const RoleAdmin = "admin"

/*
Authorization is a context object which stores authorization information
for a signed in user.

Authorizations are added to a request context with

	ctx = auth.ContextWithAuthorization(ctx)

and retrieved with

	auth := AuthorizationFromContext(ctx)
*/
type Authorization struct {
	Identity   string            `json:"identity"`
	Roles      []string          `json:"roles"`
	Properties map[string]string `json:"properties,omitempty"`
}

// HasRole returns true if the authorization contains the requested role;
// otherwise it returns false.
func (a *Authorization) HasRole(role string) bool {
	if a == nil {
		return false
	}
	for _, hasRole := range a.Roles {
		if role == hasRole {
			return true
		}
	}
	return false
}

// Property returns the value for the requested property; if the
// property does not exist, it returns an empty string and false.
func (a *Authorization) Property(name string) (string, bool) {
	if a == nil || a.Properties == nil {
		return "", false
	}
	value, ok := a.Properties[name]
	return value, ok
}

// ContextWithAuthorization returns a new context with this authorization added to it
func (a *Authorization) ContextWithAuthorization(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKeyAuthorization, a)
}

// AuthorizationFromContext retrieves an authorization from the context
func AuthorizationFromContext(ctx context.Context) *Authorization {
	a, ok := ctx.Value(contextKeyAuthorization).(*Authorization)
	if ok {
		return a
	}
	return nil
}

// RequireRole returns a middleware which only lets requests pass whose authorization
// carries the role. Requests without any authorization get http.StatusUnauthorized,
// authorized requests without the role get http.StatusForbidden.
func RequireRole(role string) mux.MiddlewareFunc {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := AuthorizationFromContext(r.Context())
			if auth == nil {
				http.Error(w, "not authenticated", http.StatusUnauthorized)
				return
			}
			if !auth.HasRole(role) {
				logger.FromContext(r.Context()).Warnf("%s lacks role %s for %s %s", auth.Identity, role, r.Method, r.URL.Path)
				http.Error(w, "not authorized", http.StatusForbidden)
				return
			}
			h.ServeHTTP(w, r)
		})
	}
}

// HandleAuthorizationRoute adds a route /authorization GET to the router
//
// The route returns the current authorization for provided session token.
func HandleAuthorizationRoute(router *mux.Router) {
	logger.Default().Debugln("authorization")
	logger.Default().Debugln("  handle route: /authorization GET")
	router.HandleFunc("/authorization", func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Infoln("called route for", r.URL, r.Method)
		auth := AuthorizationFromContext(r.Context())
		if auth == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		jsonData, _ := json.MarshalIndent(auth, "", " ")
		w.Header().Set("Content-Type", "application/json")
		w.Write(jsonData)
	}).Methods(http.MethodGet)
}
