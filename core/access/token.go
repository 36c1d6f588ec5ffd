package access

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/vitrine/core/logger"
)

// SessionCookie is the name of the cookie which may carry the session token
// instead of the Authorization header.
const SessionCookie = "Vitrine-Session"

// TokenVerifier turns a session token into an authorization
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Authorization, error)
}

// TokenFromRequest returns the session token of the request, either from a
// "Authorization: Bearer" header or from the session cookie. It returns an
// empty string if there is no token.
func TokenFromRequest(r *http.Request) string {
	bearer := r.Header.Get("Authorization")
	if len(bearer) > 0 && bearer != "null" {
		if len(bearer) >= 8 && strings.ToLower(bearer[:7]) == "bearer " {
			return bearer[7:]
		}
		return bearer
	}
	if cookie, _ := r.Cookie(SessionCookie); cookie != nil {
		return cookie.Value
	}
	return ""
}

// NewTokenMiddleware returns a middleware handler to validate session tokens.
//
// Requests without a token pass through unauthenticated, and so do requests
// whose token does not verify (expired, revoked or signed with a rotated
// secret). Such clients can still browse, sign in again or sign out;
// RequireRole keeps them out of protected routes.
func NewTokenMiddleware(verifier TokenVerifier) mux.MiddlewareFunc {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if AuthorizationFromContext(r.Context()) != nil {
				h.ServeHTTP(w, r)
				return
			}
			tokenString := TokenFromRequest(r)
			if tokenString == "" {
				h.ServeHTTP(w, r)
				return
			}
			rlog := logger.FromContext(r.Context())
			auth, err := verifier.Verify(r.Context(), tokenString)
			if err != nil {
				rlog.WithError(err).Debugln("ignoring session token")
				h.ServeHTTP(w, r)
				return
			}
			ctx, _ := logger.ContextWithLoggerIdentity(r.Context(), auth.Identity)
			ctx = auth.ContextWithAuthorization(ctx)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
