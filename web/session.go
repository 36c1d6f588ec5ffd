package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/vitrine/core/access"
	"github.com/relabs-tech/vitrine/core/auth"
	"github.com/relabs-tech/vitrine/core/baas"
	"github.com/relabs-tech/vitrine/core/logger"
	"github.com/relabs-tech/vitrine/core/metrics"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionInfo is the answer of GET /session
type SessionInfo struct {
	Authorization *access.Authorization `json:"authorization"`
	Security      auth.SecurityStatus   `json:"security"`
}

func (a *API) handleSessionRoutes() {
	rlog := logger.Default()
	rlog.Debugln("session")

	access.HandleAuthorizationRoute(a.router)

	rlog.Debugln("  handle route: /session POST")
	a.router.Handle("/session", a.loginLimiter.Handler(http.HandlerFunc(a.signIn))).Methods(http.MethodPost)

	rlog.Debugln("  handle route: /session DELETE")
	a.router.HandleFunc("/session", a.signOut).Methods(http.MethodDelete)

	rlog.Debugln("  handle route: /session GET")
	a.router.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		authorization := access.AuthorizationFromContext(r.Context())
		if authorization == nil {
			writeErrorMessage(w, http.StatusUnauthorized, "Sessão expirada. Entre novamente.")
			return
		}
		info := SessionInfo{Authorization: authorization}
		if email, ok := authorization.Property("email"); ok {
			status, err := a.auth.SecurityStatus(r.Context(), email)
			if err != nil {
				writeError(w, r, err, "Usuário não encontrado.")
				return
			}
			info.Security = status
		}
		writeJSON(w, http.StatusOK, info)
	}).Methods(http.MethodGet)

	rlog.Debugln("  handle route: /password-strength POST")
	a.router.HandleFunc("/password-strength", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Password string `json:"password"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&body); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "Requisição inválida")
			return
		}
		writeJSON(w, http.StatusOK, auth.CheckPassword(body.Password))
	}).Methods(http.MethodPost)
}

func (a *API) signIn(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&c); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Requisição inválida")
		return
	}
	session, err := a.auth.SignIn(r.Context(), c.Email, c.Password)
	if err != nil {
		switch {
		case errors.Is(err, baas.ErrLocked):
			metrics.RecordSignIn("locked")
		case errors.Is(err, auth.ErrWeakPassword):
			metrics.RecordSignIn("rejected")
		default:
			metrics.RecordSignIn("failed")
		}
		writeError(w, r, err, "Usuário não encontrado.")
		return
	}
	metrics.RecordSignIn("ok")
	http.SetCookie(w, &http.Cookie{
		Name:     access.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusCreated, session)
}

func (a *API) signOut(w http.ResponseWriter, r *http.Request) {
	// a token that no longer verifies has nothing left to revoke, the cookie
	// is cleared regardless
	if token := access.TokenFromRequest(r); token != "" {
		if err := a.auth.SignOut(r.Context(), token); err != nil {
			logger.FromContext(r.Context()).WithError(err).Debugln("sign out without a valid session")
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     access.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
