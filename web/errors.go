package web

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/vitrine/catalog"
	"github.com/relabs-tech/vitrine/core/auth"
	"github.com/relabs-tech/vitrine/core/baas"
	"github.com/relabs-tech/vitrine/core/logger"
	"github.com/relabs-tech/vitrine/core/schema"
)

// ErrorResponse is the body of every error answer. Error is meant for the
// user; Errors lists individual problems, e.g. of a product form.
type ErrorResponse struct {
	Error        string   `json:"error"`
	Errors       []string `json:"errors,omitempty"`
	AttemptsLeft *int     `json:"attempts_left,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		logger.Default().WithError(err).Errorf("Error 4001: cannot marshal response")
		http.Error(w, "Error 4001", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeErrorMessage(w http.ResponseWriter, status int, message string, details ...string) {
	writeJSON(w, status, ErrorResponse{Error: message, Errors: details})
}

// writeError maps err to a status code and writes it. notFound is the
// message for baas.ErrNotFound.
func writeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var validationErr *catalog.ValidationError
	var schemaErr *schema.Error
	var loginErr *auth.LoginError
	switch {
	case errors.As(err, &validationErr):
		writeErrorMessage(w, http.StatusBadRequest, "Verifique os dados informados", validationErr.Messages...)
	case errors.As(err, &schemaErr):
		writeErrorMessage(w, http.StatusBadRequest, "Documento inválido", schemaErr.Violations...)
	case errors.As(err, &loginErr):
		response := ErrorResponse{Error: loginErr.Message}
		if loginErr.AttemptsLeft > 0 {
			attempts := loginErr.AttemptsLeft
			response.AttemptsLeft = &attempts
		}
		writeJSON(w, loginStatus(loginErr), response)
	case errors.Is(err, baas.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, notFound)
	case errors.Is(err, baas.ErrUnauthorized):
		writeErrorMessage(w, http.StatusUnauthorized, "Sessão inválida")
	case errors.Is(err, baas.ErrLocked):
		writeErrorMessage(w, http.StatusLocked, "Conta bloqueada")
	default:
		logger.FromContext(r.Context()).WithError(err).Errorf("Error 4002: %s %s", r.Method, r.URL.Path)
		writeErrorMessage(w, http.StatusInternalServerError, "Ocorreu um erro. Tente novamente.")
	}
}

func loginStatus(err *auth.LoginError) int {
	switch {
	case errors.Is(err, baas.ErrLocked):
		return http.StatusLocked
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidEmail):
		return http.StatusBadRequest
	default:
		return http.StatusUnauthorized
	}
}
