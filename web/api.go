// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package web is the JSON HTTP API of the storefront and the admin panel

Public routes serve the catalog views, session routes sign administrators in
and out, and routes under /admin require the admin role. All answers are JSON;
errors carry an ErrorResponse.
*/
package web

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/vitrine/catalog"
	"github.com/relabs-tech/vitrine/core/access"
	"github.com/relabs-tech/vitrine/core/auth"
	"github.com/relabs-tech/vitrine/core/baas"
	"github.com/relabs-tech/vitrine/core/kss"
	"github.com/relabs-tech/vitrine/core/logger"
	"github.com/relabs-tech/vitrine/core/metrics"
)

// Authenticator is the authentication the API needs
type Authenticator interface {
	baas.Authenticator
	SecurityStatus(ctx context.Context, email string) (auth.SecurityStatus, error)
}

// Builder is a builder helper for the API
type Builder struct {
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// Catalog is the product catalog. This is mandatory.
	Catalog *catalog.Service
	// Auth signs administrators in. This is mandatory.
	Auth Authenticator
	// Blobs serves stored images under /blobs/ when images are kept on the
	// local filesystem. This is optional.
	Blobs *kss.LocalFilesystem
	// LoginLimiter throttles sign-in attempts per client address. Defaults
	// to 10 per minute with a burst of 5.
	LoginLimiter *RateLimiter
	// AllowedOrigins for CORS, defaults to all origins
	AllowedOrigins []string
	// SecureCookies marks the session cookie as secure, for HTTPS deployments
	SecureCookies bool
	// TrustProxy takes the client address from X-Forwarded-For and friends
	TrustProxy bool
}

// API is the HTTP API
type API struct {
	router        *mux.Router
	catalog       *catalog.Service
	auth          Authenticator
	loginLimiter  *RateLimiter
	secureCookies bool
	handler       http.Handler
}

// New adds all routes to the router and returns the API
func New(b *Builder) (*API, error) {
	if b.Router == nil {
		return nil, fmt.Errorf("Router is missing")
	}
	if b.Catalog == nil {
		return nil, fmt.Errorf("Catalog is missing")
	}
	if b.Auth == nil {
		return nil, fmt.Errorf("Auth is missing")
	}
	a := &API{
		router:        b.Router,
		catalog:       b.Catalog,
		auth:          b.Auth,
		loginLimiter:  b.LoginLimiter,
		secureCookies: b.SecureCookies,
	}
	if a.loginLimiter == nil {
		a.loginLimiter = NewRateLimiter(10, 5)
	}

	logger.AddRequestID(a.router)
	a.router.Use(metrics.InstrumentHandler)
	a.router.Use(access.NewTokenMiddleware(a.auth))

	a.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	a.handlePublicRoutes()
	a.handleSessionRoutes()
	a.handleAdminRoutes()
	if b.Blobs != nil {
		b.Blobs.HandleRoutes(a.router)
	}

	origins := b.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	var h http.Handler = a.router
	h = handlers.CompressHandler(h)
	h = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Accept", "Content-Type", "Authorization"}),
		handlers.ExposedHeaders([]string{logger.RequestIDHeader}),
		handlers.MaxAge(86400),
	)(h)
	if b.TrustProxy {
		h = handlers.ProxyHeaders(h)
	}
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true), handlers.RecoveryLogger(logger.Default()))(h)
	a.handler = h
	return a, nil
}

// MustNew calls New and panics on error
func MustNew(b *Builder) *API {
	a, err := New(b)
	if err != nil {
		panic(err)
	}
	return a
}

// Handler returns the router wrapped in recovery, CORS and compression
func (a *API) Handler() http.Handler {
	return a.handler
}

// LoggingHandler wraps h with an access log in combined log format
func LoggingHandler(h http.Handler) http.Handler {
	return handlers.CombinedLoggingHandler(os.Stdout, h)
}

// LoginLimiter returns the sign-in rate limiter, so that its idle clients can be cleaned up
func (a *API) LoginLimiter() *RateLimiter {
	return a.loginLimiter
}
