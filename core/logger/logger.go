// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package logger

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type contextLoggerValues struct {
	RequestID string `json:"requestID"`
	Identity  string `json:"identity"`
}

// Type for the context keys
type contextKeyRequestLoggerType struct{}

var contextKeyRequestLogger = &contextKeyRequestLoggerType{}

const (
	requestIDLoggerKey string = "requestID"
	identityLoggerKey  string = "identity"

	// RequestIDHeader is the response header which carries the request ID
	RequestIDHeader = "X-Request-Id"
)

// InitLogger sets up the custom time formatter for all log statements.
func InitLogger(logLevel logrus.Level) {
	customFormatter := new(logrus.TextFormatter)
	customFormatter.TimestampFormat = "2006-01-02 15:04:05"
	customFormatter.FullTimestamp = true
	logrus.SetFormatter(customFormatter)
	logrus.SetLevel(logLevel)
}

// AddRequestID adds a logger with a new request ID to every request that does not
// carry one yet. The request ID is echoed in the X-Request-Id response header.
func AddRequestID(router *mux.Router) {
	reqID := func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, _ := ContextWithLogger(r.Context())
			w.Header().Set(RequestIDHeader, RequestIDFromContext(ctx))
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
	router.Use(reqID)
}

// Default returns a logger without a request ID.
func Default() *logrus.Entry {
	return logrus.NewEntry(logrus.StandardLogger())
}

// ContextWithLogger returns a new context with a logger if the given context has no logger yet. If
// the context already has a logger the given context will be returned.
func ContextWithLogger(ctx context.Context) (context.Context, *logrus.Entry) {
	if ctx == nil {
		ctx = context.Background()
	} else if rlog := loggerFromContext(ctx); rlog != nil {
		return ctx, rlog
	}
	id, _ := uuid.NewUUID()
	rlog := logrus.WithField(requestIDLoggerKey, id.String())
	return context.WithValue(ctx, contextKeyRequestLogger, rlog), rlog
}

// ContextWithLoggerFromData returns a context with a logger. If the context does not have a logger yet,
// the logger is constructed from the provided data, as produced by SerializeLoggerContext. This
// is how change notifications keep the request ID of the request that caused them.
func ContextWithLoggerFromData(ctx context.Context, data []byte) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if loggerFromContext(ctx) != nil {
		return ctx
	}

	var ctxValues contextLoggerValues
	if err := json.Unmarshal(data, &ctxValues); err != nil || ctxValues.RequestID == "" {
		ctx, _ = ContextWithLogger(ctx)
		return ctx
	}
	rlog := logrus.WithField(requestIDLoggerKey, ctxValues.RequestID)
	if ctxValues.Identity != "" {
		rlog = rlog.WithField(identityLoggerKey, ctxValues.Identity)
	}
	return context.WithValue(ctx, contextKeyRequestLogger, rlog)
}

func loggerFromContext(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return nil
	}
	rlog, ok := ctx.Value(contextKeyRequestLogger).(*logrus.Entry)
	if !ok {
		return nil
	}
	return rlog
}

// FromContext returns the logger from the context. If the context does not have a logger
// the default logger is returned.
func FromContext(ctx context.Context) *logrus.Entry {
	if rlog := loggerFromContext(ctx); rlog != nil {
		return rlog
	}
	return Default()
}

// ContextWithLoggerIdentity returns a new context with a logger and identity.
func ContextWithLoggerIdentity(ctx context.Context, identity string) (context.Context, *logrus.Entry) {
	ctx, rlog := ContextWithLogger(ctx)
	rlog = rlog.WithField(identityLoggerKey, identity)
	return context.WithValue(ctx, contextKeyRequestLogger, rlog), rlog
}

// SerializeLoggerContext extracts the logger from the context and returns a json
// representation of the relevant parameters.
func SerializeLoggerContext(ctx context.Context) []byte {
	ctxValues := loggerValues(ctx)
	if ctxValues.RequestID == "" {
		return []byte("{}")
	}
	res, err := json.Marshal(ctxValues)
	if err != nil {
		return []byte("{}")
	}
	return res
}

// RequestIDFromContext returns the request id for the given context.
func RequestIDFromContext(ctx context.Context) string {
	return loggerValues(ctx).RequestID
}

func loggerValues(ctx context.Context) contextLoggerValues {
	var ctxValues contextLoggerValues
	rlog := loggerFromContext(ctx)
	if rlog == nil {
		return ctxValues
	}
	if s, ok := rlog.Data[requestIDLoggerKey].(string); ok {
		ctxValues.RequestID = s
	}
	if s, ok := rlog.Data[identityLoggerKey].(string); ok {
		ctxValues.Identity = s
	}
	return ctxValues
}
