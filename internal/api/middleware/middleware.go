// Copyright (c) 2025, the torc contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package middleware bundles the HTTP middleware used by the API server.
package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RequestID tags every request with a unique ID for log correlation.
func RequestID(next http.Handler) http.Handler {
	return chimiddleware.RequestID(next)
}

// RealIP resolves the client address from proxy headers.
func RealIP(next http.Handler) http.Handler {
	return chimiddleware.RealIP(next)
}

// Recoverer turns handler panics into 500 responses instead of dropped
// connections.
func Recoverer(next http.Handler) http.Handler {
	return chimiddleware.Recoverer(next)
}

// Logger emits one debug line per request on the given logger.
func Logger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Debug().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("elapsed", time.Since(start)).
					Str("requestID", chimiddleware.GetReqID(r.Context())).
					Msg("API request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
