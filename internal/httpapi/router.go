// Package httpapi exposes the three public endpoints (/config, /search,
// /count) over chi, translating query parameters into the core
// packages' request types and core errors into the external HTTP error
// envelope.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the chi router: request logging, permissive CORS
// (the catalogue is public, read-only data), and the three endpoints.
func NewRouter(api *API, logger *logrus.Logger) http.Handler {
	httpLogger := httplog.NewLogger("karps", httplog.Options{JSON: true})

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(httplog.RequestLogger(httpLogger))
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/config", api.handleConfig)
	r.Get("/search", api.handleSearch)
	r.Get("/count", api.handleCount)

	return r
}

// requestIDMiddleware stamps every response with a random correlation ID
// in the X-Request-Id header. The ID is not stored in the request
// context, so the access log does not record it.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
