package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/wonny/fibivi/internal/api/handlers"
	"github.com/wonny/fibivi/pkg/config"
	"github.com/wonny/fibivi/pkg/logger"
)

// RequestIDHeader carries the per-request ID in both directions
const RequestIDHeader = "X-Request-ID"

// Handlers groups the endpoint handlers the router mounts
type Handlers struct {
	Health  *handlers.HealthHandler
	Views   *handlers.ViewHandler
	Palette *handlers.PaletteHandler
	Stream  *handlers.StreamHandler
	Jobs    *handlers.JobsHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, cfg config.APIConfig, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", h.Health.Get).Methods("GET")

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// View endpoints
	api.HandleFunc("/views", h.Views.List).Methods("GET")
	api.HandleFunc("/views/{view}", h.Views.Render).Methods("POST")

	// Palette endpoints
	api.HandleFunc("/palette", h.Palette.Get).Methods("GET")

	// Job endpoints
	if h.Jobs != nil {
		api.HandleFunc("/jobs", h.Jobs.List).Methods("GET")
		api.HandleFunc("/jobs/{job}/history", h.Jobs.History).Methods("GET")
		api.HandleFunc("/jobs/{job}/run", h.Jobs.Run).Methods("POST")
	}

	// WebSocket
	if h.Stream != nil {
		r.HandleFunc("/ws/sleep", h.Stream.Serve).Methods("GET")
	}

	// Apply middleware
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(cfg.AllowedOrigins),
		gorillahandlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", RequestIDHeader}),
		gorillahandlers.ExposedHeaders([]string{RequestIDHeader}),
	)(r)
}

// requestIDMiddleware echoes or assigns X-Request-ID
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Call next handler
			next.ServeHTTP(w, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"request_id": r.Header.Get(RequestIDHeader),
				"duration":   time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error":      err,
						"path":       r.URL.Path,
						"request_id": r.Header.Get(RequestIDHeader),
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
