package handlers

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/wonny/fibivi/internal/palette"
	"github.com/wonny/fibivi/pkg/config"
	"github.com/wonny/fibivi/pkg/logger"
	"github.com/wonny/fibivi/pkg/redis"
)

// DefaultPaletteCount matches the command-line client default
const DefaultPaletteCount = 5

// PaletteResponse is the body of GET /api/palette
type PaletteResponse struct {
	Colors     []string `json:"colors"`
	Randomized bool     `json:"randomized"`
	Reason     string   `json:"reason,omitempty"`
}

// PaletteHandler proxies palette requests for the browser
type PaletteHandler struct {
	resolver *palette.Resolver
	limiter  *redis.RateLimiter
	limit    int
	window   time.Duration
	maxCount int
	logger   *logger.Logger
}

// NewPaletteHandler creates a new palette handler. limiter may be nil.
func NewPaletteHandler(resolver *palette.Resolver, limiter *redis.RateLimiter, cfg *config.Config, log *logger.Logger) *PaletteHandler {
	return &PaletteHandler{
		resolver: resolver,
		limiter:  limiter,
		limit:    cfg.API.PaletteRateLimit,
		window:   cfg.API.PaletteRateWindow,
		maxCount: cfg.Palette.MaxCount,
		logger:   log,
	}
}

// Get returns count random colors, or randomized=false with the reason
// GET /api/palette?count=N
func (h *PaletteHandler) Get(w http.ResponseWriter, r *http.Request) {
	count := DefaultPaletteCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "count must be a non-negative integer")
			return
		}
		if h.maxCount > 0 && n > h.maxCount {
			respondError(w, http.StatusBadRequest, "count exceeds limit "+strconv.Itoa(h.maxCount))
			return
		}
		count = n
	}

	if h.limiter != nil {
		allowed, _, err := h.limiter.Allow(r.Context(), redis.PaletteRateLimit(clientHost(r), h.limit, h.window))
		if err != nil {
			// Redis 장애 시 허용 (fail open)
			h.logger.WithError(err).Warn("Rate limit check failed")
		} else if !allowed {
			respondError(w, http.StatusTooManyRequests, "Too many palette requests")
			return
		}
	}

	if count == 0 {
		// 0개 요청은 항상 성공
		respondJSON(w, http.StatusOK, PaletteResponse{Colors: []string{}, Randomized: true})
		return
	}

	sel := h.resolver.Resolve(r.Context(), count, true)

	resp := PaletteResponse{
		Colors:     sel.Colors.Strings(),
		Randomized: sel.Randomized,
		Reason:     sel.Reason,
	}
	respondJSON(w, http.StatusOK, resp)
}

func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
