package handlers

import (
	"context"
	"net/http"
	"time"

	"luminexus/internal/logger"
	"luminexus/internal/security"
	"luminexus/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const PlayerContextKey ContextKey = "player_id"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	players  *service.PlayerService
	limiter  *security.RateLimiter
	clientIP *security.ClientIPResolver
	log      *logger.Logger
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(players *service.PlayerService, limiter *security.RateLimiter, clientIP *security.ClientIPResolver, log *logger.Logger) *Middleware {
	return &Middleware{players: players, limiter: limiter, clientIP: clientIP, log: log}
}

// RequirePlayer rejects requests without a valid bearer token and puts
// the player id in the request context
func (m *Middleware) RequirePlayer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := security.BearerToken(r.Header.Get("Authorization"))
		playerID, err := m.players.Authenticate(token)
		if err != nil {
			m.log.Debug("Rejected player token", "path", r.URL.Path, "error", err)
			respondWithError(w, m.log, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), PlayerContextKey, playerID)
		next(w, r.WithContext(ctx))
	}
}

// RateLimit limits requests per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := m.clientIP.ClientIP(r)
		if !m.limiter.Allow(ip) {
			m.log.Warn("Rate limit exceeded", "ip", ip, "path", r.URL.Path)
			respondWithError(w, m.log, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}
		next(w, r)
	}
}

// PlayerIDFromContext returns the authenticated player id
func PlayerIDFromContext(ctx context.Context) string {
	playerID, _ := ctx.Value(PlayerContextKey).(string)
	return playerID
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging logs every request with its status and duration
func Logging(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// Recover turns handler panics into 500 responses
func Recover(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				log.Error("Handler panic", "path", r.URL.Path, "panic", p)
				respondWithError(w, log, http.StatusInternalServerError, ErrInternalServerError, "", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
