// Package api serves city generation over HTTP.
// GET endpoints and generation POSTs are public.
// The import endpoint requires the admin bearer token.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/cors"

	"github.com/talgya/metro/internal/cache"
	"github.com/talgya/metro/internal/city"
	"github.com/talgya/metro/internal/entropy"
	"github.com/talgya/metro/internal/persistence"
	"github.com/talgya/metro/internal/temporal"
)

const (
	maxRequestBody = 1 << 20
	maxImportBody  = 32 << 20
	defaultListLen = 50
	maxListLen     = 500
)

// Defaults fill request fields the client left out.
type Defaults struct {
	Seed       uint32
	YearStep   int
	TotalYears int
	Workers    int
}

// Server serves generated cities and timelines over HTTP.
type Server struct {
	DB          *persistence.DB // nil disables storage endpoints
	Cache       cache.Store     // nil disables response caching
	CacheTTL    time.Duration
	AdminKey    string // bearer token for admin endpoints; empty disables them
	Eras        temporal.EraTable
	Defaults    Defaults
	CORSOrigins []string
	RateLimit   RateLimitConfig

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	limiter *RateLimiter
}

// Handler builds the routed handler with CORS and rate limiting applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/eras", s.handleEras)
	mux.HandleFunc("GET /api/v1/seed-tree/{seed}", s.handleSeedTree)

	mux.HandleFunc("POST /api/v1/simulate-city", s.handleSimulateCity)
	mux.HandleFunc("POST /api/v1/timeline", s.handleTimeline)
	mux.HandleFunc("GET /api/v1/timeline/frame", s.handleFrame)

	mux.HandleFunc("GET /api/v1/cities", s.handleCities)
	mux.HandleFunc("GET /api/v1/cities/{id}", s.handleCity)
	mux.HandleFunc("GET /api/v1/timelines/{id}", s.handleStoredTimeline)
	mux.HandleFunc("GET /api/v1/runs", s.handleRuns)

	// Admin endpoints.
	mux.HandleFunc("POST /api/v1/cities/import", s.adminOnly(s.handleImport))

	if s.limiter == nil {
		s.limiter = NewRateLimiter(s.RateLimit)
	}

	origins := s.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.limiter.Middleware(mux))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
	}
	defer s.limiter.Close()

	slog.Info("HTTP API starting",
		"addr", addr,
		"admin_auth", s.AdminKey != "",
		"storage", s.DB != nil,
		"rate_limit", s.RateLimit.Enabled,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("HTTP API shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(s.AdminKey)) == 1
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			writeError(w, r, &apiError{status: http.StatusForbidden, kind: "forbidden", msg: "admin endpoints disabled (no METRO_ADMIN_KEY set)"})
			return
		}
		if !s.checkBearerToken(r) {
			writeError(w, r, &apiError{status: http.StatusUnauthorized, kind: "unauthorized", msg: "unauthorized"})
			return
		}
		next(w, r)
	}
}

func (s *Server) eras() temporal.EraTable {
	if s.Eras == nil {
		return temporal.DefaultEras()
	}
	return s.Eras
}

func (s *Server) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if s.Cache == nil {
		return nil, false
	}
	data, ok, err := s.Cache.Get(ctx, key)
	if err != nil {
		slog.Warn("cache read failed", "key", key, "error", err)
		return nil, false
	}
	return data, ok
}

func (s *Server) cacheSet(ctx context.Context, key string, data []byte) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Set(ctx, key, data, s.CacheTTL); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err)
	}
}

// recordRun logs a generation run. Storage failures do not fail the request.
func (s *Server) recordRun(kind, target string, seed uint32, took time.Duration) {
	if s.DB == nil {
		return
	}
	if err := s.DB.RecordRun(persistence.NewRun(kind, target, seed, took)); err != nil {
		slog.Warn("failed to record run", "kind", kind, "target", target, "error", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &city.InvalidParameterError{Field: name, Value: v, Reason: "must be an integer"}
	}
	return n, nil
}

func listLimit(r *http.Request) (int, error) {
	n, err := queryInt(r, "limit", defaultListLen)
	if err != nil {
		return 0, err
	}
	return min(max(n, 1), maxListLen), nil
}

func (s *Server) requireDB() error {
	if s.DB == nil {
		return &apiError{status: http.StatusServiceUnavailable, kind: "unavailable", msg: "storage is not configured"}
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cacheKind := "none"
	switch s.Cache.(type) {
	case *cache.Memory:
		cacheKind = "memory"
	case *cache.Redis:
		cacheKind = "redis"
	}
	body := map[string]any{
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"storage": s.DB != nil,
		"cache":   cacheKind,
	}
	if s.DB != nil {
		if started, err := s.DB.GetMeta("last_start"); err == nil {
			body["last_start"] = started
		}
	}
	writeJSON(w, body)
}

func (s *Server) handleEras(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.eras())
}

func (s *Server) handleSeedTree(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("seed")
	seed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		writeError(w, r, &city.InvalidParameterError{Field: "seed", Value: raw, Reason: "must be an unsigned 32-bit integer"})
		return
	}
	writeJSON(w, entropy.StandardTree(uint32(seed)))
}
