package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lukman83/gunpla-scrap/internal/models"
	"github.com/lukman83/gunpla-scrap/internal/scraper"
)

// Searcher starts background searches.
type Searcher interface {
	RunSearchAsync(ctx context.Context, term string, opts scraper.Options, done func(*scraper.Run, error)) error
}

// RunReader reads persisted runs.
type RunReader interface {
	GetRun(ctx context.Context, id int64) (*models.SearchRun, *models.ResultSet, error)
	ListRecentRuns(ctx context.Context, limit int) ([]models.SearchRun, error)
}

// OptionsFunc maps the request's fast / long-timeout switches to run options.
type OptionsFunc func(fast, longTimeout bool) scraper.Options

// Deps wires the router.
type Deps struct {
	Searcher Searcher
	Runs     RunReader
	Options  OptionsFunc
	Logger   *zap.Logger

	// RatePerSecond and RateBurst throttle POST /api/searches. A zero rate
	// disables throttling.
	RatePerSecond float64
	RateBurst     int
	// APIKey, when set, requires "Authorization: Bearer <key>" on /api and /mcp.
	APIKey string
	// MCP is mounted at /mcp when non-nil.
	MCP http.Handler
}

type handler struct {
	searcher Searcher
	runs     RunReader
	options  OptionsFunc
	log      *zap.Logger
}

// NewRouter builds the HTTP handler for the REST API.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Options == nil {
		d.Options = func(bool, bool) scraper.Options { return scraper.Options{} }
	}
	h := &handler{searcher: d.Searcher, runs: d.Runs, options: d.Options, log: d.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(d.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		if d.APIKey != "" {
			r.Use(bearerAuth(d.APIKey))
		}
		r.Get("/searches", h.listSearches)
		r.Get("/searches/{id}", h.getSearch)
		r.With(throttle(d.RatePerSecond, d.RateBurst)).Post("/searches", h.startSearch)
	})

	if d.MCP != nil {
		mcpHandler := d.MCP
		if d.APIKey != "" {
			mcpHandler = bearerAuth(d.APIKey)(mcpHandler)
		}
		r.Handle("/mcp", mcpHandler)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func bearerAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="gunpla"`)
				writeError(w, http.StatusUnauthorized, "missing Authorization header")
				return
			}
			token, found := strings.CutPrefix(auth, "Bearer ")
			if !found || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="gunpla", error="invalid_token"`)
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// throttle rejects requests beyond the token bucket with 429.
func throttle(perSecond float64, burst int) func(http.Handler) http.Handler {
	if perSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "too many search requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
