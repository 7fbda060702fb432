// Package devstub implements a local stand-in for the report services
// so the client can be exercised without real backends. It speaks the
// exact wire contract — POST /api/{category}/analyze and
// GET /api/{category}/health (or the single-endpoint variant) — and
// returns canned analysis text seeded per category.
//
// It is development tooling, not a product surface: the "analysis" is
// synthesized, including a leaked <think> block so the client's
// sanitizer path is visible end to end.
package devstub

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/adlens/adlens/internal/category"
)

// Options configure the stub's behavior.
type Options struct {
	// Categories to serve. Empty means all.
	Categories []category.Category

	// APIKeys enables bearer auth when non-empty: analyze requests must
	// carry one of these tokens. Health stays public.
	APIKeys []string

	// FailCategories answer 503 on both endpoints, for exercising the
	// client's degraded and failure paths.
	FailCategories []category.Category

	// SingleEndpoint also mounts /api/analyze and /api/health.
	SingleEndpoint bool

	// Latency, when > 0, delays each analyze response.
	Latency time.Duration
}

// Server is the stub report service.
type Server struct {
	opts Options
	keys map[string]bool
	fail map[category.Category]bool
	rng  *rand.Rand
}

// New creates a stub server from options.
func New(opts Options) *Server {
	if len(opts.Categories) == 0 {
		opts.Categories = category.All()
	}
	s := &Server{
		opts: opts,
		keys: make(map[string]bool),
		fail: make(map[category.Category]bool),
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, k := range opts.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			s.keys[k] = true
		}
	}
	for _, c := range opts.FailCategories {
		s.fail[c] = true
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	for _, cat := range s.opts.Categories {
		cat := cat
		r.Route("/api/"+cat.PathSegment(), func(r chi.Router) {
			r.Get("/health", s.handleHealth(cat))
			r.With(s.requireBearer).Post("/analyze", s.handleAnalyze(cat))
		})
	}

	if s.opts.SingleEndpoint {
		r.Get("/api/health", s.handleHealth(s.opts.Categories[0]))
		r.With(s.requireBearer).Post("/api/analyze", s.handleAnalyze(s.opts.Categories[0]))
	}

	return r
}

func (s *Server) handleHealth(cat category.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.fail[cat] {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"service": "adlens-stub-" + cat.PathSegment(),
		})
	}
}

func (s *Server) handleAnalyze(cat category.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if s.fail[cat] {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error":   "service temporarily unavailable",
			})
			return
		}

		var req struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error":   "invalid JSON body",
			})
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error":   "query must not be empty",
			})
			return
		}

		if s.opts.Latency > 0 {
			time.Sleep(s.opts.Latency)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"success":  true,
			"analysis": s.cannedAnalysis(cat, req.Query),
		})
	}
}

// cannedAnalysis fabricates a plausible report, reasoning leak
// included.
func (s *Server) cannedAnalysis(cat category.Category, query string) string {
	impressions := 50_000 + s.rng.Intn(950_000)
	clicks := impressions / (20 + s.rng.Intn(60))
	conversions := clicks / (10 + s.rng.Intn(30))
	ctr := float64(clicks) / float64(impressions) * 100
	spend := float64(impressions) / 1000 * (2 + s.rng.Float64()*8)
	convRate := float64(conversions) / float64(clicks) * 100

	return fmt.Sprintf(
		"<think>The user asked %q against the %s service; fabricating numbers.</think>"+
			"Performance Overview: The %s shows steady delivery over the requested window.\n\n"+
			"Impressions: %s\nClicks: %s\nConversions: %d\nCTR: %.2f%%\nSpend: $%.2f\nConversion Rate: %.2f%%\n\n"+
			"Recommendations: Consider reallocating budget toward the top performing segments.",
		query, cat.PathSegment(), cat.Info().Label,
		groupDigits(impressions), groupDigits(clicks), conversions, ctr, spend, convRate,
	)
}

// groupDigits renders n with comma thousands separators, matching the
// formatting the metric extractor expects from real services.
func groupDigits(n int) string {
	raw := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, r := range raw {
		if i > 0 && (len(raw)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// requireBearer enforces bearer auth when keys are configured,
// comparing in constant time.
func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.keys) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token == "" {
			respondUnauthorized(w, "Bearer token required.")
			return
		}

		for key := range s.keys {
			if subtle.ConstantTimeCompare([]byte(token), []byte(key)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
		}
		respondUnauthorized(w, "Invalid bearer token.")
	})
}

func respondUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="adlens-stub"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   msg,
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestLogger is structured request logging middleware.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		event := log.Info()
		if rw.statusCode >= 400 {
			event = log.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
