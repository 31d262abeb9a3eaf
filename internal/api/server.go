// Package api exposes the lead hub over HTTP: public listings, gated
// detail views, quota status, notifications, and admin enrichment controls.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/contractlink/contract-hub/internal/gate"
	"github.com/contractlink/contract-hub/internal/model"
	"github.com/contractlink/contract-hub/internal/store"
)

// Runner triggers enrichment batches.
type Runner interface {
	Run(ctx context.Context, trigger model.RunTrigger, batchSize int) (*model.EnrichmentRun, error)
}

// Server wires the HTTP handlers.
type Server struct {
	store  store.Store
	gate   *gate.Gate
	runner Runner
	router chi.Router
}

// NewServer builds the router. runner may be nil to disable the admin
// enrichment trigger.
func NewServer(st store.Store, g *gate.Gate, runner Runner) *Server {
	s := &Server{store: st, gate: g, runner: runner}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-User-ID", "X-User-Tier"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/leads", s.handleListLeads)
		r.Get("/leads/{id}", s.handleGetLead)
		r.Post("/leads/{id}/save", s.handleSaveLead)
		r.Get("/quota", s.handleQuota)
		r.Get("/notifications", s.handleListNotifications)
		r.Post("/notifications/{id}/read", s.handleMarkRead)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/enrich", s.handleEnrich)
			r.Get("/runs", s.handleListRuns)
			r.Post("/users/{id}/tier", s.handleSetTier)
		})
	})

	s.router = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// userFromRequest resolves the caller's identity from headers. The tier
// header is advisory; when absent the stored tier wins, defaulting to free.
func (s *Server) userFromRequest(r *http.Request) model.User {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		return model.User{Tier: model.TierAnonymous}
	}

	if tier := model.Tier(r.Header.Get("X-User-Tier")); tier.Valid() {
		return model.User{ID: id, Tier: tier}
	}

	if u, err := s.store.GetUser(r.Context(), id); err == nil && u != nil {
		return *u
	}
	return model.User{ID: id, Tier: model.TierFree}
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := s.userFromRequest(r)
		if user.Tier != model.TierAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
