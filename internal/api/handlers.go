package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/contractlink/contract-hub/internal/enrich"
	"github.com/contractlink/contract-hub/internal/gate"
	"github.com/contractlink/contract-hub/internal/model"
	"github.com/contractlink/contract-hub/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// leadResponse pairs a lead with the access decision that shaped it.
type leadResponse struct {
	Lead   model.Lead    `json:"lead"`
	Access gate.Decision `json:"access"`
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	filter := store.LeadFilter{
		Category: model.Category(r.URL.Query().Get("category")),
	}
	if filter.Category != "" && !filter.Category.Valid() {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	leads, err := s.store.ListLeads(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list leads", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}

	// The listing is free for everyone; protected fields stay hidden.
	out := make([]model.Lead, len(leads))
	for i, l := range leads {
		out[i] = l.Redacted()
	}
	writeJSON(w, http.StatusOK, map[string]any{"leads": out})
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lead id")
		return
	}

	lead, err := s.store.GetLead(r.Context(), id)
	if err != nil {
		zap.L().Error("api: get lead", zap.Int64("lead_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load lead")
		return
	}
	if lead == nil {
		writeError(w, http.StatusNotFound, "lead not found")
		return
	}

	user := s.userFromRequest(r)
	decision := s.gate.Check(r.Context(), user, id)

	switch decision.Outcome {
	case gate.Granted:
		writeJSON(w, http.StatusOK, leadResponse{Lead: *lead, Access: decision})
	case gate.RequiresLogin:
		writeJSON(w, http.StatusUnauthorized, leadResponse{Lead: lead.Redacted(), Access: decision})
	default:
		writeJSON(w, http.StatusForbidden, leadResponse{Lead: lead.Redacted(), Access: decision})
	}
}

func (s *Server) handleSaveLead(w http.ResponseWriter, r *http.Request) {
	user := s.userFromRequest(r)
	if user.ID == "" {
		writeError(w, http.StatusUnauthorized, "sign in to save leads")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lead id")
		return
	}

	lead, err := s.store.GetLead(r.Context(), id)
	if err != nil {
		zap.L().Error("api: save lead", zap.Int64("lead_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save lead")
		return
	}
	if lead == nil {
		writeError(w, http.StatusNotFound, "lead not found")
		return
	}

	if err := s.store.SaveLead(r.Context(), user.ID, id); err != nil {
		zap.L().Error("api: save lead", zap.Int64("lead_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save lead")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": true})
}

func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	user := s.userFromRequest(r)
	if user.ID == "" {
		writeError(w, http.StatusUnauthorized, "sign in to view quota")
		return
	}

	quota, err := s.gate.Status(r.Context(), user)
	if err != nil {
		zap.L().Error("api: quota status", zap.String("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load quota")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    quota.UserID,
		"views_used": quota.ViewsUsed,
		"limit":      quota.Limit,
		"remaining":  quota.Remaining(),
		"unlimited":  user.Tier.Unlimited(),
	})
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	user := s.userFromRequest(r)
	if user.ID == "" {
		writeError(w, http.StatusUnauthorized, "sign in to view notifications")
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "1"
	list, err := s.store.ListNotifications(r.Context(), user.ID, unreadOnly)
	if err != nil {
		zap.L().Error("api: list notifications", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": list})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	user := s.userFromRequest(r)
	if user.ID == "" {
		writeError(w, http.StatusUnauthorized, "sign in first")
		return
	}

	if err := s.store.MarkNotificationRead(r.Context(), chi.URLParam(r, "id"), user.ID); err != nil {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"read": true})
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "enrichment not configured")
		return
	}

	batchSize := 0
	if v := r.URL.Query().Get("batch_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			batchSize = n
		}
	}

	run, err := s.runner.Run(r.Context(), model.TriggerManual, batchSize)
	if err != nil {
		if errors.Is(err, enrich.ErrRunInProgress) {
			writeError(w, http.StatusConflict, "a run is already in progress")
			return
		}
		zap.L().Error("api: manual enrichment", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "enrichment run failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		zap.L().Error("api: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleSetTier(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	tier := model.Tier(r.URL.Query().Get("tier"))
	if !tier.Valid() || tier == model.TierAnonymous {
		writeError(w, http.StatusBadRequest, "invalid tier")
		return
	}

	if err := s.store.SetUserTier(r.Context(), userID, tier); err != nil {
		zap.L().Error("api: set tier", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to set tier")
		return
	}

	// Upgrading wipes the free-view counter so a later downgrade starts
	// the user fresh.
	if tier.Unlimited() {
		if err := s.store.ResetQuota(r.Context(), userID); err != nil {
			zap.L().Error("api: reset quota on upgrade", zap.String("user_id", userID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to reset quota")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "tier": tier})
}
