package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/x-monitor/internal/models"
	"github.com/x-monitor/internal/monitor"
	"github.com/x-monitor/internal/storage"
	"github.com/x-monitor/internal/twitterapi"
	"github.com/x-monitor/pkg/logger"
)

// handlePattern matches valid X handles
var handlePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// HandleVerifier resolves an X handle to a real account
type HandleVerifier interface {
	VerifyUser(ctx context.Context, username string) (*models.TwitterUser, error)
}

// Server exposes the management API of the scheduler daemon. Callers are
// assumed to be authenticated upstream; requests carry the principal's
// opaque user id.
type Server struct {
	repo     storage.Repository
	verifier HandleVerifier
	scanner  *monitor.Scanner
	log      *logger.Logger
}

// New creates a new API server
func New(repo storage.Repository, verifier HandleVerifier, scanner *monitor.Scanner, log *logger.Logger) *Server {
	return &Server{
		repo:     repo,
		verifier: verifier,
		scanner:  scanner,
		log:      log.WithComponent("server"),
	}
}

// Routes registers all handlers on a new mux
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/targets", s.handleListTargets)
	mux.HandleFunc("POST /api/targets", s.handleCreateTarget)
	mux.HandleFunc("DELETE /api/targets/{id}", s.handleDeleteTarget)
	mux.HandleFunc("PATCH /api/targets/{id}/status", s.handleUpdateTargetStatus)
	mux.HandleFunc("POST /api/scan", s.handleScan)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type createTargetRequest struct {
	UserID               string `json:"user_id"`
	XHandle              string `json:"x_handle"`
	Name                 string `json:"name"`
	NotificationConfigID *uint  `json:"notification_config_id"`
}

func (s *Server) handleCreateTarget(w http.ResponseWriter, r *http.Request) {
	var req createTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if !handlePattern.MatchString(req.XHandle) {
		s.writeError(w, http.StatusBadRequest, "invalid X handle format")
		return
	}

	ctx := r.Context()

	// Reject duplicates before hitting the provider
	if existing, err := s.repo.GetTargetByUserAndHandle(ctx, req.UserID, req.XHandle); err == nil && existing != nil {
		s.writeError(w, http.StatusConflict, "this X handle is already being monitored")
		return
	}

	// The handle must resolve to a real account; its rest_id is the fetch
	// key for every subsequent cycle
	user, err := s.verifier.VerifyUser(ctx, req.XHandle)
	if err != nil {
		if errors.Is(err, twitterapi.ErrUserNotFound) {
			s.writeError(w, http.StatusNotFound, "X user not found")
			return
		}
		s.log.Error().Err(err).Str("x_handle", req.XHandle).Msg("Failed to verify X user")
		s.writeError(w, http.StatusBadGateway, "failed to verify X user")
		return
	}

	if req.NotificationConfigID != nil {
		config, err := s.repo.GetNotificationConfigByID(ctx, *req.NotificationConfigID)
		if err != nil || config.UserID != req.UserID {
			s.writeError(w, http.StatusBadRequest, "invalid notification config")
			return
		}
	}

	name := req.Name
	if name == "" {
		name = user.Name
	}

	target := &models.MonitorTarget{
		UserID:               req.UserID,
		XHandle:              user.Username,
		Name:                 name,
		Status:               models.TargetStatusActive,
		RestID:               user.RestID,
		NotificationConfigID: req.NotificationConfigID,
	}
	if err := s.repo.CreateTarget(ctx, target); err != nil {
		s.log.Error().Err(err).Str("x_handle", req.XHandle).Msg("Failed to create target")
		s.writeError(w, http.StatusInternalServerError, "failed to add monitor target")
		return
	}

	// Kick off an immediate single-target scan when a channel is attached.
	// Fire-and-forget: the creation response never depends on its outcome.
	if target.NotificationConfigID != nil {
		go s.initialScan(target.ID)
	}

	s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    target,
	})
}

// initialScan runs the post-creation scan in a detached goroutine with its
// own lifetime and error logging
func (s *Server) initialScan(targetID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := s.scanner.ScanTarget(ctx, targetID)
	if err != nil {
		s.log.Error().Err(err).Uint("target_id", targetID).Msg("Initial scan failed")
		return
	}
	s.log.Info().
		Uint("target_id", targetID).
		Int("tweets_sent", result.TweetsSent).
		Msg("Initial scan completed")
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	targets, err := s.repo.ListTargets(r.Context(), userID)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list targets")
		s.writeError(w, http.StatusInternalServerError, "failed to list monitor targets")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"data": targets})
}

func (s *Server) handleDeleteTarget(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid target id")
		return
	}

	if _, err := s.repo.GetTargetByID(r.Context(), uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.writeError(w, http.StatusNotFound, "monitor target not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to load monitor target")
		return
	}

	if err := s.repo.DeleteTarget(r.Context(), uint(id)); err != nil {
		s.log.Error().Err(err).Uint64("target_id", id).Msg("Failed to delete target")
		s.writeError(w, http.StatusInternalServerError, "failed to delete monitor target")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

type updateStatusRequest struct {
	Status models.TargetStatus `json:"status"`
}

func (s *Server) handleUpdateTargetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid target id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status != models.TargetStatusActive && req.Status != models.TargetStatusPaused {
		s.writeError(w, http.StatusBadRequest, "status must be active or paused")
		return
	}

	if err := s.repo.UpdateTargetStatus(r.Context(), uint(id), req.Status); err != nil {
		s.log.Error().Err(err).Uint64("target_id", id).Msg("Failed to update target status")
		s.writeError(w, http.StatusInternalServerError, "failed to update target status")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	result, err := s.scanner.RunCycle(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("On-demand scan failed")
		s.writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"processed":   result.Processed,
		"tweets_sent": result.TweetsSent,
		"errors":      result.Errors,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
