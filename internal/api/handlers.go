// File: internal/api/handlers.go
package api

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/reasonos/websurfer/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type createSessionRequest struct {
	Objective string `json:"objective"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

type stepResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	// Screenshot is the post-action viewport, base64-encoded PNG.
	Screenshot       string   `json:"screenshot,omitempty"`
	ReasoningLogs    []string `json:"reasoning_logs"`
	Action           string   `json:"action,omitempty"`
	URL              string   `json:"url,omitempty"`
	ExtractedContent string   `json:"extracted_content,omitempty"`
	FinalURL         string   `json:"final_url,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		ActiveSessions: s.registry.Count(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "request body must be JSON with an objective field")
		return
	}
	if strings.TrimSpace(req.Objective) == "" {
		s.writeError(w, http.StatusBadRequest, "objective must not be empty")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.createTimeout)
	defer cancel()

	session, err := s.registry.Create(ctx, strings.TrimSpace(req.Objective))
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			s.writeError(w, http.StatusServiceUnavailable, "session capacity reached, retry later")
		default:
			s.logger.Error("Session creation failed", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to start session")
		}
		return
	}

	s.writeJSON(w, http.StatusCreated, createSessionResponse{
		SessionID: session.ID,
		Status:    string(session.Status()),
		Message:   "Session started with objective: " + session.Objective,
	})
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	res, err := s.registry.Step(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, schemas.ErrSessionNotFound):
			s.writeError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, context.Canceled):
			// Client went away mid-step; nothing useful to write.
			return
		default:
			s.logger.Error("Step failed", zap.String("session_id", id), zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "step failed")
		}
		return
	}

	s.writeJSON(w, http.StatusOK, buildStepResponse(id, res))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	if err := s.registry.Delete(id); err != nil {
		if errors.Is(err, schemas.ErrSessionNotFound) {
			s.writeError(w, http.StatusNotFound, "session not found")
			return
		}
		// The session is gone from the registry; browser teardown trouble is
		// logged but not the client's problem.
		s.logger.Warn("Session teardown reported an error", zap.String("session_id", id), zap.Error(err))
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "Session " + id + " deleted"})
}

func buildStepResponse(id string, res schemas.StepResult) stepResponse {
	logs := make([]string, len(res.Log))
	for i, entry := range res.Log {
		logs[i] = entry.Render()
	}
	return stepResponse{
		SessionID:        id,
		Status:           string(res.Status),
		Screenshot:       base64.StdEncoding.EncodeToString(res.Screenshot),
		ReasoningLogs:    logs,
		Action:           res.Action,
		URL:              res.URL,
		ExtractedContent: res.ExtractedContent,
		FinalURL:         res.FinalURL,
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
