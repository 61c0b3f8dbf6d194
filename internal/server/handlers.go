package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"video-assistant/internal/assistant"
	"video-assistant/internal/memory"
)

type askRequest struct {
	VideoID     string  `json:"video_id"`
	CurrentTime float64 `json:"current_time"`
	Question    string  `json:"question"`
	UserID      string  `json:"user_id"`
	Mode        string  `json:"mode"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type transcriptResponse struct {
	VideoID       string  `json:"video_id"`
	SegmentsCount int     `json:"segments_count"`
	Duration      float64 `json:"duration"`
	Available     bool    `json:"available"`
}

type conversationResponse struct {
	VideoID  string           `json:"video_id"`
	UserID   string           `json:"user_id"`
	Messages []memory.Message `json:"messages"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}

	answer, err := s.cfg.Assistant.Ask(r.Context(), assistant.Question{
		VideoID:     req.VideoID,
		UserID:      req.UserID,
		CurrentTime: req.CurrentTime,
		Text:        req.Question,
		Mode:        req.Mode,
	})
	if err != nil {
		s.writeAskError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) writeAskError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, assistant.ErrInvalidQuestion):
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
	case errors.Is(err, assistant.ErrTranscriptUnavailable):
		writeError(w, http.StatusNotFound, "transcript unavailable", err.Error())
	case errors.Is(err, assistant.ErrCompletionFailed):
		writeError(w, http.StatusBadGateway, "completion failed", err.Error())
	default:
		s.logger.ErrorContext(r.Context(), "ask failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal server error", err.Error())
	}
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("videoID")

	info, err := s.cfg.Assistant.TranscriptInfo(r.Context(), videoID)
	if err != nil {
		if errors.Is(err, assistant.ErrTranscriptUnavailable) {
			writeError(w, http.StatusNotFound, "transcript unavailable", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "transcript lookup failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, transcriptResponse{
		VideoID:       videoID,
		SegmentsCount: info.SegmentsCount,
		Duration:      info.Duration,
		Available:     true,
	})
}

// store returns the memory store or writes a 404 when memory is disabled
func (s *Server) store(w http.ResponseWriter) *memory.Store {
	store := s.cfg.Assistant.Memory()
	if store == nil {
		writeError(w, http.StatusNotFound, "conversation memory is disabled", "")
	}
	return store
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	store := s.store(w)
	if store == nil {
		return
	}

	videoID, userID := r.PathValue("videoID"), r.PathValue("userID")
	writeJSON(w, http.StatusOK, conversationResponse{
		VideoID:  videoID,
		UserID:   userID,
		Messages: store.History(videoID, userID),
	})
}

func (s *Server) handleClearConversation(w http.ResponseWriter, r *http.Request) {
	store := s.store(w)
	if store == nil {
		return
	}

	store.Clear(r.PathValue("videoID"), r.PathValue("userID"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMemoryStats(w http.ResponseWriter, _ *http.Request) {
	store := s.store(w)
	if store == nil {
		return
	}
	writeJSON(w, http.StatusOK, store.Stats())
}

func (s *Server) handleMemoryCleanup(w http.ResponseWriter, r *http.Request) {
	store := s.store(w)
	if store == nil {
		return
	}

	removed := store.CleanupExpired()
	s.cfg.Metrics.SessionsCleaned.Add(r.Context(), int64(removed))
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": ServiceName,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}
