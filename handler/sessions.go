package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"dream-agent/internal/usecase"
)

func (h *Handler) handleInterpretText(w http.ResponseWriter, r *http.Request) {
	var req interpretTextRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.sessions.Create(r.Context(), usecase.CreateInput{
		DreamText:        req.DreamText,
		EmotionalContext: req.EmotionalContext,
		UserID:           callerID(r),
		Save:             req.Save,
		Filename:         req.Filename,
		Offline:          req.Offline,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toInterpretResponse(out))
}

func (h *Handler) handleInterpretFile(w http.ResponseWriter, r *http.Request) {
	var req interpretFileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.sessions.InterpretFile(r.Context(), usecase.InterpretFileInput{
		Path:             req.Path,
		EmotionalContext: req.EmotionalContext,
		UserID:           callerID(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toInterpretResponse(out))
}

func toInterpretResponse(out usecase.CreateOutput) interpretResponse {
	return interpretResponse{
		SessionID:      out.SessionID,
		Interpretation: out.Interpretation,
		OutputPath:     out.OutputPath,
		Title:          out.Title,
		Offline:        out.Offline,
	}
}

// handleListSessions reads ?limit=N. A missing or malformed value uses the
// default; the service clamps the rest.
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := usecase.DefaultListLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	sessions, err := h.sessions.ListRecent(r.Context(), callerID(r), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"), callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := h.sessions.Delete(r.Context(), id, callerID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, deleteResponse{
		Message:   "Sesión eliminada exitosamente",
		SessionID: id,
		Deleted:   true,
	})
}

func (h *Handler) handleFollowup(w http.ResponseWriter, r *http.Request) {
	var req followupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	answer, err := h.sessions.AppendFollowup(r.Context(), usecase.FollowupInput{
		SessionID: chi.URLParam(r, "sessionID"),
		Question:  req.Question,
		UserID:    callerID(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, followupResponse{Answer: answer})
}
