package handler

import (
	"net/http"

	"dream-agent/internal/usecase"
)

func (h *Handler) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	var req generateImageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.media.GenerateImage(r.Context(), usecase.ImageInput{
		Description: req.Description,
		Style:       req.Style,
		Size:        req.Size,
		SessionID:   req.SessionID,
		UserID:      callerID(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, generateImageResponse{
		ImageURL:    out.ImageURL,
		Description: out.Description,
		Style:       out.Style,
		Size:        out.Size,
	})
}

func (h *Handler) handleGenerateTitle(w http.ResponseWriter, r *http.Request) {
	var req generateTitleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	title, err := h.media.GenerateTitle(r.Context(), usecase.TitleInput{
		Description: req.Description,
		SessionID:   req.SessionID,
		UserID:      callerID(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, generateTitleResponse{Title: title})
}
