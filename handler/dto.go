package handler

import (
	"time"

	"dream-agent/internal/domain"
)

type serviceInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type healthResponse struct {
	Status       string `json:"status"`
	LLMAvailable bool   `json:"llm_available"`
	Store        string `json:"store"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type interpretTextRequest struct {
	DreamText        string `json:"dream_text"`
	EmotionalContext string `json:"emotional_context"`
	Save             bool   `json:"save"`
	Filename         string `json:"filename"`
	Offline          bool   `json:"offline"`
}

type interpretFileRequest struct {
	Path             string `json:"path"`
	EmotionalContext string `json:"emotional_context"`
}

type interpretResponse struct {
	SessionID      string `json:"session_id"`
	Interpretation string `json:"interpretation"`
	OutputPath     string `json:"output_path,omitempty"`
	Title          string `json:"title"`
	Offline        bool   `json:"offline"`
}

type listSessionsResponse struct {
	Sessions []domain.SessionSummary `json:"sessions"`
}

type deleteResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	Deleted   bool   `json:"deleted"`
}

type followupRequest struct {
	Question string `json:"question"`
}

type followupResponse struct {
	Answer string `json:"answer"`
}

type generateImageRequest struct {
	Description string `json:"description"`
	Style       string `json:"style"`
	Size        string `json:"size"`
	SessionID   string `json:"session_id"`
}

type generateImageResponse struct {
	ImageURL    string `json:"image_url"`
	Description string `json:"description"`
	Style       string `json:"style"`
	Size        string `json:"size"`
}

type generateTitleRequest struct {
	Description string `json:"description"`
	SessionID   string `json:"session_id"`
}

type generateTitleResponse struct {
	Title string `json:"title"`
}
