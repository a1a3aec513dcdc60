package domain

import (
	"errors"
	"time"
)

// SourceAPI marks sessions whose dream text arrived in the request body
// rather than from a file on disk.
const SourceAPI = "(API)"

// ErrSessionNotFound is returned by session stores when no record matches
// the requested id (and owner, for scoped operations).
var ErrSessionNotFound = errors.New("session not found")

// Followup is one question/answer exchange appended to a session.
type Followup struct {
	At       time.Time `json:"at"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
}

// Session is one persisted dream interpretation plus its follow-up history.
//
// UserID is empty for legacy sessions created before accounts existed; those
// are visible to every caller.
type Session struct {
	ID                    string     `json:"id"`
	UserID                string     `json:"user_id,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	SourcePath            string     `json:"source_path"`
	OutputPath            string     `json:"output_path,omitempty"`
	EmotionalContext      string     `json:"emotional_context"`
	DreamText             string     `json:"dream_text"`
	Interpretation        string     `json:"interpretation"`
	InterpretationSummary string     `json:"interpretation_summary"`
	Title                 string     `json:"title,omitempty"`
	ImageURL              string     `json:"image_url,omitempty"`
	ImageGeneratedAt      *time.Time `json:"image_generated_at,omitempty"`
	Followups             []Followup `json:"followups"`
}

// AccessibleBy reports whether the caller may read or mutate the session.
func (s Session) AccessibleBy(userID string) bool {
	return s.UserID == "" || s.UserID == userID
}

// SessionSummary is the list view of a session.
type SessionSummary struct {
	ID                    string    `json:"id"`
	CreatedAt             time.Time `json:"created_at"`
	SourcePath            string    `json:"source_path"`
	InterpretationSummary string    `json:"interpretation_summary"`
	OutputPath            string    `json:"output_path,omitempty"`
	Title                 string    `json:"title,omitempty"`
}

// Summary projects the session onto its list view.
func (s Session) Summary() SessionSummary {
	return SessionSummary{
		ID:                    s.ID,
		CreatedAt:             s.CreatedAt,
		SourcePath:            s.SourcePath,
		InterpretationSummary: s.InterpretationSummary,
		OutputPath:            s.OutputPath,
		Title:                 s.Title,
	}
}
