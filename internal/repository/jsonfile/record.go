package jsonfile

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dream-agent/internal/domain"
)

// record is the on-disk session shape. It reads both the current keys and
// the Spanish keys of files written by the original command-line agent;
// writes always use domain.Session.
type record struct {
	ID                    string           `json:"id"`
	UserID                string           `json:"user_id"`
	CreatedAt             timestamp        `json:"created_at"`
	SourcePath            string           `json:"source_path"`
	Archivo               string           `json:"archivo"`
	OutputPath            string           `json:"output_path"`
	OutputFile            string           `json:"output_file"`
	EmotionalContext      string           `json:"emotional_context"`
	ContextoEmocional     string           `json:"contexto_emocional"`
	DreamText             string           `json:"dream_text"`
	TextoSueno            string           `json:"texto_sueno"`
	Interpretation        string           `json:"interpretation"`
	Interpretacion        string           `json:"interpretacion"`
	InterpretationSummary string           `json:"interpretation_summary"`
	InterpretacionResumen string           `json:"interpretacion_resumen"`
	Title                 string           `json:"title"`
	Titulo                string           `json:"titulo"`
	ImageURL              string           `json:"image_url"`
	ImageGeneratedAt      *timestamp       `json:"image_generated_at"`
	Followups             []followupRecord `json:"followups"`
}

type followupRecord struct {
	At       timestamp `json:"at"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
}

type recordDocument struct {
	Sessions []record `json:"sessions"`
}

func (r record) session() domain.Session {
	s := domain.Session{
		ID:                    r.ID,
		UserID:                r.UserID,
		CreatedAt:             r.CreatedAt.Time,
		SourcePath:            firstNonEmpty(r.SourcePath, r.Archivo),
		OutputPath:            firstNonEmpty(r.OutputPath, r.OutputFile),
		EmotionalContext:      firstNonEmpty(r.EmotionalContext, r.ContextoEmocional),
		DreamText:             firstNonEmpty(r.DreamText, r.TextoSueno),
		Interpretation:        firstNonEmpty(r.Interpretation, r.Interpretacion),
		InterpretationSummary: firstNonEmpty(r.InterpretationSummary, r.InterpretacionResumen),
		Title:                 firstNonEmpty(r.Title, r.Titulo),
		ImageURL:              r.ImageURL,
		Followups:             make([]domain.Followup, 0, len(r.Followups)),
	}
	if r.ImageGeneratedAt != nil && !r.ImageGeneratedAt.IsZero() {
		at := r.ImageGeneratedAt.Time
		s.ImageGeneratedAt = &at
	}
	for _, f := range r.Followups {
		s.Followups = append(s.Followups, domain.Followup{At: f.At.Time, Question: f.Question, Answer: f.Answer})
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// timestampLayouts accept RFC 3339 and zone-less ISO 8601; the latter is read
// as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

type timestamp struct {
	time.Time
}

func (t *timestamp) UnmarshalJSON(raw []byte) error {
	if string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", s)
}
