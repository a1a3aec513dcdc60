// Package compactor turns a user's recent dream sessions into a bounded text
// blob that is fed to the model as grounding.
package compactor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"dream-agent/internal/domain"
	"dream-agent/internal/observability"
)

// TruncationMarker is appended when the compact encoding still exceeds the budget.
const TruncationMarker = "…"

const (
	DefaultMaxSessions  = 5
	DefaultMaxFollowups = 3
	DefaultMaxChars     = 20000
)

// Source lists sessions most recent first. An empty userID means every
// session regardless of owner.
type Source interface {
	ListRecent(ctx context.Context, userID string, limit int) ([]domain.Session, error)
}

// Limits bounds the compacted context.
type Limits struct {
	MaxSessions  int
	MaxFollowups int
	MaxChars     int
}

func (l Limits) normalized() Limits {
	if l.MaxSessions <= 0 {
		l.MaxSessions = 1
	}
	if l.MaxFollowups < 0 {
		l.MaxFollowups = 0
	}
	if l.MaxChars <= 0 {
		l.MaxChars = 1
	}
	return l
}

// DefaultLimits mirrors the service defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxSessions:  DefaultMaxSessions,
		MaxFollowups: DefaultMaxFollowups,
		MaxChars:     DefaultMaxChars,
	}
}

type compactSession struct {
	ID                    string            `json:"id"`
	CreatedAt             string            `json:"created_at"`
	SourcePath            string            `json:"source_path"`
	EmotionalContext      string            `json:"emotional_context"`
	InterpretationSummary string            `json:"interpretation_summary"`
	Followups             []domain.Followup `json:"followups"`
}

type compactMemory struct {
	Sessions []compactSession `json:"sessions"`
}

// Compactor builds context blobs from a Source. It never writes.
type Compactor struct {
	source Source
}

func New(source Source) (*Compactor, error) {
	if source == nil {
		return nil, errors.New("compactor: source must not be nil")
	}
	return &Compactor{source: source}, nil
}

// Compact returns the serialized memory for userID. Failures are reported
// inside the returned text as {"error": "..."} so that callers never fail
// an interpretation because context assembly failed.
func (c *Compactor) Compact(ctx context.Context, userID string, limits Limits) string {
	limits = limits.normalized()

	sessions, err := c.source.ListRecent(ctx, userID, limits.MaxSessions)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("context memory fetch failed", "user_id", userID, "err", err)
		return errorPayload(err)
	}

	text, err := render(Select(sessions, limits), limits.MaxChars)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("context memory encode failed", "user_id", userID, "err", err)
		return errorPayload(err)
	}
	return text
}

// Select orders sessions most recent first (stable on ties), keeps at most
// MaxSessions of them and trims each one's follow-ups to the last MaxFollowups.
func Select(sessions []domain.Session, limits Limits) []domain.Session {
	limits = limits.normalized()

	ordered := make([]domain.Session, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})
	if len(ordered) > limits.MaxSessions {
		ordered = ordered[:limits.MaxSessions]
	}

	for i := range ordered {
		ordered[i].Followups = lastFollowups(ordered[i].Followups, limits.MaxFollowups)
	}
	return ordered
}

func lastFollowups(all []domain.Followup, n int) []domain.Followup {
	if n <= 0 || len(all) == 0 {
		return []domain.Followup{}
	}
	if len(all) > n {
		all = all[len(all)-n:]
	}
	out := make([]domain.Followup, len(all))
	copy(out, all)
	return out
}

func render(sessions []domain.Session, maxChars int) (string, error) {
	mem := compactMemory{Sessions: make([]compactSession, 0, len(sessions))}
	for _, s := range sessions {
		mem.Sessions = append(mem.Sessions, compactSession{
			ID:                    s.ID,
			CreatedAt:             s.CreatedAt.UTC().Format(time.RFC3339),
			SourcePath:            s.SourcePath,
			EmotionalContext:      s.EmotionalContext,
			InterpretationSummary: s.InterpretationSummary,
			Followups:             s.Followups,
		})
	}

	pretty, err := encode(mem, "  ")
	if err != nil {
		return "", err
	}
	if runeLen(pretty) <= maxChars {
		return pretty, nil
	}

	compact, err := encode(mem, "")
	if err != nil {
		return "", err
	}
	if runeLen(compact) <= maxChars {
		return compact, nil
	}
	return Truncate(compact, maxChars), nil
}

// Truncate cuts s to maxChars-1 characters, strips trailing whitespace and
// appends TruncationMarker.
func Truncate(s string, maxChars int) string {
	if maxChars < 1 {
		maxChars = 1
	}
	runes := []rune(s)
	if len(runes) > maxChars-1 {
		runes = runes[:maxChars-1]
	}
	return strings.TrimRightFunc(string(runes), unicode.IsSpace) + TruncationMarker
}

func encode(v any, indent string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("compactor: encode memory: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func errorPayload(err error) string {
	out, mErr := json.Marshal(map[string]string{
		"error": "could not build context memory: " + err.Error(),
	})
	if mErr != nil {
		return `{"error": "could not build context memory"}`
	}
	return string(out)
}

func runeLen(s string) int {
	return len([]rune(s))
}
