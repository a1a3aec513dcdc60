// Package jsonfile is the local session store: a single JSON document
// {"sessions": [...]} loaded once and rewritten whole on every mutation.
// Writers in other processes are not coordinated and may lose updates.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"dream-agent/internal/domain"
	"dream-agent/internal/observability"
)

// DefaultPath is used when no path is configured.
const DefaultPath = "memoria_agente.json"

const corruptSuffix = ".corrupt"

type document struct {
	Sessions []domain.Session `json:"sessions"`
}

type Store struct {
	path string

	mu       sync.Mutex
	sessions []domain.Session
}

// Open loads path into memory. A missing or empty file yields an empty
// store. A file that cannot be parsed is moved aside to <path>.corrupt and
// the store starts empty; only a file that cannot be read is an error.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	s := &Store{path: path, sessions: []domain.Session{}}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("jsonfile: read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return s, nil
	}

	var doc recordDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		quarantine(path, err)
		return s, nil
	}
	for _, r := range doc.Sessions {
		s.sessions = append(s.sessions, r.session())
	}
	return s, nil
}

// quarantine renames an unparseable store file so the next write starts a
// fresh document without destroying the old bytes.
func quarantine(path string, cause error) {
	logger := observability.Logger()
	aside := path + corruptSuffix
	if err := os.Rename(path, aside); err != nil {
		logger.Warn("local store unreadable, starting empty", "path", path, "err", cause, "rename_err", err)
		return
	}
	logger.Warn("local store unreadable, moved aside and starting empty", "path", path, "moved_to", aside, "err", cause)
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) CreateSession(_ context.Context, session domain.Session) error {
	if strings.TrimSpace(session.ID) == "" {
		return errors.New("jsonfile: CreateSession: id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(session.ID) >= 0 {
		return fmt.Errorf("jsonfile: CreateSession: duplicate id %q", session.ID)
	}
	session = clone(session)
	if session.Followups == nil {
		session.Followups = []domain.Followup{}
	}
	next := append(s.snapshot(), session)
	return s.commit(next, "CreateSession")
}

func (s *Store) GetSession(_ context.Context, id string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return clone(s.sessions[i]), nil
}

// ListRecent returns sessions newest first; with a userID only that user's
// sessions are considered.
func (s *Store) ListRecent(_ context.Context, userID string, limit int) ([]domain.Session, error) {
	if limit < 1 {
		limit = 1
	}
	s.mu.Lock()
	out := make([]domain.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		if userID == "" || session.UserID == userID {
			out = append(out, clone(session))
		}
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) AppendFollowup(_ context.Context, id string, f domain.Followup) error {
	return s.update(id, "", false, "AppendFollowup", func(session *domain.Session) {
		session.Followups = append(session.Followups, f)
	})
}

// DeleteSession removes the session when userID owns it or it has no owner.
func (s *Store) DeleteSession(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 || !s.sessions[i].AccessibleBy(userID) {
		return domain.ErrSessionNotFound
	}
	next := s.snapshot()
	next = append(next[:i], next[i+1:]...)
	return s.commit(next, "DeleteSession")
}

func (s *Store) SetTitle(_ context.Context, id, userID, title string) error {
	return s.update(id, userID, true, "SetTitle", func(session *domain.Session) {
		session.Title = title
	})
}

func (s *Store) SetImage(_ context.Context, id, userID, imageURL string, at time.Time) error {
	at = at.UTC()
	return s.update(id, userID, true, "SetImage", func(session *domain.Session) {
		session.ImageURL = imageURL
		session.ImageGeneratedAt = &at
	})
}

func (s *Store) update(id, userID string, scoped bool, op string, apply func(*domain.Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 || (scoped && !s.sessions[i].AccessibleBy(userID)) {
		return domain.ErrSessionNotFound
	}
	next := s.snapshot()
	next[i] = clone(next[i])
	apply(&next[i])
	return s.commit(next, op)
}

// commit persists next and only then makes it the in-memory state. Callers
// hold s.mu.
func (s *Store) commit(next []domain.Session, op string) error {
	if err := s.write(next); err != nil {
		return fmt.Errorf("jsonfile: %s: %w", op, err)
	}
	s.sessions = next
	return nil
}

func (s *Store) write(sessions []domain.Session) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document{Sessions: sessions}); err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) indexOf(id string) int {
	for i, session := range s.sessions {
		if session.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshot() []domain.Session {
	out := make([]domain.Session, len(s.sessions), len(s.sessions)+1)
	copy(out, s.sessions)
	return out
}

func clone(s domain.Session) domain.Session {
	if s.Followups != nil {
		fu := make([]domain.Followup, len(s.Followups))
		copy(fu, s.Followups)
		s.Followups = fu
	}
	if s.ImageGeneratedAt != nil {
		at := *s.ImageGeneratedAt
		s.ImageGeneratedAt = &at
	}
	return s
}
