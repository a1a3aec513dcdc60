package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"dream-agent/internal/domain"
	"dream-agent/internal/observability"
)

const (
	DefaultListLimit = 5
	MaxListLimit     = 50

	defaultOutputBase = "sueño_api.txt"
)

// Artifacts reads dream files and persists interpretation text next to them.
type Artifacts interface {
	ReadDream(path string) (string, error)
	// SaveInterpretation writes text to the path derived from source and
	// returns it.
	SaveInterpretation(source, text string) (string, error)
}

type SessionServiceConfig struct {
	ForceOffline bool
}

// SessionService is the lifecycle manager: it interprets dreams, persists
// sessions, answers follow-ups and deletes sessions on behalf of a caller.
type SessionService struct {
	store       SessionStore
	interpreter *Interpreter
	followups   *FollowupEngine
	titles      *Titler
	artifacts   Artifacts
	cfg         SessionServiceConfig
	now         func() time.Time
}

type CreateInput struct {
	DreamText        string
	EmotionalContext string
	UserID           string
	Save             bool
	Filename         string
	Offline          bool
}

type InterpretFileInput struct {
	Path             string
	EmotionalContext string
	UserID           string
}

type CreateOutput struct {
	SessionID      string
	Interpretation string
	OutputPath     string
	Title          string
	Offline        bool
}

type FollowupInput struct {
	SessionID string
	Question  string
	UserID    string
}

func NewSessionService(store SessionStore, interpreter *Interpreter, followups *FollowupEngine, titles *Titler, artifacts Artifacts, cfg SessionServiceConfig) (*SessionService, error) {
	if store == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if interpreter == nil {
		return nil, errors.New("usecase: interpreter must not be nil")
	}
	if followups == nil {
		return nil, errors.New("usecase: followup engine must not be nil")
	}
	if titles == nil {
		return nil, errors.New("usecase: titler must not be nil")
	}
	if artifacts == nil {
		return nil, errors.New("usecase: artifacts must not be nil")
	}
	return &SessionService{
		store:       store,
		interpreter: interpreter,
		followups:   followups,
		titles:      titles,
		artifacts:   artifacts,
		cfg:         cfg,
		now:         time.Now,
	}, nil
}

// ModelAvailable reports whether interpretations can reach a model.
func (s *SessionService) ModelAvailable() bool {
	return s.interpreter.Available()
}

type createParams struct {
	dream      string
	emotional  string
	userID     string
	sourcePath string
	saveAs     string
	save       bool
	offline    bool
}

func (s *SessionService) Create(ctx context.Context, in CreateInput) (CreateOutput, error) {
	filename := strings.TrimSpace(in.Filename)
	source := domain.SourceAPI
	saveAs := defaultOutputBase
	if filename != "" {
		source = filename
		// API hints name a file, never a directory to write into.
		saveAs = filepath.Base(filename)
	}
	return s.create(ctx, createParams{
		dream:      in.DreamText,
		emotional:  in.EmotionalContext,
		userID:     in.UserID,
		sourcePath: source,
		saveAs:     saveAs,
		save:       in.Save,
		offline:    in.Offline,
	})
}

// InterpretFile interprets a server-side UTF-8 file and always saves the
// result next to it.
func (s *SessionService) InterpretFile(ctx context.Context, in InterpretFileInput) (CreateOutput, error) {
	path := strings.TrimSpace(in.Path)
	if path == "" {
		return CreateOutput{}, newError(ErrorInvalidInput, "empty_path", nil)
	}
	text, err := s.artifacts.ReadDream(path)
	if err != nil {
		return CreateOutput{}, newError(ErrorInvalidInput, "unreadable_file", err)
	}
	return s.create(ctx, createParams{
		dream:      text,
		emotional:  in.EmotionalContext,
		userID:     in.UserID,
		sourcePath: path,
		saveAs:     path,
		save:       true,
	})
}

func (s *SessionService) create(ctx context.Context, p createParams) (CreateOutput, error) {
	logger := observability.LoggerFromContext(ctx)
	dream := strings.TrimSpace(p.dream)
	if dream == "" {
		return CreateOutput{}, newError(ErrorInvalidInput, "empty_dream_text", nil)
	}
	emotional := strings.TrimSpace(p.emotional)
	forced := p.offline || s.cfg.ForceOffline

	interp, err := s.interpreter.Interpret(ctx, InterpretInput{
		DreamText:        dream,
		EmotionalContext: emotional,
		UserID:           p.userID,
		Offline:          forced,
	})
	if err != nil {
		return CreateOutput{}, err
	}

	outputPath := ""
	if p.save {
		outputPath, err = s.artifacts.SaveInterpretation(p.saveAs, interp.Text)
		if err != nil {
			logger.Warn("interpretation file not written", "source", p.saveAs, "err", err)
			outputPath = ""
		}
	}

	title := DefaultTitle
	if !forced {
		title = s.titles.TitleOrDefault(ctx, dream)
	}

	session := domain.Session{
		ID:                    newUUID(),
		UserID:                p.userID,
		CreatedAt:             s.now().UTC().Truncate(time.Second),
		SourcePath:            p.sourcePath,
		OutputPath:            outputPath,
		EmotionalContext:      emotional,
		DreamText:             dream,
		Interpretation:        interp.Text,
		InterpretationSummary: Summarize(interp.Text),
		Title:                 title,
		Followups:             []domain.Followup{},
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return CreateOutput{}, newError(ErrorInternal, "session_store_error", err)
	}

	logger.Info("session created", "session_id", session.ID, "user_id", p.userID, "offline", interp.Offline, "saved", outputPath != "")
	return CreateOutput{
		SessionID:      session.ID,
		Interpretation: interp.Text,
		OutputPath:     outputPath,
		Title:          title,
		Offline:        interp.Offline,
	}, nil
}

// Get resolves a session for userID, distinguishing absent from forbidden.
func (s *SessionService) Get(ctx context.Context, id, userID string) (domain.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Session{}, newError(ErrorInvalidInput, "empty_session_id", nil)
	}
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.Session{}, newError(ErrorNotFound, "session_not_found", err)
		}
		return domain.Session{}, newError(ErrorInternal, "session_store_error", err)
	}
	if !session.AccessibleBy(userID) {
		return domain.Session{}, newError(ErrorForbidden, "session_owned_by_other_user", nil)
	}
	return session, nil
}

// AppendFollowup answers a question about a session and records the
// exchange. The answer is returned even when recording it fails.
func (s *SessionService) AppendFollowup(ctx context.Context, in FollowupInput) (string, error) {
	session, err := s.Get(ctx, in.SessionID, in.UserID)
	if err != nil {
		return "", err
	}
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return "", newError(ErrorInvalidInput, "empty_question", nil)
	}
	if !s.followups.Available() {
		return "", newError(ErrorUpstreamUnavailable, "followup_model_unavailable", nil)
	}

	answer, err := s.followups.Answer(ctx, session, question)
	if err != nil {
		return "", err
	}

	logger := observability.LoggerFromContext(ctx)
	exchange := domain.Followup{At: s.now().UTC().Truncate(time.Second), Question: question, Answer: answer}
	if err := s.store.AppendFollowup(ctx, session.ID, exchange); err != nil {
		logger.Error("followup answered but not recorded", "session_id", session.ID, "err", err)
		return answer, nil
	}
	logger.Info("followup appended", "session_id", session.ID, "followups", len(session.Followups)+1)
	return answer, nil
}

// Delete removes a session scoped to its owner. Sessions of other owners
// are reported as not found.
func (s *SessionService) Delete(ctx context.Context, id, userID string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return newError(ErrorInvalidInput, "empty_session_id", nil)
	}
	if err := s.store.DeleteSession(ctx, id, userID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return newError(ErrorNotFound, "session_not_found", err)
		}
		return newError(ErrorInternal, "session_store_error", err)
	}
	observability.LoggerFromContext(ctx).Info("session deleted", "session_id", id, "user_id", userID)
	return nil
}

// ListRecent returns summaries of the caller's most recent sessions. limit
// is clamped to [1, MaxListLimit].
func (s *SessionService) ListRecent(ctx context.Context, userID string, limit int) ([]domain.SessionSummary, error) {
	limit = ClampLimit(limit)
	sessions, err := s.store.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, newError(ErrorInternal, "session_store_error", err)
	}
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	out := make([]domain.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, session.Summary())
	}
	return out, nil
}

func ClampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

var newUUID = func() string {
	return uuid.NewString()
}
