// Package handler exposes the dream services over HTTP, both as a chi router
// for the local server and as an API Gateway proxy handler for Lambda.
package handler

import (
	"context"
	"errors"
	"net/http"

	"dream-agent/internal/auth"
	"dream-agent/internal/domain"
	"dream-agent/internal/usecase"
)

const (
	serviceName    = "MoonBound API"
	serviceVersion = "1.0.0"

	headerCorrelationID = "X-Correlation-Id"
)

type SessionService interface {
	Create(ctx context.Context, in usecase.CreateInput) (usecase.CreateOutput, error)
	InterpretFile(ctx context.Context, in usecase.InterpretFileInput) (usecase.CreateOutput, error)
	Get(ctx context.Context, id, userID string) (domain.Session, error)
	AppendFollowup(ctx context.Context, in usecase.FollowupInput) (string, error)
	Delete(ctx context.Context, id, userID string) error
	ListRecent(ctx context.Context, userID string, limit int) ([]domain.SessionSummary, error)
	ModelAvailable() bool
}

type MediaService interface {
	GenerateImage(ctx context.Context, in usecase.ImageInput) (usecase.ImageOutput, error)
	GenerateTitle(ctx context.Context, in usecase.TitleInput) (string, error)
}

type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (auth.Token, error)
	Login(ctx context.Context, email, password string) (auth.Token, error)
	Me(ctx context.Context, id string) (domain.User, error)
	Authenticate(raw string) (auth.Identity, error)
}

// Deps are the services behind the routes. Store names the backend reported
// by /health.
type Deps struct {
	Sessions SessionService
	Media    MediaService
	Auth     AuthService
	Store    string
}

type Handler struct {
	sessions SessionService
	media    MediaService
	auth     AuthService
	store    string
	router   http.Handler
}

func NewHandler(d Deps) (*Handler, error) {
	if d.Sessions == nil {
		return nil, errors.New("handler: session service must not be nil")
	}
	if d.Media == nil {
		return nil, errors.New("handler: media service must not be nil")
	}
	if d.Auth == nil {
		return nil, errors.New("handler: auth service must not be nil")
	}
	h := &Handler{sessions: d.Sessions, media: d.Media, auth: d.Auth, store: d.Store}
	h.router = h.routes()
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}
