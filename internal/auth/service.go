// Package auth is the gate in front of the session API: account
// registration, login, and bearer-token resolution.
package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"dream-agent/internal/domain"
	"dream-agent/internal/observability"
	"dream-agent/internal/usecase"
)

const TokenType = "bearer"

// UserStore persists accounts. Implementations report domain.ErrUserExists
// and domain.ErrUserNotFound.
type UserStore interface {
	CreateUser(ctx context.Context, u domain.User) error
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
}

type Token struct {
	AccessToken string
	TokenType   string
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

type Service struct {
	users  UserStore
	tokens *TokenIssuer
	hasher *Hasher
	now    func() time.Time
}

// NewService builds the gate. users may be nil when no durable store is
// configured; account operations then report UPSTREAM_UNAVAILABLE while
// token validation keeps working.
func NewService(users UserStore, tokens *TokenIssuer, hasher *Hasher) (*Service, error) {
	if tokens == nil {
		return nil, errors.New("auth: token issuer must not be nil")
	}
	if hasher == nil {
		hasher = NewHasher(0)
	}
	return &Service{users: users, tokens: tokens, hasher: hasher, now: time.Now}, nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (Token, error) {
	if s.users == nil {
		return Token{}, usecase.NewError(usecase.ErrorUpstreamUnavailable, "user_store_unavailable", nil)
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return Token{}, usecase.NewError(usecase.ErrorInvalidInput, "invalid_email", err)
	}
	if len(in.Password) < MinPasswordLen {
		return Token{}, usecase.NewError(usecase.ErrorInvalidInput, "password_too_short", nil)
	}
	if len(in.Password) > maxPasswordBytes {
		return Token{}, usecase.NewError(usecase.ErrorInvalidInput, "password_too_long", nil)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Token{}, usecase.NewError(usecase.ErrorInternal, "password_hash_error", err)
	}
	user := domain.User{
		ID:             uuid.NewString(),
		Email:          email,
		HashedPassword: hash,
		Name:           strings.TrimSpace(in.Name),
		CreatedAt:      s.now().UTC().Truncate(time.Second),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return Token{}, usecase.NewError(usecase.ErrorConflict, "email_already_registered", err)
		}
		return Token{}, usecase.NewError(usecase.ErrorInternal, "user_store_error", err)
	}

	observability.LoggerFromContext(ctx).Info("user registered", "user_id", user.ID)
	return s.issue(user)
}

func (s *Service) Login(ctx context.Context, email, password string) (Token, error) {
	if s.users == nil {
		return Token{}, usecase.NewError(usecase.ErrorUpstreamUnavailable, "user_store_unavailable", nil)
	}
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return Token{}, usecase.NewError(usecase.ErrorUnauthorized, "bad_credentials", nil)
		}
		return Token{}, usecase.NewError(usecase.ErrorInternal, "user_store_error", err)
	}
	if err := s.hasher.Verify(user.HashedPassword, password); err != nil {
		return Token{}, usecase.NewError(usecase.ErrorUnauthorized, "bad_credentials", nil)
	}
	return s.issue(user)
}

// Me returns the account behind id.
func (s *Service) Me(ctx context.Context, id string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, usecase.NewError(usecase.ErrorUpstreamUnavailable, "user_store_unavailable", nil)
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.User{}, usecase.NewError(usecase.ErrorNotFound, "user_not_found", err)
		}
		return domain.User{}, usecase.NewError(usecase.ErrorInternal, "user_store_error", err)
	}
	return user, nil
}

// Authenticate resolves a raw bearer token to the caller's identity.
func (s *Service) Authenticate(raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, usecase.NewError(usecase.ErrorUnauthorized, "missing_token", nil)
	}
	id, err := s.tokens.Parse(raw)
	if err != nil {
		return Identity{}, usecase.NewError(usecase.ErrorUnauthorized, "invalid_token", err)
	}
	return id, nil
}

func (s *Service) issue(u domain.User) (Token, error) {
	signed, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return Token{}, usecase.NewError(usecase.ErrorInternal, "token_sign_error", err)
	}
	return Token{AccessToken: signed, TokenType: TokenType}, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if addr.Name != "" || !strings.Contains(addr.Address, "@") {
		return "", errors.New("auth: expected a bare email address")
	}
	return strings.ToLower(addr.Address), nil
}

type identityKey struct{}

// WithIdentity stores the authenticated caller in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller stored by WithIdentity.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
