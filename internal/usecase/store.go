package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dream-agent/internal/domain"
	"dream-agent/internal/observability"
)

// SessionStore is implemented by both session backends. Lookups and scoped
// mutations report domain.ErrSessionNotFound when nothing matches.
type SessionStore interface {
	CreateSession(ctx context.Context, s domain.Session) error
	GetSession(ctx context.Context, id string) (domain.Session, error)
	// ListRecent returns sessions most recent first. An empty userID lists
	// every session; otherwise only sessions owned by userID.
	ListRecent(ctx context.Context, userID string, limit int) ([]domain.Session, error)
	AppendFollowup(ctx context.Context, id string, f domain.Followup) error
	// DeleteSession removes the session when it is owned by userID or has
	// no owner.
	DeleteSession(ctx context.Context, id, userID string) error
	SetTitle(ctx context.Context, id, userID, title string) error
	SetImage(ctx context.Context, id, userID, imageURL string, at time.Time) error
}

// StoreChain prefers the durable primary store and degrades to the local
// secondary whenever the primary is unconfigured, failing, or holds no
// matching record.
type StoreChain struct {
	primary   SessionStore
	secondary SessionStore
}

// NewStoreChain builds a chain. primary may be nil, in which case every call
// goes to secondary.
func NewStoreChain(primary, secondary SessionStore) (*StoreChain, error) {
	if secondary == nil {
		return nil, errors.New("usecase: secondary session store must not be nil")
	}
	return &StoreChain{primary: primary, secondary: secondary}, nil
}

// Durable reports whether a primary store is configured.
func (c *StoreChain) Durable() bool {
	return c.primary != nil
}

func (c *StoreChain) CreateSession(ctx context.Context, s domain.Session) error {
	if c.primary != nil {
		err := c.primary.CreateSession(ctx, s)
		if err == nil {
			return nil
		}
		observability.LoggerFromContext(ctx).Warn("durable create failed, using local store", "session_id", s.ID, "err", err)
	}
	if err := c.secondary.CreateSession(ctx, s); err != nil {
		return fmt.Errorf("usecase: create session: %w", err)
	}
	return nil
}

func (c *StoreChain) GetSession(ctx context.Context, id string) (domain.Session, error) {
	if c.primary != nil {
		s, err := c.primary.GetSession(ctx, id)
		if err == nil {
			return s, nil
		}
		c.degraded(ctx, "get", id, err)
	}
	return c.secondary.GetSession(ctx, id)
}

func (c *StoreChain) ListRecent(ctx context.Context, userID string, limit int) ([]domain.Session, error) {
	if c.primary != nil {
		sessions, err := c.primary.ListRecent(ctx, userID, limit)
		if err == nil {
			return sessions, nil
		}
		observability.LoggerFromContext(ctx).Warn("durable list failed, using local store", "user_id", userID, "err", err)
	}
	return c.secondary.ListRecent(ctx, userID, limit)
}

func (c *StoreChain) AppendFollowup(ctx context.Context, id string, f domain.Followup) error {
	return c.mutate(ctx, "append_followup", id, func(s SessionStore) error {
		return s.AppendFollowup(ctx, id, f)
	})
}

func (c *StoreChain) DeleteSession(ctx context.Context, id, userID string) error {
	return c.mutate(ctx, "delete", id, func(s SessionStore) error {
		return s.DeleteSession(ctx, id, userID)
	})
}

func (c *StoreChain) SetTitle(ctx context.Context, id, userID, title string) error {
	return c.mutate(ctx, "set_title", id, func(s SessionStore) error {
		return s.SetTitle(ctx, id, userID, title)
	})
}

func (c *StoreChain) SetImage(ctx context.Context, id, userID, imageURL string, at time.Time) error {
	return c.mutate(ctx, "set_image", id, func(s SessionStore) error {
		return s.SetImage(ctx, id, userID, imageURL, at)
	})
}

// mutate applies op to the primary and, when it reports no match or fails,
// to the secondary.
func (c *StoreChain) mutate(ctx context.Context, op, id string, apply func(SessionStore) error) error {
	if c.primary != nil {
		err := apply(c.primary)
		if err == nil {
			return nil
		}
		c.degraded(ctx, op, id, err)
	}
	return apply(c.secondary)
}

func (c *StoreChain) degraded(ctx context.Context, op, id string, err error) {
	if errors.Is(err, domain.ErrSessionNotFound) {
		return
	}
	observability.LoggerFromContext(ctx).Warn("durable store degraded", "op", op, "session_id", id, "err", err)
}
