package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dream-agent/internal/domain"
)

func TestNewStoreChain_RequiresSecondary(t *testing.T) {
	_, err := NewStoreChain(&memStore{}, nil)
	require.Error(t, err)
}

func TestStoreChain_CreatePrefersPrimary(t *testing.T) {
	primary, secondary := &memStore{}, &memStore{}
	chain, err := NewStoreChain(primary, secondary)
	require.NoError(t, err)

	require.NoError(t, chain.CreateSession(context.Background(), domain.Session{ID: "a"}))

	require.Len(t, primary.sessions, 1)
	require.Empty(t, secondary.sessions)
	require.True(t, chain.Durable())
}

func TestStoreChain_CreateFallsBackWhenPrimaryFails(t *testing.T) {
	primary, secondary := &memStore{createErr: errors.New("throttled")}, &memStore{}
	chain, err := NewStoreChain(primary, secondary)
	require.NoError(t, err)

	require.NoError(t, chain.CreateSession(context.Background(), domain.Session{ID: "a"}))

	require.Len(t, secondary.sessions, 1)
}

func TestStoreChain_NoPrimaryUsesSecondary(t *testing.T) {
	secondary := &memStore{}
	chain, err := NewStoreChain(nil, secondary)
	require.NoError(t, err)

	require.NoError(t, chain.CreateSession(context.Background(), domain.Session{ID: "a", UserID: "u"}))
	got, err := chain.GetSession(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, "a", got.ID)
	require.False(t, chain.Durable())
}

func TestStoreChain_GetTriesSecondaryOnMissOrError(t *testing.T) {
	secondary := &memStore{sessions: []domain.Session{{ID: "local"}}}

	for _, primary := range []*memStore{{}, {getErr: errors.New("network")}} {
		chain, err := NewStoreChain(primary, secondary)
		require.NoError(t, err)

		got, err := chain.GetSession(context.Background(), "local")
		require.NoError(t, err)
		require.Equal(t, "local", got.ID)

		_, err = chain.GetSession(context.Background(), "nowhere")
		require.ErrorIs(t, err, domain.ErrSessionNotFound)
	}
}

func TestStoreChain_ListFallsBackOnPrimaryError(t *testing.T) {
	primary := &memStore{listErr: errors.New("down")}
	secondary := &memStore{sessions: []domain.Session{{ID: "x", UserID: "u"}}}
	chain, err := NewStoreChain(primary, secondary)
	require.NoError(t, err)

	got, err := chain.ListRecent(context.Background(), "u", 5)

	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestStoreChain_AppendReachesBackendHoldingSession(t *testing.T) {
	primary := &memStore{sessions: []domain.Session{{ID: "durable"}}}
	secondary := &memStore{sessions: []domain.Session{{ID: "local"}}}
	chain, err := NewStoreChain(primary, secondary)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, chain.AppendFollowup(ctx, "durable", domain.Followup{Question: "q1"}))
	require.NoError(t, chain.AppendFollowup(ctx, "local", domain.Followup{Question: "q2"}))

	d, _ := primary.find("durable")
	l, _ := secondary.find("local")
	require.Len(t, d.Followups, 1)
	require.Len(t, l.Followups, 1)
	require.Equal(t, 1, secondary.appends)

	require.ErrorIs(t, chain.AppendFollowup(ctx, "none", domain.Followup{}), domain.ErrSessionNotFound)
}

func TestStoreChain_DeleteScopedToOwner(t *testing.T) {
	primary := &memStore{sessions: []domain.Session{{ID: "a", UserID: "alice"}}}
	secondary := &memStore{sessions: []domain.Session{{ID: "legacy"}}}
	chain, err := NewStoreChain(primary, secondary)
	require.NoError(t, err)
	ctx := context.Background()

	require.ErrorIs(t, chain.DeleteSession(ctx, "a", "bob"), domain.ErrSessionNotFound)
	require.NoError(t, chain.DeleteSession(ctx, "a", "alice"))
	require.NoError(t, chain.DeleteSession(ctx, "legacy", "bob"))
	require.Empty(t, primary.sessions)
	require.Empty(t, secondary.sessions)
}

func TestStoreChain_SetImageFallsThrough(t *testing.T) {
	secondary := &memStore{sessions: []domain.Session{{ID: "a", UserID: "alice"}}}
	chain, err := NewStoreChain(&memStore{}, secondary)
	require.NoError(t, err)

	require.NoError(t, chain.SetImage(context.Background(), "a", "alice", "data:image/png;base64,AA==", fixedNow))
	require.NoError(t, chain.SetTitle(context.Background(), "a", "alice", "Nuevo"))

	got, _ := secondary.find("a")
	require.Equal(t, "data:image/png;base64,AA==", got.ImageURL)
	require.Equal(t, "Nuevo", got.Title)
	require.True(t, got.ImageGeneratedAt.Equal(fixedNow.Truncate(time.Second)))
}
