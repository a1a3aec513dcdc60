package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dream-agent/internal/compactor"
	"dream-agent/internal/domain"
	"dream-agent/internal/modelcall"
)

type serviceDeps struct {
	store     *memStore
	model     modelcall.Generator
	artifacts *fakeArtifacts
	cfg       SessionServiceConfig
}

func newTestSessionService(t *testing.T, deps serviceDeps) *SessionService {
	t.Helper()
	if deps.store == nil {
		deps.store = &memStore{}
	}
	if deps.artifacts == nil {
		deps.artifacts = &fakeArtifacts{}
	}
	chain, err := NewStoreChain(nil, deps.store)
	require.NoError(t, err)
	mem, err := compactor.New(chain)
	require.NoError(t, err)
	interpreter, err := NewInterpreter(deps.model, mem, InterpreterConfig{
		Timeout:      50 * time.Millisecond,
		ForceOffline: deps.cfg.ForceOffline,
	})
	require.NoError(t, err)
	svc, err := NewSessionService(
		chain,
		interpreter,
		NewFollowupEngine(deps.model, 50*time.Millisecond, 5),
		NewTitler(deps.model, 50*time.Millisecond),
		deps.artifacts,
		deps.cfg,
	)
	require.NoError(t, err)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestNewSessionService_ValidatesDependencies(t *testing.T) {
	_, err := NewSessionService(nil, nil, nil, nil, nil, SessionServiceConfig{})
	require.Error(t, err)
}

func TestCreate_OfflineForestScenario(t *testing.T) {
	store := &memStore{}
	svc := newTestSessionService(t, serviceDeps{store: store})

	out, err := svc.Create(context.Background(), CreateInput{
		DreamText: "Caminaba por un bosque oscuro.",
		UserID:    "alice",
		Offline:   true,
	})

	require.NoError(t, err)
	require.NotEmpty(t, out.SessionID)
	require.Contains(t, out.Interpretation, "búsqueda interna y cambio")
	require.Equal(t, DefaultTitle, out.Title)
	require.True(t, out.Offline)
	require.Empty(t, out.OutputPath)

	stored, ok := store.find(out.SessionID)
	require.True(t, ok)
	require.Equal(t, "alice", stored.UserID)
	require.Equal(t, domain.SourceAPI, stored.SourcePath)
	require.Equal(t, out.Interpretation, stored.Interpretation)
	require.NotEmpty(t, stored.InterpretationSummary)
	require.NotNil(t, stored.Followups)
	require.Empty(t, stored.Followups)
	require.Equal(t, fixedNow, stored.CreatedAt)
}

func TestCreate_WithModelGeneratesTitleAndUsesReply(t *testing.T) {
	model := modelcall.GeneratorFunc(func(_ context.Context, req modelcall.Request) (modelcall.Reply, error) {
		if len(req.Messages) == 1 {
			return modelcall.Text(`  "Noche en el bosque"  `), nil
		}
		return modelcall.Text("Interpretación general:\nUn cambio se acerca."), nil
	})
	svc := newTestSessionService(t, serviceDeps{model: model})

	out, err := svc.Create(context.Background(), CreateInput{DreamText: "un bosque", UserID: "alice"})

	require.NoError(t, err)
	require.False(t, out.Offline)
	require.Equal(t, "Interpretación general:\nUn cambio se acerca.", out.Interpretation)
	require.Equal(t, "Noche en el bosque", out.Title)
}

func TestCreate_ModelFailureStillPersistsOfflineText(t *testing.T) {
	store := &memStore{}
	svc := newTestSessionService(t, serviceDeps{store: store, model: &recordingModel{err: errors.New("503")}})

	out, err := svc.Create(context.Background(), CreateInput{DreamText: "lloraba", UserID: "alice"})

	require.NoError(t, err)
	require.Equal(t, OfflineInterpretation("lloraba", ""), out.Interpretation)
	require.Equal(t, DefaultTitle, out.Title)
	stored, _ := store.find(out.SessionID)
	require.NotEmpty(t, stored.Interpretation)
}

func TestCreate_RejectsEmptyDreamBeforeAnyCall(t *testing.T) {
	model := &recordingModel{}
	store := &memStore{}
	svc := newTestSessionService(t, serviceDeps{store: store, model: model})

	_, err := svc.Create(context.Background(), CreateInput{DreamText: "   "})

	expectCode(t, err, ErrorInvalidInput)
	require.Equal(t, 0, model.calls())
	require.Equal(t, 0, store.creates)
}

func TestCreate_SavesOutputWhenRequested(t *testing.T) {
	artifacts := &fakeArtifacts{}
	store := &memStore{}
	svc := newTestSessionService(t, serviceDeps{store: store, artifacts: artifacts})

	out, err := svc.Create(context.Background(), CreateInput{DreamText: "mar", Save: true, Offline: true})
	require.NoError(t, err)
	require.Equal(t, "sueño_api.txt.out", out.OutputPath)
	require.Equal(t, out.Interpretation, artifacts.saved[out.OutputPath])

	out, err = svc.Create(context.Background(), CreateInput{DreamText: "mar", Save: true, Filename: "notas/mar.md", Offline: true})
	require.NoError(t, err)
	require.Equal(t, "mar.md.out", out.OutputPath)
	stored, _ := store.find(out.SessionID)
	require.Equal(t, "notas/mar.md", stored.SourcePath)
	require.Equal(t, out.OutputPath, stored.OutputPath)
}

func TestCreate_FilenameHintCannotChooseDirectory(t *testing.T) {
	artifacts := &fakeArtifacts{}
	svc := newTestSessionService(t, serviceDeps{artifacts: artifacts})

	out, err := svc.Create(context.Background(), CreateInput{DreamText: "mar", Save: true, Filename: "../../etc/cron.d/x.txt", Offline: true})

	require.NoError(t, err)
	require.Equal(t, "x.txt.out", out.OutputPath)
	require.Len(t, artifacts.saved, 1)
}

func TestCreate_OutputFailureIsSwallowed(t *testing.T) {
	svc := newTestSessionService(t, serviceDeps{artifacts: &fakeArtifacts{saveErr: errors.New("read-only fs")}})

	out, err := svc.Create(context.Background(), CreateInput{DreamText: "mar", Save: true, Offline: true})

	require.NoError(t, err)
	require.Empty(t, out.OutputPath)
	require.NotEmpty(t, out.SessionID)
}

func TestCreate_StoreFailureIsInternal(t *testing.T) {
	svc := newTestSessionService(t, serviceDeps{store: &memStore{createErr: errors.New("disk full")}})

	_, err := svc.Create(context.Background(), CreateInput{DreamText: "mar", Offline: true})

	expectCode(t, err, ErrorInternal)
}

func TestCreate_ProcessWideOfflineSkipsTitle(t *testing.T) {
	model := &recordingModel{reply: modelcall.Text("título")}
	svc := newTestSessionService(t, serviceDeps{model: model, cfg: SessionServiceConfig{ForceOffline: true}})

	out, err := svc.Create(context.Background(), CreateInput{DreamText: "mar"})

	require.NoError(t, err)
	require.Equal(t, DefaultTitle, out.Title)
	require.Equal(t, 0, model.calls())
	require.False(t, svc.ModelAvailable())
}

func TestInterpretFile(t *testing.T) {
	artifacts := &fakeArtifacts{files: map[string]string{"/dreams/a.txt": "Soñé con un bosque\n"}}
	svc := newTestSessionService(t, serviceDeps{artifacts: artifacts})

	out, err := svc.InterpretFile(context.Background(), InterpretFileInput{Path: "/dreams/a.txt", UserID: "alice"})
	require.NoError(t, err)
	require.Equal(t, "/dreams/a.txt.out", out.OutputPath)
	require.Contains(t, out.Interpretation, "búsqueda interna")

	_, err = svc.InterpretFile(context.Background(), InterpretFileInput{Path: "/missing.txt"})
	expectCode(t, err, ErrorInvalidInput)

	_, err = svc.InterpretFile(context.Background(), InterpretFileInput{Path: "  "})
	expectCode(t, err, ErrorInvalidInput)
}

func TestGet_OwnershipAndNotFound(t *testing.T) {
	store := &memStore{sessions: []domain.Session{
		{ID: "owned", UserID: "alice", Interpretation: "x"},
		{ID: "legacy", Interpretation: "y"},
	}}
	svc := newTestSessionService(t, serviceDeps{store: store})
	ctx := context.Background()

	got, err := svc.Get(ctx, "owned", "alice")
	require.NoError(t, err)
	require.Equal(t, "owned", got.ID)

	_, err = svc.Get(ctx, "owned", "bob")
	expectCode(t, err, ErrorForbidden)

	_, err = svc.Get(ctx, "legacy", "bob")
	require.NoError(t, err)

	_, err = svc.Get(ctx, "missing", "alice")
	expectCode(t, err, ErrorNotFound)
}

func TestGet_StoreErrorIsInternal(t *testing.T) {
	svc := newTestSessionService(t, serviceDeps{store: &memStore{getErr: errors.New("corrupt")}})

	_, err := svc.Get(context.Background(), "x", "alice")

	expectCode(t, err, ErrorInternal)
}

func TestAppendFollowup_GrowsHistory(t *testing.T) {
	store := &memStore{sessions: []domain.Session{{ID: "s", UserID: "alice", Interpretation: "x", Followups: []domain.Followup{}}}}
	svc := newTestSessionService(t, serviceDeps{store: store, model: &recordingModel{reply: modelcall.Text("respuesta")}})
	ctx := context.Background()

	prev := 0
	for i := 0; i < 3; i++ {
		answer, err := svc.AppendFollowup(ctx, FollowupInput{SessionID: "s", Question: "¿por qué?", UserID: "alice"})
		require.NoError(t, err)
		require.Equal(t, "respuesta", answer)

		got, _ := store.find("s")
		require.Greater(t, len(got.Followups), prev)
		prev = len(got.Followups)
	}
	got, _ := store.find("s")
	require.Equal(t, "¿por qué?", got.Followups[2].Question)
	require.Equal(t, fixedNow, got.Followups[2].At)
}

func TestAppendFollowup_ErrorClasses(t *testing.T) {
	base := func() *memStore {
		return &memStore{sessions: []domain.Session{{ID: "s", UserID: "alice", Interpretation: "x"}}}
	}
	cases := []struct {
		name  string
		model modelcall.Generator
		in    FollowupInput
		code  ErrorCode
	}{
		{name: "other owner", model: &recordingModel{reply: modelcall.Text("a")}, in: FollowupInput{SessionID: "s", Question: "q", UserID: "bob"}, code: ErrorForbidden},
		{name: "missing", model: &recordingModel{reply: modelcall.Text("a")}, in: FollowupInput{SessionID: "nope", Question: "q", UserID: "alice"}, code: ErrorNotFound},
		{name: "empty question", model: &recordingModel{reply: modelcall.Text("a")}, in: FollowupInput{SessionID: "s", Question: "  ", UserID: "alice"}, code: ErrorInvalidInput},
		{name: "no model", model: nil, in: FollowupInput{SessionID: "s", Question: "q", UserID: "alice"}, code: ErrorUpstreamUnavailable},
		{name: "timeout", model: &recordingModel{block: true}, in: FollowupInput{SessionID: "s", Question: "q", UserID: "alice"}, code: ErrorUpstreamTimeout},
		{name: "upstream", model: &recordingModel{err: errors.New("bad gateway")}, in: FollowupInput{SessionID: "s", Question: "q", UserID: "alice"}, code: ErrorUpstream},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := base()
			svc := newTestSessionService(t, serviceDeps{store: store, model: tc.model})

			answer, err := svc.AppendFollowup(context.Background(), tc.in)

			require.Empty(t, answer)
			expectCode(t, err, tc.code)
			got, _ := store.find("s")
			require.Empty(t, got.Followups)
		})
	}
}

func TestAppendFollowup_ReturnsAnswerWhenRecordFails(t *testing.T) {
	store := &memStore{
		sessions:  []domain.Session{{ID: "s", UserID: "alice", Interpretation: "x"}},
		appendErr: errors.New("write failed"),
	}
	svc := newTestSessionService(t, serviceDeps{store: store, model: &recordingModel{reply: modelcall.Text("ok")}})

	answer, err := svc.AppendFollowup(context.Background(), FollowupInput{SessionID: "s", Question: "q", UserID: "alice"})

	require.NoError(t, err)
	require.Equal(t, "ok", answer)
}

func TestDelete(t *testing.T) {
	store := &memStore{sessions: []domain.Session{{ID: "s", UserID: "alice"}}}
	svc := newTestSessionService(t, serviceDeps{store: store})
	ctx := context.Background()

	expectCode(t, svc.Delete(ctx, "does-not-exist", "alice"), ErrorNotFound)
	expectCode(t, svc.Delete(ctx, "s", "bob"), ErrorNotFound)
	_, stillThere := store.find("s")
	require.True(t, stillThere)

	require.NoError(t, svc.Delete(ctx, "s", "alice"))
	_, stillThere = store.find("s")
	require.False(t, stillThere)
	expectCode(t, svc.Delete(ctx, "s", "alice"), ErrorNotFound)
}

func TestListRecent_ClampsLimit(t *testing.T) {
	store := &memStore{}
	for i := 0; i < 60; i++ {
		store.sessions = append(store.sessions, domain.Session{
			ID:        string(rune('a'+i%26)) + string(rune('0'+i/26)),
			UserID:    "alice",
			CreatedAt: fixedNow.Add(time.Duration(i) * time.Minute),
			Title:     "t",
		})
	}
	store.sessions = append(store.sessions, domain.Session{ID: "bob1", UserID: "bob", CreatedAt: fixedNow.Add(time.Hour * 24)})
	svc := newTestSessionService(t, serviceDeps{store: store})
	ctx := context.Background()

	got, err := svc.ListRecent(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, fixedNow.Add(59*time.Minute), got[0].CreatedAt)

	got, err = svc.ListRecent(ctx, "alice", 500)
	require.NoError(t, err)
	require.Len(t, got, 50)
	for i := 1; i < len(got); i++ {
		require.False(t, got[i].CreatedAt.After(got[i-1].CreatedAt))
	}

	require.Equal(t, 1, ClampLimit(-3))
	require.Equal(t, 7, ClampLimit(7))
}

func TestListRecent_StoreErrorIsInternal(t *testing.T) {
	svc := newTestSessionService(t, serviceDeps{store: &memStore{listErr: errors.New("io")}})

	_, err := svc.ListRecent(context.Background(), "alice", 5)

	expectCode(t, err, ErrorInternal)
}

func TestCreate_MemoryGroundsNextInterpretation(t *testing.T) {
	model := &recordingModel{reply: modelcall.Text("Resumen simbólico: ok")}
	store := &memStore{sessions: []domain.Session{{
		ID:                    "earlier",
		UserID:                "alice",
		CreatedAt:             fixedNow.Add(-time.Hour),
		InterpretationSummary: "río recurrente",
	}, {
		ID:                    "someone-else",
		UserID:                "bob",
		CreatedAt:             fixedNow.Add(-time.Hour),
		InterpretationSummary: "secreto de bob",
	}}}
	svc := newTestSessionService(t, serviceDeps{store: store, model: model})

	_, err := svc.Create(context.Background(), CreateInput{DreamText: "otro río", UserID: "alice"})

	require.NoError(t, err)
	prompt := model.requests[0].Messages[1].Content
	require.Contains(t, prompt, "río recurrente")
	require.NotContains(t, prompt, "secreto de bob")
}
