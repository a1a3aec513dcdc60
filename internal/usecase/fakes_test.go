package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"dream-agent/internal/compactor"
	"dream-agent/internal/domain"
	"dream-agent/internal/modelcall"
)

type memStore struct {
	mu       sync.Mutex
	sessions []domain.Session

	createErr error
	getErr    error
	listErr   error
	appendErr error
	deleteErr error

	creates int
	appends int
}

func (m *memStore) CreateSession(_ context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	m.sessions = append(m.sessions, s)
	return nil
}

func (m *memStore) GetSession(_ context.Context, id string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.Session{}, m.getErr
	}
	for _, s := range m.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return domain.Session{}, domain.ErrSessionNotFound
}

func (m *memStore) ListRecent(_ context.Context, userID string, limit int) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Session
	for _, s := range m.sessions {
		if userID == "" || s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) AppendFollowup(_ context.Context, id string, f domain.Followup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appends++
	if m.appendErr != nil {
		return m.appendErr
	}
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			m.sessions[i].Followups = append(m.sessions[i].Followups, f)
			return nil
		}
	}
	return domain.ErrSessionNotFound
}

func (m *memStore) DeleteSession(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for i, s := range m.sessions {
		if s.ID == id && s.AccessibleBy(userID) {
			m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)
			return nil
		}
	}
	return domain.ErrSessionNotFound
}

func (m *memStore) SetTitle(_ context.Context, id, userID, title string) error {
	return m.update(id, userID, func(s *domain.Session) { s.Title = title })
}

func (m *memStore) SetImage(_ context.Context, id, userID, imageURL string, at time.Time) error {
	return m.update(id, userID, func(s *domain.Session) {
		s.ImageURL = imageURL
		s.ImageGeneratedAt = &at
	})
}

func (m *memStore) update(id, userID string, apply func(*domain.Session)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sessions {
		if m.sessions[i].ID == id && m.sessions[i].AccessibleBy(userID) {
			apply(&m.sessions[i])
			return nil
		}
	}
	return domain.ErrSessionNotFound
}

func (m *memStore) find(id string) (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ID == id {
			return s, true
		}
	}
	return domain.Session{}, false
}

type fakeMemory struct {
	blob    string
	gotUser string
	calls   int
}

func (f *fakeMemory) Compact(_ context.Context, userID string, _ compactor.Limits) string {
	f.calls++
	f.gotUser = userID
	return f.blob
}

type fakeArtifacts struct {
	files   map[string]string
	saved   map[string]string
	readErr error
	saveErr error
}

func (f *fakeArtifacts) ReadDream(path string) (string, error) {
	if f.readErr != nil {
		return "", f.readErr
	}
	text, ok := f.files[path]
	if !ok {
		return "", errors.New("no such file")
	}
	return text, nil
}

func (f *fakeArtifacts) SaveInterpretation(source, text string) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	out := source + ".out"
	f.saved[out] = text
	return out, nil
}

type recordingModel struct {
	mu       sync.Mutex
	reply    modelcall.Reply
	err      error
	block    bool
	requests []modelcall.Request
}

func (r *recordingModel) Generate(ctx context.Context, req modelcall.Request) (modelcall.Reply, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()
	if r.block {
		<-ctx.Done()
		return modelcall.Reply{}, ctx.Err()
	}
	return r.reply, r.err
}

func (r *recordingModel) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func (r *recordingModel) lastPrompt() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		return ""
	}
	out := ""
	for _, m := range r.requests[len(r.requests)-1].Messages {
		out += m.Content + "\n"
	}
	return out
}

var fixedNow = time.Date(2025, 5, 4, 3, 2, 1, 0, time.UTC)
