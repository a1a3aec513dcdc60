package paramstore

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Parameter names under the deployment prefix.
const (
	OpenAITokenParam = "open-ai-token"
	GeminiTokenParam = "gemini-token"
	JWTSecretParam   = "jwt-secret"
)

// Secret is a single token parameter. It is fetched on the first Resolve and
// the result, error included, is reused for the lifetime of the process.
type Secret struct {
	reader TokenReader
	name   string

	once  sync.Once
	value string
	err   error
}

func NewSecret(reader TokenReader, name string) (*Secret, error) {
	if reader == nil {
		return nil, errors.New("paramstore: token reader must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("paramstore: token name is required")
	}
	return &Secret{reader: reader, name: name}, nil
}

// ParamName joins a deployment prefix such as "/dream-agent" with a
// parameter name.
func ParamName(prefix, name string) string {
	return strings.TrimRight(strings.TrimSpace(prefix), "/") + "/" + name
}

func (s *Secret) Name() string { return s.name }

func (s *Secret) Resolve(ctx context.Context) (string, error) {
	s.once.Do(func() {
		s.value, s.err = s.reader.Token(ctx, s.name)
	})
	return s.value, s.err
}
