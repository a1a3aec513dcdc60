package modelcall

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dream-agent/internal/domain"
)

// DefaultTimeout bounds a single model call when the caller does not set one.
const DefaultTimeout = 20 * time.Second

var (
	// ErrTimeout means the bound elapsed before the provider answered. The
	// provider call may still be running; its result is discarded.
	ErrTimeout = errors.New("modelcall: call timed out")
	// ErrUnavailable means no provider is configured.
	ErrUnavailable = errors.New("modelcall: no model configured")
	// ErrEmptyReply means the provider answered with blank text.
	ErrEmptyReply = errors.New("modelcall: empty reply")
)

// Request is a single prompt for a provider.
type Request struct {
	Messages    []domain.ChatMessage
	Temperature *float64
}

// Generator is implemented by every text model integration.
type Generator interface {
	Generate(ctx context.Context, req Request) (Reply, error)
}

type result struct {
	reply Reply
	err   error
}

// Call invokes g once and waits at most timeout for its reply. The provider
// runs in its own goroutine with a context that is cancelled when Call
// returns, so providers that honour ctx stop early and those that don't are
// simply abandoned. No retries are made.
//
// Errors are classified: ErrUnavailable, ErrTimeout, ErrEmptyReply, or a
// wrapped provider error for any other failure.
func Call(ctx context.Context, g Generator, req Request, timeout time.Duration) (string, error) {
	if g == nil {
		return "", ErrUnavailable
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: fmt.Errorf("modelcall: provider panic: %v", p)}
			}
		}()
		reply, err := g.Generate(callCtx, req)
		done <- result{reply: reply, err: err}
	}()

	select {
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return "", fmt.Errorf("modelcall: %w", callCtx.Err())
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) {
				return "", fmt.Errorf("%w: %v", ErrTimeout, res.err)
			}
			return "", fmt.Errorf("modelcall: generate: %w", res.err)
		}
		text := res.reply.String()
		if strings.TrimSpace(text) == "" {
			return "", ErrEmptyReply
		}
		return text, nil
	}
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (Reply, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (Reply, error) {
	return f(ctx, req)
}
