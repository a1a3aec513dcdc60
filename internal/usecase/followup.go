package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"dream-agent/internal/domain"
	"dream-agent/internal/modelcall"
)

const defaultFollowupHistory = 5

// FollowupEngine answers questions about a stored session. Unlike
// Interpreter it has no fallback; every failure is classified and returned.
type FollowupEngine struct {
	model   modelcall.Generator
	timeout time.Duration
	history int
}

func NewFollowupEngine(model modelcall.Generator, timeout time.Duration, history int) *FollowupEngine {
	if timeout <= 0 {
		timeout = modelcall.DefaultTimeout
	}
	if history <= 0 {
		history = defaultFollowupHistory
	}
	return &FollowupEngine{model: model, timeout: timeout, history: history}
}

func (f *FollowupEngine) Available() bool {
	return f.model != nil
}

func (f *FollowupEngine) Answer(ctx context.Context, s domain.Session, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", newError(ErrorInvalidInput, "empty_question", nil)
	}
	temperature := followupTemperature
	answer, err := modelcall.Call(ctx, f.model, modelcall.Request{
		Messages:    buildFollowupMessages(s, question, followupHistory(s.Followups, f.history)),
		Temperature: &temperature,
	}, f.timeout)
	if err != nil {
		return "", classifyModelError(err, "followup")
	}
	return answer, nil
}

func classifyModelError(err error, op string) *Error {
	switch {
	case errors.Is(err, modelcall.ErrUnavailable):
		return newError(ErrorUpstreamUnavailable, op+"_model_unavailable", err)
	case errors.Is(err, modelcall.ErrTimeout):
		return newError(ErrorUpstreamTimeout, op+"_timeout", err)
	default:
		return newError(ErrorUpstream, op+"_model_error", err)
	}
}
