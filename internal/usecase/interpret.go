package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"dream-agent/internal/compactor"
	"dream-agent/internal/modelcall"
	"dream-agent/internal/observability"
)

// MemoryCompactor renders a user's recent sessions as model grounding.
type MemoryCompactor interface {
	Compact(ctx context.Context, userID string, limits compactor.Limits) string
}

type InterpreterConfig struct {
	Timeout      time.Duration
	Limits       compactor.Limits
	ForceOffline bool
}

// Interpreter produces interpretation text. It never fails for valid input:
// timeouts, provider errors and blank replies fall back to the offline text.
type Interpreter struct {
	model  modelcall.Generator
	memory MemoryCompactor
	cfg    InterpreterConfig
}

type InterpretInput struct {
	DreamText        string
	EmotionalContext string
	UserID           string
	Offline          bool
}

type Interpretation struct {
	Text string
	// Offline reports whether the deterministic fallback produced Text.
	Offline bool
}

func NewInterpreter(model modelcall.Generator, memory MemoryCompactor, cfg InterpreterConfig) (*Interpreter, error) {
	if memory == nil {
		return nil, errors.New("usecase: memory compactor must not be nil")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = modelcall.DefaultTimeout
	}
	if cfg.Limits == (compactor.Limits{}) {
		cfg.Limits = compactor.DefaultLimits()
	}
	return &Interpreter{model: model, memory: memory, cfg: cfg}, nil
}

// Available reports whether a model is wired and not forced offline.
func (i *Interpreter) Available() bool {
	return i.model != nil && !i.cfg.ForceOffline
}

func (i *Interpreter) Interpret(ctx context.Context, in InterpretInput) (Interpretation, error) {
	dream := strings.TrimSpace(in.DreamText)
	if dream == "" {
		return Interpretation{}, newError(ErrorInvalidInput, "empty_dream_text", nil)
	}
	if in.Offline || !i.Available() {
		return Interpretation{Text: OfflineInterpretation(dream, in.EmotionalContext), Offline: true}, nil
	}

	logger := observability.LoggerFromContext(ctx)
	memory := i.memory.Compact(ctx, in.UserID, i.cfg.Limits)
	temperature := interpretationTemperature
	text, err := modelcall.Call(ctx, i.model, modelcall.Request{
		Messages:    buildInterpretationMessages(dream, in.EmotionalContext, memory),
		Temperature: &temperature,
	}, i.cfg.Timeout)
	if err != nil {
		logger.Warn("interpretation fell back to offline text", "err", err, "timeout", errors.Is(err, modelcall.ErrTimeout))
		return Interpretation{Text: OfflineInterpretation(dream, in.EmotionalContext), Offline: true}, nil
	}
	return Interpretation{Text: text}, nil
}
