package usecase

import (
	"context"
	"strings"
	"time"

	"dream-agent/internal/modelcall"
	"dream-agent/internal/observability"
)

// DefaultTitle labels sessions whose title could not be generated.
const DefaultTitle = "Sueño interpretado"

const maxTitleLen = 60

type Titler struct {
	model   modelcall.Generator
	timeout time.Duration
}

func NewTitler(model modelcall.Generator, timeout time.Duration) *Titler {
	if timeout <= 0 {
		timeout = modelcall.DefaultTimeout
	}
	return &Titler{model: model, timeout: timeout}
}

func (t *Titler) Available() bool {
	return t.model != nil
}

// Title asks the model for a short label for description.
func (t *Titler) Title(ctx context.Context, description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", newError(ErrorInvalidInput, "empty_description", nil)
	}
	temperature := titleTemperature
	raw, err := modelcall.Call(ctx, t.model, modelcall.Request{
		Messages:    buildTitleMessages(description),
		Temperature: &temperature,
	}, t.timeout)
	if err != nil {
		return "", classifyModelError(err, "title")
	}
	title := cleanTitle(raw)
	if title == "" {
		return "", newError(ErrorUpstream, "title_empty", modelcall.ErrEmptyReply)
	}
	return title, nil
}

// TitleOrDefault never fails; any error yields DefaultTitle.
func (t *Titler) TitleOrDefault(ctx context.Context, description string) string {
	title, err := t.Title(ctx, description)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("title generation failed, using default", "err", err)
		return DefaultTitle
	}
	return title
}

func cleanTitle(raw string) string {
	title := strings.Trim(strings.Trim(strings.TrimSpace(raw), `"`), "'")
	if runes := []rune(title); len(runes) > maxTitleLen {
		title = string(runes[:maxTitleLen-3]) + "..."
	}
	return title
}
