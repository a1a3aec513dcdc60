package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"dream-agent/internal/observability"
)

const (
	DefaultImageStyle = "surrealista y onírico"
	DefaultImageSize  = "1024x1024"

	maxImagePromptLen   = 2000
	defaultImageTimeout = 60 * time.Second
)

// ErrNoImage is returned by image generators whose reply carried no image.
var ErrNoImage = errors.New("usecase: model returned no image")

type Image struct {
	Data     []byte
	MIMEType string
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (Image, error)
}

// SessionDecorator back-fills optional session fields on behalf of an owner.
type SessionDecorator interface {
	SetTitle(ctx context.Context, id, userID, title string) error
	SetImage(ctx context.Context, id, userID, imageURL string, at time.Time) error
}

type MediaService struct {
	images   ImageGenerator
	titles   *Titler
	sessions SessionDecorator
	timeout  time.Duration
	now      func() time.Time
}

type ImageInput struct {
	Description string
	Style       string
	Size        string
	SessionID   string
	UserID      string
}

type ImageOutput struct {
	ImageURL    string
	Description string
	Style       string
	Size        string
}

type TitleInput struct {
	Description string
	SessionID   string
	UserID      string
}

// NewMediaService wires optional generators. A nil images generator makes
// GenerateImage report UPSTREAM_UNAVAILABLE.
func NewMediaService(images ImageGenerator, titles *Titler, sessions SessionDecorator, imageTimeout time.Duration) (*MediaService, error) {
	if titles == nil {
		return nil, errors.New("usecase: titler must not be nil")
	}
	if sessions == nil {
		return nil, errors.New("usecase: session decorator must not be nil")
	}
	if imageTimeout <= 0 {
		imageTimeout = defaultImageTimeout
	}
	return &MediaService{
		images:   images,
		titles:   titles,
		sessions: sessions,
		timeout:  imageTimeout,
		now:      time.Now,
	}, nil
}

func (m *MediaService) GenerateImage(ctx context.Context, in ImageInput) (ImageOutput, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return ImageOutput{}, newError(ErrorInvalidInput, "empty_description", nil)
	}
	if m.images == nil {
		return ImageOutput{}, newError(ErrorUpstreamUnavailable, "image_model_unavailable", nil)
	}
	style := strings.TrimSpace(in.Style)
	if style == "" {
		style = DefaultImageStyle
	}
	size := strings.TrimSpace(in.Size)
	if size == "" {
		size = DefaultImageSize
	}

	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	img, err := m.images.GenerateImage(callCtx, imagePrompt(desc, style))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ImageOutput{}, newError(ErrorUpstreamTimeout, "image_timeout", err)
		}
		return ImageOutput{}, newError(ErrorUpstream, "image_model_error", err)
	}
	if len(img.Data) == 0 {
		return ImageOutput{}, newError(ErrorUpstream, "image_empty", ErrNoImage)
	}
	url := dataURL(img)

	if id := strings.TrimSpace(in.SessionID); id != "" {
		if err := m.sessions.SetImage(ctx, id, in.UserID, url, m.now().UTC()); err != nil {
			observability.LoggerFromContext(ctx).Warn("image back-fill skipped", "session_id", id, "err", err)
		}
	}

	return ImageOutput{ImageURL: url, Description: desc, Style: style, Size: size}, nil
}

// GenerateTitle returns a model title and, when SessionID is set, stores it
// on the caller's session. Generation failures are reported, not defaulted.
func (m *MediaService) GenerateTitle(ctx context.Context, in TitleInput) (string, error) {
	if strings.TrimSpace(in.Description) == "" {
		return "", newError(ErrorInvalidInput, "empty_description", nil)
	}
	if !m.titles.Available() {
		return "", newError(ErrorUpstreamUnavailable, "title_model_unavailable", nil)
	}
	title, err := m.titles.Title(ctx, in.Description)
	if err != nil {
		return "", err
	}
	if id := strings.TrimSpace(in.SessionID); id != "" {
		if err := m.sessions.SetTitle(ctx, id, in.UserID, title); err != nil {
			observability.LoggerFromContext(ctx).Warn("title back-fill skipped", "session_id", id, "err", err)
		}
	}
	return title, nil
}

func imagePrompt(description, style string) string {
	prompt := "Create a dream illustration with " + style + " style: " + description +
		". Concept art, dreamlike atmosphere, vibrant colors, high quality, detailed"
	if runes := []rune(prompt); len(runes) > maxImagePromptLen {
		prompt = string(runes[:maxImagePromptLen-3]) + "..."
	}
	return prompt
}

func dataURL(img Image) string {
	mime := "image/png"
	if strings.Contains(img.MIMEType, "jpeg") || strings.Contains(img.MIMEType, "jpg") {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
