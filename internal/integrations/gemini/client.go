// Package gemini adapts the Google Gen AI SDK to the text and image ports of
// the dream engines.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"dream-agent/internal/domain"
	"dream-agent/internal/modelcall"
	"dream-agent/internal/usecase"
)

const (
	DefaultTextModel  = "gemini-2.5-flash"
	DefaultImageModel = "gemini-2.5-flash-image"
)

// modelsAPI is the part of *genai.Models the client uses.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	models     modelsAPI
	textModel  string
	imageModel string
}

type Option func(*Client)

func WithTextModel(name string) Option {
	return func(c *Client) {
		if n := strings.TrimSpace(name); n != "" {
			c.textModel = n
		}
	}
}

func WithImageModel(name string) Option {
	return func(c *Client) {
		if n := strings.TrimSpace(name); n != "" {
			c.imageModel = n
		}
	}
}

// NewClient creates a Gemini API client authenticated with apiKey.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: API key must not be empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return newClient(client.Models, opts...), nil
}

func newClient(models modelsAPI, opts ...Option) *Client {
	c := &Client{models: models, textModel: DefaultTextModel, imageModel: DefaultImageModel}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate implements modelcall.Generator. System messages become the
// system instruction; assistant turns are sent with the model role.
func (c *Client) Generate(ctx context.Context, req modelcall.Request) (modelcall.Reply, error) {
	var (
		system   []string
		contents []*genai.Content
	)
	for _, m := range req.Messages {
		switch m.Role {
		case domain.RoleSystem:
			system = append(system, m.Content)
		case domain.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		cfg.Temperature = &temp
	}

	res, err := c.models.GenerateContent(ctx, c.textModel, contents, cfg)
	if err != nil {
		return modelcall.Reply{}, fmt.Errorf("gemini generate content: %w", err)
	}
	return modelcall.Text(res.Text()), nil
}

// GenerateImage implements usecase.ImageGenerator and returns the first
// inline image part of the reply.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (usecase.Image, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	res, err := c.models.GenerateContent(ctx, c.imageModel, contents, cfg)
	if err != nil {
		return usecase.Image{}, fmt.Errorf("gemini generate image: %w", err)
	}
	if res == nil {
		return usecase.Image{}, usecase.ErrNoImage
	}
	for _, cand := range res.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return usecase.Image{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}, nil
			}
		}
	}
	return usecase.Image{}, usecase.ErrNoImage
}
