package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"dream-agent/internal/domain"
	"dream-agent/internal/modelcall"
	"dream-agent/internal/usecase"
)

type fakeModels struct {
	res *genai.GenerateContentResponse
	err error

	model    string
	contents []*genai.Content
	cfg      *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model, f.contents, f.cfg = model, contents, cfg
	return f.res, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: genai.NewContentFromText(text, genai.RoleModel),
	}}}
}

func TestGenerate_MapsRolesAndTemperature(t *testing.T) {
	models := &fakeModels{res: textResponse("Un bosque oscuro sugiere cambio.")}
	c := newClient(models, WithTextModel("gemini-test"))

	temp := 0.5
	reply, err := c.Generate(context.Background(), modelcall.Request{
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: "Eres analista."},
			{Role: domain.RoleUser, Content: "Soñé con un bosque."},
			{Role: domain.RoleAssistant, Content: "Cuéntame más."},
			{Role: domain.RoleUser, Content: "Estaba oscuro."},
		},
		Temperature: &temp,
	})
	require.NoError(t, err)
	require.Equal(t, "Un bosque oscuro sugiere cambio.", reply.String())

	require.Equal(t, "gemini-test", models.model)
	require.Len(t, models.contents, 3)
	require.Equal(t, string(genai.RoleUser), models.contents[0].Role)
	require.Equal(t, string(genai.RoleModel), models.contents[1].Role)
	require.Equal(t, "Eres analista.", models.cfg.SystemInstruction.Parts[0].Text)
	require.NotNil(t, models.cfg.Temperature)
	require.InDelta(t, 0.5, float64(*models.cfg.Temperature), 1e-6)
}

func TestGenerate_NoSystemNoTemperature(t *testing.T) {
	models := &fakeModels{res: textResponse("ok")}
	c := newClient(models)

	_, err := c.Generate(context.Background(), modelcall.Request{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "hola"}},
	})
	require.NoError(t, err)
	require.Equal(t, DefaultTextModel, models.model)
	require.Nil(t, models.cfg.SystemInstruction)
	require.Nil(t, models.cfg.Temperature)
}

func TestGenerate_Error(t *testing.T) {
	c := newClient(&fakeModels{err: errors.New("quota")})
	_, err := c.Generate(context.Background(), modelcall.Request{})
	require.ErrorContains(t, err, "quota")
}

func TestGenerateImage_ReturnsFirstInlinePart(t *testing.T) {
	models := &fakeModels{res: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "Aquí tienes la imagen"},
			{InlineData: &genai.Blob{Data: []byte{0x89, 0x50}, MIMEType: "image/png"}},
		}},
	}}}}
	c := newClient(models, WithImageModel("img-test"))

	img, err := c.GenerateImage(context.Background(), "Create a dream illustration")
	require.NoError(t, err)
	require.Equal(t, []byte{0x89, 0x50}, img.Data)
	require.Equal(t, "image/png", img.MIMEType)
	require.Equal(t, "img-test", models.model)
	require.Equal(t, []string{"TEXT", "IMAGE"}, models.cfg.ResponseModalities)
}

func TestGenerateImage_NoImage(t *testing.T) {
	c := newClient(&fakeModels{res: textResponse("no puedo")})
	_, err := c.GenerateImage(context.Background(), "x")
	require.ErrorIs(t, err, usecase.ErrNoImage)

	c = newClient(&fakeModels{res: &genai.GenerateContentResponse{}})
	_, err = c.GenerateImage(context.Background(), "x")
	require.ErrorIs(t, err, usecase.ErrNoImage)
}

func TestGenerateImage_Error(t *testing.T) {
	c := newClient(&fakeModels{err: errors.New("blocked")})
	_, err := c.GenerateImage(context.Background(), "x")
	require.ErrorContains(t, err, "blocked")
}

func TestNewClient_EmptyKey(t *testing.T) {
	_, err := NewClient(context.Background(), " ")
	require.Error(t, err)
}
