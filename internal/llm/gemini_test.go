package llm

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
)

func geminiResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(text, genai.RoleModel)},
		},
	}
}

func TestGeminiGenerator_Generate(t *testing.T) {
	api := new(MockContentAPI)
	g := &GeminiGenerator{api: api, model: "gemini-2.0-flash"}

	api.On("GenerateContent", mock.Anything, "gemini-2.0-flash", genai.Text("prompt"),
		mock.MatchedBy(func(cfg *genai.GenerateContentConfig) bool {
			return cfg.Temperature != nil && *cfg.Temperature == 0
		})).Return(geminiResponse("weak in optics"), nil)

	text, err := g.Generate(context.Background(), "prompt")

	require.NoError(t, err)
	assert.Equal(t, "weak in optics", text)
	api.AssertExpectations(t)
}

func TestGeminiGenerator_Errors(t *testing.T) {
	api := new(MockContentAPI)
	g := &GeminiGenerator{api: api}

	api.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, genai.APIError{Code: http.StatusTooManyRequests, Message: "quota"}).Once()
	api.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&genai.GenerateContentResponse{}, nil).Once()
	api.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(geminiResponse(" "), nil).Once()

	_, err := g.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.True(t, Retryable(err))

	_, err = g.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)

	_, err = g.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}
