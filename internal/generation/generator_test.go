package generation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/pagesmith/internal/domain/document"
	"github.com/rpggio/pagesmith/internal/generation"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockText struct {
	mock.Mock
}

func (m *mockText) Generate(ctx context.Context, prompt string, format generation.Format) (string, error) {
	args := m.Called(ctx, prompt, format)
	return args.String(0), args.Error(1)
}

func TestGenerator_GenerateSite(t *testing.T) {
	text := &mockText{}
	text.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return len(p) > 0
	}), generation.FormatJSON).Return(`{"page": {"name": "Studio"}, "components": [{"type": "navbar"}]}`, nil)

	g := generation.NewGenerator(text, nil)
	result, err := g.GenerateSite(context.Background(), generation.Request{Description: "a photo studio", Style: "minimal"})
	require.NoError(t, err)
	require.Equal(t, "a photo studio", result.Project.Description)
	require.Len(t, result.Page.Components, 1)
	text.AssertExpectations(t)
}

func TestGenerator_GenerateSiteErrors(t *testing.T) {
	g := generation.NewGenerator(&mockText{}, nil)
	_, err := g.GenerateSite(context.Background(), generation.Request{})
	require.ErrorIs(t, err, document.ErrValidation)

	text := &mockText{}
	text.On("Generate", mock.Anything, mock.Anything, generation.FormatJSON).Return("", generation.ErrServiceFailed).Once()
	g = generation.NewGenerator(text, nil)
	_, err = g.GenerateSite(context.Background(), generation.Request{Description: "x"})
	require.ErrorIs(t, err, generation.ErrGenerationInvalid)

	text.On("Generate", mock.Anything, mock.Anything, generation.FormatJSON).Return(`[]`, nil).Once()
	_, err = g.GenerateSite(context.Background(), generation.Request{Description: "x"})
	require.ErrorIs(t, err, generation.ErrGenerationInvalid)
}

func TestGenerator_EnhanceComponent(t *testing.T) {
	text := &mockText{}
	text.On("Generate", mock.Anything, mock.Anything, generation.FormatJSON).Return(`{"type": "hero", "props": {"title": "Bold"}}`, nil)

	g := generation.NewGenerator(text, nil)
	merged, err := g.EnhanceComponent(context.Background(), cardComponent(), "make it bold")
	require.NoError(t, err)
	require.Equal(t, document.TypeCard, merged.Type)
	require.Equal(t, "Bold", merged.Props["title"])

	_, err = g.EnhanceComponent(context.Background(), cardComponent(), " ")
	require.ErrorIs(t, err, document.ErrValidation)
}

func TestGenerator_GenerateCopy(t *testing.T) {
	text := &mockText{}
	text.On("Generate", mock.Anything, mock.Anything, generation.FormatText).Return("  Hello world \n", nil).Once()
	text.On("Generate", mock.Anything, mock.Anything, generation.FormatText).Return("", nil).Once()
	text.On("Generate", mock.Anything, mock.Anything, generation.FormatText).Return("", errors.New("boom")).Once()

	g := generation.NewGenerator(text, nil)
	copyText, err := g.GenerateCopy(context.Background(), "tagline", "bakery")
	require.NoError(t, err)
	require.Equal(t, "Hello world", copyText)

	copyText, err = g.GenerateCopy(context.Background(), "tagline", "bakery")
	require.NoError(t, err)
	require.Equal(t, "Generated content not available", copyText)

	_, err = g.GenerateCopy(context.Background(), "tagline", "bakery")
	require.Error(t, err)
}
