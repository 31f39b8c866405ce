package generation_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rpggio/pagesmith/internal/domain/document"
	"github.com/rpggio/pagesmith/internal/generation"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
  "page": {"name": "Sunrise Bakery", "slug": "home", "seo": {"title": "Sunrise", "description": "Fresh bread", "keywords": ["bread", "bakery"]}},
  "components": [
    {"id": "hero-1", "type": "hero", "props": {"title": "Fresh every day", "views": 12345678901234567890}, "styles": {"textAlign": "center"}, "position": {"x": 0, "y": 0}, "size": {"width": 100, "height": 400}},
    {"id": "hero-1", "type": "carousel", "props": {}},
    {"type": "text", "props": {"content": "About us"}, "position": {"x": "left", "y": 10}},
    {"type": "footer"}
  ],
  "theme": {"colors": {"primary": "#ff8800"}, "fonts": {"heading": "Playfair Display"}, "borderRadius": {"lg": "2rem"}, "darkMode": true}
}`

func TestIngest_AcceptsValidResponse(t *testing.T) {
	result, err := generation.Ingest([]byte(sampleResponse))
	require.NoError(t, err)

	require.Equal(t, "Sunrise Bakery", result.Project.Name)
	require.Equal(t, "Sunrise Bakery", result.Page.Name)
	require.Equal(t, "home", result.Page.Slug)
	require.Equal(t, "Sunrise", result.Page.SEO.Title)
	require.Equal(t, []string{"bread", "bakery"}, result.Page.SEO.Keywords)

	components := result.Page.Components
	require.Len(t, components, 3)
	require.Equal(t, document.TypeHero, components[0].Type)
	require.Equal(t, document.TypeText, components[1].Type)
	require.Equal(t, document.TypeFooter, components[2].Type)

	seen := map[string]bool{}
	for _, c := range components {
		require.NotEqual(t, "hero-1", c.ID)
		_, err := uuid.Parse(c.ID)
		require.NoError(t, err)
		require.False(t, seen[c.ID])
		seen[c.ID] = true
	}

	require.Equal(t, json.Number("12345678901234567890"), components[0].Props["views"])
	require.Equal(t, document.Size{Width: 100, Height: 400}, components[0].Size)
	require.Equal(t, document.Position{X: 0, Y: 0}, components[1].Position)
	require.Equal(t, document.Size{Width: 100, Height: 300}, components[2].Size)
	require.Equal(t, document.Bag{}, components[2].Props)
}

func TestIngest_DropsUnknownType(t *testing.T) {
	result, err := generation.Ingest([]byte(sampleResponse))
	require.NoError(t, err)

	require.Len(t, result.Dropped, 1)
	require.Equal(t, "carousel", result.Dropped[0].Type)
	require.Equal(t, "components[1]", result.Dropped[0].Path)
	for _, c := range result.Page.Components {
		require.True(t, c.Type.Valid())
	}
}

func TestIngest_RejectUnknownPolicy(t *testing.T) {
	_, err := generation.Ingester{Policy: generation.RejectUnknown}.Ingest([]byte(sampleResponse))
	require.ErrorIs(t, err, generation.ErrGenerationInvalid)
}

func TestIngest_ThemeOverlay(t *testing.T) {
	result, err := generation.Ingest([]byte(sampleResponse))
	require.NoError(t, err)

	want := document.DefaultTheme()
	want.Colors.Primary = "#ff8800"
	want.Fonts.Heading = "Playfair Display"
	want.BorderRadius.LG = "2rem"
	want.DarkMode = true
	require.Equal(t, want, *result.Project.Theme)
}

func TestIngest_ThemeCamelCaseKeyWinsOverSnakeCase(t *testing.T) {
	const body = `{"page": {"name": "Both"}, "components": [],
	  "theme": {"colors": {"text_secondary": "#222222", "textSecondary": "#111111"}, "dark_mode": false, "darkMode": true}}`
	for i := 0; i < 20; i++ {
		result, err := generation.Ingest([]byte(body))
		require.NoError(t, err)
		require.Equal(t, "#111111", result.Project.Theme.Colors.TextSecondary)
		require.True(t, result.Project.Theme.DarkMode)
	}

	result, err := generation.Ingest([]byte(`{"page": {"name": "Snake"}, "components": [], "theme": {"colors": {"text_secondary": "#222222"}}}`))
	require.NoError(t, err)
	require.Equal(t, "#222222", result.Project.Theme.Colors.TextSecondary)
}

func TestIngest_MissingThemeUsesDefault(t *testing.T) {
	result, err := generation.Ingest([]byte(`{"page": {"name": "Plain"}, "components": []}`))
	require.NoError(t, err)
	require.Equal(t, document.DefaultTheme(), *result.Project.Theme)
	require.Equal(t, "plain", result.Page.Slug)
	require.Equal(t, "Plain", result.Page.SEO.Title)
	require.NotNil(t, result.Page.Components)
	require.Empty(t, result.Page.Components)
}

func TestIngest_SlugDerivation(t *testing.T) {
	result, err := generation.Ingest([]byte(`{"page": {"name": "My Bakery", "slug": "Home Page!"}}`))
	require.NoError(t, err)
	require.Equal(t, "home-page", result.Page.Slug)

	result, err = generation.Ingest([]byte(`{"page": {"name": "My Bakery"}}`))
	require.NoError(t, err)
	require.Equal(t, "my-bakery", result.Page.Slug)
}

func TestIngest_KeywordsAsString(t *testing.T) {
	result, err := generation.Ingest([]byte(`{"page": {"name": "X", "seo": {"keywords": "a, b ,, c"}}}`))
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, result.Page.SEO.Keywords)
}

func TestIngest_FencedResponse(t *testing.T) {
	raw := "```json\n{\"page\": {\"name\": \"Fenced\"}}\n```"
	result, err := generation.Ingest([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, "Fenced", result.Page.Name)
}

func TestIngest_NestedChildren(t *testing.T) {
	raw := `{"page": {"name": "Nested"}, "components": [
		{"type": "container", "children": [
			{"type": "button", "props": {"label": "Go"}},
			{"type": "marquee"}
		]}
	]}`
	result, err := generation.Ingest([]byte(raw))
	require.NoError(t, err)

	require.Len(t, result.Page.Components, 1)
	container := result.Page.Components[0]
	require.Len(t, container.Children, 1)
	require.Equal(t, document.TypeButton, container.Children[0].Type)
	require.NotEqual(t, container.ID, container.Children[0].ID)

	require.Len(t, result.Dropped, 1)
	require.Equal(t, "components[0].children[1]", result.Dropped[0].Path)
	require.NoError(t, document.ValidateTree(result.Page.Components))
}

func TestIngest_DropsMalformedEntries(t *testing.T) {
	raw := `{"page": {"name": "X"}, "components": [
		"hero",
		{"props": {}},
		{"type": "card", "props": ["not", "an", "object"]},
		{"type": "card", "styles": 5},
		{"type": "card"}
	]}`
	result, err := generation.Ingest([]byte(raw))
	require.NoError(t, err)
	require.Len(t, result.Page.Components, 1)
	require.Len(t, result.Dropped, 4)
}

func TestIngest_RejectsInvalidResponses(t *testing.T) {
	cases := map[string]string{
		"not json":          `Sure! Here is your site`,
		"null":              `null`,
		"array":             `[{"page": {"name": "x"}}]`,
		"missing page":      `{"components": []}`,
		"page not object":   `{"page": "home"}`,
		"empty name":        `{"page": {"name": "  "}}`,
		"name not string":   `{"page": {"name": 42}}`,
		"components object": `{"page": {"name": "x"}, "components": {"type": "hero"}}`,
		"theme not object":  `{"page": {"name": "x"}, "theme": "dark"}`,
		"seo not object":    `{"page": {"name": "x", "seo": []}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			result, err := generation.Ingest([]byte(raw))
			require.ErrorIs(t, err, generation.ErrGenerationInvalid)
			require.Nil(t, result)
		})
	}
}

func TestIngest_ResultIsCanonical(t *testing.T) {
	result, err := generation.Ingest([]byte(sampleResponse))
	require.NoError(t, err)

	page, err := document.Canonicalize(result.Page)
	require.NoError(t, err)
	require.Equal(t, result.Page, page)
}
