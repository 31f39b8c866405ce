package document_test

import (
	"testing"

	"github.com/rpggio/pagesmith/internal/domain/document"
	"github.com/stretchr/testify/require"
)

func sampleTree() []document.Component {
	return []document.Component{
		comp("nav", document.TypeNavbar),
		comp("body", document.TypeContainer, comp("card1", document.TypeCard), comp("card2", document.TypeCard)),
		comp("foot", document.TypeFooter),
	}
}

func TestFindComponent(t *testing.T) {
	c, ok := document.FindComponent(sampleTree(), "card2")
	require.True(t, ok)
	require.Equal(t, document.TypeCard, c.Type)

	_, ok = document.FindComponent(sampleTree(), "nope")
	require.False(t, ok)
}

func TestReplaceComponent(t *testing.T) {
	tree := sampleTree()
	next := comp("card1", document.TypeCard)
	next.Props["title"] = "Updated"

	out, ok := document.ReplaceComponent(tree, next)
	require.True(t, ok)
	got, _ := document.FindComponent(out, "card1")
	require.Equal(t, "Updated", got.Props["title"])

	orig, _ := document.FindComponent(tree, "card1")
	require.Nil(t, orig.Props["title"])
}

func TestRemoveComponent(t *testing.T) {
	tree := sampleTree()
	out, ok := document.RemoveComponent(tree, "card1")
	require.True(t, ok)
	_, found := document.FindComponent(out, "card1")
	require.False(t, found)
	_, found = document.FindComponent(tree, "card1")
	require.True(t, found)

	out, ok = document.RemoveComponent(tree, "body")
	require.True(t, ok)
	require.Len(t, out, 2)
	_, found = document.FindComponent(out, "card2")
	require.False(t, found)

	_, ok = document.RemoveComponent(tree, "nope")
	require.False(t, ok)
}

func TestReorder(t *testing.T) {
	out, err := document.Reorder(sampleTree(), []string{"foot", "nav", "body"})
	require.NoError(t, err)
	require.Equal(t, "foot", out[0].ID)
	require.Equal(t, "nav", out[1].ID)
	require.Equal(t, "body", out[2].ID)
	require.Len(t, out[2].Children, 2)

	_, err = document.Reorder(sampleTree(), []string{"foot", "nav"})
	require.ErrorIs(t, err, document.ErrValidation)
	_, err = document.Reorder(sampleTree(), []string{"foot", "nav", "nav"})
	require.ErrorIs(t, err, document.ErrDuplicateComponentID)
	_, err = document.Reorder(sampleTree(), []string{"foot", "nav", "card1"})
	require.ErrorIs(t, err, document.ErrComponentNotFound)
}

func TestDefaultTheme(t *testing.T) {
	theme := document.DefaultTheme()
	require.Equal(t, "#6366f1", theme.Colors.Accent)
	require.Equal(t, "Cal Sans", theme.Fonts.Heading)
	require.Equal(t, "Inter", theme.Fonts.Body)
	require.Equal(t, "3rem", theme.Spacing.XL)
	require.False(t, theme.DarkMode)
}
