package document_test

import (
	"testing"

	"github.com/rpggio/pagesmith/internal/domain/document"
	"github.com/stretchr/testify/require"
)

func comp(id string, typ document.ComponentType, children ...document.Component) document.Component {
	return document.Component{
		ID:       id,
		Type:     typ,
		Props:    document.Bag{},
		Styles:   document.Bag{},
		Size:     document.Size{Width: 100, Height: 300},
		Children: children,
	}
}

func TestIsAcyclic(t *testing.T) {
	tree := comp("root", document.TypeContainer,
		comp("a", document.TypeText),
		comp("b", document.TypeContainer, comp("c", document.TypeButton)),
	)
	require.True(t, document.IsAcyclic(tree))

	cyclic := comp("root", document.TypeContainer,
		comp("a", document.TypeContainer, comp("root", document.TypeText)),
	)
	require.False(t, document.IsAcyclic(cyclic))

	// Same id in sibling branches is a duplicate, not a cycle.
	siblings := comp("root", document.TypeContainer,
		comp("x", document.TypeText),
		comp("y", document.TypeContainer, comp("x", document.TypeText)),
	)
	require.True(t, document.IsAcyclic(siblings))
	_, dup := document.DuplicateID([]document.Component{siblings})
	require.True(t, dup)
}

func TestValidateTree(t *testing.T) {
	valid := []document.Component{
		comp("a", document.TypeHero),
		comp("b", document.TypeContainer, comp("c", document.TypeCard)),
	}
	require.NoError(t, document.ValidateTree(valid))

	unknown := []document.Component{comp("a", "carousel")}
	err := document.ValidateTree(unknown)
	require.ErrorIs(t, err, document.ErrValidation)
	require.ErrorIs(t, err, document.ErrUnknownComponentType)

	nested := []document.Component{comp("a", document.TypeContainer, comp("b", "carousel"))}
	require.ErrorIs(t, document.ValidateTree(nested), document.ErrUnknownComponentType)

	dup := []document.Component{comp("a", document.TypeHero), comp("a", document.TypeText)}
	require.ErrorIs(t, document.ValidateTree(dup), document.ErrDuplicateComponentID)

	cycle := []document.Component{comp("a", document.TypeContainer, comp("a", document.TypeText))}
	require.ErrorIs(t, document.ValidateTree(cycle), document.ErrComponentCycle)

	noID := []document.Component{comp("", document.TypeHero)}
	require.ErrorIs(t, document.ValidateTree(noID), document.ErrValidation)
}

func TestValidComponent(t *testing.T) {
	tree := []document.Component{
		comp("a", document.TypeContainer, comp("b", document.TypeImage)),
	}
	require.True(t, document.ValidComponent(tree, "a"))
	require.True(t, document.ValidComponent(tree, "b"))
	require.False(t, document.ValidComponent(tree, "missing"))
}

func TestCanonicalize_RejectsUnencodable(t *testing.T) {
	c := comp("a", document.TypeText)
	c.Props["handler"] = func() {}
	_, err := document.Canonicalize(c)
	require.ErrorIs(t, err, document.ErrValidation)
	require.ErrorIs(t, err, document.ErrNotSerializable)
}

func TestValidateDrafts(t *testing.T) {
	require.ErrorIs(t, document.ValidateProjectDraft(document.ProjectDraft{Name: "  "}), document.ErrValidation)
	require.NoError(t, document.ValidateProjectDraft(document.ProjectDraft{Name: "Site"}))
	require.ErrorIs(t, document.ValidatePageDraft(document.PageDraft{}), document.ErrValidation)
	require.NoError(t, document.ValidatePageDraft(document.PageDraft{Name: "Home"}))
}
