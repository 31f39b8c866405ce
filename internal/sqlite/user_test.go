package sqlite

import (
	"context"
	"testing"

	"github.com/rpggio/pagesmith/internal/domain/document"
	"github.com/rpggio/pagesmith/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateGetUpdate(t *testing.T) {
	db := NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &document.User{
		ID:       "u1",
		Email:    "ada@example.com",
		Name:     "Ada",
		Provider: document.ProviderGitHub,
	}
	require.NoError(t, repo.Create(ctx, user))
	require.Equal(t, int64(1), user.Revision)
	require.Equal(t, document.TierFree, user.Subscription)

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, *user, *got)

	name := "Ada L."
	tier := document.TierPro
	rev, err := repo.Update(ctx, "u1", document.UserPatch{Name: &name, Subscription: &tier})
	require.NoError(t, err)
	require.Equal(t, int64(2), rev)

	got, err = repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "Ada L.", got.Name)
	require.Equal(t, document.TierPro, got.Subscription)
	require.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestUserRepository_Errors(t *testing.T) {
	db := NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	_, err := repo.Get(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)

	name := "x"
	_, err = repo.Update(ctx, "missing", document.UserPatch{Name: &name})
	require.ErrorIs(t, err, repository.ErrNotFound)

	err = repo.Create(ctx, &document.User{ID: "u2", Provider: "myspace"})
	require.ErrorIs(t, err, repository.ErrInvalidInput)

	require.NoError(t, repo.Create(ctx, &document.User{ID: "u3", Provider: document.ProviderGoogle}))
	err = repo.Create(ctx, &document.User{ID: "u3", Provider: document.ProviderGoogle})
	require.ErrorIs(t, err, repository.ErrDuplicate)
}
