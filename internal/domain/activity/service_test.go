package activity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/pagesmith/internal/domain/activity"
	"github.com/rpggio/pagesmith/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestActivityService_LogAndList(t *testing.T) {
	ctx := context.Background()
	ownerID := "user1"

	repo := &mocks.ActivityRepository{}
	entry := &activity.ActivityEntry{
		ProjectID:    "proj1",
		ActivityType: activity.TypePageCreated,
		Summary:      "created page home",
		Revision:     1,
	}

	repo.On("Log", ctx, ownerID, entry).Return(nil)
	repo.On("List", ctx, ownerID, activity.ListActivityOptions{ProjectID: "proj1", Limit: 50}).Return([]activity.ActivityEntry{*entry}, nil)

	svc := activity.NewService(repo, nil)
	require.NoError(t, svc.LogActivity(ctx, ownerID, entry))
	require.False(t, entry.CreatedAt.IsZero())

	entries, err := svc.GetRecentActivity(ctx, ownerID, activity.ListActivityOptions{ProjectID: "proj1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	repo.AssertExpectations(t)
}

func TestActivityService_RejectsIncompleteEntry(t *testing.T) {
	svc := activity.NewService(&mocks.ActivityRepository{}, nil)
	require.ErrorIs(t, svc.LogActivity(context.Background(), "user1", nil), activity.ErrInvalidInput)
	require.ErrorIs(t, svc.LogActivity(context.Background(), "user1", &activity.ActivityEntry{ActivityType: activity.TypePageCreated}), activity.ErrInvalidInput)
}

func TestActivityService_WrapsRepositoryError(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	boom := errors.New("disk full")
	repo.On("Log", mock.Anything, "user1", mock.Anything).Return(boom)

	svc := activity.NewService(repo, nil)
	err := svc.LogActivity(context.Background(), "user1", &activity.ActivityEntry{ProjectID: "p1", ActivityType: activity.TypeProjectUpdated})
	require.ErrorIs(t, err, boom)
}
