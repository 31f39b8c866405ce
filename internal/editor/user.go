package editor

import (
	"context"
	"errors"
	"strings"

	"github.com/rpggio/pagesmith/internal/domain/document"
	"github.com/rpggio/pagesmith/internal/repository"
)

// Profile is the identity returned by a provider handshake.
type Profile struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Name     string            `json:"name"`
	Avatar   string            `json:"avatar,omitempty"`
	Provider document.Provider `json:"provider"`
}

// SignIn makes profile the current user, creating the user record on first
// sign-in and refreshing the display profile otherwise. Signing in as a
// different user clears the open project.
func (c *Controller) SignIn(ctx context.Context, profile Profile) (document.User, error) {
	if strings.TrimSpace(profile.ID) == "" {
		return document.User{}, document.Invalid("user.id", document.ErrInvalidInput, "id is required")
	}
	if !profile.Provider.Valid() {
		return document.User{}, document.Invalid("user.provider", document.ErrInvalidInput, "%q", profile.Provider)
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return document.User{}, ErrClosed
	}

	user, err := c.users.Get(ctx, profile.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		user = &document.User{
			ID:           profile.ID,
			Email:        profile.Email,
			Name:         profile.Name,
			Avatar:       profile.Avatar,
			Provider:     profile.Provider,
			Subscription: document.TierFree,
		}
		if err := c.users.Create(ctx, user); err != nil {
			return document.User{}, storeError("create", repository.KindUser, profile.ID, err)
		}
		c.logger.Info("user created", "user_id", user.ID, "provider", user.Provider)
	case err != nil:
		return document.User{}, storeError("read", repository.KindUser, profile.ID, err)
	default:
		patch := profilePatch(*user, profile)
		if !patch.IsEmpty() {
			rev, err := c.users.Update(ctx, user.ID, patch)
			if err != nil {
				return document.User{}, storeError("update", repository.KindUser, user.ID, err)
			}
			applyUserPatch(user, patch)
			user.Revision = rev
		}
	}

	c.mu.Lock()
	var cancels []repository.Unsubscribe
	if c.user != nil && c.user.ID != user.ID {
		cancels = c.resetGraphLocked()
	}
	u := *user
	c.user = &u
	c.mu.Unlock()

	runAll(cancels)
	return *user, nil
}

func profilePatch(user document.User, profile Profile) document.UserPatch {
	var patch document.UserPatch
	if profile.Email != "" && profile.Email != user.Email {
		patch.Email = &profile.Email
	}
	if profile.Name != "" && profile.Name != user.Name {
		patch.Name = &profile.Name
	}
	if profile.Avatar != user.Avatar {
		patch.Avatar = &profile.Avatar
	}
	return patch
}

func applyUserPatch(user *document.User, patch document.UserPatch) {
	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Avatar != nil {
		user.Avatar = *patch.Avatar
	}
	if patch.Subscription != nil {
		user.Subscription = *patch.Subscription
	}
}

// SignOut clears the current user and the document graph. Writes already
// issued still complete.
func (c *Controller) SignOut() {
	c.mu.Lock()
	cancels := c.resetGraphLocked()
	c.user = nil
	c.ui = UIState{SidebarOpen: true}
	c.mu.Unlock()
	runAll(cancels)
}

// CurrentUser returns the signed-in user.
func (c *Controller) CurrentUser() (document.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return document.User{}, false
	}
	return *c.user, true
}
