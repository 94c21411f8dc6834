package api

import (
	"context"
	"net/http"

	"lin/internal/core"
	"lin/internal/eventbus"
)

const mePath = "/users/me"

// Profile returns the logged-in user's profile.
func (c *Client) Profile(ctx context.Context) (core.Profile, error) {
	return get[core.Profile](ctx, c, mePath, nil)
}

func (c *Client) UpdateProfile(ctx context.Context, p core.ProfilePatch) (core.Profile, error) {
	if err := p.Validate(); err != nil {
		return core.Profile{}, err
	}
	profile, err := sendJSON[core.Profile](ctx, c, http.MethodPut, mePath, p)
	if err != nil {
		return core.Profile{}, err
	}
	c.publish(eventbus.ProfileUpdated, profile)
	return profile, nil
}

// UploadAvatar replaces the profile picture.
func (c *Client) UploadAvatar(ctx context.Context, image Upload) (core.Profile, error) {
	r, err := multipartRequest(mePath+"/avatar", image)
	if err != nil {
		return core.Profile{}, err
	}
	var profile core.Profile
	if _, err := c.do(ctx, r, &profile); err != nil {
		return core.Profile{}, err
	}
	c.publish(eventbus.ProfileUpdated, profile)
	return profile, nil
}

func (c *Client) DeleteAvatar(ctx context.Context) error {
	if err := c.remove(ctx, mePath+"/avatar"); err != nil {
		return err
	}
	c.publish(eventbus.ProfileUpdated, nil)
	return nil
}

func (c *Client) Preferences(ctx context.Context) (core.Preferences, error) {
	return get[core.Preferences](ctx, c, mePath+"/preferences", nil)
}

// UpdatePreferences applies the non-nil fields of p.
func (c *Client) UpdatePreferences(ctx context.Context, p core.PreferencesPatch) (core.Preferences, error) {
	if err := p.Validate(); err != nil {
		return core.Preferences{}, err
	}
	prefs, err := sendJSON[core.Preferences](ctx, c, http.MethodPut, mePath+"/preferences", p)
	if err != nil {
		return core.Preferences{}, err
	}
	c.publish(eventbus.PreferencesUpdated, prefs)
	return prefs, nil
}

// DeleteAccount permanently deletes the account, then logs out locally.
func (c *Client) DeleteAccount(ctx context.Context) error {
	if err := c.remove(ctx, mePath); err != nil {
		return err
	}
	return c.Logout(ctx)
}
