package api

import (
	"context"
	"net/http"

	"lin/internal/core"
	"lin/internal/eventbus"
)

const notificationsPath = "/notifications"

func (c *Client) NotificationSettings(ctx context.Context) (core.NotificationSettings, error) {
	return get[core.NotificationSettings](ctx, c, notificationsPath+"/settings", nil)
}

// UpdateNotificationSettings applies the non-nil fields of p.
func (c *Client) UpdateNotificationSettings(ctx context.Context, p core.NotificationSettingsPatch) (core.NotificationSettings, error) {
	if err := p.Validate(); err != nil {
		return core.NotificationSettings{}, err
	}
	settings, err := sendJSON[core.NotificationSettings](ctx, c, http.MethodPut, notificationsPath+"/settings", p)
	if err != nil {
		return core.NotificationSettings{}, err
	}
	c.publish(eventbus.NotificationsUpdated, settings)
	return settings, nil
}

// NotificationPreview returns what today's summary email would contain.
func (c *Client) NotificationPreview(ctx context.Context) (core.DailySummary, error) {
	return get[core.DailySummary](ctx, c, notificationsPath+"/preview", nil)
}

// SendTestNotification mails the summary to the current user and returns
// the backend's message.
func (c *Client) SendTestNotification(ctx context.Context) (string, error) {
	env, err := c.do(ctx, request{method: http.MethodPost, path: notificationsPath + "/test"}, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}
