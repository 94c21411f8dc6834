package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"lin/internal/core"
	"lin/internal/eventbus"
)

const (
	dailyPath   = "/daily-updates"
	sessionPath = dailyPath + "/sessions"
	pendingPath = dailyPath + "/pending"
)

// StartSession opens a daily-update conversation.
func (c *Client) StartSession(ctx context.Context) (core.DailySession, error) {
	return sendJSON[core.DailySession](ctx, c, http.MethodPost, sessionPath+"/start", nil)
}

// ActiveSession returns the running session. A 404 means there is none;
// check it with IsNotFound.
func (c *Client) ActiveSession(ctx context.Context) (core.DailySession, error) {
	return get[core.DailySession](ctx, c, sessionPath+"/active", nil)
}

// EndSession closes the conversation and returns its final state.
func (c *Client) EndSession(ctx context.Context, id uuid.UUID) (core.DailySession, error) {
	return sendJSON[core.DailySession](ctx, c, http.MethodPost, resourcePath(sessionPath, id, "/end"), nil)
}

// SessionState returns what the assistant has gathered so far in session id.
func (c *Client) SessionState(ctx context.Context, id uuid.UUID) (core.ConversationState, error) {
	return get[core.ConversationState](ctx, c, resourcePath(sessionPath, id, "/state"), nil)
}

// Chat sends one message to the interviewer. Every draft the reply
// captured is announced as pending:created.
func (c *Client) Chat(ctx context.Context, msg core.ChatMessage) (core.ChatReply, error) {
	if err := msg.Validate(); err != nil {
		return core.ChatReply{}, err
	}
	reply, err := sendJSON[core.ChatReply](ctx, c, http.MethodPost, resourcePath(sessionPath, msg.SessionID, "/chat"), msg)
	if err != nil {
		return core.ChatReply{}, err
	}
	for _, entry := range reply.CreatedEntries {
		c.publish(eventbus.PendingCreated, entry)
	}
	return reply, nil
}

// ListPending lists drafts awaiting review.
func (c *Client) ListPending(ctx context.Context, f PendingFilter) (Page[core.PendingUpdate], error) {
	q, err := f.query()
	if err != nil {
		return Page[core.PendingUpdate]{}, err
	}
	return list[core.PendingUpdate](ctx, c, pendingPath, q)
}

// CreatePending adds a draft by hand, optionally attached to a session.
func (c *Client) CreatePending(ctx context.Context, in core.PendingUpdateInput, session *uuid.UUID) (core.PendingUpdate, error) {
	if err := in.Validate(); err != nil {
		return core.PendingUpdate{}, err
	}
	r, err := jsonRequest(http.MethodPost, pendingPath, in)
	if err != nil {
		return core.PendingUpdate{}, err
	}
	if session != nil {
		r.query = url.Values{"session_id": {session.String()}}
	}
	var update core.PendingUpdate
	if _, err := c.do(ctx, r, &update); err != nil {
		return core.PendingUpdate{}, err
	}
	c.publish(eventbus.PendingCreated, update)
	return update, nil
}

// PendingSummary counts pending drafts per category.
func (c *Client) PendingSummary(ctx context.Context) (core.PendingSummary, error) {
	return get[core.PendingSummary](ctx, c, pendingPath+"/summary", nil)
}

func (c *Client) GetPending(ctx context.Context, id uuid.UUID) (core.PendingUpdate, error) {
	return get[core.PendingUpdate](ctx, c, resourcePath(pendingPath, id), nil)
}

// EditPending replaces a draft's summary or structured data before it is accepted.
func (c *Client) EditPending(ctx context.Context, id uuid.UUID, edit core.PendingUpdateEdit) (core.PendingUpdate, error) {
	if err := edit.Validate(); err != nil {
		return core.PendingUpdate{}, err
	}
	update, err := sendJSON[core.PendingUpdate](ctx, c, http.MethodPatch, resourcePath(pendingPath, id), edit)
	if err != nil {
		return core.PendingUpdate{}, err
	}
	c.publish(eventbus.PendingUpdated, update)
	return update, nil
}

func (c *Client) DeletePending(ctx context.Context, id uuid.UUID) error {
	if err := c.remove(ctx, resourcePath(pendingPath, id)); err != nil {
		return err
	}
	c.publish(eventbus.PendingDeleted, id)
	return nil
}

// AcceptPending turns a draft into a real entry. Besides pending:accepted
// it announces the creation in the draft's own resource.
func (c *Client) AcceptPending(ctx context.Context, id uuid.UUID) (core.AcceptedItem, error) {
	item, err := sendJSON[core.AcceptedItem](ctx, c, http.MethodPost, resourcePath(pendingPath, id, "/accept"), nil)
	if err != nil {
		return core.AcceptedItem{}, err
	}
	c.announceAccepted(item)
	return item, nil
}

// RejectPending marks a draft rejected. Nothing is created from it.
func (c *Client) RejectPending(ctx context.Context, id uuid.UUID) (core.PendingUpdate, error) {
	update, err := sendJSON[core.PendingUpdate](ctx, c, http.MethodPost, resourcePath(pendingPath, id, "/reject"), nil)
	if err != nil {
		return core.PendingUpdate{}, err
	}
	c.publish(eventbus.PendingRejected, update)
	return update, nil
}

// AcceptAllPending accepts every pending draft, or only those of session
// when it is non-nil. Items that failed are returned with Success false.
func (c *Client) AcceptAllPending(ctx context.Context, session *uuid.UUID) ([]core.AcceptedItem, error) {
	r := request{method: http.MethodPost, path: pendingPath + "/accept-all"}
	if session != nil {
		r.query = url.Values{"session_id": {session.String()}}
	}
	var items []core.AcceptedItem
	if _, err := c.do(ctx, r, &items); err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.Success {
			c.announceAccepted(item)
		}
	}
	return items, nil
}

func (c *Client) announceAccepted(item core.AcceptedItem) {
	c.publish(eventbus.PendingAccepted, item)
	if name, ok := eventbus.CreatedEvent(string(item.Category)); ok {
		c.publish(name, item)
	}
}
