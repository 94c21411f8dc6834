package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"lin/internal/core"
	"lin/internal/eventbus"
)

const eventsPath = "/events"

// ListEvents returns one page of events matching f.
func (c *Client) ListEvents(ctx context.Context, f EventFilter) (Page[core.Event], error) {
	q, err := f.query()
	if err != nil {
		return Page[core.Event]{}, err
	}
	return list[core.Event](ctx, c, eventsPath+"/", q)
}

func (c *Client) CreateEvent(ctx context.Context, in core.EventInput) (core.Event, error) {
	if err := in.Validate(); err != nil {
		return core.Event{}, err
	}
	ev, err := sendJSON[core.Event](ctx, c, http.MethodPost, eventsPath+"/", in)
	if err != nil {
		return core.Event{}, err
	}
	c.publish(eventbus.EventCreated, ev)
	return ev, nil
}

func (c *Client) GetEvent(ctx context.Context, id uuid.UUID) (core.Event, error) {
	return get[core.Event](ctx, c, resourcePath(eventsPath, id), nil)
}

func (c *Client) UpdateEvent(ctx context.Context, id uuid.UUID, p core.EventPatch) (core.Event, error) {
	if err := p.Validate(); err != nil {
		return core.Event{}, err
	}
	ev, err := sendJSON[core.Event](ctx, c, http.MethodPut, resourcePath(eventsPath, id), p)
	if err != nil {
		return core.Event{}, err
	}
	c.publish(eventbus.EventUpdated, ev)
	return ev, nil
}

func (c *Client) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	if err := c.remove(ctx, resourcePath(eventsPath, id)); err != nil {
		return err
	}
	c.publish(eventbus.EventDeleted, id)
	return nil
}

// UpcomingEvents lists events starting within the next days days (1..30).
func (c *Client) UpcomingEvents(ctx context.Context, days int) ([]core.Event, error) {
	if err := checkRange("days", days, 1, 30); err != nil {
		return nil, err
	}
	return get[[]core.Event](ctx, c, eventsPath+"/upcoming", url.Values{"days": {strconv.Itoa(days)}})
}

// CalendarView returns the month grid with the events on each day.
func (c *Client) CalendarView(ctx context.Context, year int, month time.Month) (core.Calendar, error) {
	if err := checkRange("year", year, 1900, 3000); err != nil {
		return core.Calendar{}, err
	}
	if err := checkRange("month", int(month), 1, 12); err != nil {
		return core.Calendar{}, err
	}
	return get[core.Calendar](ctx, c, fmt.Sprintf("%s/calendar/%d/%d", eventsPath, year, month), nil)
}

// ParseEvent runs the backend's rule-based parser on text.
func (c *Client) ParseEvent(ctx context.Context, text string) (ParseResult[core.ParsedEvent], error) {
	return parseText[core.ParsedEvent](ctx, c, eventsPath+"/parse", text)
}

// ParseEventText runs the AI parser on text.
func (c *Client) ParseEventText(ctx context.Context, text string) (ParseResult[core.ParsedEvent], error) {
	return parseText[core.ParsedEvent](ctx, c, eventsPath+"/ai/parse-text", text)
}

// ParseEventVoice transcribes audio and parses it into an event.
func (c *Client) ParseEventVoice(ctx context.Context, audio Upload) (ParseResult[core.ParsedEvent], error) {
	return parseUpload[core.ParsedEvent](ctx, c, eventsPath+"/ai/parse-voice", audio)
}
