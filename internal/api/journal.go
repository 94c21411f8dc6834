package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"lin/internal/core"
	"lin/internal/eventbus"
)

const journalPath = "/journal"

// ListJournal returns one page of journal entries matching f.
func (c *Client) ListJournal(ctx context.Context, f JournalFilter) (Page[core.JournalEntry], error) {
	q, err := f.query()
	if err != nil {
		return Page[core.JournalEntry]{}, err
	}
	return list[core.JournalEntry](ctx, c, journalPath+"/", q)
}

func (c *Client) CreateJournal(ctx context.Context, in core.JournalInput) (core.JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return core.JournalEntry{}, err
	}
	entry, err := sendJSON[core.JournalEntry](ctx, c, http.MethodPost, journalPath+"/", in)
	if err != nil {
		return core.JournalEntry{}, err
	}
	c.publish(eventbus.JournalCreated, entry)
	return entry, nil
}

func (c *Client) GetJournal(ctx context.Context, id uuid.UUID) (core.JournalEntry, error) {
	return get[core.JournalEntry](ctx, c, resourcePath(journalPath, id), nil)
}

func (c *Client) UpdateJournal(ctx context.Context, id uuid.UUID, p core.JournalPatch) (core.JournalEntry, error) {
	if err := p.Validate(); err != nil {
		return core.JournalEntry{}, err
	}
	entry, err := sendJSON[core.JournalEntry](ctx, c, http.MethodPut, resourcePath(journalPath, id), p)
	if err != nil {
		return core.JournalEntry{}, err
	}
	c.publish(eventbus.JournalUpdated, entry)
	return entry, nil
}

func (c *Client) DeleteJournal(ctx context.Context, id uuid.UUID) error {
	if err := c.remove(ctx, resourcePath(journalPath, id)); err != nil {
		return err
	}
	c.publish(eventbus.JournalDeleted, id)
	return nil
}

// JournalStats returns entry counts, the longest streak and the mood distribution.
func (c *Client) JournalStats(ctx context.Context) (core.JournalStats, error) {
	return get[core.JournalStats](ctx, c, journalPath+"/stats", nil)
}

// MoodTrends returns mood scores over the last days.
func (c *Client) MoodTrends(ctx context.Context, days int) (core.MoodTrends, error) {
	if err := checkRange("days", days, 1, 365); err != nil {
		return core.MoodTrends{}, err
	}
	return get[core.MoodTrends](ctx, c, journalPath+"/mood-trends", url.Values{"days": {strconv.Itoa(days)}})
}

// ParseJournal turns free text into a journal entry draft.
func (c *Client) ParseJournal(ctx context.Context, text string) (ParseResult[core.JournalInput], error) {
	return parseText[core.JournalInput](ctx, c, journalPath+"/parse", text)
}

// AnalyzeJournal asks the backend to run AI analysis on the given entries.
// The analysed entries change, so a journal update is announced.
func (c *Client) AnalyzeJournal(ctx context.Context, ids []uuid.UUID) (core.JournalAnalysis, error) {
	if len(ids) == 0 {
		return core.JournalAnalysis{}, &core.FieldError{Field: "entry_ids", Err: core.ErrRequired}
	}
	r, err := jsonRequest(http.MethodPost, journalPath+"/analyze", map[string][]uuid.UUID{"entry_ids": ids})
	if err != nil {
		return core.JournalAnalysis{}, err
	}
	env, err := c.do(ctx, r, nil)
	if err != nil {
		return core.JournalAnalysis{}, err
	}
	out := core.JournalAnalysis{Message: env.Message}
	var meta struct {
		AnalyzedEntries int `json:"analyzed_entries"`
	}
	if !isNull(env.Meta) {
		_ = json.Unmarshal(env.Meta, &meta)
	}
	out.AnalyzedEntries = meta.AnalyzedEntries
	c.publish(eventbus.JournalUpdated, ids)
	return out, nil
}

// ParseJournalVoice transcribes audio into a journal entry draft.
func (c *Client) ParseJournalVoice(ctx context.Context, audio Upload) (ParseResult[core.JournalInput], error) {
	return parseUpload[core.JournalInput](ctx, c, journalPath+"/ai/parse-voice", audio)
}
