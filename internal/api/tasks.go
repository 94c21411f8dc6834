package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"lin/internal/core"
	"lin/internal/eventbus"
)

const tasksPath = "/tasks"

// ListTasks returns one page of tasks matching f.
func (c *Client) ListTasks(ctx context.Context, f TaskFilter) (Page[core.Task], error) {
	q, err := f.query()
	if err != nil {
		return Page[core.Task]{}, err
	}
	return list[core.Task](ctx, c, tasksPath+"/", q)
}

func (c *Client) CreateTask(ctx context.Context, in core.TaskInput) (core.Task, error) {
	if err := in.Validate(); err != nil {
		return core.Task{}, err
	}
	task, err := sendJSON[core.Task](ctx, c, http.MethodPost, tasksPath+"/", in)
	if err != nil {
		return core.Task{}, err
	}
	c.publish(eventbus.TaskCreated, task)
	return task, nil
}

func (c *Client) GetTask(ctx context.Context, id uuid.UUID) (core.Task, error) {
	return get[core.Task](ctx, c, resourcePath(tasksPath, id), nil)
}

func (c *Client) UpdateTask(ctx context.Context, id uuid.UUID, p core.TaskPatch) (core.Task, error) {
	if err := p.Validate(); err != nil {
		return core.Task{}, err
	}
	task, err := sendJSON[core.Task](ctx, c, http.MethodPut, resourcePath(tasksPath, id), p)
	if err != nil {
		return core.Task{}, err
	}
	c.publish(eventbus.TaskUpdated, task)
	return task, nil
}

func (c *Client) DeleteTask(ctx context.Context, id uuid.UUID) error {
	if err := c.remove(ctx, resourcePath(tasksPath, id)); err != nil {
		return err
	}
	c.publish(eventbus.TaskDeleted, id)
	return nil
}

// CompleteTask marks a task done, optionally recording how long it took.
func (c *Client) CompleteTask(ctx context.Context, id uuid.UUID, done core.TaskCompletion) (core.Task, error) {
	if err := done.Validate(); err != nil {
		return core.Task{}, err
	}
	task, err := sendJSON[core.Task](ctx, c, http.MethodPatch, resourcePath(tasksPath, id, "/complete"), done)
	if err != nil {
		return core.Task{}, err
	}
	c.publish(eventbus.TaskCompleted, task)
	return task, nil
}

// TodayTasks lists tasks due today.
func (c *Client) TodayTasks(ctx context.Context) ([]core.Task, error) {
	return get[[]core.Task](ctx, c, tasksPath+"/today", nil)
}

// TodayTaskStats counts the tasks completed today.
func (c *Client) TodayTaskStats(ctx context.Context) (core.TaskStats, error) {
	return get[core.TaskStats](ctx, c, tasksPath+"/stats/today", nil)
}

// OverdueTasks lists incomplete tasks past their due date.
func (c *Client) OverdueTasks(ctx context.Context) ([]core.Task, error) {
	return get[[]core.Task](ctx, c, tasksPath+"/overdue", nil)
}

// ParseTask runs the backend's rule-based parser. It never creates a task.
func (c *Client) ParseTask(ctx context.Context, text string) (ParseResult[core.ParsedTask], error) {
	return parseText[core.ParsedTask](ctx, c, tasksPath+"/parse", text)
}

// ParseTaskText runs the AI parser on text.
func (c *Client) ParseTaskText(ctx context.Context, text string) (ParseResult[core.ParsedTask], error) {
	return parseText[core.ParsedTask](ctx, c, tasksPath+"/ai/parse-text", text)
}

// ParseTaskVoice transcribes audio and parses it into a task.
func (c *Client) ParseTaskVoice(ctx context.Context, audio Upload) (ParseResult[core.ParsedTask], error) {
	return parseUpload[core.ParsedTask](ctx, c, tasksPath+"/ai/parse-voice", audio)
}

// TaskInsights returns the backend's AI productivity insights.
func (c *Client) TaskInsights(ctx context.Context) (Insights, error) {
	return get[Insights](ctx, c, tasksPath+"/ai/insights", nil)
}
