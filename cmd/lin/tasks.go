package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"lin/internal/api"
	"lin/internal/core"
)

func runTasks(ctx context.Context, a *app, args []string) error {
	return dispatch("tasks", args, []action{
		{"list", "list tasks", func(args []string) error {
			fs := newFlags("tasks list")
			var f api.TaskFilter
			status := fs.String("status", "", "pending, in_progress, completed or cancelled")
			priority := fs.String("priority", "", "low, medium or high")
			tags := fs.String("tags", "", "comma-separated tags")
			fs.StringVar(&f.Search, "q", "", "search text")
			fs.IntVar(&f.Page, "page", 1, "page number")
			fs.IntVar(&f.Limit, "limit", core.DefaultLimit, "items per page")
			if err := fs.Parse(args); err != nil {
				return err
			}
			f.Status = core.TaskStatus(*status)
			f.Priority = core.TaskPriority(*priority)
			f.Tags = splitTags(*tags)

			page, err := a.client.ListTasks(ctx, f)
			if err != nil {
				return err
			}
			printTasks(a.out, page.Items)
			printPageFooter(a.out, page.Meta, len(page.Items))
			return nil
		}},
		{"today", "tasks due today", func(args []string) error {
			tasks, err := a.client.TodayTasks(ctx)
			if err != nil {
				return err
			}
			printTasks(a.out, tasks)
			stats, err := a.client.TodayTaskStats(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d completed today\n", stats.CompletedToday)
			return nil
		}},
		{"overdue", "tasks past their due date", func(args []string) error {
			tasks, err := a.client.OverdueTasks(ctx)
			if err != nil {
				return err
			}
			printTasks(a.out, tasks)
			return nil
		}},
		{"add", "create a task", func(args []string) error {
			fs := newFlags("tasks add")
			var in core.TaskInput
			due := fs.String("due", "", "due date (YYYY-MM-DD, today, tomorrow)")
			priority := fs.String("priority", "", "low, medium or high")
			tags := fs.String("tags", "", "comma-separated tags")
			fs.StringVar(&in.Description, "desc", "", "description")
			if err := fs.Parse(args); err != nil {
				return err
			}
			in.Title = strings.Join(fs.Args(), " ")
			dueAt, err := optionalWhen(*due, time.Now())
			if err != nil {
				return err
			}
			in.DueDate = dueAt
			in.Priority = core.TaskPriority(*priority)
			in.Tags = splitTags(*tags)

			task, err := a.client.CreateTask(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created task %s %q\n", task.ID, task.Title)
			return nil
		}},
		{"done", "mark a task completed", func(args []string) error {
			fs := newFlags("tasks done")
			minutes := fs.Int("took", 0, "minutes spent")
			if err := fs.Parse(args); err != nil {
				return err
			}
			id, err := parseID(fs.Args(), "task")
			if err != nil {
				return err
			}
			var done core.TaskCompletion
			if *minutes > 0 {
				done.ActualDuration = minutes
			}
			task, err := a.client.CompleteTask(ctx, id, done)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Completed %q\n", task.Title)
			return nil
		}},
		{"rm", "delete a task", func(args []string) error {
			id, err := parseID(args, "task")
			if err != nil {
				return err
			}
			if err := a.client.DeleteTask(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Deleted", id)
			return nil
		}},
		{"parse", "turn free text into a task", func(args []string) error {
			fs := newFlags("tasks parse")
			ai := fs.Bool("ai", false, "use the AI parser instead of the rule-based one")
			save := fs.Bool("save", false, "create the task when the parse is accepted")
			if err := fs.Parse(args); err != nil {
				return err
			}
			text := strings.Join(fs.Args(), " ")
			parse := a.client.ParseTask
			if *ai {
				parse = a.client.ParseTaskText
			}
			res, err := parse(ctx, text)
			if err != nil {
				return err
			}
			if !res.Accepted {
				printRejectedParse(a.out, res.Message, res.Confidence)
				return nil
			}
			tw := newTable(a.out)
			fmt.Fprintf(tw, "Title\t%s\n", res.Data.Title)
			fmt.Fprintf(tw, "Due\t%s\n", formatDate(res.Data.DueDate))
			fmt.Fprintf(tw, "Priority\t%s\n", orDash(string(res.Data.Priority)))
			fmt.Fprintf(tw, "Tags\t%s\n", orDash(strings.Join(res.Data.Tags, ", ")))
			fmt.Fprintf(tw, "Confidence\t%.2f\n", res.Confidence)
			tw.Flush()
			if !*save {
				return nil
			}
			task, err := a.client.CreateTask(ctx, res.Data.Input())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created task %s\n", task.ID)
			return nil
		}},
	})
}

func printTasks(w io.Writer, tasks []core.Task) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tDUE\tPRIORITY\tSTATUS\tTAGS")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, truncate(t.Title, 48), formatDate(t.DueDate), t.Priority, t.Status, strings.Join(t.Tags, ","))
	}
	tw.Flush()
}
