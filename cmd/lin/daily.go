package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"lin/internal/api"
	"lin/internal/core"
)

// sessionID returns the ID in args, or the active session's.
func sessionID(ctx context.Context, a *app, args []string) (uuid.UUID, error) {
	if len(args) > 0 {
		return parseID(args, "session")
	}
	s, err := a.client.ActiveSession(ctx)
	if api.IsNotFound(err) {
		return uuid.Nil, usageErr("no active session, run `lin daily start`")
	}
	if err != nil {
		return uuid.Nil, err
	}
	return s.ID, nil
}

func runDaily(ctx context.Context, a *app, args []string) error {
	return dispatch("daily", args, []action{
		{"talk", "start or resume a session and chat from stdin", func(args []string) error {
			if err := newFlags("daily talk").Parse(args); err != nil {
				return err
			}
			s, err := a.client.ActiveSession(ctx)
			if api.IsNotFound(err) {
				s, err = a.client.StartSession(ctx)
			}
			if err != nil {
				return err
			}
			return converse(ctx, a, s.ID)
		}},
		{"start", "start a check-in session", func(args []string) error {
			s, err := a.client.StartSession(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Session %s started at %s\n", s.ID, formatTime(s.StartedAt))
			return nil
		}},
		{"say", "send one message: say MESSAGE", func(args []string) error {
			id, err := sessionID(ctx, a, nil)
			if err != nil {
				return err
			}
			return say(ctx, a, id, strings.Join(args, " "))
		}},
		{"state", "categories covered so far", func(args []string) error {
			id, err := sessionID(ctx, a, args)
			if err != nil {
				return err
			}
			st, err := a.client.SessionState(ctx, id)
			if err != nil {
				return err
			}
			tw := newTable(a.out)
			fmt.Fprintln(tw, "CATEGORY\tCOVERED\tITEMS")
			for _, c := range st.CategoriesStatus {
				fmt.Fprintf(tw, "%s\t%t\t%d\n", c.Category, c.IsCovered, c.ItemsCount)
			}
			tw.Flush()
			fmt.Fprintf(a.out, "%d draft(s) waiting for review, complete: %t\n", st.PendingItemsCount, st.IsComplete)
			return nil
		}},
		{"end", "end the session", func(args []string) error {
			id, err := sessionID(ctx, a, args)
			if err != nil {
				return err
			}
			s, err := a.client.EndSession(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Session ended, %d item(s) captured. Review them with `lin pending`.\n", s.TotalItemsCaptured)
			return nil
		}},
	})
}

func say(ctx context.Context, a *app, id uuid.UUID, text string) error {
	reply, err := a.client.Chat(ctx, core.ChatMessage{SessionID: id, UserMessage: text})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, reply.AIResponse)
	for _, e := range reply.CreatedEntries {
		fmt.Fprintf(a.out, "  + %s: %s\n", e.Category, e.Summary)
	}
	if reply.IsComplete {
		fmt.Fprintln(a.out, "All categories covered.")
	}
	return nil
}

// converse reads one message per line until EOF or an empty line.
func converse(ctx context.Context, a *app, id uuid.UUID) error {
	fmt.Fprintf(os.Stderr, "Session %s. Empty line to stop.\n", id)
	sc := bufio.NewScanner(a.in)
	for {
		fmt.Fprint(os.Stderr, "> ")
		if !sc.Scan() {
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			return nil
		}
		if err := say(ctx, a, id, line); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func runPending(ctx context.Context, a *app, args []string) error {
	return dispatch("pending", args, []action{
		{"list", "list drafts", func(args []string) error {
			fs := newFlags("pending list")
			var f api.PendingFilter
			status := fs.String("status", string(core.UpdatePending), "pending, accepted or rejected")
			category := fs.String("category", "", "task, expense, event or journal")
			fs.StringVar(&f.SessionID, "session", "", "only drafts of this session")
			fs.IntVar(&f.Page, "page", 1, "page number")
			fs.IntVar(&f.Limit, "limit", core.DefaultLimit, "items per page")
			if err := fs.Parse(args); err != nil {
				return err
			}
			f.Status = core.UpdateStatus(*status)
			f.Category = core.UpdateCategory(*category)
			page, err := a.client.ListPending(ctx, f)
			if err != nil {
				return err
			}
			printPending(a.out, page.Items)
			printPageFooter(a.out, page.Meta, len(page.Items))
			return nil
		}},
		{"summary", "drafts per category", func(args []string) error {
			s, err := a.client.PendingSummary(ctx)
			if err != nil {
				return err
			}
			if !s.HasPending {
				fmt.Fprintln(a.out, "Nothing to review")
				return nil
			}
			tw := newTable(a.out)
			for _, c := range []core.UpdateCategory{core.UpdateTask, core.UpdateExpense, core.UpdateEvent, core.UpdateJournal} {
				fmt.Fprintf(tw, "%s\t%d\n", c, s.ByCategory[c])
			}
			fmt.Fprintf(tw, "total\t%d\n", s.TotalPending)
			return tw.Flush()
		}},
		{"accept", "accept drafts: accept ID...", func(args []string) error {
			if len(args) == 0 {
				return usageErr("pending accept ID...")
			}
			for i := range args {
				id, err := parseID(args[i:], "pending update")
				if err != nil {
					return err
				}
				item, err := a.client.AcceptPending(ctx, id)
				if err != nil {
					return err
				}
				printAccepted(a.out, []core.AcceptedItem{item})
			}
			return nil
		}},
		{"accept-all", "accept every draft", func(args []string) error {
			fs := newFlags("pending accept-all")
			session := fs.String("session", "", "only drafts of this session")
			if err := fs.Parse(args); err != nil {
				return err
			}
			var sid *uuid.UUID
			if *session != "" {
				id, err := parseID([]string{*session}, "session")
				if err != nil {
					return err
				}
				sid = &id
			}
			items, err := a.client.AcceptAllPending(ctx, sid)
			if err != nil {
				return err
			}
			printAccepted(a.out, items)
			return nil
		}},
		{"reject", "reject a draft", func(args []string) error {
			id, err := parseID(args, "pending update")
			if err != nil {
				return err
			}
			u, err := a.client.RejectPending(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Rejected %q\n", u.Summary)
			return nil
		}},
		{"edit", "change a draft's summary: edit ID TEXT", func(args []string) error {
			id, err := parseID(args, "pending update")
			if err != nil {
				return err
			}
			summary := strings.Join(args[1:], " ")
			u, err := a.client.EditPending(ctx, id, core.PendingUpdateEdit{Summary: &summary})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated %s: %s\n", u.ID, u.Summary)
			return nil
		}},
		{"rm", "delete a draft", func(args []string) error {
			id, err := parseID(args, "pending update")
			if err != nil {
				return err
			}
			if err := a.client.DeletePending(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Deleted", id)
			return nil
		}},
	})
}

func printPending(w io.Writer, updates []core.PendingUpdate) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tCATEGORY\tSTATUS\tCREATED\tSUMMARY")
	for _, u := range updates {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Category, u.Status, formatTime(u.CreatedAt), truncate(u.Summary, 56))
	}
	tw.Flush()
}

func printAccepted(w io.Writer, items []core.AcceptedItem) {
	tw := newTable(w)
	for _, item := range items {
		if !item.Success {
			fmt.Fprintf(tw, "%s\t%s\tfailed: %s\n", item.PendingUpdateID, item.Category, orDash(item.Error))
			continue
		}
		created := "-"
		if item.CreatedItemID != nil {
			created = item.CreatedItemID.String()
		}
		fmt.Fprintf(tw, "%s\t%s\tcreated %s\n", item.PendingUpdateID, item.Category, created)
	}
	tw.Flush()
}
