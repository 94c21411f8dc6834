package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"lin/internal/api"
	"lin/internal/core"
)

func runJournal(ctx context.Context, a *app, args []string) error {
	return dispatch("journal", args, []action{
		{"list", "list journal entries", func(args []string) error {
			fs := newFlags("journal list")
			var f api.JournalFilter
			mood := fs.String("mood", "", "filter by mood")
			from := fs.String("from", "", "start date")
			to := fs.String("to", "", "end date")
			fs.StringVar(&f.Search, "q", "", "search text")
			fs.IntVar(&f.Page, "page", 1, "page number")
			fs.IntVar(&f.Limit, "limit", core.DefaultLimit, "items per page")
			if err := fs.Parse(args); err != nil {
				return err
			}
			var err error
			if f.StartDate, f.EndDate, err = dateRange(*from, *to); err != nil {
				return err
			}
			f.Mood = core.JournalMood(*mood)
			page, err := a.client.ListJournal(ctx, f)
			if err != nil {
				return err
			}
			printJournal(a.out, page.Items)
			printPageFooter(a.out, page.Meta, len(page.Items))
			return nil
		}},
		{"show", "print one entry", func(args []string) error {
			id, err := parseID(args, "journal entry")
			if err != nil {
				return err
			}
			e, err := a.client.GetJournal(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s  %s  %s\n\n", formatTime(e.CreatedAt), orDash(e.Title), orDash(string(e.Mood)))
			fmt.Fprintln(a.out, e.Content)
			if e.Summary != "" {
				fmt.Fprintf(a.out, "\nSummary: %s\n", e.Summary)
			}
			if len(e.Keywords) > 0 {
				fmt.Fprintf(a.out, "Keywords: %s\n", strings.Join(e.Keywords, ", "))
			}
			return nil
		}},
		{"write", "write an entry: write TEXT", func(args []string) error {
			fs := newFlags("journal write")
			var in core.JournalInput
			mood := fs.String("mood", "", "mood")
			fs.StringVar(&in.Title, "title", "", "title")
			fs.StringVar(&in.Weather, "weather", "", "weather")
			fs.StringVar(&in.Location, "at", "", "location")
			if err := fs.Parse(args); err != nil {
				return err
			}
			in.Content = strings.Join(fs.Args(), " ")
			if in.Content == "" {
				text, err := io.ReadAll(a.in)
				if err != nil {
					return err
				}
				in.Content = strings.TrimSpace(string(text))
			}
			in.Mood = core.JournalMood(*mood)
			e, err := a.client.CreateJournal(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Saved entry %s\n", e.ID)
			return nil
		}},
		{"rm", "delete an entry", func(args []string) error {
			id, err := parseID(args, "journal entry")
			if err != nil {
				return err
			}
			if err := a.client.DeleteJournal(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Deleted", id)
			return nil
		}},
		{"stats", "entry counts, streak and moods", func(args []string) error {
			s, err := a.client.JournalStats(ctx)
			if err != nil {
				return err
			}
			tw := newTable(a.out)
			fmt.Fprintf(tw, "Entries\t%d\n", s.TotalEntries)
			fmt.Fprintf(tw, "This month\t%d\n", s.EntriesThisMonth)
			fmt.Fprintf(tw, "Longest streak\t%d day(s)\n", s.LongestStreak)
			if s.AverageSentiment != nil {
				fmt.Fprintf(tw, "Average sentiment\t%.2f\n", *s.AverageSentiment)
			}
			for _, mood := range slices.Sorted(maps.Keys(s.MoodDistribution)) {
				fmt.Fprintf(tw, "  %s\t%d\n", mood, s.MoodDistribution[mood])
			}
			return tw.Flush()
		}},
		{"analyze", "run AI analysis: analyze ID...", func(args []string) error {
			ids := make([]uuid.UUID, 0, len(args))
			for i := range args {
				id, err := parseID(args[i:], "journal entry")
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			res, err := a.client.AnalyzeJournal(ctx, ids)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s (%d analyzed)\n", orDash(res.Message), res.AnalyzedEntries)
			return nil
		}},
	})
}

func printJournal(w io.Writer, entries []core.JournalEntry) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tMOOD\tTITLE")
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = e.Content
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.CreatedAt.DateString(), orDash(string(e.Mood)), truncate(title, 56))
	}
	tw.Flush()
}
