package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"lin/internal/api"
	"lin/internal/core"
)

func runEvents(ctx context.Context, a *app, args []string) error {
	return dispatch("events", args, []action{
		{"list", "list events", func(args []string) error {
			fs := newFlags("events list")
			var f api.EventFilter
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
			page, err := a.client.ListEvents(ctx, f)
			if err != nil {
				return err
			}
			printEvents(a.out, page.Items)
			printPageFooter(a.out, page.Meta, len(page.Items))
			return nil
		}},
		{"upcoming", "events in the next days", func(args []string) error {
			fs := newFlags("events upcoming")
			days := fs.Int("days", 7, "look-ahead in days (1-30)")
			if err := fs.Parse(args); err != nil {
				return err
			}
			events, err := a.client.UpcomingEvents(ctx, *days)
			if err != nil {
				return err
			}
			printEvents(a.out, events)
			return nil
		}},
		{"month", "month calendar", func(args []string) error {
			fs := newFlags("events month")
			now := time.Now()
			year := fs.Int("year", now.Year(), "year")
			month := fs.Int("month", int(now.Month()), "month (1-12)")
			if err := fs.Parse(args); err != nil {
				return err
			}
			cal, err := a.client.CalendarView(ctx, *year, time.Month(*month))
			if err != nil {
				return err
			}
			printCalendar(a.out, cal)
			return nil
		}},
		{"add", "create an event: add TITLE -start ... -end ...", func(args []string) error {
			fs := newFlags("events add")
			var in core.EventInput
			start := fs.String("start", "", "start time (YYYY-MM-DDTHH:MM)")
			end := fs.String("end", "", "end time (defaults to one hour after start)")
			tags := fs.String("tags", "", "comma-separated tags")
			remind := fs.Int("remind", -1, "reminder in minutes before start")
			fs.StringVar(&in.Location, "at", "", "location")
			fs.BoolVar(&in.IsAllDay, "all-day", false, "all-day event")
			if err := fs.Parse(args); err != nil {
				return err
			}
			in.Title = strings.Join(fs.Args(), " ")
			now := time.Now()
			startAt, err := parseWhen(*start, now)
			if err != nil {
				return usageErr("-start: %v", err)
			}
			in.StartTime = startAt
			in.EndTime = core.NewTimestamp(startAt.Add(time.Hour))
			if *end != "" {
				if in.EndTime, err = parseWhen(*end, now); err != nil {
					return usageErr("-end: %v", err)
				}
			}
			if *remind >= 0 {
				in.ReminderMinutes = remind
			}
			in.Tags = splitTags(*tags)

			ev, err := a.client.CreateEvent(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created event %s %q at %s\n", ev.ID, ev.Title, formatTime(ev.StartTime))
			return nil
		}},
		{"rm", "delete an event", func(args []string) error {
			id, err := parseID(args, "event")
			if err != nil {
				return err
			}
			if err := a.client.DeleteEvent(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Deleted", id)
			return nil
		}},
		{"parse", "turn free text into an event", func(args []string) error {
			fs := newFlags("events parse")
			ai := fs.Bool("ai", false, "use the AI parser instead of the rule-based one")
			save := fs.Bool("save", false, "create the event when the parse is accepted")
			if err := fs.Parse(args); err != nil {
				return err
			}
			parse := a.client.ParseEvent
			if *ai {
				parse = a.client.ParseEventText
			}
			res, err := parse(ctx, strings.Join(fs.Args(), " "))
			if err != nil {
				return err
			}
			if !res.Accepted {
				printRejectedParse(a.out, res.Message, res.Confidence)
				return nil
			}
			p := res.Data
			tw := newTable(a.out)
			fmt.Fprintf(tw, "Title\t%s\n", p.Title)
			if p.StartTime != nil {
				fmt.Fprintf(tw, "Start\t%s\n", formatTime(*p.StartTime))
			}
			if p.EndTime != nil {
				fmt.Fprintf(tw, "End\t%s\n", formatTime(*p.EndTime))
			}
			fmt.Fprintf(tw, "Location\t%s\n", orDash(p.Location))
			fmt.Fprintf(tw, "Confidence\t%.2f\n", res.Confidence)
			tw.Flush()
			if !*save {
				return nil
			}
			ev, err := a.client.CreateEvent(ctx, p.Input())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created event %s\n", ev.ID)
			return nil
		}},
	})
}

func printEvents(w io.Writer, events []core.Event) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tSTART\tEND\tTITLE\tLOCATION")
	for _, e := range events {
		start, end := formatTime(e.StartTime), formatTime(e.EndTime)
		if e.IsAllDay {
			start, end = e.StartTime.DateString(), "all day"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, start, end, truncate(e.Title, 40), orDash(e.Location))
	}
	tw.Flush()
}

func printCalendar(w io.Writer, cal core.Calendar) {
	fmt.Fprintf(w, "%s %d\n", cal.MonthName, cal.Year)
	tw := newTable(w)
	fmt.Fprintln(tw, "Mo\tTu\tWe\tTh\tFr\tSa\tSu\t")
	for _, week := range cal.Grid {
		for _, day := range week {
			if day == 0 {
				fmt.Fprint(tw, "\t")
				continue
			}
			mark := " "
			if len(cal.EventsByDate[fmt.Sprintf("%04d-%02d-%02d", cal.Year, cal.Month, day)]) > 0 {
				mark = "*"
			}
			fmt.Fprintf(tw, "%2d%s\t", day, mark)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()

	dates := make([]string, 0, len(cal.EventsByDate))
	for d := range cal.EventsByDate {
		dates = append(dates, d)
	}
	slices.Sort(dates)
	for _, d := range dates {
		for _, e := range cal.EventsByDate[d] {
			fmt.Fprintf(w, "%s  %s\n", d, e.Title)
		}
	}
}
