package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"lin/internal/broker"
	"lin/internal/cli"
	"lin/internal/core"
	"lin/internal/dashboard"
	"lin/internal/log"
)

const clearScreen = "\033[H\033[2J"

func runDashboard(ctx context.Context, a *app, args []string) error {
	fs := newFlags("dashboard")
	watch := fs.Bool("watch", false, "keep refreshing as data changes")
	debounce := fs.Duration("debounce", 500*time.Millisecond, "wait for bursts of changes to settle")
	if err := fs.Parse(args); err != nil {
		return err
	}

	board := dashboard.New(a.bus, a.logger, dashboard.DefaultWidgets(a.client)...)
	defer board.Close()

	if !*watch {
		if err := board.Refresh(ctx); err != nil {
			return err
		}
		renderBoard(a.out, board.Snapshot())
		return nil
	}

	// Changes made elsewhere reach this process through the broker.
	cons, err := cli.NewConsumer(a.cfg, cli.Listener, a.logger)
	if err != nil {
		a.logger.Warn("Broker unavailable, only local changes refresh the board", log.FieldBroker, a.cfg.Broker, log.FieldError, err)
	}
	if cons != nil {
		defer cons.Close()
		go func() {
			if err := broker.Relay(ctx, cons, a.bus, a.origin); err != nil && ctx.Err() == nil {
				a.logger.Error("Broker relay stopped", log.FieldError, err)
			}
		}()
	}

	err = board.Watch(ctx, *debounce, func(states []dashboard.State) {
		fmt.Fprint(a.out, clearScreen)
		fmt.Fprintf(a.out, "LIN  %s\n\n", time.Now().Format(time.DateTime))
		renderBoard(a.out, states)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func renderBoard(w io.Writer, states []dashboard.State) {
	for _, s := range states {
		title := s.Name
		if s.Stale {
			title += " (stale)"
		}
		fmt.Fprintf(w, "== %s\n", title)
		if s.Err != nil {
			fmt.Fprintf(w, "   error: %v\n", s.Err)
		}
		renderWidget(w, s.Data)
		fmt.Fprintln(w)
	}
}

func renderWidget(w io.Writer, data any) {
	switch d := data.(type) {
	case nil:
		fmt.Fprintln(w, "   -")
	case []core.Task:
		if len(d) == 0 {
			fmt.Fprintln(w, "   nothing here")
			return
		}
		printTasks(w, d)
	case []core.Event:
		if len(d) == 0 {
			fmt.Fprintln(w, "   nothing scheduled")
			return
		}
		printEvents(w, d)
	case core.TotalSpend:
		fmt.Fprintf(w, "   this month %s, last month %s (%+.1f%% %s)\n",
			core.FormatAmount(d.CurrentMonth, ""), core.FormatAmount(d.PreviousMonth, ""), d.PercentageChange, d.ChangeDirection)
	case []core.CategoryBreakdownItem:
		tw := newTable(w)
		for _, c := range d {
			fmt.Fprintf(tw, "   %s\t%s\t%.1f%%\t%d\n", c.Category, c.Amount, c.Percentage, c.TransactionCount)
		}
		tw.Flush()
	case []core.TopTransaction:
		tw := newTable(w)
		for _, t := range d {
			label := t.Description
			if label == "" {
				label = t.Merchant
			}
			fmt.Fprintf(tw, "   %s\t%s\t%s\t%s\n", t.Date.DateString(), t.Amount, t.Category, truncate(orDash(label), 40))
		}
		tw.Flush()
	case core.JournalStats:
		fmt.Fprintf(w, "   %d entries, %d this month, longest streak %d day(s)\n", d.TotalEntries, d.EntriesThisMonth, d.LongestStreak)
	case core.PendingSummary:
		fmt.Fprintf(w, "   %d draft(s) to review\n", d.TotalPending)
	default:
		fmt.Fprintf(w, "   %v\n", d)
	}
}
