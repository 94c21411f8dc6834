package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"lin/internal/api"
	"lin/internal/core"
)

func runProfile(ctx context.Context, a *app, args []string) error {
	return dispatch("profile", args, []action{
		{"show", "show the profile and preferences", func(args []string) error {
			if err := newFlags("profile show").Parse(args); err != nil {
				return err
			}
			p, err := a.client.Profile(ctx)
			if err != nil {
				return err
			}
			prefs, err := a.client.Preferences(ctx)
			if err != nil {
				return err
			}
			tw := newTable(a.out)
			fmt.Fprintf(tw, "Username\t%s\n", p.Username)
			fmt.Fprintf(tw, "Name\t%s\n", orDash(p.FullName()))
			fmt.Fprintf(tw, "E-mail\t%s\n", p.Email)
			fmt.Fprintf(tw, "Verified\t%t\n", p.IsVerified)
			fmt.Fprintf(tw, "Timezone\t%s\n", orDash(p.Timezone))
			fmt.Fprintf(tw, "Theme\t%s\n", prefs.Theme)
			fmt.Fprintf(tw, "Language\t%s\n", orDash(prefs.Language))
			fmt.Fprintf(tw, "Currency\t%s\n", orDash(prefs.DefaultExpenseCurrency))
			fmt.Fprintf(tw, "Default priority\t%s\n", prefs.DefaultTaskPriority)
			fmt.Fprintf(tw, "AI insights\t%t\n", prefs.AIInsightsEnabled)
			return tw.Flush()
		}},
		{"set", "change profile fields", func(args []string) error {
			fs := newFlags("profile set")
			first := fs.String("first", "", "first name")
			last := fs.String("last", "", "last name")
			tz := fs.String("tz", "", "timezone, e.g. Asia/Dhaka")
			if err := fs.Parse(args); err != nil {
				return err
			}
			var patch core.ProfilePatch
			setIfFlagged(fs, "first", &patch.FirstName, *first)
			setIfFlagged(fs, "last", &patch.LastName, *last)
			setIfFlagged(fs, "tz", &patch.Timezone, *tz)
			p, err := a.client.UpdateProfile(ctx, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated profile for %s\n", p.Username)
			return nil
		}},
		{"prefs", "change preferences", func(args []string) error {
			fs := newFlags("profile prefs")
			theme := fs.String("theme", "", "light, dark or auto")
			currency := fs.String("currency", "", "default expense currency")
			insights := fs.Bool("insights", true, "enable AI insights")
			if err := fs.Parse(args); err != nil {
				return err
			}
			var patch core.PreferencesPatch
			if isFlagged(fs, "theme") {
				t := core.Theme(*theme)
				patch.Theme = &t
			}
			setIfFlagged(fs, "currency", &patch.DefaultExpenseCurrency, *currency)
			if isFlagged(fs, "insights") {
				patch.AIInsightsEnabled = insights
			}
			if _, err := a.client.UpdatePreferences(ctx, patch); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Preferences updated")
			return nil
		}},
		{"avatar", "upload a profile picture", func(args []string) error {
			if len(args) != 1 {
				return usageErr("profile avatar FILE")
			}
			up, closeFile, err := openUpload(args[0])
			if err != nil {
				return err
			}
			defer closeFile()
			p, err := a.client.UploadAvatar(ctx, up)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Avatar set: %s\n", orDash(p.ProfilePictureURL))
			return nil
		}},
	})
}

func runNotifications(ctx context.Context, a *app, args []string) error {
	return dispatch("notifications", args, []action{
		{"show", "show the e-mail summary settings", func(args []string) error {
			if err := newFlags("notifications show").Parse(args); err != nil {
				return err
			}
			s, err := a.client.NotificationSettings(ctx)
			if err != nil {
				return err
			}
			tw := newTable(a.out)
			fmt.Fprintf(tw, "E-mail summaries\t%t\n", s.EmailEnabled)
			fmt.Fprintf(tw, "Preferred time\t%s\n", orDash(s.PreferredTime))
			return tw.Flush()
		}},
		{"set", "change the e-mail summary settings", func(args []string) error {
			fs := newFlags("notifications set")
			email := fs.Bool("email", true, "send the daily e-mail summary")
			at := fs.String("time", "", "preferred time, HH:MM")
			if err := fs.Parse(args); err != nil {
				return err
			}
			var patch core.NotificationSettingsPatch
			if isFlagged(fs, "email") {
				patch.EmailEnabled = email
			}
			setIfFlagged(fs, "time", &patch.PreferredTime, *at)
			s, err := a.client.UpdateNotificationSettings(ctx, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "E-mail summaries %t at %s\n", s.EmailEnabled, orDash(s.PreferredTime))
			return nil
		}},
		{"preview", "show what today's summary would contain", func(args []string) error {
			s, err := a.client.NotificationPreview(ctx)
			if err != nil {
				return err
			}
			tw := newTable(a.out)
			fmt.Fprintf(tw, "Tasks pending\t%d\n", s.TasksPending)
			fmt.Fprintf(tw, "Tasks due today\t%d\n", s.TasksDueToday)
			fmt.Fprintf(tw, "Tasks overdue\t%d\n", s.TasksOverdue)
			fmt.Fprintf(tw, "Completed today\t%d\n", s.TasksCompletedToday)
			fmt.Fprintf(tw, "Events today\t%d\n", s.EventsToday)
			fmt.Fprintf(tw, "Spent today\t%s\n", core.FormatAmount(s.ExpensesToday, ""))
			fmt.Fprintf(tw, "Spent this week\t%s\n", core.FormatAmount(s.ExpensesThisWeek, ""))
			fmt.Fprintf(tw, "Top category\t%s\n", orDash(s.TopExpenseCategory))
			return tw.Flush()
		}},
		{"test", "send a test e-mail", func(args []string) error {
			msg, err := a.client.SendTestNotification(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, orDash(msg))
			return nil
		}},
	})
}

func openUpload(path string) (api.Upload, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return api.Upload{}, nil, err
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return api.Upload{Name: filepath.Base(path), ContentType: contentType, Body: f}, func() { f.Close() }, nil
}
