package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"lin/internal/core"
)

var errUsage = errors.New("usage")

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("lin "+name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// isFlagged reports whether the flag was set on the command line, so
// patches only carry what the user asked to change.
func isFlagged(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func setIfFlagged(fs *flag.FlagSet, name string, dst **string, v string) {
	if isFlagged(fs, name) {
		*dst = &v
	}
}

// action is one verb of a resource command, e.g. "tasks add".
type action struct {
	name  string
	usage string
	run   func(args []string) error
}

// dispatch runs the action named by args[0], or the first action when args
// is empty or starts with a flag.
func dispatch(resource string, args []string, actions []action) error {
	if len(args) == 0 || (strings.HasPrefix(args[0], "-") && args[0] != "-h" && args[0] != "--help") {
		return actions[0].run(args)
	}
	for _, a := range actions {
		if a.name == args[0] {
			return a.run(args[1:])
		}
	}
	tw := newTable(os.Stderr)
	fmt.Fprintf(tw, "Usage: lin %s <action>\n\n", resource)
	for _, a := range actions {
		fmt.Fprintf(tw, "  %s\t%s\n", a.name, a.usage)
	}
	tw.Flush()
	if args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		return flag.ErrHelp
	}
	return usageErr("unknown %s action %q", resource, args[0])
}

func parseID(args []string, what string) (uuid.UUID, error) {
	if len(args) == 0 {
		return uuid.Nil, usageErr("%s ID is required", what)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, usageErr("invalid %s ID %q", what, args[0])
	}
	return id, nil
}

// parseWhen accepts the backend's timestamp layouts plus "today" and
// "tomorrow".
func parseWhen(s string, now time.Time) (core.Timestamp, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "today":
		return core.NewTimestamp(now), nil
	case "tomorrow":
		return core.NewTimestamp(now.AddDate(0, 0, 1)), nil
	}
	return core.ParseTimestamp(s)
}

func optionalWhen(s string, now time.Time) (*core.Timestamp, error) {
	if s == "" {
		return nil, nil
	}
	ts, err := parseWhen(s, now)
	if err != nil {
		return nil, usageErr("%v", err)
	}
	return &ts, nil
}

func splitTags(s string) core.Tags {
	var tags core.Tags
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func readLine(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func formatDate(ts *core.Timestamp) string {
	if ts == nil || ts.IsZero() {
		return "-"
	}
	return ts.DateString()
}

func formatTime(ts core.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func printPageFooter(w io.Writer, meta core.PageMeta, shown int) {
	pages := meta.PageCount()
	if pages <= 1 {
		fmt.Fprintf(w, "%d item(s)\n", shown)
		return
	}
	fmt.Fprintf(w, "page %d of %d, %d item(s) in total\n", meta.Page, pages, meta.Total)
}

// printRejectedParse reports a parser suggestion the backend declined.
func printRejectedParse(w io.Writer, message string, confidence float64) {
	if message == "" {
		message = "the input could not be understood"
	}
	fmt.Fprintf(w, "Not understood (confidence %.2f): %s\n", confidence, message)
}
