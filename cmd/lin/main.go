// Command lin is a terminal client for the LIN personal assistant.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"lin/internal/api"
	"lin/internal/broker"
	"lin/internal/cli"
	"lin/internal/config"
	"lin/internal/credentials"
	"lin/internal/eventbus"
	"lin/internal/log"
)

const userAgent = "lin-cli"

// app is what every subcommand runs against.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	client *api.Client
	bus    *eventbus.Bus
	origin string
	in     io.Reader
	out    io.Writer
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"login", "log in and store the session", runLogin},
	{"signup", "create an account", runSignup},
	{"logout", "forget the stored session", runLogout},
	{"whoami", "show the stored session", runWhoami},
	{"tasks", "list, add, complete and parse tasks", runTasks},
	{"expenses", "list, add, summarize and export expenses", runExpenses},
	{"events", "list, add and parse calendar events", runEvents},
	{"journal", "list, write and analyze journal entries", runJournal},
	{"daily", "run a daily check-in conversation", runDaily},
	{"pending", "review updates captured by the daily check-in", runPending},
	{"profile", "show or edit the profile and preferences", runProfile},
	{"notifications", "show or change e-mail summaries", runNotifications},
	{"dashboard", "show the home screen widgets", runDashboard},
	{"health", "check the backend", runHealth},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(args []string, in io.Reader, out io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" || args[0] == "--help" {
		printUsage(out)
		return 0
	}
	cmd, ok := lookup(args[0])
	if !ok {
		fmt.Fprintf(os.Stderr, "lin: unknown command %q\n\n", args[0])
		printUsage(os.Stderr)
		return 2
	}

	cli.LoadEnvFile()
	// Logs go to stderr so command output stays pipeable.
	cfg, logger := cli.LoadAndValidateConfig(os.Stderr, (*config.Config).Validate)

	store, closeStore, err := cli.OpenCredentialStore(cfg, logger)
	if err != nil {
		logger.Error("Failed to open credential store", log.FieldError, err, log.FieldStore, cfg.CredentialStore)
		return 1
	}
	defer closeStore()

	bus := eventbus.New()
	client, closeClient, err := cli.NewAPIClient(cfg, store, bus, logger, userAgent)
	if err != nil {
		logger.Error("Failed to initialize API client", log.FieldError, err)
		return 1
	}
	defer closeClient()

	a := &app{
		cfg:    cfg,
		logger: logger,
		client: client,
		bus:    bus,
		origin: cli.Origin("lin"),
		in:     in,
		out:    out,
	}

	var stopForward func(context.Context)
	pub, err := cli.NewPublisher(cfg, logger)
	if err != nil {
		logger.Warn("Broker unavailable, changes will not be announced", log.FieldBroker, cfg.Broker, log.FieldError, err)
	}

	parent, finish := context.WithCancel(context.Background())
	defer finish()
	ctx, done := cli.GracefulShutdown(parent, logger, 10*time.Second, func(shutdownCtx context.Context) {
		if stopForward != nil {
			stopForward(shutdownCtx)
		}
		if pub != nil {
			if err := pub.Close(); err != nil {
				logger.Warn("Broker publisher close failed", log.FieldError, err)
			}
		}
	})
	ctx = log.NewContext(ctx, logger)
	if pub != nil {
		stopForward = broker.Forward(ctx, bus, pub, a.origin, nil)
	}

	err = cmd.run(ctx, a, args[1:])
	finish()
	cli.WaitForShutdown(ctx, done)
	return exitCode(err)
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func exitCode(err error) int {
	var apiErr *api.APIError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, "lin:", err)
		return 2
	case errors.Is(err, api.ErrNotAuthenticated), errors.Is(err, credentials.ErrNoCredentials):
		fmt.Fprintln(os.Stderr, "lin: not logged in, run `lin login`")
		return 1
	case errors.As(err, &apiErr):
		fmt.Fprintf(os.Stderr, "lin: %s (HTTP %d)\n", apiErr.Message, apiErr.StatusCode)
		return 1
	case errors.Is(err, context.Canceled):
		return 130
	}
	fmt.Fprintln(os.Stderr, "lin:", err)
	return 1
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: lin <command> [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	tw := newTable(w)
	for _, c := range commands {
		fmt.Fprintf(tw, "  %s\t%s\n", c.name, c.usage)
	}
	tw.Flush()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run `lin <command> -h` for the command's flags.")
}
