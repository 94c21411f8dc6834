package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"lin/internal/core"
)

// password comes from -password, then LIN_PASSWORD, then stdin.
func password(a *app, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv("LIN_PASSWORD"); env != "" {
		return env, nil
	}
	return readLine(a.in, os.Stderr, "Password: ")
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags("login")
	username := fs.String("u", "", "username or e-mail")
	pass := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" && fs.NArg() > 0 {
		*username = fs.Arg(0)
	}
	if *username == "" {
		return usageErr("login needs -u USERNAME")
	}
	pw, err := password(a, *pass)
	if err != nil {
		return err
	}

	creds, err := a.client.Login(ctx, *username, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s, session valid until %s\n", *username, creds.Expiry.Local().Format(time.DateTime))
	return nil
}

func runSignup(ctx context.Context, a *app, args []string) error {
	fs := newFlags("signup")
	form := core.Signup{}
	fs.StringVar(&form.Username, "u", "", "username")
	fs.StringVar(&form.Email, "email", "", "e-mail address")
	fs.StringVar(&form.FullName, "name", "", "full name")
	pass := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pw, err := password(a, *pass)
	if err != nil {
		return err
	}
	form.Password = pw

	account, err := a.client.Signup(ctx, form)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created account %s <%s>. Run `lin login -u %s` to start.\n", account.Username, account.Email, account.Username)
	return nil
}

func runLogout(ctx context.Context, a *app, args []string) error {
	if err := newFlags("logout").Parse(args); err != nil {
		return err
	}
	if err := a.client.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func runWhoami(ctx context.Context, a *app, args []string) error {
	fs := newFlags("whoami")
	remote := fs.Bool("remote", false, "also fetch the profile from the backend")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := a.client.Session(ctx)
	if err != nil {
		return err
	}

	tw := newTable(a.out)
	fmt.Fprintf(tw, "User ID\t%s\n", orDash(s.UserID))
	fmt.Fprintf(tw, "Access token expires\t%s\n", s.ExpiresAt.Local().Format(time.DateTime))
	if !s.RefreshExpiresAt.IsZero() {
		fmt.Fprintf(tw, "Refresh token expires\t%s\n", s.RefreshExpiresAt.Local().Format(time.DateTime))
	}
	if *remote {
		p, err := a.client.Profile(ctx)
		if err != nil {
			tw.Flush()
			return err
		}
		fmt.Fprintf(tw, "Username\t%s\n", p.Username)
		fmt.Fprintf(tw, "Name\t%s\n", orDash(p.FullName()))
		fmt.Fprintf(tw, "E-mail\t%s\n", p.Email)
	}
	return tw.Flush()
}

func runHealth(ctx context.Context, a *app, args []string) error {
	if err := newFlags("health").Parse(args); err != nil {
		return err
	}
	h, err := a.client.Health(ctx)
	if err != nil {
		return err
	}
	tw := newTable(a.out)
	fmt.Fprintf(tw, "Backend\t%s\n", a.cfg.APIURL)
	fmt.Fprintf(tw, "Status\t%s\n", orDash(h.Message))
	fmt.Fprintf(tw, "Version\t%s\n", orDash(h.Version))
	fmt.Fprintf(tw, "Auth\t%s\n", orDash(h.AuthStatus))
	return tw.Flush()
}
