package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/owlenglish/examclient"
	"github.com/owlenglish/examclient/jwt"
	"github.com/owlenglish/examclient/session"
)

func init() {
	register(command{
		name:        "login",
		usage:       "login [-email address] [-admin]",
		description: "Sign in with email and password.",
		run:         runLogin,
	})
	register(command{
		name:        "register",
		usage:       "register -name name [-email address]",
		description: "Create a learner account and sign in.",
		run:         runRegister,
	})
	register(command{
		name:        "otp",
		usage:       "otp -email address",
		description: "Register with an emailed one-time code.",
		run:         runOTP,
	})
	register(command{
		name:        "set-password",
		usage:       "set-password",
		description: "Set the first password of a Google account.",
		run:         runSetPassword,
	})
	register(command{
		name:        "change-password",
		usage:       "change-password",
		description: "Replace the current password.",
		run:         runChangePassword,
	})
	register(command{
		name:        "logout",
		usage:       "logout",
		description: "Sign out and forget the stored session.",
		run:         runLogout,
	})
	register(command{
		name:        "whoami",
		usage:       "whoami",
		description: "Verify the stored session with the backend and show the user.",
		run:         runWhoami,
	})
	register(command{
		name:        "refresh",
		usage:       "refresh [-if-expiring]",
		description: "Exchange the stored token for a new one.",
		run:         runRefresh,
	})
	register(command{
		name:        "history",
		usage:       "history [-skip n] [-limit n]",
		description: "Show recent sign-ins of the current user.",
		run:         runHistory,
	})
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("login")
	email := fs.String("email", "", "account email (prompted when empty)")
	admin := fs.Bool("admin", false, "sign in to the admin area; other roles are refused")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req, err := a.credentials(*email)
	if err != nil {
		return err
	}
	var opts []examclient.LoginOption
	if *admin {
		opts = append(opts, examclient.ForAdminArea())
	}

	user, err := a.client.Login(ctx, req, opts...)
	if errors.Is(err, examclient.ErrRoleNotPermitted) {
		return errors.New("this account cannot access the admin area")
	}
	if err != nil {
		return err
	}
	a.printSignedIn(user)
	return nil
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("register")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email (prompted when empty)")
	phone := fs.String("phone", "", "phone number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return errors.New("-name is required")
	}

	creds, err := a.credentials(*email)
	if err != nil {
		return err
	}
	user, err := a.client.Register(ctx, examclient.RegisterRequest{
		Name:     *name,
		Email:    creds.Email,
		Password: creds.Password,
		Phone:    *phone,
	})
	if err != nil {
		return err
	}
	a.printSignedIn(user)
	return nil
}

func runOTP(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("otp")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("-email is required")
	}

	sent, err := a.client.RequestOTP(ctx, examclient.OTPRequest{
		Channel:     examclient.OTPChannelEmail,
		Destination: *email,
		Email:       *email,
		Purpose:     examclient.OTPPurposeRegister,
	})
	if err != nil {
		return err
	}
	a.printf("%s\n", sent.Message)

	code, err := a.readLine("Code: ")
	if err != nil {
		return err
	}
	password, err := a.newPassword()
	if err != nil {
		return err
	}
	res, err := a.client.VerifyOTP(ctx, examclient.OTPVerification{
		Destination: *email,
		OTPCode:     code,
		Email:       *email,
		Password:    password,
		Purpose:     examclient.OTPPurposeRegister,
	})
	if err != nil {
		return err
	}
	if res.SignedIn {
		a.printSignedIn(res.User)
		return nil
	}
	a.printf("%s\n", res.Message)
	return nil
}

func runSetPassword(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("set-password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !a.client.State().Authenticated() {
		return examclient.ErrNotSignedIn
	}

	password, err := a.readSecret("New password: ")
	if err != nil {
		return err
	}
	confirm, err := a.readSecret("Confirm password: ")
	if err != nil {
		return err
	}
	res, err := a.client.SetPassword(ctx, password, confirm)
	if err != nil {
		return err
	}
	a.printf("%s\nContinue at %s\n", res.Message, res.Redirect)
	return nil
}

func runChangePassword(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("change-password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !a.client.State().Authenticated() {
		return examclient.ErrNotSignedIn
	}

	current, err := a.readSecret("Current password: ")
	if err != nil {
		return err
	}
	next, err := a.newPassword()
	if err != nil {
		return err
	}
	msg, err := a.client.ChangePassword(ctx, current, next)
	if err != nil {
		return err
	}
	a.printf("%s\n", msg)
	return nil
}

func runLogout(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("logout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.client.Logout(ctx); err != nil {
		return err
	}
	a.printf("Signed out\n")
	return nil
}

func runWhoami(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("whoami")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !a.client.State().Authenticated() {
		a.printf("Not signed in\n")
		return nil
	}

	st, err := a.client.Restore(ctx)
	if err != nil && !st.Authenticated() {
		a.printf("Session expired, sign in again\n")
		return nil
	}
	if err != nil {
		return err
	}

	a.printf("%s <%s>\n", st.User.Name, st.User.Email)
	a.printf("role: %s\n", a.client.Role())
	if claims, err := jwt.Inspect(st.Token); err == nil && claims.HasExpiry() {
		if left, err := claims.Remaining(time.Now()); err == nil {
			a.printf("token expires in %s\n", left.Round(time.Second))
		}
	}
	return nil
}

func runRefresh(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("refresh")
	ifExpiring := fs.Bool("if-expiring", false, "only refresh when the token expires within the refresh window")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *ifExpiring {
		refreshed, err := a.client.RefreshIfExpiring(ctx)
		if err != nil {
			return err
		}
		if !refreshed {
			a.printf("Token still fresh\n")
			return nil
		}
		a.printf("Token refreshed\n")
		return nil
	}

	if _, err := a.client.RefreshToken(ctx); err != nil {
		return err
	}
	a.printf("Token refreshed\n")
	return nil
}

func runHistory(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("history")
	skip := fs.Int("skip", 0, "entries to skip")
	limit := fs.Int("limit", 10, "entries to show (max 50)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	page, err := a.client.LoginHistory(ctx, *skip, *limit)
	if err != nil {
		return err
	}
	tw := newTable(a.stdout, "WHEN", "PROVIDER", "IP", "OK")
	for _, entry := range page.Data {
		tw.row(entry.CreatedAt.Local().Format(time.DateTime), entry.Provider, entry.IP, fmt.Sprint(entry.Succeeded))
	}
	tw.flush()
	a.printf("%d of %d\n", len(page.Data), page.Total)
	return nil
}

func (a *app) credentials(email string) (examclient.LoginRequest, error) {
	var err error
	if email == "" {
		email, err = a.readLine("Email: ")
		if err != nil {
			return examclient.LoginRequest{}, err
		}
	}
	password, err := a.readSecret("Password: ")
	if err != nil {
		return examclient.LoginRequest{}, err
	}
	return examclient.LoginRequest{Email: strings.TrimSpace(email), Password: password}, nil
}

func (a *app) newPassword() (string, error) {
	password, err := a.readSecret("New password: ")
	if err != nil {
		return "", err
	}
	confirm, err := a.readSecret("Confirm password: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", examclient.ErrPasswordMismatch
	}
	return password, nil
}

func (a *app) printSignedIn(user *session.User) {
	if user == nil {
		a.printf("Signed in\n")
		return
	}
	a.printf("Signed in as %s <%s> (%s)\n", user.Name, user.Email, a.client.Role())
}
