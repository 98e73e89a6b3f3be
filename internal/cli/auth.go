package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"ipurpose/api/internal/keyring"
)

type LoginCmd struct {
	Email    string `help:"Account email." short:"e"`
	Password string `help:"Account password. Prompted when omitted." env:"IPURPOSE_PASSWORD"`
}

func (cmd *LoginCmd) Run(ctx *Context) error {
	if cmd.Email == "" || cmd.Password == "" {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Email").
					Value(&cmd.Email),
				huh.NewInput().
					Title("Password").
					EchoMode(huh.EchoModePassword).
					Value(&cmd.Password),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
	}

	session, err := ctx.Client.SignIn(context.Background(), strings.TrimSpace(cmd.Email), cmd.Password)
	if err != nil {
		return err
	}
	if err := keyring.Save(ctx.APIURL, credentialsFrom(session)); err != nil {
		return err
	}
	ctx.printf("✓ Signed in as %s (%s plan)\n", session.UserName, session.Tier)
	return nil
}

type SignupCmd struct {
	Email    string `help:"Account email." required:""`
	Name     string `help:"Display name." required:""`
	Password string `help:"Password, at least 8 characters." env:"IPURPOSE_PASSWORD" required:""`
}

func (cmd *SignupCmd) Run(ctx *Context) error {
	result, err := ctx.Client.SignUp(context.Background(), cmd.Email, cmd.Password, cmd.Name)
	if err != nil {
		return err
	}
	ctx.printf("✓ %s\n", result.Message)
	if result.DevVerificationToken != "" {
		ctx.printf("  Verify with: ipurpose verify %s\n", result.DevVerificationToken)
	}
	return nil
}

type VerifyCmd struct {
	Token string `arg:"" help:"Verification token from the email."`
}

func (cmd *VerifyCmd) Run(ctx *Context) error {
	if err := ctx.Client.VerifyEmail(context.Background(), cmd.Token); err != nil {
		return err
	}
	ctx.printf("✓ Email verified, you can now log in\n")
	return nil
}

type LogoutCmd struct{}

func (cmd *LogoutCmd) Run(ctx *Context) error {
	creds, err := keyring.Load(ctx.APIURL)
	if errors.Is(err, keyring.ErrNotFound) {
		ctx.printf("Not logged in\n")
		return nil
	}
	if err != nil {
		return err
	}
	ctx.Client.SetToken(creds.AccessToken)
	if err := ctx.Client.Logout(context.Background(), creds.RefreshToken); err != nil {
		ctx.printf("⚠️  Server logout failed: %v\n", err)
	}
	if err := keyring.Delete(ctx.APIURL); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	ctx.printf("✓ Logged out\n")
	return nil
}

type WhoamiCmd struct{}

func (cmd *WhoamiCmd) Run(ctx *Context) error {
	c := context.Background()
	if err := ctx.Authorize(c); err != nil {
		return err
	}
	me, err := ctx.Client.Me(c)
	if err != nil {
		return err
	}
	if !me.Authenticated {
		return ErrNotLoggedIn
	}
	ctx.printf("%s <%s>\nPlan: %s\n", me.UserName, me.Email, me.Tier)
	return nil
}
