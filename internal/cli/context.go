// Package cli holds the ipurpose terminal commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"ipurpose/api/internal/client"
	"ipurpose/api/internal/keyring"
	"ipurpose/api/internal/logger"
)

// refreshSkew refreshes tokens that expire within this window.
const refreshSkew = 30 * time.Second

var ErrNotLoggedIn = errors.New("not logged in, run 'ipurpose login' first")

type Context struct {
	APIURL string
	Client *client.Client
	Out    io.Writer
	now    func() time.Time
}

func NewContext(apiURL string) *Context {
	return &Context{
		APIURL: apiURL,
		Client: client.New(apiURL, ""),
		Out:    os.Stdout,
		now:    time.Now,
	}
}

func (c *Context) printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

// Authorize loads stored credentials into the client, refreshing the access
// token when it is about to expire.
func (c *Context) Authorize(ctx context.Context) error {
	creds, err := keyring.Load(c.APIURL)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotLoggedIn
	}
	if err != nil {
		return err
	}
	c.Client.SetToken(creds.AccessToken)

	if creds.ExpiresAt == 0 || c.now().Add(refreshSkew).Before(time.Unix(creds.ExpiresAt, 0)) {
		return nil
	}
	if creds.RefreshToken == "" {
		return ErrNotLoggedIn
	}
	session, err := c.Client.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		if client.IsCode(err, "UNAUTHORIZED") {
			_ = keyring.Delete(c.APIURL)
			return ErrNotLoggedIn
		}
		return fmt.Errorf("refresh session: %w", err)
	}
	logger.Debug("refreshed access token", "api", c.APIURL)
	return keyring.Save(c.APIURL, credentialsFrom(session))
}

func credentialsFrom(s client.Session) keyring.Credentials {
	return keyring.Credentials{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		Email:        s.Email,
		UserName:     s.UserName,
		ExpiresAt:    s.ExpiresAt,
	}
}
