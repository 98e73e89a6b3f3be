package client

import (
	"context"
	"net/http"
	"time"
)

// Session is what sign-in and refresh return.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId"`
	UserName     string `json:"userName"`
	Email        string `json:"email"`
	Tier         string `json:"tier"`
	ExpiresAt    int64  `json:"expiresAt"`
}

func (s Session) Expiry() time.Time {
	return time.Unix(s.ExpiresAt, 0)
}

type SignUpResult struct {
	UserID               string `json:"userId"`
	Message              string `json:"message"`
	DevVerificationToken string `json:"devVerificationToken,omitempty"`
}

type Me struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
	Email         string `json:"email"`
	Tier          string `json:"tier"`
}

func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (SignUpResult, error) {
	var out SignUpResult
	err := c.do(ctx, http.MethodPost, "/api/auth/signup", map[string]string{
		"email":       email,
		"password":    password,
		"displayName": displayName,
	}, &out)
	return out, err
}

// SignIn stores the access token on the client when it succeeds.
func (c *Client) SignIn(ctx context.Context, email, password string) (Session, error) {
	var out Session
	err := c.do(ctx, http.MethodPost, "/api/auth/signin", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return Session{}, err
	}
	c.token = out.AccessToken
	return out, nil
}

func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/verify-email", map[string]string{"token": token}, nil)
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	var out Session
	err := c.do(ctx, http.MethodPost, "/api/session/refresh", map[string]string{"refreshToken": refreshToken}, &out)
	if err != nil {
		return Session{}, err
	}
	c.token = out.AccessToken
	return out, nil
}

func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.do(ctx, http.MethodPost, "/api/session/logout", map[string]string{"refreshToken": refreshToken}, nil)
}

func (c *Client) Me(ctx context.Context) (Me, error) {
	var out Me
	err := c.do(ctx, http.MethodGet, "/api/session", nil, &out)
	return out, err
}
