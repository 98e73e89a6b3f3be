// Package keyring keeps the CLI's session tokens in the OS keyring, one
// entry per API base URL.
package keyring

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const service = "ipurpose"

var (
	// ErrNotFound is returned when no credentials are stored for the server.
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring cannot be used.
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Email        string `json:"email"`
	UserName     string `json:"userName"`
	ExpiresAt    int64  `json:"expiresAt"`
}

func account(apiURL string) string {
	return strings.TrimRight(strings.TrimSpace(apiURL), "/")
}

func Load(apiURL string) (Credentials, error) {
	raw, err := keyring.Get(service, account(apiURL))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return Credentials{}, ErrNotFound
		}
		return Credentials{}, fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	var creds Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return Credentials{}, fmt.Errorf("decode stored credentials: %w", err)
	}
	return creds, nil
}

func Save(apiURL string, creds Credentials) error {
	if creds.AccessToken == "" {
		return errors.New("access token cannot be empty")
	}
	raw, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := keyring.Set(service, account(apiURL), string(raw)); err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}
	return nil
}

func Delete(apiURL string) error {
	err := keyring.Delete(service, account(apiURL))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}
