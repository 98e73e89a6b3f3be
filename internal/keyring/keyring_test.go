package keyring

import (
	"errors"
	"testing"

	gokeyring "github.com/zalando/go-keyring"
)

func TestSaveAndLoad(t *testing.T) {
	gokeyring.MockInit()

	creds := Credentials{AccessToken: "a1", RefreshToken: "r1", Email: "ada@example.com", ExpiresAt: 1700000000}
	if err := Save("http://localhost:8787/", creds); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, err := Load("http://localhost:8787")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got != creds {
		t.Errorf("Load() = %+v, want %+v", got, creds)
	}
}

func TestSaveRejectsEmptyToken(t *testing.T) {
	gokeyring.MockInit()

	if err := Save("http://localhost:8787", Credentials{}); err == nil {
		t.Error("Save() with empty token should return an error")
	}
}

func TestLoadNotFound(t *testing.T) {
	gokeyring.MockInit()

	_, err := Load("http://nowhere.test")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want %v", err, ErrNotFound)
	}
}

func TestDelete(t *testing.T) {
	gokeyring.MockInit()

	if err := Save("http://localhost:8787", Credentials{AccessToken: "a1"}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := Delete("http://localhost:8787"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := Load("http://localhost:8787"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected credentials to be gone, got %v", err)
	}
	if err := Delete("http://localhost:8787"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() twice error = %v, want %v", err, ErrNotFound)
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	if errors.Is(ErrNotFound, ErrKeyringUnavailable) {
		t.Error("ErrNotFound and ErrKeyringUnavailable should be distinct")
	}
}
