package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func TestNewRedisStore(t *testing.T) {
	store, _ := setupTestRedis(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore("not a url"); err == nil {
		t.Fatal("expected error for malformed url")
	}
}

func TestSaveAndLookupRefreshSession(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	if err := store.SaveRefreshSession(ctx, "hash-1", "user-123", time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}
	userID, err := store.LookupRefreshSession(ctx, "hash-1")
	if err != nil {
		t.Fatalf("LookupRefreshSession failed: %v", err)
	}
	if userID != "user-123" {
		t.Errorf("expected user-123, got %s", userID)
	}
}

func TestLookupExpiredSession(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	if err := store.SaveRefreshSession(ctx, "hash-exp", "user-1", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}
	s.FastForward(2 * time.Minute)

	if _, err := store.LookupRefreshSession(ctx, "hash-exp"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestLookupNonExistentSession(t *testing.T) {
	store, _ := setupTestRedis(t)
	if _, err := store.LookupRefreshSession(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRevokeRefreshSession(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	if err := store.SaveRefreshSession(ctx, "hash-rev", "user-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}
	if err := store.RevokeRefreshSession(ctx, "hash-rev"); err != nil {
		t.Fatalf("RevokeRefreshSession failed: %v", err)
	}
	if _, err := store.LookupRefreshSession(ctx, "hash-rev"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected revoked session to be gone, got %v", err)
	}
	// Revoking twice is not an error.
	if err := store.RevokeRefreshSession(ctx, "hash-rev"); err != nil {
		t.Fatalf("second revoke failed: %v", err)
	}
}

func TestRevokeUserSessions(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	for _, hash := range []string{"a", "b"} {
		if err := store.SaveRefreshSession(ctx, hash, "user-1", exp); err != nil {
			t.Fatalf("save %s: %v", hash, err)
		}
	}
	if err := store.SaveRefreshSession(ctx, "c", "user-2", exp); err != nil {
		t.Fatalf("save c: %v", err)
	}

	if err := store.RevokeUserSessions(ctx, "user-1"); err != nil {
		t.Fatalf("RevokeUserSessions failed: %v", err)
	}
	for _, hash := range []string{"a", "b"} {
		if _, err := store.LookupRefreshSession(ctx, hash); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected %s to be revoked, got %v", hash, err)
		}
	}
	if userID, err := store.LookupRefreshSession(ctx, "c"); err != nil || userID != "user-2" {
		t.Fatalf("other user's session affected: %s %v", userID, err)
	}
}

func TestAccessTokenRevocation(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	revoked, err := store.IsAccessTokenRevoked(ctx, "jti-1")
	if err != nil || revoked {
		t.Fatalf("expected jti-1 not revoked, got %v %v", revoked, err)
	}
	if err := store.RevokeAccessToken(ctx, "jti-1", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("RevokeAccessToken failed: %v", err)
	}
	revoked, err = store.IsAccessTokenRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Fatalf("expected jti-1 revoked, got %v %v", revoked, err)
	}

	// The denylist entry only needs to outlive the token.
	s.FastForward(11 * time.Minute)
	revoked, _ = store.IsAccessTokenRevoked(ctx, "jti-1")
	if revoked {
		t.Fatal("expected denylist entry to expire with the token")
	}
}

func TestKeysAreNamespaced(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	store := NewRedisStoreWithClient(client)
	t.Cleanup(func() { _ = store.Close() })

	if err := store.SaveRefreshSession(context.Background(), "hash", "user-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !s.Exists("ipurpose:refresh:hash") {
		t.Fatalf("expected namespaced refresh key, have %v", s.Keys())
	}
	if !s.Exists("ipurpose:user_sessions:user-1") {
		t.Fatalf("expected user session index, have %v", s.Keys())
	}
}
