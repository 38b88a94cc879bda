package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRevoker(t *testing.T) (*RedisRevoker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisRevoker(client), mr
}

func TestRedisRevoker_RevokeAndCheck(t *testing.T) {
	revoker, _ := newTestRevoker(t)
	ctx := context.Background()

	revoked, err := revoker.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatal("token should not be revoked yet")
	}

	if err := revoker.Revoke(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	revoked, err = revoker.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if !revoked {
		t.Fatal("expected token to be revoked")
	}
}

func TestRedisRevoker_EntryExpires(t *testing.T) {
	revoker, mr := newTestRevoker(t)
	ctx := context.Background()

	if err := revoker.Revoke(ctx, "jti-2", time.Second); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	mr.FastForward(2 * time.Second)

	revoked, err := revoker.IsRevoked(ctx, "jti-2")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatal("denylist entry should expire with the token")
	}
}

func TestRedisRevoker_NonPositiveTTLIsNoop(t *testing.T) {
	revoker, _ := newTestRevoker(t)
	ctx := context.Background()

	if err := revoker.Revoke(ctx, "jti-3", 0); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	revoked, err := revoker.IsRevoked(ctx, "jti-3")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatal("expired token needs no denylist entry")
	}
}
