package session

import (
	"context"
	"testing"
	"time"
)

func TestInvalidateWithoutRedis(t *testing.T) {
	d := NewCredentialDenylist(nil, nil)
	defer d.Close()

	userId := "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	if d.IsInvalidated(userId) {
		t.Fatal("fresh denylist should not report the credential invalidated")
	}

	// Redis-less instances still invalidate locally.
	if err := d.Invalidate(context.Background(), userId, time.Hour); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if !d.IsInvalidated(userId) {
		t.Fatal("credential should be invalidated after Invalidate")
	}
	if d.IsInvalidated("some-other-user") {
		t.Fatal("unrelated credential should not be invalidated")
	}
}

func TestInvalidationExpires(t *testing.T) {
	d := NewCredentialDenylist(nil, nil)
	defer d.Close()

	userId := "expiring-user"
	if err := d.Invalidate(context.Background(), userId, 20*time.Millisecond); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if !d.IsInvalidated(userId) {
		t.Fatal("credential should be invalidated inside the ttl")
	}

	time.Sleep(50 * time.Millisecond)
	if d.IsInvalidated(userId) {
		t.Fatal("invalidation should lapse with the credential's natural expiry")
	}
}
