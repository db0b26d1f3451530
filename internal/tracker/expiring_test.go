package tracker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExpiringStore_Expires(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewExpiringStore(ctx, 50*time.Millisecond)

	id, err := s.Create(ctx, KindVerification, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Get(ctx, id); err != nil {
		t.Fatalf("Get immediately after create failed: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	if _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound after ttl", err)
	}
	if err := s.Update(ctx, id, StatusPresentationVerified, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("update of an expired request: got %v, want ErrNotFound", err)
	}
}

func TestExpiringStore_UpdateRefreshesExpiry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewExpiringStore(ctx, 200*time.Millisecond)

	id, _ := s.Create(ctx, KindIssuance, nil)

	time.Sleep(120 * time.Millisecond)
	if err := s.Update(ctx, id, StatusRequestRetrieved, nil); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// past the original deadline but within ttl of the update
	time.Sleep(120 * time.Millisecond)
	tr, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("request should still be held after update, got %v", err)
	}
	if tr.Status != StatusRequestRetrieved {
		t.Errorf("got status %q", tr.Status)
	}
}

func TestExpiringStore_LenSkipsExpired(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the janitor interval is at least a second, so it does not run during the test
	s := NewExpiringStore(ctx, 50*time.Millisecond)

	for range 5 {
		if _, err := s.Create(ctx, KindIssuance, nil); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if got := s.Len(); got != 5 {
		t.Fatalf("got Len %d, want 5", got)
	}

	time.Sleep(200 * time.Millisecond)

	if got := s.Len(); got != 0 {
		t.Errorf("got Len %d after ttl, want 0", got)
	}
}
