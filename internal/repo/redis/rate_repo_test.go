package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRateRepoWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewClient(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	if err := Ping(ctx, client); err != nil {
		t.Fatalf("ping: %v", err)
	}

	repo := NewRateRepo(client)
	for want := int64(1); want <= 3; want++ {
		count, ttl, err := repo.IncrementWindow(ctx, "rate:test", 10*time.Second)
		if err != nil {
			t.Fatalf("increment #%d: %v", want, err)
		}
		if count != want {
			t.Fatalf("unexpected count: got %d want %d", count, want)
		}
		if ttl <= 0 || ttl > 10*time.Second {
			t.Fatalf("unexpected ttl %s", ttl)
		}
	}

	mr.FastForward(11 * time.Second)

	count, ttl, err := repo.IncrementWindow(ctx, "rate:test", 10*time.Second)
	if err != nil || count != 1 || ttl <= 0 {
		t.Fatalf("expired window should restart: count=%d ttl=%s err=%v", count, ttl, err)
	}
}

func TestRateRepoRejectsInvalidInput(t *testing.T) {
	repo := NewRateRepo(nil)
	if _, _, err := repo.IncrementWindow(context.Background(), "k", time.Second); err == nil {
		t.Fatalf("expected nil client error")
	}
}
