package notifications

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestFeedDeliversPerUserAnnouncements(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	feed := NewFeed(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- feed.Subscribe(ctx, 7, func() {
			received <- struct{}{}
		})
	}()

	// Let the subscription register before publishing.
	time.Sleep(50 * time.Millisecond)

	if err := feed.Publish(ctx, 7); err != nil {
		t.Fatalf("publish: %v", err)
	}
	// An announcement for another user must not reach this subscriber.
	if err := feed.Publish(ctx, 8); err != nil {
		t.Fatalf("publish other user: %v", err)
	}

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected an announcement for user 7")
	}
	select {
	case <-received:
		t.Fatalf("received an announcement meant for another user")
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("subscriber did not stop on cancellation")
	}
}
