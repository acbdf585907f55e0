package notifications

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Feed is the change-feed analog: every stored notification is announced
// on a per-user pub/sub channel and subscribers re-fetch on any message.
// Overlapping refetches are tolerated; the next fetch wins.
type Feed struct {
	client *redis.Client
}

// NewFeed constructs a Feed.
func NewFeed(client *redis.Client) *Feed {
	return &Feed{client: client}
}

func channel(userID int64) string {
	return fmt.Sprintf("feed:user:%d", userID)
}

// Publish announces a change for one user.
func (f *Feed) Publish(ctx context.Context, userID int64) error {
	return f.client.Publish(ctx, channel(userID), "changed").Err()
}

// Subscribe invokes handler for every change announcement until ctx is
// cancelled. The subscription is closed on return.
func (f *Feed) Subscribe(ctx context.Context, userID int64, handler func()) error {
	sub := f.client.Subscribe(ctx, channel(userID))
	defer func() { _ = sub.Close() }()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			handler()
		}
	}
}
