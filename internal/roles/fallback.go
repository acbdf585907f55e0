package roles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// FallbackTTL bounds how long a durable fallback record stays readable.
const FallbackTTL = time.Hour

// LocalRecord is the JSON payload persisted under user_role_<userId>.
// The shape is a compatibility contract with the original portal's
// localStorage records; Timestamp is epoch milliseconds.
type LocalRecord struct {
	Role      *string `json:"role"`
	Timestamp int64   `json:"timestamp"`
	UserID    int64   `json:"userId"`
}

// FallbackStore keeps role records in a durable keyspace so a role can
// still be served when the database is unreachable. Records expire
// independently of the in-memory cache.
type FallbackStore struct {
	client *redis.Client
	now    Clock
}

// NewFallbackStore constructs a FallbackStore.
func NewFallbackStore(client *redis.Client) *FallbackStore {
	return NewFallbackStoreWithClock(client, time.Now)
}

// NewFallbackStoreWithClock constructs a FallbackStore with an injected clock.
func NewFallbackStoreWithClock(client *redis.Client, clock Clock) *FallbackStore {
	return &FallbackStore{client: client, now: clock}
}

// Save persists a role record for userID.
func (s *FallbackStore) Save(ctx context.Context, userID int64, role Role) error {
	record := LocalRecord{
		Timestamp: s.now().UnixMilli(),
		UserID:    userID,
	}
	if role != RoleNone {
		value := string(role)
		record.Role = &value
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, fallbackKey(userID), data, 0).Err()
}

// Load reads the role record for userID. Records older than FallbackTTL
// are deleted and treated as absent.
func (s *FallbackStore) Load(ctx context.Context, userID int64) (Role, bool, error) {
	data, err := s.client.Get(ctx, fallbackKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return RoleNone, false, nil
		}
		return RoleNone, false, err
	}
	var record LocalRecord
	if err := json.Unmarshal(data, &record); err != nil {
		_ = s.client.Del(ctx, fallbackKey(userID)).Err()
		return RoleNone, false, nil
	}
	storedAt := time.UnixMilli(record.Timestamp)
	if s.now().Sub(storedAt) > FallbackTTL {
		_ = s.client.Del(ctx, fallbackKey(userID)).Err()
		return RoleNone, false, nil
	}
	if record.Role == nil {
		return RoleNone, true, nil
	}
	return Role(*record.Role), true, nil
}

// Clear removes the record for one user.
func (s *FallbackStore) Clear(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, fallbackKey(userID)).Err()
}

// ClearAll removes every role record.
func (s *FallbackStore) ClearAll(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, "user_role_*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func fallbackKey(userID int64) string {
	return fmt.Sprintf("user_role_%d", userID)
}
