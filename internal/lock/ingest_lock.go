package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redisv9.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// IngestLock serializes ingestion into a collection across processes.
// Positional ids make concurrent ingests into one collection overwrite each other.
type IngestLock struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewIngestLock(client *redisv9.Client, ttl time.Duration) *IngestLock {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &IngestLock{client: client, ttl: ttl}
}

// TryLock takes the lock for collection without waiting. acquired is false when
// another holder owns it. The returned unlock is nil unless acquired.
func (l *IngestLock) TryLock(ctx context.Context, collection string) (unlock func(context.Context) error, acquired bool, err error) {
	key := l.key(collection)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis acquire ingest lock failed: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	unlock = func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("redis release ingest lock failed: %w", err)
		}
		return nil
	}
	return unlock, true, nil
}

func (l *IngestLock) key(collection string) string {
	return fmt.Sprintf("resume:ingest:lock:%s", collection)
}
