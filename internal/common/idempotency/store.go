// internal/common/idempotency/store.go
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"push-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "status:"

// DefaultLease bounds how long a PROCESSING marker survives a crashed
// worker before the key expires and a redelivered job may claim it again.
const DefaultLease = 2 * time.Minute

// Store is the delivery-status guard the orchestrator consults. It is
// advisory deduplication plus a single-key claim, not a distributed lock.
type Store interface {
	// GetStatus returns the recorded status for the id, or found=false if
	// the id has never been processed.
	GetStatus(ctx context.Context, notificationID string) (status models.DeliveryStatus, found bool, err error)

	// SetStatus records a terminal (or FAILED) status for the id.
	SetStatus(ctx context.Context, notificationID string, status models.DeliveryStatus) error

	// MarkProcessing atomically claims the id for this delivery attempt:
	// it writes PROCESSING with a lease TTL only when the key is absent or
	// FAILED. It returns false when another attempt already holds the id
	// or a terminal status is recorded.
	MarkProcessing(ctx context.Context, notificationID string) (bool, error)
}

// markProcessing implements the conditional claim server-side so two
// concurrent deliveries of the same job cannot both pass it.
var markProcessing = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v == false or v == 'FAILED' then
  redis.call('SET', KEYS[1], 'PROCESSING', 'PX', ARGV[1])
  return 1
end
return 0
`)

// RedisStore keeps delivery status in Redis under status:<notification_id>.
type RedisStore struct {
	client *redis.Client
	lease  time.Duration
}

func NewRedisStore(client *redis.Client, lease time.Duration) *RedisStore {
	if lease <= 0 {
		lease = DefaultLease
	}
	return &RedisStore{client: client, lease: lease}
}

func statusKey(notificationID string) string {
	return keyPrefix + notificationID
}

func (s *RedisStore) GetStatus(ctx context.Context, notificationID string) (models.DeliveryStatus, bool, error) {
	val, err := s.client.Get(ctx, statusKey(notificationID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get status %s: %w", notificationID, err)
	}
	return models.DeliveryStatus(val), true, nil
}

func (s *RedisStore) SetStatus(ctx context.Context, notificationID string, status models.DeliveryStatus) error {
	// Terminal statuses outlive the job: they are the dedup source of
	// truth for future redeliveries, so no expiration.
	if err := s.client.Set(ctx, statusKey(notificationID), string(status), 0).Err(); err != nil {
		return fmt.Errorf("set status %s=%s: %w", notificationID, status, err)
	}
	return nil
}

func (s *RedisStore) MarkProcessing(ctx context.Context, notificationID string) (bool, error) {
	res, err := markProcessing.Run(ctx, s.client,
		[]string{statusKey(notificationID)},
		s.lease.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("mark processing %s: %w", notificationID, err)
	}
	return res == 1, nil
}
