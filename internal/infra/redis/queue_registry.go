package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	queueKeyPrefix = "quiz:queue:"
	queueIndexKey  = "quiz:queue:index"
)

// QueueRegistry keeps queue slots in Redis so several bot instances share them.
// Slots are stored as: SET quiz:queue:{subjectID} {createdAtMillis} NX
// and indexed by age:   ZADD quiz:queue:index {createdAtMillis} {subjectID}
type QueueRegistry struct {
	client redis.UniversalClient
	clock  func() time.Time
}

func NewQueueRegistry(client redis.UniversalClient) *QueueRegistry {
	return &QueueRegistry{client: client, clock: time.Now}
}

func (r *QueueRegistry) TryAcquire(ctx context.Context, subjectID string) (bool, error) {
	now := r.clock().UnixMilli()
	ok, err := r.client.SetNX(ctx, r.key(subjectID), now, 0).Result()
	if err != nil {
		return false, fmt.Errorf("set queue slot: %w", err)
	}
	if !ok {
		return false, nil
	}
	if err := r.client.ZAdd(ctx, queueIndexKey, redis.Z{Score: float64(now), Member: subjectID}).Err(); err != nil {
		// the slot would be invisible to the sweeper, so undo it
		_ = r.client.Del(ctx, r.key(subjectID)).Err()
		return false, fmt.Errorf("index queue slot: %w", err)
	}
	return true, nil
}

func (r *QueueRegistry) Release(ctx context.Context, subjectID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key(subjectID))
		pipe.ZRem(ctx, queueIndexKey, subjectID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("release queue slot: %w", err)
	}
	return nil
}

// sweepScript deletes the candidate slots whose stored createdAt is still
// older than the cutoff. A slot re-acquired after the index was read only has
// its index score refreshed.
//
// KEYS[1] is the index, KEYS[2..] the slot keys; ARGV[1] is the cutoff and
// ARGV[2..] the matching subject ids.
var sweepScript = redis.NewScript(`
local cutoff = tonumber(ARGV[1])
local removed = 0
for i = 2, #KEYS do
	local created = redis.call('GET', KEYS[i])
	if not created then
		redis.call('ZREM', KEYS[1], ARGV[i])
	elseif tonumber(created) < cutoff then
		redis.call('DEL', KEYS[i])
		redis.call('ZREM', KEYS[1], ARGV[i])
		removed = removed + 1
	else
		redis.call('ZADD', KEYS[1], created, ARGV[i])
	end
end
return removed
`)

func (r *QueueRegistry) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := strconv.FormatInt(r.clock().Add(-maxAge).UnixMilli(), 10)
	stale, err := r.client.ZRangeByScore(ctx, queueIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + cutoff,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("list stale queue slots: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(stale)+1)
	args := make([]interface{}, 0, len(stale)+1)
	keys = append(keys, queueIndexKey)
	args = append(args, cutoff)
	for _, id := range stale {
		keys = append(keys, r.key(id))
		args = append(args, id)
	}
	n, err := sweepScript.Run(ctx, r.client, keys, args...).Int()
	if err != nil {
		return 0, fmt.Errorf("delete stale queue slots: %w", err)
	}
	return n, nil
}

// Clear drops every slot. It is called once at startup.
func (r *QueueRegistry) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, queueKeyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan queue slots: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("clear queue slots: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (r *QueueRegistry) key(subjectID string) string {
	return queueKeyPrefix + subjectID
}
