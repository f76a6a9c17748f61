package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quran-quiz-bot/internal/domain"
	"quran-quiz-bot/internal/infra/memory"
)

const contentKeyPrefix = "quiz:content:"

// ContentCache caches content records in Redis as JSON and falls back to a
// loader on cache miss. Records are stored as: SET quiz:content:{kind}:{id} {json} EX ttl
// RandomVerse is passed through.
type ContentCache struct {
	client redis.UniversalClient
	loader memory.ContentLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewContentCache(client redis.UniversalClient, loader memory.ContentLoader, ttl time.Duration) *ContentCache {
	return &ContentCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *ContentCache) RandomVerse(ctx context.Context) (domain.Verse, error) {
	return c.loader.RandomVerse(ctx)
}

func (c *ContentCache) VerseByKey(ctx context.Context, key string) (domain.Verse, error) {
	return cached(ctx, c, "verse:"+key, func(ctx context.Context) (domain.Verse, error) {
		return c.loader.VerseByKey(ctx, key)
	})
}

func (c *ContentCache) ChapterVerses(ctx context.Context, chapterID int) ([]domain.Verse, error) {
	return cached(ctx, c, "chapter-verses:"+strconv.Itoa(chapterID), func(ctx context.Context) ([]domain.Verse, error) {
		return c.loader.ChapterVerses(ctx, chapterID)
	})
}

func (c *ContentCache) Chapter(ctx context.Context, chapterID int) (domain.Chapter, error) {
	return cached(ctx, c, "chapter:"+strconv.Itoa(chapterID), func(ctx context.Context) (domain.Chapter, error) {
		return c.loader.Chapter(ctx, chapterID)
	})
}

func (c *ContentCache) Translation(ctx context.Context, verseKey string) (string, error) {
	return cached(ctx, c, "translation:"+verseKey, func(ctx context.Context) (string, error) {
		return c.loader.Translation(ctx, verseKey)
	})
}

// get reports a hit only for a readable entry; Redis errors count as a miss.
func get[T any](ctx context.Context, c *ContentCache, key string) (T, bool) {
	var v T
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "redis: content cache read failed", "key", key, "error", err)
		}
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		slog.WarnContext(ctx, "redis: content cache entry unreadable", "key", key, "error", err)
		return v, false
	}
	return v, true
}

func cached[T any](ctx context.Context, c *ContentCache, id string, load func(context.Context) (T, error)) (T, error) {
	key := contentKeyPrefix + id
	if v, ok := get[T](ctx, c, key); ok {
		return v, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if v, ok := get[T](ctx, c, key); ok {
			return v, nil
		}

		v, err := load(ctx)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(v)
		if err == nil {
			err = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
		if err != nil {
			slog.WarnContext(ctx, "redis: content cache write failed", "key", key, "error", err)
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func (c *ContentCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
