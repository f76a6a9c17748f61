package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quran-quiz-bot/internal/domain"
)

// ContentLoader fetches content from a backing store (e.g., Postgres).
type ContentLoader interface {
	RandomVerse(ctx context.Context) (domain.Verse, error)
	VerseByKey(ctx context.Context, key string) (domain.Verse, error)
	ChapterVerses(ctx context.Context, chapterID int) ([]domain.Verse, error)
	Chapter(ctx context.Context, chapterID int) (domain.Chapter, error)
	Translation(ctx context.Context, verseKey string) (string, error)
}

// ContentCache caches content lookups with TTL to avoid repeated DB hits.
// RandomVerse is passed through.
type ContentCache struct {
	loader ContentLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedValue
}

type cachedValue struct {
	value     any
	expiresAt time.Time
}

func NewContentCache(loader ContentLoader, ttl time.Duration) *ContentCache {
	return &ContentCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedValue),
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

func (c *ContentCache) lookup(key string, now time.Time) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[key]
	if !ok || !entry.expiresAt.After(now) {
		return nil, false
	}
	return entry.value, true
}

func cached[T any](ctx context.Context, c *ContentCache, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.lookup(key, c.clock()); ok {
		return v.(T), nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		if v, ok := c.lookup(key, now); ok {
			return v, nil
		}

		v, err := load(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[key] = cachedValue{value: v, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// ttlWithJitter must be called with mu held.
func (c *ContentCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
