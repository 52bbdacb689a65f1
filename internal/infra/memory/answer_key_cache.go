package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// AnswerKeySource loads a category's answer key from the backing store.
type AnswerKeySource interface {
	LoadAnswerKey(ctx context.Context, category string) (map[int64]string, error)
}

// AnswerKeyCache keeps per-category answer keys in process with a TTL to
// avoid re-reading the question table on every submission.
type AnswerKeyCache struct {
	source AnswerKeySource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedKey
}

type cachedKey struct {
	answers   map[int64]string
	expiresAt time.Time
}

func NewAnswerKeyCache(source AnswerKeySource, ttl time.Duration) *AnswerKeyCache {
	return &AnswerKeyCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedKey),
	}
}

func (c *AnswerKeyCache) AnswerKey(ctx context.Context, category string) (map[int64]string, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[category]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.answers, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(category, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[category]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.answers, nil
		}
		c.mu.RUnlock()

		answers, err := c.source.LoadAnswerKey(ctx, category)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[category] = cachedKey{
			answers:   answers,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return answers, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[int64]string), nil
}

func (c *AnswerKeyCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
