package redis

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// AnswerKeySource loads a category's answer key from the backing store.
type AnswerKeySource interface {
	LoadAnswerKey(ctx context.Context, category string) (map[int64]string, error)
}

// AnswerKeyCache keeps per-category answer keys in Redis (one hash per
// category) and falls back to the source on cache miss. Keys are stored as:
// HSET trivia:{category}:answers {questionID} {canonical answer}
type AnswerKeyCache struct {
	client *redis.Client
	source AnswerKeySource
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewAnswerKeyCache(client *redis.Client, source AnswerKeySource, ttl time.Duration) *AnswerKeyCache {
	return &AnswerKeyCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *AnswerKeyCache) AnswerKey(ctx context.Context, category string) (map[int64]string, error) {
	key := c.key(category)

	cached, err := c.client.HGetAll(ctx, key).Result()
	if err == nil && len(cached) > 0 {
		return parseKey(cached), nil
	}

	result, err, _ := c.sf.Do(category, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		cached, err := c.client.HGetAll(ctx, key).Result()
		if err == nil && len(cached) > 0 {
			return parseKey(cached), nil
		}

		answers, err := c.source.LoadAnswerKey(ctx, category)
		if err != nil {
			return nil, err
		}
		if len(answers) == 0 {
			return answers, nil
		}

		pipe := c.client.Pipeline()
		for questionID, canonical := range answers {
			pipe.HSet(ctx, key, strconv.FormatInt(questionID, 10), canonical)
		}
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return answers, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[int64]string), nil
}

func (c *AnswerKeyCache) key(category string) string {
	return "trivia:" + category + ":answers"
}

func parseKey(cached map[string]string) map[int64]string {
	answers := make(map[int64]string, len(cached))
	for rawID, canonical := range cached {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			continue
		}
		answers[id] = canonical
	}
	return answers
}

func (c *AnswerKeyCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
