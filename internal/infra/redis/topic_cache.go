package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-starter-service/internal/catalog"
	"quiz-starter-service/internal/domain"
)

// TopicCache caches full topic JSON in Redis and falls back to a loader on
// miss, so multiple instances share one warmed catalog.
type TopicCache struct {
	client *redis.Client
	loader catalog.Loader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewTopicCache(client *redis.Client, loader catalog.Loader, ttl time.Duration) *TopicCache {
	return &TopicCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func topicKey(topicID string) string {
	return "quiz_topic:" + topicID
}

func (c *TopicCache) GetTopic(ctx context.Context, topicID string) (domain.Quiz, error) {
	if quiz, ok := c.cached(ctx, topicID); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(topicID, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if quiz, ok := c.cached(ctx, topicID); ok {
			return quiz, nil
		}

		quiz, err := c.loader.LoadTopic(ctx, topicID)
		if err != nil {
			return domain.Quiz{}, err
		}

		if data, err := json.Marshal(quiz); err == nil {
			_ = c.client.Set(ctx, topicKey(topicID), data, c.ttlWithJitter()).Err()
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *TopicCache) cached(ctx context.Context, topicID string) (domain.Quiz, bool) {
	data, err := c.client.Get(ctx, topicKey(topicID)).Bytes()
	if errors.Is(err, redis.Nil) || err != nil {
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (c *TopicCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
