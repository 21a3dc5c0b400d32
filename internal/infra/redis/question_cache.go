package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

// QuestionCache caches question batches in Redis so every service instance
// shares one upstream budget. Batches are stored as:
//
//	SET quiz:questions:{category}:{difficulty}:{amount} {json} EX ttl
type QuestionCache struct {
	client *redis.Client
	source app.QuestionSource
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

// sharedFetchTimeout bounds an upstream fetch that no longer follows any
// caller's context.
const sharedFetchTimeout = 2 * time.Minute

func NewQuestionCache(client *redis.Client, source app.QuestionSource, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) FetchQuestions(ctx context.Context, query domain.QuestionQuery) ([]domain.Question, error) {
	key := c.key(query)
	if questions, ok := c.lookup(ctx, key); ok {
		return questions, nil
	}

	results := c.sf.DoChan(key, func() (interface{}, error) {
		// Other sessions may be waiting on this fetch, so it must not end
		// when the first caller goes away.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()

		// Re-check cache in case another goroutine filled it.
		if questions, ok := c.lookup(fetchCtx, key); ok {
			return questions, nil
		}

		questions, err := c.source.FetchQuestions(fetchCtx, query)
		if err != nil {
			return nil, err
		}

		if ttl := c.ttlWithJitter(); ttl > 0 {
			if raw, err := json.Marshal(questions); err == nil {
				// cache writes are best-effort; the batch is still served
				_ = c.client.Set(fetchCtx, key, raw, ttl).Err()
			}
		}
		return questions, nil
	})

	var result interface{}
	select {
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		result = res.Val
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return append([]domain.Question(nil), result.([]domain.Question)...), nil
}

func (c *QuestionCache) lookup(ctx context.Context, key string) ([]domain.Question, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil || len(questions) == 0 {
		return nil, false
	}
	return questions, true
}

func (c *QuestionCache) key(query domain.QuestionQuery) string {
	return "quiz:questions:" + query.Key()
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
