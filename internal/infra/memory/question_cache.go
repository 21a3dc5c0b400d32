package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

// QuestionCache caches question batches per query with TTL so bursts of new
// sessions do not hammer the upstream provider.
type QuestionCache struct {
	source app.QuestionSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedBatch
}

type cachedBatch struct {
	questions []domain.Question
	expiresAt time.Time
}

// sharedFetchTimeout bounds an upstream fetch that no longer follows any
// caller's context.
const sharedFetchTimeout = 2 * time.Minute

func NewQuestionCache(source app.QuestionSource, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBatch),
	}
}

func (c *QuestionCache) FetchQuestions(ctx context.Context, query domain.QuestionQuery) ([]domain.Question, error) {
	key := query.Key()
	if questions, ok := c.lookup(key); ok {
		return questions, nil
	}

	results := c.sf.DoChan(key, func() (interface{}, error) {
		// Other sessions may be waiting on this fetch, so it must not end
		// when the first caller goes away.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()

		// Re-check in case another caller filled the cache.
		if questions, ok := c.lookup(key); ok {
			return questions, nil
		}

		questions, err := c.source.FetchQuestions(fetchCtx, query)
		if err != nil {
			return nil, err
		}

		if ttl := c.ttlWithJitter(); ttl > 0 {
			c.mu.Lock()
			c.cache[key] = cachedBatch{
				questions: questions,
				expiresAt: c.clock().Add(ttl),
			}
			c.mu.Unlock()
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

func (c *QuestionCache) lookup(key string) ([]domain.Question, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[key]
	if !ok || !entry.expiresAt.After(now) {
		return nil, false
	}
	return append([]domain.Question(nil), entry.questions...), true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
