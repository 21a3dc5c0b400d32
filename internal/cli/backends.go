package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/config"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
	"trivia-quiz-service/internal/infra/opentdb"
	pgstore "trivia-quiz-service/internal/infra/postgres"
	redisstore "trivia-quiz-service/internal/infra/redis"
	"trivia-quiz-service/internal/logger"
)

// backends holds the connections shared by the subcommands. Redis and
// Postgres are optional; without them everything stays in memory.
type backends struct {
	cfg    config.Config
	logger *zap.Logger
	redis  *redis.Client
	pool   *pgxpool.Pool
}

func loadConfig(path string) (config.Config, *zap.Logger, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

func openBackends(ctx context.Context, cfg config.Config, log *zap.Logger) (*backends, error) {
	b := &backends{cfg: cfg, logger: log}
	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := b.redis.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			b.Close()
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.pool = pool
	}
	return b, nil
}

func (b *backends) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

func (b *backends) sessionStore() app.SessionRepository {
	if b.redis != nil {
		return redisstore.NewSessionStore(b.redis, config.TTLDuration(b.cfg.Redis.TTL, 10*time.Minute))
	}
	return memory.NewSessionStore()
}

// progressStore prefers Redis, whose TTL lets abandoned sessions expire.
func (b *backends) progressStore() app.ProgressStore {
	switch {
	case b.redis != nil:
		return redisstore.NewProgressStore(b.redis, config.TTLDuration(b.cfg.Redis.ProgressTTL, 7*24*time.Hour))
	case b.pool != nil:
		return pgstore.NewProgressStore(b.pool)
	default:
		return memory.NewProgressStore()
	}
}

// credentialStore prefers Postgres, since accounts must outlive any TTL.
func (b *backends) credentialStore() app.CredentialStore {
	switch {
	case b.pool != nil:
		return pgstore.NewCredentialStore(b.pool)
	case b.redis != nil:
		return redisstore.NewCredentialStore(b.redis)
	default:
		return memory.NewCredentialStore()
	}
}

func (b *backends) openTDB() *opentdb.Client {
	return opentdb.NewClient(opentdb.Options{
		BaseURL:    b.cfg.OpenTDB.BaseURL,
		Timeout:    config.TTLDuration(b.cfg.OpenTDB.Timeout, 10*time.Second),
		MaxRetries: b.cfg.OpenTDB.Retries(),
		Logger:     b.logger.Named("opentdb"),
	})
}

// questionSource builds the configured source behind a cache.
func (b *backends) questionSource() (app.QuestionSource, error) {
	var source app.QuestionSource
	switch b.cfg.Quiz.Source {
	case config.SourceOpenTDB:
		source = b.openTDB()
	case config.SourceStatic:
		source = memory.NewStaticQuestionSource(memory.SampleQuestions())
	case config.SourcePostgres:
		if b.pool == nil {
			return nil, fmt.Errorf("quiz source %q requires postgres.url", b.cfg.Quiz.Source)
		}
		source = pgstore.NewQuestionBank(b.pool)
	default:
		return nil, fmt.Errorf("unknown quiz source %q", b.cfg.Quiz.Source)
	}

	ttl := config.TTLDuration(b.cfg.Quiz.CacheTTL, 10*time.Minute)
	if b.redis != nil {
		return redisstore.NewQuestionCache(b.redis, source, ttl), nil
	}
	return memory.NewQuestionCache(source, ttl), nil
}

func (b *backends) settings() app.Settings {
	return app.Settings{
		Query: domain.QuestionQuery{
			Amount:     b.cfg.Quiz.Amount,
			Category:   b.cfg.Quiz.Category,
			Difficulty: b.cfg.Quiz.Difficulty,
		},
		TimeLimit: b.cfg.Quiz.TimeLimit,
	}
}
