package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/classify/catalog/internal/config"
	"github.com/classify/catalog/internal/repository"
	"github.com/classify/catalog/internal/repository/breaker"
	"github.com/classify/catalog/internal/repository/memory"
	"github.com/classify/catalog/internal/repository/postgres"
	"github.com/classify/catalog/internal/repository/redis"
	"github.com/classify/catalog/migrations"
	"github.com/classify/catalog/pkg/database"
	"github.com/classify/catalog/pkg/health"
)

// Storage is the course repository selected by configuration together with
// the connections backing it.
type Storage struct {
	Repo repository.CourseRepository

	pool  *pgxpool.Pool
	redis *goredis.Client
}

// OpenStorage builds the repository for cfg.StorageDriver, running migrations
// for postgres and wrapping it in the Redis cache when enabled. Collectors are
// registered on reg when it is non-nil.
func OpenStorage(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (*Storage, error) {
	s := &Storage{}

	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)
		s.pool = pool

		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")

		if reg != nil {
			if err := database.RegisterPoolMetrics(reg, pool, config.ServiceName); err != nil {
				logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
			}
		}
		s.Repo = postgres.NewCourseRepository(pool, logger)

		if cfg.BreakerEnabled {
			guarded := breaker.New(s.Repo, cfg.Breaker(), logger)
			if reg != nil {
				if err := reg.Register(guarded); err != nil {
					logger.Warn("breaker metrics not registered", slog.String("error", err.Error()))
				}
			}
			s.Repo = guarded
		}
	default:
		s.Repo = memory.NewCourseRepository()
		logger.Info("using in-memory course storage")
	}

	if cfg.CacheEnabled {
		client, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))
		s.redis = client

		cache := redis.NewCourseCache(s.Repo, client, cfg.CacheTTL(), logger)
		if reg != nil {
			if err := reg.Register(cache); err != nil {
				logger.Warn("cache metrics not registered", slog.String("error", err.Error()))
			}
		}
		s.Repo = cache
	}

	return s, nil
}

// RegisterHealth adds a readiness checker per backing connection.
func (s *Storage) RegisterHealth(h *health.Handler) {
	h.Register("storage", s.Repo.Ping)
	if s.redis != nil {
		h.Register("redis", func(ctx context.Context) error {
			return s.redis.Ping(ctx).Err()
		})
	}
}

// Close releases the Redis client and the PostgreSQL pool.
func (s *Storage) Close() error {
	var errs []error
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return errors.Join(errs...)
}
