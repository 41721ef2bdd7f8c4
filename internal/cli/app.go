package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/cache"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/events"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/service"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/storage"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/storage/inmemory"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/storage/mongo"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/storage/postgres"
	"github.com/MyNameIsWhaaat/commentthread/internal/config"
	"github.com/MyNameIsWhaaat/commentthread/internal/logger"
	"github.com/MyNameIsWhaaat/commentthread/internal/metrics"
)

// app holds everything a command needs, built from the configuration.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	backend storage.Backend
	metrics *metrics.Metrics
	svc     service.CommentService

	closers []func(ctx context.Context) error
}

func loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger.New(cfg.Log.Level, cfg.Log.Format), nil
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.backend = backend
	a.closers = append(a.closers, backend.Close)
	log.Info().Str("backend", cfg.Storage.Backend).Msg("storage_ready")

	authors := cache.NewAuthors(backend.Authors, cfg.Cache.AuthorTTL.Duration)
	a.closers = append(a.closers, func(context.Context) error {
		authors.Stop()
		return nil
	})

	opts := []service.Option{
		service.WithLogger(log.With().Str("component", "service").Logger()),
		service.WithMetrics(a.metrics),
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = a.close(ctx)
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		opts = append(opts, service.WithCache(cache.NewRedis(client, cfg.Redis.TTL.Duration)))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("thread_cache_enabled")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		pub := events.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		a.closers = append(a.closers, func(context.Context) error { return pub.Close() })
		opts = append(opts, service.WithPublisher(pub))
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("event_publisher_enabled")
	}

	a.svc = service.New(backend.Comments, backend.Articles, authors, opts...)
	return a, nil
}

func openBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendMongo:
		return mongo.NewBackend(ctx, &mongo.Config{
			URI:            cfg.Mongo.URI,
			DBName:         cfg.Mongo.DBName,
			ConnectTimeout: cfg.Mongo.ConnectTimeout.Duration,
		})
	case config.BackendPostgres:
		return postgres.NewBackend(ctx, cfg.Postgres.DSN)
	case config.BackendMemory:
		return inmemory.NewBackend(), nil
	default:
		return storage.Backend{}, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
