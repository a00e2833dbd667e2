// Package storage holds the external collaborators of the analysis and
// improvement pipelines: the PostgreSQL record store, the Redis critique
// cache, the MinIO and S3 document stores and the RabbitMQ event publisher.
//
// Every store is optional. Open only connects the stores that are enabled in
// configuration and leaves the rest nil, so callers pass nil-checked
// collaborators to the pipelines.
package storage

import (
	"context"
	"fmt"

	"atsengine/internal/config"
	"atsengine/internal/errors"
)

// DocumentStore persists rendered documents and returns a retrievable URL.
type DocumentStore interface {
	Put(ctx context.Context, key string, data []byte, mediaType string) (string, error)
	Close() error
}

// Stores aggregates the configured backends.
type Stores struct {
	Records   *PostgresRecorder
	Cache     *RedisCache
	Documents DocumentStore
	Events    *AMQPPublisher

	logger *errors.Logger
}

// Open connects every enabled backend. A failure closes whatever was already
// opened and is returned as StorageUnavailable.
func Open(ctx context.Context, cfg config.StorageConfig, logger *errors.Logger) (*Stores, error) {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	s := &Stores{logger: logger}

	if cfg.Postgres.Enabled {
		rec, err := NewPostgresRecorder(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, s.fail(err)
		}
		s.Records = rec
	}

	if cfg.Redis.Enabled {
		cache, err := NewRedisCache(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, s.fail(err)
		}
		s.Cache = cache
	}

	switch cfg.Documents.Backend {
	case config.DocumentBackendMinIO:
		docs, err := NewMinIODocumentStore(ctx, cfg.MinIO, cfg.Documents, logger)
		if err != nil {
			return nil, s.fail(err)
		}
		s.Documents = docs
	case config.DocumentBackendS3:
		docs, err := NewS3DocumentStore(ctx, cfg.S3, cfg.Documents, logger)
		if err != nil {
			return nil, s.fail(err)
		}
		s.Documents = docs
	}

	if cfg.RabbitMQ.Enabled {
		pub, err := NewAMQPPublisher(cfg.RabbitMQ, logger)
		if err != nil {
			return nil, s.fail(err)
		}
		s.Events = pub
	}

	logger.Info("Storage initialized", "backends", s.Enabled())
	return s, nil
}

func (s *Stores) fail(err error) error {
	if cerr := s.Close(); cerr != nil {
		s.logger.LogError(cerr, "Failed to close storage after init error")
	}
	if errors.HasCode(err, errors.ErrCodeStorageUnavailable) {
		return err
	}
	return errors.NewStorageUnavailable("failed to initialize storage", err)
}

// Enabled lists the names of the connected backends.
func (s *Stores) Enabled() []string {
	var names []string
	if s == nil {
		return names
	}
	if s.Records != nil {
		names = append(names, "postgres")
	}
	if s.Cache != nil {
		names = append(names, "redis")
	}
	switch s.Documents.(type) {
	case *MinIODocumentStore:
		names = append(names, "minio")
	case *S3DocumentStore:
		names = append(names, "s3")
	}
	if s.Events != nil {
		names = append(names, "rabbitmq")
	}
	return names
}

// Health pings the backends that support it. Each entry is "ok" or the
// error text.
func (s *Stores) Health(ctx context.Context) map[string]string {
	out := map[string]string{}
	if s == nil {
		return out
	}
	check := func(name string, err error) {
		if err != nil {
			out[name] = err.Error()
			return
		}
		out[name] = "ok"
	}
	if s.Records != nil {
		check("postgres", s.Records.Ping(ctx))
	}
	if s.Cache != nil {
		check("redis", s.Cache.Ping(ctx))
	}
	return out
}

// Close releases every backend and reports the first error.
func (s *Stores) Close() error {
	if s == nil {
		return nil
	}
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if s.Records != nil {
		s.Records.Close()
	}
	if s.Cache != nil {
		keep(s.Cache.Close())
	}
	if s.Documents != nil {
		keep(s.Documents.Close())
	}
	if s.Events != nil {
		keep(s.Events.Close())
	}
	if first != nil {
		return fmt.Errorf("failed to close storage: %w", first)
	}
	return nil
}
