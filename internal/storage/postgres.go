package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"atsengine/internal/config"
	"atsengine/internal/errors"
	"atsengine/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createRecordsTable = `
CREATE TABLE IF NOT EXISTS analysis_records (
	id                  TEXT PRIMARY KEY,
	email               TEXT NOT NULL DEFAULT '',
	mobile              TEXT NOT NULL DEFAULT '',
	address             TEXT NOT NULL DEFAULT '',
	skills              JSONB NOT NULL DEFAULT '[]',
	experience          JSONB NOT NULL DEFAULT '[]',
	education           JSONB NOT NULL DEFAULT '[]',
	years_experience    DOUBLE PRECISION NOT NULL DEFAULT 0,
	linkedin            TEXT NOT NULL DEFAULT '',
	github              TEXT NOT NULL DEFAULT '',
	summary             TEXT NOT NULL DEFAULT '',
	certifications      JSONB NOT NULL DEFAULT '[]',
	ats_score           INTEGER NOT NULL,
	score_breakdown     JSONB NOT NULL,
	issues              JSONB NOT NULL DEFAULT '[]',
	recommendations     JSONB NOT NULL DEFAULT '[]',
	industry            TEXT NOT NULL,
	uploaded_at         TIMESTAMPTZ NOT NULL
)`

const insertRecord = `
INSERT INTO analysis_records (
	id, email, mobile, address, skills, experience, education, years_experience,
	linkedin, github, summary, certifications, ats_score, score_breakdown,
	issues, recommendations, industry, uploaded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
ON CONFLICT (id) DO UPDATE SET
	ats_score = EXCLUDED.ats_score,
	score_breakdown = EXCLUDED.score_breakdown,
	issues = EXCLUDED.issues,
	recommendations = EXCLUDED.recommendations,
	uploaded_at = EXCLUDED.uploaded_at
RETURNING id`

// querier is the subset of pgxpool.Pool the recorder uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRecorder writes analysis records to PostgreSQL.
type PostgresRecorder struct {
	pool   *pgxpool.Pool
	db     querier
	logger *errors.Logger
}

// NewPostgresRecorder opens a pool, checks connectivity and creates the
// records table when Migrate is set.
func NewPostgresRecorder(ctx context.Context, cfg config.PostgresConfig, logger *errors.Logger) (*PostgresRecorder, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, errors.NewStorageUnavailable("invalid postgres DSN", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.NewStorageUnavailable("failed to create postgres pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.NewStorageUnavailable("failed to reach postgres", err)
	}

	r := &PostgresRecorder{pool: pool, db: pool, logger: logger}
	if cfg.Migrate {
		if err := r.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}

	logger.Info("Postgres connection established",
		"host", poolCfg.ConnConfig.Host,
		"database", poolCfg.ConnConfig.Database,
		"max_conns", poolCfg.MaxConns)
	return r, nil
}

func poolConfig(cfg config.PostgresConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	return poolCfg, nil
}

// Migrate creates the records table if it does not exist.
func (r *PostgresRecorder) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createRecordsTable); err != nil {
		return errors.NewStorageUnavailable("failed to create analysis_records table", err)
	}
	return nil
}

// Persist upserts rec and returns its storage identifier, which is the
// analysis ID.
func (r *PostgresRecorder) Persist(ctx context.Context, rec types.PersistedRecord) (string, error) {
	args, err := recordArgs(rec)
	if err != nil {
		return "", errors.NewStorageUnavailable("failed to encode analysis record", err)
	}

	var id string
	if err := r.db.QueryRow(ctx, insertRecord, args...).Scan(&id); err != nil {
		return "", errors.NewStorageUnavailable("failed to persist analysis record", err).
			WithContext("id", rec.ID)
	}
	r.logger.Debug("Analysis record persisted", "id", id, "score", rec.ATSScore)
	return id, nil
}

// recordArgs orders the insert parameters. Collections are sent as JSON
// text so jsonb receives them unchanged.
func recordArgs(rec types.PersistedRecord) ([]any, error) {
	jsonCols := []any{
		nonNil(rec.Skills), nonNil(rec.Experience), nonNil(rec.Education),
		nonNil(rec.Certifications), rec.ScoreBreakdown,
		nonNil(rec.Issues), nonNil(rec.Recommendations),
	}
	encoded := make([]string, len(jsonCols))
	for i, v := range jsonCols {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		encoded[i] = string(b)
	}

	return []any{
		rec.ID, rec.Email, rec.Mobile, rec.Address,
		encoded[0], encoded[1], encoded[2],
		rec.YearsExperience,
		rec.LinkedIn, rec.GitHub, rec.Summary,
		encoded[3],
		rec.ATSScore,
		encoded[4], encoded[5], encoded[6],
		rec.Industry, rec.UploadedAt,
	}, nil
}

// nonNil turns nil slices into empty ones so the column holds [] not null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Ping checks connectivity.
func (r *PostgresRecorder) Ping(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	return r.pool.Ping(ctx)
}

// Close closes the pool.
func (r *PostgresRecorder) Close() {
	if r != nil && r.pool != nil {
		r.pool.Close()
	}
}
