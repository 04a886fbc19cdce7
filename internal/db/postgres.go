package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/patrickwarner/adcreatives/internal/cache"
	"github.com/patrickwarner/adcreatives/internal/models"
)

// Postgres wraps a postgres DB connection.
type Postgres struct {
	DB  *sql.DB
	now func() time.Time
}

// schemaSQL sets up the necessary tables if they don't exist.
const schemaSQL = `CREATE TABLE IF NOT EXISTS creative_cache (
    ad_account_id TEXT NOT NULL,
    date_range TEXT NOT NULL,
    payload JSONB NOT NULL,
    cached_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (ad_account_id, date_range)
);

CREATE INDEX IF NOT EXISTS idx_creative_cache_cached_at ON creative_cache (cached_at);
`

const (
	selectCacheSQL = `SELECT payload, cached_at FROM creative_cache WHERE ad_account_id = $1 AND date_range = $2 AND cached_at > $3`
	upsertCacheSQL = `INSERT INTO creative_cache (ad_account_id, date_range, payload, cached_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (ad_account_id, date_range) DO UPDATE SET payload = EXCLUDED.payload, cached_at = EXCLUDED.cached_at`
	deleteCacheSQL = `DELETE FROM creative_cache WHERE ad_account_id = $1 AND date_range = $2`
	purgeCacheSQL  = `DELETE FROM creative_cache WHERE cached_at <= $1`
)

// InitPostgres connects to Postgres with connection pooling configuration.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Postgres, error) {
	// Register the otelsql wrapper for postgres
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := NewPostgres(db)
	if err := p.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	zap.L().Info("Connected to Postgres with connection pooling",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns),
		zap.Duration("conn_max_lifetime", connMaxLifetime))
	return p, nil
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{DB: db, now: time.Now}
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// ensureSchema creates the required tables if they do not exist.
func (p *Postgres) ensureSchema(ctx context.Context) error {
	if _, err := p.DB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Get returns the cached response younger than ttlHours, or nil.
func (p *Postgres) Get(ctx context.Context, accountID, dateRange string, ttlHours float64) (*cache.ResponseEntry, error) {
	if ttlHours <= 0 {
		return nil, nil
	}
	cutoff := p.now().Add(-ttlDuration(ttlHours))

	var data []byte
	var cachedAt time.Time
	err := p.DB.QueryRowContext(ctx, selectCacheSQL, accountID, dateRange, cutoff).Scan(&data, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query creative cache: %w", describe(err))
	}
	payload, err := decodePayload(data)
	if err != nil {
		return nil, err
	}
	return &cache.ResponseEntry{Timestamp: cachedAt, Payload: payload}, nil
}

// Save upserts the response for (accountID, dateRange).
func (p *Postgres) Save(ctx context.Context, accountID, dateRange string, payload *models.CreativesResponse) error {
	data, err := encodePayload(payload)
	if err != nil {
		return err
	}
	if _, err := p.DB.ExecContext(ctx, upsertCacheSQL, accountID, dateRange, data, p.now()); err != nil {
		return fmt.Errorf("upsert creative cache: %w", describe(err))
	}
	return nil
}

// Delete removes a cached response.
func (p *Postgres) Delete(ctx context.Context, accountID, dateRange string) error {
	if _, err := p.DB.ExecContext(ctx, deleteCacheSQL, accountID, dateRange); err != nil {
		return fmt.Errorf("delete creative cache: %w", describe(err))
	}
	return nil
}

// Purge deletes entries older than maxAge and returns how many were removed.
func (p *Postgres) Purge(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := p.DB.ExecContext(ctx, purgeCacheSQL, p.now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("purge creative cache: %w", describe(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge rows affected: %w", err)
	}
	return n, nil
}

// describe adds the SQLSTATE to postgres errors.
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%s (sqlstate %s): %w", pqErr.Message, pqErr.Code, err)
	}
	return err
}
