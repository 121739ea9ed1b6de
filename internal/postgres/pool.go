// Package postgres implements the PostgreSQL backend (C4): a bounded
// connection pool, auto-discovery of spatial tables and MVT-returning
// functions, and per-request SQL generation via ST_AsMVT.
//
// The pool is opened through database/sql using jackc/pgx/v5's stdlib
// driver, the modern idiomatic pgx entrypoint; MartinMeyer1-bike-map's
// postgis_service.go grounds the database/sql usage shape (sql.Open +
// driver-specific import for side effects), generalized here from
// lib/pq to pgx/v5/stdlib.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tileserv/tileserv/internal/errs"
	"github.com/tileserv/tileserv/internal/metrics"
)

// SSLMode mirrors the standard Postgres client sslmode levels.
type SSLMode string

const (
	SSLDisable    SSLMode = "disable"
	SSLPrefer     SSLMode = "prefer"
	SSLRequire    SSLMode = "require"
	SSLVerifyCA   SSLMode = "verify-ca"
	SSLVerifyFull SSLMode = "verify-full"
)

// PoolConfig configures the connection pool.
type PoolConfig struct {
	ConnectionString string
	PoolSize         int
	DefaultSRID      int
	SSLMode          SSLMode
	SSLCert          string
	SSLKey           string
	SSLRootCert      string
}

// Pool wraps a single *sql.DB checked out per request, one query per
// connection, per spec §4.4.1 and §5's resource table.
type Pool struct {
	db          *sql.DB
	defaultSRID int
	metrics     *metrics.Metrics
}

// Open establishes the pool. Connections are lazily created by
// database/sql; SetMaxOpenConns bounds concurrent checkout to
// cfg.PoolSize (default 20). m may be nil, in which case per-query
// latency is not recorded.
func Open(ctx context.Context, cfg PoolConfig, m *metrics.Metrics) (*Pool, error) {
	dsn := cfg.ConnectionString
	if cfg.SSLMode != "" {
		dsn = appendDSNParam(dsn, "sslmode", string(cfg.SSLMode))
	}
	if cfg.SSLCert != "" {
		dsn = appendDSNParam(dsn, "sslcert", cfg.SSLCert)
	}
	if cfg.SSLKey != "" {
		dsn = appendDSNParam(dsn, "sslkey", cfg.SSLKey)
	}
	if cfg.SSLRootCert != "" {
		dsn = appendDSNParam(dsn, "sslrootcert", cfg.SSLRootCert)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errs.Config("opening postgres pool", err)
	}
	size := cfg.PoolSize
	if size <= 0 {
		size = 20
	}
	db.SetMaxOpenConns(size)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errs.Config("connecting to postgres", err)
	}

	return &Pool{db: db, defaultSRID: cfg.DefaultSRID, metrics: m}, nil
}

func (p *Pool) Close() error { return p.db.Close() }

// QueryRowContext runs query against the pool's connection, recording
// its latency in PostgresQueryLatency when metrics are configured.
func (p *Pool) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	if p.metrics != nil {
		timer := prometheus.NewTimer(p.metrics.PostgresQueryLatency)
		defer timer.ObserveDuration()
	}
	return p.db.QueryRowContext(ctx, query, args...)
}

// appendDSNParam appends a key=value pair to dsn, supporting both the
// postgres://... URL form and the libpq "key=value key=value" keyword
// form.
func appendDSNParam(dsn, key, value string) string {
	if isURLDSN(dsn) {
		sep := "?"
		for i := 0; i < len(dsn); i++ {
			if dsn[i] == '?' {
				sep = "&"
				break
			}
		}
		return fmt.Sprintf("%s%s%s=%s", dsn, sep, key, value)
	}
	return fmt.Sprintf("%s %s=%s", dsn, key, value)
}

func isURLDSN(dsn string) bool {
	return len(dsn) >= 11 && (dsn[:11] == "postgres://" || (len(dsn) >= 13 && dsn[:13] == "postgresql://"))
}
