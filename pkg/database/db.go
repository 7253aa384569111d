package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Config holds the connection details of the audit database. DSN is given without the
// postgres:// scheme, e.g. user:pass@host:5432/swap?sslmode=disable.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// DB wraps a pgx pool.
type DB struct {
	pool *pgxpool.Pool
}

// New opens and pings a pool. The returned func closes it.
func New(ctx context.Context, logger *zap.Logger, cfg Config) (*DB, func(), error) {
	poolCfg, err := pgxpool.ParseConfig(ConnString(cfg.DSN))
	if err != nil {
		return nil, nil, fmt.Errorf("parse database dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	poolCfg.MaxConnLifetime = 30 * time.Minute
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("postgres connection pool established", zap.String("dsn", maskDSN(ConnString(cfg.DSN))))

	closer := func() {
		pool.Close()
		logger.Info("postgres connection pool closed")
	}
	return &DB{pool: pool}, closer, nil
}

// ConnString prefixes the scheme when the DSN does not carry one.
func ConnString(dsn string) string {
	if strings.Contains(dsn, "://") {
		return dsn
	}
	return "postgres://" + dsn
}

// maskDSN hides the password of a connection URL.
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "*****")
	}
	return u.String()
}

func (db *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return db.pool.Query(ctx, sql, args...)
}

func (db *DB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return db.pool.Exec(ctx, sql, args...)
}
