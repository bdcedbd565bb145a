// Package postgres stores user accounts in PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/config"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

const (
	connectTimeout    = 10 * time.Second
	pingTimeout       = 5 * time.Second
	slowPingThreshold = 100 * time.Millisecond
)

// DBConnection manages the PostgreSQL connection pool lifecycle.
type DBConnection struct {
	pool   *pgxpool.Pool
	config *config.DatabaseConfig
	logger logger.Logger
}

// NewDBConnection opens a pool for cfg and verifies it with a ping.
func NewDBConnection(ctx context.Context, cfg *config.DatabaseConfig, log logger.Logger) (*DBConnection, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		log.Error(ctx, "Failed to create database connection pool", err)
		return nil, fmt.Errorf("create database pool: %w", err)
	}

	db := &DBConnection{pool: pool, config: cfg, logger: log}
	if err := db.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info(ctx, "PostgreSQL connection pool initialized", logger.Fields{
		"host":      poolConfig.ConnConfig.Host,
		"database":  poolConfig.ConnConfig.Database,
		"max_conns": poolConfig.MaxConns,
	})
	return db, nil
}

// Pool returns the underlying pool for repositories.
func (db *DBConnection) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping verifies the database is reachable. It backs the readiness endpoint.
func (db *DBConnection) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := time.Now()
	if err := db.pool.Ping(pingCtx); err != nil {
		db.logger.Error(ctx, "Database ping failed", err)
		return fmt.Errorf("database ping: %w", err)
	}
	if latency := time.Since(start); latency > slowPingThreshold {
		db.logger.Warn(ctx, "High database latency detected", logger.Fields{"latency_ms": latency.Milliseconds()})
	}
	return nil
}

// Close shuts the pool down, waiting for acquired connections to be released.
func (db *DBConnection) Close() {
	db.pool.Close()
	db.logger.Info(context.Background(), "PostgreSQL connection pool closed")
}
