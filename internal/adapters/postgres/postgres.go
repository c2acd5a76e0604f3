// Package postgres provides named connection pools over the pgx stdlib
// driver, implementing ports.Pools.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/trebframework/treb/internal/config"
	"github.com/trebframework/treb/pkg/domain"
)

// Pools holds the process's named database pools, opened once at startup.
type Pools struct {
	pools map[string]*sql.DB
	log   *slog.Logger
}

// Open builds a pool per configured database and verifies connectivity.
func Open(ctx context.Context, dbs map[string]config.Database, log *slog.Logger) (*Pools, error) {
	p := &Pools{
		pools: make(map[string]*sql.DB, len(dbs)),
		log:   log,
	}
	for name, cfg := range dbs {
		db, err := connect(ctx, cfg)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("pool %q: %w", name, err)
		}
		p.pools[name] = db
	}
	return p, nil
}

func connect(ctx context.Context, cfg config.Database) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify database connection: %w", err)
	}
	return db, nil
}

// Pool returns the pool registered under name.
func (p *Pools) Pool(name string) (*sql.DB, error) {
	db, ok := p.pools[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown pool %q", domain.ErrPersistence, name)
	}
	return db, nil
}

// Close shuts down every pool.
func (p *Pools) Close() {
	for name, db := range p.pools {
		if err := db.Close(); err != nil {
			p.log.Warn("closing pool", "pool", name, "err", err)
		}
	}
}

// Query runs a parameterized query on a named pool, logging failures before
// wrapping them as persistence errors.
func (p *Pools) Query(ctx context.Context, pool, query string, args ...any) (*sql.Rows, error) {
	db, err := p.Pool(pool)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		p.log.Error("query failed", "pool", pool, "err", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return rows, nil
}

// Exec runs a parameterized statement on a named pool.
func (p *Pools) Exec(ctx context.Context, pool, query string, args ...any) (sql.Result, error) {
	db, err := p.Pool(pool)
	if err != nil {
		return nil, err
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		p.log.Error("exec failed", "pool", pool, "err", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return res, nil
}
