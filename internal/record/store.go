package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/trebframework/treb/pkg/domain"
	"github.com/trebframework/treb/pkg/ports"
)

// Store coordinates the database pools and the cache for record access.
// Loads are read-through: cache first, then the database, populating the
// cache on the way out. Saves write dirty columns to the database and then
// write through to the cache.
type Store struct {
	pools ports.Pools
	cache ports.Cache
	ttl   time.Duration
	log   *slog.Logger
}

// NewStore builds a record store. ttl governs cached row lifetime.
func NewStore(pools ports.Pools, cache ports.Cache, ttl time.Duration, log *slog.Logger) *Store {
	return &Store{pools: pools, cache: cache, ttl: ttl, log: log}
}

func cacheKey(t Table, id any) string {
	return fmt.Sprintf("record:%s:%v", t.Name, id)
}

// New returns an unpersisted record; every assigned column is dirty.
func (s *Store) New(t Table) *Record {
	return &Record{
		table: t,
		cols:  make(Row),
		dirty: make(map[string]struct{}),
		fresh: true,
	}
}

// Load fetches a record by primary key, reading through the cache.
func (s *Store) Load(ctx context.Context, t Table, id any) (*Record, error) {
	if data, err := s.cache.Get(ctx, cacheKey(t, id)); err == nil {
		var cols Row
		if err := json.Unmarshal(data, &cols); err == nil {
			return &Record{table: t, cols: cols, dirty: make(map[string]struct{})}, nil
		}
		// Corrupt cache entry: fall through to the database.
		_ = s.cache.Delete(ctx, cacheKey(t, id))
	}

	cols, err := s.fetch(ctx, t, id)
	if err != nil {
		return nil, err
	}
	s.cacheRow(ctx, t, id, cols)
	return &Record{table: t, cols: cols, dirty: make(map[string]struct{})}, nil
}

func (s *Store) fetch(ctx context.Context, t Table, id any) (Row, error) {
	db, err := s.pools.Pool(t.Pool)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", t.Name, t.PK)
	rows, err := db.QueryContext(ctx, query, id)
	if err != nil {
		s.log.Error("record fetch failed", "table", t.Name, "err", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ErrNotFound
	}
	return scanRow(rows)
}

func scanRow(rows *sql.Rows) (Row, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	vals := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	cols := make(Row, len(names))
	for i, n := range names {
		if b, ok := vals[i].([]byte); ok {
			cols[n] = string(b)
		} else {
			cols[n] = vals[i]
		}
	}
	return cols, nil
}

// Save persists dirty columns and refreshes the cache. Saving a record with
// no dirty columns is a no-op.
func (s *Store) Save(ctx context.Context, r *Record) error {
	if len(r.dirty) == 0 && !r.fresh {
		return nil
	}
	db, err := s.pools.Pool(r.table.Pool)
	if err != nil {
		return err
	}

	var query string
	var args []any
	if r.fresh {
		query, args = buildInsert(r.table, r.cols, r.Dirty())
	} else {
		query, args = buildUpdate(r.table, r.ID(), r.cols, r.Dirty())
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		s.log.Error("record save failed", "table", r.table.Name, "err", err)
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	r.clearDirty()
	s.cacheRow(ctx, r.table, r.ID(), r.cols)
	return nil
}

// Delete removes the row and invalidates the cache entry.
func (s *Store) Delete(ctx context.Context, r *Record) error {
	db, err := s.pools.Pool(r.table.Pool)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", r.table.Name, r.table.PK)
	if _, err := db.ExecContext(ctx, query, r.ID()); err != nil {
		s.log.Error("record delete failed", "table", r.table.Name, "err", err)
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return s.cache.Delete(ctx, cacheKey(r.table, r.ID()))
}

func (s *Store) cacheRow(ctx context.Context, t Table, id any, cols Row) {
	data, err := json.Marshal(cols)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(t, id), data, s.ttl); err != nil {
		s.log.Warn("record cache write failed", "table", t.Name, "err", err)
	}
}

// Select runs an ID query and returns a lazily-loading Set over the results.
// The query must select the primary key column only.
func (s *Store) Select(ctx context.Context, t Table, query string, args ...any) (*Set, error) {
	db, err := s.pools.Pool(t.Pool)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		s.log.Error("record select failed", "table", t.Name, "err", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var ids []any
	for rows.Next() {
		var id any
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	return NewSet(ids, func(ctx context.Context, id any) (*Record, error) {
		return s.Load(ctx, t, id)
	}), nil
}

func buildUpdate(t Table, id any, cols Row, dirty []string) (string, []any) {
	sets := make([]string, 0, len(dirty))
	args := make([]any, 0, len(dirty)+1)
	for i, c := range dirty {
		sets = append(sets, fmt.Sprintf("%s = $%d", c, i+1))
		args = append(args, cols[c])
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		t.Name, strings.Join(sets, ", "), t.PK, len(dirty)+1)
	return query, append(args, id)
}

func buildInsert(t Table, cols Row, dirty []string) (string, []any) {
	names := make([]string, 0, len(dirty))
	marks := make([]string, 0, len(dirty))
	args := make([]any, 0, len(dirty))
	for i, c := range dirty {
		names = append(names, c)
		marks = append(marks, fmt.Sprintf("$%d", i+1))
		args = append(args, cols[c])
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.Name, strings.Join(names, ", "), strings.Join(marks, ", "))
	return query, args
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
