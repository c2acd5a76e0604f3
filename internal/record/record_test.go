package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebframework/treb/internal/adapters/memory"
	"github.com/trebframework/treb/internal/logging"
)

// noPools fails every pool lookup; tests using it must stay on the cache path.
type noPools struct{}

func (noPools) Pool(string) (*sql.DB, error) {
	return nil, errors.New("no database in this test")
}

var users = Table{Pool: "main", Name: "users", PK: "id"}

func TestDirtyTracking(t *testing.T) {
	s := NewStore(noPools{}, memory.NewCache(), time.Minute, logging.NewNop())
	r := s.New(users)

	assert.Empty(t, r.Dirty())

	r.Set("name", "Bob")
	r.Set("age", 30)
	assert.Equal(t, []string{"age", "name"}, r.Dirty())

	// Re-assigning the same value does not re-dirty.
	r2 := &Record{table: users, cols: Row{"name": "Bob"}, dirty: map[string]struct{}{}}
	r2.Set("name", "Bob")
	assert.Empty(t, r2.Dirty())
	r2.Set("name", "Alice")
	assert.Equal(t, []string{"name"}, r2.Dirty())
}

func TestLoad_ReadThroughCacheHit(t *testing.T) {
	cache := memory.NewCache()
	s := NewStore(noPools{}, cache, time.Minute, logging.NewNop())
	ctx := context.Background()

	row, _ := json.Marshal(Row{"id": float64(7), "name": "Bob"})
	require.NoError(t, cache.Set(ctx, cacheKey(users, 7), row, time.Minute))

	// The pool would error; a cache hit must never reach it.
	r, err := s.Load(ctx, users, 7)
	require.NoError(t, err)
	assert.Equal(t, "Bob", r.Get("name"))
	assert.Empty(t, r.Dirty())
	assert.False(t, r.Fresh())
}

func TestLoad_CorruptCacheEntryFallsThrough(t *testing.T) {
	cache := memory.NewCache()
	s := NewStore(noPools{}, cache, time.Minute, logging.NewNop())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, cacheKey(users, 7), []byte("{not json"), time.Minute))

	_, err := s.Load(ctx, users, 7)
	// Falls through to the (absent) database.
	assert.Error(t, err)
	// The corrupt entry was evicted.
	_, err = cache.Get(ctx, cacheKey(users, 7))
	assert.Error(t, err)
}

func TestBuildUpdate(t *testing.T) {
	cols := Row{"id": 7, "name": "Bob", "age": 30}
	query, args := buildUpdate(users, 7, cols, []string{"age", "name"})

	assert.Equal(t, "UPDATE users SET age = $1, name = $2 WHERE id = $3", query)
	assert.Equal(t, []any{30, "Bob", 7}, args)
}

func TestBuildInsert(t *testing.T) {
	cols := Row{"name": "Bob", "age": 30}
	query, args := buildInsert(users, cols, []string{"age", "name"})

	assert.Equal(t, "INSERT INTO users (age, name) VALUES ($1, $2)", query)
	assert.Equal(t, []any{30, "Bob"}, args)
}

func TestSet_LazyLoading(t *testing.T) {
	loads := 0
	set := NewSet([]any{1, 2, 3}, func(_ context.Context, id any) (*Record, error) {
		loads++
		return &Record{cols: Row{"id": id}, dirty: map[string]struct{}{}}, nil
	})
	ctx := context.Background()

	assert.Equal(t, 3, set.Len())
	assert.Zero(t, loads, "Len must not materialize records")

	r, err := set.At(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Get("id"))
	assert.Equal(t, 1, loads)

	// Repeated access does not reload.
	_, err = set.At(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, loads)

	_, err = set.At(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSet_Each(t *testing.T) {
	set := NewSet([]any{1, 2}, func(_ context.Context, id any) (*Record, error) {
		return &Record{cols: Row{"id": id}, dirty: map[string]struct{}{}}, nil
	})

	var seen []any
	err := set.Each(context.Background(), func(r *Record) error {
		seen = append(seen, r.Get("id"))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, seen)
}
