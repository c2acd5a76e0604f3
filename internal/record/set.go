package record

import "context"

// LoadFunc materializes one record by ID.
type LoadFunc func(ctx context.Context, id any) (*Record, error)

// Set is a lazily-instantiated result collection. IDs are known up front;
// records are loaded on first access and retained.
type Set struct {
	ids    []any
	load   LoadFunc
	loaded map[int]*Record
}

// NewSet builds a set over known IDs.
func NewSet(ids []any, load LoadFunc) *Set {
	return &Set{
		ids:    ids,
		load:   load,
		loaded: make(map[int]*Record),
	}
}

// Len returns the number of results without loading any of them.
func (s *Set) Len() int {
	return len(s.ids)
}

// IDs returns the raw result IDs.
func (s *Set) IDs() []any {
	return s.ids
}

// At returns the record at position i, loading it on first access.
func (s *Set) At(ctx context.Context, i int) (*Record, error) {
	if i < 0 || i >= len(s.ids) {
		return nil, ErrNotFound
	}
	if r, ok := s.loaded[i]; ok {
		return r, nil
	}
	r, err := s.load(ctx, s.ids[i])
	if err != nil {
		return nil, err
	}
	s.loaded[i] = r
	return r, nil
}

// Each calls fn for every record in order, loading as it goes. Iteration
// stops at the first error.
func (s *Set) Each(ctx context.Context, fn func(*Record) error) error {
	for i := range s.ids {
		r, err := s.At(ctx, i)
		if err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}
