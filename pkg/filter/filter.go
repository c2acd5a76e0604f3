/*
Package filter implements the declarative input-sanitization engine.

A Schema maps field names to either a scalar type descriptor string
("integer", "string:64", "enum:red,blue", ...), a nested Schema for
sub-objects, or a Map describing a homogeneous collection. Apply walks the
schema against an untrusted input structure and produces a cleaned output
that has exactly the schema's key set at every nesting level. Malformed
input never causes an error; invalid values degrade to a typed default.
*/
package filter

import (
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// Schema maps field names to value specifications. A value is one of:
// a descriptor string, a nested Schema, or a Map.
type Schema map[string]any

// Map describes a homogeneous collection. Values applies to every element.
// When Keys is empty the result is re-indexed into a slice; otherwise keys
// are sanitized with the Keys descriptor and the key-value association is
// preserved. Entries whose sanitized key is nil or false are dropped.
type Map struct {
	Keys   string
	Values any
}

// Pair is one entry of a named lookup table, in declaration order.
type Pair struct {
	Key   any
	Value any
}

// Filter sanitizes values against schemas. The zero value is not usable;
// construct with New.
type Filter struct {
	policy   *bluemonday.Policy
	validate *validator.Validate

	mu     sync.RWMutex
	tables map[string][]Pair
	res    map[string]*regexp.Regexp
}

// New returns a Filter with an empty table registry.
func New() *Filter {
	return &Filter{
		policy:   bluemonday.StrictPolicy(),
		validate: validator.New(),
		tables:   make(map[string][]Pair),
		res:      make(map[string]*regexp.Regexp),
	}
}

// RegisterTable installs a named lookup table for "data:" descriptors.
// Order matters: the first entry supplies the mismatch default.
func (f *Filter) RegisterTable(name string, entries []Pair) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[name] = entries
}

func (f *Filter) table(name string) []Pair {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.tables[name]
}

// compile returns a cached compiled pattern, or nil if it does not compile.
func (f *Filter) compile(pattern string) *regexp.Regexp {
	f.mu.RLock()
	re, ok := f.res[pattern]
	f.mu.RUnlock()
	if ok {
		return re
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		re = nil
	}
	f.mu.Lock()
	f.res[pattern] = re
	f.mu.Unlock()
	return re
}

// Apply sanitizes input against the schema. Every field declared in the
// schema is present in the output, fields absent from the input included;
// fields not declared never appear.
func (f *Filter) Apply(input map[string]any, s Schema) map[string]any {
	out := make(map[string]any, len(s))
	for field, spec := range s {
		out[field] = f.Value(input[field], spec)
	}
	return out
}

// Value sanitizes a single value against a field specification.
func (f *Filter) Value(v any, spec any) any {
	switch sp := spec.(type) {
	case string:
		return f.assert(v, sp)
	case Schema:
		return f.Apply(asObject(v), sp)
	case map[string]any:
		return f.Apply(asObject(v), Schema(sp))
	case Map:
		return f.applyMap(v, sp)
	default:
		return nil
	}
}

func (f *Filter) applyMap(v any, m Map) any {
	entries := asEntries(v)
	if m.Keys == "" {
		out := make([]any, 0, len(entries))
		for _, e := range entries {
			out = append(out, f.Value(e.val, m.Values))
		}
		return out
	}
	out := make(map[any]any, len(entries))
	for _, e := range entries {
		key := f.assert(e.key, m.Keys)
		if key == nil || key == false {
			continue
		}
		out[key] = f.Value(e.val, m.Values)
	}
	return out
}

type entry struct {
	key string
	val any
}

// asEntries normalizes a collection input into ordered key-value entries.
// Maps iterate in sorted key order so output is deterministic; anything that
// is not a collection yields no entries.
func asEntries(v any) []entry {
	switch c := v.(type) {
	case []any:
		out := make([]entry, len(c))
		for i, e := range c {
			out[i] = entry{key: strconv.Itoa(i), val: e}
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(c))
		for k := range c {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]entry, 0, len(c))
		for _, k := range keys {
			out = append(out, entry{key: k, val: c[k]})
		}
		return out
	}
	return nil
}

// asObject coerces a value to a field map, treating anything else as empty.
func asObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
