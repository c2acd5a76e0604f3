package domain

// Source names for request argument bags.
const (
	SourceGet    = "get"
	SourcePost   = "post"
	SourceCookie = "cookie"
	SourceEnv    = "env"
	SourceServer = "server"
	SourceExtra  = "extra"
)

// Args holds the sanitized request arguments, keyed by source name and then
// by field name. It is built once per request during sanitization; afterwards
// only programmatic additions via Add are expected.
type Args map[string]map[string]any

// NewArgs returns an empty argument bag.
func NewArgs() Args {
	return make(Args)
}

// Source returns the field map for a source, or an empty map if the source
// was never populated. The returned map is live; mutating it mutates Args.
func (a Args) Source(name string) map[string]any {
	if m, ok := a[name]; ok {
		return m
	}
	return map[string]any{}
}

// Value returns the sanitized value for a field within a source. Absent
// fields return nil.
func (a Args) Value(source, field string) any {
	return a.Source(source)[field]
}

// Add sets a field programmatically, creating the source map if needed.
func (a Args) Add(source, field string, value any) {
	m, ok := a[source]
	if !ok {
		m = make(map[string]any)
		a[source] = m
	}
	m[field] = value
}

// String returns the field as a string, or "" when absent or of another type.
func (a Args) String(source, field string) string {
	s, _ := a.Value(source, field).(string)
	return s
}

// Int returns the field as an int, or 0 when absent or of another type.
func (a Args) Int(source, field string) int {
	n, _ := a.Value(source, field).(int)
	return n
}

// Bool returns the field as a bool, or false when absent or of another type.
func (a Args) Bool(source, field string) bool {
	b, _ := a.Value(source, field).(bool)
	return b
}
