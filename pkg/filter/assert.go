package filter

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// assertFunc applies one scalar type descriptor. opt is the text after the
// first ":" in the descriptor, "" when absent.
type assertFunc func(f *Filter, v any, opt string) any

// asserts is the scalar dispatch table. Descriptors resolve here explicitly;
// an unknown descriptor sanitizes to nil.
var asserts = map[string]assertFunc{
	"integer": assertInteger,
	"float":   assertFloat,
	"boolean": assertBoolean,
	"string":  assertString,
	"hex":     assertHex,
	"base36":  assertBase36,
	"email":   assertEmail,
	"url":     assertURL,
	"enum":    assertEnum,
	"regex":   assertRegex,
	"date":    assertDate,
	"raw":     assertRaw,
	"data":    assertData,
}

func (f *Filter) assert(v any, descriptor string) any {
	name, opt := descriptor, ""
	if i := strings.Index(descriptor, ":"); i >= 0 {
		name, opt = descriptor[:i], descriptor[i+1:]
	}
	fn, ok := asserts[name]
	if !ok {
		return nil
	}
	return fn(f, v, opt)
}

var leadingInt = regexp.MustCompile(`^[+-]?[0-9]+`)

func assertInteger(_ *Filter, v any, _ string) any {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		return int(n)
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		if m := leadingInt.FindString(strings.TrimSpace(n)); m != "" {
			if i, err := strconv.Atoi(m); err == nil {
				return i
			}
		}
	}
	return 0
}

func assertFloat(_ *Filter, v any, _ string) any {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if x, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return x
		}
	}
	return 0.0
}

func assertBoolean(_ *Filter, v any, _ string) any {
	switch b := v.(type) {
	case bool:
		return b
	case int:
		return b != 0
	case int64:
		return b != 0
	case float64:
		return b != 0
	case string:
		return b != "" && b != "0"
	case nil:
		return false
	}
	return true
}

var unicodeSpace = regexp.MustCompile(`[\s\p{Zs}\x{feff}\x{200b}]+`)

func assertString(f *Filter, v any, opt string) any {
	s := stringify(v)
	s = html.UnescapeString(f.policy.Sanitize(s))
	s = unicodeSpace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if opt != "" {
		if max, err := strconv.Atoi(opt); err == nil && max >= 0 {
			r := []rune(s)
			if len(r) > max {
				s = strings.TrimSpace(string(r[:max]))
			}
		}
	}
	return s
}

func assertHex(_ *Filter, v any, _ string) any {
	s := stringify(v)
	if s == "" {
		return nil
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return nil
		}
	}
	return s
}

func assertBase36(_ *Filter, v any, _ string) any {
	s := strings.ToLower(stringify(v))
	if s == "" {
		return nil
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z':
		default:
			return nil
		}
	}
	return s
}

func assertEmail(f *Filter, v any, _ string) any {
	s := stringify(v)
	if s == "" {
		return nil
	}
	if f.validate.Var(s, "email") != nil {
		return false
	}
	return s
}

func assertURL(f *Filter, v any, _ string) any {
	s := stringify(v)
	if s == "" {
		return nil
	}
	if f.validate.Var(s, "url") != nil {
		return false
	}
	return s
}

func assertEnum(_ *Filter, v any, opt string) any {
	options := strings.Split(opt, ",")
	if len(options) == 0 {
		return nil
	}
	s := stringify(v)
	for _, o := range options {
		if s == o {
			return s
		}
	}
	return options[0]
}

func assertRegex(f *Filter, v any, opt string) any {
	if !truthy(v) {
		return nil
	}
	re := f.compile(opt)
	if re == nil {
		return nil
	}
	s := stringify(v)
	if !re.MatchString(s) {
		return nil
	}
	return s
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006",
	time.RFC1123Z,
	time.RFC1123,
}

func assertDate(_ *Filter, v any, _ string) any {
	switch d := v.(type) {
	case time.Time:
		return d
	case int:
		return time.Unix(int64(d), 0).UTC()
	case int64:
		return time.Unix(d, 0).UTC()
	case float64:
		return time.Unix(int64(d), 0).UTC()
	}
	s := strings.TrimSpace(stringify(v))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	// Failure sentinel: the zero time. Callers test with IsZero.
	return time.Time{}
}

func assertRaw(_ *Filter, v any, _ string) any {
	return v
}

// assertData validates against a named lookup table. opt is
// "array:<name>[:null]" (match table values) or "keys:<name>[:null]"
// (match table keys). On mismatch the first entry's value or key is the
// default, or nil when the ":null" suffix is present.
func assertData(f *Filter, v any, opt string) any {
	parts := strings.Split(opt, ":")
	if len(parts) < 2 {
		return nil
	}
	mode, name := parts[0], parts[1]
	nullDefault := len(parts) > 2 && parts[2] == "null"

	table := f.table(name)
	if len(table) == 0 {
		return nil
	}

	s := stringify(v)
	for _, p := range table {
		var candidate any
		switch mode {
		case "array":
			candidate = p.Value
		case "keys":
			candidate = p.Key
		default:
			return nil
		}
		if stringify(candidate) == s {
			return candidate
		}
	}
	if nullDefault {
		return nil
	}
	switch mode {
	case "array":
		return table[0].Value
	case "keys":
		return table[0].Key
	}
	return nil
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		if s {
			return "1"
		}
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		return t != "" && t != "0"
	}
	return true
}
