package database

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is one catalog row with lower-case keys. Values are whatever the
// driver produced (string, int64, float64, []byte, time.Time or nil); the
// accessors below coerce them.
type Record map[string]any

// Has reports whether key is present and non-NULL.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// String returns the value as text, "" for NULL or missing.
func (r Record) String(key string) string {
	s, _ := r.NullString(key)
	return s
}

// NullString returns the value as text and whether it was non-NULL.
func (r Record) NullString(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return fmt.Sprint(t), true
	}
}

// Int returns the value as an int and whether it was a non-NULL number.
func (r Record) Int(key string) (int, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case float64:
		return int(math.Trunc(t)), true
	case float32:
		return int(t), true
	}
	s, _ := r.NullString(key)
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f), true
	}
	return 0, false
}

// IntPtr is Int returning nil for NULL or non-numeric values.
func (r Record) IntPtr(key string) *int {
	n, ok := r.Int(key)
	if !ok {
		return nil
	}
	return &n
}

// Bool interprets Oracle's flag conventions: YES/Y/TRUE/1 are true.
func (r Record) Bool(key string) bool {
	s, ok := r.NullString(key)
	if !ok {
		return false
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "YES", "Y", "TRUE", "1":
		return true
	}
	return false
}
