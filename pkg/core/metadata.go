package core

import "time"

// Metadata is the flat, string-keyed attribute map produced for every
// decoded record and emitted evidence.
type Metadata map[string]Value

// Clone returns a shallow copy of m. Values are immutable once decoded, so
// sharing them between copies is safe.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Native converts every value with Value.Native.
func (m Metadata) Native() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Native()
	}
	return out
}

// SetIfPresent stores v under key unless v is zero.
func (m Metadata) SetIfPresent(key string, v Value) {
	if !v.IsZero() {
		m[key] = v
	}
}

// Int returns the integer stored under key, or 0.
func (m Metadata) Int(key string) int64 { return m[key].AsInt() }

// String returns the text stored under key, or "".
func (m Metadata) String(key string) string { return m[key].AsString() }

// Time returns the timestamp stored under key, or the zero time.
func (m Metadata) Time(key string) time.Time { return m[key].AsTime() }
