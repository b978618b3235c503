package core

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ValueKind identifies which variant a Value holds.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindTime
	KindString
	KindBytes
	KindList
	KindMap
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindTime:
		return "datetime"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a decoded scalar, blob or container.
// The zero Value is null.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	t    time.Time
	s    string
	raw  []byte
	list []Value
	m    map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps a signed integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Uint wraps an unsigned integer. Values above math.MaxInt64 keep their bit
// pattern and read back through Uint.
func Uint(u uint64) Value { return Value{kind: KindInt, i: int64(u)} }

// Float wraps a floating point number.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Time wraps a timestamp, normalized to UTC.
func Time(t time.Time) Value {
	if t.IsZero() {
		return Value{kind: KindTime}
	}
	return Value{kind: KindTime, t: t.UTC()}
}

// Unix wraps a Unix-epoch timestamp in seconds.
// Zero seconds is the legacy "never" marker and yields a zero time.
func Unix(sec int64) Value {
	if sec == 0 {
		return Value{kind: KindTime}
	}
	return Value{kind: KindTime, t: time.Unix(sec, 0).UTC()}
}

// String wraps a text value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Bytes wraps a raw byte blob. The slice is not copied.
func Bytes(b []byte) Value { return Value{kind: KindBytes, raw: b} }

// List wraps an ordered list of values.
func List(vs ...Value) Value { return Value{kind: KindList, list: vs} }

// Map wraps a string-keyed map of values.
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

// Kind reports the variant held by v.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v holds no value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsZero reports whether v is null or the zero of its variant.
func (v Value) IsZero() bool {
	switch v.kind {
	case KindBool:
		return !v.b
	case KindInt:
		return v.i == 0
	case KindFloat:
		return v.f == 0
	case KindTime:
		return v.t.IsZero()
	case KindString:
		return v.s == ""
	case KindBytes:
		return len(v.raw) == 0
	case KindList:
		return len(v.list) == 0
	case KindMap:
		return len(v.m) == 0
	}
	return true
}

// AsBool converts v to a boolean. Numbers are true when non-zero, text when
// it parses as a true boolean, containers when non-empty.
func (v Value) AsBool() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindString:
		b, _ := strconv.ParseBool(strings.TrimSpace(v.s))
		return b
	}
	return !v.IsZero()
}

// AsInt converts v to a signed integer. Text is parsed as decimal, times
// become Unix seconds, and anything else yields 0.
func (v Value) AsInt() int64 {
	switch v.kind {
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindInt:
		return v.i
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return 0
		}
		return int64(v.f)
	case KindTime:
		if v.t.IsZero() {
			return 0
		}
		return v.t.Unix()
	case KindString:
		i, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
		if err != nil {
			return 0
		}
		return i
	}
	return 0
}

// AsUint returns the unsigned bit pattern of AsInt.
func (v Value) AsUint() uint64 { return uint64(v.AsInt()) }

// AsFloat converts v to a float.
func (v Value) AsFloat() float64 {
	switch v.kind {
	case KindFloat:
		return v.f
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return float64(v.AsInt())
}

// AsTime converts v to a timestamp. Integers are read as Unix seconds.
func (v Value) AsTime() time.Time {
	switch v.kind {
	case KindTime:
		return v.t
	case KindInt:
		if v.i == 0 {
			return time.Time{}
		}
		return time.Unix(v.i, 0).UTC()
	case KindString:
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(v.s))
		if err != nil {
			return time.Time{}
		}
		return t.UTC()
	}
	return time.Time{}
}

// AsString renders v as text. Byte blobs are rendered as their UTF-8
// content; use AsHex for a hexadecimal rendering.
func (v Value) AsString() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindTime:
		if v.t.IsZero() {
			return ""
		}
		return v.t.Format(time.RFC3339)
	case KindString:
		return v.s
	case KindBytes:
		return string(v.raw)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.AsString()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := v.sortedKeys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.m[k].AsString()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return ""
}

// AsHex renders byte blobs and text as uppercase hexadecimal.
func (v Value) AsHex() string {
	b := v.AsBytes()
	if len(b) == 0 {
		return ""
	}
	return strings.ToUpper(hex.EncodeToString(b))
}

// AsBytes returns the raw bytes of blobs and text, nil otherwise.
func (v Value) AsBytes() []byte {
	switch v.kind {
	case KindBytes:
		return v.raw
	case KindString:
		return []byte(v.s)
	}
	return nil
}

// AsList returns the items of a list, or a one-item list for scalars.
func (v Value) AsList() []Value {
	switch v.kind {
	case KindList:
		return v.list
	case KindNull:
		return nil
	}
	return []Value{v}
}

// AsMap returns the entries of a map, nil otherwise.
func (v Value) AsMap() map[string]Value {
	if v.kind == KindMap {
		return v.m
	}
	return nil
}

// Get looks up key in a map value.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	item, ok := v.m[key]
	return item, ok
}

// Native converts v into plain Go values suitable for generic encoders:
// nil, bool, int64, float64, time.Time, string, []byte, []any, map[string]any.
func (v Value) Native() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindTime:
		if v.t.IsZero() {
			return nil
		}
		return v.t
	case KindString:
		return v.s
	case KindBytes:
		return v.raw
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Native()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Native()
		}
		return out
	}
	return nil
}

// Equal reports deep equality of two values.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindTime:
		return v.t.Equal(o.t)
	case KindString:
		return v.s == o.s
	case KindBytes:
		return bytes.Equal(v.raw, o.raw)
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, item := range v.m {
			other, ok := o.m[k]
			if !ok || !item.Equal(other) {
				return false
			}
		}
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (v Value) String() string {
	if v.kind == KindBytes {
		return v.AsHex()
	}
	return v.AsString()
}

// MarshalJSON encodes the native form of v.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

// GoString implements fmt.GoStringer, mostly for test failure output.
func (v Value) GoString() string {
	return fmt.Sprintf("core.Value{%s: %s}", v.kind, v.String())
}

func (v Value) sortedKeys() []string {
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
