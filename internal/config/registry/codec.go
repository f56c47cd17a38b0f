package registry

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/dshills/graphsnap/internal/config/document"
)

// Codec converts between a Go type and document values.
//
// Decode of a null value yields Zero. Zero returns a fresh instance; for
// slices and maps it is empty but non-nil.
type Codec[T any] interface {
	// Name is the type name used in diagnostics.
	Name() string
	Encode(v T) (document.Value, error)
	Decode(v document.Value) (T, error)
	Zero() T
	IsZero(v T) bool
}

// TypeError is returned when a stored value cannot be converted.
type TypeError struct {
	Expected string
	Actual   string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error: expected %s, got %s", e.Expected, e.Actual)
}

func typeError(expected string, v document.Value) *TypeError {
	return &TypeError{Expected: expected, Actual: v.Kind().String()}
}

// funcCodec builds a Codec from plain functions.
type funcCodec[T any] struct {
	name   string
	encode func(T) (document.Value, error)
	decode func(document.Value) (T, error)
	zero   func() T
	isZero func(T) bool
}

func (c funcCodec[T]) Name() string { return c.name }

func (c funcCodec[T]) Encode(v T) (document.Value, error) { return c.encode(v) }

func (c funcCodec[T]) Decode(v document.Value) (T, error) {
	if v.IsNull() {
		return c.zero(), nil
	}
	return c.decode(v)
}

func (c funcCodec[T]) Zero() T {
	if c.zero != nil {
		return c.zero()
	}
	var zero T
	return zero
}

func (c funcCodec[T]) IsZero(v T) bool { return c.isZero(v) }

// String returns the codec for string values.
func String() Codec[string] {
	return funcCodec[string]{
		name:   "string",
		encode: func(s string) (document.Value, error) { return document.String(s), nil },
		decode: func(v document.Value) (string, error) {
			s, ok := v.AsString()
			if !ok {
				return "", typeError("string", v)
			}
			return s, nil
		},
		zero:   func() string { return "" },
		isZero: func(s string) bool { return s == "" },
	}
}

// Bool returns the codec for boolean values.
func Bool() Codec[bool] {
	return funcCodec[bool]{
		name:   "bool",
		encode: func(b bool) (document.Value, error) { return document.Bool(b), nil },
		decode: func(v document.Value) (bool, error) {
			b, ok := v.AsBool()
			if !ok {
				return false, typeError("bool", v)
			}
			return b, nil
		},
		zero:   func() bool { return false },
		isZero: func(b bool) bool { return !b },
	}
}

// Int64 returns the codec for int64 values. Floats without a fractional
// part are accepted.
func Int64() Codec[int64] {
	return funcCodec[int64]{
		name:   "int64",
		encode: func(n int64) (document.Value, error) { return document.Int(n), nil },
		decode: func(v document.Value) (int64, error) {
			return decodeInt(v, "int64", math.MinInt64, math.MaxInt64)
		},
		zero:   func() int64 { return 0 },
		isZero: func(n int64) bool { return n == 0 },
	}
}

// Int returns the codec for int values.
func Int() Codec[int] {
	return funcCodec[int]{
		name:   "int",
		encode: func(n int) (document.Value, error) { return document.Int(int64(n)), nil },
		decode: func(v document.Value) (int, error) {
			n, err := decodeInt(v, "int", math.MinInt, math.MaxInt)
			return int(n), err
		},
		zero:   func() int { return 0 },
		isZero: func(n int) bool { return n == 0 },
	}
}

func decodeInt(v document.Value, name string, lo, hi int64) (int64, error) {
	switch v.Kind() {
	case document.KindInt:
		n, _ := v.AsInt()
		if n < lo || n > hi {
			return 0, fmt.Errorf("%d overflows %s", n, name)
		}
		return n, nil
	case document.KindFloat:
		f, _ := v.AsFloat()
		if f != math.Trunc(f) || f < float64(lo) || f >= float64(hi) {
			return 0, fmt.Errorf("%s cannot hold %s", name, strconv.FormatFloat(f, 'g', -1, 64))
		}
		return int64(f), nil
	default:
		return 0, typeError(name, v)
	}
}

// Float64 returns the codec for float64 values. Integers are widened.
func Float64() Codec[float64] {
	return funcCodec[float64]{
		name:   "float64",
		encode: func(f float64) (document.Value, error) { return document.Float(f), nil },
		decode: func(v document.Value) (float64, error) {
			f, ok := v.AsFloat()
			if !ok {
				return 0, typeError("float64", v)
			}
			return f, nil
		},
		zero:   func() float64 { return 0 },
		isZero: func(f float64) bool { return f == 0 },
	}
}

// Duration returns the codec for time.Duration, stored as a string such as
// "1m30s".
func Duration() Codec[time.Duration] {
	return funcCodec[time.Duration]{
		name: "duration",
		encode: func(d time.Duration) (document.Value, error) {
			return document.String(d.String()), nil
		},
		decode: func(v document.Value) (time.Duration, error) {
			s, ok := v.AsString()
			if !ok {
				return 0, typeError("duration", v)
			}
			d, err := time.ParseDuration(s)
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q: %w", s, err)
			}
			return d, nil
		},
		zero:   func() time.Duration { return 0 },
		isZero: func(d time.Duration) bool { return d == 0 },
	}
}

// Time returns the codec for time.Time. Formats without a native timestamp
// store an RFC 3339 string, which is accepted on decode.
func Time() Codec[time.Time] {
	return funcCodec[time.Time]{
		name:   "time",
		encode: func(t time.Time) (document.Value, error) { return document.Time(t), nil },
		decode: func(v document.Value) (time.Time, error) {
			if t, ok := v.AsTime(); ok {
				return t, nil
			}
			s, ok := v.AsString()
			if !ok {
				return time.Time{}, typeError("time", v)
			}
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
			}
			return t, nil
		},
		zero:   func() time.Time { return time.Time{} },
		isZero: func(t time.Time) bool { return t.IsZero() },
	}
}

// List returns a codec for slices whose elements use elem.
func List[E any](elem Codec[E]) Codec[[]E] {
	return funcCodec[[]E]{
		name: "[]" + elem.Name(),
		encode: func(s []E) (document.Value, error) {
			out := make([]document.Value, 0, len(s))
			for i, e := range s {
				v, err := elem.Encode(e)
				if err != nil {
					return document.Value{}, fmt.Errorf("[%d]: %w", i, err)
				}
				out = append(out, v)
			}
			return document.List(out...), nil
		},
		decode: func(v document.Value) ([]E, error) {
			elems, ok := v.AsList()
			if !ok {
				return nil, typeError("list", v)
			}
			out := make([]E, 0, len(elems))
			for i, ev := range elems {
				e, err := elem.Decode(ev)
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", i, err)
				}
				out = append(out, e)
			}
			return out, nil
		},
		zero:   func() []E { return []E{} },
		isZero: func(s []E) bool { return len(s) == 0 },
	}
}

// Map returns a codec for string-keyed maps stored as nested tables.
// Keys are written in sorted order.
func Map[E any](elem Codec[E]) Codec[map[string]E] {
	return funcCodec[map[string]E]{
		name: "map[string]" + elem.Name(),
		encode: func(m map[string]E) (document.Value, error) {
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			tbl := document.NewTable()
			for _, k := range keys {
				v, err := elem.Encode(m[k])
				if err != nil {
					return document.Value{}, fmt.Errorf("%s: %w", k, err)
				}
				tbl.Set(k, v)
			}
			return document.TableValue(tbl), nil
		},
		decode: func(v document.Value) (map[string]E, error) {
			tbl, ok := v.AsTable()
			if !ok {
				return nil, typeError("table", v)
			}
			out := make(map[string]E, tbl.Len())
			for _, entry := range tbl.Entries() {
				e, err := elem.Decode(entry.Value)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", entry.Key, err)
				}
				out[entry.Key] = e
			}
			return out, nil
		},
		zero:   func() map[string]E { return map[string]E{} },
		isZero: func(m map[string]E) bool { return len(m) == 0 },
	}
}
