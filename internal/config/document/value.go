// Package document provides the in-memory model of a configuration document.
//
// A Document is an insertion-ordered tree of keyed entries. Every entry holds a
// tagged Value and an optional inline comment that is kept independent of the
// value, so rewriting a value never disturbs the comment next to it.
package document

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	// KindNull is the zero Kind. It is produced by formats that have an
	// explicit null and by the zero Value.
	KindNull Kind = iota
	// KindString represents a string value.
	KindString
	// KindInt represents a signed integer value.
	KindInt
	// KindFloat represents a floating-point value.
	KindFloat
	// KindBool represents a boolean value.
	KindBool
	// KindTime represents a timestamp.
	KindTime
	// KindList represents an ordered list of values.
	KindList
	// KindTable represents a nested table.
	KindTable
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "boolean"
	case KindTime:
		return "time"
	case KindList:
		return "list"
	case KindTable:
		return "table"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the scalar, list and table kinds a document
// can store. The zero Value is null.
type Value struct {
	kind  Kind
	str   string
	num   int64
	flt   float64
	b     bool
	t     time.Time
	list  []Value
	table *Table
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int returns an integer value.
func Int(n int64) Value { return Value{kind: KindInt, num: n} }

// Float returns a floating-point value.
func Float(f float64) Value { return Value{kind: KindFloat, flt: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Time returns a timestamp value.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// List returns a list value holding the given elements.
func List(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{kind: KindList, list: elems}
}

// TableValue wraps a table as a value. A nil table becomes an empty one.
func TableValue(t *Table) Value {
	if t == nil {
		t = NewTable()
	}
	return Value{kind: KindTable, table: t}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsInt returns the integer held by v.
func (v Value) AsInt() (int64, bool) { return v.num, v.kind == KindInt }

// AsFloat returns the float held by v. Integers are widened.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.flt, true
	case KindInt:
		return float64(v.num), true
	default:
		return 0, false
	}
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsTime returns the timestamp held by v.
func (v Value) AsTime() (time.Time, bool) { return v.t, v.kind == KindTime }

// AsList returns the elements held by v. The slice is shared with v.
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// AsTable returns the table held by v. The table is shared with v.
func (v Value) AsTable() (*Table, bool) { return v.table, v.kind == KindTable }

// Equal reports whether v and o hold the same kind and content.
// Table comparison ignores comments.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindInt:
		return v.num == o.num
	case KindFloat:
		return v.flt == o.flt || (math.IsNaN(v.flt) && math.IsNaN(o.flt))
	case KindBool:
		return v.b == o.b
	case KindTime:
		return v.t.Equal(o.t)
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
	case KindTable:
		return v.table.Equal(o.table)
	}
	return false
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		elems := make([]Value, len(v.list))
		for i, e := range v.list {
			elems[i] = e.Clone()
		}
		return Value{kind: KindList, list: elems}
	case KindTable:
		return Value{kind: KindTable, table: v.table.Clone()}
	default:
		return v
	}
}

// String renders v for logs and diagnostics. It is not a serialization format.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return strconv.Quote(v.str)
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindFloat:
		return strconv.FormatFloat(v.flt, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return v.t.Format(time.RFC3339Nano)
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindTable:
		parts := make([]string, 0, v.table.Len())
		for _, e := range v.table.Entries() {
			parts = append(parts, fmt.Sprintf("%s = %s", e.Key, e.Value))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "<invalid>"
}
