package document

import (
	"strings"
)

// Entry is a single keyed value inside a table.
type Entry struct {
	Key     string
	Value   Value
	Comment string
}

// Table is an insertion-ordered set of entries with unique, case-sensitive keys.
type Table struct {
	entries []*Entry
	index   map[string]int
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Has reports whether key is present.
func (t *Table) Has(key string) bool {
	_, ok := t.lookup(key)
	return ok
}

// Get returns the value stored at key.
func (t *Table) Get(key string) (Value, bool) {
	e, ok := t.lookup(key)
	if !ok {
		return Value{}, false
	}
	return e.Value, true
}

// Entry returns the entry stored at key.
func (t *Table) Entry(key string) (*Entry, bool) {
	return t.lookup(key)
}

// Comment returns the comment attached to key, or "" if there is none.
func (t *Table) Comment(key string) string {
	if e, ok := t.lookup(key); ok {
		return e.Comment
	}
	return ""
}

// Set stores v at key. An existing entry keeps its position and comment;
// a new entry is appended.
func (t *Table) Set(key string, v Value) {
	if e, ok := t.lookup(key); ok {
		e.Value = v
		return
	}
	t.append(&Entry{Key: key, Value: v})
}

// Update stores v at key and reports whether the table changed. When both
// the stored value and v are tables, the stored table is updated in place:
// existing entries keep their position and comment, keys missing from v are
// removed and new keys are appended. Key order alone is not a change.
func (t *Table) Update(key string, v Value) bool {
	e, ok := t.lookup(key)
	if !ok {
		t.append(&Entry{Key: key, Value: v})
		return true
	}
	if dst, ok := e.Value.AsTable(); ok {
		if src, ok := v.AsTable(); ok {
			return dst.updateFrom(src)
		}
	}
	if e.Value.Equal(v) {
		return false
	}
	e.Value = v
	return true
}

func (t *Table) updateFrom(src *Table) bool {
	changed := false
	for _, key := range t.Keys() {
		if !src.Has(key) {
			t.Delete(key)
			changed = true
		}
	}
	for _, e := range src.Entries() {
		if t.Update(e.Key, e.Value) {
			changed = true
		}
	}
	return changed
}

// SetWithComment stores v at key and replaces its comment.
// Surrounding whitespace is trimmed from the comment; a blank comment clears it.
func (t *Table) SetWithComment(key string, v Value, comment string) {
	t.Set(key, v)
	t.SetComment(key, comment)
}

// SetComment replaces the comment attached to key. It is a no-op when the key
// is absent.
func (t *Table) SetComment(key, comment string) {
	if e, ok := t.lookup(key); ok {
		e.Comment = strings.TrimSpace(comment)
	}
}

// Delete removes key. It reports whether the key was present.
func (t *Table) Delete(key string) bool {
	i, ok := t.index[key]
	if !ok {
		return false
	}
	t.entries = append(t.entries[:i], t.entries[i+1:]...)
	delete(t.index, key)
	for j := i; j < len(t.entries); j++ {
		t.index[t.entries[j].Key] = j
	}
	return true
}

// Keys returns the keys in insertion order.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	keys := make([]string, len(t.entries))
	for i, e := range t.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns the entries in insertion order. The entries are shared
// with the table.
func (t *Table) Entries() []*Entry {
	if t == nil {
		return nil
	}
	out := make([]*Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Subtable walks path from t and returns the nested table at its end.
// When create is true, missing tables are appended along the way. A path
// element that holds a non-table value stops the walk.
func (t *Table) Subtable(path []string, create bool) (*Table, bool) {
	cur := t
	for _, name := range path {
		v, ok := cur.Get(name)
		if !ok {
			if !create {
				return nil, false
			}
			next := NewTable()
			cur.Set(name, TableValue(next))
			cur = next
			continue
		}
		next, ok := v.AsTable()
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Equal compares keys, order and values. Comments are ignored.
func (t *Table) Equal(o *Table) bool {
	if t.Len() != o.Len() {
		return false
	}
	for i, e := range t.entries {
		oe := o.entries[i]
		if e.Key != oe.Key || !e.Value.Equal(oe.Value) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the table, comments included.
func (t *Table) Clone() *Table {
	c := NewTable()
	if t == nil {
		return c
	}
	for _, e := range t.entries {
		c.append(&Entry{Key: e.Key, Value: e.Value.Clone(), Comment: e.Comment})
	}
	return c
}

func (t *Table) lookup(key string) (*Entry, bool) {
	if t == nil {
		return nil, false
	}
	i, ok := t.index[key]
	if !ok {
		return nil, false
	}
	return t.entries[i], true
}

func (t *Table) append(e *Entry) {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	t.index[e.Key] = len(t.entries)
	t.entries = append(t.entries, e)
}

// Document is a table backed by one file, identified by its file name.
type Document struct {
	ID   string
	Root *Table
}

// New creates an empty document with the given identifier.
func New(id string) *Document {
	return &Document{ID: id, Root: NewTable()}
}

// SplitPath splits a dot-separated section path. An empty path yields nil.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}
