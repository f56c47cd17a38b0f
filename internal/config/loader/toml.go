package loader

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"

	"github.com/dshills/graphsnap/internal/config/document"
)

// TOML reads and writes TOML documents.
//
// Values are decoded by go-toml. Key order and trailing comments are not
// part of the decoded map, so a second pass over the unstable AST records
// them.
type TOML struct{}

// Name implements Format.
func (TOML) Name() string { return "toml" }

// Parse implements Format.
func (TOML) Parse(data []byte) (*document.Table, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, &ParseError{Line: row, Column: col, Message: derr.Error(), Err: err}
		}
		return nil, &ParseError{Message: err.Error(), Err: err}
	}

	layout, err := scanTOMLLayout(data)
	if err != nil {
		return nil, &ParseError{Message: err.Error(), Err: err}
	}

	root := document.NewTable()
	fillTOMLTable(root, raw, layout)
	return root, nil
}

// Encode implements Format.
func (TOML) Encode(t *document.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeTOMLTable(&buf, nil, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// tomlLayout records the source order and trailing comments of one table.
type tomlLayout struct {
	order    []string
	seen     map[string]bool
	comments map[string]string
	children map[string]*tomlLayout
}

func newTOMLLayout() *tomlLayout {
	return &tomlLayout{
		seen:     make(map[string]bool),
		comments: make(map[string]string),
		children: make(map[string]*tomlLayout),
	}
}

func (l *tomlLayout) touch(key string) {
	if !l.seen[key] {
		l.seen[key] = true
		l.order = append(l.order, key)
	}
}

func (l *tomlLayout) child(key string) *tomlLayout {
	l.touch(key)
	c, ok := l.children[key]
	if !ok {
		c = newTOMLLayout()
		l.children[key] = c
	}
	return c
}

func (l *tomlLayout) walk(path []string) *tomlLayout {
	cur := l
	for _, key := range path {
		cur = cur.child(key)
	}
	return cur
}

func scanTOMLLayout(data []byte) (*tomlLayout, error) {
	p := unstable.Parser{KeepComments: true}
	p.Reset(data)

	root := newTOMLLayout()
	current := root

	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			path := tomlKeyParts(expr.Key())
			if len(path) == 0 {
				continue
			}
			parent := root.walk(path[:len(path)-1])
			last := path[len(path)-1]
			current = parent.child(last)
			if c := tomlTrailingComment(expr); c != "" {
				parent.comments[last] = c
			}
		case unstable.KeyValue:
			path := tomlKeyParts(expr.Key())
			if len(path) == 0 {
				continue
			}
			parent := current.walk(path[:len(path)-1])
			last := path[len(path)-1]
			parent.touch(last)
			if v := expr.Value(); v.Kind == unstable.InlineTable {
				scanTOMLInline(parent.child(last), v)
			}
			if c := tomlTrailingComment(expr); c != "" {
				parent.comments[last] = c
			}
		}
	}
	if err := p.Error(); err != nil {
		return nil, err
	}
	return root, nil
}

func scanTOMLInline(l *tomlLayout, n *unstable.Node) {
	it := n.Children()
	for it.Next() {
		kv := it.Node()
		if kv.Kind != unstable.KeyValue {
			continue
		}
		path := tomlKeyParts(kv.Key())
		if len(path) == 0 {
			continue
		}
		parent := l.walk(path[:len(path)-1])
		last := path[len(path)-1]
		parent.touch(last)
		if v := kv.Value(); v.Kind == unstable.InlineTable {
			scanTOMLInline(parent.child(last), v)
		}
	}
}

func tomlKeyParts(it unstable.Iterator) []string {
	var parts []string
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}

// tomlTrailingComment returns the comment chained after a top-level expression.
func tomlTrailingComment(expr *unstable.Node) string {
	next := expr.Next()
	if next == nil || next.Kind != unstable.Comment {
		return ""
	}
	return cleanComment(string(next.Data))
}

func fillTOMLTable(t *document.Table, raw map[string]any, layout *tomlLayout) {
	keys := make([]string, 0, len(raw))
	placed := make(map[string]bool, len(raw))
	if layout != nil {
		for _, k := range layout.order {
			if _, ok := raw[k]; ok && !placed[k] {
				keys = append(keys, k)
				placed[k] = true
			}
		}
	}
	var rest []string
	for k := range raw {
		if !placed[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	for _, k := range keys {
		var child *tomlLayout
		comment := ""
		if layout != nil {
			child = layout.children[k]
			comment = layout.comments[k]
		}
		t.SetWithComment(k, fromTOML(raw[k], child), comment)
	}
}

func fromTOML(v any, layout *tomlLayout) document.Value {
	switch x := v.(type) {
	case string:
		return document.String(x)
	case int64:
		return document.Int(x)
	case float64:
		return document.Float(x)
	case bool:
		return document.Bool(x)
	case time.Time:
		return document.Time(x)
	case toml.LocalDateTime:
		return document.Time(x.AsTime(time.UTC))
	case toml.LocalDate:
		return document.Time(x.AsTime(time.UTC))
	case toml.LocalTime:
		return document.String(x.String())
	case []any:
		elems := make([]document.Value, len(x))
		for i, e := range x {
			elems[i] = fromTOML(e, layout)
		}
		return document.List(elems...)
	case map[string]any:
		t := document.NewTable()
		fillTOMLTable(t, x, layout)
		return document.TableValue(t)
	default:
		return document.String(fmt.Sprint(x))
	}
}

func writeTOMLTable(buf *bytes.Buffer, path []string, t *document.Table) error {
	var tables []*document.Entry
	for _, e := range t.Entries() {
		if e.Value.Kind() == document.KindTable {
			tables = append(tables, e)
			continue
		}
		lit, err := tomlLiteral(e.Value)
		if err != nil {
			return fmt.Errorf("toml: key %s: %w", strings.Join(append(path, e.Key), "."), err)
		}
		buf.WriteString(tomlKey(e.Key))
		buf.WriteString(" = ")
		buf.WriteString(lit)
		writeTOMLComment(buf, e.Comment)
		buf.WriteByte('\n')
	}

	for _, e := range tables {
		sub, _ := e.Value.AsTable()
		childPath := append(append([]string(nil), path...), e.Key)
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteByte('[')
		for i, p := range childPath {
			if i > 0 {
				buf.WriteByte('.')
			}
			buf.WriteString(tomlKey(p))
		}
		buf.WriteByte(']')
		writeTOMLComment(buf, e.Comment)
		buf.WriteByte('\n')
		if err := writeTOMLTable(buf, childPath, sub); err != nil {
			return err
		}
	}
	return nil
}

func writeTOMLComment(buf *bytes.Buffer, comment string) {
	if c := singleLine(comment); c != "" {
		buf.WriteString(" # ")
		buf.WriteString(c)
	}
}

func tomlLiteral(v document.Value) (string, error) {
	switch v.Kind() {
	case document.KindString:
		s, _ := v.AsString()
		return tomlQuote(s), nil
	case document.KindInt:
		n, _ := v.AsInt()
		return strconv.FormatInt(n, 10), nil
	case document.KindFloat:
		f, _ := v.AsFloat()
		return tomlFloat(f), nil
	case document.KindBool:
		b, _ := v.AsBool()
		return strconv.FormatBool(b), nil
	case document.KindTime:
		t, _ := v.AsTime()
		return t.Format(time.RFC3339Nano), nil
	case document.KindList:
		elems, _ := v.AsList()
		parts := make([]string, len(elems))
		for i, e := range elems {
			lit, err := tomlLiteral(e)
			if err != nil {
				return "", err
			}
			parts[i] = lit
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case document.KindTable:
		t, _ := v.AsTable()
		parts := make([]string, 0, t.Len())
		for _, e := range t.Entries() {
			lit, err := tomlLiteral(e.Value)
			if err != nil {
				return "", err
			}
			parts = append(parts, tomlKey(e.Key)+" = "+lit)
		}
		if len(parts) == 0 {
			return "{}", nil
		}
		return "{ " + strings.Join(parts, ", ") + " }", nil
	default:
		return "", ErrNullValue
	}
}

func tomlFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func tomlKey(k string) string {
	if k == "" {
		return `""`
	}
	for _, r := range k {
		bare := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-'
		if !bare {
			return tomlQuote(k)
		}
	}
	return k
}

func tomlQuote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case '\f':
			b.WriteString(`\f`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
