package loader

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tailscale/hujson"

	"github.com/dshills/graphsnap/internal/config/document"
)

// JSONC reads and writes JSON documents with comments (HuJSON).
//
// A member's inline comment is the line comment that follows its value on the
// same line, after the separating comma if there is one. This matches how
// hujson assigns a first-line comment to the preceding element.
type JSONC struct{}

// Name implements Format.
func (JSONC) Name() string { return "jsonc" }

// Parse implements Format.
func (JSONC) Parse(data []byte) (*document.Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return document.NewTable(), nil
	}
	v, err := hujson.Parse(data)
	if err != nil {
		return nil, &ParseError{Message: err.Error(), Err: err}
	}
	obj, ok := v.Value.(*hujson.Object)
	if !ok {
		return nil, &ParseError{Message: ErrNotMapping.Error(), Err: ErrNotMapping}
	}
	return fromJSONObject(obj)
}

// Encode implements Format.
func (JSONC) Encode(t *document.Table) ([]byte, error) {
	obj, err := toJSONObject(t)
	if err != nil {
		return nil, err
	}
	v := hujson.Value{Value: obj}
	v.Format()
	return v.Pack(), nil
}

func fromJSONObject(obj *hujson.Object) (*document.Table, error) {
	t := document.NewTable()
	for i := range obj.Members {
		m := &obj.Members[i]
		name, ok := m.Name.Value.(hujson.Literal)
		if !ok {
			return nil, &ParseError{Message: "object member name is not a string"}
		}
		val, err := fromJSONValue(m.Value.Value)
		if err != nil {
			return nil, err
		}

		comment := firstLineComment(m.Value.AfterExtra)
		if comment == "" {
			if i+1 < len(obj.Members) {
				comment = firstLineComment(obj.Members[i+1].Name.BeforeExtra)
			} else {
				comment = firstLineComment(obj.AfterExtra)
			}
		}
		t.SetWithComment(name.String(), val, comment)
	}
	return t, nil
}

func fromJSONValue(v hujson.ValueTrimmed) (document.Value, error) {
	switch x := v.(type) {
	case *hujson.Object:
		t, err := fromJSONObject(x)
		if err != nil {
			return document.Value{}, err
		}
		return document.TableValue(t), nil
	case *hujson.Array:
		elems := make([]document.Value, 0, len(x.Elements))
		for i := range x.Elements {
			e, err := fromJSONValue(x.Elements[i].Value)
			if err != nil {
				return document.Value{}, err
			}
			elems = append(elems, e)
		}
		return document.List(elems...), nil
	case hujson.Literal:
		switch x.Kind() {
		case 'n':
			return document.Null(), nil
		case 't', 'f':
			return document.Bool(x.Bool()), nil
		case '"':
			return document.String(x.String()), nil
		case '0':
			return parseJSONNumber(string(x))
		}
	}
	return document.Value{}, &ParseError{Message: fmt.Sprintf("unexpected JSON value %v", v)}
}

func parseJSONNumber(s string) (document.Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return document.Int(n), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return document.Value{}, &ParseError{Message: fmt.Sprintf("invalid number %q", s), Err: err}
	}
	return document.Float(f), nil
}

// firstLineComment returns the text of a comment that starts on the first
// line of extra, or "" if the first line holds no comment.
func firstLineComment(extra hujson.Extra) string {
	line, _, _ := strings.Cut(string(extra), "\n")
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "//") || strings.HasPrefix(line, "/*") {
		return cleanComment(line)
	}
	return ""
}

func toJSONObject(t *document.Table) (*hujson.Object, error) {
	obj := &hujson.Object{}
	entries := t.Entries()
	for _, e := range entries {
		val, err := toJSONValue(e.Value)
		if err != nil {
			return nil, fmt.Errorf("jsonc: key %s: %w", e.Key, err)
		}
		obj.Members = append(obj.Members, hujson.ObjectMember{
			Name:  hujson.Value{Value: hujson.String(e.Key)},
			Value: hujson.Value{Value: val},
		})
	}

	for i, e := range entries {
		c := singleLine(e.Comment)
		if c == "" {
			continue
		}
		extra := hujson.Extra(" // " + c + "\n")
		if i+1 < len(entries) {
			obj.Members[i+1].Name.BeforeExtra = extra
		} else {
			obj.AfterExtra = extra
		}
	}
	return obj, nil
}

func toJSONValue(v document.Value) (hujson.ValueTrimmed, error) {
	switch v.Kind() {
	case document.KindNull:
		return hujson.Literal("null"), nil
	case document.KindString:
		s, _ := v.AsString()
		return hujson.String(s), nil
	case document.KindInt:
		n, _ := v.AsInt()
		return hujson.Int(n), nil
	case document.KindFloat:
		f, _ := v.AsFloat()
		return jsonFloat(f), nil
	case document.KindBool:
		b, _ := v.AsBool()
		return hujson.Bool(b), nil
	case document.KindTime:
		ts, _ := v.AsTime()
		return hujson.String(ts.Format(time.RFC3339Nano)), nil
	case document.KindList:
		elems, _ := v.AsList()
		arr := &hujson.Array{}
		for _, e := range elems {
			ev, err := toJSONValue(e)
			if err != nil {
				return nil, err
			}
			arr.Elements = append(arr.Elements, hujson.Value{Value: ev})
		}
		return arr, nil
	case document.KindTable:
		t, _ := v.AsTable()
		return toJSONObject(t)
	}
	return nil, fmt.Errorf("unknown value kind %s", v.Kind())
}

// jsonFloat keeps a fractional part on integral floats so they read back as
// floats rather than integers.
func jsonFloat(f float64) hujson.Literal {
	if !math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return hujson.Literal(strconv.FormatFloat(f, 'f', 1, 64))
	}
	return hujson.Float(f)
}
