package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/graphsnap/internal/config/document"
	"github.com/dshills/graphsnap/internal/config/loader"
)

// exportJSON renders every document of the store as one JSON object keyed
// by document identifier. Comments are not included.
func exportJSON(store *loader.Store) ([]byte, error) {
	out := []byte(`{}`)
	for _, id := range store.IDs() {
		doc, _ := store.Get(id)
		var err error
		out, err = setTable(out, escapePath(id), doc.Root)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func setTable(out []byte, path string, t *document.Table) ([]byte, error) {
	out, err := sjson.SetRawBytes(out, path, []byte(`{}`))
	if err != nil {
		return nil, err
	}
	for _, e := range t.Entries() {
		out, err = setValue(out, path+"."+escapePath(e.Key), e.Value)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func setValue(out []byte, path string, v document.Value) ([]byte, error) {
	switch v.Kind() {
	case document.KindTable:
		t, _ := v.AsTable()
		return setTable(out, path, t)
	case document.KindList:
		out, err := sjson.SetRawBytes(out, path, []byte(`[]`))
		if err != nil {
			return nil, err
		}
		elems, _ := v.AsList()
		for i, elem := range elems {
			out, err = setValue(out, path+"."+strconv.Itoa(i), elem)
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	case document.KindString:
		s, _ := v.AsString()
		return sjson.SetBytes(out, path, s)
	case document.KindInt:
		n, _ := v.AsInt()
		return sjson.SetBytes(out, path, n)
	case document.KindFloat:
		f, _ := v.AsFloat()
		return sjson.SetBytes(out, path, f)
	case document.KindBool:
		b, _ := v.AsBool()
		return sjson.SetBytes(out, path, b)
	case document.KindTime:
		t, _ := v.AsTime()
		return sjson.SetBytes(out, path, t.Format(time.RFC3339Nano))
	default:
		return sjson.SetRawBytes(out, path, []byte(`null`))
	}
}

// query looks up a target such as "settings.toml:api.Timeout" in the JSON
// view. A bare document identifier selects the whole document.
func query(view []byte, target string) (gjson.Result, bool) {
	id, rest, _ := strings.Cut(target, ":")
	path := escapePath(id)
	if rest != "" {
		for _, part := range strings.Split(rest, ".") {
			path += "." + escapePath(part)
		}
	}
	r := gjson.GetBytes(view, path)
	return r, r.Exists()
}

// prettyJSON indents a JSON document.
func prettyJSON(raw []byte) string {
	return strings.TrimRight(gjson.GetBytes(raw, "@pretty").Raw, "\n")
}

// escapePath escapes one path component for gjson and sjson.
func escapePath(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
