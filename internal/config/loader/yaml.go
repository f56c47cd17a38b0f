package loader

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/graphsnap/internal/config/document"
)

// YAML reads and writes YAML documents through the yaml.v3 node API, which
// keeps line comments attached to the nodes they follow.
type YAML struct{}

// Name implements Format.
func (YAML) Name() string { return "yaml" }

// Parse implements Format.
func (YAML) Parse(data []byte) (*document.Table, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{Message: err.Error(), Err: err}
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return document.NewTable(), nil
	}

	top := root.Content[0]
	if top.Kind == yaml.ScalarNode && top.ShortTag() == "!!null" {
		return document.NewTable(), nil
	}
	if top.Kind != yaml.MappingNode {
		return nil, &ParseError{Line: top.Line, Column: top.Column, Message: ErrNotMapping.Error(), Err: ErrNotMapping}
	}
	return fromYAMLMapping(top)
}

// Encode implements Format.
func (YAML) Encode(t *document.Table) ([]byte, error) {
	mapping, err := toYAMLMapping(t)
	if err != nil {
		return nil, err
	}
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{mapping}}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func fromYAMLMapping(n *yaml.Node) (*document.Table, error) {
	t := document.NewTable()
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		val, err := fromYAMLNode(v)
		if err != nil {
			return nil, err
		}
		comment := v.LineComment
		if comment == "" {
			comment = k.LineComment
		}
		t.SetWithComment(k.Value, val, cleanComment(comment))
	}
	return t, nil
}

func fromYAMLNode(n *yaml.Node) (document.Value, error) {
	switch n.Kind {
	case yaml.AliasNode:
		if n.Alias == nil {
			return document.Null(), nil
		}
		return fromYAMLNode(n.Alias)
	case yaml.MappingNode:
		t, err := fromYAMLMapping(n)
		if err != nil {
			return document.Value{}, err
		}
		return document.TableValue(t), nil
	case yaml.SequenceNode:
		elems := make([]document.Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromYAMLNode(c)
			if err != nil {
				return document.Value{}, err
			}
			elems = append(elems, v)
		}
		return document.List(elems...), nil
	case yaml.ScalarNode:
		return fromYAMLScalar(n)
	}
	return document.Null(), nil
}

func fromYAMLScalar(n *yaml.Node) (document.Value, error) {
	var err error
	switch n.ShortTag() {
	case "!!null":
		return document.Null(), nil
	case "!!bool":
		var b bool
		if err = n.Decode(&b); err == nil {
			return document.Bool(b), nil
		}
	case "!!int":
		var i int64
		if err = n.Decode(&i); err == nil {
			return document.Int(i), nil
		}
	case "!!float":
		var f float64
		if err = n.Decode(&f); err == nil {
			return document.Float(f), nil
		}
	case "!!timestamp":
		var ts time.Time
		if err = n.Decode(&ts); err == nil {
			return document.Time(ts), nil
		}
	default:
		return document.String(n.Value), nil
	}
	return document.Value{}, &ParseError{Line: n.Line, Column: n.Column, Message: err.Error(), Err: err}
}

func toYAMLMapping(t *document.Table) (*yaml.Node, error) {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range t.Entries() {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key}
		val, err := toYAMLNode(e.Value)
		if err != nil {
			return nil, fmt.Errorf("yaml: key %s: %w", e.Key, err)
		}
		if c := singleLine(e.Comment); c != "" {
			// Block collections print their children on the following lines,
			// so the comment has to sit on the key to stay on this line.
			if isYAMLBlock(val) {
				key.LineComment = "# " + c
			} else {
				val.LineComment = "# " + c
			}
		}
		m.Content = append(m.Content, key, val)
	}
	return m, nil
}

func isYAMLBlock(n *yaml.Node) bool {
	return (n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode) && len(n.Content) > 0
}

func toYAMLNode(v document.Value) (*yaml.Node, error) {
	switch v.Kind() {
	case document.KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case document.KindList:
		elems, _ := v.AsList()
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range elems {
			n, err := toYAMLNode(e)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		if len(seq.Content) == 0 {
			seq.Style = yaml.FlowStyle
		}
		return seq, nil
	case document.KindTable:
		t, _ := v.AsTable()
		m, err := toYAMLMapping(t)
		if err != nil {
			return nil, err
		}
		if len(m.Content) == 0 {
			m.Style = yaml.FlowStyle
		}
		return m, nil
	}

	var scalar any
	switch v.Kind() {
	case document.KindString:
		scalar, _ = v.AsString()
	case document.KindInt:
		scalar, _ = v.AsInt()
	case document.KindFloat:
		scalar, _ = v.AsFloat()
	case document.KindBool:
		scalar, _ = v.AsBool()
	case document.KindTime:
		scalar, _ = v.AsTime()
	}
	n := &yaml.Node{}
	if err := n.Encode(scalar); err != nil {
		return nil, err
	}
	return n, nil
}
