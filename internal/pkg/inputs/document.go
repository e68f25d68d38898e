// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package inputs

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultIDKey is the field identifying an input entry.
	DefaultIDKey = "id"

	inputsKey = "inputs"
	nullTag   = "!!null"
)

// ErrShape is returned when a document parses as YAML but its structure
// cannot hold input entries.
var ErrShape = errors.New("unexpected document structure")

// Entry is a single input definition, kept as a YAML node so that the key
// order of the source file survives a rewrite.
type Entry struct {
	node *yaml.Node
}

// Node returns the underlying YAML node.
func (e Entry) Node() *yaml.Node {
	return e.node
}

// Decode decodes the entry into v.
func (e Entry) Decode(v interface{}) error {
	return e.node.Decode(v)
}

// ID returns the scalar value stored under key. The second return value is
// false when the entry is not a mapping, or when the key is absent, null or
// not a scalar.
func (e Entry) ID(key string) (string, bool) {
	id, ok := e.identity(key)
	return id.value, ok
}

type identity struct {
	tag   string
	value string
}

func (e Entry) identity(key string) (identity, bool) {
	n := resolve(e.node)
	if n == nil || n.Kind != yaml.MappingNode {
		return identity{}, false
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value != key {
			continue
		}
		v := resolve(n.Content[i+1])
		if v == nil || v.Kind != yaml.ScalarNode || v.ShortTag() == nullTag {
			return identity{}, false
		}
		return identity{tag: v.ShortTag(), value: v.Value}, true
	}
	return identity{}, false
}

// Aggregate is the central agent configuration holding the inputs list.
type Aggregate struct {
	doc    *yaml.Node
	inputs *yaml.Node
}

// ParseAggregate parses the content of an aggregate configuration. An empty
// document, a missing `inputs` key or a null `inputs` value all produce an
// aggregate with an empty inputs list.
func ParseAggregate(data []byte) (*Aggregate, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	if doc.Kind == 0 || len(doc.Content) == 0 {
		doc = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.ShortTag() == nullTag {
		*root = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrShape)
	}

	blockStyle(&doc)

	var seq *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != inputsKey {
			continue
		}
		value := root.Content[i+1]
		switch {
		case value.Kind == yaml.SequenceNode:
			seq = value
		case value.Kind == yaml.ScalarNode && value.ShortTag() == nullTag:
			*value = yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
			seq = value
		default:
			return nil, fmt.Errorf("%w: %q must be a sequence", ErrShape, inputsKey)
		}
		break
	}

	if seq == nil {
		key := &yaml.Node{}
		key.SetString(inputsKey)
		seq = &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		root.Content = append(root.Content, key, seq)
	}

	// Entries are replaced wholesale, so none of them may hold an anchor that
	// is referenced elsewhere in the document.
	anchored := map[*yaml.Node]bool{}
	collectAnchors(seq, anchored)
	for i, n := range seq.Content {
		seq.Content[i] = detach(n)
	}
	if len(anchored) > 0 {
		expandAliases(root, seq, anchored)
	}

	return &Aggregate{doc: &doc, inputs: seq}, nil
}

// Inputs returns the entries of the aggregate in order.
func (a *Aggregate) Inputs() []Entry {
	entries := make([]Entry, 0, len(a.inputs.Content))
	for _, n := range a.inputs.Content {
		entries = append(entries, Entry{node: n})
	}
	return entries
}

// Len returns the number of entries in the inputs list.
func (a *Aggregate) Len() int {
	return len(a.inputs.Content)
}

// Marshal serializes the aggregate in block style with 2-space indentation.
func (a *Aggregate) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(a.doc); err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	return buf.Bytes(), nil
}

// Fragment is a list of input entries contributed by one changed file.
type Fragment struct {
	entries []Entry
}

// ParseFragment parses the content of an input fragment. The top level is
// expected to be a sequence of entries; a single mapping is accepted as a
// one entry fragment and an empty document yields no entries.
func ParseFragment(data []byte) (*Fragment, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return &Fragment{}, nil
	}

	root := resolve(doc.Content[0])
	switch {
	case root.Kind == yaml.SequenceNode:
		f := &Fragment{entries: make([]Entry, 0, len(root.Content))}
		for _, n := range root.Content {
			f.entries = append(f.entries, Entry{node: n})
		}
		return f, nil
	case root.Kind == yaml.MappingNode:
		return &Fragment{entries: []Entry{{node: root}}}, nil
	case root.Kind == yaml.ScalarNode && root.ShortTag() == nullTag:
		return &Fragment{}, nil
	default:
		return nil, fmt.Errorf("%w: fragment must be a sequence of inputs", ErrShape)
	}
}

// Entries returns the fragment entries in file order.
func (f *Fragment) Entries() []Entry {
	return f.entries
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func collectAnchors(n *yaml.Node, anchored map[*yaml.Node]bool) {
	if n.Anchor != "" {
		anchored[n] = true
	}
	for _, c := range n.Content {
		collectAnchors(c, anchored)
	}
}

// expandAliases replaces the aliases of n referring to anchored nodes with a
// copy of their target. skip is not visited.
func expandAliases(n, skip *yaml.Node, anchored map[*yaml.Node]bool) {
	for i, c := range n.Content {
		switch {
		case c == skip:
		case c.Kind == yaml.AliasNode && anchored[c.Alias]:
			n.Content[i] = detach(c.Alias)
		default:
			expandAliases(c, skip, anchored)
		}
	}
}

// detach returns a deep copy of n with aliases expanded, so that the copy
// does not refer to anchors of the document it was read from.
func detach(n *yaml.Node) *yaml.Node {
	return detachNode(n, map[*yaml.Node]bool{})
}

func detachNode(n *yaml.Node, visiting map[*yaml.Node]bool) *yaml.Node {
	if n.Kind == yaml.AliasNode && n.Alias != nil && !visiting[n.Alias] {
		cp := detachNode(n.Alias, visiting)
		cp.Anchor = ""
		return cp
	}

	visiting[n] = true
	defer delete(visiting, n)

	cp := *n
	cp.Anchor = ""
	cp.Style &^= yaml.FlowStyle
	if len(n.Content) > 0 {
		cp.Content = make([]*yaml.Node, 0, len(n.Content))
		for _, c := range n.Content {
			cp.Content = append(cp.Content, detachNode(c, visiting))
		}
	}
	return &cp
}
