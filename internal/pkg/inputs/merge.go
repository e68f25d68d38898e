// Copyright Elasticsearch B.V. and/or licensed to Elasticsearch B.V. under one
// or more contributor license agreements. Licensed under the Elastic License 2.0;
// you may not use this file except in compliance with the Elastic License 2.0.

package inputs

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ChangeKind describes what happened to a single fragment entry during a merge.
type ChangeKind int

const (
	// Appended means no aggregate entry had the same identity and the entry
	// was added at the end of the inputs list.
	Appended ChangeKind = iota + 1
	// Replaced means an aggregate entry with the same identity was replaced
	// in place.
	Replaced
	// Skipped means the entry had no usable identity and was ignored.
	Skipped
)

func (k ChangeKind) String() string {
	switch k {
	case Appended:
		return "appended"
	case Replaced:
		return "replaced"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// Change is the outcome of merging one fragment entry.
type Change struct {
	Kind ChangeKind
	// ID is empty when Kind is Skipped.
	ID string
	// Index is the position of the entry in the fragment.
	Index int
	// Position is the position of the entry in the aggregate inputs list
	// after the merge, or -1 when Kind is Skipped.
	Position int
	// Reason explains why an entry was skipped.
	Reason string
	// Dropped is the number of later aggregate entries sharing the identity
	// that were removed by a replacement.
	Dropped int
}

// Counts is a tally of changes by kind.
type Counts struct {
	Replaced int
	Appended int
	Skipped  int
	Dropped  int
}

// Result reports every change applied by Merge, in fragment order.
type Result struct {
	Changes []Change
}

// Counts tallies the changes by kind.
func (r *Result) Counts() Counts {
	var c Counts
	for _, ch := range r.Changes {
		switch ch.Kind {
		case Replaced:
			c.Replaced++
		case Appended:
			c.Appended++
		case Skipped:
			c.Skipped++
		}
		c.Dropped += ch.Dropped
	}
	return c
}

// Warnings returns the skipped entries.
func (r *Result) Warnings() []Change {
	var warnings []Change
	for _, ch := range r.Changes {
		if ch.Kind == Skipped {
			warnings = append(warnings, ch)
		}
	}
	return warnings
}

type mergeOptions struct {
	idKey string
}

// MergeOption changes how Merge matches entries.
type MergeOption func(*mergeOptions)

// WithIDKey sets the field used to identify entries. Defaults to DefaultIDKey.
func WithIDKey(key string) MergeOption {
	return func(o *mergeOptions) {
		if key != "" {
			o.idKey = key
		}
	}
}

// Merge upserts every fragment entry into the aggregate inputs list.
//
// Entries are processed in fragment order. An entry whose identity matches an
// existing aggregate entry replaces it in full at the same position; any other
// entry is appended. Entries without identity are skipped and reported in the
// result. When a fragment carries the same identity twice the later entry wins.
// When the aggregate already lists an identity more than once, replacing it
// keeps the first position and removes the others.
func Merge(agg *Aggregate, frag *Fragment, opts ...MergeOption) *Result {
	o := mergeOptions{idKey: DefaultIDKey}
	for _, opt := range opts {
		opt(&o)
	}

	positions := make(map[identity]int, agg.Len())
	duplicates := make(map[identity][]int)
	for i, n := range agg.inputs.Content {
		id, ok := Entry{node: n}.identity(o.idKey)
		if !ok {
			continue
		}
		if _, seen := positions[id]; seen {
			duplicates[id] = append(duplicates[id], i)
			continue
		}
		positions[id] = i
	}

	drop := make(map[int]bool)
	result := &Result{Changes: make([]Change, 0, len(frag.entries))}
	for idx, entry := range frag.entries {
		id, ok := entry.identity(o.idKey)
		if !ok {
			result.Changes = append(result.Changes, Change{
				Kind:     Skipped,
				Index:    idx,
				Position: -1,
				Reason:   skipReason(entry, o.idKey),
			})
			continue
		}

		node := detach(entry.node)
		if pos, found := positions[id]; found {
			agg.inputs.Content[pos] = node
			for _, d := range duplicates[id] {
				drop[d] = true
			}
			result.Changes = append(result.Changes, Change{
				Kind:     Replaced,
				ID:       id.value,
				Index:    idx,
				Position: pos,
				Dropped:  len(duplicates[id]),
			})
			delete(duplicates, id)
			continue
		}

		agg.inputs.Content = append(agg.inputs.Content, node)
		pos := len(agg.inputs.Content) - 1
		positions[id] = pos
		result.Changes = append(result.Changes, Change{Kind: Appended, ID: id.value, Index: idx, Position: pos})
	}

	if len(drop) > 0 {
		removeEntries(agg, drop, result)
	}
	return result
}

// removeEntries deletes the inputs at the dropped positions and shifts the
// positions reported in result accordingly.
func removeEntries(agg *Aggregate, drop map[int]bool, result *Result) {
	shifted := make([]int, len(agg.inputs.Content))
	kept := agg.inputs.Content[:0]
	for i, n := range agg.inputs.Content {
		if drop[i] {
			continue
		}
		shifted[i] = len(kept)
		kept = append(kept, n)
	}
	agg.inputs.Content = kept

	for i, ch := range result.Changes {
		if ch.Kind != Skipped {
			result.Changes[i].Position = shifted[ch.Position]
		}
	}
}

func skipReason(e Entry, key string) string {
	if n := resolve(e.node); n == nil || n.Kind != yaml.MappingNode {
		return "entry is not a mapping"
	}
	return fmt.Sprintf("entry has no %q field", key)
}
