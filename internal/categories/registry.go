// Package categories provides the closed-vocabulary category lookups used by
// lead ingestion, and the read-only options endpoints for every category table.
package categories

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Axis is one closed classification dimension.
type Axis string

const (
	AxisService  Axis = "service"
	AxisIndustry Axis = "industry"
	AxisContact  Axis = "contact"
	AxisCheckbox Axis = "checkbox"
)

//go:embed vocabulary.yaml
var defaultVocabulary []byte

type axisSpec struct {
	Fallback *int64             `yaml:"fallback"`
	Labels   map[int64][]string `yaml:"labels"`
}

type axisTable struct {
	fallback *int64
	ids      map[string]int64
	labels   map[int64]string
}

// Registry maps external labels to category ids. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	axes map[Axis]axisTable
}

// Default returns the registry built from the embedded vocabulary.
func Default() (*Registry, error) {
	return Load(defaultVocabulary)
}

// Load parses a YAML vocabulary.
// Single-valued axes must declare a fallback; the checkbox axis must not.
func Load(data []byte) (*Registry, error) {
	var raw map[Axis]axisSpec
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}

	reg := &Registry{axes: make(map[Axis]axisTable, len(raw))}
	for _, axis := range []Axis{AxisService, AxisIndustry, AxisContact, AxisCheckbox} {
		spec, ok := raw[axis]
		if !ok {
			return nil, fmt.Errorf("vocabulary: axis %q missing", axis)
		}
		if axis.multiValued() && spec.Fallback != nil {
			return nil, fmt.Errorf("vocabulary: axis %q is multi-valued and cannot have a fallback", axis)
		}
		if !axis.multiValued() && spec.Fallback == nil {
			return nil, fmt.Errorf("vocabulary: axis %q needs a fallback id", axis)
		}

		table := axisTable{fallback: spec.Fallback, ids: make(map[string]int64), labels: make(map[int64]string)}
		for id, labels := range spec.Labels {
			if len(labels) > 0 {
				table.labels[id] = labels[0]
			}
			for _, label := range labels {
				key := normalizeLabel(label)
				if prev, dup := table.ids[key]; dup && prev != id {
					return nil, fmt.Errorf("vocabulary: axis %q label %q maps to %d and %d", axis, label, prev, id)
				}
				table.ids[key] = id
			}
		}
		reg.axes[axis] = table
	}
	return reg, nil
}

func (a Axis) multiValued() bool { return a == AxisCheckbox }

// Label returns the first spelling listed for id, or "" when the id is unknown.
func (r *Registry) Label(axis Axis, id int64) string {
	return r.axes[axis].labels[id]
}

// Lookup returns the id registered for label and whether it matched.
func (r *Registry) Lookup(axis Axis, label string) (int64, bool) {
	table, ok := r.axes[axis]
	if !ok {
		return 0, false
	}
	id, ok := table.ids[normalizeLabel(label)]
	return id, ok
}

// Fallback returns the sentinel id of a single-valued axis.
func (r *Registry) Fallback(axis Axis) int64 {
	if table, ok := r.axes[axis]; ok && table.fallback != nil {
		return *table.fallback
	}
	return 0
}

// Resolve returns the id for label on a single-valued axis, or the axis
// fallback when the label is blank or unknown. Never fails.
func (r *Registry) Resolve(axis Axis, label string) int64 {
	if id, ok := r.Lookup(axis, label); ok {
		return id
	}
	return r.Fallback(axis)
}

// ResolveSet resolves each line independently. Unknown lines are dropped.
// The result is sorted and free of duplicates; it may be empty.
func (r *Registry) ResolveSet(axis Axis, lines []string) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	out := make([]int64, 0, len(lines))
	for _, line := range lines {
		id, ok := r.Lookup(axis, line)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}
