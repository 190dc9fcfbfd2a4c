// Package plan loads declarative aggregation plans. Restrictions are parsed
// once into typed Equals / NotEquals sets.
package plan

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"cpstables/pkg/domain"
)

// NegationMarker prefixes restriction values that must not match.
const NegationMarker = "!"

// RestrictionKind tags a Restriction.
type RestrictionKind int

const (
	// Equals keeps rows whose column value is in the set. Undefined values never match.
	Equals RestrictionKind = iota
	// NotEquals keeps rows whose column value is outside the set. Undefined values match.
	NotEquals
)

func (k RestrictionKind) String() string {
	if k == NotEquals {
		return "not-equals"
	}
	return "equals"
}

// Restriction filters rows on one column.
type Restriction struct {
	Kind   RestrictionKind
	Column string
	Values []string
	set    map[string]struct{}
}

// NewRestriction builds a restriction over values.
func NewRestriction(kind RestrictionKind, column string, values ...string) Restriction {
	r := Restriction{Kind: kind, Column: column, Values: append([]string(nil), values...), set: make(map[string]struct{}, len(values))}
	for _, v := range values {
		r.set[v] = struct{}{}
	}
	return r
}

// Contains reports whether v is one of the restriction values.
func (r Restriction) Contains(v string) bool {
	_, ok := r.set[v]
	return ok
}

// Match applies the restriction to a column value.
func (r Restriction) Match(v domain.Text) bool {
	s, ok := v.Get()
	if r.Kind == NotEquals {
		return !ok || !r.Contains(s)
	}
	return ok && r.Contains(s)
}

// Fill is a constant category value stamped onto every row of a cell.
type Fill struct {
	Column string
	Value  string
}

// Cell is one grouping of a plan.
type Cell struct {
	Name  string
	Group []string
	Fill  []Fill
}

// Plan describes one published table section: the cells to aggregate, the
// shared restrictions, and the key population and earnings rows merge on.
type Plan struct {
	Name         string
	Key          []string
	Restrictions []Restriction
	Cells        []Cell
}

// Matches reports whether o passes every restriction.
func (p Plan) Matches(o *domain.Observation) bool {
	for _, r := range p.Restrictions {
		v, _ := o.Column(r.Column)
		if !r.Match(v) {
			return false
		}
	}
	return true
}

// Restricts reports whether any restriction targets column.
func (p Plan) Restricts(column string) bool {
	for _, r := range p.Restrictions {
		if r.Column == column {
			return true
		}
	}
	return false
}

// Uses reports whether column appears in a restriction, the key, or any
// cell's group or fill.
func (p Plan) Uses(column string) bool {
	if p.Restricts(column) || contains(p.Key, column) {
		return true
	}
	for _, c := range p.Cells {
		if contains(c.Group, column) {
			return true
		}
		for _, f := range c.Fill {
			if f.Column == column {
				return true
			}
		}
	}
	return false
}

// SkipsEarnings reports whether the plan only covers persons who cannot
// report earnings: some labor-force Equals restriction excludes EMPLOYED.
func (p Plan) SkipsEarnings() bool {
	for _, r := range p.Restrictions {
		if r.Column == domain.ColLaborForce && r.Kind == Equals && !r.Contains("EMPLOYED") {
			return true
		}
	}
	return false
}

// WithBaseDefault restricts a plan that never mentions the base population
// to the 16-and-up base so expanded duplicates are not counted twice.
func (p Plan) WithBaseDefault() Plan {
	if p.Uses(domain.ColBasePopulation) {
		return p
	}
	out := p
	out.Restrictions = append(append([]Restriction(nil), p.Restrictions...),
		NewRestriction(Equals, domain.ColBasePopulation, domain.BasePopulation16))
	return out
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// columnAliases maps legacy column names onto plan columns.
var columnAliases = map[string]string{
	"EDUC2": domain.ColEducation2,
	"EDUC3": domain.ColEducation3,
}

func canonical(column string) string {
	if c, ok := columnAliases[column]; ok {
		return c
	}
	return column
}

// Decode reads a plan document: a mapping of plan name to
// {key, restriction, cells: {name: {group, fill}}}. Cells may also sit
// directly beside key and restriction. Document order is preserved.
func Decode(r io.Reader) ([]Plan, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode plans: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("decode plans: expected a mapping at line %d", root.Line)
	}
	var plans []Plan
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		p, err := decodePlan(name, root.Content[i+1])
		if err != nil {
			return nil, err
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// Load reads a plan document from disk.
func Load(path string) ([]Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plans: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

type cellDoc struct {
	Group []string          `yaml:"group"`
	Fill  map[string]string `yaml:"fill"`
}

func decodePlan(name string, n *yaml.Node) (Plan, error) {
	p := Plan{Name: name}
	if n.Kind != yaml.MappingNode {
		return p, &domain.PlanError{Plan: name, Reason: "plan must be a mapping"}
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i].Value, n.Content[i+1]
		switch k {
		case "key":
			var key []string
			if err := v.Decode(&key); err != nil {
				return p, &domain.PlanError{Plan: name, Reason: fmt.Sprintf("key: %v", err)}
			}
			for _, c := range key {
				p.Key = append(p.Key, canonical(c))
			}
		case "restriction":
			rs, err := decodeRestrictions(name, v)
			if err != nil {
				return p, err
			}
			p.Restrictions = rs
		case "cells":
			if v.Kind != yaml.MappingNode {
				return p, &domain.PlanError{Plan: name, Reason: "cells must be a mapping"}
			}
			for j := 0; j+1 < len(v.Content); j += 2 {
				c, err := decodeCell(name, v.Content[j].Value, v.Content[j+1])
				if err != nil {
					return p, err
				}
				p.Cells = append(p.Cells, c)
			}
		default:
			c, err := decodeCell(name, k, v)
			if err != nil {
				return p, err
			}
			p.Cells = append(p.Cells, c)
		}
	}
	return p, nil
}

func decodeCell(planName, name string, n *yaml.Node) (Cell, error) {
	var doc cellDoc
	if err := n.Decode(&doc); err != nil {
		return Cell{}, &domain.PlanError{Plan: planName, Reason: fmt.Sprintf("cell %s: %v", name, err)}
	}
	c := Cell{Name: name, Group: make([]string, 0, len(doc.Group))}
	for _, g := range doc.Group {
		c.Group = append(c.Group, canonical(g))
	}
	cols := make([]string, 0, len(doc.Fill))
	for col := range doc.Fill {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		c.Fill = append(c.Fill, Fill{Column: canonical(col), Value: doc.Fill[col]})
	}
	return c, nil
}

func decodeRestrictions(planName string, n *yaml.Node) ([]Restriction, error) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, &domain.PlanError{Plan: planName, Reason: "restriction must be a mapping"}
	}
	var out []Restriction
	for i := 0; i+1 < len(n.Content); i += 2 {
		column := canonical(n.Content[i].Value)
		var values []string
		v := n.Content[i+1]
		switch v.Kind {
		case yaml.ScalarNode:
			values = []string{v.Value}
		case yaml.SequenceNode:
			if err := v.Decode(&values); err != nil {
				return nil, &domain.PlanError{Plan: planName, Reason: fmt.Sprintf("restriction %s: %v", column, err)}
			}
		default:
			return nil, &domain.PlanError{Plan: planName, Reason: fmt.Sprintf("restriction %s: expected a value or list", column)}
		}
		var eq, ne []string
		for _, val := range values {
			if rest, ok := strings.CutPrefix(val, NegationMarker); ok {
				ne = append(ne, rest)
			} else {
				eq = append(eq, val)
			}
		}
		if len(eq) == 0 && len(ne) == 0 {
			return nil, &domain.PlanError{Plan: planName, Reason: fmt.Sprintf("restriction %s: no values", column)}
		}
		if len(eq) > 0 {
			out = append(out, NewRestriction(Equals, column, eq...))
		}
		if len(ne) > 0 {
			out = append(out, NewRestriction(NotEquals, column, ne...))
		}
	}
	return out, nil
}

// Validate checks column names and structure.
func (p Plan) Validate() error {
	if len(p.Cells) == 0 {
		return &domain.PlanError{Plan: p.Name, Reason: "no cells"}
	}
	check := func(where, col string) error {
		if !domain.KnownColumn(col) {
			return &domain.PlanError{Plan: p.Name, Reason: fmt.Sprintf("%s: unknown column %q", where, col)}
		}
		return nil
	}
	for _, c := range p.Key {
		if err := check("key", c); err != nil {
			return err
		}
	}
	for _, r := range p.Restrictions {
		if err := check("restriction", r.Column); err != nil {
			return err
		}
	}
	for _, cell := range p.Cells {
		seen := map[string]bool{}
		for _, g := range cell.Group {
			if err := check("cell "+cell.Name+" group", g); err != nil {
				return err
			}
			if seen[g] {
				return &domain.PlanError{Plan: p.Name, Reason: fmt.Sprintf("cell %s: column %q grouped twice", cell.Name, g)}
			}
			seen[g] = true
		}
		for _, f := range cell.Fill {
			if err := check("cell "+cell.Name+" fill", f.Column); err != nil {
				return err
			}
		}
	}
	return nil
}
