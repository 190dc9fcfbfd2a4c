// Package aggregate computes weighted population levels and weighted median
// earnings for the cells of an aggregation plan.
//
// Both engines roll up in two stages: sums within group and survey month,
// then an average across months for weights and a sum across months for
// observed counts. Each metric is carried for the total and the four
// certification splits.
package aggregate

import (
	"sort"
	"strings"

	"cpstables/internal/plan"
	"cpstables/pkg/domain"
)

// ObservedMonthInSample is the interview month in which a respondent is counted
// as observed. Each person reaches it at most once per year.
const ObservedMonthInSample = 4

// SplitFlags returns the split membership of o. Cert2 splits are nested inside
// the Cert1-yes population.
func SplitFlags(o *domain.Observation) [domain.NumSplits]bool {
	c1 := strings.ToUpper(o.Cert1.Or(""))
	c2 := strings.ToUpper(o.Cert2.Or(""))
	var f [domain.NumSplits]bool
	f[domain.SplitTotal] = true
	f[domain.SplitCert1Yes] = c1 == "YES"
	f[domain.SplitCert1No] = c1 == "NO"
	f[domain.SplitCert2Yes] = f[domain.SplitCert1Yes] && c2 == "YES"
	f[domain.SplitCert2No] = f[domain.SplitCert1Yes] && c2 == "NO"
	return f
}

// Observed returns 1 when o counts toward observed totals.
func Observed(o *domain.Observation) int64 {
	if o.MonthInSample == ObservedMonthInSample {
		return 1
	}
	return 0
}

// group is one distinct combination of cell group values.
type group struct {
	values []string
	key    string
}

// groupOf resolves the cell's group columns on o. ok is false when any value
// is undefined; such rows drop out of the cell.
func groupOf(o *domain.Observation, cols []string) (group, bool) {
	g := group{values: make([]string, len(cols))}
	for i, c := range cols {
		v, _ := o.Column(c)
		s, ok := v.Get()
		if !ok {
			return group{}, false
		}
		g.values[i] = s
	}
	g.key = strings.Join(g.values, "\x1f")
	return g, true
}

func sortGroups(gs []group) {
	sort.Slice(gs, func(i, j int) bool {
		a, b := gs[i].values, gs[j].values
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
}

// filter returns the rows of obs that pass p's restrictions. obs is not copied
// or modified.
func filter(obs []domain.Observation, p plan.Plan, keep func(*domain.Observation) bool) []*domain.Observation {
	out := make([]*domain.Observation, 0, len(obs))
	for i := range obs {
		o := &obs[i]
		if keep != nil && !keep(o) {
			continue
		}
		if p.Matches(o) {
			out = append(out, o)
		}
	}
	return out
}

// newRow builds an output row for a cell group.
func newRow(cell plan.Cell, g group) domain.AggregateRow {
	row := domain.AggregateRow{Categories: make(map[string]string, len(cell.Group)+len(cell.Fill))}
	for i, c := range cell.Group {
		row.Categories[c] = g.values[i]
	}
	for _, f := range cell.Fill {
		row.Categories[f.Column] = f.Value
	}
	return row
}

// monthSums is a stage-one accumulator.
type monthSums struct {
	weight [domain.NumSplits]float64
	count  [domain.NumSplits]int64
}

func (m *monthSums) add(weight domain.Float, observed int64, flags [domain.NumSplits]bool) {
	w := weight.Or(0)
	for s, in := range flags {
		if !in {
			continue
		}
		m.weight[s] += w
		m.count[s] += observed
	}
}

// rollup is a stage-two accumulator over months. Zero-valued stage-one sums
// are treated as undefined and skipped.
type rollup struct {
	weightSum [domain.NumSplits]float64
	months    [domain.NumSplits]int
	count     [domain.NumSplits]int64
}

func (r *rollup) add(m monthSums) {
	for s := range m.weight {
		if m.weight[s] != 0 {
			r.weightSum[s] += m.weight[s]
			r.months[s]++
		}
		r.count[s] += m.count[s]
	}
}

// mean returns the average weight of split s across months; undefined when no
// month contributed.
func (r *rollup) mean(s domain.Split) domain.Float {
	if r.months[s] == 0 {
		return domain.None[float64]()
	}
	return domain.Some(r.weightSum[s] / float64(r.months[s]))
}
