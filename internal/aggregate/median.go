package aggregate

import (
	"sort"

	"cpstables/internal/plan"
	"cpstables/pkg/domain"
)

type groupMonthEarnings struct {
	group    string
	month    int
	earnings float64
}

type groupEarnings struct {
	group    string
	earnings float64
}

// Earnings computes weighted median earnings and observed counts for every
// cell of p over earnings-eligible respondents. The returned rows carry no
// population metrics.
func Earnings(obs []domain.Observation, p plan.Plan) []domain.AggregateRow {
	rows := filter(obs, p, func(o *domain.Observation) bool { return o.EarningsEligible })
	var out []domain.AggregateRow
	for _, cell := range p.Cells {
		out = append(out, earningsCell(rows, cell)...)
	}
	return out
}

func earningsCell(rows []*domain.Observation, cell plan.Cell) []domain.AggregateRow {
	groups := map[string]group{}
	stage1 := map[groupMonthEarnings]*monthSums{}
	for _, o := range rows {
		e, ok := o.Earnings.Get()
		if !ok {
			continue
		}
		g, ok := groupOf(o, cell.Group)
		if !ok {
			continue
		}
		if _, seen := groups[g.key]; !seen {
			groups[g.key] = g
		}
		k := groupMonthEarnings{group: g.key, month: o.MonthKey, earnings: e}
		m := stage1[k]
		if m == nil {
			m = &monthSums{}
			stage1[k] = m
		}
		m.add(o.OtherWeight, Observed(o), SplitFlags(o))
	}

	stage2 := map[groupEarnings]*rollup{}
	levels := map[string][]float64{}
	for k, m := range stage1 {
		ge := groupEarnings{group: k.group, earnings: k.earnings}
		r := stage2[ge]
		if r == nil {
			r = &rollup{}
			stage2[ge] = r
			levels[k.group] = append(levels[k.group], k.earnings)
		}
		r.add(*m)
	}

	ordered := make([]group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sortGroups(ordered)

	out := make([]domain.AggregateRow, 0, len(ordered))
	for _, g := range ordered {
		earnings := levels[g.key]
		sort.Float64s(earnings)
		row := newRow(cell, g)
		weights := make([]domain.Float, len(earnings))
		for _, s := range domain.Splits {
			var observed int64
			for i, e := range earnings {
				r := stage2[groupEarnings{group: g.key, earnings: e}]
				weights[i] = r.mean(s)
				observed += r.count[s]
			}
			row.EarningsObserved[s] = domain.Some(observed)
			if observed == 0 {
				continue
			}
			if m, ok := WeightedMedian(earnings, weights); ok {
				row.MedianEarnings[s] = domain.Some(m)
			}
		}
		out = append(out, row)
	}
	return out
}

// WeightedMedian returns the smallest of the ascending values at which the
// cumulative weight reaches half the total weight. Undefined weights are
// skipped. ok is false when no value qualifies.
func WeightedMedian(values []float64, weights []domain.Float) (median float64, ok bool) {
	var total float64
	for _, w := range weights {
		total += w.Or(0)
	}
	if total <= 0 {
		return 0, false
	}
	cutoff := total / 2
	var cum float64
	for i, w := range weights {
		x, defined := w.Get()
		if !defined {
			continue
		}
		cum += x
		if cum >= cutoff {
			return values[i], true
		}
	}
	return 0, false
}
