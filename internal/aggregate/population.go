package aggregate

import (
	"cpstables/internal/plan"
	"cpstables/pkg/domain"
)

type groupMonth struct {
	group string
	month int
}

// Population computes weighted population levels and observed counts for
// every cell of p. The returned rows carry no earnings metrics.
func Population(obs []domain.Observation, p plan.Plan) []domain.AggregateRow {
	rows := filter(obs, p, nil)
	var out []domain.AggregateRow
	for _, cell := range p.Cells {
		out = append(out, populationCell(rows, cell)...)
	}
	return out
}

func populationCell(rows []*domain.Observation, cell plan.Cell) []domain.AggregateRow {
	groups := map[string]group{}
	stage1 := map[groupMonth]*monthSums{}
	for _, o := range rows {
		g, ok := groupOf(o, cell.Group)
		if !ok {
			continue
		}
		if _, seen := groups[g.key]; !seen {
			groups[g.key] = g
		}
		k := groupMonth{group: g.key, month: o.MonthKey}
		m := stage1[k]
		if m == nil {
			m = &monthSums{}
			stage1[k] = m
		}
		m.add(o.Weight, Observed(o), SplitFlags(o))
	}

	stage2 := make(map[string]*rollup, len(groups))
	for k, m := range stage1 {
		r := stage2[k.group]
		if r == nil {
			r = &rollup{}
			stage2[k.group] = r
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
		r := stage2[g.key]
		row := newRow(cell, g)
		for _, s := range domain.Splits {
			row.Population[s] = r.mean(s)
			row.PopulationObserved[s] = domain.Some(r.count[s])
		}
		out = append(out, row)
	}
	return out
}
