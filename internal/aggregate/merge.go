package aggregate

import (
	"cpstables/internal/plan"
	"cpstables/pkg/domain"
)

// Merge outer-joins population rows with earnings rows on the key columns.
// Every pairing of rows sharing a key is emitted; rows without a partner keep
// undefined metrics on the missing side.
func Merge(pop, earn []domain.AggregateRow, key []string) []domain.AggregateRow {
	byKey := make(map[string][]int, len(earn))
	for i := range earn {
		k := earn[i].GroupKey(key)
		byKey[k] = append(byKey[k], i)
	}
	matched := make([]bool, len(earn))
	out := make([]domain.AggregateRow, 0, len(pop)+len(earn))
	for _, p := range pop {
		idx := byKey[p.GroupKey(key)]
		if len(idx) == 0 {
			out = append(out, p.Clone())
			continue
		}
		for _, i := range idx {
			matched[i] = true
			out = append(out, combine(p, earn[i]))
		}
	}
	for i, e := range earn {
		if !matched[i] {
			out = append(out, e.Clone())
		}
	}
	return out
}

func combine(pop, earn domain.AggregateRow) domain.AggregateRow {
	row := pop.Clone()
	for c, v := range earn.Categories {
		if _, ok := row.Categories[c]; !ok {
			row.Categories[c] = v
		}
	}
	row.MedianEarnings = earn.MedianEarnings
	row.EarningsObserved = earn.EarningsObserved
	return row
}

// Evaluate runs both engines for one plan and merges their rows. Plans that
// cover only persons without earnings skip the median engine and publish
// undefined earnings metrics.
func Evaluate(obs []domain.Observation, p plan.Plan) []domain.AggregateRow {
	p = p.WithBaseDefault()
	pop := Population(obs, p)
	if p.SkipsEarnings() {
		return pop
	}
	return Merge(pop, Earnings(obs, p), p.Key)
}
