// Package basepop tags respondent-months with the overlapping population
// bases published side by side.
package basepop

import "cpstables/pkg/domain"

// DefaultMinAge is the age at which a record joins the second base.
const DefaultMinAge = 25

// Expand returns a new dataset holding every record of obs tagged with the
// 16-and-up base, followed by a copy of every record aged minAge or over
// tagged with the 25-and-up base. obs is left untouched.
func Expand(obs []domain.Observation, minAge int) []domain.Observation {
	extra := 0
	for i := range obs {
		if obs[i].Age >= minAge {
			extra++
		}
	}
	out := make([]domain.Observation, 0, len(obs)+extra)
	for _, o := range obs {
		o.BasePopulation = domain.BasePopulation16
		out = append(out, o)
	}
	for _, o := range obs {
		if o.Age >= minAge {
			o.BasePopulation = domain.BasePopulation25
			out = append(out, o)
		}
	}
	return out
}
