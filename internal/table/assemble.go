// Package table shapes aggregate rows into the published table: category
// defaults, employment relabelling, hygiene and the CSV codec.
package table

import (
	"strings"

	"cpstables/internal/plan"
	"cpstables/pkg/domain"
)

// Defaults are the category values published for columns a plan does not key on.
var Defaults = map[string]string{
	domain.ColState:          "US",
	domain.ColBasePopulation: domain.BasePopulation16,
	domain.ColLaborForce:     TotalPopulation,
	domain.ColEmploymentType: TotalPopulation,
	domain.ColEmploymentStat: TotalPopulation,
	domain.ColEducation:      "ALL EDUCATION LEVELS",
	domain.ColSex:            "ALL GENDERS",
	domain.ColRace:           "ALL RACES",
	domain.ColAge:            "ALL AGES",
	domain.ColIndustry:       "ALL INDUSTRY",
	domain.ColOccupation:     "ALL OCCUPATION",
}

// Employment relabels.
const (
	TotalPopulation       = "TOTAL POPULATION"
	TotalEmployed         = "TOTAL EMPLOYED POPULATION"
	TotalUnemployed       = "TOTAL UNEMPLOYED POPULATION"
	TotalNotInLaborForce  = "TOTAL PERSONS NOT IN LABOR FORCE"
	TotalInLaborForce     = "TOTAL PERSONS IN LABOR FORCE"
	StatusUnemployed      = "UNEMPLOYED"
	StatusNotInLaborForce = "NOT IN LABOR FORCE"
	StatusInLaborForce    = "IN LABOR FORCE"
	labforceEmployed      = "EMPLOYED"
)

// publishedAs maps alternate plan columns onto the published category they
// fill. The first alternate present wins.
var publishedAs = []struct{ from, to string }{
	{domain.ColEducation2, domain.ColEducation},
	{domain.ColEducation3, domain.ColEducation},
	{domain.ColAgeBand, domain.ColAge},
}

// PublishedColumn returns the published category column fed by a plan column.
func PublishedColumn(col string) string {
	for _, a := range publishedAs {
		if a.from == col {
			return a.to
		}
	}
	return col
}

// Assemble converts one plan's merged rows into published rows. Category
// columns outside the plan key take their defaults; employment type and
// status are then relabelled from labor-force status.
func Assemble(rows []domain.AggregateRow, p plan.Plan) []domain.AggregateRow {
	key := make(map[string]bool, len(p.Key))
	for _, k := range p.Key {
		key[PublishedColumn(k)] = true
	}
	out := make([]domain.AggregateRow, 0, len(rows))
	for _, r := range rows {
		row := r.Clone()
		for _, a := range publishedAs {
			v, ok := row.Categories[a.from]
			if !ok {
				continue
			}
			delete(row.Categories, a.from)
			if _, set := row.Categories[a.to]; !set {
				row.Categories[a.to] = v
			}
		}
		for _, c := range domain.CategoryColumns {
			if !key[c] {
				row.Categories[c] = Defaults[c]
			}
		}
		relabel(row.Categories, key)
		out = append(out, row)
	}
	return out
}

func relabel(cat map[string]string, key map[string]bool) {
	lf := cat[domain.ColLaborForce]
	if !key[domain.ColEmploymentType] && lf == labforceEmployed {
		cat[domain.ColEmploymentType] = TotalEmployed
	}
	if !key[domain.ColEmploymentStat] && lf == labforceEmployed {
		cat[domain.ColEmploymentStat] = TotalEmployed
	}
	switch lf {
	case StatusUnemployed:
		cat[domain.ColEmploymentType] = TotalUnemployed
	case StatusNotInLaborForce:
		cat[domain.ColEmploymentType] = TotalNotInLaborForce
	case StatusInLaborForce:
		cat[domain.ColEmploymentType] = TotalInLaborForce
	}
	switch cat[domain.ColEmploymentType] {
	case TotalUnemployed:
		cat[domain.ColEmploymentStat] = StatusUnemployed
	case TotalNotInLaborForce:
		cat[domain.ColEmploymentStat] = StatusNotInLaborForce
	case TotalInLaborForce:
		cat[domain.ColEmploymentStat] = StatusInLaborForce
	}
}

// Finalize drops rows without a state and exact duplicates, keeping the first
// occurrence of each published row.
func Finalize(rows []domain.AggregateRow) []domain.AggregateRow {
	seen := make(map[string]bool, len(rows))
	out := make([]domain.AggregateRow, 0, len(rows))
	for _, r := range rows {
		if !r.Category(domain.ColState).Valid {
			continue
		}
		k := strings.Join(r.Values(true), "\x1f")
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}
