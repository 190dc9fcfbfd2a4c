package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpstables/internal/plan"
	"cpstables/pkg/domain"
)

func person(month, mis int, weight float64, cert1, cert2 string) domain.Observation {
	return domain.Observation{
		Key:            domain.ObservationKey{SurveyID: 1, LineNumber: 1, Month: month},
		MonthKey:       201700 + month,
		MonthInSample:  mis,
		Age:            40,
		Weight:         domain.Some(weight),
		OtherWeight:    domain.Some(weight),
		State:          domain.Some("CA"),
		LaborForce:     domain.Some("EMPLOYED"),
		Cert1:          domain.TextOf(cert1),
		Cert2:          domain.TextOf(cert2),
		BasePopulation: domain.BasePopulation16,
	}
}

func stateCell() plan.Plan {
	return plan.Plan{
		Name:  "by_state",
		Key:   []string{domain.ColState},
		Cells: []plan.Cell{{Name: "state", Group: []string{domain.ColState}}},
	}
}

func TestPopulationAveragesMonthsAndSumsObserved(t *testing.T) {
	var obs []domain.Observation
	for m := 1; m <= 12; m++ {
		mis := 1
		if m == 4 {
			mis = 4
		}
		cert := "YES"
		if m > 6 {
			cert = "NO"
		}
		obs = append(obs, person(m, mis, 1.0, cert, ""))
	}
	rows := Population(obs, stateCell())
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "CA", row.Categories[domain.ColState])
	assert.InDelta(t, 1.0, row.Population[domain.SplitTotal].Value, 1e-12)
	assert.Equal(t, domain.Some(int64(1)), row.PopulationObserved[domain.SplitTotal])
	// months without a yes or no response are undefined, not zero
	assert.InDelta(t, 1.0, row.Population[domain.SplitCert1Yes].Value, 1e-12)
	assert.InDelta(t, 1.0, row.Population[domain.SplitCert1No].Value, 1e-12)
	assert.Equal(t, domain.Some(int64(1)), row.PopulationObserved[domain.SplitCert1Yes])
	assert.Equal(t, domain.Some(int64(0)), row.PopulationObserved[domain.SplitCert1No])
	assert.False(t, row.Population[domain.SplitCert2Yes].Valid)
	assert.Equal(t, domain.Some(int64(0)), row.PopulationObserved[domain.SplitCert2Yes])
}

func TestPopulationSingleMonthSplitsReconcile(t *testing.T) {
	obs := []domain.Observation{
		person(1, 4, 2.5, "YES", "YES"),
		person(1, 4, 1.5, "YES", "NO"),
		person(1, 4, 4.0, "NO", ""),
	}
	rows := Population(obs, stateCell())
	require.Len(t, rows, 1)
	p := rows[0].Population
	assert.Equal(t, p[domain.SplitTotal].Value, p[domain.SplitCert1Yes].Value+p[domain.SplitCert1No].Value)
	assert.Equal(t, p[domain.SplitCert1Yes].Value, p[domain.SplitCert2Yes].Value+p[domain.SplitCert2No].Value)
	assert.Equal(t, domain.Some(int64(3)), rows[0].PopulationObserved[domain.SplitTotal])
	assert.Equal(t, domain.Some(int64(2)), rows[0].PopulationObserved[domain.SplitCert1Yes])
}

func TestPopulationSkipsUndefinedGroupValues(t *testing.T) {
	a := person(1, 4, 1, "", "")
	b := person(1, 4, 1, "", "")
	b.State = domain.None[string]()
	c := person(1, 4, 1, "", "")
	c.State = domain.Some("AK")
	rows := Population([]domain.Observation{a, b, c}, stateCell())
	require.Len(t, rows, 2)
	assert.Equal(t, "AK", rows[0].Categories[domain.ColState], "groups are ordered by value")
	assert.Equal(t, "CA", rows[1].Categories[domain.ColState])
}

func TestPopulationAppliesRestrictionsAndFill(t *testing.T) {
	employed := person(1, 4, 3, "", "")
	unknown := person(1, 4, 5, "", "")
	unknown.LaborForce = domain.None[string]()
	unemployed := person(1, 4, 7, "", "")
	unemployed.LaborForce = domain.Some("UNEMPLOYED")

	p := plan.Plan{
		Name:         "not_unemployed",
		Key:          []string{domain.ColState},
		Restrictions: []plan.Restriction{plan.NewRestriction(plan.NotEquals, domain.ColLaborForce, "UNEMPLOYED")},
		Cells:        []plan.Cell{{Name: "national", Fill: []plan.Fill{{Column: domain.ColState, Value: "US"}}}},
	}
	obs := []domain.Observation{employed, unknown, unemployed}
	rows := Population(obs, p)
	require.Len(t, rows, 1)
	assert.Equal(t, "US", rows[0].Categories[domain.ColState])
	assert.InDelta(t, 8.0, rows[0].Population[domain.SplitTotal].Value, 1e-12, "undefined labforce passes a not-equals restriction")
	assert.Equal(t, "EMPLOYED", obs[0].LaborForce.Value, "input untouched")
}

func TestWeightedMedian(t *testing.T) {
	w := func(xs ...float64) []domain.Float {
		out := make([]domain.Float, len(xs))
		for i, x := range xs {
			out[i] = domain.Some(x)
		}
		return out
	}
	m, ok := WeightedMedian([]float64{5, 10, 15, 20}, w(10, 10, 10, 10))
	require.True(t, ok)
	assert.Equal(t, 10.0, m)

	m, ok = WeightedMedian([]float64{5, 10, 15}, w(1, 1, 10))
	require.True(t, ok)
	assert.Equal(t, 15.0, m)

	weights := []domain.Float{domain.None[float64](), domain.Some(3.0), domain.Some(1.0)}
	m, ok = WeightedMedian([]float64{1, 2, 3}, weights)
	require.True(t, ok)
	assert.Equal(t, 2.0, m)

	_, ok = WeightedMedian(nil, nil)
	assert.False(t, ok)
	_, ok = WeightedMedian([]float64{1}, []domain.Float{domain.None[float64]()})
	assert.False(t, ok)
}

func earner(month, mis int, weight, earnings float64, cert1 string) domain.Observation {
	o := person(month, mis, weight, cert1, "")
	o.Earnings = domain.Some(earnings)
	o.EarningsEligible = true
	return o
}

func TestEarningsMedianPerGroup(t *testing.T) {
	obs := []domain.Observation{
		earner(1, 4, 10, 5, "YES"),
		earner(1, 4, 10, 10, "YES"),
		earner(1, 4, 10, 15, "NO"),
		earner(1, 4, 10, 20, "NO"),
		earner(1, 4, 99, 1000, "NO"),
	}
	obs[4].EarningsEligible = false
	rows := Earnings(obs, stateCell())
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, domain.Some(10.0), row.MedianEarnings[domain.SplitTotal])
	assert.Equal(t, domain.Some(int64(4)), row.EarningsObserved[domain.SplitTotal])
	assert.Equal(t, domain.Some(5.0), row.MedianEarnings[domain.SplitCert1Yes])
	assert.Equal(t, domain.Some(15.0), row.MedianEarnings[domain.SplitCert1No])
	assert.False(t, row.MedianEarnings[domain.SplitCert2Yes].Valid, "empty split has no median")
	assert.Equal(t, domain.Some(int64(0)), row.EarningsObserved[domain.SplitCert2Yes])
}

func TestEarningsWithoutObservedRespondentsIsUndefined(t *testing.T) {
	obs := []domain.Observation{earner(1, 2, 10, 500, ""), earner(2, 3, 10, 700, "")}
	rows := Earnings(obs, stateCell())
	require.Len(t, rows, 1)
	assert.False(t, rows[0].MedianEarnings[domain.SplitTotal].Valid)
	assert.Equal(t, domain.Some(int64(0)), rows[0].EarningsObserved[domain.SplitTotal])
}

func TestEarningsAveragesAcrossMonths(t *testing.T) {
	// earnings 100 carries weight 30 in one month, 300 carries 10 in two
	// months; stage two averages to 30 vs 10, so the median is 100.
	obs := []domain.Observation{
		earner(1, 4, 30, 100, ""),
		earner(1, 4, 10, 300, ""),
		earner(2, 4, 10, 300, ""),
	}
	rows := Earnings(obs, stateCell())
	require.Len(t, rows, 1)
	assert.Equal(t, domain.Some(100.0), rows[0].MedianEarnings[domain.SplitTotal])
	assert.Equal(t, domain.Some(int64(3)), rows[0].EarningsObserved[domain.SplitTotal])
}

func TestMergeOuterJoin(t *testing.T) {
	row := func(state string) domain.AggregateRow {
		return domain.AggregateRow{Categories: map[string]string{domain.ColState: state}}
	}
	pa, pb := row("CA"), row("NY")
	pa.Population[domain.SplitTotal] = domain.Some(1.0)
	pb.Population[domain.SplitTotal] = domain.Some(2.0)
	ea, ec := row("CA"), row("TX")
	ea.MedianEarnings[domain.SplitTotal] = domain.Some(500.0)
	ec.MedianEarnings[domain.SplitTotal] = domain.Some(700.0)

	out := Merge([]domain.AggregateRow{pa, pb}, []domain.AggregateRow{ea, ec}, []string{domain.ColState})
	require.Len(t, out, 3)
	assert.Equal(t, domain.Some(1.0), out[0].Population[domain.SplitTotal])
	assert.Equal(t, domain.Some(500.0), out[0].MedianEarnings[domain.SplitTotal])
	assert.False(t, out[1].MedianEarnings[domain.SplitTotal].Valid)
	assert.Equal(t, "TX", out[2].Categories[domain.ColState])
	assert.False(t, out[2].Population[domain.SplitTotal].Valid)

	out[0].Categories[domain.ColState] = "changed"
	assert.Equal(t, "CA", pa.Categories[domain.ColState], "merge output does not alias inputs")
}

func TestEvaluateSkipsEarningsForNonEarners(t *testing.T) {
	o := earner(1, 4, 10, 500, "")
	o.LaborForce = domain.Some("UNEMPLOYED")
	p := stateCell()
	p.Restrictions = []plan.Restriction{plan.NewRestriction(plan.Equals, domain.ColLaborForce, "UNEMPLOYED")}
	rows := Evaluate([]domain.Observation{o}, p)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.Some(10.0), rows[0].Population[domain.SplitTotal])
	assert.False(t, rows[0].MedianEarnings[domain.SplitTotal].Valid)
	assert.False(t, rows[0].EarningsObserved[domain.SplitTotal].Valid)
}

func TestEvaluateCountsDefaultBaseOnce(t *testing.T) {
	a := earner(1, 4, 10, 500, "")
	b := a
	b.BasePopulation = domain.BasePopulation25
	rows := Evaluate([]domain.Observation{a, b}, stateCell())
	require.Len(t, rows, 1)
	assert.Equal(t, domain.Some(10.0), rows[0].Population[domain.SplitTotal])
	assert.Equal(t, domain.Some(500.0), rows[0].MedianEarnings[domain.SplitTotal])
	assert.Equal(t, domain.Some(int64(1)), rows[0].EarningsObserved[domain.SplitTotal])
}

func TestSplitFlags(t *testing.T) {
	o := person(1, 4, 1, "yes", "No")
	f := SplitFlags(&o)
	assert.Equal(t, [domain.NumSplits]bool{true, true, false, false, true}, f)

	o = person(1, 4, 1, "NO", "YES")
	f = SplitFlags(&o)
	assert.Equal(t, [domain.NumSplits]bool{true, false, true, false, false}, f, "cert2 splits nest inside cert1 yes")
	assert.Equal(t, int64(1), Observed(&o))
	o.MonthInSample = 8
	assert.Equal(t, int64(0), Observed(&o))
}
