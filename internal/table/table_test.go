package table

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpstables/internal/plan"
	"cpstables/pkg/domain"
)

func row(cats map[string]string) domain.AggregateRow {
	return domain.AggregateRow{Categories: cats}
}

func TestAssembleFillsDefaultsOutsideKey(t *testing.T) {
	p := plan.Plan{Key: []string{domain.ColState, domain.ColEducation2}}
	in := []domain.AggregateRow{row(map[string]string{
		domain.ColState:      "CA",
		domain.ColEducation2: "BACHELORS OR HIGHER",
		domain.ColSex:        "FEMALE",
	})}
	out := Assemble(in, p)
	require.Len(t, out, 1)
	c := out[0].Categories
	assert.Equal(t, "CA", c[domain.ColState])
	assert.Equal(t, "BACHELORS OR HIGHER", c[domain.ColEducation], "education2 publishes as education")
	_, ok := c[domain.ColEducation2]
	assert.False(t, ok)
	assert.Equal(t, "ALL GENDERS", c[domain.ColSex], "grouped column outside the key takes its default")
	assert.Equal(t, domain.BasePopulation16, c[domain.ColBasePopulation])
	assert.Equal(t, TotalPopulation, c[domain.ColLaborForce])
	assert.Equal(t, TotalPopulation, c[domain.ColEmploymentType])
	assert.Equal(t, "ALL OCCUPATION", c[domain.ColOccupation])
	assert.Equal(t, "FEMALE", in[0].Categories[domain.ColSex], "input untouched")
}

func TestAssembleRelabelsEmployment(t *testing.T) {
	p := plan.Plan{Key: []string{domain.ColState, domain.ColLaborForce}}
	cases := []struct {
		labforce, empType, empStat string
	}{
		{"EMPLOYED", TotalEmployed, TotalEmployed},
		{"UNEMPLOYED", TotalUnemployed, StatusUnemployed},
		{"NOT IN LABOR FORCE", TotalNotInLaborForce, StatusNotInLaborForce},
		{"IN LABOR FORCE", TotalInLaborForce, StatusInLaborForce},
	}
	for _, tc := range cases {
		out := Assemble([]domain.AggregateRow{row(map[string]string{
			domain.ColState:      "CA",
			domain.ColLaborForce: tc.labforce,
		})}, p)
		assert.Equal(t, tc.empType, out[0].Categories[domain.ColEmploymentType], tc.labforce)
		assert.Equal(t, tc.empStat, out[0].Categories[domain.ColEmploymentStat], tc.labforce)
	}
}

func TestAssembleKeepsKeyedEmploymentType(t *testing.T) {
	p := plan.Plan{Key: []string{domain.ColLaborForce, domain.ColEmploymentType, domain.ColEmploymentStat}}
	out := Assemble([]domain.AggregateRow{row(map[string]string{
		domain.ColLaborForce:     "EMPLOYED",
		domain.ColEmploymentType: "PRIVATE",
		domain.ColEmploymentStat: "FULL_TIME",
	})}, p)
	assert.Equal(t, "PRIVATE", out[0].Categories[domain.ColEmploymentType])
	assert.Equal(t, "FULL_TIME", out[0].Categories[domain.ColEmploymentStat])
	assert.Equal(t, "US", out[0].Categories[domain.ColState])
}

func TestFinalizeDropsStatelessAndDuplicates(t *testing.T) {
	a := row(map[string]string{domain.ColState: "CA"})
	a.Population[domain.SplitTotal] = domain.Some(1.0)
	b := a.Clone()
	c := row(map[string]string{domain.ColSex: "MALE"})
	d := a.Clone()
	d.Population[domain.SplitTotal] = domain.Some(2.0)
	out := Finalize([]domain.AggregateRow{a, b, c, d})
	require.Len(t, out, 2)
	assert.Equal(t, domain.Some(2.0), out[1].Population[domain.SplitTotal])
}

func TestCSVRoundTrip(t *testing.T) {
	r := row(map[string]string{domain.ColState: "CA", domain.ColSex: "ALL GENDERS, ALL AGES"})
	r.Population[domain.SplitTotal] = domain.Some(1234.5)
	r.PopulationObserved[domain.SplitTotal] = domain.Some(int64(31))
	r.MedianEarnings[domain.SplitCert1Yes] = domain.Some(950.25)
	r.Smoothed[domain.SmoothedCert1No] = domain.Some(0.5)

	for _, smoothed := range []bool{true, false} {
		var buf bytes.Buffer
		require.NoError(t, WriteCSV(&buf, []domain.AggregateRow{r}, smoothed))
		header := strings.SplitN(buf.String(), "\n", 2)[0]
		assert.True(t, strings.HasPrefix(header, "state,base_pop,labforce,emp_type,emp_stat,education,sex,race,age,industry,occupation,population_total"))

		rows, gotSmoothed, err := ReadCSV(&buf)
		require.NoError(t, err)
		assert.Equal(t, smoothed, gotSmoothed)
		require.Len(t, rows, 1)
		assert.Equal(t, r.Categories, rows[0].Categories)
		assert.Equal(t, r.Population, rows[0].Population)
		assert.Equal(t, r.MedianEarnings, rows[0].MedianEarnings)
		assert.False(t, rows[0].EarningsObserved[domain.SplitTotal].Valid)
		if smoothed {
			assert.Equal(t, r.Smoothed, rows[0].Smoothed)
		}
	}
}

func TestReadCSVErrors(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
	_, _, err = ReadCSV(strings.NewReader("a,b\n"))
	assert.Error(t, err)

	header := strings.Join(domain.TableColumns(false), ",")
	bad := strings.Replace(header, "state", "country", 1)
	_, _, err = ReadCSV(strings.NewReader(bad + "\n"))
	assert.Error(t, err)

	values := make([]string, len(domain.TableColumns(false)))
	values[11] = "not-a-number"
	_, _, err = ReadCSV(strings.NewReader(header + "\n" + strings.Join(values, ",") + "\n"))
	assert.ErrorContains(t, err, "line 2")
}
