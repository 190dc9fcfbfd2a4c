package domain

import (
	"fmt"
	"strings"
)

// Split identifies the certification sub-population a metric describes.
type Split int

const (
	SplitTotal Split = iota
	SplitCert1Yes
	SplitCert1No
	SplitCert2Yes
	SplitCert2No
	NumSplits
)

// Splits lists every split in output column order.
var Splits = [NumSplits]Split{SplitTotal, SplitCert1Yes, SplitCert1No, SplitCert2Yes, SplitCert2No}

// Suffix is the column suffix used in the published table.
func (s Split) Suffix() string {
	switch s {
	case SplitTotal:
		return "total"
	case SplitCert1Yes:
		return "PECERT1_y"
	case SplitCert1No:
		return "PECERT1_n"
	case SplitCert2Yes:
		return "PECERT2_y"
	case SplitCert2No:
		return "PECERT2_n"
	}
	return fmt.Sprintf("split%d", int(s))
}

// Smoothed column positions.
const (
	SmoothedCert1Yes = iota
	SmoothedCert1No
	SmoothedCert2Yes
	SmoothedCert2No
	NumSmoothed
)

// CategoryColumns is the ordered category schema of the published table.
var CategoryColumns = []string{
	ColState,
	ColBasePopulation,
	ColLaborForce,
	ColEmploymentType,
	ColEmploymentStat,
	ColEducation,
	ColSex,
	ColRace,
	ColAge,
	ColIndustry,
	ColOccupation,
}

// IsCategoryColumn reports whether name is part of the published category schema.
func IsCategoryColumn(name string) bool {
	for _, c := range CategoryColumns {
		if c == name {
			return true
		}
	}
	return false
}

// AggregateRow is one published cell.
type AggregateRow struct {
	Categories         map[string]string  `json:"categories"`
	Population         [NumSplits]Float   `json:"population"`
	PopulationObserved [NumSplits]Count   `json:"population_observed"`
	MedianEarnings     [NumSplits]Float   `json:"median_earnings"`
	EarningsObserved   [NumSplits]Count   `json:"earnings_observed"`
	Smoothed           [NumSmoothed]Float `json:"smoothed"`
}

// Category returns the value of a category column; undefined when unset.
func (r AggregateRow) Category(name string) Text {
	v, ok := r.Categories[name]
	if !ok {
		return Text{}
	}
	return Some(v)
}

// Clone returns a deep copy.
func (r AggregateRow) Clone() AggregateRow {
	out := r
	out.Categories = make(map[string]string, len(r.Categories))
	for k, v := range r.Categories {
		out.Categories[k] = v
	}
	return out
}

// GroupKey joins the values of cols into a stable key.
func (r AggregateRow) GroupKey(cols []string) string {
	var b strings.Builder
	for i, c := range cols {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		if v, ok := r.Categories[c]; ok {
			b.WriteString(v)
		} else {
			b.WriteByte(0x1e)
		}
	}
	return b.String()
}

// TableColumns returns the published header, optionally including the smoothed columns.
func TableColumns(withSmoothed bool) []string {
	cols := append([]string(nil), CategoryColumns...)
	for _, s := range Splits {
		cols = append(cols, "population_"+s.Suffix())
	}
	for _, s := range Splits {
		cols = append(cols, "population_observed_"+s.Suffix())
	}
	for _, s := range Splits {
		cols = append(cols, "median_earnings_"+s.Suffix())
	}
	for _, s := range Splits {
		cols = append(cols, "earnings_observed_"+s.Suffix())
	}
	if withSmoothed {
		cols = append(cols,
			"population_PECERT1_y_sm",
			"population_PECERT1_n_sm",
			"population_PECERT2_y_sm",
			"population_PECERT2_n_sm",
		)
	}
	return cols
}

// Values renders the row in TableColumns order.
func (r AggregateRow) Values(withSmoothed bool) []string {
	out := make([]string, 0, len(TableColumns(withSmoothed)))
	for _, c := range CategoryColumns {
		out = append(out, r.Categories[c])
	}
	for _, s := range Splits {
		out = append(out, FormatFloat(r.Population[s]))
	}
	for _, s := range Splits {
		out = append(out, FormatCount(r.PopulationObserved[s]))
	}
	for _, s := range Splits {
		out = append(out, FormatFloat(r.MedianEarnings[s]))
	}
	for _, s := range Splits {
		out = append(out, FormatCount(r.EarningsObserved[s]))
	}
	if withSmoothed {
		for _, v := range r.Smoothed {
			out = append(out, FormatFloat(v))
		}
	}
	return out
}

// ParseAggregateRow is the inverse of Values.
func ParseAggregateRow(values []string, withSmoothed bool) (AggregateRow, error) {
	want := len(TableColumns(withSmoothed))
	if len(values) != want {
		return AggregateRow{}, fmt.Errorf("aggregate row: expected %d values, got %d", want, len(values))
	}
	row := AggregateRow{Categories: make(map[string]string, len(CategoryColumns))}
	i := 0
	for _, c := range CategoryColumns {
		if values[i] != "" {
			row.Categories[c] = values[i]
		}
		i++
	}
	floats := func(dst *[NumSplits]Float) error {
		for _, s := range Splits {
			v, err := ParseFloat(values[i])
			if err != nil {
				return fmt.Errorf("column %d: %w", i, err)
			}
			dst[s] = v
			i++
		}
		return nil
	}
	counts := func(dst *[NumSplits]Count) error {
		for _, s := range Splits {
			v, err := ParseCount(values[i])
			if err != nil {
				return fmt.Errorf("column %d: %w", i, err)
			}
			dst[s] = v
			i++
		}
		return nil
	}
	if err := floats(&row.Population); err != nil {
		return AggregateRow{}, err
	}
	if err := counts(&row.PopulationObserved); err != nil {
		return AggregateRow{}, err
	}
	if err := floats(&row.MedianEarnings); err != nil {
		return AggregateRow{}, err
	}
	if err := counts(&row.EarningsObserved); err != nil {
		return AggregateRow{}, err
	}
	if withSmoothed {
		for k := range row.Smoothed {
			v, err := ParseFloat(values[i])
			if err != nil {
				return AggregateRow{}, fmt.Errorf("column %d: %w", i, err)
			}
			row.Smoothed[k] = v
			i++
		}
	}
	return row, nil
}
