// Package disclosure applies small-cell suppression and reconciles the
// certification sub-splits of published rows to their parent totals.
package disclosure

import (
	"cpstables/pkg/domain"
)

// DefaultThreshold is the smallest observed count a published estimate may rest on.
const DefaultThreshold = 30

// Stats counts suppressed estimates.
type Stats struct {
	Population int
	Earnings   int
}

// Total returns the number of suppressed estimates.
func (s Stats) Total() int { return s.Population + s.Earnings }

// Suppress returns a copy of rows where every weighted estimate whose paired
// observed count is undefined or below threshold is undefined. Observed counts
// are published as is. Applying Suppress twice changes nothing further.
func Suppress(rows []domain.AggregateRow, threshold int64) ([]domain.AggregateRow, Stats) {
	var stats Stats
	out := make([]domain.AggregateRow, len(rows))
	for i, r := range rows {
		row := r.Clone()
		for _, s := range domain.Splits {
			if !meets(row.PopulationObserved[s], threshold) && row.Population[s].Valid {
				row.Population[s] = domain.None[float64]()
				stats.Population++
			}
			if !meets(row.EarningsObserved[s], threshold) && row.MedianEarnings[s].Valid {
				row.MedianEarnings[s] = domain.None[float64]()
				stats.Earnings++
			}
		}
		out[i] = row
	}
	return out, stats
}

func meets(observed domain.Count, threshold int64) bool {
	n, ok := observed.Get()
	return ok && n >= threshold
}

// Share returns small/(small+large) with undefined inputs read as zero. The
// share is zero when both are absent.
func Share(small, large domain.Float) float64 {
	s, l := small.Or(0), large.Or(0)
	if s+l == 0 {
		return 0
	}
	return s / (s + l)
}

// Smooth returns a copy of rows with the smoothed split columns derived:
// certification-1 splits as shares of the total, certification-2 splits as
// shares of the smoothed certification-1 yes level. The smoothed pairs always
// sum to their parent. The raw splits are left as they are, so smoothing is
// idempotent.
func Smooth(rows []domain.AggregateRow) []domain.AggregateRow {
	out := make([]domain.AggregateRow, len(rows))
	for i, r := range rows {
		row := r.Clone()
		p := row.Population
		c1yes, c1no := split(p[domain.SplitTotal], Share(p[domain.SplitCert1Yes], p[domain.SplitCert1No]))
		c2yes, c2no := split(c1yes, Share(p[domain.SplitCert2Yes], p[domain.SplitCert2No]))
		row.Smoothed[domain.SmoothedCert1Yes] = c1yes
		row.Smoothed[domain.SmoothedCert1No] = c1no
		row.Smoothed[domain.SmoothedCert2Yes] = c2yes
		row.Smoothed[domain.SmoothedCert2No] = c2no
		out[i] = row
	}
	return out
}

// split divides parent by share; both parts are undefined when parent is.
func split(parent domain.Float, share float64) (yes, no domain.Float) {
	v, ok := parent.Get()
	if !ok {
		return domain.None[float64](), domain.None[float64]()
	}
	y := v * share
	return domain.FloatOf(y), domain.FloatOf(v - y)
}
