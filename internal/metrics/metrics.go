// Package metrics exposes pipeline counters in Prometheus form. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors of one pipeline run.
type Metrics struct {
	RecordsDecoded  *prometheus.CounterVec
	RecordsDropped  *prometheus.CounterVec
	RecordsFiltered *prometheus.CounterVec
	RecordsKept     *prometheus.CounterVec

	PlanDuration  *prometheus.HistogramVec
	RowsPublished *prometheus.CounterVec
	Suppressed    *prometheus.CounterVec
}

// New registers the pipeline collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RecordsDecoded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cpstables_records_decoded_total",
			Help: "Fixed-width records decoded by survey year",
		}, []string{"year"}),
		RecordsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cpstables_records_dropped_total",
			Help: "Fixed-width records dropped for failing integer extraction",
		}, []string{"year"}),
		RecordsFiltered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cpstables_records_filtered_total",
			Help: "Decoded records outside the adult civilian universe",
		}, []string{"year"}),
		RecordsKept: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cpstables_records_kept_total",
			Help: "Recoded respondent-months persisted",
		}, []string{"year"}),
		PlanDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cpstables_plan_duration_seconds",
			Help:    "Duration of one aggregation plan",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"plan"}),
		RowsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cpstables_rows_published_total",
			Help: "Aggregate rows written per published table",
		}, []string{"table"}),
		Suppressed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cpstables_estimates_suppressed_total",
			Help: "Estimates nulled for small observed counts",
		}, []string{"metric"}),
	}
}

// ObserveDecode records one decoding pass of a survey year.
func (m *Metrics) ObserveDecode(year, decoded, dropped int) {
	if m != nil {
		y := strconv.Itoa(year)
		m.RecordsDecoded.WithLabelValues(y).Add(float64(decoded))
		m.RecordsDropped.WithLabelValues(y).Add(float64(dropped))
	}
}

// ObserveRecode records recode outcomes of a survey year.
func (m *Metrics) ObserveRecode(year, kept, filtered int) {
	if m != nil {
		y := strconv.Itoa(year)
		m.RecordsKept.WithLabelValues(y).Add(float64(kept))
		m.RecordsFiltered.WithLabelValues(y).Add(float64(filtered))
	}
}

// ObservePlan records how long a plan took.
func (m *Metrics) ObservePlan(plan string, d time.Duration) {
	if m != nil {
		m.PlanDuration.WithLabelValues(plan).Observe(d.Seconds())
	}
}

// AddPublished counts rows written to a table.
func (m *Metrics) AddPublished(table string, rows int) {
	if m != nil {
		m.RowsPublished.WithLabelValues(table).Add(float64(rows))
	}
}

// AddSuppressed counts suppressed population and earnings estimates.
func (m *Metrics) AddSuppressed(population, earnings int) {
	if m != nil {
		m.Suppressed.WithLabelValues("population").Add(float64(population))
		m.Suppressed.WithLabelValues("earnings").Add(float64(earnings))
	}
}

// WriteTextfile dumps g in the node-exporter textfile format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
