// Package pipeline runs the two batch jobs: compile decodes, recodes and
// persists one survey year of microdata; publish turns stored microdata into
// a published table.
package pipeline

import (
	"log/slog"
	"runtime"

	"cpstables/internal/metrics"
	"cpstables/internal/platform/logger"
	"cpstables/internal/publication"
	"cpstables/pkg/domain"
)

// Pipeline binds the microdata store to the optional collaborators of a run.
type Pipeline struct {
	store     domain.MicrodataStore
	publisher *publication.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	workers   int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger; the default discards.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics records run statistics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithPublisher writes each published table to the artifact store as well.
func WithPublisher(pub *publication.Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithWorkers bounds month decoding and plan evaluation parallelism.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// New returns a pipeline over store.
func New(store domain.MicrodataStore, opts ...Option) *Pipeline {
	p := &Pipeline{store: store, logger: logger.Discard(), workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
