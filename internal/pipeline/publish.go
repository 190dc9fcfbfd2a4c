package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"cpstables/internal/aggregate"
	"cpstables/internal/basepop"
	"cpstables/internal/disclosure"
	"cpstables/internal/plan"
	"cpstables/internal/publication"
	"cpstables/internal/table"
	"cpstables/pkg/domain"
)

// PublishRequest describes one published table.
type PublishRequest struct {
	Name   string
	Plans  []plan.Plan
	Filter domain.MicrodataFilter
	// Suppress nulls estimates resting on fewer than Threshold observations.
	Suppress  bool
	Threshold int64
	// MinAge is the age threshold of the second base population.
	MinAge int
	RunID  string
}

// PublishResult reports a published table.
type PublishResult struct {
	Rows         []domain.AggregateRow
	Observations int
	PlanRows     map[string]int
	Disclosure   disclosure.Stats
	// Run is set when a publisher is configured.
	Run *publication.Run
}

// Publish evaluates every plan against the stored microdata, assembles the
// table, applies disclosure control and stores the result.
func (p *Pipeline) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	var res PublishResult
	if req.Name == "" {
		return res, fmt.Errorf("publish: table name required")
	}
	if len(req.Plans) == 0 {
		return res, fmt.Errorf("publish %s: no plans", req.Name)
	}
	for _, pl := range req.Plans {
		if err := pl.Validate(); err != nil {
			return res, fmt.Errorf("publish %s: %w", req.Name, err)
		}
	}
	minAge := req.MinAge
	if minAge == 0 {
		minAge = basepop.DefaultMinAge
	}

	obs, err := p.store.LoadObservations(ctx, req.Filter)
	if err != nil {
		return res, fmt.Errorf("publish %s: %w", req.Name, err)
	}
	res.Observations = len(obs)
	expanded := basepop.Expand(obs, minAge)
	p.logger.Info("microdata loaded", "table", req.Name, "observations", len(obs), "expanded", len(expanded),
		"from", req.Filter.FromMonth, "to", req.Filter.ToMonth)

	perPlan := make([][]domain.AggregateRow, len(req.Plans))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, pl := range req.Plans {
		i, pl := i, pl
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			rows := table.Assemble(aggregate.Evaluate(expanded, pl), pl)
			perPlan[i] = rows
			p.metrics.ObservePlan(pl.Name, time.Since(start))
			p.logger.Debug("plan evaluated", "table", req.Name, "plan", pl.Name, "rows", len(rows), "elapsed", time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("publish %s: %w", req.Name, err)
	}

	res.PlanRows = make(map[string]int, len(req.Plans))
	var rows []domain.AggregateRow
	for i, pl := range req.Plans {
		res.PlanRows[pl.Name] += len(perPlan[i])
		rows = append(rows, perPlan[i]...)
	}
	if req.Suppress {
		rows, res.Disclosure = disclosure.Suppress(rows, req.Threshold)
		p.metrics.AddSuppressed(res.Disclosure.Population, res.Disclosure.Earnings)
		p.logger.Info("suppression applied", "table", req.Name, "threshold", req.Threshold,
			"population", res.Disclosure.Population, "earnings", res.Disclosure.Earnings)
	}
	rows = table.Finalize(disclosure.Smooth(rows))
	res.Rows = rows

	if err := p.store.ReplaceTable(ctx, req.Name, rows); err != nil {
		return res, fmt.Errorf("publish %s: store: %w", req.Name, err)
	}
	p.metrics.AddPublished(req.Name, len(rows))
	if p.publisher != nil {
		run := publication.Run{ID: req.RunID, Table: req.Name, Suppressed: res.Disclosure.Total(), Smoothed: true}
		if req.Suppress {
			run.Threshold = req.Threshold
		}
		out, err := p.publisher.Publish(ctx, run, rows)
		if err != nil {
			return res, err
		}
		res.Run = &out
	}
	p.logger.Info("table stored", "table", req.Name, "rows", len(rows), "plans", len(req.Plans))
	return res, nil
}
