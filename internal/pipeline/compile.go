package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"cpstables/internal/fixedwidth"
	"cpstables/internal/layout"
	"cpstables/internal/recode"
	"cpstables/pkg/domain"
)

// YearInput locates the inputs of one survey year.
type YearInput struct {
	Year int
	// Layout is the record layout description. Empty selects LayoutFor(Year)
	// inside LayoutDir.
	Layout    string
	LayoutDir string
	DataDir   string
	// SupplementLayout and SupplementData locate the certification extract.
	// Empty values fall back to SupplementFor(Year) inside LayoutDir and
	// DataDir for years that have one.
	SupplementLayout string
	SupplementData   string
	Labels           recode.Labels
}

func (in YearInput) layoutPath() string {
	if in.Layout != "" {
		return in.Layout
	}
	return filepath.Join(in.LayoutDir, LayoutFor(in.Year))
}

func (in YearInput) supplementPaths() (layoutPath, dataPath string, ok bool) {
	if in.SupplementLayout != "" && in.SupplementData != "" {
		return in.SupplementLayout, in.SupplementData, true
	}
	l, d, ok := SupplementFor(in.Year)
	if !ok {
		return "", "", false
	}
	if in.SupplementLayout != "" {
		l = in.SupplementLayout
	} else {
		l = filepath.Join(in.LayoutDir, l)
	}
	if in.SupplementData != "" {
		d = in.SupplementData
	} else {
		d = filepath.Join(in.DataDir, d)
	}
	return l, d, true
}

// MonthResult reports one monthly file.
type MonthResult struct {
	Month   int
	Path    string
	Decode  fixedwidth.Stats
	Recode  recode.Stats
	Skipped bool
	Err     error
}

// CompileResult summarises a compiled year.
type CompileResult struct {
	Year           int
	Fields         int
	Months         []MonthResult
	Decode         fixedwidth.Stats
	Recode         recode.Stats
	SupplementRows int
	Observations   int
}

// Skipped returns the months that were missing or unreadable.
func (r CompileResult) Skipped() []int {
	var out []int
	for _, m := range r.Months {
		if m.Skipped {
			out = append(out, m.Month)
		}
	}
	return out
}

// Compile decodes and recodes the twelve monthly files of a year and swaps
// them into the microdata store. A layout that yields no fields aborts the
// year; a missing or unreadable month is logged and skipped.
func (p *Pipeline) Compile(ctx context.Context, in YearInput) (CompileResult, error) {
	start := time.Now()
	res := CompileResult{Year: in.Year}
	lay, err := layout.ParseFile(in.layoutPath(), layout.Only(recode.MonthlyFields...))
	if err != nil {
		return res, fmt.Errorf("compile %d: %w", in.Year, err)
	}
	res.Fields = lay.Len()
	p.logger.Info("layout parsed", "year", in.Year, "path", in.layoutPath(), "fields", lay.Len())

	opts := recode.Options{Labels: in.Labels}
	if lp, dp, ok := in.supplementPaths(); ok {
		sup, err := p.loadSupplement(ctx, lp, dp)
		if err != nil {
			return res, fmt.Errorf("compile %d: supplement: %w", in.Year, err)
		}
		opts.Supplement = sup
		res.SupplementRows = sup.Len()
	}
	engine := recode.NewDefaultEngine(opts)
	dec := fixedwidth.NewDecoder(lay, fixedwidth.WithLogger(p.logger))

	months := make([]MonthResult, 12)
	batches := make([][]domain.Observation, 12)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := range months {
		i := i
		month := i + 1
		g.Go(func() error {
			path := MonthFile(in.DataDir, in.Year, month)
			obs, mr, err := p.compileMonth(gctx, dec, engine, path, in.Year, month)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				mr.Skipped, mr.Err = true, err
				msg := "skipping unreadable month"
				if errors.Is(err, fs.ErrNotExist) {
					msg = "skipping missing month"
				}
				p.logger.Warn(msg, "year", in.Year, "month", month, "path", path, "error", err)
			}
			months[i] = mr
			batches[i] = obs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("compile %d: %w", in.Year, err)
	}

	var all []domain.Observation
	for i, mr := range months {
		res.Decode.Add(mr.Decode)
		res.Recode.Add(mr.Recode)
		all = append(all, batches[i]...)
	}
	res.Months = months
	res.Observations = len(all)
	if err := p.store.ReplaceYear(ctx, in.Year, all); err != nil {
		return res, fmt.Errorf("compile %d: store: %w", in.Year, err)
	}
	p.metrics.ObserveDecode(in.Year, res.Decode.Decoded, res.Decode.Dropped)
	p.metrics.ObserveRecode(in.Year, res.Recode.Kept, res.Recode.Filtered)
	p.logger.Info("year compiled", "year", in.Year,
		"decoded", res.Decode.Decoded, "dropped", res.Decode.Dropped,
		"kept", res.Recode.Kept, "filtered", res.Recode.Filtered,
		"skipped_months", res.Skipped(), "elapsed", time.Since(start))
	return res, nil
}

func (p *Pipeline) compileMonth(ctx context.Context, dec *fixedwidth.Decoder, engine *recode.Engine, path string, year, month int) ([]domain.Observation, MonthResult, error) {
	mr := MonthResult{Month: month, Path: path}
	f, err := os.Open(path) // #nosec G304 -- operator-provided data directory
	if err != nil {
		return nil, mr, err
	}
	defer func() { _ = f.Close() }()
	var out []domain.Observation
	mr.Decode, err = dec.Decode(ctx, f, func(rec fixedwidth.Record) error {
		mr.Recode.Seen++
		obs, ok := engine.Apply(rec, year, month)
		if !ok {
			mr.Recode.Filtered++
			return nil
		}
		mr.Recode.Kept++
		out = append(out, obs)
		return nil
	})
	if err != nil {
		return nil, mr, err
	}
	p.logger.Debug("month decoded", "year", year, "month", month,
		"decoded", mr.Decode.Decoded, "dropped", mr.Decode.Dropped, "kept", mr.Recode.Kept)
	return out, mr, nil
}

func (p *Pipeline) loadSupplement(ctx context.Context, layoutPath, dataPath string) (*recode.Supplement, error) {
	lay, err := layout.ParseFile(layoutPath, layout.Except(recode.ExtractExcluded...))
	if err != nil {
		return nil, err
	}
	f, err := os.Open(dataPath) // #nosec G304 -- operator-provided data directory
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	recs, stats, err := fixedwidth.NewDecoder(lay, fixedwidth.WithLogger(p.logger)).DecodeAll(ctx, f)
	if err != nil {
		return nil, err
	}
	sup := recode.NewSupplement(recs)
	p.logger.Info("supplement loaded", "path", dataPath, "fields", lay.Len(),
		"decoded", stats.Decoded, "dropped", stats.Dropped, "keys", sup.Len(), "duplicates", sup.Duplicates())
	return sup, nil
}
