package publication

import (
	"context"
	"errors"
	"testing"
	"time"

	"cpstables/internal/blob"
	"cpstables/pkg/domain"
)

func sampleRows() []domain.AggregateRow {
	r := domain.AggregateRow{Categories: map[string]string{
		domain.ColState:          "CA",
		domain.ColBasePopulation: domain.BasePopulation16,
	}}
	r.Population[domain.SplitTotal] = domain.Some(2500.5)
	r.PopulationObserved[domain.SplitTotal] = domain.Some(int64(44))
	r.Smoothed[domain.SmoothedCert1Yes] = domain.Some(0.25)
	return []domain.AggregateRow{r}
}

func TestPublishFetchLatest(t *testing.T) {
	ctx := context.Background()
	for name, store := range map[string]blob.Store{"memory": blob.NewMemory(), "s3mock": blob.NewS3Mock()} {
		t.Run(name, func(t *testing.T) {
			p := New(store)
			base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
			first, err := p.Publish(ctx, Run{Table: "earnings", Threshold: 30, Suppressed: 2, Smoothed: true, CreatedAt: base}, sampleRows())
			if err != nil {
				t.Fatalf("publish: %v", err)
			}
			if first.ID == "" || first.Rows != 1 {
				t.Fatalf("run = %+v", first)
			}
			second, err := p.Publish(ctx, Run{Table: "earnings", Smoothed: true, CreatedAt: base.Add(time.Hour)}, sampleRows())
			if err != nil {
				t.Fatalf("publish second: %v", err)
			}

			latest, err := p.Latest(ctx, "earnings")
			if err != nil {
				t.Fatalf("latest: %v", err)
			}
			if latest.ID != second.ID {
				t.Fatalf("latest = %s, want %s", latest.ID, second.ID)
			}

			run, rows, err := p.Fetch(ctx, "earnings", first.ID)
			if err != nil {
				t.Fatalf("fetch: %v", err)
			}
			if run.Threshold != 30 || run.Suppressed != 2 || !run.Smoothed || !run.CreatedAt.Equal(base) {
				t.Fatalf("fetched run = %+v", run)
			}
			if len(rows) != 1 || rows[0].Population[domain.SplitTotal] != domain.Some(2500.5) || rows[0].Smoothed[domain.SmoothedCert1Yes] != domain.Some(0.25) {
				t.Fatalf("rows = %+v", rows)
			}

			runs, err := p.Runs(ctx, "earnings")
			if err != nil || len(runs) != 2 {
				t.Fatalf("runs = %+v, %v", runs, err)
			}
		})
	}
}

func TestPublishIsImmutable(t *testing.T) {
	ctx := context.Background()
	p := New(blob.NewMemory())
	run := Run{ID: "fixed", Table: "t"}
	if _, err := p.Publish(ctx, run, sampleRows()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := p.Publish(ctx, run, sampleRows()); !errors.Is(err, blob.ErrExists) {
		t.Fatalf("republish err = %v, want ErrExists", err)
	}
}

func TestLatestWithoutRuns(t *testing.T) {
	p := New(blob.NewMemory())
	if _, err := p.Latest(context.Background(), "missing"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := p.Publish(context.Background(), Run{Table: "a/b"}, nil); err == nil {
		t.Fatal("expected error for nested table name")
	}
}

func TestRunIDsSortChronologically(t *testing.T) {
	a := NewRunID()
	time.Sleep(2 * time.Millisecond)
	b := NewRunID()
	if !(a < b) {
		t.Fatalf("run ids not ordered: %s >= %s", a, b)
	}
}
