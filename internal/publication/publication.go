// Package publication writes published tables to the artifact store, one
// immutable CSV per run, and resolves the latest run of a table.
package publication

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"cpstables/internal/blob"
	"cpstables/internal/platform/logger"
	"cpstables/internal/table"
	"cpstables/pkg/domain"
)

const rootPrefix = "tables"

// Metadata keys attached to every artifact.
const (
	MetaRunID      = "run_id"
	MetaTable      = "table"
	MetaRows       = "rows"
	MetaSuppressed = "suppressed"
	MetaThreshold  = "threshold"
	MetaSmoothed   = "smoothed"
	MetaCreatedAt  = "created_at"
)

// Run describes one publication of a table.
type Run struct {
	ID         string
	Table      string
	Rows       int
	Suppressed int
	// Threshold is zero when suppression was disabled.
	Threshold int64
	Smoothed  bool
	CreatedAt time.Time
}

// NewRunID returns a time-ordered run identifier, so artifact keys sort in
// publication order.
func NewRunID() string { return uuid.Must(uuid.NewV7()).String() }

// Key returns the artifact key of a run.
func Key(tableName, runID string) string {
	return path.Join(rootPrefix, tableName, runID+".csv")
}

func (r Run) metadata() map[string]string {
	return map[string]string{
		MetaRunID:      r.ID,
		MetaTable:      r.Table,
		MetaRows:       strconv.Itoa(r.Rows),
		MetaSuppressed: strconv.Itoa(r.Suppressed),
		MetaThreshold:  strconv.FormatInt(r.Threshold, 10),
		MetaSmoothed:   strconv.FormatBool(r.Smoothed),
		MetaCreatedAt:  r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func runFromInfo(info blob.Info) (Run, error) {
	md := info.Metadata
	r := Run{ID: md[MetaRunID], Table: md[MetaTable]}
	var err error
	if r.Rows, err = strconv.Atoi(md[MetaRows]); err != nil {
		return Run{}, fmt.Errorf("%s: rows metadata: %w", info.Key, err)
	}
	if r.Suppressed, err = strconv.Atoi(md[MetaSuppressed]); err != nil {
		return Run{}, fmt.Errorf("%s: suppressed metadata: %w", info.Key, err)
	}
	if r.Threshold, err = strconv.ParseInt(md[MetaThreshold], 10, 64); err != nil {
		return Run{}, fmt.Errorf("%s: threshold metadata: %w", info.Key, err)
	}
	r.Smoothed, _ = strconv.ParseBool(md[MetaSmoothed])
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, md[MetaCreatedAt]); err != nil {
		r.CreatedAt = info.LastModified
	}
	return r, nil
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger; the default discards.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// Publisher stores table runs in a blob.Store.
type Publisher struct {
	store  blob.Store
	logger *slog.Logger
	now    func() time.Time
}

// New returns a Publisher over store.
func New(store blob.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: logger.Discard(), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish encodes rows as CSV and stores them under the run's key. Missing
// run ID and creation time are filled in; the completed Run is returned.
func (p *Publisher) Publish(ctx context.Context, run Run, rows []domain.AggregateRow) (Run, error) {
	if run.Table == "" || strings.Contains(run.Table, "/") {
		return Run{}, fmt.Errorf("invalid table name %q", run.Table)
	}
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = p.now().UTC()
	}
	run.Rows = len(rows)
	var buf bytes.Buffer
	if err := table.WriteCSV(&buf, rows, run.Smoothed); err != nil {
		return Run{}, fmt.Errorf("encode %s: %w", run.Table, err)
	}
	key := Key(run.Table, run.ID)
	info, err := p.store.Put(ctx, key, bytes.NewReader(buf.Bytes()), blob.PutOptions{
		ContentType: table.ContentType,
		Metadata:    run.metadata(),
	})
	if err != nil {
		return Run{}, fmt.Errorf("publish %s: %w", key, err)
	}
	p.logger.Info("table published", "table", run.Table, "run_id", run.ID, "rows", run.Rows,
		"bytes", info.Size, "driver", p.store.Driver())
	return run, nil
}

// Runs lists the runs of a table, oldest first.
func (p *Publisher) Runs(ctx context.Context, tableName string) ([]Run, error) {
	infos, err := p.store.List(ctx, path.Join(rootPrefix, tableName)+"/")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", tableName, err)
	}
	runs := make([]Run, 0, len(infos))
	for _, info := range infos {
		if !strings.HasSuffix(info.Key, ".csv") {
			continue
		}
		// listings from some backends omit metadata
		if info.Metadata == nil {
			key := info.Key
			if info, err = p.store.Head(ctx, key); err != nil {
				return nil, fmt.Errorf("head %s: %w", key, err)
			}
		}
		r, err := runFromInfo(info)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.Before(runs[j].CreatedAt) })
	return runs, nil
}

// Latest returns the most recent run of a table, or blob.ErrNotFound.
func (p *Publisher) Latest(ctx context.Context, tableName string) (Run, error) {
	runs, err := p.Runs(ctx, tableName)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, fmt.Errorf("%w: no runs of table %s", blob.ErrNotFound, tableName)
	}
	latest := runs[0]
	for _, r := range runs[1:] {
		if !r.CreatedAt.Before(latest.CreatedAt) {
			latest = r
		}
	}
	return latest, nil
}

// Fetch reads a run's rows back from the store.
func (p *Publisher) Fetch(ctx context.Context, tableName, runID string) (Run, []domain.AggregateRow, error) {
	key := Key(tableName, runID)
	info, rc, err := p.store.Get(ctx, key)
	if err != nil {
		return Run{}, nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	run, err := runFromInfo(info)
	if err != nil {
		return Run{}, nil, err
	}
	rows, _, err := table.ReadCSV(rc)
	if err != nil {
		return Run{}, nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	return run, rows, nil
}
