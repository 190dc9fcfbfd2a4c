// Command cpstables compiles CPS basic monthly microdata into a persisted
// artifact and publishes aggregate tables from it.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"cpstables/internal/blob"
	"cpstables/internal/config"
	"cpstables/internal/metrics"
	"cpstables/internal/microdata"
	"cpstables/internal/pipeline"
	"cpstables/internal/platform/logger"
	"cpstables/internal/publication"
)

var exitFunc = os.Exit

const (
	exitOK    = 0
	exitError = 1
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(stderr, "error:", err)
		return exitError
	}
	return exitOK
}

// globalOptions are flags shared by every subcommand. They override the
// configuration file and environment when set.
type globalOptions struct {
	configPath  string
	storage     string
	sqlitePath  string
	postgresDSN string
	blobDriver  string
	blobRoot    string
	workers     int
	logLevel    string
	logFormat   string
	metricsFile string
}

// app carries the resolved runtime of one invocation.
type app struct {
	opts     globalOptions
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	stdout   io.Writer
	stderr   io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	cmd := &cobra.Command{
		Use:           "cpstables",
		Short:         "Compile CPS microdata and publish certification tables",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.flushMetrics()
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.PersistentFlags()
	f.StringVar(&a.opts.configPath, "config", "", "YAML configuration file")
	f.StringVar(&a.opts.storage, "storage", "", "Microdata store: memory, sqlite or postgres")
	f.StringVar(&a.opts.sqlitePath, "sqlite-path", "", "SQLite database file")
	f.StringVar(&a.opts.postgresDSN, "postgres-dsn", "", "Postgres connection string")
	f.StringVar(&a.opts.blobDriver, "blob", "", "Publication store: fs, s3 or memory")
	f.StringVar(&a.opts.blobRoot, "blob-root", "", "Root directory of the fs publication store")
	f.IntVar(&a.opts.workers, "workers", 0, "Parallel month decodes and plan evaluations")
	f.StringVar(&a.opts.logLevel, "log-level", "", "debug, info, warn or error")
	f.StringVar(&a.opts.logFormat, "log-format", "", "text or json")
	f.StringVar(&a.opts.metricsFile, "metrics-file", "", "Write a prometheus textfile here after the run")

	cmd.AddCommand(newCompileCmd(a), newPublishCmd(a), newRunsCmd(a), newFieldsCmd(a))
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.opts.configPath)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("storage") {
		cfg.Storage.Driver = microdata.Driver(a.opts.storage)
	}
	if f.Changed("sqlite-path") {
		cfg.Storage.SQLitePath = a.opts.sqlitePath
	}
	if f.Changed("postgres-dsn") {
		cfg.Storage.PostgresDSN = a.opts.postgresDSN
	}
	if f.Changed("blob") {
		cfg.Blob.Driver = blob.Driver(a.opts.blobDriver)
	}
	if f.Changed("blob-root") {
		cfg.Blob.FSRoot = a.opts.blobRoot
	}
	if f.Changed("workers") {
		cfg.Workers = a.opts.workers
	}
	if f.Changed("log-level") {
		cfg.Log.Level = a.opts.logLevel
	}
	if f.Changed("log-format") {
		cfg.Log.Format = a.opts.logFormat
	}
	if f.Changed("metrics-file") {
		cfg.MetricsFile = a.opts.metricsFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.NewWriter(a.stderr, cfg.Log.Level, cfg.Log.Format)
	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.New(a.registry)
	return nil
}

func (a *app) flushMetrics() error {
	if a.cfg.MetricsFile == "" || a.registry == nil {
		return nil
	}
	if err := metrics.WriteTextfile(a.cfg.MetricsFile, a.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	a.logger.Debug("metrics written", "path", a.cfg.MetricsFile)
	return nil
}

func (a *app) openStore(ctx context.Context) (microdata.Store, error) {
	store, err := microdata.Open(ctx, a.cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open microdata store: %w", err)
	}
	return store, nil
}

func (a *app) openPublisher(ctx context.Context) (*publication.Publisher, error) {
	store, err := blob.Open(ctx, a.cfg.Blob)
	if err != nil {
		return nil, fmt.Errorf("open publication store: %w", err)
	}
	return publication.New(store, publication.WithLogger(a.logger)), nil
}

func (a *app) pipeline(store microdata.Store, opts ...pipeline.Option) *pipeline.Pipeline {
	base := []pipeline.Option{
		pipeline.WithLogger(a.logger),
		pipeline.WithMetrics(a.metrics),
		pipeline.WithWorkers(a.cfg.Workers),
	}
	return pipeline.New(store, append(base, opts...)...)
}
