// Package config assembles runtime settings from defaults, an optional YAML
// file and CPSTABLES_* environment variables, in that order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"cpstables/internal/blob"
	"cpstables/internal/disclosure"
	"cpstables/internal/microdata"
)

const envPrefix = "CPSTABLES_"

// Config is the full runtime configuration.
type Config struct {
	Storage   microdata.Config `yaml:"storage"`
	Blob      blob.Config      `yaml:"blob"`
	Suppress  bool             `yaml:"suppress"`
	Threshold int64            `yaml:"threshold"`
	Workers   int              `yaml:"workers"`
	Log       Log              `yaml:"log"`
	// MetricsFile, when set, receives a prometheus textfile after each run.
	MetricsFile string `yaml:"metrics_file"`
}

// Log selects the logger level and format.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Storage:   microdata.Config{Driver: microdata.DriverSQLite, SQLitePath: "cpstables.db"},
		Blob:      blob.Config{Driver: blob.DriverFilesystem, FSRoot: "tables"},
		Suppress:  true,
		Threshold: disclosure.DefaultThreshold,
		Workers:   runtime.GOMAXPROCS(0),
		Log:       Log{Level: "info", Format: "text"},
	}
}

// Decode overlays a YAML document onto cfg. Keys absent from the document
// keep their current values.
func Decode(r io.Reader, cfg Config) (Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Load reads defaults, then path when non-empty, then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if cfg, err = Decode(bytes.NewReader(b), cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg, err := FromEnv(cfg, os.LookupEnv)
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// FromEnv overlays CPSTABLES_* variables onto cfg.
//
//	CPSTABLES_STORAGE_DRIVER: memory|sqlite|postgres
//	CPSTABLES_SQLITE_PATH, CPSTABLES_POSTGRES_DSN
//	CPSTABLES_BLOB_DRIVER: fs|s3|memory
//	CPSTABLES_BLOB_FS_ROOT, CPSTABLES_BLOB_S3_{BUCKET,REGION,ENDPOINT,PREFIX,PATH_STYLE}
//	CPSTABLES_SUPPRESS, CPSTABLES_SUPPRESS_THRESHOLD, CPSTABLES_WORKERS
//	CPSTABLES_LOG_LEVEL, CPSTABLES_LOG_FORMAT, CPSTABLES_METRICS_FILE
func FromEnv(cfg Config, lookup func(string) (string, bool)) (Config, error) {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	integer := func(name string, dst *int64) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}

	var storageDriver, blobDriver string
	str("STORAGE_DRIVER", &storageDriver)
	if storageDriver != "" {
		cfg.Storage.Driver = microdata.Driver(storageDriver)
	}
	str("SQLITE_PATH", &cfg.Storage.SQLitePath)
	str("POSTGRES_DSN", &cfg.Storage.PostgresDSN)

	str("BLOB_DRIVER", &blobDriver)
	if blobDriver != "" {
		cfg.Blob.Driver = blob.Driver(blobDriver)
	}
	str("BLOB_FS_ROOT", &cfg.Blob.FSRoot)
	str("BLOB_S3_BUCKET", &cfg.Blob.S3.Bucket)
	str("BLOB_S3_REGION", &cfg.Blob.S3.Region)
	str("BLOB_S3_ENDPOINT", &cfg.Blob.S3.Endpoint)
	str("BLOB_S3_PREFIX", &cfg.Blob.S3.Prefix)
	boolean("BLOB_S3_PATH_STYLE", &cfg.Blob.S3.PathStyle)

	boolean("SUPPRESS", &cfg.Suppress)
	integer("SUPPRESS_THRESHOLD", &cfg.Threshold)
	workers := int64(cfg.Workers)
	integer("WORKERS", &workers)
	cfg.Workers = int(workers)

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("METRICS_FILE", &cfg.MetricsFile)
	return cfg, errors.Join(errs...)
}

// Validate rejects unknown drivers and out-of-range numbers.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case microdata.DriverMemory, microdata.DriverSQLite, microdata.DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	switch c.Blob.Driver {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, fmt.Errorf("s3 blob driver requires a bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob driver %q", c.Blob.Driver))
	}
	if c.Threshold < 0 {
		errs = append(errs, fmt.Errorf("threshold must be non-negative, got %d", c.Threshold))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	return errors.Join(errs...)
}
