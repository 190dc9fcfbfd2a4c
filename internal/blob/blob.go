// Package blob is the artifact store facade. It re-exports the core contract
// and builds a backend from configuration; only this package imports the
// infra implementations.
package blob

import (
	"context"
	"fmt"

	"cpstables/internal/blob/core"
	fsblob "cpstables/internal/infra/blob/fs"
	memblob "cpstables/internal/infra/blob/memory"
	s3blob "cpstables/internal/infra/blob/s3"
)

type (
	Store      = core.Store
	Info       = core.Info
	PutOptions = core.PutOptions
	Driver     = core.Driver
	S3Config   = s3blob.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrNotFound   = core.ErrNotFound
	ErrExists     = core.ErrExists
	ErrInvalidKey = core.ErrInvalidKey
)

// Config selects and configures a backend.
type Config struct {
	Driver Driver   `yaml:"driver"`
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

// Open constructs the configured store. An empty driver selects the
// filesystem.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return fsblob.New(cfg.FSRoot)
	case DriverMemory:
		return memblob.New(), nil
	case DriverS3:
		return s3blob.New(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

// NewMemory returns an in-process store.
func NewMemory() Store { return memblob.New() }

// NewS3Mock returns an S3 store over an in-memory transport.
func NewS3Mock() Store { return s3blob.NewMockForTests() }
