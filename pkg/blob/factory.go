package blob

import (
	"context"
	"fmt"

	"github.com/opst/yeastregulatorydb/pkg/blob/fs"
	"github.com/opst/yeastregulatorydb/pkg/blob/memory"
	"github.com/opst/yeastregulatorydb/pkg/blob/s3"
)

type Config struct {
	Driver Driver
	FSRoot string
	S3     s3.Config
}

// Open creates a Store of the driver of cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverS3:
		return s3.New(ctx, cfg.S3)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
}
