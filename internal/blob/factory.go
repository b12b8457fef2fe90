package blob

import (
	"context"
	"fmt"

	"genealogycore/internal/infra/blob/fs"
	"genealogycore/internal/infra/blob/memory"
	"genealogycore/internal/infra/blob/s3"
)

// Config selects and configures a blob backend. Field tags bind the
// GENEALOGY_BLOB_* environment variables when embedded in the service config.
type Config struct {
	Driver string   `env:"DRIVER" envDefault:"fs"`
	FSRoot string   `env:"FS_ROOT" envDefault:"./media"`
	S3     S3Config `envPrefix:"S3_"`
}

// S3Config configures the s3 driver.
type S3Config struct {
	Bucket          string `env:"BUCKET"`
	Region          string `env:"REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"ENDPOINT"`
	PathStyle       bool   `env:"PATH_STYLE"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
}

// Open returns the backend named by cfg.Driver. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch Driver(cfg.Driver) {
	case DriverFilesystem, "":
		return fs.New(cfg.FSRoot)
	case DriverMemory:
		return memory.New(), nil
	case DriverS3:
		return s3.New(ctx, s3.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			PathStyle:       cfg.S3.PathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
