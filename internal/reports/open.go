package reports

import (
	"context"
	"fmt"

	"github.com/jask/equipviz/internal/config"
)

// Open selects a Sink from configuration.
//
//	reports.driver: fs|s3|memory (default fs)
//	reports.dir:    target directory when driver=fs
//	reports.s3.*:   bucket, region, endpoint, path_style, prefix and optional
//	                static credentials when driver=s3
func Open(ctx context.Context, cfg config.ReportsConfig) (Sink, error) {
	driver := Driver(cfg.Driver)
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.Dir), nil
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		return NewS3(ctx, s3Options(cfg.S3))
	default:
		return nil, fmt.Errorf("unknown reports driver %s", driver)
	}
}

func s3Options(cfg config.S3Config) S3Options {
	return S3Options{
		Bucket:          cfg.Bucket,
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		PathStyle:       cfg.PathStyle,
		Prefix:          cfg.Prefix,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		SessionToken:    cfg.SessionToken,
	}
}
