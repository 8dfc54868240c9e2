package dataset

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/salesboard/internal/config"
	"github.com/Additional-Code/salesboard/internal/messaging"
	orderrepo "github.com/Additional-Code/salesboard/internal/repository/order"
)

// Module provides the configured source and the memoizing loader.
var Module = fx.Provide(NewSource, NewDatasetLoader)

// Publisher announces reloads on the bus and loads the first snapshot when
// the process starts. Only the serving process includes it; workers react
// to the announcements instead.
var Publisher = fx.Invoke(registerReloadPublisher, preload)

// NewSource selects the dataset source from configuration.
func NewSource(cfg config.Config, repo *orderrepo.Repository, logger *zap.Logger) (Source, error) {
	ds := cfg.Dataset
	switch ds.Source {
	case config.SourceFile:
		return NewFileSource(ds.Path, ds.Sheet, logger), nil
	case config.SourceS3:
		client, err := newS3Client(context.Background(), ds.S3)
		if err != nil {
			return nil, err
		}
		return NewS3Source(client, ds.S3.Bucket, ds.S3.Key, ds.Sheet, logger), nil
	case config.SourceDatabase:
		return NewDatabaseSource(repo), nil
	default:
		return nil, fmt.Errorf("unsupported dataset source: %s", ds.Source)
	}
}

// NewDatasetLoader builds the loader used by the analysis service.
func NewDatasetLoader(cfg config.Config, source Source, logger *zap.Logger) *Loader {
	return NewLoader(source, cfg.Dataset.CheckInterval, logger)
}

func registerReloadPublisher(loader *Loader, client messaging.Client, logger *zap.Logger) {
	loader.OnReload(PublishReloads(client, logger))
}

// preload fetches the first snapshot on start. A failure is logged and
// requests answer unavailable until a later load succeeds.
func preload(lc fx.Lifecycle, loader *Loader, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if _, err := loader.Load(ctx); err != nil {
				logger.Warn("initial dataset load failed", zap.Error(err))
			}
			return nil
		},
	})
}

func newS3Client(ctx context.Context, cfg config.S3) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
