// Package app wires configuration into loggers, backends and engines for the
// tagfind command and server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/tagfind"
	"github.com/hupe1980/tagfind/backend/badger"
	"github.com/hupe1980/tagfind/backend/breaker"
	"github.com/hupe1980/tagfind/backend/dynamodb"
	"github.com/hupe1980/tagfind/backend/limit"
	"github.com/hupe1980/tagfind/backend/memory"
	"github.com/hupe1980/tagfind/backend/minio"
	"github.com/hupe1980/tagfind/backend/neo4j"
	"github.com/hupe1980/tagfind/backend/s3"
	"github.com/hupe1980/tagfind/config"
	"github.com/hupe1980/tagfind/graph"
	"github.com/hupe1980/tagfind/resource"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// NewLogger builds the logger described by cfg, writing to w.
func NewLogger(cfg config.LogConfig, w io.Writer) (*tagfind.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return tagfind.NewLogger(slog.NewJSONHandler(w, opts)), nil
	}
	return tagfind.NewLogger(slog.NewTextHandler(w, opts)), nil
}

// EngineOptions returns the engine options described by cfg.
func EngineOptions(cfg config.EngineConfig, logger *tagfind.Logger, mc tagfind.MetricsCollector) []tagfind.Option {
	policy := tagfind.Reject
	if cfg.EmptyTags == config.EmptyTagsMatchAll {
		policy = tagfind.MatchAll
	}
	return []tagfind.Option{
		tagfind.WithLogger(logger),
		tagfind.WithMetricsCollector(mc),
		tagfind.WithEmptyTags(policy),
		tagfind.WithConcurrency(cfg.Concurrency),
	}
}

// Backend is an opened backend and the resources it holds.
type Backend struct {
	// Graph is the backend with the configured wrappers applied.
	Graph graph.Backend
	// Driver is the configured driver name.
	Driver string

	closers []func(context.Context) error
}

// Close releases the resources held by the backend.
func (b *Backend) Close(ctx context.Context) error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i](ctx))
	}
	b.closers = nil
	return errors.Join(errs...)
}

// OpenBackend opens the backend selected by cfg.Backend.Driver and applies
// the breaker and limit wrappers when enabled. The breaker sits outside the
// limiter so that calls rejected by an open breaker never wait for a slot.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *tagfind.Logger) (*Backend, error) {
	if logger == nil {
		logger = tagfind.NoopLogger()
	}

	b, err := openDriver(ctx, cfg.Backend, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Limit.Enabled {
		b.Graph = limit.Wrap(b.Graph, resource.Config{
			MaxInFlight:       cfg.Limit.MaxInFlight,
			RequestsPerSecond: cfg.Limit.RequestsPerSecond,
			Burst:             cfg.Limit.Burst,
		})
	}

	if cfg.Breaker.Enabled {
		b.Graph = breaker.Wrap(b.Graph, breaker.Settings{
			Name:         cfg.Backend.Driver,
			MaxRequests:  cfg.Breaker.MaxRequests,
			Interval:     cfg.Breaker.Interval,
			Timeout:      cfg.Breaker.Timeout,
			MinRequests:  cfg.Breaker.MinRequests,
			FailureRatio: cfg.Breaker.FailureRatio,
			Logger:       logger.Logger,
		})
	}

	logger.WithBackend(b.Driver).Info("backend opened",
		"limit", cfg.Limit.Enabled,
		"breaker", cfg.Breaker.Enabled,
	)
	return b, nil
}

func openDriver(ctx context.Context, cfg config.BackendConfig, logger *tagfind.Logger) (*Backend, error) {
	b := &Backend{Driver: cfg.Driver}

	switch cfg.Driver {
	case config.DriverMemory:
		b.Graph = memory.New()

	case config.DriverBadger:
		store, err := badger.Open(badger.Options{
			Dir:      cfg.Badger.Dir,
			InMemory: cfg.Badger.InMemory,
			Prefix:   cfg.Badger.Prefix,
			Logger:   logger.WithBackend(config.DriverBadger).Logger,
		})
		if err != nil {
			return nil, err
		}
		b.Graph = store.Backend()
		b.closers = append(b.closers, func(context.Context) error { return store.Close() })

	case config.DriverS3:
		awsCfg, err := loadAWSConfig(ctx, cfg.S3.Region)
		if err != nil {
			return nil, err
		}
		store := s3.NewStoreFromConfig(awsCfg, cfg.S3.Bucket, cfg.S3.Prefix, func(o *awss3.Options) {
			if cfg.S3.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
			}
			o.UsePathStyle = cfg.S3.UsePathStyle
		})
		b.Graph = store.Backend()

	case config.DriverMinIO:
		client, err := miniogo.New(cfg.MinIO.Endpoint, &miniogo.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
		b.Graph = minio.NewStore(client, cfg.MinIO.Bucket, cfg.MinIO.Prefix).Backend()

	case config.DriverDynamoDB:
		awsCfg, err := loadAWSConfig(ctx, cfg.DynamoDB.Region)
		if err != nil {
			return nil, err
		}
		b.Graph = dynamodb.NewFromConfig(awsCfg, cfg.DynamoDB.Table, func(o *awsdynamodb.Options) {
			if cfg.DynamoDB.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.DynamoDB.Endpoint)
			}
		})

	case config.DriverNeo4j:
		var opts []neo4j.Option
		if cfg.Neo4j.Database != "" {
			opts = append(opts, neo4j.WithDatabase(cfg.Neo4j.Database))
		}
		if cfg.Neo4j.Label != "" {
			opts = append(opts, neo4j.WithLabel(cfg.Neo4j.Label))
		}
		g, err := neo4j.Open(cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, opts...)
		if err != nil {
			return nil, err
		}
		b.Graph = g
		b.closers = append(b.closers, g.Close)

	default:
		return nil, fmt.Errorf("unknown backend driver %q", cfg.Driver)
	}

	return b, nil
}

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}
	return cfg, nil
}
