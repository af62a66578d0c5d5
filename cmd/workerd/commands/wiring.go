package commands

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corvid-labs/blueprint-engine/blueprint"
	"github.com/corvid-labs/blueprint-engine/eventbus"
	busmemory "github.com/corvid-labs/blueprint-engine/eventbus/memory"
	buspostgres "github.com/corvid-labs/blueprint-engine/eventbus/postgres"
	"github.com/corvid-labs/blueprint-engine/internal/config"
	"github.com/corvid-labs/blueprint-engine/store"
	"github.com/corvid-labs/blueprint-engine/store/memorystore"
	"github.com/corvid-labs/blueprint-engine/store/postgrespool"
)

// deps is the set of backend handles a command needs, built according to
// the configured engine for each component.
type deps struct {
	bus   eventbus.Bus
	store store.Store
}

func buildDeps(ctx context.Context, cfg config.Config, namespace *blueprint.Namespace) (*deps, error) {
	bus, err := buildBus(ctx, cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("build event bus: %w", err)
	}

	st, err := buildStore(ctx, cfg.Store, namespace)
	if err != nil {
		return nil, fmt.Errorf("build execution store: %w", err)
	}

	return &deps{bus: bus, store: st}, nil
}

func buildBus(ctx context.Context, cfg config.BusConfig) (eventbus.Bus, error) {
	switch cfg.Engine {
	case "", "memory":
		return busmemory.New(), nil
	case "postgres":
		pool, err := connectPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return buspostgres.New(pool), nil
	default:
		return nil, fmt.Errorf("unknown bus engine %q", cfg.Engine)
	}
}

func buildStore(ctx context.Context, cfg config.StoreConfig, namespace *blueprint.Namespace) (store.Store, error) {
	switch cfg.Engine {
	case "", "memory":
		return memorystore.New(), nil
	case "postgres":
		pool, err := connectPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		sqsClient, err := buildSQSClient(ctx, cfg.SQS)
		if err != nil {
			return nil, err
		}
		return postgrespool.New(ctx, pool, sqsClient, cfg.SQS.QueueName(), namespace)
	default:
		return nil, fmt.Errorf("unknown store engine %q", cfg.Engine)
	}
}

func connectPostgres(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_max_conn_lifetime=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
		cfg.PoolMaxConns, cfg.PoolMaxConnLife,
	)
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return pool, nil
}

func buildSQSClient(ctx context.Context, cfg config.SQSConfig) (*sqs.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
		}
	}), nil
}
