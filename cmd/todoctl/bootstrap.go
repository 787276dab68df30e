package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/caarlos0/env/v10"
	"github.com/spf13/cobra"

	"github.com/todoapp/todo-backend/internal/awsclient"
	"github.com/todoapp/todo-backend/internal/config"
	"github.com/todoapp/todo-backend/internal/repository"
)

var errNothingToBootstrap = errors.New("the memory backend has no schema to create")

// bootstrapConfig is the subset of the API configuration that names the store.
type bootstrapConfig struct {
	StoreBackend string `env:"STORE_BACKEND" envDefault:"dynamodb"`
	TodosTable   string `env:"TODOS_TABLE"`
	TodoIDIndex  string `env:"TODO_ID_INDEX"`
	DatabaseURL  string `env:"DATABASE_URL"`
	AWSRegion    string `env:"AWS_REGION" envDefault:"us-east-1"`
	EndpointURL  string `env:"AWS_ENDPOINT_URL"`
}

func (c *bootstrapConfig) validate() error {
	if c.TodosTable == "" {
		return errors.New("table name is required (--table or TODOS_TABLE)")
	}
	switch c.StoreBackend {
	case config.BackendDynamoDB:
		if c.TodoIDIndex == "" {
			return config.ErrMissingIndexName
		}
	case config.BackendPostgres:
		if c.DatabaseURL == "" {
			return config.ErrMissingDatabaseURL
		}
	case config.BackendMemory:
		return errNothingToBootstrap
	default:
		return fmt.Errorf("%w: %q", config.ErrUnknownBackend, c.StoreBackend)
	}
	return nil
}

func newBootstrapCmd() *cobra.Command {
	cfg := &bootstrapConfig{}

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the todos table if it does not exist",
		Long: `Create the todos table for the configured backend.

dynamodb: hash key userId, range key todoId, and a global secondary
index on todoId. The command waits until the table is ACTIVE.

postgres: a table keyed by (user_id, todo_id) with a unique index on todo_id.

Existing tables are left untouched.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBootstrap(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	// Environment first, flags on top.
	_ = env.Parse(cfg)

	flags := cmd.Flags()
	flags.StringVar(&cfg.StoreBackend, "backend", cfg.StoreBackend, "store backend (dynamodb|postgres)")
	flags.StringVar(&cfg.TodosTable, "table", cfg.TodosTable, "todos table name")
	flags.StringVar(&cfg.TodoIDIndex, "index", cfg.TodoIDIndex, "name of the todoId secondary index (dynamodb)")
	flags.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "PostgreSQL connection URL (postgres)")
	flags.StringVar(&cfg.AWSRegion, "region", cfg.AWSRegion, "AWS region (dynamodb)")
	flags.StringVar(&cfg.EndpointURL, "endpoint", cfg.EndpointURL, "custom AWS endpoint, e.g. a local DynamoDB")

	return cmd
}

func runBootstrap(ctx context.Context, cfg *bootstrapConfig, out io.Writer) error {
	switch cfg.StoreBackend {
	case config.BackendDynamoDB:
		opts := awsclient.Options{Region: cfg.AWSRegion, Endpoint: cfg.EndpointURL}
		awsCfg, err := awsclient.LoadConfig(ctx, opts)
		if err != nil {
			return err
		}
		return bootstrapDynamo(ctx, awsclient.NewDynamoDB(awsCfg, opts), cfg, out)

	case config.BackendPostgres:
		pool, err := repository.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := repository.EnsurePostgresSchema(ctx, pool, cfg.TodosTable); err != nil {
			return err
		}
		fmt.Fprintf(out, "postgres table %s is ready\n", cfg.TodosTable)
		return nil
	}

	return cfg.validate()
}

func bootstrapDynamo(ctx context.Context, client repository.DynamoDBAdminAPI, cfg *bootstrapConfig, out io.Writer) error {
	created, err := repository.EnsureDynamoTable(ctx, client, cfg.TodosTable, cfg.TodoIDIndex)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(out, "created dynamodb table %s with index %s\n", cfg.TodosTable, cfg.TodoIDIndex)
	} else {
		fmt.Fprintf(out, "dynamodb table %s already exists\n", cfg.TodosTable)
	}
	return nil
}
