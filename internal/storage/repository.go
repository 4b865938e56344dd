// Package storage contains the storage-agnostic contract for publishing the
// star schema, plus the backend factory. Backends (files, Postgres, SQLite)
// implement their most efficient primitive behind the same interface; the
// orchestrator never knows which one it is talking to.
package storage

import (
	"context"
	"fmt"

	"github.com/Renato425636/etl-dados-olist/internal/config"
	"github.com/Renato425636/etl-dados-olist/internal/schema"
	"github.com/Renato425636/etl-dados-olist/internal/storage/files"
	"github.com/Renato425636/etl-dados-olist/internal/storage/postgres"
	"github.com/Renato425636/etl-dados-olist/internal/storage/sqlite"
	"github.com/Renato425636/etl-dados-olist/internal/table"
	"github.com/Renato425636/etl-dados-olist/pkg/logger"
)

// Repository persists a materialized star schema.
//
// Publish writes every table of the run as one logical unit: on success all
// tables are visible in their final location, on failure none replace a
// previous run's output. Each backend realizes that contract with its own
// primitive (directory rename, staging-table swap, transaction).
type Repository interface {
	Publish(ctx context.Context, tables map[string]*table.Table) error
	Close() error
}

// Open builds the Repository selected by cfg.Kind.
func Open(ctx context.Context, cfg config.Storage, outputPath string, reg *schema.Registry, log logger.Logger) (Repository, error) {
	switch cfg.Kind {
	case "files":
		return files.NewRepository(outputPath, reg, log)
	case "postgres":
		return postgres.NewRepository(ctx, postgres.Config{
			DSN:        cfg.DB.DSN,
			SchemaName: cfg.DB.SchemaName,
		}, reg, log)
	case "sqlite":
		return sqlite.NewRepository(ctx, sqlite.Config{DSN: cfg.DB.DSN}, reg, log)
	default:
		return nil, fmt.Errorf("unknown storage kind %q", cfg.Kind)
	}
}
