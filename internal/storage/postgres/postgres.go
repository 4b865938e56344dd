// Package postgres implements a Postgres repository using pgx v5. Each table
// is bulk-loaded with COPY into a freshly created staging table; once every
// table of the run has landed, one transaction swaps the staging tables into
// their final names, so concurrent readers move between complete runs only.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Renato425636/etl-dados-olist/internal/schema"
	"github.com/Renato425636/etl-dados-olist/internal/table"
	"github.com/Renato425636/etl-dados-olist/pkg/logger"
)

// Config holds Postgres repository configuration.
type Config struct {
	// DSN is the connection string for pgxpool.
	DSN string

	// SchemaName optionally namespaces the destination tables. Empty means
	// the connection's default schema.
	SchemaName string
}

// Repository is a Postgres-backed star schema sink.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
	reg  *schema.Registry
	log  logger.Logger
}

// NewRepository connects the pool and verifies the DSN with a ping.
func NewRepository(ctx context.Context, cfg Config, reg *schema.Registry, log logger.Logger) (*Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repository{pool: pool, cfg: cfg, reg: reg, log: log.Named("storage.postgres")}, nil
}

// Close releases the connection pool.
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// Publish loads every table into a staging table, then swaps all staging
// tables into their final names in one transaction.
func (r *Repository) Publish(ctx context.Context, tables map[string]*table.Table) error {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}

	for _, name := range names {
		contract, err := r.reg.For(name)
		if err != nil {
			return err
		}
		if err := r.stage(ctx, contract, tables[name]); err != nil {
			return err
		}
	}
	if err := r.swap(ctx, names); err != nil {
		return err
	}

	r.log.Info("star schema published",
		logger.String("schema", r.cfg.SchemaName),
		logger.Int("tables", len(tables)))
	return nil
}

// stage recreates the staging table from the contract and COPYs the rows in.
func (r *Repository) stage(ctx context.Context, contract schema.Contract, t *table.Table) error {
	staging := stagingName(contract.Name)

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("postgres: acquire: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "DROP TABLE IF EXISTS "+r.fqn(staging)); err != nil {
		return fmt.Errorf("postgres: drop staging %s: %w", staging, err)
	}
	if _, err := conn.Exec(ctx, createDDL(r.fqn(staging), contract)); err != nil {
		return fmt.Errorf("postgres: create staging %s: %w", staging, err)
	}

	cols := contract.ColumnNames()
	rows := make([][]any, len(t.Rows))
	for i, rec := range t.Rows {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = rec[c]
		}
		rows[i] = row
	}

	n, err := conn.CopyFrom(ctx, r.ident(staging), cols, pgx.CopyFromRows(rows))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return fmt.Errorf("postgres: copy into %s: %s (%s)", staging, pgErr.Detail, pgErr.SQLState())
		}
		return fmt.Errorf("postgres: copy into %s: %w", staging, err)
	}
	r.log.Debug("table staged",
		logger.String("table", contract.Name),
		logger.Int64("rows", n))
	return nil
}

// swap renames every staging table over its final name in one transaction.
func (r *Repository) swap(ctx context.Context, names []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin swap: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, name := range names {
		staging := stagingName(name)
		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+r.fqn(name)); err != nil {
			return fmt.Errorf("postgres: drop %s: %w", name, err)
		}
		rename := fmt.Sprintf("ALTER TABLE %s RENAME TO %s", r.fqn(staging), pgIdent(name))
		if _, err := tx.Exec(ctx, rename); err != nil {
			return fmt.Errorf("postgres: rename %s: %w", staging, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit swap: %w", err)
	}
	return nil
}

func stagingName(name string) string { return name + "__staging" }

// fqn renders a table reference, schema-qualified when configured.
func (r *Repository) fqn(name string) string {
	if r.cfg.SchemaName == "" {
		return pgIdent(name)
	}
	return pgIdent(r.cfg.SchemaName) + "." + pgIdent(name)
}

// ident builds the pgx.Identifier for CopyFrom.
func (r *Repository) ident(name string) pgx.Identifier {
	if r.cfg.SchemaName == "" {
		return pgx.Identifier{name}
	}
	return pgx.Identifier{r.cfg.SchemaName, name}
}

// createDDL renders CREATE TABLE from the contract.
func createDDL(fqn string, contract schema.Contract) string {
	cols := make([]string, 0, len(contract.Columns))
	for _, c := range contract.Columns {
		def := pgIdent(c.Name) + " " + pgType(c.Type)
		if !c.Nullable {
			def += " NOT NULL"
		}
		cols = append(cols, def)
	}
	if contract.Key != "" {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", pgIdent(contract.Key)))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", fqn, strings.Join(cols, ", "))
}

func pgType(t schema.Type) string {
	switch t {
	case schema.Int:
		return "BIGINT"
	case schema.Float:
		return "DOUBLE PRECISION"
	case schema.Timestamp:
		return "TIMESTAMP"
	case schema.Date:
		return "DATE"
	default:
		return "TEXT"
	}
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
