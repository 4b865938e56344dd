// Package sqlite implements a SQLite-backed repository using database/sql.
// SQLite has no bulk-load primitive like Postgres COPY, so each table is
// inserted with a prepared statement inside one transaction; the transaction
// also gives the publish its all-or-nothing semantics.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Renato425636/etl-dados-olist/internal/schema"
	"github.com/Renato425636/etl-dados-olist/internal/table"
	"github.com/Renato425636/etl-dados-olist/pkg/logger"
)

// Config holds SQLite repository configuration.
type Config struct {
	// DSN is passed directly to database/sql, e.g. "olist.db" or
	// "file:olist.db?cache=shared".
	DSN string
}

// Repository is a SQLite-backed star schema sink.
type Repository struct {
	db  *sql.DB
	reg *schema.Registry
	log logger.Logger
}

// NewRepository opens the database and fails fast on an invalid DSN.
func NewRepository(ctx context.Context, cfg Config, reg *schema.Registry, log logger.Logger) (*Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Repository{db: db, reg: reg, log: log.Named("storage.sqlite")}, nil
}

// Close closes the database handle.
func (r *Repository) Close() error { return r.db.Close() }

// Publish recreates and loads every table inside one transaction.
func (r *Repository) Publish(ctx context.Context, tables map[string]*table.Table) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	for name, t := range tables {
		contract, err := r.reg.For(name)
		if err != nil {
			return err
		}
		if err := loadTable(ctx, tx, contract, t); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}

	r.log.Info("star schema published", logger.Int("tables", len(tables)))
	return nil
}

func loadTable(ctx context.Context, tx *sql.Tx, contract schema.Contract, t *table.Table) error {
	name := quoteIdent(contract.Name)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return fmt.Errorf("sqlite: drop %s: %w", contract.Name, err)
	}
	if _, err := tx.ExecContext(ctx, createDDL(contract)); err != nil {
		return fmt.Errorf("sqlite: create %s: %w", contract.Name, err)
	}

	cols := contract.ColumnNames()
	placeholders := make([]string, len(cols))
	quoted := make([]string, len(cols))
	for i, c := range cols {
		placeholders[i] = "?"
		quoted[i] = quoteIdent(c)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		name, strings.Join(quoted, ", "), strings.Join(placeholders, ", "),
	))
	if err != nil {
		return fmt.Errorf("sqlite: prepare %s: %w", contract.Name, err)
	}
	defer stmt.Close()

	args := make([]any, len(cols))
	for i, rec := range t.Rows {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for j, c := range cols {
			args[j] = rec[c]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("sqlite: insert into %s: %w", contract.Name, err)
		}
	}
	return nil
}

// createDDL renders CREATE TABLE from the contract using SQLite affinities.
func createDDL(contract schema.Contract) string {
	cols := make([]string, 0, len(contract.Columns))
	for _, c := range contract.Columns {
		def := quoteIdent(c.Name) + " " + sqliteType(c.Type)
		if !c.Nullable {
			def += " NOT NULL"
		}
		cols = append(cols, def)
	}
	if contract.Key != "" {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", quoteIdent(contract.Key)))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(contract.Name), strings.Join(cols, ", "))
}

func sqliteType(t schema.Type) string {
	switch t {
	case schema.Int:
		return "INTEGER"
	case schema.Float:
		return "REAL"
	default:
		// Timestamps and dates are stored as ISO-8601 text.
		return "TEXT"
	}
}

func quoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
