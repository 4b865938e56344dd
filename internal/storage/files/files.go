// Package files implements a filesystem-backed repository. Each table is
// written as a directory holding schema.json (the column contract) and
// data.csv (the typed rows). The whole run is staged under a temporary
// directory and moved into place with a rename, so readers only ever see a
// complete publish.
package files

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Renato425636/etl-dados-olist/internal/schema"
	"github.com/Renato425636/etl-dados-olist/internal/table"
	"github.com/Renato425636/etl-dados-olist/pkg/logger"
)

// timestampLayout matches the format the raw dataset uses, so published CSVs
// round-trip through the loader's parser.
const timestampLayout = "2006-01-02 15:04:05"

// Repository publishes tables under a root directory.
type Repository struct {
	root string
	reg  *schema.Registry
	log  logger.Logger
}

// NewRepository builds a filesystem repository rooted at root.
func NewRepository(root string, reg *schema.Registry, log logger.Logger) (*Repository, error) {
	if root == "" {
		return nil, fmt.Errorf("files: output path must not be empty")
	}
	return &Repository{root: root, reg: reg, log: log.Named("storage.files")}, nil
}

// Publish stages every table under a temporary sibling of root, then swaps
// the staged tree into place. An existing publish at root is replaced only
// after the new one is completely written.
func (r *Repository) Publish(ctx context.Context, tables map[string]*table.Table) error {
	parent := filepath.Dir(r.root)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("files: create %s: %w", parent, err)
	}
	staging, err := os.MkdirTemp(parent, filepath.Base(r.root)+".staging-*")
	if err != nil {
		return fmt.Errorf("files: staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	for name, t := range tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		contract, err := r.reg.For(name)
		if err != nil {
			return err
		}
		if err := writeTable(filepath.Join(staging, name), contract, t); err != nil {
			return err
		}
	}

	old := r.root + ".old"
	if err := os.RemoveAll(old); err != nil {
		return fmt.Errorf("files: clear %s: %w", old, err)
	}
	if _, err := os.Stat(r.root); err == nil {
		if err := os.Rename(r.root, old); err != nil {
			return fmt.Errorf("files: retire previous publish: %w", err)
		}
	}
	if err := os.Rename(staging, r.root); err != nil {
		return fmt.Errorf("files: publish: %w", err)
	}
	_ = os.RemoveAll(old)

	r.log.Info("star schema published",
		logger.String("root", r.root),
		logger.Int("tables", len(tables)))
	return nil
}

// Close is a no-op; the repository holds no resources between publishes.
func (r *Repository) Close() error { return nil }

func writeTable(dir string, contract schema.Contract, t *table.Table) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("files: create %s: %w", dir, err)
	}
	if err := writeSchema(filepath.Join(dir, "schema.json"), contract); err != nil {
		return err
	}
	return writeData(filepath.Join(dir, "data.csv"), contract, t)
}

// schemaDoc is the serialized form of a contract.
type schemaDoc struct {
	Table   string      `json:"table"`
	Key     string      `json:"key,omitempty"`
	Columns []columnDoc `json:"columns"`
}

type columnDoc struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

func writeSchema(path string, contract schema.Contract) error {
	doc := schemaDoc{Table: contract.Name, Key: contract.Key}
	for _, c := range contract.Columns {
		doc.Columns = append(doc.Columns, columnDoc{
			Name:     c.Name,
			Type:     string(c.Type),
			Nullable: c.Nullable,
		})
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("files: marshal schema for %s: %w", contract.Name, err)
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func writeData(path string, contract schema.Contract, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("files: create %s: %w", path, err)
	}
	w := csv.NewWriter(f)

	cols := contract.ColumnNames()
	if err := w.Write(cols); err != nil {
		f.Close()
		return fmt.Errorf("files: write header: %w", err)
	}
	rec := make([]string, len(cols))
	for _, row := range t.Rows {
		for i, c := range contract.Columns {
			rec[i] = renderValue(c.Type, row[c.Name])
		}
		if err := w.Write(rec); err != nil {
			f.Close()
			return fmt.Errorf("files: write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("files: flush %s: %w", path, err)
	}
	return f.Close()
}

// renderValue formats one cell for CSV output. Nulls render as empty cells,
// the inverse of the loader's empty-cell-to-null rule.
func renderValue(typ schema.Type, v any) string {
	if v == nil {
		return ""
	}
	switch typ {
	case schema.Text:
		return v.(string)
	case schema.Int:
		return strconv.FormatInt(v.(int64), 10)
	case schema.Float:
		return strconv.FormatFloat(v.(float64), 'f', -1, 64)
	case schema.Timestamp:
		return v.(time.Time).Format(timestampLayout)
	case schema.Date:
		return v.(time.Time).Format("2006-01-02")
	default:
		return fmt.Sprint(v)
	}
}
