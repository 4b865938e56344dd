// Package table implements the in-memory tabular core of the build engine: an
// immutable Table of records plus a lazily evaluated Frame of declarative
// operations (projection, filter, deduplication, join, aggregation). Frames
// describe work; nothing runs until Materialize is called at a synchronization
// point, and no operation ever mutates its input table.
package table

import (
	"fmt"
	"strings"
	"time"

	"github.com/Renato425636/etl-dados-olist/internal/schema"
	"github.com/Renato425636/etl-dados-olist/pkg/records"
)

// Table is a materialized, ordered set of rows with a fixed column list.
// Rows are records keyed by column name; column order is preserved for
// persistence and reporting.
type Table struct {
	Name string
	Cols []string
	Rows []records.Record
}

// New builds a table from rows. The rows slice is taken over by the table;
// callers must not mutate it afterwards.
func New(name string, cols []string, rows []records.Record) *Table {
	return &Table{Name: name, Cols: cols, Rows: rows}
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.Rows) }

// HasCol reports whether the table declares column name.
func (t *Table) HasCol(name string) bool {
	for _, c := range t.Cols {
		if c == name {
			return true
		}
	}
	return false
}

// Column returns every value of the named column in row order.
func (t *Table) Column(name string) []any {
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[name]
	}
	return out
}

// Conform validates the table against a schema contract: the column set must
// match the declaration, every non-nullable column must be non-nil in every
// row, and every non-nil value must have the declared Go type. It renames the
// table to the contract name on success. A violation here is a fatal
// configuration/build error, not a data-quality finding.
func (t *Table) Conform(c schema.Contract) error {
	if len(t.Cols) != len(c.Columns) {
		return fmt.Errorf("table %s: %d columns, contract %s declares %d",
			t.Name, len(t.Cols), c.Name, len(c.Columns))
	}
	for _, col := range c.Columns {
		if !t.HasCol(col.Name) {
			return fmt.Errorf("table %s: missing declared column %q", t.Name, col.Name)
		}
	}
	for i, row := range t.Rows {
		for _, col := range c.Columns {
			v := row[col.Name]
			if v == nil {
				if col.Nullable {
					continue
				}
				return fmt.Errorf("table %s row %d: null in non-nullable column %q", c.Name, i, col.Name)
			}
			if err := checkType(v, col.Type); err != nil {
				return fmt.Errorf("table %s row %d column %q: %w", c.Name, i, col.Name, err)
			}
		}
	}
	t.Name = c.Name
	t.Cols = c.ColumnNames()
	return nil
}

func checkType(v any, typ schema.Type) error {
	switch typ {
	case schema.Text:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("got %T, want string", v)
		}
	case schema.Int:
		if _, ok := v.(int64); !ok {
			return fmt.Errorf("got %T, want int64", v)
		}
	case schema.Float:
		if _, ok := v.(float64); !ok {
			return fmt.Errorf("got %T, want float64", v)
		}
	case schema.Timestamp, schema.Date:
		if _, ok := v.(time.Time); !ok {
			return fmt.Errorf("got %T, want time.Time", v)
		}
	default:
		return fmt.Errorf("unknown declared type %q", typ)
	}
	return nil
}

// KeyOf builds a deterministic composite key from the named fields of r.
// Values are joined with an unlikely separator; nil maps to NUL so that a
// missing value cannot collide with an empty string.
func KeyOf(r records.Record, fields ...string) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		switch v := r[f].(type) {
		case nil:
			b.WriteByte('\x00')
		case string:
			b.WriteString(v)
		case time.Time:
			b.WriteString(v.Format(time.RFC3339))
		default:
			fmt.Fprint(&b, v)
		}
	}
	return b.String()
}
