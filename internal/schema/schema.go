// Package schema declares the enforced column contracts for every raw input
// table and every dimensional output table. The registry is the single source
// of truth for column names, declared types, and nullability; extraction and
// all builders validate against it before any transformation runs.
package schema

import "fmt"

// Type enumerates the declared column types. No implicit coercion exists
// anywhere in the pipeline: a cell that cannot be parsed to its declared type
// is a fatal load error, not a data-quality warning.
type Type string

const (
	Text      Type = "text"
	Int       Type = "int"
	Float     Type = "float"
	Timestamp Type = "timestamp"
	Date      Type = "date"
)

// Column is a single declared column.
type Column struct {
	Name     string
	Type     Type
	Nullable bool
}

// Contract describes one table: its ordered columns and, for dimensional
// outputs, the surrogate key column that carries the uniqueness invariant.
type Contract struct {
	Name    string
	Columns []Column

	// Key names the surrogate key column for dimension tables. Empty for raw
	// inputs and for the fact table (whose grain is the order line item).
	Key string
}

// Column returns the declared column with the given name.
func (c Contract) Column(name string) (Column, bool) {
	for _, col := range c.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the declared column names in order.
func (c Contract) ColumnNames() []string {
	out := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		out[i] = col.Name
	}
	return out
}

// UnknownTableError reports a lookup for a table the registry does not know.
type UnknownTableError struct {
	Table string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("schema: unknown table %q", e.Table)
}

// Registry holds the table contracts. The zero value is empty; use
// NewRegistry for the canonical olist registry.
type Registry struct {
	tables map[string]Contract
	order  []string
}

// NewRegistry returns a registry pre-populated with every raw olist source
// table and every dimensional model table.
func NewRegistry() *Registry {
	r := &Registry{tables: map[string]Contract{}}
	for _, c := range allContracts {
		r.Register(c)
	}
	return r
}

// Register adds or replaces a contract.
func (r *Registry) Register(c Contract) {
	if _, exists := r.tables[c.Name]; !exists {
		r.order = append(r.order, c.Name)
	}
	r.tables[c.Name] = c
}

// For returns the contract for table name, or an UnknownTableError.
func (r *Registry) For(name string) (Contract, error) {
	c, ok := r.tables[name]
	if !ok {
		return Contract{}, &UnknownTableError{Table: name}
	}
	return c, nil
}

// Tables returns the registered table names in registration order.
func (r *Registry) Tables() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
