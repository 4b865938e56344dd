// Package extract reads the raw Olist CSV files into typed tables. Each file
// is parsed strictly against its schema contract: headers are matched by
// name, every cell is converted to the declared column type, and any cell
// that cannot be converted fails the load with its file and line. Empty cells
// become nulls only where the contract allows them; an empty cell in a
// non-nullable column fails the load the same way a bad value does.
package extract

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Renato425636/etl-dados-olist/internal/schema"
	"github.com/Renato425636/etl-dados-olist/internal/table"
	"github.com/Renato425636/etl-dados-olist/pkg/logger"
	"github.com/Renato425636/etl-dados-olist/pkg/records"
)

// timestampLayout is the datetime format used throughout the Olist dataset.
const timestampLayout = "2006-01-02 15:04:05"

// errNullCell reports an empty cell in a column the contract requires.
var errNullCell = errors.New("empty cell in non-nullable column")

// checkEvery bounds how often the row loop polls for cancellation.
const checkEvery = 4096

// tableFiles maps each logical table to its file name in the dataset.
var tableFiles = map[string]string{
	schema.Customers:   "olist_customers_dataset.csv",
	schema.Orders:      "olist_orders_dataset.csv",
	schema.OrderItems:  "olist_order_items_dataset.csv",
	schema.Products:    "olist_products_dataset.csv",
	schema.Sellers:     "olist_sellers_dataset.csv",
	schema.Geolocation: "olist_geolocation_dataset.csv",
	schema.Translation: "product_category_name_translation.csv",
}

// SourceNotFoundError reports a missing raw input file.
type SourceNotFoundError struct {
	Path string
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("source file not found: %s", e.Path)
}

// ParseError reports a cell that could not be converted to its declared type.
type ParseError struct {
	File   string
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: column %q: %v", e.File, e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Loader reads raw CSV files into typed tables.
type Loader struct {
	reg *schema.Registry
	log logger.Logger
}

// NewLoader wires a Loader against the schema registry.
func NewLoader(reg *schema.Registry, log logger.Logger) *Loader {
	return &Loader{reg: reg, log: log.Named("extract")}
}

// Load reads one table from dir. The file name is derived from the table
// name; a missing file yields SourceNotFoundError.
func (l *Loader) Load(ctx context.Context, dir, tableName string) (*table.Table, error) {
	contract, err := l.reg.For(tableName)
	if err != nil {
		return nil, err
	}
	file, ok := tableFiles[tableName]
	if !ok {
		return nil, fmt.Errorf("no source file registered for table %q", tableName)
	}
	path := filepath.Join(dir, file)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &SourceNotFoundError{Path: path}
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := l.read(ctx, f, path, contract)
	if err != nil {
		return nil, err
	}
	l.log.Info("table loaded",
		logger.String("table", tableName),
		logger.String("file", file),
		logger.Int("rows", t.NumRows()))
	return t, nil
}

// LoadAll reads every raw table from dir concurrently.
func (l *Loader) LoadAll(ctx context.Context, dir string) (map[string]*table.Table, error) {
	names := make([]string, 0, len(tableFiles))
	for name := range tableFiles {
		names = append(names, name)
	}

	tables := make([]*table.Table, len(names))
	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			t, err := l.Load(ctx, dir, name)
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*table.Table, len(names))
	for i, name := range names {
		out[name] = tables[i]
	}
	return out, nil
}

// read parses one CSV stream against its contract.
func (l *Loader) read(ctx context.Context, r io.Reader, path string, contract schema.Contract) (*table.Table, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	line := 0
	next := func() ([]string, error) { line++; return cr.Read() }

	hdr, err := next()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}
	colIx, err := mapHeader(hdr, contract)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cols := contract.ColumnNames()
	var rows []records.Record
	for {
		if line%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}

		row := make(records.Record, len(cols))
		for i, c := range contract.Columns {
			si := colIx[i]
			var cell string
			if si >= 0 && si < len(rec) {
				cell = strings.TrimSpace(rec[si])
			}
			v, err := parseValue(c, cell)
			if err != nil {
				return nil, &ParseError{File: path, Line: line, Column: c.Name, Err: err}
			}
			if v == nil && !c.Nullable {
				return nil, &ParseError{File: path, Line: line, Column: c.Name, Err: errNullCell}
			}
			row[c.Name] = v
		}
		rows = append(rows, row)
	}
	return table.New(contract.Name, cols, rows), nil
}

// mapHeader resolves each contract column to its index in the file header.
// Every contract column must be present; extra file columns are ignored.
func mapHeader(hdr []string, contract schema.Contract) ([]int, error) {
	srcToIdx := make(map[string]int, len(hdr))
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff") // strip BOM
		}
		srcToIdx[strings.ToLower(h)] = i
	}
	colIx := make([]int, len(contract.Columns))
	for i, c := range contract.Columns {
		si, ok := srcToIdx[c.Name]
		if !ok {
			return nil, fmt.Errorf("header is missing column %q", c.Name)
		}
		colIx[i] = si
	}
	return colIx, nil
}

// parseValue converts one trimmed cell to the column's declared type. Empty
// cells become nil; nullability is the contract's concern, not the parser's.
func parseValue(c schema.Column, cell string) (any, error) {
	if cell == "" {
		return nil, nil
	}
	switch c.Type {
	case schema.Text:
		return cell, nil
	case schema.Int:
		n, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse int %q: %w", cell, err)
		}
		return n, nil
	case schema.Float:
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("parse float %q: %w", cell, err)
		}
		return f, nil
	case schema.Timestamp:
		ts, err := time.ParseInLocation(timestampLayout, cell, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", cell, err)
		}
		return ts, nil
	case schema.Date:
		ts, err := time.ParseInLocation("2006-01-02", cell, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", cell, err)
		}
		return ts, nil
	default:
		return nil, fmt.Errorf("unsupported column type %q", c.Type)
	}
}
