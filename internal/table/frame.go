package table

import (
	"context"
	"fmt"

	"github.com/Renato425636/etl-dados-olist/pkg/records"
)

// checkEvery is how many rows an operation processes between context checks.
const checkEvery = 4096

// Frame is a lazy chain of operations over a source table. Each method
// returns a new Frame describing the extended chain; evaluation happens only
// in Materialize. Operations copy rows before modifying them, so source
// tables are never mutated.
type Frame struct {
	eng *Engine
	run func(ctx context.Context) (*Table, error)
}

// From starts a frame over t.
func (e *Engine) From(t *Table) *Frame {
	return &Frame{eng: e, run: func(ctx context.Context) (*Table, error) {
		return t, nil
	}}
}

func (f *Frame) chain(name string, op func(ctx context.Context, in *Table) (*Table, error)) *Frame {
	parent := f.run
	return &Frame{eng: f.eng, run: func(ctx context.Context) (*Table, error) {
		in, err := parent(ctx)
		if err != nil {
			return nil, err
		}
		out, err := op(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return out, nil
	}}
}

func tick(ctx context.Context, i int) error {
	if i%checkEvery == 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

// Select projects the frame down to the given columns, in the given order.
func (f *Frame) Select(cols ...string) *Frame {
	return f.chain("select", func(ctx context.Context, in *Table) (*Table, error) {
		for _, c := range cols {
			if !in.HasCol(c) {
				return nil, fmt.Errorf("unknown column %q in table %s", c, in.Name)
			}
		}
		rows := make([]records.Record, len(in.Rows))
		for i, r := range in.Rows {
			if err := tick(ctx, i); err != nil {
				return nil, err
			}
			nr := make(records.Record, len(cols))
			for _, c := range cols {
				nr[c] = r[c]
			}
			rows[i] = nr
		}
		return New(in.Name, append([]string(nil), cols...), rows), nil
	})
}

// Rename renames columns according to mapping (old name -> new name).
func (f *Frame) Rename(mapping map[string]string) *Frame {
	return f.chain("rename", func(ctx context.Context, in *Table) (*Table, error) {
		cols := make([]string, len(in.Cols))
		for i, c := range in.Cols {
			if n, ok := mapping[c]; ok {
				cols[i] = n
			} else {
				cols[i] = c
			}
		}
		rows := make([]records.Record, len(in.Rows))
		for i, r := range in.Rows {
			if err := tick(ctx, i); err != nil {
				return nil, err
			}
			nr := make(records.Record, len(r))
			for k, v := range r {
				if n, ok := mapping[k]; ok {
					nr[n] = v
				} else {
					nr[k] = v
				}
			}
			rows[i] = nr
		}
		return New(in.Name, cols, rows), nil
	})
}

// Filter keeps rows for which pred returns true. pred must treat its record
// as read-only.
func (f *Frame) Filter(pred func(records.Record) bool) *Frame {
	return f.chain("filter", func(ctx context.Context, in *Table) (*Table, error) {
		rows := make([]records.Record, 0, len(in.Rows))
		for i, r := range in.Rows {
			if err := tick(ctx, i); err != nil {
				return nil, err
			}
			if pred(r) {
				rows = append(rows, r)
			}
		}
		return New(in.Name, in.Cols, rows), nil
	})
}

// WithColumn appends a derived column computed per row. fn must not mutate
// the input record; its result becomes the new column value.
func (f *Frame) WithColumn(name string, fn func(records.Record) (any, error)) *Frame {
	return f.chain("with_column", func(ctx context.Context, in *Table) (*Table, error) {
		rows := make([]records.Record, len(in.Rows))
		for i, r := range in.Rows {
			if err := tick(ctx, i); err != nil {
				return nil, err
			}
			v, err := fn(r)
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
			}
			nr := r.Clone()
			nr[name] = v
			rows[i] = nr
		}
		return New(in.Name, append(append([]string(nil), in.Cols...), name), rows), nil
	})
}

// DistinctBy deduplicates rows on the composite key of the named columns.
// The first-seen row per key wins; input order is preserved. Input order is
// the extraction scan order, which is stable, so the tie-break is
// deterministic across identical runs.
func (f *Frame) DistinctBy(keys ...string) *Frame {
	return f.chain("distinct", func(ctx context.Context, in *Table) (*Table, error) {
		seen := make(map[string]struct{}, len(in.Rows))
		rows := make([]records.Record, 0, len(in.Rows))
		for i, r := range in.Rows {
			if err := tick(ctx, i); err != nil {
				return nil, err
			}
			k := KeyOf(r, keys...)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			rows = append(rows, r)
		}
		return New(in.Name, in.Cols, rows), nil
	})
}

// LeftJoin joins the right frame on leftKey == rightKey and copies the listed
// right-side columns into each matching left row. Left rows without a match
// are kept with nil values for the taken columns, so a failed lookup is
// visible downstream instead of silently shrinking the output. When the right
// side has duplicate keys the first-seen row wins. Left row order is
// preserved.
func (f *Frame) LeftJoin(right *Frame, leftKey, rightKey string, take ...string) *Frame {
	return f.join(right, leftKey, rightKey, take, false)
}

// InnerJoin is LeftJoin with unmatched left rows dropped.
func (f *Frame) InnerJoin(right *Frame, leftKey, rightKey string, take ...string) *Frame {
	return f.join(right, leftKey, rightKey, take, true)
}

func (f *Frame) join(right *Frame, leftKey, rightKey string, take []string, inner bool) *Frame {
	name := "left_join"
	if inner {
		name = "inner_join"
	}
	return f.chain(name, func(ctx context.Context, in *Table) (*Table, error) {
		rt, err := right.run(ctx)
		if err != nil {
			return nil, err
		}
		if !rt.HasCol(rightKey) {
			return nil, fmt.Errorf("right table %s has no column %q", rt.Name, rightKey)
		}
		for _, c := range take {
			if !rt.HasCol(c) {
				return nil, fmt.Errorf("right table %s has no column %q", rt.Name, c)
			}
		}

		index := make(map[string]records.Record, len(rt.Rows))
		for i, r := range rt.Rows {
			if err := tick(ctx, i); err != nil {
				return nil, err
			}
			k := KeyOf(r, rightKey)
			if _, exists := index[k]; !exists {
				index[k] = r
			}
		}

		rows := make([]records.Record, 0, len(in.Rows))
		for i, l := range in.Rows {
			if err := tick(ctx, i); err != nil {
				return nil, err
			}
			match, ok := index[KeyOf(l, leftKey)]
			if !ok && inner {
				continue
			}
			nr := l.Clone()
			for _, c := range take {
				if ok {
					nr[c] = match[c]
				} else {
					nr[c] = nil
				}
			}
			rows = append(rows, nr)
		}
		return New(in.Name, append(append([]string(nil), in.Cols...), take...), rows), nil
	})
}

// Materialize evaluates the chain and returns the resulting table. This is
// the only synchronization point: everything before it is a description.
func (f *Frame) Materialize(ctx context.Context) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.run(ctx)
}
