package table

import (
	"context"
	"fmt"

	"github.com/Renato425636/etl-dados-olist/pkg/records"
)

// Agg describes one aggregation over a grouped column.
type Agg struct {
	Col string // source column
	As  string // output column
	Fn  AggFn
}

// AggFn folds the values of one column within a group into a single value.
type AggFn func(values []any) (any, error)

// Mean averages non-nil float64 values. A group with no non-nil values
// aggregates to nil.
func Mean(values []any) (any, error) {
	var sum float64
	var n int
	for _, v := range values {
		if v == nil {
			continue
		}
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("mean over non-float value %T", v)
		}
		sum += f
		n++
	}
	if n == 0 {
		return nil, nil
	}
	return sum / float64(n), nil
}

// First returns the first value in group order (input order).
func First(values []any) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}

// CountNonNull counts non-nil values as int64.
func CountNonNull(values []any) (any, error) {
	var n int64
	for _, v := range values {
		if v != nil {
			n++
		}
	}
	return n, nil
}

// GroupBy groups rows by the composite key of the named columns and emits one
// row per group carrying the key columns plus one column per aggregation.
// Groups appear in first-seen input order, keeping the output deterministic.
func (f *Frame) GroupBy(keys []string, aggs ...Agg) *Frame {
	return f.chain("group_by", func(ctx context.Context, in *Table) (*Table, error) {
		type group struct {
			first  records.Record
			values [][]any // parallel to aggs
		}
		order := make([]string, 0, 64)
		groups := make(map[string]*group, 64)

		for i, r := range in.Rows {
			if err := tick(ctx, i); err != nil {
				return nil, err
			}
			k := KeyOf(r, keys...)
			g, ok := groups[k]
			if !ok {
				g = &group{first: r, values: make([][]any, len(aggs))}
				groups[k] = g
				order = append(order, k)
			}
			for ai, a := range aggs {
				g.values[ai] = append(g.values[ai], r[a.Col])
			}
		}

		cols := append([]string(nil), keys...)
		for _, a := range aggs {
			cols = append(cols, a.As)
		}

		rows := make([]records.Record, 0, len(order))
		for _, k := range order {
			g := groups[k]
			nr := make(records.Record, len(cols))
			for _, kc := range keys {
				nr[kc] = g.first[kc]
			}
			for ai, a := range aggs {
				v, err := a.Fn(g.values[ai])
				if err != nil {
					return nil, fmt.Errorf("aggregate %q: %w", a.As, err)
				}
				nr[a.As] = v
			}
			rows = append(rows, nr)
		}
		return New(in.Name, cols, rows), nil
	})
}
