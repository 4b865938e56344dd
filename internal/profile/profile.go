// Package profile computes descriptive statistics over the sales fact table
// for the run report: count, mean, sample standard deviation, min and max for
// the numeric measures, and a frequency table for the order status column.
package profile

import (
	"encoding/json"
	"math"
	"time"

	"github.com/Renato425636/etl-dados-olist/internal/table"
	"github.com/Renato425636/etl-dados-olist/pkg/logger"
)

// NumericSummary describes one numeric column. Count is the number of
// non-null values; StdDev is zero when fewer than two values exist. A column
// with no values carries Count 0 and its moments are left out of the JSON
// form entirely, so an all-null column cannot read as a column of zeros.
type NumericSummary struct {
	Column string  `json:"column"`
	Count  int64   `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// MarshalJSON omits the moments of an empty column.
func (s NumericSummary) MarshalJSON() ([]byte, error) {
	if s.Count == 0 {
		return json.Marshal(struct {
			Column string `json:"column"`
			Count  int64  `json:"count"`
		}{s.Column, s.Count})
	}
	type summary NumericSummary
	return json.Marshal(summary(s))
}

// ValueCount is one entry of a categorical frequency table.
type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// CategoricalSummary describes one categorical column. The frequency table
// lists only the accepted values, in allow-list order, with zero counts kept
// so absent statuses are visible in the report.
type CategoricalSummary struct {
	Column string       `json:"column"`
	Counts []ValueCount `json:"counts"`
	Other  int64        `json:"other"`
}

// Profile is the full statistical description of one table.
type Profile struct {
	Table       string               `json:"table"`
	Rows        int64                `json:"rows"`
	Numeric     []NumericSummary     `json:"numeric"`
	Categorical []CategoricalSummary `json:"categorical"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// Profiler computes profiles. It reads its input tables only.
type Profiler struct {
	log logger.Logger
	now func() time.Time
}

// NewProfiler builds a Profiler.
func NewProfiler(log logger.Logger) *Profiler {
	return &Profiler{log: log.Named("profile"), now: time.Now}
}

// NumericColumn summarizes one float column of t. Null values are skipped;
// a column with no values at all yields Count 0 and zeroed statistics rather
// than an error.
func (p *Profiler) NumericColumn(t *table.Table, col string) NumericSummary {
	s := NumericSummary{Column: col}

	var sum float64
	for _, r := range t.Rows {
		f, ok := r[col].(float64)
		if !ok {
			continue
		}
		if s.Count == 0 {
			s.Min, s.Max = f, f
		} else {
			s.Min = math.Min(s.Min, f)
			s.Max = math.Max(s.Max, f)
		}
		sum += f
		s.Count++
	}
	if s.Count == 0 {
		return s
	}
	s.Mean = sum / float64(s.Count)

	if s.Count >= 2 {
		var ss float64
		for _, r := range t.Rows {
			if f, ok := r[col].(float64); ok {
				d := f - s.Mean
				ss += d * d
			}
		}
		s.StdDev = math.Sqrt(ss / float64(s.Count-1))
	}
	return s
}

// CategoricalColumn builds the frequency table of col restricted to the
// accepted values, preserving allow-list order. Values outside the list are
// lumped into Other.
func (p *Profiler) CategoricalColumn(t *table.Table, col string, accepted []string) CategoricalSummary {
	s := CategoricalSummary{Column: col, Counts: make([]ValueCount, len(accepted))}

	index := make(map[string]int, len(accepted))
	for i, v := range accepted {
		s.Counts[i] = ValueCount{Value: v}
		index[v] = i
	}
	for _, r := range t.Rows {
		v, ok := r[col].(string)
		if !ok {
			continue
		}
		if i, accepted := index[v]; accepted {
			s.Counts[i].Count++
		} else {
			s.Other++
		}
	}
	return s
}

// Fact profiles the sales fact table: both measures and the status column.
func (p *Profiler) Fact(t *table.Table, acceptedStatus []string) Profile {
	prof := Profile{
		Table:       t.Name,
		Rows:        int64(t.NumRows()),
		GeneratedAt: p.now().UTC(),
	}
	for _, col := range []string{"preco", "valor_frete"} {
		prof.Numeric = append(prof.Numeric, p.NumericColumn(t, col))
	}
	prof.Categorical = append(prof.Categorical, p.CategoricalColumn(t, "status_pedido", acceptedStatus))

	p.log.Info("profile computed",
		logger.String("table", t.Name),
		logger.Int64("rows", prof.Rows))
	return prof
}
