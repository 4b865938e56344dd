// Package dq runs the data-quality rule battery over the dimensional model:
// surrogate key integrity, referential integrity, accepted values, and
// numeric range. Rules are independent and read-only; every evaluation in a
// run observes the same materialized snapshot, and all results aggregate into
// a single Report. Whether a failing report halts the pipeline is the
// orchestrator's decision, not this package's.
package dq

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Renato425636/etl-dados-olist/internal/table"
	"github.com/Renato425636/etl-dados-olist/pkg/logger"
)

// Rule identifiers, stable for reporting and metrics.
const (
	RuleKeyIntegrity         = "key_integrity"
	RuleReferentialIntegrity = "referential_integrity"
	RuleAcceptedValues       = "accepted_values"
	RuleNumericRange         = "numeric_range"
)

// Outcome of a single rule evaluation.
type Outcome string

const (
	Pass Outcome = "pass"
	Fail Outcome = "fail"
)

// DefaultSampleLimit bounds how many violating keys/rows a Result carries.
const DefaultSampleLimit = 10

// Result is the outcome of one rule over one target table/column.
type Result struct {
	Rule    string
	Table   string
	Column  string
	Outcome Outcome

	// Violations counts violating rows (occurrences, not distinct values).
	Violations int64

	// Samples holds up to the configured limit of violating keys or rows,
	// rendered as short strings for the report.
	Samples []string
}

// Failed reports whether the rule failed.
func (r Result) Failed() bool { return r.Outcome == Fail }

func (r Result) String() string {
	target := r.Table
	if r.Column != "" {
		target += "." + r.Column
	}
	if !r.Failed() {
		return fmt.Sprintf("%s on %s: pass", r.Rule, target)
	}
	return fmt.Sprintf("%s on %s: fail (%d violations; sample %v)",
		r.Rule, target, r.Violations, r.Samples)
}

// Report aggregates every rule result of one run.
type Report struct {
	Results []Result
}

// Failed reports whether any rule failed.
func (rep Report) Failed() bool {
	for _, r := range rep.Results {
		if r.Failed() {
			return true
		}
	}
	return false
}

// Violations sums violating rows across all rules.
func (rep Report) Violations() int64 {
	var n int64
	for _, r := range rep.Results {
		n += r.Violations
	}
	return n
}

// Failures returns only the failing results.
func (rep Report) Failures() []Result {
	var out []Result
	for _, r := range rep.Results {
		if r.Failed() {
			out = append(out, r)
		}
	}
	return out
}

// Validator evaluates DQ rules. It never mutates the tables it checks.
type Validator struct {
	log         logger.Logger
	sampleLimit int
}

// NewValidator builds a Validator with the default sample bound.
func NewValidator(log logger.Logger) *Validator {
	return &Validator{log: log.Named("dq"), sampleLimit: DefaultSampleLimit}
}

// KeyIntegrity checks that the surrogate key column is non-null and unique.
// Each duplicated key value is reported with its row count.
func (v *Validator) KeyIntegrity(t *table.Table, keyCol string) Result {
	res := Result{Rule: RuleKeyIntegrity, Table: t.Name, Column: keyCol, Outcome: Pass}

	counts := make(map[int64]int64)
	var nulls int64
	for _, r := range t.Rows {
		k, ok := r[keyCol].(int64)
		if !ok {
			nulls++
			continue
		}
		counts[k]++
	}

	var dupKeys []int64
	for k, n := range counts {
		if n > 1 {
			dupKeys = append(dupKeys, k)
			res.Violations += n
		}
	}
	sort.Slice(dupKeys, func(i, j int) bool { return dupKeys[i] < dupKeys[j] })

	if nulls > 0 {
		res.Violations += nulls
		res.Samples = append(res.Samples, fmt.Sprintf("null key (x%d)", nulls))
	}
	for _, k := range dupKeys {
		if len(res.Samples) >= v.sampleLimit {
			break
		}
		res.Samples = append(res.Samples, fmt.Sprintf("key=%d (x%d)", k, counts[k]))
	}
	if res.Violations > 0 {
		res.Outcome = Fail
	}
	return res
}

// ReferentialIntegrity checks that every fact foreign key resolves in the
// dimension key column. Conceptually an anti-join: a null foreign key matches
// no dimension row, so the unmatched-join markers the fact builder retains
// count as violations here alongside orphan key values, each reported with
// its occurrence count.
func (v *Validator) ReferentialIntegrity(fact *table.Table, fkCol string, dim *table.Table, keyCol string) Result {
	res := Result{Rule: RuleReferentialIntegrity, Table: fact.Name, Column: fkCol, Outcome: Pass}

	keys := make(map[int64]struct{}, dim.NumRows())
	for _, r := range dim.Rows {
		if k, ok := r[keyCol].(int64); ok {
			keys[k] = struct{}{}
		}
	}

	orphans := make(map[int64]int64)
	var order []int64
	var nulls int64
	for _, r := range fact.Rows {
		fk, ok := r[fkCol].(int64)
		if !ok {
			nulls++
			res.Violations++
			continue
		}
		if _, exists := keys[fk]; !exists {
			if orphans[fk] == 0 {
				order = append(order, fk)
			}
			orphans[fk]++
			res.Violations++
		}
	}

	if nulls > 0 {
		res.Samples = append(res.Samples, fmt.Sprintf("null %s (x%d)", fkCol, nulls))
	}
	for _, fk := range order {
		if len(res.Samples) >= v.sampleLimit {
			break
		}
		res.Samples = append(res.Samples, fmt.Sprintf("%s=%d (x%d)", fkCol, fk, orphans[fk]))
	}
	if res.Violations > 0 {
		res.Outcome = Fail
	}
	return res
}

// AcceptedValues checks that every non-null value of a categorical column is
// in the allow-list. Each out-of-list value is reported with its count.
func (v *Validator) AcceptedValues(t *table.Table, col string, allowed []string) Result {
	res := Result{Rule: RuleAcceptedValues, Table: t.Name, Column: col, Outcome: Pass}

	allow := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		allow[a] = struct{}{}
	}

	bad := make(map[string]int64)
	var order []string
	for _, r := range t.Rows {
		s, ok := r[col].(string)
		if !ok {
			continue
		}
		if _, accepted := allow[s]; !accepted {
			if bad[s] == 0 {
				order = append(order, s)
			}
			bad[s]++
			res.Violations++
		}
	}

	for _, s := range order {
		if len(res.Samples) >= v.sampleLimit {
			break
		}
		res.Samples = append(res.Samples, fmt.Sprintf("%q (x%d)", s, bad[s]))
	}
	if res.Violations > 0 {
		res.Outcome = Fail
	}
	return res
}

// NumericRange checks that every non-null value of a numeric column
// satisfies pred. desc names the predicate in the report (e.g.
// "non-negative"). Violating rows are sampled up to the bound.
func (v *Validator) NumericRange(t *table.Table, col string, pred func(float64) bool, desc string) Result {
	res := Result{Rule: RuleNumericRange, Table: t.Name, Column: col, Outcome: Pass}

	for i, r := range t.Rows {
		f, ok := r[col].(float64)
		if !ok {
			continue
		}
		if !pred(f) {
			res.Violations++
			if len(res.Samples) < v.sampleLimit {
				res.Samples = append(res.Samples, fmt.Sprintf("row %d: %s=%v violates %s", i, col, f, desc))
			}
		}
	}
	if res.Violations > 0 {
		res.Outcome = Fail
	}
	return res
}

// NonNegative is the standard measure predicate.
func NonNegative(f float64) bool { return f >= 0 }

// summarize renders a one-line report summary for logs.
func summarize(rep Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d rules", len(rep.Results))
	if fails := rep.Failures(); len(fails) > 0 {
		fmt.Fprintf(&b, ", %d failed (%d violations)", len(fails), rep.Violations())
	} else {
		b.WriteString(", all passed")
	}
	return b.String()
}
