// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from the dimensional build.
//
// The package is intentionally minimal and opinionated:
//
//   - It exposes a narrow interface (Backend) focused on counters and timing
//     data.
//   - It provides a global, pluggable backend that defaults to a no-op
//     implementation, so metrics are always safe to call even when no real
//     backend is configured.
//   - It mirrors the storage abstraction pattern used elsewhere in the
//     project (storage.Repository): the rest of the codebase depends only on
//     this interface while concrete metric systems stay isolated in
//     subpackages.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
// It is intentionally generic so we can plug in Prometheus, Datadog, etc.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStage measures latency plus success/failure for one pipeline stage
// (extract, dimensions, fact, validate, profile, persist).
func RecordStage(job, stage string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"stage":  stage,
		"status": status,
	}

	backend.IncCounter("olist_stage_total", 1, lbls)
	backend.ObserveHistogram("olist_stage_duration_seconds", d.Seconds(), lbls)
}

// RecordTableRows records the row count of one built table.
func RecordTableRows(job, table string, rows int64) {
	if rows < 0 {
		return
	}
	backend.IncCounter("olist_table_rows", float64(rows), Labels{
		"job":   job,
		"table": table,
	})
}

// RecordViolations counts data-quality violations per rule.
func RecordViolations(job, rule string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("olist_dq_violations_total", float64(delta), Labels{
		"job":  job,
		"rule": rule,
	})
}
