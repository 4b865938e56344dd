// Package config provides the configuration model and helpers for the Olist
// dimensional build.
//
// This file adds a lightweight linter/validator for Config values. It
// performs static checks over a decoded Config and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Config.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "data.source_path"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue in the slice is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static validation / linting of a Config.
//
// It does not mutate the config. Callers may decide whether to treat
// warnings as fatal or not.
func Validate(c Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.PipelineName) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "pipeline_name",
			Message:  "pipeline_name must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateEngine(c.Engine)...)
	issues = append(issues, validateData(c.Data)...)
	issues = append(issues, validateDataQuality(c.DataQuality)...)
	issues = append(issues, validateStorage(c.Storage)...)
	issues = append(issues, validateMetrics(c.Metrics)...)

	known := map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "error": {}}
	if _, ok := known[c.LogLevel]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "log_level",
			Message:  fmt.Sprintf("unknown log level %q; expected debug, info, warn, or error", c.LogLevel),
		})
	}

	return issues
}

// validateEngine validates engine configuration.
func validateEngine(e Engine) []Issue {
	var issues []Issue
	if e.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "engine.workers",
			Message:  "workers must not be negative",
		})
	}
	return issues
}

// validateData validates data locations.
func validateData(d Data) []Issue {
	var issues []Issue

	if strings.TrimSpace(d.SourcePath) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "data.source_path",
			Message:  "data.source_path must not be empty",
		})
	}
	if strings.TrimSpace(d.OutputPath) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "data.output_path",
			Message:  "data.output_path must not be empty",
		})
	}
	if strings.TrimSpace(d.ProfilingPath) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "data.profiling_path",
			Message:  "data.profiling_path is empty; the profile report will not be written",
		})
	}
	if d.URL != "" {
		u, err := url.Parse(d.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "data.url",
				Message:  fmt.Sprintf("data.url %q is not a valid http(s) URL", d.URL),
			})
		}
	}

	return issues
}

// validateDataQuality validates the rule battery settings.
func validateDataQuality(dq DataQuality) []Issue {
	var issues []Issue

	if len(dq.AcceptedOrderStatus) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "data_quality.accepted_order_status",
			Message:  "accepted_order_status is empty; every order status will be flagged as a violation",
		})
	}
	seen := map[string]struct{}{}
	for i, s := range dq.AcceptedOrderStatus {
		if strings.TrimSpace(s) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("data_quality.accepted_order_status[%d]", i),
				Message:  "accepted order status must not be empty",
			})
			continue
		}
		if _, dup := seen[s]; dup {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     fmt.Sprintf("data_quality.accepted_order_status[%d]", i),
				Message:  fmt.Sprintf("duplicate accepted order status %q", s),
			})
		}
		seen[s] = struct{}{}
	}

	return issues
}

// validateStorage validates storage configuration and DB settings.
func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
		return issues
	}

	known := map[string]struct{}{
		"files":    {},
		"postgres": {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}

	switch s.Kind {
	case "postgres", "sqlite":
		if strings.TrimSpace(s.DB.DSN) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "storage.db.dsn",
				Message:  fmt.Sprintf("%s storage requires a non-empty dsn", s.Kind),
			})
		}
	}

	return issues
}

// validateMetrics validates the metrics sink settings.
func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	known := map[string]struct{}{"none": {}, "prompush": {}, "datadog": {}}
	if _, ok := known[m.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.kind",
			Message:  fmt.Sprintf("unknown metrics kind %q; expected none, prompush, or datadog", m.Kind),
		})
		return issues
	}

	switch m.Kind {
	case "prompush":
		u, err := url.Parse(m.PushGatewayURL)
		if m.PushGatewayURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.push_gateway_url",
				Message:  fmt.Sprintf("push_gateway_url %q is not a valid http(s) URL", m.PushGatewayURL),
			})
		}
	case "datadog":
		if strings.TrimSpace(m.StatsdAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.statsd_addr",
				Message:  "datadog metrics require statsd_addr",
			})
		}
	}
	return issues
}
