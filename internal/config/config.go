// Package config defines the canonical configuration model for the Olist
// dimensional build. It is intentionally small and explicit: a run is fully
// described by one YAML file that can be loaded from disk, linted, and passed
// through the program without additional glue code.
//
// Example (trimmed):
//
//	pipeline_name: olist_star_schema
//	engine:
//	  app_name: olist-etl
//	  workers: 8
//	data:
//	  url: https://example.com/olist.zip
//	  source_path: data/raw
//	  output_path: data/out
//	  profiling_path: data/profiling
//	data_quality:
//	  accepted_order_status: [delivered, shipped, canceled, invoiced, processing, unavailable, approved, created]
//	  fail_fast: true
//	storage:
//	  kind: files
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level object decoded from a run file.
type Config struct {
	// PipelineName identifies the run in logs, metrics, and reports.
	PipelineName string `yaml:"pipeline_name"`

	Engine      Engine      `yaml:"engine"`
	Data        Data        `yaml:"data"`
	DataQuality DataQuality `yaml:"data_quality"`
	Storage     Storage     `yaml:"storage"`
	Metrics     Metrics     `yaml:"metrics"`

	// LogLevel selects the minimum log level: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Engine controls the table engine used to materialize frames.
type Engine struct {
	// AppName labels the engine instance in logs.
	AppName string `yaml:"app_name"`

	// Workers bounds concurrent frame materialization. Zero means one
	// worker per CPU.
	Workers int `yaml:"workers"`
}

// Data locates the raw input and the run outputs.
type Data struct {
	// URL optionally points at a zip archive of the raw CSV files. When
	// set and SourcePath is missing, the extractor downloads and unpacks
	// it before reading.
	URL string `yaml:"url"`

	// SourcePath is the directory holding the raw Olist CSV files.
	SourcePath string `yaml:"source_path"`

	// OutputPath is the directory the star schema is published under.
	OutputPath string `yaml:"output_path"`

	// ProfilingPath is the directory the profile report is written to.
	ProfilingPath string `yaml:"profiling_path"`
}

// DataQuality configures the validation battery.
type DataQuality struct {
	// AcceptedOrderStatus is the allow-list for the fact status column.
	AcceptedOrderStatus []string `yaml:"accepted_order_status"`

	// FailFast aborts the run before persistence when any rule fails.
	// When false, failures are logged and the run continues.
	FailFast bool `yaml:"fail_fast"`
}

// Storage selects the sink the star schema is written to.
type Storage struct {
	// Kind selects the backend: "files", "postgres", or "sqlite".
	Kind string `yaml:"kind"`

	// DB carries connection options for the database backends.
	DB DBConfig `yaml:"db"`
}

// DBConfig configures a database sink.
type DBConfig struct {
	// DSN is the connection string (pgx URL for postgres, file path for
	// sqlite).
	DSN string `yaml:"dsn"`

	// SchemaName optionally namespaces the destination tables
	// (postgres only).
	SchemaName string `yaml:"schema"`
}

// Metrics configures the optional metrics sink.
type Metrics struct {
	// Kind selects the backend: "none" (default), "prompush", or
	// "datadog".
	Kind string `yaml:"kind"`

	// PushGatewayURL is the Prometheus Pushgateway base URL
	// (prompush only).
	PushGatewayURL string `yaml:"push_gateway_url"`

	// StatsdAddr is the DogStatsD address, e.g. "127.0.0.1:8125"
	// (datadog only).
	StatsdAddr string `yaml:"statsd_addr"`

	// Job labels emitted metrics. Defaults to the pipeline name.
	Job string `yaml:"job"`
}

// Load reads and decodes a run file. Unknown keys are rejected so typos
// surface at startup instead of silently falling back to defaults.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes a run file from bytes.
func Parse(b []byte) (Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	c.applyDefaults()
	return c, nil
}

// applyDefaults fills the fields a run file may omit.
func (c *Config) applyDefaults() {
	if c.Engine.AppName == "" {
		c.Engine.AppName = c.PipelineName
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Storage.Kind == "" {
		c.Storage.Kind = "files"
	}
	if c.Metrics.Kind == "" {
		c.Metrics.Kind = "none"
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = c.PipelineName
	}
	if len(c.DataQuality.AcceptedOrderStatus) == 0 {
		c.DataQuality.AcceptedOrderStatus = DefaultAcceptedOrderStatus()
	}
}

// DefaultAcceptedOrderStatus returns the Olist order lifecycle states.
func DefaultAcceptedOrderStatus() []string {
	return []string{
		"delivered", "shipped", "canceled", "invoiced",
		"processing", "unavailable", "approved", "created",
	}
}
