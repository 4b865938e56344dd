// Command olist-etl builds the Olist star schema: it loads the run config,
// lints it, wires the metrics backend and storage repository, and executes
// the pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Renato425636/etl-dados-olist/internal/config"
	"github.com/Renato425636/etl-dados-olist/internal/metrics"
	"github.com/Renato425636/etl-dados-olist/internal/metrics/datadog"
	"github.com/Renato425636/etl-dados-olist/internal/metrics/prompush"
	"github.com/Renato425636/etl-dados-olist/internal/pipeline"
	"github.com/Renato425636/etl-dados-olist/internal/schema"
	"github.com/Renato425636/etl-dados-olist/internal/storage"
	"github.com/Renato425636/etl-dados-olist/pkg/logger"
)

func main() {
	var (
		cfgPath  string
		validate bool
	)
	flag.StringVar(&cfgPath, "config", "configs/olist.yaml", "run config YAML path")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable debug logs")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("load config: %v", err)
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fatalf("configuration is invalid: %v", cfgPath)
	}
	if validate {
		fmt.Printf("configuration is valid: %v\n", cfgPath)
		return
	}

	level := cfg.LogLevel
	if *verbose {
		level = "debug"
	}
	log, err := logger.New(logger.WithLevel(level))
	if err != nil {
		fatalf("init logger: %v", err)
	}
	defer log.Sync()

	if err := initMetrics(cfg, log); err != nil {
		// A broken metrics sink downgrades the run, it never blocks it.
		log.Warn("metrics disabled", logger.Err(err))
	}
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", logger.Err(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := storage.Open(ctx, cfg.Storage, cfg.Data.OutputPath, schema.NewRegistry(), log)
	if err != nil {
		fatalf("open storage: %v", err)
	}
	defer repo.Close()

	start := time.Now()
	res, err := pipeline.New(cfg, repo, log).Run(ctx)
	if err != nil {
		log.Error("run failed",
			logger.String("state", string(res.State)),
			logger.Err(err))
		os.Exit(1)
	}
	log.Info("run complete",
		logger.String("state", string(res.State)),
		logger.Int64("violations", res.Report.Violations()),
		logger.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)))
}

// initMetrics installs the configured metrics backend; the nop backend stays
// in place when kind is "none".
func initMetrics(cfg config.Config, log logger.Logger) error {
	switch cfg.Metrics.Kind {
	case "", "none":
		return nil
	case "prompush":
		b, err := prompush.NewBackend(cfg.Metrics.Job, cfg.Metrics.PushGatewayURL)
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
		log.Info("metrics enabled",
			logger.String("backend", "prompush"),
			logger.String("gateway", cfg.Metrics.PushGatewayURL))
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       cfg.Metrics.StatsdAddr,
			GlobalTags: []string{"job:" + cfg.Metrics.Job},
		})
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
		log.Info("metrics enabled",
			logger.String("backend", "datadog"),
			logger.String("addr", cfg.Metrics.StatsdAddr))
	default:
		return fmt.Errorf("unknown metrics kind %q", cfg.Metrics.Kind)
	}
	return nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
