// Package pipeline orchestrates a full dimensional build run: extract the
// raw tables, build the dimensions and the fact table, validate, profile,
// and persist. The orchestrator owns stage ordering and the run state
// machine; every stage delegates its actual work to the specialist packages.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Renato425636/etl-dados-olist/internal/config"
	"github.com/Renato425636/etl-dados-olist/internal/dimension"
	"github.com/Renato425636/etl-dados-olist/internal/dq"
	"github.com/Renato425636/etl-dados-olist/internal/extract"
	"github.com/Renato425636/etl-dados-olist/internal/fact"
	"github.com/Renato425636/etl-dados-olist/internal/metrics"
	"github.com/Renato425636/etl-dados-olist/internal/profile"
	"github.com/Renato425636/etl-dados-olist/internal/report"
	"github.com/Renato425636/etl-dados-olist/internal/schema"
	"github.com/Renato425636/etl-dados-olist/internal/storage"
	"github.com/Renato425636/etl-dados-olist/internal/table"
	"github.com/Renato425636/etl-dados-olist/pkg/logger"
)

// State names the steps a run moves through, in order.
type State string

const (
	StateInit            State = "INIT"
	StateExtracted       State = "EXTRACTED"
	StateDimensionsBuilt State = "DIMENSIONS_BUILT"
	StateFactBuilt       State = "FACT_BUILT"
	StateValidated       State = "VALIDATED"
	StateProfiled        State = "PROFILED"
	StatePersisted       State = "PERSISTED"
)

// StageError wraps a failure with the stage it happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// ValidationError aborts a fail-fast run whose rule battery failed.
type ValidationError struct {
	Report dq.Report
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("data quality validation failed: %d rules failed, %d violations",
		len(e.Report.Failures()), e.Report.Violations())
}

// Result carries everything a finished run produced.
type Result struct {
	State       State
	Tables      map[string]*table.Table
	Report      dq.Report
	Profile     profile.Profile
	ProfilePath string
}

// Pipeline is one runnable build. A Pipeline is single-use: construct, Run
// once, inspect the Result.
type Pipeline struct {
	cfg  config.Config
	log  logger.Logger
	reg  *schema.Registry
	eng  *table.Engine
	repo storage.Repository

	fetcher   *extract.Fetcher
	loader    *extract.Loader
	dims      *dimension.Builder
	facts     *fact.Builder
	validator *dq.Validator
	profiler  *profile.Profiler
	writer    *report.Writer

	state State
}

// New wires a Pipeline against a storage repository. The pipeline owns the
// table engine it creates; Run closes it.
func New(cfg config.Config, repo storage.Repository, log logger.Logger) *Pipeline {
	log = log.Named("pipeline")
	reg := schema.NewRegistry()
	eng := table.NewEngine(cfg.Engine.AppName, cfg.Engine.Workers, log)
	return &Pipeline{
		cfg:       cfg,
		log:       log,
		reg:       reg,
		eng:       eng,
		repo:      repo,
		fetcher:   extract.NewFetcher(extract.FetchConfig{}, log),
		loader:    extract.NewLoader(reg, log),
		dims:      dimension.NewBuilder(eng, reg, log),
		facts:     fact.NewBuilder(eng, reg, log),
		validator: dq.NewValidator(log),
		profiler:  profile.NewProfiler(log),
		writer:    report.NewWriter(cfg.Data.ProfilingPath, log),
		state:     StateInit,
	}
}

// State reports how far the run has progressed.
func (p *Pipeline) State() State { return p.state }

// Run executes the whole build. On error the returned Result still reflects
// the last completed state, so callers can report where the run stopped.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	defer p.eng.Close()

	res := Result{State: p.state}
	started := time.Now()
	p.log.Info("run starting", logger.String("pipeline", p.cfg.PipelineName))

	var raws map[string]*table.Table
	err := p.stage(ctx, "extract", StateExtracted, func(ctx context.Context) error {
		if err := p.fetcher.Ensure(ctx, p.cfg.Data.URL, p.cfg.Data.SourcePath); err != nil {
			return err
		}
		var err error
		raws, err = p.loader.LoadAll(ctx, p.cfg.Data.SourcePath)
		return err
	})
	if err != nil {
		res.State = p.state
		return res, err
	}

	var model dq.Model
	err = p.stage(ctx, "dimensions", StateDimensionsBuilt, func(ctx context.Context) error {
		return p.buildDimensions(ctx, raws, &model)
	})
	if err != nil {
		res.State = p.state
		return res, err
	}

	err = p.stage(ctx, "fact", StateFactBuilt, func(ctx context.Context) error {
		fato, err := p.facts.Build(ctx, fact.Inputs{
			OrderItems:  raws[schema.OrderItems],
			Orders:      raws[schema.Orders],
			Customers:   raws[schema.Customers],
			DimProduto:  model.DimProduto,
			DimCliente:  model.DimCliente,
			DimVendedor: model.DimVendedor,
			DimTempo:    model.DimTempo,
		})
		if err != nil {
			return err
		}
		model.FatoVendas = fato
		metrics.RecordTableRows(p.cfg.PipelineName, schema.FatoVendas, int64(fato.NumRows()))
		return nil
	})
	if err != nil {
		res.State = p.state
		return res, err
	}

	err = p.stage(ctx, "validate", StateValidated, func(ctx context.Context) error {
		rep, err := p.validator.Validate(ctx, model, p.cfg.DataQuality.AcceptedOrderStatus)
		if err != nil {
			return err
		}
		res.Report = rep
		for _, r := range rep.Failures() {
			metrics.RecordViolations(p.cfg.PipelineName, r.Rule, r.Violations)
		}
		if rep.Failed() && p.cfg.DataQuality.FailFast {
			return &ValidationError{Report: rep}
		}
		return nil
	})
	if err != nil {
		res.State = p.state
		return res, err
	}

	err = p.stage(ctx, "profile", StateProfiled, func(ctx context.Context) error {
		res.Profile = p.profiler.Fact(model.FatoVendas, p.cfg.DataQuality.AcceptedOrderStatus)
		path, err := p.writer.WriteProfile(res.Profile)
		if err != nil {
			return err
		}
		res.ProfilePath = path
		return nil
	})
	if err != nil {
		res.State = p.state
		return res, err
	}

	res.Tables = map[string]*table.Table{
		schema.DimGeolocalizacao: model.DimGeolocalizacao,
		schema.DimCliente:        model.DimCliente,
		schema.DimProduto:        model.DimProduto,
		schema.DimVendedor:       model.DimVendedor,
		schema.DimTempo:          model.DimTempo,
		schema.FatoVendas:        model.FatoVendas,
	}
	err = p.stage(ctx, "persist", StatePersisted, func(ctx context.Context) error {
		return p.repo.Publish(ctx, res.Tables)
	})
	res.State = p.state
	if err != nil {
		return res, err
	}

	p.log.Info("run finished",
		logger.String("pipeline", p.cfg.PipelineName),
		logger.Duration("elapsed", time.Since(started)),
		logger.Int("fact_rows", model.FatoVendas.NumRows()))
	return res, nil
}

// buildDimensions builds the geolocation dimension first, then the four
// dimensions that depend only on it (or on nothing) concurrently.
func (p *Pipeline) buildDimensions(ctx context.Context, raws map[string]*table.Table, model *dq.Model) error {
	dimGeo, err := p.dims.Geolocation(ctx, raws[schema.Geolocation])
	if err != nil {
		return err
	}
	model.DimGeolocalizacao = dimGeo

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := p.dims.Customer(ctx, raws[schema.Customers], dimGeo)
		model.DimCliente = t
		return err
	})
	g.Go(func() error {
		t, err := p.dims.Product(ctx, raws[schema.Products], raws[schema.Translation])
		model.DimProduto = t
		return err
	})
	g.Go(func() error {
		t, err := p.dims.Seller(ctx, raws[schema.Sellers], dimGeo)
		model.DimVendedor = t
		return err
	})
	g.Go(func() error {
		t, err := p.dims.Time(ctx, raws[schema.Orders])
		model.DimTempo = t
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	for name, t := range map[string]*table.Table{
		schema.DimGeolocalizacao: model.DimGeolocalizacao,
		schema.DimCliente:        model.DimCliente,
		schema.DimProduto:        model.DimProduto,
		schema.DimVendedor:       model.DimVendedor,
		schema.DimTempo:          model.DimTempo,
	} {
		metrics.RecordTableRows(p.cfg.PipelineName, name, int64(t.NumRows()))
	}
	return nil
}

// stage runs one step, records its metric, and advances the state machine on
// success.
func (p *Pipeline) stage(ctx context.Context, name string, next State, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	metrics.RecordStage(p.cfg.PipelineName, name, err, time.Since(start))
	if err != nil {
		p.log.Error("stage failed",
			logger.String("stage", name),
			logger.String("state", string(p.state)),
			logger.Err(err))
		return &StageError{Stage: name, Err: err}
	}
	p.state = next
	p.log.Info("stage finished",
		logger.String("stage", name),
		logger.String("state", string(next)),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}
