package table

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Renato425636/etl-dados-olist/pkg/logger"
)

// Engine is the explicitly owned execution context for frame evaluation. It
// bounds how many frames materialize concurrently and is injected into every
// component that evaluates frames; there is no ambient singleton. The
// orchestrator constructs it at startup and closes it at teardown.
type Engine struct {
	name    string
	workers int
	log     logger.Logger

	mu     sync.Mutex
	closed bool
}

// NewEngine builds an engine. workers <= 0 defaults to GOMAXPROCS.
func NewEngine(name string, workers int, log logger.Logger) *Engine {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = logger.NewTestLogger()
	}
	return &Engine{name: name, workers: workers, log: log.Named("engine")}
}

// MaterializeAll evaluates the named frames concurrently (bounded by the
// worker limit) and returns the resulting tables under the same names. If any
// frame fails, the context for the remaining frames is canceled and the first
// error is returned.
func (e *Engine) MaterializeAll(ctx context.Context, frames map[string]*Frame) (map[string]*Table, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	var mu sync.Mutex
	out := make(map[string]*Table, len(frames))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for name, f := range frames {
		name, f := name, f
		g.Go(func() error {
			t, err := f.Materialize(gctx)
			if err != nil {
				return fmt.Errorf("materialize %s: %w", name, err)
			}
			mu.Lock()
			out[name] = t
			mu.Unlock()
			e.log.Debug("frame materialized",
				logger.String("table", name), logger.Int("rows", t.NumRows()))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) check() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("engine %s: used after close", e.name)
	}
	return nil
}

// Close releases the engine. Frames created from a closed engine can no
// longer be materialized through MaterializeAll.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.log.Debug("engine closed", logger.String("name", e.name))
	return nil
}
