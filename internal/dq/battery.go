package dq

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Renato425636/etl-dados-olist/internal/schema"
	"github.com/Renato425636/etl-dados-olist/internal/table"
	"github.com/Renato425636/etl-dados-olist/pkg/logger"
)

// Model is the materialized star schema a validation run checks.
type Model struct {
	DimCliente        *table.Table
	DimProduto        *table.Table
	DimVendedor       *table.Table
	DimTempo          *table.Table
	DimGeolocalizacao *table.Table
	FatoVendas        *table.Table
}

// dimKeyChecks pairs each dimension with its surrogate key column.
func (m Model) dimKeyChecks() []struct {
	t   *table.Table
	key string
} {
	return []struct {
		t   *table.Table
		key string
	}{
		{m.DimCliente, "id_cliente"},
		{m.DimProduto, "id_produto"},
		{m.DimVendedor, "id_vendedor"},
		{m.DimTempo, "id_tempo"},
		{m.DimGeolocalizacao, "id_geolocalizacao"},
	}
}

// fkChecks pairs each fact foreign key with the dimension it must resolve in.
func (m Model) fkChecks() []struct {
	fk  string
	dim *table.Table
	key string
} {
	return []struct {
		fk  string
		dim *table.Table
		key string
	}{
		{"id_cliente", m.DimCliente, "id_cliente"},
		{"id_produto", m.DimProduto, "id_produto"},
		{"id_vendedor", m.DimVendedor, "id_vendedor"},
		{"id_tempo", m.DimTempo, "id_tempo"},
	}
}

// Validate runs the full battery over the model: key integrity on every
// dimension, referential integrity for every fact foreign key, the order
// status allow-list, and non-negative measures. Rules run concurrently but
// each reads its tables only, so the snapshot is shared safely; results land
// in a fixed order regardless of scheduling. The error return covers
// evaluation failure (e.g. cancellation) only, never rule outcomes.
func (v *Validator) Validate(ctx context.Context, m Model, acceptedStatus []string) (Report, error) {
	dims := m.dimKeyChecks()
	fks := m.fkChecks()

	results := make([]Result, len(dims)+len(fks)+3)
	g, ctx := errgroup.WithContext(ctx)

	for i, c := range dims {
		i, c := i, c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = v.KeyIntegrity(c.t, c.key)
			return nil
		})
	}
	base := len(dims)
	for i, c := range fks {
		i, c := i, c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[base+i] = v.ReferentialIntegrity(m.FatoVendas, c.fk, c.dim, c.key)
			return nil
		})
	}
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		results[base+len(fks)] = v.AcceptedValues(m.FatoVendas, "status_pedido", acceptedStatus)
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		results[base+len(fks)+1] = v.NumericRange(m.FatoVendas, "preco", NonNegative, "non-negative")
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		results[base+len(fks)+2] = v.NumericRange(m.FatoVendas, "valor_frete", NonNegative, "non-negative")
		return nil
	})

	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	rep := Report{Results: results}
	for _, r := range rep.Failures() {
		v.log.Warn("rule failed",
			logger.String("rule", r.Rule),
			logger.String("table", r.Table),
			logger.String("column", r.Column),
			logger.Int64("violations", r.Violations),
			logger.Strings("sample", r.Samples))
	}
	v.log.Info("validation finished",
		logger.String("fact", schema.FatoVendas),
		logger.String("summary", summarize(rep)))
	return rep, nil
}
