package dimension

import (
	"context"
	"fmt"

	"github.com/Renato425636/etl-dados-olist/internal/schema"
	"github.com/Renato425636/etl-dados-olist/internal/table"
	"github.com/Renato425636/etl-dados-olist/pkg/logger"
	"github.com/Renato425636/etl-dados-olist/pkg/records"
)

// Builder constructs dimension tables from raw source tables. Each build
// projects descriptive attributes, deduplicates by natural key (first-seen
// wins; extraction order is stable), derives the surrogate key, and conforms
// the result to the registry contract before returning it. Inputs are never
// mutated.
type Builder struct {
	eng *table.Engine
	reg *schema.Registry
	log logger.Logger
}

// NewBuilder wires a Builder with its execution engine and schema registry.
func NewBuilder(eng *table.Engine, reg *schema.Registry, log logger.Logger) *Builder {
	return &Builder{eng: eng, reg: reg, log: log.Named("dimension")}
}

// finish conforms the built table to its registry contract and enforces the
// surrogate key invariant (unique, non-null) at build time. The DQ validator
// re-checks the same invariant independently over the published outputs.
func (b *Builder) finish(t *table.Table, tableName string) (*table.Table, error) {
	contract, err := b.reg.For(tableName)
	if err != nil {
		return nil, err
	}
	if err := t.Conform(contract); err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{}, t.NumRows())
	for i, r := range t.Rows {
		k, ok := r[contract.Key].(int64)
		if !ok {
			return nil, fmt.Errorf("%s row %d: surrogate key %q is not int64", tableName, i, contract.Key)
		}
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("%s: duplicate surrogate key %d", tableName, k)
		}
		seen[k] = struct{}{}
	}
	b.log.Info("dimension built",
		logger.String("table", tableName), logger.Int("rows", t.NumRows()))
	return t, nil
}

// keyColumn returns a WithColumn function deriving the dimension surrogate
// key from the named natural-key columns.
func keyColumn(dim string, naturalKeys ...string) func(records.Record) (any, error) {
	return func(r records.Record) (any, error) {
		parts := make([]any, len(naturalKeys))
		for i, k := range naturalKeys {
			parts[i] = r[k]
		}
		key, err := SurrogateKey(dim, parts...)
		if err != nil {
			return nil, err
		}
		return key, nil
	}
}

// Geolocation aggregates raw geolocation rows into one row per zip-code
// prefix. Multiple coordinate readings for the same prefix collapse to their
// arithmetic mean latitude/longitude; this averaging policy is fixed, not an
// implementation accident.
func (b *Builder) Geolocation(ctx context.Context, geo *table.Table) (*table.Table, error) {
	out, err := b.eng.From(geo).
		GroupBy([]string{"geolocation_zip_code_prefix"},
			table.Agg{Col: "geolocation_lat", As: "latitude", Fn: table.Mean},
			table.Agg{Col: "geolocation_lng", As: "longitude", Fn: table.Mean},
		).
		WithColumn("id_geolocalizacao", keyColumn(schema.DimGeolocalizacao, "geolocation_zip_code_prefix")).
		Select("id_geolocalizacao", "geolocation_zip_code_prefix", "latitude", "longitude").
		Materialize(ctx)
	if err != nil {
		return nil, err
	}
	return b.finish(out, schema.DimGeolocalizacao)
}

// Customer builds the customer dimension keyed by customer_unique_id, with
// the geolocation surrogate key attached via the customer's zip prefix.
func (b *Builder) Customer(ctx context.Context, customers, dimGeo *table.Table) (*table.Table, error) {
	out, err := b.eng.From(customers).
		Select("customer_unique_id", "customer_city", "customer_state", "customer_zip_code_prefix").
		Rename(map[string]string{
			"customer_unique_id": "id_negocio_cliente",
			"customer_city":      "cidade_cliente",
			"customer_state":     "estado_cliente",
		}).
		DistinctBy("id_negocio_cliente").
		LeftJoin(b.eng.From(dimGeo), "customer_zip_code_prefix", "geolocation_zip_code_prefix", "id_geolocalizacao").
		WithColumn("id_cliente", keyColumn(schema.DimCliente, "id_negocio_cliente")).
		Select("id_cliente", "id_negocio_cliente", "cidade_cliente", "estado_cliente", "id_geolocalizacao").
		Materialize(ctx)
	if err != nil {
		return nil, err
	}
	return b.finish(out, schema.DimCliente)
}

// Seller builds the seller dimension keyed by seller_id, with the geolocation
// surrogate key attached via the seller's zip prefix.
func (b *Builder) Seller(ctx context.Context, sellers, dimGeo *table.Table) (*table.Table, error) {
	out, err := b.eng.From(sellers).
		Select("seller_id", "seller_city", "seller_state", "seller_zip_code_prefix").
		Rename(map[string]string{
			"seller_id":    "id_negocio_vendedor",
			"seller_city":  "cidade_vendedor",
			"seller_state": "estado_vendedor",
		}).
		DistinctBy("id_negocio_vendedor").
		LeftJoin(b.eng.From(dimGeo), "seller_zip_code_prefix", "geolocation_zip_code_prefix", "id_geolocalizacao").
		WithColumn("id_vendedor", keyColumn(schema.DimVendedor, "id_negocio_vendedor")).
		Select("id_vendedor", "id_negocio_vendedor", "cidade_vendedor", "estado_vendedor", "id_geolocalizacao").
		Materialize(ctx)
	if err != nil {
		return nil, err
	}
	return b.finish(out, schema.DimVendedor)
}
