// Package fact assembles the sales fact table: one row per order line item,
// carrying foreign keys into every dimension plus the numeric measures.
package fact

import (
	"context"
	"fmt"
	"time"

	"github.com/Renato425636/etl-dados-olist/internal/schema"
	"github.com/Renato425636/etl-dados-olist/internal/table"
	"github.com/Renato425636/etl-dados-olist/pkg/logger"
	"github.com/Renato425636/etl-dados-olist/pkg/records"
)

// Inputs collects everything the fact build joins against.
type Inputs struct {
	OrderItems *table.Table
	Orders     *table.Table
	Customers  *table.Table

	DimProduto  *table.Table
	DimCliente  *table.Table
	DimVendedor *table.Table
	DimTempo    *table.Table
}

// Builder assembles the fact table against the dimension surrogate keys.
type Builder struct {
	eng *table.Engine
	reg *schema.Registry
	log logger.Logger
}

// NewBuilder wires a fact Builder.
func NewBuilder(eng *table.Engine, reg *schema.Registry, log logger.Logger) *Builder {
	return &Builder{eng: eng, reg: reg, log: log.Named("fact")}
}

// Build joins order items with orders and customers to recover each line
// item's natural keys, then left-joins every dimension to swap natural keys
// for surrogate keys. A line item whose natural key matches no dimension row
// keeps a null foreign key instead of being dropped: fact volume is preserved
// for audit, and the referential-integrity rule reports the orphan.
func (b *Builder) Build(ctx context.Context, in Inputs) (*table.Table, error) {
	orders := b.eng.From(in.Orders).
		Select("order_id", "customer_id", "order_status", "order_purchase_timestamp")
	customers := b.eng.From(in.Customers).
		Select("customer_id", "customer_unique_id")

	base := b.eng.From(in.OrderItems).
		InnerJoin(orders, "order_id", "order_id", "customer_id", "order_status", "order_purchase_timestamp").
		InnerJoin(customers, "customer_id", "customer_id", "customer_unique_id").
		WithColumn("data_compra", func(r records.Record) (any, error) {
			ts, ok := r["order_purchase_timestamp"].(time.Time)
			if !ok {
				return nil, fmt.Errorf("order_purchase_timestamp: expected time.Time, got %T", r["order_purchase_timestamp"])
			}
			return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
		})

	joined := base.
		LeftJoin(b.eng.From(in.DimProduto), "product_id", "id_negocio_produto", "id_produto").
		LeftJoin(b.eng.From(in.DimCliente), "customer_unique_id", "id_negocio_cliente", "id_cliente").
		LeftJoin(b.eng.From(in.DimVendedor), "seller_id", "id_negocio_vendedor", "id_vendedor").
		LeftJoin(b.eng.From(in.DimTempo), "data_compra", "data", "id_tempo").
		Rename(map[string]string{
			"order_id":      "id_pedido",
			"price":         "preco",
			"freight_value": "valor_frete",
			"order_status":  "status_pedido",
		}).
		Select("id_produto", "id_cliente", "id_vendedor", "id_tempo",
			"id_pedido", "preco", "valor_frete", "status_pedido")

	out, err := joined.Materialize(ctx)
	if err != nil {
		return nil, err
	}

	contract, err := b.reg.For(schema.FatoVendas)
	if err != nil {
		return nil, err
	}
	if err := out.Conform(contract); err != nil {
		return nil, err
	}
	b.log.Info("fact built",
		logger.String("table", schema.FatoVendas), logger.Int("rows", out.NumRows()))
	return out, nil
}
