package dimension

import (
	"context"
	"fmt"
	"time"

	"github.com/Renato425636/etl-dados-olist/internal/schema"
	"github.com/Renato425636/etl-dados-olist/internal/table"
	"github.com/Renato425636/etl-dados-olist/pkg/records"
)

// dateOf truncates a purchase timestamp to its calendar date.
func dateOf(v any) (time.Time, error) {
	ts, ok := v.(time.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("expected time.Time, got %T", v)
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
}

// Time builds the calendar dimension from the distinct purchase dates present
// in the orders table: one row per date, keyed by the date itself.
func (b *Builder) Time(ctx context.Context, orders *table.Table) (*table.Table, error) {
	out, err := b.eng.From(orders).
		Select("order_purchase_timestamp").
		Filter(func(r records.Record) bool {
			return r["order_purchase_timestamp"] != nil
		}).
		WithColumn("data", func(r records.Record) (any, error) {
			d, err := dateOf(r["order_purchase_timestamp"])
			if err != nil {
				return nil, err
			}
			return d, nil
		}).
		DistinctBy("data").
		WithColumn("ano", func(r records.Record) (any, error) {
			return int64(r["data"].(time.Time).Year()), nil
		}).
		WithColumn("mes", func(r records.Record) (any, error) {
			return int64(r["data"].(time.Time).Month()), nil
		}).
		WithColumn("dia", func(r records.Record) (any, error) {
			return int64(r["data"].(time.Time).Day()), nil
		}).
		WithColumn("trimestre", func(r records.Record) (any, error) {
			return int64((int(r["data"].(time.Time).Month())-1)/3 + 1), nil
		}).
		WithColumn("nome_dia_semana", func(r records.Record) (any, error) {
			return r["data"].(time.Time).Format("Mon"), nil
		}).
		WithColumn("id_tempo", keyColumn(schema.DimTempo, "data")).
		Select("id_tempo", "data", "ano", "mes", "dia", "trimestre", "nome_dia_semana").
		Materialize(ctx)
	if err != nil {
		return nil, err
	}
	return b.finish(out, schema.DimTempo)
}
