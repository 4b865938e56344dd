package dq

import (
	"context"
	"strings"
	"testing"

	"github.com/Renato425636/etl-dados-olist/internal/schema"
	"github.com/Renato425636/etl-dados-olist/internal/table"
	"github.com/Renato425636/etl-dados-olist/pkg/logger"
	"github.com/Renato425636/etl-dados-olist/pkg/records"
)

func newTestValidator() *Validator {
	return NewValidator(logger.NewTestLogger())
}

func dimTable(name, key string, keys ...any) *table.Table {
	rows := make([]records.Record, len(keys))
	for i, k := range keys {
		rows[i] = records.Record{key: k}
	}
	return table.New(name, []string{key}, rows)
}

func TestKeyIntegrityPass(t *testing.T) {
	v := newTestValidator()
	res := v.KeyIntegrity(dimTable(schema.DimCliente, "id_cliente", int64(1), int64(2)), "id_cliente")
	if res.Failed() {
		t.Fatalf("unexpected failure: %s", res)
	}
	if res.Violations != 0 {
		t.Fatalf("violations = %d", res.Violations)
	}
}

func TestKeyIntegrityDuplicatesAndNulls(t *testing.T) {
	v := newTestValidator()
	dim := dimTable(schema.DimCliente, "id_cliente", int64(7), int64(7), nil)
	res := v.KeyIntegrity(dim, "id_cliente")
	if !res.Failed() {
		t.Fatal("expected failure")
	}
	// Two rows share key 7, one row has a null key.
	if res.Violations != 3 {
		t.Fatalf("violations = %d, want 3", res.Violations)
	}
	if len(res.Samples) != 2 {
		t.Fatalf("samples = %v", res.Samples)
	}
	if !strings.Contains(res.Samples[1], "key=7") {
		t.Fatalf("samples = %v, want duplicated key reported", res.Samples)
	}
}

func TestReferentialIntegrityCountsOccurrences(t *testing.T) {
	v := newTestValidator()
	dim := dimTable(schema.DimProduto, "id_produto", int64(1))
	fact := table.New(schema.FatoVendas, []string{"id_produto"}, []records.Record{
		{"id_produto": int64(1)},
		{"id_produto": int64(99)},
		{"id_produto": int64(99)},
		{"id_produto": nil}, // unmatched join marker: matches nothing
	})
	res := v.ReferentialIntegrity(fact, "id_produto", dim, "id_produto")
	if !res.Failed() {
		t.Fatal("expected failure")
	}
	if res.Violations != 3 {
		t.Fatalf("violations = %d, want both orphan occurrences plus the null key", res.Violations)
	}
	if len(res.Samples) != 2 || !strings.Contains(res.Samples[0], "null id_produto (x1)") {
		t.Fatalf("samples = %v", res.Samples)
	}
	if !strings.Contains(res.Samples[1], "id_produto=99 (x2)") {
		t.Fatalf("samples = %v", res.Samples)
	}
}

func TestValidateFlagsOrphanFactRow(t *testing.T) {
	v := newTestValidator()
	m := cleanModel()
	// A line item whose product matched no dimension row: the build keeps it
	// with a null key, and referential integrity must report it.
	m.FatoVendas.Rows = append(m.FatoVendas.Rows, records.Record{
		"id_cliente": int64(1), "id_produto": nil, "id_vendedor": int64(3), "id_tempo": int64(4),
		"id_pedido": "o2", "preco": 12.0, "valor_frete": 3.0, "status_pedido": "delivered",
	})
	rep, err := v.Validate(context.Background(), m, []string{"delivered", "shipped"})
	if err != nil {
		t.Fatal(err)
	}
	if !rep.Failed() {
		t.Fatal("orphan fact row must fail the battery")
	}
	fails := rep.Failures()
	if len(fails) != 1 || fails[0].Rule != RuleReferentialIntegrity || fails[0].Column != "id_produto" {
		t.Fatalf("failures = %v, want referential integrity on id_produto only", fails)
	}
	if fails[0].Violations != 1 {
		t.Fatalf("violations = %d, want 1", fails[0].Violations)
	}
}

func TestAcceptedValuesFlagsUnknownStatus(t *testing.T) {
	v := newTestValidator()
	fact := table.New(schema.FatoVendas, []string{"status_pedido"}, []records.Record{
		{"status_pedido": "delivered"},
		{"status_pedido": "refunded"},
	})
	res := v.AcceptedValues(fact, "status_pedido", []string{"delivered", "shipped", "canceled"})
	if !res.Failed() {
		t.Fatal("expected failure")
	}
	if res.Violations != 1 {
		t.Fatalf("violations = %d, want exactly 1", res.Violations)
	}
	if len(res.Samples) != 1 || !strings.Contains(res.Samples[0], `"refunded" (x1)`) {
		t.Fatalf("samples = %v", res.Samples)
	}
}

func TestNumericRangeFlagsNegativePrice(t *testing.T) {
	v := newTestValidator()
	fact := table.New(schema.FatoVendas, []string{"preco"}, []records.Record{
		{"preco": 10.0},
		{"preco": -5.0},
		{"preco": nil},
	})
	res := v.NumericRange(fact, "preco", NonNegative, "non-negative")
	if !res.Failed() {
		t.Fatal("expected failure")
	}
	if res.Violations != 1 {
		t.Fatalf("violations = %d, want 1", res.Violations)
	}
	if !strings.Contains(res.Samples[0], "row 1") {
		t.Fatalf("samples = %v, want the violating row index", res.Samples)
	}
}

func TestNumericRangeSampleBounded(t *testing.T) {
	v := newTestValidator()
	rows := make([]records.Record, 25)
	for i := range rows {
		rows[i] = records.Record{"preco": -1.0}
	}
	res := v.NumericRange(table.New(schema.FatoVendas, []string{"preco"}, rows), "preco", NonNegative, "non-negative")
	if res.Violations != 25 {
		t.Fatalf("violations = %d", res.Violations)
	}
	if len(res.Samples) != DefaultSampleLimit {
		t.Fatalf("samples = %d, want bounded at %d", len(res.Samples), DefaultSampleLimit)
	}
}

func cleanModel() Model {
	fact := table.New(schema.FatoVendas,
		[]string{"id_cliente", "id_produto", "id_vendedor", "id_tempo", "id_pedido", "preco", "valor_frete", "status_pedido"},
		[]records.Record{
			{"id_cliente": int64(1), "id_produto": int64(2), "id_vendedor": int64(3), "id_tempo": int64(4),
				"id_pedido": "o1", "preco": 49.9, "valor_frete": 8.7, "status_pedido": "delivered"},
		})
	return Model{
		DimCliente:     dimTable(schema.DimCliente, "id_cliente", int64(1)),
		DimProduto:     dimTable(schema.DimProduto, "id_produto", int64(2)),
		DimVendedor:    dimTable(schema.DimVendedor, "id_vendedor", int64(3)),
		DimTempo:       dimTable(schema.DimTempo, "id_tempo", int64(4)),
		DimGeolocalizacao: dimTable(schema.DimGeolocalizacao, "id_geolocalizacao", int64(5)),
		FatoVendas:     fact,
	}
}

func TestValidateCleanModelPasses(t *testing.T) {
	v := newTestValidator()
	rep, err := v.Validate(context.Background(), cleanModel(), []string{"delivered", "shipped"})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Failed() {
		t.Fatalf("report failed: %v", rep.Failures())
	}
	// 5 key checks, 4 referential checks, 1 accepted-values, 2 range checks.
	if len(rep.Results) != 12 {
		t.Fatalf("results = %d, want 12", len(rep.Results))
	}
}

func TestValidateAggregatesFailures(t *testing.T) {
	v := newTestValidator()
	m := cleanModel()
	m.FatoVendas.Rows = append(m.FatoVendas.Rows, records.Record{
		"id_cliente": int64(999), "id_produto": int64(2), "id_vendedor": int64(3), "id_tempo": int64(4),
		"id_pedido": "o2", "preco": -5.0, "valor_frete": 1.0, "status_pedido": "refunded",
	})
	rep, err := v.Validate(context.Background(), m, []string{"delivered", "shipped"})
	if err != nil {
		t.Fatal(err)
	}
	fails := rep.Failures()
	if len(fails) != 3 {
		t.Fatalf("failures = %d (%v), want referential + accepted values + price range", len(fails), fails)
	}
	if rep.Violations() != 3 {
		t.Fatalf("violations = %d, want 3", rep.Violations())
	}
}

func TestValidateHonorsCancellation(t *testing.T) {
	v := newTestValidator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := v.Validate(ctx, cleanModel(), nil); err == nil {
		t.Fatal("expected context error")
	}
}

func TestResultString(t *testing.T) {
	r := Result{Rule: RuleAcceptedValues, Table: schema.FatoVendas, Column: "status_pedido",
		Outcome: Fail, Violations: 1, Samples: []string{`"refunded" (x1)`}}
	s := r.String()
	if !strings.Contains(s, "fail") || !strings.Contains(s, "status_pedido") {
		t.Fatalf("String() = %q", s)
	}
}
