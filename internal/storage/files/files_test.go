package files

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Renato425636/etl-dados-olist/internal/schema"
	"github.com/Renato425636/etl-dados-olist/internal/table"
	"github.com/Renato425636/etl-dados-olist/pkg/logger"
	"github.com/Renato425636/etl-dados-olist/pkg/records"
)

func newTestRepo(t *testing.T, root string) *Repository {
	t.Helper()
	r, err := NewRepository(root, schema.NewRegistry(), logger.NewTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func sampleTables() map[string]*table.Table {
	fato := table.New(schema.FatoVendas,
		[]string{"id_produto", "id_cliente", "id_vendedor", "id_tempo", "id_pedido", "preco", "valor_frete", "status_pedido"},
		[]records.Record{
			{"id_produto": int64(1), "id_cliente": int64(2), "id_vendedor": int64(3), "id_tempo": int64(4),
				"id_pedido": "o1", "preco": 49.9, "valor_frete": 8.7, "status_pedido": "delivered"},
			{"id_produto": nil, "id_cliente": int64(2), "id_vendedor": int64(3), "id_tempo": int64(4),
				"id_pedido": "o1", "preco": 10.0, "valor_frete": 2.0, "status_pedido": "shipped"},
		})
	tempo := table.New(schema.DimTempo,
		[]string{"id_tempo", "data", "ano", "mes", "dia", "trimestre", "nome_dia_semana"},
		[]records.Record{
			{"id_tempo": int64(4), "data": time.Date(2018, 3, 10, 0, 0, 0, 0, time.UTC),
				"ano": int64(2018), "mes": int64(3), "dia": int64(10), "trimestre": int64(1), "nome_dia_semana": "Sat"},
		})
	return map[string]*table.Table{schema.FatoVendas: fato, schema.DimTempo: tempo}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestPublishWritesSchemaAndData(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")
	repo := newTestRepo(t, root)

	if err := repo.Publish(context.Background(), sampleTables()); err != nil {
		t.Fatal(err)
	}

	var doc schemaDoc
	b, err := os.ReadFile(filepath.Join(root, schema.FatoVendas, "schema.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Table != schema.FatoVendas || len(doc.Columns) != 8 {
		t.Fatalf("schema doc = %+v", doc)
	}

	rows := readCSV(t, filepath.Join(root, schema.FatoVendas, "data.csv"))
	if len(rows) != 3 {
		t.Fatalf("csv rows = %d, want header plus two rows", len(rows))
	}
	if rows[1][5] != "49.9" || rows[1][7] != "delivered" {
		t.Fatalf("first data row = %v", rows[1])
	}
	// Null foreign key renders as an empty cell.
	if rows[2][0] != "" {
		t.Fatalf("null cell rendered as %q", rows[2][0])
	}

	tempo := readCSV(t, filepath.Join(root, schema.DimTempo, "data.csv"))
	if tempo[1][1] != "2018-03-10" {
		t.Fatalf("date rendered as %q", tempo[1][1])
	}
}

func TestPublishReplacesPreviousRun(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")
	repo := newTestRepo(t, root)
	ctx := context.Background()

	if err := repo.Publish(ctx, sampleTables()); err != nil {
		t.Fatal(err)
	}
	smaller := sampleTables()
	smaller[schema.FatoVendas].Rows = smaller[schema.FatoVendas].Rows[:1]
	if err := repo.Publish(ctx, smaller); err != nil {
		t.Fatal(err)
	}

	rows := readCSV(t, filepath.Join(root, schema.FatoVendas, "data.csv"))
	if len(rows) != 2 {
		t.Fatalf("csv rows = %d, want the second publish only", len(rows))
	}
	if _, err := os.Stat(root + ".old"); !os.IsNotExist(err) {
		t.Fatal("retired publish must be cleaned up")
	}
}

func TestPublishUnknownTableLeavesOutputIntact(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")
	repo := newTestRepo(t, root)
	ctx := context.Background()

	if err := repo.Publish(ctx, sampleTables()); err != nil {
		t.Fatal(err)
	}
	bad := map[string]*table.Table{
		"no_such_table": table.New("no_such_table", []string{"x"}, nil),
	}
	if err := repo.Publish(ctx, bad); err == nil {
		t.Fatal("expected error for unknown table")
	}
	// The earlier publish must still be readable.
	if _, err := os.Stat(filepath.Join(root, schema.FatoVendas, "data.csv")); err != nil {
		t.Fatalf("previous publish lost: %v", err)
	}
}

func TestPublishHonorsCancellation(t *testing.T) {
	repo := newTestRepo(t, filepath.Join(t.TempDir(), "out"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := repo.Publish(ctx, sampleTables()); err == nil {
		t.Fatal("expected context error")
	}
}
