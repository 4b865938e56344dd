package table

import (
	"strings"
	"testing"
	"time"

	"github.com/Renato425636/etl-dados-olist/internal/schema"
	"github.com/Renato425636/etl-dados-olist/pkg/records"
)

func contractForTest() schema.Contract {
	return schema.Contract{
		Name: "t",
		Columns: []schema.Column{
			{Name: "id", Type: schema.Int},
			{Name: "name", Type: schema.Text},
			{Name: "when", Type: schema.Timestamp, Nullable: true},
		},
	}
}

func TestConformAccepts(t *testing.T) {
	tb := New("raw", []string{"id", "name", "when"}, []records.Record{
		{"id": int64(1), "name": "a", "when": time.Now()},
		{"id": int64(2), "name": "b", "when": nil},
	})
	if err := tb.Conform(contractForTest()); err != nil {
		t.Fatal(err)
	}
	if tb.Name != "t" {
		t.Fatalf("name = %q, want contract name", tb.Name)
	}
}

func TestConformRejectsNullInNonNullable(t *testing.T) {
	tb := New("raw", []string{"id", "name", "when"}, []records.Record{
		{"id": nil, "name": "a", "when": nil},
	})
	err := tb.Conform(contractForTest())
	if err == nil || !strings.Contains(err.Error(), "non-nullable") {
		t.Fatalf("err = %v, want non-nullable violation", err)
	}
}

func TestConformRejectsTypeMismatch(t *testing.T) {
	tb := New("raw", []string{"id", "name", "when"}, []records.Record{
		{"id": "not-an-int", "name": "a", "when": nil},
	})
	if err := tb.Conform(contractForTest()); err == nil {
		t.Fatal("expected type mismatch error")
	}
}

func TestConformRejectsMissingColumn(t *testing.T) {
	tb := New("raw", []string{"id", "name"}, nil)
	if err := tb.Conform(contractForTest()); err == nil {
		t.Fatal("expected column count mismatch error")
	}
}

func TestKeyOfStableAcrossTypes(t *testing.T) {
	a := KeyOf(records.Record{"x": int64(5), "y": "z"}, "x", "y")
	b := KeyOf(records.Record{"x": int64(5), "y": "z"}, "x", "y")
	if a != b {
		t.Fatal("KeyOf not deterministic")
	}
	if KeyOf(records.Record{"x": nil}, "x") == KeyOf(records.Record{"x": ""}, "x") {
		t.Fatal("nil and empty string must not collide")
	}
}
