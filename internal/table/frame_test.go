package table

import (
	"context"
	"reflect"
	"testing"

	"github.com/Renato425636/etl-dados-olist/pkg/records"
)

func testEngine() *Engine {
	return NewEngine("test", 2, nil)
}

func rec(kv ...any) records.Record {
	r := records.Record{}
	for i := 0; i+1 < len(kv); i += 2 {
		r[kv[i].(string)] = kv[i+1]
	}
	return r
}

func TestSelectProjectsAndOrders(t *testing.T) {
	e := testEngine()
	src := New("src", []string{"a", "b", "c"}, []records.Record{
		rec("a", "1", "b", "2", "c", "3"),
	})
	out, err := e.From(src).Select("c", "a").Materialize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out.Cols, []string{"c", "a"}) {
		t.Fatalf("cols = %v", out.Cols)
	}
	if _, ok := out.Rows[0]["b"]; ok {
		t.Fatal("projected-out column still present")
	}
}

func TestSelectUnknownColumn(t *testing.T) {
	e := testEngine()
	src := New("src", []string{"a"}, []records.Record{rec("a", "1")})
	if _, err := e.From(src).Select("nope").Materialize(context.Background()); err == nil {
		t.Fatal("expected error for unknown column")
	}
}

func TestDistinctByKeepsFirstSeen(t *testing.T) {
	e := testEngine()
	src := New("src", []string{"k", "v"}, []records.Record{
		rec("k", "x", "v", "first"),
		rec("k", "x", "v", "second"),
		rec("k", "y", "v", "other"),
	})
	out, err := e.From(src).DistinctBy("k").Materialize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", out.NumRows())
	}
	if out.Rows[0]["v"] != "first" {
		t.Fatalf("tie-break kept %v, want first-seen", out.Rows[0]["v"])
	}
}

func TestDistinctByNilVsEmptyKey(t *testing.T) {
	e := testEngine()
	src := New("src", []string{"k"}, []records.Record{
		rec("k", nil),
		rec("k", ""),
	})
	out, err := e.From(src).DistinctBy("k").Materialize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// nil and "" are distinct natural keys, not the same.
	if out.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", out.NumRows())
	}
}

func TestLeftJoinKeepsUnmatchedWithNil(t *testing.T) {
	e := testEngine()
	left := New("l", []string{"id"}, []records.Record{
		rec("id", "a"),
		rec("id", "missing"),
	})
	right := New("r", []string{"rid", "val"}, []records.Record{
		rec("rid", "a", "val", int64(7)),
	})
	out, err := e.From(left).
		LeftJoin(e.From(right), "id", "rid", "val").
		Materialize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out.NumRows() != 2 {
		t.Fatalf("left join must not drop rows; got %d", out.NumRows())
	}
	if out.Rows[0]["val"] != int64(7) {
		t.Fatalf("matched value = %v", out.Rows[0]["val"])
	}
	if out.Rows[1]["val"] != nil {
		t.Fatalf("unmatched value = %v, want nil", out.Rows[1]["val"])
	}
}

func TestInnerJoinDropsUnmatched(t *testing.T) {
	e := testEngine()
	left := New("l", []string{"id"}, []records.Record{
		rec("id", "a"),
		rec("id", "missing"),
	})
	right := New("r", []string{"rid"}, []records.Record{rec("rid", "a")})
	out, err := e.From(left).
		InnerJoin(e.From(right), "id", "rid").
		Materialize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out.NumRows() != 1 {
		t.Fatalf("rows = %d, want 1", out.NumRows())
	}
}

func TestJoinDoesNotMutateInputs(t *testing.T) {
	e := testEngine()
	left := New("l", []string{"id"}, []records.Record{rec("id", "a")})
	right := New("r", []string{"rid", "val"}, []records.Record{rec("rid", "a", "val", "x")})
	if _, err := e.From(left).
		LeftJoin(e.From(right), "id", "rid", "val").
		Materialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := left.Rows[0]["val"]; ok {
		t.Fatal("join mutated its left input")
	}
}

func TestGroupByMean(t *testing.T) {
	e := testEngine()
	src := New("src", []string{"zip", "lat"}, []records.Record{
		rec("zip", int64(1000), "lat", 2.0),
		rec("zip", int64(1000), "lat", 4.0),
		rec("zip", int64(2000), "lat", 10.0),
	})
	out, err := e.From(src).
		GroupBy([]string{"zip"}, Agg{Col: "lat", As: "avg_lat", Fn: Mean}).
		Materialize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out.NumRows() != 2 {
		t.Fatalf("groups = %d, want 2", out.NumRows())
	}
	if out.Rows[0]["avg_lat"] != 3.0 {
		t.Fatalf("avg = %v, want 3.0", out.Rows[0]["avg_lat"])
	}
	// First-seen group order.
	if out.Rows[0]["zip"] != int64(1000) || out.Rows[1]["zip"] != int64(2000) {
		t.Fatalf("group order not first-seen: %v, %v", out.Rows[0]["zip"], out.Rows[1]["zip"])
	}
}

func TestMaterializeCanceledContext(t *testing.T) {
	e := testEngine()
	src := New("src", []string{"a"}, []records.Record{rec("a", "1")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.From(src).Select("a").Materialize(ctx); err == nil {
		t.Fatal("expected error from canceled context")
	}
}

func TestEngineMaterializeAll(t *testing.T) {
	e := testEngine()
	a := New("a", []string{"x"}, []records.Record{rec("x", "1")})
	b := New("b", []string{"y"}, []records.Record{rec("y", "2"), rec("y", "2")})
	out, err := e.MaterializeAll(context.Background(), map[string]*Frame{
		"a": e.From(a).Select("x"),
		"b": e.From(b).DistinctBy("y"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if out["a"].NumRows() != 1 || out["b"].NumRows() != 1 {
		t.Fatalf("unexpected row counts: a=%d b=%d", out["a"].NumRows(), out["b"].NumRows())
	}
}

func TestEngineUseAfterClose(t *testing.T) {
	e := testEngine()
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	_, err := e.MaterializeAll(context.Background(), nil)
	if err == nil {
		t.Fatal("expected use-after-close error")
	}
}
