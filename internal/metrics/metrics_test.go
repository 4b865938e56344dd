package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	callsCounters   []counterCall
	callsHistograms []histCall
	flushCount      int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsCounters = append(f.callsCounters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsHistograms = append(f.callsHistograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

func withFake(t *testing.T) *fakeBackend {
	t.Helper()
	orig := backend
	t.Cleanup(func() { backend = orig })
	fb := &fakeBackend{}
	backend = fb
	return fb
}

func TestRecordStage_SuccessAndFailure(t *testing.T) {
	fb := withFake(t)

	RecordStage("olist", "extract", nil, 2*time.Second)
	RecordStage("olist", "validate", errors.New("boom"), time.Second)

	if len(fb.callsCounters) != 2 {
		t.Fatalf("counter calls = %d", len(fb.callsCounters))
	}
	if fb.callsCounters[0].labels["status"] != "success" {
		t.Fatalf("first status = %q", fb.callsCounters[0].labels["status"])
	}
	if fb.callsCounters[1].labels["status"] != "failure" {
		t.Fatalf("second status = %q", fb.callsCounters[1].labels["status"])
	}
	if len(fb.callsHistograms) != 2 {
		t.Fatalf("histogram calls = %d", len(fb.callsHistograms))
	}
	if fb.callsHistograms[0].value != 2.0 {
		t.Fatalf("duration = %v, want seconds", fb.callsHistograms[0].value)
	}
}

func TestRecordTableRows(t *testing.T) {
	fb := withFake(t)

	RecordTableRows("olist", "dim_cliente", 1200)
	RecordTableRows("olist", "dim_cliente", -1)

	if len(fb.callsCounters) != 1 {
		t.Fatalf("counter calls = %d, want negative counts ignored", len(fb.callsCounters))
	}
	c := fb.callsCounters[0]
	if c.name != "olist_table_rows" || c.delta != 1200 || c.labels["table"] != "dim_cliente" {
		t.Fatalf("call = %+v", c)
	}
}

func TestRecordViolations(t *testing.T) {
	fb := withFake(t)

	RecordViolations("olist", "accepted_values", 3)
	RecordViolations("olist", "accepted_values", 0)

	if len(fb.callsCounters) != 1 {
		t.Fatalf("counter calls = %d, want zero deltas ignored", len(fb.callsCounters))
	}
	if fb.callsCounters[0].labels["rule"] != "accepted_values" {
		t.Fatalf("labels = %v", fb.callsCounters[0].labels)
	}
}

func TestFlushDelegates(t *testing.T) {
	fb := withFake(t)
	if err := Flush(); err != nil {
		t.Fatal(err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("flush count = %d", fb.flushCount)
	}
}

func TestSetBackendNilKeepsExisting(t *testing.T) {
	fb := withFake(t)
	SetBackend(nil)
	RecordTableRows("olist", "fato_vendas", 1)
	if len(fb.callsCounters) != 1 {
		t.Fatal("nil SetBackend must not replace the installed backend")
	}
}
