package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/epeers/corpactions/internal/models"
)

// fakeLookup is a scriptable Lookuper for orchestrator tests
type fakeLookup struct {
	mu      sync.Mutex
	calls   int
	fail    map[string]string // rawCode -> error message
	panicOn string
	block   chan struct{} // when non-nil, Lookup waits until closed
}

func (f *fakeLookup) Lookup(ctx context.Context, ref models.StockRef) *models.EnrichedResult {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}
	if ref.RawCode == f.panicOn {
		panic("series exploded")
	}
	if msg, ok := f.fail[ref.RawCode]; ok {
		return &models.EnrichedResult{Error: msg}
	}
	price := 100.0 + float64(len(ref.RawCode))
	return &models.EnrichedResult{Price: &price, ActualDate: ref.Date}
}

func (f *fakeLookup) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func makeRefs(n int) []models.StockRef {
	refs := make([]models.StockRef, n)
	for i := range refs {
		code := fmt.Sprintf("%04d", 1000+i)
		refs[i] = models.StockRef{RawCode: code, Ticker: code + ".T", Date: "2024/06/14"}
	}
	return refs
}

func TestRun_BatchPacing(t *testing.T) {
	fake := &fakeLookup{}
	svc := NewEnrichmentService(fake, 5, 1500*time.Millisecond)

	var sleeps []int // completed lookups at the moment of each pacing delay
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		if d != 1500*time.Millisecond {
			t.Errorf("expected 1500ms delay, got %v", d)
		}
		sleeps = append(sleeps, fake.callCount())
		return nil
	}

	run, err := svc.Run(context.Background(), makeRefs(12), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 12 stocks with batch size 5 -> batches of 5,5,2 and exactly two delays
	if len(sleeps) != 2 {
		t.Fatalf("expected 2 pacing delays, got %d", len(sleeps))
	}
	if sleeps[0] != 5 || sleeps[1] != 10 {
		t.Errorf("expected delays after 5 and 10 completions, got %v", sleeps)
	}
	if run.Counts.Total != 12 || run.Counts.Success != 12 {
		t.Errorf("unexpected counts: %+v", run.Counts)
	}
}

func TestRun_NoDelayForSingleBatch(t *testing.T) {
	fake := &fakeLookup{}
	svc := NewEnrichmentService(fake, 5, time.Millisecond)
	slept := 0
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		slept++
		return nil
	}

	if _, err := svc.Run(context.Background(), makeRefs(5), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slept != 0 {
		t.Errorf("expected no pacing delay for a single batch, got %d", slept)
	}
}

func TestRun_ProgressGranularWithinBatch(t *testing.T) {
	fake := &fakeLookup{}
	svc := NewEnrichmentService(fake, 5, time.Millisecond)
	svc.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	var mu sync.Mutex
	var completions []int
	progress := func(completed, total int, detail string) {
		mu.Lock()
		defer mu.Unlock()
		if total != 7 {
			t.Errorf("expected total 7, got %d", total)
		}
		completions = append(completions, completed)
	}

	if _, err := svc.Run(context.Background(), makeRefs(7), progress); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(completions) != 7 {
		t.Fatalf("expected 7 progress notifications, got %d", len(completions))
	}
	for i, c := range completions {
		if c != i+1 {
			t.Errorf("notification %d: expected completed=%d, got %d", i, i+1, c)
			break
		}
	}
	if completions[len(completions)-1] != 7 {
		t.Errorf("final notification must be at completed == total")
	}
}

func TestRun_FailureIsolationAndCounts(t *testing.T) {
	fake := &fakeLookup{fail: map[string]string{
		"1001": "no valid close",
		"1003": "chart API returned status 500",
	}}
	svc := NewEnrichmentService(fake, 5, time.Millisecond)
	svc.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	run, err := svc.Run(context.Background(), makeRefs(6), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(run.ResultsByCode) != 6 {
		t.Fatalf("expected 6 results, got %d", len(run.ResultsByCode))
	}
	if run.Counts.Success != 4 {
		t.Errorf("expected 4 successes, got %d", run.Counts.Success)
	}
	if run.Counts.NotAvailable != 2 {
		t.Errorf("expected 2 not-available, got %d", run.Counts.NotAvailable)
	}
	if run.Counts.Errors != 2 || len(run.Errors) != 2 {
		t.Errorf("expected 2 errors, got counts=%d list=%d", run.Counts.Errors, len(run.Errors))
	}
	if res := run.ResultsByCode["1001"]; res.Price != nil || res.Error == "" {
		t.Errorf("failed item must carry nil price and an error: %+v", res)
	}
	if res := run.ResultsByCode["1002"]; res.Price == nil {
		t.Errorf("neighbor of a failed item must still succeed: %+v", res)
	}
}

func TestRun_PanicContained(t *testing.T) {
	fake := &fakeLookup{panicOn: "1002"}
	svc := NewEnrichmentService(fake, 5, time.Millisecond)
	svc.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	run, err := svc.Run(context.Background(), makeRefs(4), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := run.ResultsByCode["1002"]
	if res == nil || res.Error == "" {
		t.Fatalf("expected contained panic as item error, got %+v", res)
	}
	if run.Counts.Success != 3 {
		t.Errorf("expected 3 successes, got %d", run.Counts.Success)
	}
}

func TestRun_Idempotent(t *testing.T) {
	fake := &fakeLookup{fail: map[string]string{"1004": "no valid close"}}
	svc := NewEnrichmentService(fake, 5, time.Millisecond)
	svc.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	refs := makeRefs(8)
	first, err := svc.Run(context.Background(), refs, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Run(context.Background(), refs, nil)
	if err != nil {
		t.Fatalf("unexpected error on second run: %v", err)
	}

	if len(first.ResultsByCode) != len(second.ResultsByCode) {
		t.Fatalf("runs differ in size: %d vs %d", len(first.ResultsByCode), len(second.ResultsByCode))
	}
	for code, a := range first.ResultsByCode {
		b, ok := second.ResultsByCode[code]
		if !ok {
			t.Fatalf("second run missing %s", code)
		}
		if (a.Price == nil) != (b.Price == nil) || a.Error != b.Error {
			t.Errorf("%s: runs disagree: %+v vs %+v", code, a, b)
		}
		if a.Price != nil && *a.Price != *b.Price {
			t.Errorf("%s: price differs: %v vs %v", code, *a.Price, *b.Price)
		}
	}
	if len(first.Errors) != len(second.Errors) {
		t.Errorf("error lists differ: %d vs %d", len(first.Errors), len(second.Errors))
	}
}

func TestRun_RejectsConcurrentStart(t *testing.T) {
	fake := &fakeLookup{block: make(chan struct{})}
	svc := NewEnrichmentService(fake, 5, time.Millisecond)
	svc.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Run(context.Background(), makeRefs(2), nil)
	}()

	// wait for the first run to be dispatching
	deadline := time.After(2 * time.Second)
	for fake.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("first run never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if !svc.Running() {
		t.Error("expected Running() while a run is active")
	}
	_, err := svc.Run(context.Background(), makeRefs(1), nil)
	if !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}

	close(fake.block)
	<-done

	if svc.Running() {
		t.Error("expected Running() false after completion")
	}
	if _, err := svc.Run(context.Background(), makeRefs(1), nil); err != nil {
		t.Errorf("expected restart after completion to succeed, got %v", err)
	}
}

func TestRun_CancellationReturnsPartialResult(t *testing.T) {
	fake := &fakeLookup{}
	svc := NewEnrichmentService(fake, 5, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	run, err := svc.Run(ctx, makeRefs(12), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if run == nil {
		t.Fatal("expected the partial run result")
	}
	// only the first batch completed
	if len(run.ResultsByCode) != 5 {
		t.Errorf("expected 5 completed results, got %d", len(run.ResultsByCode))
	}
}

func TestRun_EmptyInput(t *testing.T) {
	fake := &fakeLookup{}
	svc := NewEnrichmentService(fake, 5, time.Millisecond)

	run, err := svc.Run(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Counts.Total != 0 || len(run.ResultsByCode) != 0 {
		t.Errorf("expected empty run, got %+v", run.Counts)
	}
}
