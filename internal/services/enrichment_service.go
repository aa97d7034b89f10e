package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/epeers/corpactions/internal/models"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrRunInProgress is returned when Run is invoked while another run is active
var ErrRunInProgress = errors.New("enrichment run already in progress")

// ProgressFunc receives a notification after every individual lookup
// completion, so progress is granular within a batch.
type ProgressFunc func(completed, total int, detail string)

// Lookuper resolves a single StockRef into an EnrichedResult. Implementations
// must contain their own failures in the result's Error field.
type Lookuper interface {
	Lookup(ctx context.Context, ref models.StockRef) *models.EnrichedResult
}

const (
	stateIdle int32 = iota
	stateRunning
)

// EnrichmentService drives lookups for a StockRef list in fixed-size batches
// with a pacing delay between batches, isolating per-item failures. A second
// Run while one is active is rejected; each invocation builds a fresh
// RunResult with no state carried over.
type EnrichmentService struct {
	lookup     Lookuper
	batchSize  int
	batchDelay time.Duration

	state int32

	// sleep is replaceable in tests to observe pacing without waiting
	sleep func(ctx context.Context, d time.Duration) error
}

// NewEnrichmentService creates a new EnrichmentService. Non-positive batch
// parameters fall back to the rate-limit defaults of the upstream source.
func NewEnrichmentService(lookup Lookuper, batchSize int, batchDelay time.Duration) *EnrichmentService {
	if batchSize <= 0 {
		batchSize = 5
	}
	if batchDelay <= 0 {
		batchDelay = 1500 * time.Millisecond
	}
	return &EnrichmentService{
		lookup:     lookup,
		batchSize:  batchSize,
		batchDelay: batchDelay,
		sleep:      sleepContext,
	}
}

// Running reports whether a run is currently active
func (s *EnrichmentService) Running() bool {
	return atomic.LoadInt32(&s.state) == stateRunning
}

// Run executes lookups for all refs, batch by batch in input order. Batches
// fan out concurrently and rejoin before the pacing delay; no delay follows
// the final batch. Per-item failures never abort the run: the returned
// RunResult is always complete, even when every item failed. On context
// cancellation the partial RunResult built so far is returned together with
// the context error.
func (s *EnrichmentService) Run(ctx context.Context, refs []models.StockRef, progress ProgressFunc) (*models.RunResult, error) {
	if !atomic.CompareAndSwapInt32(&s.state, stateIdle, stateRunning) {
		return nil, ErrRunInProgress
	}
	defer atomic.StoreInt32(&s.state, stateIdle)

	total := len(refs)
	results := make([]*models.EnrichedResult, total)

	var mu sync.Mutex
	completed := 0
	var errRecords []models.ErrorRecord

	log.WithFields(log.Fields{"stocks": total, "batch_size": s.batchSize}).
		Info("starting enrichment run")

	for start := 0; start < total; start += s.batchSize {
		end := start + s.batchSize
		if end > total {
			end = total
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			ref := refs[i]
			g.Go(func() error {
				res := s.safeLookup(gctx, ref)

				mu.Lock()
				results[i] = res
				completed++
				if res.Error != "" {
					errRecords = append(errRecords, models.ErrorRecord{
						Code:   ref.RawCode,
						Ticker: ref.Ticker,
						Error:  res.Error,
					})
				}
				// emitted under the lock so counters arrive in order
				if progress != nil {
					detail := ref.RawCode
					if res.Error != "" {
						detail = fmt.Sprintf("%s: %s", ref.RawCode, res.Error)
					}
					progress(completed, total, detail)
				}
				mu.Unlock()
				return nil
			})
		}
		// lookups never return errors; Wait is purely the join barrier
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return buildRunResult(refs, results, errRecords), err
		}

		if end < total {
			if err := s.sleep(ctx, s.batchDelay); err != nil {
				return buildRunResult(refs, results, errRecords), err
			}
		}
	}

	result := buildRunResult(refs, results, errRecords)
	log.WithFields(log.Fields{
		"success":       result.Counts.Success,
		"not_available": result.Counts.NotAvailable,
		"errors":        result.Counts.Errors,
	}).Info("enrichment run complete")
	return result, nil
}

// safeLookup contains panics from a single bad series so they can never
// abort the batch
func (s *EnrichmentService) safeLookup(ctx context.Context, ref models.StockRef) (res *models.EnrichedResult) {
	defer func() {
		if r := recover(); r != nil {
			res = &models.EnrichedResult{Error: fmt.Sprintf("%v", r)}
		}
	}()
	res = s.lookup.Lookup(ctx, ref)
	if res == nil {
		res = &models.EnrichedResult{Error: "no result"}
	}
	return res
}

func buildRunResult(refs []models.StockRef, results []*models.EnrichedResult, errRecords []models.ErrorRecord) *models.RunResult {
	byCode := make(map[string]*models.EnrichedResult, len(refs))
	counts := models.RunCounts{Total: len(refs)}
	for i, ref := range refs {
		res := results[i]
		if res == nil {
			// item never ran (cancelled mid-run)
			continue
		}
		byCode[ref.RawCode] = res
		if res.Price != nil {
			counts.Success++
		}
		if res.Price == nil {
			counts.NotAvailable++
		}
	}
	counts.Errors = len(errRecords)
	return &models.RunResult{
		ResultsByCode: byCode,
		Errors:        errRecords,
		Counts:        counts,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
