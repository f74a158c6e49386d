// Package batch drives the fetch-normalize-determine pipeline across an
// identifier list. One identifier's failure never aborts the batch:
// every requested identifier yields exactly one result, success or
// failure, in input order.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ecomlab/go-buybox/analyzer"
	"github.com/ecomlab/go-buybox/models"
	"github.com/ecomlab/go-buybox/spapi"
)

// Fetcher is the slice of the API client the orchestrator needs.
type Fetcher interface {
	Verify(ctx context.Context) error
	FetchOffers(ctx context.Context, asin string) (*spapi.OffersPayload, error)
	FetchProductName(ctx context.Context, asin string) (string, error)
}

// ProgressFunc receives a notification after each identifier completes,
// success or failure. It runs on a dedicated goroutine and never blocks
// the pipeline.
type ProgressFunc func(completed, total int, latest models.AnalysisResult)

// Runner orchestrates one analysis run.
type Runner struct {
	fetcher  Fetcher
	workers  int
	progress ProgressFunc
	runID    string
}

// Option configures a Runner.
type Option func(*Runner)

// WithProgress registers a progress observer.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) {
		r.progress = fn
	}
}

// WithWorkers sets the number of concurrent pipeline workers. Global
// throughput stays capped by the quota limiter regardless.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// NewRunner builds a runner around the given fetcher.
func NewRunner(fetcher Fetcher, opts ...Option) (*Runner, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("batch: fetcher is required")
	}

	r := &Runner{
		fetcher: fetcher,
		workers: 4,
		runID:   uuid.NewString(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RunID identifies this run in logs and summaries.
func (r *Runner) RunID() string {
	return r.runID
}

// Run processes every identifier and returns one result per input, in
// input order. Duplicates are processed independently. Cancelling ctx
// lets in-flight identifiers abort promptly and records the rest with
// a cancelled failure; nothing is silently dropped. Run itself fails
// only for run-scope conditions such as an invalid credential provider.
func (r *Runner) Run(ctx context.Context, asins []string) ([]models.AnalysisResult, error) {
	if err := r.fetcher.Verify(ctx); err != nil {
		return nil, fmt.Errorf("credential check: %w", err)
	}

	slog.Info("starting analysis run",
		slog.String("run_id", r.runID),
		slog.Int("identifiers", len(asins)),
		slog.Int("workers", r.workers),
	)

	results := make([]models.AnalysisResult, len(asins))
	jobs := make(chan int)
	notifications := make(chan models.AnalysisResult, len(asins))

	var observerWG sync.WaitGroup
	observerWG.Add(1)
	go func() {
		defer observerWG.Done()
		completed := 0
		for latest := range notifications {
			completed++
			if r.progress != nil {
				r.progress(completed, len(asins), latest)
			}
		}
	}()

	var workerWG sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			for i := range jobs {
				results[i] = r.processOne(ctx, asins[i])
				notifications <- results[i]
			}
		}()
	}

	for i := range asins {
		jobs <- i
	}
	close(jobs)

	workerWG.Wait()
	close(notifications)
	observerWG.Wait()

	return results, nil
}

// processOne runs the pipeline for a single identifier. Failures are
// converted to a failure-carrying result at this boundary; they never
// propagate to the batch.
func (r *Runner) processOne(ctx context.Context, asin string) models.AnalysisResult {
	result := models.AnalysisResult{
		ProductID:  asin,
		AnalyzedAt: time.Now(),
	}

	if err := ctx.Err(); err != nil {
		result.Failure = &models.Failure{Kind: models.FailureCancelled, Message: "run cancelled"}
		return result
	}

	name, err := r.fetcher.FetchProductName(ctx, asin)
	if err != nil {
		return r.failed(asin, result, err)
	}
	result.ProductName = name

	payload, err := r.fetcher.FetchOffers(ctx, asin)
	if err != nil {
		return r.failed(asin, result, err)
	}

	offers, discarded := analyzer.Normalize(payload.Offers)
	result.TotalOfferCount = len(offers)
	result.DiscardedOfferCount = discarded
	result.WinningOffer, result.Reasons = analyzer.Determine(offers)

	slog.Debug("identifier analyzed",
		slog.String("run_id", r.runID),
		slog.String("asin", asin),
		slog.Int("offers", len(offers)),
		slog.Int("discarded", discarded),
	)
	return result
}

func (r *Runner) failed(asin string, result models.AnalysisResult, err error) models.AnalysisResult {
	result.ProductName = ""
	result.Failure = spapi.ClassifyFailure(err)
	slog.Warn("identifier failed",
		slog.String("run_id", r.runID),
		slog.String("asin", asin),
		slog.String("kind", string(result.Failure.Kind)),
		slog.Any("error", err),
	)
	return result
}

// Summarize aggregates a finished run into a RunSummary.
func Summarize(runID string, results []models.AnalysisResult, start, end time.Time) models.RunSummary {
	summary := models.RunSummary{
		RunID:      runID,
		StartTime:  start,
		EndTime:    end,
		TotalCount: len(results),
		FailuresBy: make(map[models.FailureKind]int),
	}
	for i := range results {
		if results[i].Succeeded() {
			summary.SuccessCount++
			continue
		}
		summary.FailureCount++
		summary.FailuresBy[results[i].Failure.Kind]++
	}
	return summary
}
