package llm

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// WorkerPoolConfig configures the provider worker pool.
type WorkerPoolConfig struct {
	MaxConcurrent int // Maximum concurrent provider calls
}

// DefaultWorkerPoolConfig returns sensible defaults.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		MaxConcurrent: 8,
	}
}

// WorkerPool manages concurrent provider call execution with bounded
// parallelism. A semaphore limits outstanding requests; results are
// collected as they complete so new requests start immediately.
type WorkerPool struct {
	config WorkerPoolConfig
	logger *zap.Logger
}

// NewWorkerPool creates a new provider worker pool. A non-positive
// MaxConcurrent falls back to the defaults.
func NewWorkerPool(config WorkerPoolConfig, logger *zap.Logger) *WorkerPool {
	if config.MaxConcurrent < 1 {
		config = DefaultWorkerPoolConfig()
	}
	return &WorkerPool{
		config: config,
		logger: logger.Named("worker-pool"),
	}
}

// WorkItem is one unit of work submitted to the pool.
type WorkItem[T any] struct {
	ID      string // For logging/tracking
	Execute func(ctx context.Context) (T, error)
}

// WorkResult pairs a work item's ID with its outcome.
type WorkResult[T any] struct {
	ID     string
	Result T
	Err    error
}

// Process executes all work items with bounded parallelism and returns
// results in completion order. Failures do not stop the remaining
// items; a cancelled context fails items that have not yet acquired a
// slot.
func Process[T any](
	ctx context.Context,
	pool *WorkerPool,
	items []WorkItem[T],
	onProgress func(completed, total int),
) []WorkResult[T] {
	if len(items) == 0 {
		return nil
	}

	out := make(chan WorkResult[T], len(items))
	slots := make(chan struct{}, pool.config.MaxConcurrent)

	var wg sync.WaitGroup
	wg.Add(len(items))
	for _, item := range items {
		go func() {
			defer wg.Done()

			select {
			case slots <- struct{}{}:
				defer func() { <-slots }()
			case <-ctx.Done():
				var zero T
				out <- WorkResult[T]{ID: item.ID, Result: zero, Err: ctx.Err()}
				return
			}

			result, err := item.Execute(ctx)
			out <- WorkResult[T]{ID: item.ID, Result: result, Err: err}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	results := make([]WorkResult[T], 0, len(items))
	for r := range out {
		results = append(results, r)
		if onProgress != nil {
			onProgress(len(results), len(items))
		}
	}
	return results
}
