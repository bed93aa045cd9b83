package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWorkerPool_AppliesDefaults(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{}, zap.NewNop())
	assert.Equal(t, DefaultWorkerPoolConfig(), pool.config)

	pool = NewWorkerPool(WorkerPoolConfig{MaxConcurrent: 3}, zap.NewNop())
	assert.Equal(t, 3, pool.config.MaxConcurrent)
}

func TestProcess_AllItemsComplete(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxConcurrent: 4}, zap.NewNop())

	items := make([]WorkItem[int], 10)
	for i := range items {
		n := i
		items[i] = WorkItem[int]{
			ID:      fmt.Sprintf("item-%d", n),
			Execute: func(ctx context.Context) (int, error) { return n * 2, nil },
		}
	}

	results := Process(context.Background(), pool, items, nil)
	require.Len(t, results, 10)

	seen := make(map[string]int)
	for _, r := range results {
		require.NoError(t, r.Err)
		seen[r.ID] = r.Result
	}
	assert.Equal(t, 6, seen["item-3"])
	assert.Len(t, seen, 10)
}

func TestProcess_BoundedConcurrency(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxConcurrent: 2}, zap.NewNop())

	var current, peak int32
	var mu sync.Mutex

	items := make([]WorkItem[struct{}], 8)
	for i := range items {
		items[i] = WorkItem[struct{}]{
			ID: fmt.Sprintf("item-%d", i),
			Execute: func(ctx context.Context) (struct{}, error) {
				n := atomic.AddInt32(&current, 1)
				mu.Lock()
				if n > peak {
					peak = n
				}
				mu.Unlock()
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&current, -1)
				return struct{}{}, nil
			},
		}
	}

	results := Process(context.Background(), pool, items, nil)
	require.Len(t, results, 8)
	assert.LessOrEqual(t, peak, int32(2), "concurrency should be bounded")
}

func TestProcess_ContinuesAfterFailures(t *testing.T) {
	pool := NewWorkerPool(DefaultWorkerPoolConfig(), zap.NewNop())

	boom := errors.New("boom")
	items := []WorkItem[string]{
		{ID: "ok-1", Execute: func(ctx context.Context) (string, error) { return "a", nil }},
		{ID: "fail", Execute: func(ctx context.Context) (string, error) { return "", boom }},
		{ID: "ok-2", Execute: func(ctx context.Context) (string, error) { return "b", nil }},
	}

	results := Process(context.Background(), pool, items, nil)
	require.Len(t, results, 3)

	var failures, successes int
	for _, r := range results {
		if r.Err != nil {
			failures++
			assert.Equal(t, "fail", r.ID)
		} else {
			successes++
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, 2, successes)
}

func TestProcess_ReportsProgress(t *testing.T) {
	pool := NewWorkerPool(DefaultWorkerPoolConfig(), zap.NewNop())

	items := make([]WorkItem[int], 5)
	for i := range items {
		items[i] = WorkItem[int]{
			ID:      fmt.Sprintf("item-%d", i),
			Execute: func(ctx context.Context) (int, error) { return 0, nil },
		}
	}

	var calls [][2]int
	Process(context.Background(), pool, items, func(completed, total int) {
		calls = append(calls, [2]int{completed, total})
	})

	require.Len(t, calls, 5)
	assert.Equal(t, [2]int{1, 5}, calls[0])
	assert.Equal(t, [2]int{5, 5}, calls[4])
}

func TestProcess_EmptyItems(t *testing.T) {
	pool := NewWorkerPool(DefaultWorkerPoolConfig(), zap.NewNop())
	assert.Nil(t, Process[int](context.Background(), pool, nil, nil))
}

func TestMockClient_Defaults(t *testing.T) {
	mock := NewMockClient()

	resp, err := mock.GenerateResponse(context.Background(), "p", "s", 0.3)
	require.NoError(t, err)
	assert.Empty(t, resp)
	generate, _ := mock.Calls()
	assert.Equal(t, 1, generate)

	emb, err := mock.CreateEmbedding(context.Background(), "text", "")
	require.NoError(t, err)
	assert.Nil(t, emb)
	_, embed := mock.Calls()
	assert.Equal(t, 1, embed)

	assert.Equal(t, "mock-model", mock.GetModel())
}
