package queue_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-zawadi/internal/queue"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// run starts w in the background and waits for it to stop at cleanup.
func run(t *testing.T, ctx context.Context, w queue.Worker) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() { <-done })
}

func TestEnqueueValidates(t *testing.T) {
	ctx := context.Background()
	require.Error(t, queue.Enqueuer{}.Enqueue(ctx, queue.Task{Kind: "pos-submit"}))
	require.Error(t, queue.Enqueuer{R: redisClient(t)}.Enqueue(ctx, queue.Task{Kind: "  "}))
}

func TestEnqueueDeduplicatesByKey(t *testing.T) {
	client := redisClient(t)
	enq := queue.Enqueuer{R: client, Prefix: "zawadi", DedupTTL: time.Minute}
	ctx := context.Background()

	for range 3 {
		require.NoError(t, enq.Enqueue(ctx, queue.Task{Kind: "pos-submit", Payload: []byte(`{"orderId":"o1"}`), IdempotencyKey: "o1"}))
	}
	require.NoError(t, enq.Enqueue(ctx, queue.Task{Kind: "pos-submit", Payload: []byte(`{"orderId":"o2"}`), IdempotencyKey: "o2"}))

	ready, processing, err := enq.Stats(ctx, "pos-submit")
	require.NoError(t, err)
	require.Equal(t, int64(2), ready)
	require.Zero(t, processing)
}

func TestWorkerDeliversFirstAttempt(t *testing.T) {
	client := redisClient(t)
	enq := queue.Enqueuer{R: client, Prefix: "test"}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, enq.Enqueue(ctx, queue.Task{Kind: "pos-submit", Payload: []byte("payload"), IdempotencyKey: "1", MaxAttempts: 3}))

	got := make(chan queue.Task, 1)
	run(t, ctx, queue.Worker{
		R:                 client,
		Prefix:            "test",
		Kind:              "pos-submit",
		Concurrency:       1,
		VisibilityTimeout: time.Second,
		RetryBase:         10 * time.Millisecond,
		Handler: func(_ context.Context, task queue.Task) error {
			got <- task
			cancel()
			return nil
		},
	})

	select {
	case task := <-got:
		require.Equal(t, []byte("payload"), task.Payload)
		require.Equal(t, 1, task.Attempt)
		require.False(t, task.LastAttempt())
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for payload")
	}
}

func TestWorkerRetriesUntilLastAttempt(t *testing.T) {
	client := redisClient(t)
	enq := queue.Enqueuer{R: client, Prefix: "retry"}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, enq.Enqueue(ctx, queue.Task{Kind: "pos-submit", Payload: []byte("retry"), IdempotencyKey: "r1", MaxAttempts: 3}))

	var (
		mu   sync.Mutex
		seen []bool
	)
	run(t, ctx, queue.Worker{
		R:                 client,
		Prefix:            "retry",
		Kind:              "pos-submit",
		Concurrency:       1,
		VisibilityTimeout: time.Second,
		RetryBase:         5 * time.Millisecond,
		RetryJitter:       0.1,
		Handler: func(_ context.Context, task queue.Task) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, task.LastAttempt())
			if !task.LastAttempt() {
				return errors.New("pos unavailable")
			}
			cancel()
			return nil
		},
	})

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not retry in time")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []bool{false, false, true}, seen)
}

func TestWorkerMovesExhaustedTaskToDLQ(t *testing.T) {
	client := redisClient(t)
	store := newMemoryStore()
	enq := queue.Enqueuer{R: client, Prefix: "dlq", MaxAttempts: 2}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := zerolog.New(io.Discard)
	run(t, ctx, queue.Worker{
		R:                 client,
		Prefix:            "dlq",
		Kind:              "pos-submit",
		Concurrency:       1,
		VisibilityTimeout: 120 * time.Millisecond,
		RetryBase:         20 * time.Millisecond,
		Store:             store,
		Logger:            &log,
		Handler: func(context.Context, queue.Task) error {
			return errors.New("pos unavailable")
		},
	})

	require.NoError(t, enq.Enqueue(context.Background(), queue.Task{Kind: "pos-submit", Payload: []byte("body"), IdempotencyKey: "dlq1"}))

	require.Eventually(t, func() bool {
		count, err := store.CountQueueDlq(context.Background(), "pos-submit")
		return err == nil && count == 1
	}, 2*time.Second, 20*time.Millisecond)

	for _, entry := range store.snapshot() {
		require.Equal(t, "pos-submit", entry.Kind)
		require.Equal(t, "dlq1", entry.IdempotencyKey)
		require.Equal(t, 2, entry.Attempts)
		require.NotNil(t, entry.LastError)
		require.Equal(t, "pos unavailable", *entry.LastError)
		require.NotEmpty(t, entry.Payload)
	}
}

func TestVisibilityTimeoutRedelivers(t *testing.T) {
	client := redisClient(t)
	enq := queue.Enqueuer{R: client, Prefix: "vis", DedupTTL: time.Minute, MaxAttempts: 3}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempts := make(chan int, 2)
	log := zerolog.New(io.Discard)
	run(t, ctx, queue.Worker{
		R:                 client,
		Prefix:            "vis",
		Kind:              "pos-submit",
		Concurrency:       1,
		VisibilityTimeout: 150 * time.Millisecond,
		SoftDeadline:      80 * time.Millisecond,
		RetryBase:         20 * time.Millisecond,
		Store:             newMemoryStore(),
		Logger:            &log,
		Handler: func(jobCtx context.Context, task queue.Task) error {
			attempts <- task.Attempt
			if task.Attempt == 1 {
				<-jobCtx.Done()
				return jobCtx.Err()
			}
			cancel()
			return nil
		},
	})

	require.NoError(t, enq.Enqueue(context.Background(), queue.Task{Kind: "pos-submit", Payload: []byte("payload"), IdempotencyKey: "a1"}))

	require.Eventually(t, func() bool { return len(attempts) >= 2 }, 2*time.Second, 20*time.Millisecond)
	require.Equal(t, 1, <-attempts)
	require.Equal(t, 2, <-attempts)

	<-ctx.Done()
	require.Eventually(t, func() bool {
		depth, err := client.ZCard(context.Background(), "vis:queue:pos-submit").Result()
		return err == nil && depth == 0
	}, time.Second, 20*time.Millisecond)
}
