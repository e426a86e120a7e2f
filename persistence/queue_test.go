package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// blockingStore fails a configurable number of initial appends and can delay
// every append past the writer's join timeout.
type blockingStore struct {
	mu       sync.Mutex
	records  []Record
	failures int
	delay    time.Duration
}

func (s *blockingStore) Append(ctx context.Context, rec Record) error {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("append failed")
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *blockingStore) Ping(ctx context.Context) error { return nil }
func (s *blockingStore) Close() error                   { return nil }

func (s *blockingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func fastConfig() Config {
	return Config{
		PollTimeout:     20 * time.Millisecond,
		RetryBackoff:    10 * time.Millisecond,
		ShutdownTimeout: 200 * time.Millisecond,
		BufferSize:      256,
	}
}

func TestQueueDrainsConcurrentProducers(t *testing.T) {
	store := &blockingStore{}
	q := NewQueue(store, fastConfig(), nil, zap.NewNop())
	q.Start()

	const producers, perProducer = 10, 10

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				rec := NewRecord("user", "kamiq", "question", []byte("answer"))
				require.NoError(t, q.Enqueue(rec))
			}
		}(i)
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return store.count() == producers*perProducer
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, q.Shutdown(context.Background()))
	assert.Equal(t, producers*perProducer, store.count())

	// No duplicates.
	seen := make(map[string]bool)
	for _, rec := range store.records {
		assert.False(t, seen[rec.ID], "duplicate record %s", rec.ID)
		seen[rec.ID] = true
	}
}

func TestQueuePreservesFIFOOrder(t *testing.T) {
	store := &blockingStore{}
	q := NewQueue(store, fastConfig(), nil, zap.NewNop())
	q.Start()

	ids := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		rec := NewRecord("user", "kamiq", "question", []byte("answer"))
		ids = append(ids, rec.ID)
		require.NoError(t, q.Enqueue(rec))
	}

	require.Eventually(t, func() bool { return store.count() == 20 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, q.Shutdown(context.Background()))

	for i, rec := range store.records {
		assert.Equal(t, ids[i], rec.ID)
	}
}

func TestQueueRetriesUntilSuccess(t *testing.T) {
	store := &blockingStore{failures: 3}
	q := NewQueue(store, fastConfig(), nil, zap.NewNop())
	q.Start()

	require.NoError(t, q.Enqueue(NewRecord("user", "kamiq", "question", []byte("answer"))))

	// The record survives three failed attempts and lands on the fourth.
	require.Eventually(t, func() bool { return store.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, q.Shutdown(context.Background()))
}

func TestQueueShutdownBoundedWithSlowStore(t *testing.T) {
	store := &blockingStore{delay: 10 * time.Second}
	q := NewQueue(store, fastConfig(), nil, zap.NewNop())
	q.Start()

	for i := 0; i < 50; i++ {
		require.NoError(t, q.Enqueue(NewRecord("user", "kamiq", "question", []byte("answer"))))
	}

	start := time.Now()
	err := q.Shutdown(context.Background())
	elapsed := time.Since(start)

	// The call returns within the join bound even though the store is
	// stuck, and at most the enqueued records were written.
	assert.Less(t, elapsed, 2*time.Second)
	assert.LessOrEqual(t, store.count(), 50)
	if err != nil {
		assert.ErrorIs(t, err, ErrJoinTimeout)
	}
}

func TestQueueEnqueueAfterShutdown(t *testing.T) {
	q := NewQueue(&blockingStore{}, fastConfig(), nil, zap.NewNop())
	q.Start()
	require.NoError(t, q.Shutdown(context.Background()))

	err := q.Enqueue(NewRecord("user", "kamiq", "question", []byte("answer")))
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueueFullFailsFast(t *testing.T) {
	cfg := fastConfig()
	cfg.BufferSize = 1

	// Writer never started: the buffer fills immediately.
	q := NewQueue(&blockingStore{}, cfg, nil, zap.NewNop())

	require.NoError(t, q.Enqueue(NewRecord("user", "kamiq", "q1", []byte("a"))))

	start := time.Now()
	err := q.Enqueue(NewRecord("user", "kamiq", "q2", []byte("a")))
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestQueueShutdownIdempotent(t *testing.T) {
	q := NewQueue(&blockingStore{}, fastConfig(), nil, zap.NewNop())
	q.Start()

	require.NoError(t, q.Shutdown(context.Background()))
	require.NoError(t, q.Shutdown(context.Background()))
}
