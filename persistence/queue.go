package persistence

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Queue errors.
var (
	ErrQueueClosed = errors.New("persistence queue is closed")
	ErrQueueFull   = errors.New("persistence queue is full")
	ErrJoinTimeout = errors.New("writer did not stop within the join timeout")
)

// Config configures the queue and its writer.
type Config struct {
	// PollTimeout bounds each wait for the next record. An empty poll is
	// the writer's cooperative shutdown checkpoint.
	PollTimeout time.Duration `yaml:"poll_timeout" json:"poll_timeout"`

	// RetryBackoff is the fixed delay between failed append attempts. The
	// writer holds the record until the append succeeds.
	RetryBackoff time.Duration `yaml:"retry_backoff" json:"retry_backoff"`

	// ShutdownTimeout bounds the join on the writer goroutine. Records
	// still queued after the timeout are abandoned and logged.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// BufferSize is the queue capacity. Enqueue fails fast when full
	// rather than blocking the request path.
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`
}

// DefaultConfig returns the default queue configuration.
func DefaultConfig() Config {
	return Config{
		PollTimeout:     5 * time.Second,
		RetryBackoff:    2 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		BufferSize:      1024,
	}
}

// Observer receives writer lifecycle counts. Implemented by the metrics
// collector; a nil Observer disables reporting.
type Observer interface {
	RecordPersisted()
	RecordAbandoned(n int)
	RecordAppendRetry()
}

// Queue decouples request handling from durable-storage latency. Producers
// enqueue without waiting on I/O; a single writer goroutine drains the queue
// in FIFO order.
type Queue struct {
	ch       chan Record
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// writeCtx is cancelled on shutdown so a store blocked in Append can
	// bail out instead of pinning the writer past the join timeout.
	writeCtx    context.Context
	writeCancel context.CancelFunc

	store    DurableStore
	config   Config
	observer Observer
	logger   *zap.Logger
}

// NewQueue creates a Queue writing to store. Call Start to launch the
// writer.
func NewQueue(store DurableStore, config Config, observer Observer, logger *zap.Logger) *Queue {
	def := DefaultConfig()
	if config.PollTimeout <= 0 {
		config.PollTimeout = def.PollTimeout
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = def.RetryBackoff
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = def.ShutdownTimeout
	}
	if config.BufferSize <= 0 {
		config.BufferSize = def.BufferSize
	}

	writeCtx, writeCancel := context.WithCancel(context.Background())
	return &Queue{
		ch:          make(chan Record, config.BufferSize),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		writeCtx:    writeCtx,
		writeCancel: writeCancel,
		store:       store,
		config:      config,
		observer:    observer,
		logger:      logger.With(zap.String("component", "persistence_queue")),
	}
}

// Start launches the writer goroutine.
func (q *Queue) Start() {
	go q.run()
}

// Enqueue hands a record to the writer. It never blocks on I/O: a full queue
// or a stopped queue fails fast with a logged warning, which is the bounded
// loss the pipeline accepts.
func (q *Queue) Enqueue(rec Record) error {
	select {
	case <-q.stop:
		return ErrQueueClosed
	default:
	}

	select {
	case q.ch <- rec:
		return nil
	default:
		q.logger.Warn("queue full, dropping record",
			zap.String("record_id", rec.ID),
			zap.String("user_id", rec.UserID),
		)
		if q.observer != nil {
			q.observer.RecordAbandoned(1)
		}
		return ErrQueueFull
	}
}

// Depth returns the number of records waiting in the queue.
func (q *Queue) Depth() int { return len(q.ch) }

// Shutdown stops the writer and joins it within the configured timeout.
// Records still queued afterwards are abandoned: counted, logged, and the
// process moves on. Safe to call more than once.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.stopOnce.Do(func() {
		close(q.stop)
		q.writeCancel()
	})

	var err error
	select {
	case <-q.done:
	case <-time.After(q.config.ShutdownTimeout):
		err = ErrJoinTimeout
	case <-ctx.Done():
		err = ctx.Err()
	}

	if n := len(q.ch); n > 0 {
		q.logger.Warn("abandoning queued records on shutdown", zap.Int("count", n))
		if q.observer != nil {
			q.observer.RecordAbandoned(n)
		}
	}
	return err
}

// run is the single-consumer writer loop: pop with a bounded wait, append
// with retries, repeat until stopped.
func (q *Queue) run() {
	defer close(q.done)

	timer := time.NewTimer(q.config.PollTimeout)
	defer timer.Stop()

	for {
		select {
		case <-q.stop:
			return
		default:
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(q.config.PollTimeout)

		select {
		case <-q.stop:
			return
		case rec := <-q.ch:
			q.write(rec)
		case <-timer.C:
			// Idle checkpoint, loop to observe the stop flag.
		}
	}
}

// write appends one record, retrying with a fixed backoff until it succeeds
// or shutdown abandons it. The record is never dropped on a transient
// failure.
func (q *Queue) write(rec Record) {
	for {
		err := q.store.Append(q.writeCtx, rec)
		if err == nil {
			if q.observer != nil {
				q.observer.RecordPersisted()
			}
			return
		}

		q.logger.Error("durable append failed, retrying",
			zap.String("record_id", rec.ID),
			zap.Duration("backoff", q.config.RetryBackoff),
			zap.Error(err),
		)
		if q.observer != nil {
			q.observer.RecordAppendRetry()
		}

		select {
		case <-q.stop:
			q.logger.Warn("abandoning record mid-retry on shutdown",
				zap.String("record_id", rec.ID),
			)
			if q.observer != nil {
				q.observer.RecordAbandoned(1)
			}
			return
		case <-time.After(q.config.RetryBackoff):
		}
	}
}
