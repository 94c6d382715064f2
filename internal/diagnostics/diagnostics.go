// Package diagnostics records operation timing and outcomes.
//
// Events are pushed onto a bounded queue and drained by a single writer
// goroutine, so log lines never interleave even under concurrent calls.
// Recording is fire-and-forget: a full queue drops the event rather than
// blocking or failing the operation that emitted it.
package diagnostics

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/memstore/internal/infrastructure/logging"
)

// Event describes one completed operation.
type Event struct {
	Operation string
	Path      string
	Success   bool
	Error     string
	Duration  time.Duration
}

// Sink drains diagnostic events through a single writer.
type Sink struct {
	logger  *logging.Logger
	events  chan Event
	dropped int64

	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

// NewSink creates a sink with the given queue size and starts its writer.
func NewSink(logger *logging.Logger, queueSize int) *Sink {
	if queueSize <= 0 {
		queueSize = 1024
	}
	s := &Sink{
		logger: logger,
		events: make(chan Event, queueSize),
		done:   make(chan struct{}),
	}
	go s.drain()
	return s
}

// Record enqueues an event without blocking. Events are dropped when the
// queue is full; diagnostics never gate operation correctness.
func (s *Sink) Record(ev Event) {
	// The enqueue stays under the mutex so it can never race Close's
	// channel close; the send itself is non-blocking either way.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.events <- ev:
	default:
		s.dropped++
	}
}

// Close stops accepting events and waits for the queue to drain.
func (s *Sink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.events)
	<-s.done
}

// Dropped returns how many events were discarded due to a full queue.
func (s *Sink) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *Sink) drain() {
	defer close(s.done)
	for ev := range s.events {
		fields := []zap.Field{
			zap.String("operation", ev.Operation),
			zap.String("path", ev.Path),
			zap.Bool("success", ev.Success),
			zap.Duration("duration", ev.Duration),
		}
		if ev.Error != "" {
			fields = append(fields, zap.String("error", ev.Error))
		}
		if ev.Success {
			s.logger.Info("operation completed", fields...)
		} else {
			s.logger.Warn("operation failed", fields...)
		}
	}
}
