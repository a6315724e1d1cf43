package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/jeeinsight/internal/logging"
)

// JobProcessor drains whatever work is queued when it is called.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker calls a JobProcessor once at start, on every poll tick and
// whenever Notify is called.
type Worker struct {
	processor JobProcessor
	interval  time.Duration
	logger    *zap.Logger

	wake chan struct{}
	done chan struct{}

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// NewWorker creates a Worker polling every interval.
func NewWorker(processor JobProcessor, interval time.Duration, logger *zap.Logger) *Worker {
	return &Worker{
		processor: processor,
		interval:  interval,
		logger:    logging.OrNop(logger).Named("worker"),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Notify asks the worker to run before the next tick. It never blocks;
// notifications arriving while a run is pending collapse into one.
func (w *Worker) Notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Start runs the loop until ctx is cancelled or Stop is called. Either one
// also cancels the context handed to the processor, so a run in progress
// stops claiming new work.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w.mu.Lock()
	w.cancel = cancel
	if w.stopped {
		cancel()
	}
	w.mu.Unlock()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("started", zap.Duration("interval", w.interval))

	// Jobs left pending or abandoned by a previous process are picked up
	// right away.
	w.run(ctx, "start")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopped", zap.String("reason", w.stopReason()))
			return
		case <-w.wake:
			w.run(ctx, "notify")
		case <-ticker.C:
			w.run(ctx, "tick")
		}
	}
}

func (w *Worker) run(ctx context.Context, trigger string) {
	if ctx.Err() != nil {
		return
	}
	if err := w.processor.ProcessJobs(ctx); err != nil {
		w.logger.Error("processing jobs failed", zap.String("trigger", trigger), zap.Error(err))
	}
}

func (w *Worker) stopReason() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return "stop requested"
	}
	return "context cancelled"
}

// Stop ends the loop and waits for the job in flight to finish. It is safe
// to call more than once, but only after Start.
func (w *Worker) Stop() {
	w.mu.Lock()
	w.stopped = true
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()
	<-w.done
}
