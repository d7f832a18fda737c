// Package worker defines worker contracts for the per-event award pipeline.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/fanscore/internal/adapters/mq/queue"
	"github.com/okian/fanscore/internal/adapters/repository"
	"github.com/okian/fanscore/internal/domain/classify"
	"github.com/okian/fanscore/internal/domain/ledger"
	"github.com/okian/fanscore/internal/domain/model"
	"github.com/okian/fanscore/pkg/logger"
	"github.com/okian/fanscore/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second

	maxCommitAttempts = 3
	commitRetryDelay  = 100 * time.Millisecond

	// Observation method recorded for events that carry no money.
	methodSkipped = "skipped"
)

// Event abstracts what workers read off the queue.
type Event = model.ChatEvent

// Classifier resolves the participants a message intends to support.
type Classifier interface {
	Classify(text string) classify.Result
}

// Converter turns a paid amount into USD.
type Converter interface {
	ToUSD(amount float64, code string) (float64, bool)
}

// Distributor computes point increments for a classified event.
type Distributor interface {
	Distribute(eventID string, participants []string, usdAmount float64, roster []model.Participant) ledger.Distribution
}

// Store is the slice of the repository the pipeline writes through.
type Store interface {
	CommitAward(ctx context.Context, eventID string, awards []model.PointAward, pooled float64) error
}

// Recorder receives one observation per ingested event for later review.
type Recorder interface {
	Record(ctx context.Context, obs model.Observation)
}

// Publisher hands completed award summaries to the delivery side.
type Publisher interface {
	Publish(summary model.AwardSummary)
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Pipeline bundles the collaborators one worker runs events through.
type Pipeline struct {
	Classifier  Classifier
	Converter   Converter
	Distributor Distributor
	Store       Store
	Learning    Recorder
	Publisher   Publisher
	Roster      []model.Participant
}

// Worker processes events off the queue until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// It will process any remaining events before stopping.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing chat events.
type InMemoryWorker struct {
	queue    Queue
	pipeline Pipeline
	name     string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, pipeline Pipeline, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		pipeline: pipeline,
		name:     "worker", // default name
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	eventChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-eventChan:
			if !ok {
				// Channel closed, worker should stop
				return
			}

			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "error processing event", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processEvent runs one event through the award pipeline.
func (w *InMemoryWorker) processEvent(ctx context.Context, event queue.Event) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordWorkerProcessingLatency(float64(latency))
	}()

	metrics.RecordEventIngested()

	if !event.Paid() {
		w.pipeline.Learning.Record(ctx, model.Observation{
			EventID: event.ExternalID,
			Author:  event.Author,
			RawText: event.RawText,
			Kind:    event.Kind,
			Method:  methodSkipped,
		})
		return nil
	}

	metrics.RecordPaidEvent()

	result := w.pipeline.Classifier.Classify(event.RawText)
	metrics.RecordClassification(string(result.Method))

	usd, known := w.pipeline.Converter.ToUSD(event.Amount(), event.Currency)
	if !known {
		w.logger.Warn(ctx, "unknown currency, using raw amount",
			logger.String("eventID", event.ExternalID),
			logger.String("currency", event.Currency),
		)
	}

	w.pipeline.Learning.Record(ctx, model.Observation{
		EventID:      event.ExternalID,
		Author:       event.Author,
		RawText:      event.RawText,
		Kind:         event.Kind,
		USDAmount:    usd,
		Participants: result.Participants,
		Method:       string(result.Method),
		Confidence:   result.Confidence,
	})

	// A hostile message never awards anyone, not even the pool. The
	// empty commit still records the event id so a re-fetch cannot
	// turn it into an award later.
	dist := ledger.Distribution{Description: "suppressed by sentiment"}
	if !result.Suppressed {
		dist = w.pipeline.Distributor.Distribute(event.ExternalID, result.Participants, usd, w.pipeline.Roster)
	}

	if err := w.commitWithRetry(ctx, event.ExternalID, dist); err != nil {
		if errors.Is(err, repository.ErrDuplicateEvent) {
			metrics.RecordEventDuplicate()
			w.logger.Debug(ctx, "duplicate event skipped",
				logger.String("eventID", event.ExternalID),
			)
			return nil
		}
		metrics.RecordWorkerError()
		return fmt.Errorf("commit award for event %s: %w", event.ExternalID, err)
	}

	metrics.RecordAwardCommitted()
	var total int64
	for _, a := range dist.Awards {
		total += a.Points
	}
	metrics.RecordPointsAwarded(float64(total))
	if dist.Pooled > 0 {
		metrics.RecordPooledEvent()
	}

	w.logger.Info(ctx, "event processed",
		logger.String("eventID", event.ExternalID),
		logger.String("author", event.Author),
		logger.String("method", string(result.Method)),
		logger.Float64("usd", usd),
		logger.Int64("pointsTotal", total),
		logger.Float64("pooled", dist.Pooled),
	)

	if len(dist.Awards) > 0 || dist.Pooled > 0 {
		w.pipeline.Publisher.Publish(model.AwardSummary{
			EventID:      event.ExternalID,
			Author:       event.Author,
			Message:      event.RawText,
			Participants: result.Participants,
			PointsEach:   pointsEach(dist.Awards),
			PooledAmount: dist.Pooled,
			Description:  dist.Description,
			At:           time.Now(),
		})
	}

	return nil
}

// commitWithRetry retries transient commit failures a few times before
// surfacing a hard failure. Duplicate events come back unchanged.
func (w *InMemoryWorker) commitWithRetry(ctx context.Context, eventID string, dist ledger.Distribution) error {
	var err error
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		err = w.pipeline.Store.CommitAward(ctx, eventID, dist.Awards, dist.Pooled)
		if err == nil || errors.Is(err, repository.ErrDuplicateEvent) {
			return err
		}

		metrics.RecordAwardCommitRetry()
		w.logger.Warn(ctx, "award commit failed, retrying",
			logger.String("eventID", eventID),
			logger.Int("attempt", attempt),
			logger.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(commitRetryDelay):
		}
	}
	return err
}

func pointsEach(awards []model.PointAward) int64 {
	if len(awards) == 0 {
		return 0
	}
	return awards[0].Points
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	// Shutdown control
	shutdown chan struct{}

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, q Queue, pipeline Pipeline) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			q,
			pipeline,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	close(p.shutdown)

	for _, worker := range p.workers {
		select {
		case <-worker.done:
			// Worker finished
		case <-time.After(workerShutdownTimeout):
			// Worker timeout
		}
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new events
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
