// Package service assembles the fan scoring pipeline: durable store,
// credential pool, chat client, poller, queue, workers, and sinks.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/fanscore/internal/adapters/credpool"
	eventqueue "github.com/okian/fanscore/internal/adapters/mq/queue"
	workerpool "github.com/okian/fanscore/internal/adapters/mq/worker"
	"github.com/okian/fanscore/internal/adapters/poller"
	"github.com/okian/fanscore/internal/adapters/repository"
	"github.com/okian/fanscore/internal/adapters/sink"
	"github.com/okian/fanscore/internal/adapters/youtube"
	"github.com/okian/fanscore/internal/domain/classify"
	"github.com/okian/fanscore/internal/domain/currency"
	"github.com/okian/fanscore/internal/domain/dedupe"
	"github.com/okian/fanscore/internal/domain/ledger"
	"github.com/okian/fanscore/internal/domain/model"
	"github.com/okian/fanscore/pkg/logger"
	"github.com/okian/fanscore/pkg/metrics"
)

const shutdownTimeout = 30 * time.Second

// Service owns every long-lived component and their lifecycles.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      *repository.SQLiteStore
	creds      *credpool.Pool
	chat       *youtube.Client
	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool
	poll       *poller.Poller
	delivery   *sink.Delivery
	learning   *sink.Learning

	// Configuration
	videoID       string
	dbPath        string
	apiKeys       []string
	apiBaseURL    string
	workerCount   int
	queueSize     int
	dedupeSize    int
	effectiveness float64
	pollInterval  time.Duration
	backoff       time.Duration
	probeInterval time.Duration
	consumer      sink.Consumer

	// State
	started      bool
	cancel       context.CancelFunc
	workerCancel context.CancelFunc
	wg           sync.WaitGroup

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithVideoID sets the broadcast to follow.
func WithVideoID(id string) Option {
	return func(s *Service) {
		s.videoID = id
	}
}

// WithDBPath sets the SQLite database file.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithAPIKeys seeds the credential store on startup.
func WithAPIKeys(keys []string) Option {
	return func(s *Service) {
		s.apiKeys = keys
	}
}

// WithAPIBaseURL overrides the upstream API host.
func WithAPIBaseURL(baseURL string) Option {
	return func(s *Service) {
		s.apiBaseURL = baseURL
	}
}

// WithWorkerCount sets the number of pipeline workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many recently seen event ids are remembered
// to shed page overlap before it reaches the queue.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithEffectiveness scales committed points into displayed points.
func WithEffectiveness(factor float64) Option {
	return func(s *Service) {
		if factor > 0 && factor <= 1 {
			s.effectiveness = factor
		}
	}
}

// WithPollInterval sets the wait between pages when the upstream
// suggests none.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithBackoff sets the wait before retrying a failed page.
func WithBackoff(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.backoff = d
		}
	}
}

// WithProbeInterval sets how often inactive credentials are re-probed.
func WithProbeInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.probeInterval = d
		}
	}
}

// WithConsumer sets the receiver of award summaries. The default
// consumer logs each summary.
func WithConsumer(c sink.Consumer) Option {
	return func(s *Service) {
		if c != nil {
			s.consumer = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbPath:        "fanscore.sqlite3",
		workerCount:   runtime.NumCPU() * 4,
		queueSize:     10_000,
		dedupeSize:    50_000,
		effectiveness: 0.7,
		pollInterval:  5 * time.Second,
		backoff:       10 * time.Second,
		probeInterval: 5 * time.Minute,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the store, wires the pipeline, and launches the
// credential probe and the poller. It returns once everything is
// running; the poller's lifetime is bounded by ctx.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.videoID == "" {
		return errors.New("video id is required")
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.logger.Info(ctx, "starting fan scoring service",
		logger.String("videoID", s.videoID),
		logger.String("dbPath", s.dbPath),
	)

	store, err := repository.Open(s.dbPath, repository.WithEffectiveness(s.effectiveness))
	if err != nil {
		cancel()
		return fmt.Errorf("open store: %w", err)
	}
	s.store = store

	if len(s.apiKeys) > 0 {
		if err := store.SeedCredentials(ctx, s.apiKeys); err != nil {
			cancel()
			_ = store.Close()
			return fmt.Errorf("seed credentials: %w", err)
		}
	}

	roster, err := store.Roster(ctx)
	if err != nil {
		cancel()
		_ = store.Close()
		return fmt.Errorf("load roster: %w", err)
	}
	if len(roster) == 0 {
		s.logger.Warn(ctx, "roster is empty, every paid event will pool")
	}

	chatOpts := []youtube.Option{}
	if s.apiBaseURL != "" {
		chatOpts = append(chatOpts, youtube.WithBaseURL(s.apiBaseURL))
	}
	s.chat = youtube.NewClient(chatOpts...)

	creds, err := credpool.New(ctx, store,
		credpool.WithProbeInterval(s.probeInterval),
		credpool.WithProbeFunc(func(ctx context.Context, cred model.Credential) error {
			return s.chat.Probe(ctx, cred.APIKey)
		}),
	)
	if err != nil {
		cancel()
		_ = store.Close()
		return fmt.Errorf("credential pool: %w", err)
	}
	s.creds = creds

	consumer := s.consumer
	if consumer == nil {
		consumer = s.logSummary
	}
	s.delivery = sink.NewDelivery(runCtx, consumer)
	s.learning = sink.NewLearning(store)

	s.eventQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
	)

	pipeline := workerpool.Pipeline{
		Classifier:  classify.New(roster),
		Converter:   currency.New(),
		Distributor: ledger.New(),
		Store:       store,
		Learning:    s.learning,
		Publisher:   s.delivery,
		Roster:      roster,
	}
	// Workers outlive the poller's context so a shutdown drains the
	// queue instead of abandoning it.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	s.workerCancel = workerCancel
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, pipeline)
	s.workerPool.Start(workerCtx)

	filter := &dedupFilter{
		queue: s.eventQueue,
		seen:  dedupe.New(dedupe.WithCapacity(s.dedupeSize)),
	}
	s.poll = poller.New(s.chat, creds, store, filter, s.videoID,
		poller.WithDefaultInterval(s.pollInterval),
		poller.WithBackoff(s.backoff),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		creds.RunProbe(runCtx)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.poll.Run(runCtx); err != nil {
			s.logger.Error(runCtx, "poller stopped", logger.Error(err))
		}
	}()

	s.started = true
	s.logger.Info(ctx, "fan scoring service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("participants", len(roster)),
	)

	return nil
}

// Stop shuts the pipeline down back to front: the poller first so no
// new pages arrive, then the workers drain the queue, then the sinks
// and the store close.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping fan scoring service")

	s.cancel()
	s.wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.workerPool.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	s.workerCancel()

	s.delivery.Close()

	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "store close failed", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "fan scoring service stopped")
}

// Standings returns the current scoreboard.
func (s *Service) Standings(ctx context.Context) ([]repository.Standing, error) {
	return s.store.Standings(ctx)
}

// PoolBalance returns the accumulated unattributed USD amount.
func (s *Service) PoolBalance(ctx context.Context) (float64, error) {
	return s.store.PoolBalance(ctx)
}

// PollerState reports the poller's lifecycle state.
func (s *Service) PollerState() poller.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.poll == nil {
		return poller.StateStopped
	}
	return s.poll.State()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}

	if s.started {
		queueLen := s.eventQueue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["pollerState"] = string(s.poll.State())
		stats["activeCredentials"] = s.creds.ActiveCount()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
		metrics.UpdateCredentialsActive(s.creds.ActiveCount())
	}

	return stats
}

// dedupFilter sits between the poller and the queue. Events whose ids
// were seen recently are acknowledged without being enqueued; the
// durable store remains the authority for anything the cache forgot.
type dedupFilter struct {
	queue *eventqueue.InMemoryQueue
	seen  dedupe.Deduper
}

func (f *dedupFilter) Enqueue(ctx context.Context, e model.ChatEvent) bool {
	if f.seen.SeenAndRecord(ctx, e.ExternalID) {
		metrics.RecordEventDuplicate()
		return true
	}
	ok := f.queue.Enqueue(ctx, e)
	if !ok {
		f.seen.Unrecord(ctx, e.ExternalID)
	}
	return ok
}

func (s *Service) logSummary(ctx context.Context, summary model.AwardSummary) {
	s.logger.Info(ctx, "award",
		logger.String("id", summary.ID),
		logger.String("eventID", summary.EventID),
		logger.String("author", summary.Author),
		logger.Any("participants", summary.Participants),
		logger.Int64("pointsEach", summary.PointsEach),
		logger.Float64("pooled", summary.PooledAmount),
	)
}
