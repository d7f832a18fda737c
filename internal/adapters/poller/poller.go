// Package poller drives paginated retrieval of the live chat stream and
// feeds raw events into the pipeline queue.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/fanscore/internal/adapters/credpool"
	"github.com/okian/fanscore/internal/adapters/youtube"
	"github.com/okian/fanscore/internal/domain/model"
	"github.com/okian/fanscore/pkg/logger"
	"github.com/okian/fanscore/pkg/metrics"
)

// Default poller configuration constants.
const (
	defaultPollInterval = 5 * time.Second
	defaultBackoff      = 10 * time.Second
	defaultTitleRecheck = 2 * time.Hour
)

// State is the poller's lifecycle phase.
type State string

// Poller states.
const (
	StateBootstrapping State = "bootstrapping"
	StatePolling       State = "polling"
	StateBackoff       State = "backoff"
	StateStopped       State = "stopped"
)

// Chat is the slice of the upstream client the poller uses.
type Chat interface {
	VideoInfo(ctx context.Context, videoID, key string) (youtube.VideoInfo, error)
	ChatPage(ctx context.Context, liveChatID, pageToken, key string) (youtube.Page, error)
}

// Credentials hands out keys and hears about their failures.
type Credentials interface {
	Next(ctx context.Context) (model.Credential, error)
	ReportFailure(ctx context.Context, cred model.Credential, reason credpool.FailureReason)
	Size() int
}

// CursorStore persists the resumption state between runs.
type CursorStore interface {
	Cursor(ctx context.Context) (model.Cursor, error)
	SaveCursor(ctx context.Context, cursor model.Cursor) error
}

// Sink receives the raw events of each fetched page.
type Sink interface {
	Enqueue(ctx context.Context, e model.ChatEvent) bool
}

// Poller owns the continuation token: it advances only after a page's
// events were handed to the sink, and it is persisted so a restart
// resumes where the last run stopped. Re-handing an overlapping page is
// safe because admission downstream is idempotent.
type Poller struct {
	chat    Chat
	creds   Credentials
	store   CursorStore
	sink    Sink
	videoID string

	defaultInterval time.Duration
	backoff         time.Duration
	titleRecheck    time.Duration

	mu         sync.Mutex
	state      State
	liveChatID string
	showDay    int

	log logger.Logger
}

// New creates a poller for one broadcast.
func New(chat Chat, creds Credentials, store CursorStore, sink Sink, videoID string, opts ...Option) *Poller {
	p := &Poller{
		chat:            chat,
		creds:           creds,
		store:           store,
		sink:            sink,
		videoID:         videoID,
		defaultInterval: defaultPollInterval,
		backoff:         defaultBackoff,
		titleRecheck:    defaultTitleRecheck,
		state:           StateBootstrapping,
		log:             logger.Get().Named("poller"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the poller's current lifecycle phase.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Poller) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Run polls the stream until ctx is cancelled or the stream goes away.
// A gone stream is the only error that ends the run; everything else is
// retried after a backoff. The in-flight page is always finished and its
// cursor persisted before Run returns.
func (p *Poller) Run(ctx context.Context) error {
	defer p.setState(StateStopped)

	if err := p.bootstrap(ctx); err != nil {
		return err
	}

	cursor, err := p.store.Cursor(ctx)
	if err != nil {
		p.log.Warn(ctx, "failed to load cursor, starting from the top", logger.Error(err))
	}
	token := cursor.PageToken
	if token != "" {
		p.log.Info(ctx, "resuming from persisted cursor", logger.String("pageToken", token))
	}

	lastTitleCheck := time.Now()

	p.setState(StatePolling)
	for {
		if ctx.Err() != nil {
			return nil
		}

		page, err := p.fetchPage(ctx, token)
		if err != nil {
			if errors.Is(err, youtube.ErrStreamGone) {
				p.log.Error(ctx, "stream is gone, stopping", logger.Error(err))
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
			p.log.Warn(ctx, "page fetch failed, backing off",
				logger.String("pageToken", token),
				logger.Duration("wait", p.backoff),
				logger.Error(err),
			)
			metrics.RecordPollBackoff()
			p.setState(StateBackoff)
			if !p.sleep(ctx, p.backoff) {
				return nil
			}
			p.setState(StatePolling)
			continue
		}

		// Hand off and persist even when ctx was cancelled mid-page; the
		// page was already paid for.
		handoff := context.WithoutCancel(ctx)
		dropped := false
		for _, ev := range page.Items {
			if !p.sink.Enqueue(handoff, ev) {
				dropped = true
				p.log.Warn(ctx, "queue full, page will be re-fetched",
					logger.String("eventID", ev.ExternalID),
				)
			}
		}

		wait := page.PollingInterval
		if wait <= 0 {
			wait = p.defaultInterval
		}

		if dropped {
			// Keep the current token so the next fetch repeats this
			// page; the dedupe filter sheds the events that already
			// went through.
			if !p.sleep(ctx, wait) {
				return nil
			}
			continue
		}

		token = page.NextPageToken
		if err := p.store.SaveCursor(handoff, model.Cursor{
			PageToken:       token,
			LastProcessedAt: time.Now(),
		}); err != nil {
			p.log.Error(ctx, "failed to persist cursor", logger.Error(err))
		}

		if time.Since(lastTitleCheck) >= p.titleRecheck {
			lastTitleCheck = time.Now()
			p.recheckTitle(ctx)
		}

		if !p.sleep(ctx, wait) {
			return nil
		}
	}
}

// bootstrap resolves the live chat id, retrying everything except a gone
// stream.
func (p *Poller) bootstrap(ctx context.Context) error {
	for {
		info, err := p.resolveVideo(ctx)
		if err == nil {
			p.mu.Lock()
			p.liveChatID = info.LiveChatID
			p.mu.Unlock()

			fields := []logger.Field{logger.String("title", info.Title)}
			if day, ok := youtube.ShowDay(info.Title); ok {
				p.mu.Lock()
				p.showDay = day
				p.mu.Unlock()
				fields = append(fields, logger.Int("showDay", day))
			}
			p.log.Info(ctx, "live chat resolved", fields...)
			return nil
		}
		if errors.Is(err, youtube.ErrStreamGone) {
			return fmt.Errorf("bootstrap: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}

		p.log.Warn(ctx, "bootstrap failed, backing off",
			logger.Duration("wait", p.backoff),
			logger.Error(err),
		)
		metrics.RecordPollBackoff()
		p.setState(StateBackoff)
		if !p.sleep(ctx, p.backoff) {
			return nil
		}
		p.setState(StateBootstrapping)
	}
}

// resolveVideo fetches broadcast details, rotating credentials on
// credential errors for at most one full rotation.
func (p *Poller) resolveVideo(ctx context.Context) (youtube.VideoInfo, error) {
	var lastErr error
	for attempt := 0; attempt < p.attempts(); attempt++ {
		cred, err := p.creds.Next(ctx)
		if err != nil {
			return youtube.VideoInfo{}, fmt.Errorf("resolve video: %w", err)
		}

		info, err := p.chat.VideoInfo(ctx, p.videoID, cred.APIKey)
		if err == nil {
			return info, nil
		}
		lastErr = err

		if reason, retry := p.reportFetchError(ctx, cred, err); !retry {
			return youtube.VideoInfo{}, err
		} else {
			p.log.Warn(ctx, "video info failed, rotating credential",
				logger.String("reason", string(reason)),
			)
		}
	}
	return youtube.VideoInfo{}, fmt.Errorf("all credentials failed: %w", lastErr)
}

// fetchPage retrieves one chat page, rotating credentials on credential
// errors for at most one full rotation.
func (p *Poller) fetchPage(ctx context.Context, token string) (youtube.Page, error) {
	p.mu.Lock()
	liveChatID := p.liveChatID
	p.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < p.attempts(); attempt++ {
		cred, err := p.creds.Next(ctx)
		if err != nil {
			return youtube.Page{}, fmt.Errorf("fetch page: %w", err)
		}

		start := time.Now()
		page, err := p.chat.ChatPage(ctx, liveChatID, token, cred.APIKey)
		if err == nil {
			metrics.RecordPageFetched()
			metrics.RecordPageFetchLatency(float64(time.Since(start).Milliseconds()))
			return page, nil
		}
		lastErr = err

		if reason, retry := p.reportFetchError(ctx, cred, err); !retry {
			return youtube.Page{}, err
		} else {
			p.log.Warn(ctx, "page fetch failed, rotating credential",
				logger.String("reason", string(reason)),
			)
		}
	}
	return youtube.Page{}, fmt.Errorf("all credentials failed: %w", lastErr)
}

// reportFetchError feeds the failure into the pool and decides whether
// rotating to the next credential can help.
func (p *Poller) reportFetchError(ctx context.Context, cred model.Credential, err error) (credpool.FailureReason, bool) {
	switch {
	case errors.Is(err, youtube.ErrQuotaExceeded):
		metrics.RecordPollError("quota_exceeded")
		p.creds.ReportFailure(ctx, cred, credpool.ReasonQuotaExceeded)
		return credpool.ReasonQuotaExceeded, true
	case errors.Is(err, youtube.ErrInvalidKey):
		metrics.RecordPollError("invalid_key")
		p.creds.ReportFailure(ctx, cred, credpool.ReasonInvalidKey)
		return credpool.ReasonInvalidKey, true
	case errors.Is(err, youtube.ErrStreamGone):
		metrics.RecordPollError("stream_gone")
		return credpool.ReasonOther, false
	default:
		metrics.RecordPollError("transient")
		p.creds.ReportFailure(ctx, cred, credpool.ReasonOther)
		return credpool.ReasonOther, false
	}
}

// recheckTitle refreshes the broadcast title and logs a show day change.
// Never fatal.
func (p *Poller) recheckTitle(ctx context.Context) {
	info, err := p.resolveVideo(ctx)
	if err != nil {
		p.log.Warn(ctx, "title recheck failed", logger.Error(err))
		return
	}

	day, ok := youtube.ShowDay(info.Title)
	if !ok {
		return
	}

	p.mu.Lock()
	prev := p.showDay
	p.showDay = day
	p.mu.Unlock()

	if prev != day {
		p.log.Info(ctx, "show day changed",
			logger.Int("previousDay", prev),
			logger.Int("showDay", day),
		)
	}
}

// attempts is one full rotation of the pool, at least one call.
func (p *Poller) attempts() int {
	if n := p.creds.Size(); n > 0 {
		return n
	}
	return 1
}

// sleep waits for d or until ctx is cancelled. Returns false on cancel.
func (p *Poller) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
