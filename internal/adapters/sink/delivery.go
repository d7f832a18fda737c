// Package sink holds the outbound collaborators of the pipeline: award
// delivery and the learning recorder.
package sink

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/fanscore/internal/domain/model"
	"github.com/okian/fanscore/pkg/logger"
	"github.com/okian/fanscore/pkg/metrics"
)

const defaultDeliveryBuffer = 256

// Consumer receives each published summary. Delivery is fire-and-forget:
// the consumer's errors are its own problem.
type Consumer func(ctx context.Context, summary model.AwardSummary)

// Delivery fans award summaries out to a consumer without ever blocking
// the workers. A full buffer drops the summary.
type Delivery struct {
	ch       chan model.AwardSummary
	consumer Consumer
	log      logger.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewDelivery builds a delivery sink and starts its drain goroutine.
func NewDelivery(ctx context.Context, consumer Consumer, opts ...DeliveryOption) *Delivery {
	d := &Delivery{
		ch:       make(chan model.AwardSummary, defaultDeliveryBuffer),
		consumer: consumer,
		log:      logger.Get().Named("delivery"),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	go d.drain(ctx)
	return d
}

// Publish queues one summary for delivery. Never blocks; a full buffer
// drops the summary and counts it.
func (d *Delivery) Publish(summary model.AwardSummary) {
	summary.ID = uuid.NewString()

	select {
	case d.ch <- summary:
		metrics.RecordSummaryPublished()
	default:
		metrics.RecordSummaryDropped()
		d.log.Warn(context.Background(), "delivery buffer full, summary dropped",
			logger.String("eventID", summary.EventID),
		)
	}
}

// Close stops accepting summaries and waits for the buffer to drain.
func (d *Delivery) Close() {
	d.closeOnce.Do(func() {
		close(d.ch)
	})
	<-d.done
}

func (d *Delivery) drain(ctx context.Context) {
	defer close(d.done)
	for summary := range d.ch {
		if d.consumer == nil {
			continue
		}
		d.consumer(ctx, summary)
	}
}
