package sink

import (
	"context"

	"github.com/okian/fanscore/internal/domain/model"
	"github.com/okian/fanscore/pkg/logger"
	"github.com/okian/fanscore/pkg/metrics"
)

// ObservationStore persists observations for the learning side.
type ObservationStore interface {
	AdmitObservation(ctx context.Context, obs model.Observation) error
}

// Learning records every ingested event for later classifier review.
// Failures are logged and swallowed so the live path never stalls on
// the learning side.
type Learning struct {
	store ObservationStore
	log   logger.Logger
}

// NewLearning builds a learning recorder over the store.
func NewLearning(store ObservationStore) *Learning {
	return &Learning{
		store: store,
		log:   logger.Get().Named("learning"),
	}
}

// Record persists one observation.
func (l *Learning) Record(ctx context.Context, obs model.Observation) {
	if err := l.store.AdmitObservation(ctx, obs); err != nil {
		l.log.Warn(ctx, "failed to store observation",
			logger.String("eventID", obs.EventID),
			logger.Error(err),
		)
		return
	}
	metrics.RecordObservationStored()
}
