package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/fanscore/internal/domain/model"
	"github.com/okian/fanscore/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestDelivery(t *testing.T) {
	Convey("Given a delivery sink with a recording consumer", t, func() {
		ctx := context.Background()

		var (
			mu       sync.Mutex
			received []model.AwardSummary
		)
		consumer := func(_ context.Context, s model.AwardSummary) {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, s)
		}

		Convey("When summaries are published", func() {
			d := NewDelivery(ctx, consumer)
			d.Publish(model.AwardSummary{EventID: "ev-1"})
			d.Publish(model.AwardSummary{EventID: "ev-2"})
			d.Close()

			Convey("Then the consumer sees them all with fresh ids", func() {
				mu.Lock()
				defer mu.Unlock()
				So(received, ShouldHaveLength, 2)
				So(received[0].EventID, ShouldEqual, "ev-1")
				So(received[0].ID, ShouldNotBeEmpty)
				So(received[1].ID, ShouldNotBeEmpty)
				So(received[0].ID, ShouldNotEqual, received[1].ID)
			})
		})

		Convey("When the buffer overflows", func() {
			block := make(chan struct{})
			slow := func(_ context.Context, _ model.AwardSummary) {
				<-block
			}
			d := NewDelivery(ctx, slow, WithBuffer(1))

			// Fill the in-flight consumer plus the one-slot buffer, then
			// one more that has nowhere to go.
			d.Publish(model.AwardSummary{EventID: "ev-1"})
			time.Sleep(20 * time.Millisecond)
			d.Publish(model.AwardSummary{EventID: "ev-2"})
			d.Publish(model.AwardSummary{EventID: "ev-3"})

			Convey("Then Publish never blocks", func() {
				close(block)
				d.Close()
			})
		})
	})
}

type flakyObservationStore struct {
	mu   sync.Mutex
	seen []model.Observation
	err  error
}

func (f *flakyObservationStore) AdmitObservation(_ context.Context, obs model.Observation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.seen = append(f.seen, obs)
	return nil
}

func TestLearning(t *testing.T) {
	Convey("Given a learning recorder", t, func() {
		ctx := context.Background()

		Convey("When the store accepts writes", func() {
			store := &flakyObservationStore{}
			l := NewLearning(store)
			l.Record(ctx, model.Observation{EventID: "ev-1", Method: "direct_intent"})

			Convey("Then the observation lands", func() {
				So(store.seen, ShouldHaveLength, 1)
				So(store.seen[0].EventID, ShouldEqual, "ev-1")
			})
		})

		Convey("When the store fails", func() {
			store := &flakyObservationStore{err: errors.New("disk full")}
			l := NewLearning(store)

			Convey("Then Record swallows the error", func() {
				So(func() { l.Record(ctx, model.Observation{EventID: "ev-1"}) }, ShouldNotPanic)
			})
		})
	})
}
