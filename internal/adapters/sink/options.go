package sink

import (
	"github.com/okian/fanscore/internal/domain/model"
	"github.com/okian/fanscore/pkg/logger"
)

// DeliveryOption applies a configuration option to the Delivery sink.
type DeliveryOption func(*Delivery)

// WithBuffer sets the delivery buffer size.
func WithBuffer(size int) DeliveryOption {
	return func(d *Delivery) {
		if size > 0 {
			d.ch = make(chan model.AwardSummary, size)
		}
	}
}

// WithDeliveryLogger sets a custom logger for the delivery sink.
func WithDeliveryLogger(log logger.Logger) DeliveryOption {
	return func(d *Delivery) {
		if log != nil {
			d.log = log
		}
	}
}
