package dispatch

import (
	"time"

	"github.com/edumarket/booking-service/pkg/rabbitmq"
	"go.uber.org/zap"
)

// RabbitDispatcher publishes transition events to the bookings topic
// exchange, where the notification, points and chat services consume them.
type RabbitDispatcher struct {
	publisher *rabbitmq.Publisher
	logger    *zap.Logger
}

func NewRabbitDispatcher(publisher *rabbitmq.Publisher, logger *zap.Logger) *RabbitDispatcher {
	return &RabbitDispatcher{publisher: publisher, logger: logger}
}

func (d *RabbitDispatcher) Dispatch(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := d.publisher.Publish(event.Name, event); err != nil {
		// Local state is committed; a lost event is recovered by the
		// consumer-side reconciliation jobs, so log and move on.
		d.logger.Warn("dispatch failed",
			zap.String("event", event.Name),
			zap.Uint("booking_id", event.BookingID),
			zap.Error(err),
		)
	}
}
