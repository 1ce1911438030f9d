package consumer

import (
	"context"
	"encoding/json"

	"github.com/edumarket/booking-service/internal/models"
	"github.com/edumarket/booking-service/internal/repository"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// SlotConsumer syncs the teacher schedule service's slot announcements into
// the local slot table. Creation and deletion of slots live there; this
// service only owns the available/booked flip.
type SlotConsumer struct {
	slotRepo repository.SlotRepository
	logger   *zap.Logger
}

func NewSlotConsumer(slotRepo repository.SlotRepository, logger *zap.Logger) *SlotConsumer {
	return &SlotConsumer{slotRepo: slotRepo, logger: logger}
}

func (sc *SlotConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			sc.handleMessage(msg)
		}
		sc.logger.Info("slot consumer channel closed")
	}()
}

func (sc *SlotConsumer) handleMessage(msg amqp.Delivery) {
	ctx := context.Background()

	var slot models.Slot
	if err := json.Unmarshal(msg.Body, &slot); err != nil {
		sc.logger.Warn("slot message unmarshal failed", zap.Error(err))
		msg.Nack(false, false)
		return
	}

	switch msg.RoutingKey {
	case "slot.created", "slot.updated":
		if err := sc.slotRepo.Upsert(ctx, &slot); err != nil {
			sc.logger.Error("slot upsert failed", zap.Uint("slot_id", slot.ID), zap.Error(err))
			msg.Nack(false, true) // requeue
			return
		}
	case "slot.deleted":
		// Booked slots must not disappear from under a booking; the delete
		// is conditioned on status=available and simply misses otherwise.
		if err := sc.slotRepo.DeleteAvailable(ctx, slot.ID); err != nil {
			sc.logger.Error("slot delete failed", zap.Uint("slot_id", slot.ID), zap.Error(err))
			msg.Nack(false, true)
			return
		}
	default:
		sc.logger.Warn("unknown slot routing key", zap.String("key", msg.RoutingKey))
	}

	msg.Ack(false)
}
