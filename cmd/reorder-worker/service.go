package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/stocklinehq/stockline-backend/internal/reorder"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
)

type changeHandler interface {
	HandleChange(ctx context.Context, event reorder.ChangeEvent) error
}

// Service consumes the inventory movement feed and hands each event to the
// reorder reactor. Undecodable messages are acked so a poison message never
// wedges the subscription.
type Service struct {
	subscription *gcppubsub.Subscriber
	handler      changeHandler
	logg         *logger.Logger
}

func NewService(subscription *gcppubsub.Subscriber, handler changeHandler, logg *logger.Logger) (*Service, error) {
	if subscription == nil {
		return nil, errors.New("inventory subscription is required")
	}
	if handler == nil {
		return nil, errors.New("change handler is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		subscription: subscription,
		handler:      handler,
		logg:         logg,
	}, nil
}

type processResult struct {
	nack bool
}

// Run consumes inventory change messages until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if s.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	logCtx := s.logg.WithField(ctx, "message_id", msg.ID)

	var event reorder.ChangeEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "invalid inventory change payload")
		return processResult{}
	}

	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"event_id":     event.EventID.String(),
		"sku_id":       event.SKUID.String(),
		"warehouse_id": event.WarehouseID,
		"occurred_at":  event.OccurredAt.Format(time.RFC3339Nano),
	})

	if err := s.handler.HandleChange(logCtx, event); err != nil {
		s.logg.Error(logCtx, "inventory change handling failed", err)
		return processResult{nack: true}
	}
	return processResult{}
}
