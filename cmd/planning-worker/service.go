package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/stocklinehq/stockline-backend/pkg/enums"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
	"github.com/stocklinehq/stockline-backend/pkg/outbox"
)

type envelopeProcessor interface {
	Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error
}

// Service consumes the planning topic and projects reorder lifecycle events
// into the warehouse analytics table.
type Service struct {
	subscription *gcppubsub.Subscriber
	processor    envelopeProcessor
	logg         *logger.Logger
}

func NewService(subscription *gcppubsub.Subscriber, processor envelopeProcessor, logg *logger.Logger) (*Service, error) {
	if subscription == nil {
		return nil, errors.New("planning subscription is required")
	}
	if processor == nil {
		return nil, errors.New("envelope processor is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		subscription: subscription,
		processor:    processor,
		logg:         logg,
	}, nil
}

type processResult struct {
	nack bool
}

// Run consumes planning messages until the context is canceled.
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

	eventTypeRaw := strings.TrimSpace(msg.Attributes["event_type"])
	eventType, err := enums.ParseOutboxEventType(eventTypeRaw)
	if err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "event_type", eventTypeRaw), "unknown planning event type")
		return processResult{}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "invalid planning envelope")
		return processResult{}
	}

	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"event_id":    envelope.EventID,
		"event_type":  eventType,
		"occurred_at": envelope.OccurredAt.Format(time.RFC3339Nano),
	})

	if err := s.processor.Process(logCtx, eventType, envelope); err != nil {
		s.logg.Error(logCtx, "planning event processing failed", err)
		return processResult{nack: true}
	}
	return processResult{}
}
