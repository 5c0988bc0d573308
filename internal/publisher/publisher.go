package publisher

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/condohub/billing/internal/config"
	"github.com/condohub/billing/internal/domain/events"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/pubsub"
	"github.com/condohub/billing/internal/pubsub/kafka"
	"github.com/condohub/billing/internal/pubsub/memory"
	"github.com/condohub/billing/internal/types"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/fx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EventPublisher fans drained aggregate events out to the billing topic
type EventPublisher interface {
	Publish(ctx context.Context, evts ...events.DomainEvent) error
}

type eventPublisher struct {
	pubsub pubsub.Publisher
	topic  string
	logger *logger.Logger
}

// NewEventPublisher creates a publisher writing to the configured events topic
func NewEventPublisher(ps pubsub.PubSub, cfg *config.Configuration, logger *logger.Logger) EventPublisher {
	return &eventPublisher{
		pubsub: ps,
		topic:  cfg.Billing.EventsTopic,
		logger: logger,
	}
}

func (p *eventPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	for _, event := range evts {
		payload, err := json.Marshal(event)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to marshal event").
				WithReportableDetails(map[string]any{"event_name": event.Name}).
				Mark(ierr.ErrValidation)
		}

		msg := message.NewMessage(event.ID, payload)
		msg.Metadata.Set("event_name", event.Name)
		msg.Metadata.Set("tenant_id", event.TenantID)
		msg.Metadata.Set("aggregate_type", event.AggregateType)
		msg.Metadata.Set("aggregate_id", event.AggregateID)
		if requestID := types.GetRequestID(ctx); requestID != "" {
			msg.Metadata.Set("request_id", requestID)
		}

		p.logger.Debugw("publishing event",
			"event_id", event.ID,
			"event_name", event.Name,
			"tenant_id", event.TenantID,
			"topic", p.topic,
		)

		if err := p.pubsub.Publish(ctx, p.topic, msg); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to publish event").
				WithReportableDetails(map[string]any{
					"event_id":   event.ID,
					"event_name": event.Name,
				}).
				Mark(ierr.ErrSystem)
		}
	}
	return nil
}

// NewPubSub builds the transport selected by pubsub.type and closes it on shutdown
func NewPubSub(lc fx.Lifecycle, cfg *config.Configuration, logger *logger.Logger) (pubsub.PubSub, error) {
	var (
		ps  pubsub.PubSub
		err error
	)

	switch cfg.PubSub.Type {
	case types.KafkaPubSub:
		ps, err = kafka.NewPubSub(cfg, logger)
		if err != nil {
			return nil, err
		}
	default:
		ps = memory.NewPubSub(logger)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return ps.Close()
		},
	})

	logger.Infow("event pubsub ready", "type", cfg.PubSub.Type)
	return ps, nil
}

// Module provides the pubsub transport and the event publisher
func Module() fx.Option {
	return fx.Provide(
		NewPubSub,
		NewEventPublisher,
	)
}
