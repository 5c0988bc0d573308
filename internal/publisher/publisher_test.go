package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/condohub/billing/internal/config"
	"github.com/condohub/billing/internal/domain/events"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/pubsub/memory"
	"github.com/condohub/billing/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishCarriesEventMetadata(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := config.GetDefaultConfig()
	ps := memory.NewPubSub(logger.NewNoopLogger())
	defer ps.Close()

	messages, err := ps.Subscribe(ctx, cfg.Billing.EventsTopic)
	require.NoError(t, err)

	pub := NewEventPublisher(ps, cfg, logger.NewNoopLogger())
	event := events.NewDomainEvent(events.InvoiceIssued, "tenant-1", "invoice", "inv-1",
		map[string]any{"number": "INV-2026-0001"})

	require.NoError(t, pub.Publish(types.SetRequestID(ctx, "req-1"), event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, events.InvoiceIssued, msg.Metadata.Get("event_name"))
		assert.Equal(t, "tenant-1", msg.Metadata.Get("tenant_id"))
		assert.Equal(t, "req-1", msg.Metadata.Get("request_id"))

		var decoded events.DomainEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.Equal(t, "INV-2026-0001", decoded.Payload["number"])
	case <-ctx.Done():
		t.Fatal("event not delivered")
	}
}
