package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/amit9129/automated-parking-system/internal/domain"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	sent []published
	err  error
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error { return nil }

func TestPublisher_Notify(t *testing.T) {
	ch := &fakeChannel{}
	p := &Publisher{ch: ch, exchange: "parking.events", logger: zap.NewNop()}

	event := domain.SessionEvent{
		EventID:   "3f1c",
		Type:      domain.EventExitProcessed,
		SessionID: 9,
		PlateText: "KA01AB1234",
		Timestamp: time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
	}
	p.Notify(context.Background(), event)

	require.Len(t, ch.sent, 1)
	got := ch.sent[0]
	assert.Equal(t, "parking.events", got.exchange)
	assert.Equal(t, "session.exit_processed", got.key)
	assert.Equal(t, "3f1c", got.msg.MessageId)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)

	var decoded domain.SessionEvent
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, "KA01AB1234", decoded.PlateText)
	assert.EqualValues(t, 9, decoded.SessionID)
}

func TestPublisher_NotifyLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	p := &Publisher{ch: &fakeChannel{err: errors.New("channel closed")}, exchange: "x", logger: zap.New(core)}

	p.Notify(context.Background(), domain.SessionEvent{EventID: "e1", Type: domain.EventSessionsPurged})

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "session.sessions_purged", logs.All()[0].ContextMap()["routing_key"])
}
