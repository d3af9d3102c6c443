package iot

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"go.uber.org/zap"

	"github.com/amit9129/automated-parking-system/internal/domain"
)

const publishTimeout = 3 * time.Second

type iotPublishAPI interface {
	Publish(ctx context.Context, params *iotdataplane.PublishInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error)
}

// GatePublisher forwards session events to gate controllers over MQTT.
type GatePublisher struct {
	client      iotPublishAPI
	topicPrefix string
	logger      *zap.Logger
}

func NewGatePublisher(client iotPublishAPI, topicPrefix string, logger *zap.Logger) *GatePublisher {
	return &GatePublisher{client: client, topicPrefix: topicPrefix, logger: logger.Named("iot")}
}

// Topic is <prefix>/<event type>.
func (g *GatePublisher) Topic(eventType domain.SessionEventType) string {
	return g.topicPrefix + "/" + string(eventType)
}

func (g *GatePublisher) Notify(ctx context.Context, event domain.SessionEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		g.logger.Error("marshal session event", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	topic := g.Topic(event.Type)
	_, err = g.client.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(topic),
		Qos:     1,
		Payload: payload,
	})
	if err != nil {
		g.logger.Error("publish to gate topic", zap.String("topic", topic), zap.Error(err))
	}
}
