// Package iot connects the service to the gate hardware through AWS: sensor
// messages arrive on SQS, session events go out over the IoT data plane.
package iot

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/amit9129/automated-parking-system/internal/domain"
	"github.com/amit9129/automated-parking-system/internal/service"
)

const receiveRetryDelay = 5 * time.Second

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// EntryRegistrar registers an entry from the gate camera.
type EntryRegistrar interface {
	RegisterEntryFromCamera(ctx context.Context) (*domain.EntryReceipt, error)
}

type SQSConsumer struct {
	sqsClient sqsAPI
	queueURL  string
	entries   EntryRegistrar
	logger    *zap.Logger
}

func NewSQSConsumer(client sqsAPI, queueURL string, entries EntryRegistrar, logger *zap.Logger) *SQSConsumer {
	return &SQSConsumer{
		sqsClient: client,
		queueURL:  queueURL,
		entries:   entries,
		logger:    logger.Named("sqs").With(zap.String("queue", queueURL)),
	}
}

// Start long-polls the queue until ctx is cancelled.
func (c *SQSConsumer) Start(ctx context.Context) {
	c.logger.Info("sqs consumer started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("sqs consumer stopped")
			return
		default:
		}

		if err := c.pollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Warn("receive messages", zap.Error(err))
			select {
			case <-time.After(receiveRetryDelay):
			case <-ctx.Done():
			}
		}
	}
}

func (c *SQSConsumer) pollOnce(ctx context.Context) error {
	result, err := c.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   60,
	})
	if err != nil {
		return err
	}

	for _, message := range result.Messages {
		if message.Body == nil {
			c.deleteMessage(ctx, message.ReceiptHandle)
			continue
		}
		if err := c.handleMessage(ctx, *message.Body); err != nil {
			c.logger.Warn("message left for redelivery",
				zap.String("message_id", aws.ToString(message.MessageId)),
				zap.Error(err))
			continue
		}
		c.deleteMessage(ctx, message.ReceiptHandle)
	}
	return nil
}

// handleMessage returns an error only when the message should be redelivered.
func (c *SQSConsumer) handleMessage(ctx context.Context, body string) error {
	var msg domain.GateSensorMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		c.logger.Warn("dropping malformed gate message", zap.Error(err))
		return nil
	}
	if msg.MessageType != domain.GateVehicleAtEntry {
		c.logger.Debug("ignoring gate message", zap.String("message_type", string(msg.MessageType)))
		return nil
	}

	receipt, err := c.entries.RegisterEntryFromCamera(ctx)
	switch {
	case errors.Is(err, service.ErrDetectionFailed):
		c.logger.Info("no plate detected at entry gate", zap.String("device_id", msg.DeviceID))
		return nil
	case err != nil:
		return err
	}

	c.logger.Info("entry registered from gate sensor",
		zap.String("device_id", msg.DeviceID),
		zap.String("plate", receipt.Plate),
		zap.Int64("slot", receipt.Slot))
	return nil
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		return
	}
	_, err := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		c.logger.Warn("delete message", zap.Error(err))
	}
}
