package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amit9129/automated-parking-system/internal/domain"
	"github.com/amit9129/automated-parking-system/internal/repository"
)

const eventLogTimeout = 3 * time.Second

// Notifier receives session lifecycle events. Implementations handle their own
// delivery errors; a failed notification never fails the transition.
type Notifier interface {
	Notify(ctx context.Context, event domain.SessionEvent)
}

// MultiNotifier fans an event out to every sink in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, event domain.SessionEvent) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, event)
		}
	}
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, domain.SessionEvent) {}

// EventLog records every event in the audit table.
type EventLog struct {
	repo   repository.SessionEventLogRepository
	logger *zap.Logger
}

func NewEventLog(repo repository.SessionEventLogRepository, logger *zap.Logger) *EventLog {
	return &EventLog{repo: repo, logger: logger.Named("eventlog")}
}

func (l *EventLog) Notify(ctx context.Context, event domain.SessionEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventLogTimeout)
	defer cancel()

	if err := l.repo.Append(ctx, event); err != nil {
		l.logger.Error("record session event",
			zap.String("event_id", event.EventID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}

func newSessionEvent(eventType domain.SessionEventType, now time.Time) domain.SessionEvent {
	return domain.SessionEvent{
		EventID:   uuid.NewString(),
		Type:      eventType,
		Timestamp: now.UTC(),
	}
}
