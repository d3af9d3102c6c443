package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SessionEventType string

const (
	EventEntryRegistered  SessionEventType = "entry_registered"
	EventExitProcessed    SessionEventType = "exit_processed"
	EventPaymentConfirmed SessionEventType = "payment_confirmed"
	EventSessionsPurged   SessionEventType = "sessions_purged"
)

// SessionEvent is fanned out to the dashboard hub, gate controllers and the broker.
type SessionEvent struct {
	EventID   string           `json:"event_id"`
	Type      SessionEventType `json:"event_type"`
	SessionID int64            `json:"session_id,omitempty"`
	PlateText string           `json:"plate_text,omitempty"`
	Slot      int64            `json:"slot,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Method    PaymentMethod    `json:"payment_method,omitempty"`
	Count     int              `json:"count,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// GateMessageType is the message_type carried by gate sensor messages on the queue.
type GateMessageType string

const GateVehicleAtEntry GateMessageType = "vehicle_at_entry"

type GateSensorMessage struct {
	MessageType GateMessageType `json:"message_type"`
	DeviceID    string          `json:"device_id"`
	Timestamp   string          `json:"timestamp,omitempty"`
}
