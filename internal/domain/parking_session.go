package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"
)

type ParkingSessionStatus string

const (
	SessionCreated ParkingSessionStatus = "created" // vehicle still parked
	SessionExited  ParkingSessionStatus = "exited"
	SessionPaid    ParkingSessionStatus = "paid"
)

// Timestamp layout used in slips and QR payloads.
const SlipTimeLayout = "2006-01-02 15:04:05"

type ParkingSession struct {
	ID         int64           `json:"id"`
	PlateText  string          `json:"plate_text"`
	Slot       int64           `json:"slot"`
	EntryTime  time.Time       `json:"entry_time"`
	ExitTime   null.Time       `json:"exit_time"`
	HourlyRate decimal.Decimal `json:"hourly_rate"`
	IsPaid     bool            `json:"is_paid"`
	QRCodePath string          `json:"qr_code_path,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Status derives the lifecycle state from the stored columns.
func (s *ParkingSession) Status() ParkingSessionStatus {
	switch {
	case s.IsPaid:
		return SessionPaid
	case s.ExitTime.Valid:
		return SessionExited
	default:
		return SessionCreated
	}
}

type ParkingSessionFilterDTO struct {
	Plate  *string `form:"plate"`
	Paid   *bool   `form:"paid"`
	Exited *bool   `form:"exited"`
	Limit  int     `form:"limit"`
}

// EntryRequestDTO carries an optional frame; when empty the entry camera is used.
type EntryRequestDTO struct {
	ImageBase64 string `json:"image_base64,omitempty"`
}

type EntryReceipt struct {
	SessionID  int64     `json:"session_id"`
	Plate      string    `json:"plate"`
	Slot       int64     `json:"slot"`
	EntryTime  time.Time `json:"entry_time"`
	QRCodePath string    `json:"qr_code_path"`
}

type ExitRequestDTO struct {
	PlateText string `json:"plate_text" binding:"required"`
}

type ExitSlip struct {
	VehicleNumber string          `json:"vehicle_number"`
	EntryTime     time.Time       `json:"entry_time"`
	ExitTime      time.Time       `json:"exit_time"`
	HoursParked   int64           `json:"hours_parked"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

type ExitResponse struct {
	Slip           ExitSlip          `json:"slip"`
	PaymentOptions map[string]string `json:"payment_options"`
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentOnline PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentOnline
}

// PaymentOptions are static hints shown on the exit slip; no gateway is involved.
func PaymentOptions() map[string]string {
	return map[string]string{
		string(PaymentCash):   "Proceed with cash payment.",
		string(PaymentOnline): "Scan QR code to pay online.",
	}
}

type PaymentRequestDTO struct {
	PlateText     string `json:"plate_text" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required,oneof=cash online"`
}

type PaymentConfirmation struct {
	SessionID     int64         `json:"session_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
}

type PurgeResult struct {
	PurgedCount int `json:"purged_count"`
}
