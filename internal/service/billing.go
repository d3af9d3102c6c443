package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// HoursParked counts whole elapsed hours; partial hours are not billed.
func HoursParked(entry, exit time.Time) int64 {
	elapsed := exit.Sub(entry)
	if elapsed <= 0 {
		return 0
	}
	return int64(elapsed / time.Hour)
}

// ComputeFee returns the whole hours parked and their price at rate.
func ComputeFee(entry, exit time.Time, rate decimal.Decimal) (int64, decimal.Decimal) {
	hours := HoursParked(entry, exit)
	return hours, rate.Mul(decimal.NewFromInt(hours))
}
