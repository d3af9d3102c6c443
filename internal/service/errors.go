package service

import "errors"

var (
	// ErrDetectionFailed means no plausible plate was found in the frame, or
	// detection did not finish before its deadline.
	ErrDetectionFailed = errors.New("license plate could not be detected")
	ErrPersistence     = errors.New("session store failure")
	// ErrNotExited is returned when payment is attempted for a vehicle still parked.
	ErrNotExited            = errors.New("vehicle has not exited yet")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrCaptureBusy          = errors.New("entry camera is busy")
	ErrCaptureFailed        = errors.New("entry camera capture failed")
)
