package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/amit9129/automated-parking-system/internal/domain"
	"github.com/amit9129/automated-parking-system/internal/lock"
	"github.com/amit9129/automated-parking-system/internal/repository"
)

const (
	captureLockKey    = "entry-camera"
	captureLockMargin = 5 * time.Second
)

// PlateDetector finds the plate text in a frame. found is false when the frame
// holds no plausible plate.
type PlateDetector interface {
	DetectPlate(ctx context.Context, frame image.Image) (plate string, found bool, err error)
}

// FrameSource captures one frame from the entry camera.
type FrameSource interface {
	Capture(ctx context.Context) (image.Image, error)
}

// ParkingPolicy holds the tunables of the session lifecycle.
type ParkingPolicy struct {
	HourlyRate     decimal.Decimal
	RetentionDays  int
	PurgeBatchSize int
	CaptureTimeout time.Duration
}

type ParkingService struct {
	sessionRepo repository.ParkingSessionRepository
	detector    PlateDetector
	qr          QRWriter
	camera      FrameSource
	captureLock lock.Locker
	notifier    Notifier
	policy      ParkingPolicy
	logger      *zap.Logger
	now         func() time.Time
}

func NewParkingService(
	sessionRepo repository.ParkingSessionRepository,
	detector PlateDetector,
	qr QRWriter,
	camera FrameSource,
	captureLock lock.Locker,
	notifier Notifier,
	policy ParkingPolicy,
	logger *zap.Logger,
) *ParkingService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if captureLock == nil {
		captureLock = lock.NewLocalLocker()
	}
	return &ParkingService{
		sessionRepo: sessionRepo,
		detector:    detector,
		qr:          qr,
		camera:      camera,
		captureLock: captureLock,
		notifier:    notifier,
		policy:      policy,
		logger:      logger.Named("parking"),
		now:         time.Now,
	}
}

// clock returns the current UTC time at second precision, the resolution
// printed on slips and QR codes.
func (s *ParkingService) clock() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// RegisterEntryFromCamera captures a frame from the entry camera and registers it.
// Only one capture runs at a time across all replicas sharing the lock.
func (s *ParkingService) RegisterEntryFromCamera(ctx context.Context) (*domain.EntryReceipt, error) {
	if s.camera == nil {
		return nil, fmt.Errorf("%w: no camera configured", ErrCaptureFailed)
	}

	release, err := s.captureLock.Acquire(ctx, captureLockKey, s.policy.CaptureTimeout+captureLockMargin)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return nil, ErrCaptureBusy
		}
		return nil, fmt.Errorf("%w: acquire capture lock: %w", ErrCaptureFailed, err)
	}
	frame, err := callWithDeadline(ctx, s.policy.CaptureTimeout, s.camera.Capture)
	release()
	if err != nil {
		s.logger.Warn("camera capture failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}

	return s.RegisterEntry(ctx, frame)
}

// RegisterEntry detects the plate in frame, allocates a slot and persists a new
// session together with its QR code.
func (s *ParkingService) RegisterEntry(ctx context.Context, frame image.Image) (*domain.EntryReceipt, error) {
	plate, found, err := s.detector.DetectPlate(ctx, frame)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrDetectionFailed, err)
		}
		return nil, fmt.Errorf("ParkingService.RegisterEntry: detect plate: %w", err)
	}
	plate = strings.TrimSpace(plate)
	if !found || plate == "" {
		return nil, ErrDetectionFailed
	}

	slot, err := s.sessionRepo.NextSlot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: allocate slot: %w", ErrPersistence, err)
	}

	entryTime := s.clock()
	qrPath, err := s.qr.WriteQR(EntryQRPayload(plate, slot, entryTime))
	if err != nil {
		return nil, fmt.Errorf("ParkingService.RegisterEntry: %w", err)
	}

	created, err := s.sessionRepo.Create(ctx, &domain.ParkingSession{
		PlateText:  plate,
		Slot:       slot,
		EntryTime:  entryTime,
		HourlyRate: s.policy.HourlyRate,
		QRCodePath: qrPath,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create session: %w", ErrPersistence, err)
	}

	s.logger.Info("vehicle entered",
		zap.Int64("session_id", created.ID),
		zap.String("plate", created.PlateText),
		zap.Int64("slot", created.Slot))

	event := newSessionEvent(domain.EventEntryRegistered, entryTime)
	event.SessionID, event.PlateText, event.Slot = created.ID, created.PlateText, created.Slot
	s.notifier.Notify(ctx, event)

	return &domain.EntryReceipt{
		SessionID:  created.ID,
		Plate:      created.PlateText,
		Slot:       created.Slot,
		EntryTime:  created.EntryTime,
		QRCodePath: created.QRCodePath,
	}, nil
}

func (s *ParkingService) latestSession(ctx context.Context, plate string) (*domain.ParkingSession, error) {
	session, err := s.sessionRepo.FindLatestByPlate(ctx, plate)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("no parking session for vehicle %q: %w", plate, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return session, nil
}

// ProcessExit stamps the exit time of the plate's latest session and returns the
// bill. Repeating it for an exited session recomputes the same slip.
func (s *ParkingService) ProcessExit(ctx context.Context, plate string) (*domain.ExitResponse, error) {
	plate = strings.TrimSpace(plate)
	session, err := s.latestSession(ctx, plate)
	if err != nil {
		return nil, err
	}

	stamped := false
	if !session.ExitTime.Valid {
		exitTime := s.clock()
		if exitTime.Before(session.EntryTime) {
			exitTime = session.EntryTime
		}

		updated, err := s.sessionRepo.SetExitTime(ctx, session.ID, exitTime)
		switch {
		case errors.Is(err, repository.ErrAlreadyExited):
			// A concurrent exit won; bill from the stored value.
			if updated, err = s.sessionRepo.FindByID(ctx, session.ID); err != nil {
				return nil, fmt.Errorf("%w: reload session: %w", ErrPersistence, err)
			}
		case err != nil:
			return nil, fmt.Errorf("%w: stamp exit: %w", ErrPersistence, err)
		default:
			stamped = true
		}
		session = updated
	} else {
		s.logger.Info("exit requested for already exited session",
			zap.Int64("session_id", session.ID), zap.String("plate", plate))
	}

	exitTime := session.ExitTime.Time
	hours, fee := ComputeFee(session.EntryTime, exitTime, session.HourlyRate)

	if stamped {
		s.logger.Info("vehicle exited",
			zap.Int64("session_id", session.ID),
			zap.String("plate", session.PlateText),
			zap.Int64("hours", hours),
			zap.Stringer("amount", fee))

		event := newSessionEvent(domain.EventExitProcessed, exitTime)
		event.SessionID, event.PlateText, event.Slot, event.Amount = session.ID, session.PlateText, session.Slot, &fee
		s.notifier.Notify(ctx, event)
	}

	return &domain.ExitResponse{
		Slip: domain.ExitSlip{
			VehicleNumber: session.PlateText,
			EntryTime:     session.EntryTime,
			ExitTime:      exitTime,
			HoursParked:   hours,
			TotalAmount:   fee,
		},
		PaymentOptions: domain.PaymentOptions(),
	}, nil
}

// ProcessPayment marks the plate's latest session as paid. Paying twice succeeds.
func (s *ParkingService) ProcessPayment(ctx context.Context, plate string, method domain.PaymentMethod) (*domain.PaymentConfirmation, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, method)
	}
	plate = strings.TrimSpace(plate)

	session, err := s.latestSession(ctx, plate)
	if err != nil {
		return nil, err
	}
	if !session.ExitTime.Valid {
		return nil, fmt.Errorf("session %d for vehicle %q: %w", session.ID, plate, ErrNotExited)
	}

	alreadyPaid := session.IsPaid
	paid, err := s.sessionRepo.MarkPaid(ctx, session.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("session %d: %w", session.ID, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: mark paid: %w", ErrPersistence, err)
	}

	if !alreadyPaid {
		s.logger.Info("payment confirmed",
			zap.Int64("session_id", paid.ID),
			zap.String("plate", paid.PlateText),
			zap.String("method", string(method)))

		event := newSessionEvent(domain.EventPaymentConfirmed, s.clock())
		event.SessionID, event.PlateText, event.Slot, event.Method = paid.ID, paid.PlateText, paid.Slot, method
		s.notifier.Notify(ctx, event)
	}

	return &domain.PaymentConfirmation{SessionID: paid.ID, PaymentMethod: method}, nil
}

// PurgeStale deletes exited sessions that entered more than thresholdDays before
// now. The returned count is accurate even when an error is also returned.
func (s *ParkingService) PurgeStale(ctx context.Context, now time.Time, thresholdDays int) (int, error) {
	filter := stalePurgeFilter(now, thresholdDays)
	purged, err := s.sessionRepo.DeleteMatching(ctx, filter, s.policy.PurgeBatchSize)

	if purged > 0 {
		s.logger.Info("stale sessions purged",
			zap.Int("count", purged),
			zap.Time("entered_before", filter.EnteredBefore))

		event := newSessionEvent(domain.EventSessionsPurged, now)
		event.Count = purged
		s.notifier.Notify(ctx, event)
	}
	if err != nil {
		return purged, fmt.Errorf("%w: purge: %w", ErrPersistence, err)
	}
	return purged, nil
}

// PurgeExpired runs PurgeStale with the configured retention window.
func (s *ParkingService) PurgeExpired(ctx context.Context) (int, error) {
	return s.PurgeStale(ctx, s.now(), s.policy.RetentionDays)
}

func (s *ParkingService) GetSession(ctx context.Context, id int64) (*domain.ParkingSession, error) {
	session, err := s.sessionRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return session, nil
}

func (s *ParkingService) FindSessions(ctx context.Context, filter domain.ParkingSessionFilterDTO) ([]domain.ParkingSession, error) {
	sessions, err := s.sessionRepo.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return sessions, nil
}
