package service

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/amit9129/automated-parking-system/internal/vision"
)

// TextReader runs OCR over a cropped plate region.
type TextReader interface {
	ReadText(ctx context.Context, region image.Image) (string, error)
}

// PlateDetection is the outcome of one detection pass. Found is false when no
// quadrilateral qualified or OCR returned blank text.
type PlateDetection struct {
	Plate  string
	Region image.Rectangle
	Found  bool
}

type LPRService struct {
	locator *vision.PlateLocator
	reader  TextReader
	timeout time.Duration
	logger  *zap.Logger
}

func NewLPRService(locator *vision.PlateLocator, reader TextReader, timeout time.Duration, logger *zap.Logger) *LPRService {
	return &LPRService{locator: locator, reader: reader, timeout: timeout, logger: logger.Named("lpr")}
}

// DetectPlate satisfies PlateDetector.
func (s *LPRService) DetectPlate(ctx context.Context, frame image.Image) (string, bool, error) {
	d, err := s.Detect(ctx, frame)
	return d.Plate, d.Found, err
}

// Detect locates the plate region, crops it and reads its text. The whole pass
// runs under the OCR timeout; expiry returns context.DeadlineExceeded.
func (s *LPRService) Detect(ctx context.Context, frame image.Image) (PlateDetection, error) {
	if frame == nil || frame.Bounds().Empty() {
		return PlateDetection{}, nil
	}

	// Locate reports an empty rectangle when nothing qualifies.
	region, err := callWithDeadline(ctx, s.timeout, func(ctx context.Context) (image.Rectangle, error) {
		r, _, err := s.locator.Locate(ctx, frame)
		return r, err
	})
	if err != nil {
		return PlateDetection{}, fmt.Errorf("LPRService.Detect: %w", err)
	}
	if region.Empty() {
		s.logger.Debug("no quadrilateral plate candidate")
		return PlateDetection{}, nil
	}

	if s.reader == nil {
		s.logger.Warn("plate located but ocr is disabled", zap.Stringer("region", region))
		return PlateDetection{Region: region}, nil
	}

	crop := imaging.Crop(frame, region)
	text, err := callWithDeadline(ctx, s.timeout, func(ctx context.Context) (string, error) {
		return s.reader.ReadText(ctx, crop)
	})
	if err != nil {
		return PlateDetection{Region: region}, fmt.Errorf("LPRService.Detect: ocr: %w", err)
	}

	plate := strings.TrimSpace(text)
	if plate == "" {
		s.logger.Debug("ocr returned blank text", zap.Stringer("region", region))
		return PlateDetection{Region: region}, nil
	}
	s.logger.Info("plate detected", zap.String("plate", plate), zap.Stringer("region", region))
	return PlateDetection{Plate: plate, Region: region, Found: true}, nil
}
