package service

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/amit9129/automated-parking-system/internal/vision"
)

type stubExtractor struct {
	contours []vision.Contour
	err      error
}

func (s stubExtractor) ExternalContours(ctx context.Context, frame image.Image) ([]vision.Contour, error) {
	return s.contours, s.err
}

type stubReader struct {
	text  string
	err   error
	block bool
	seen  []image.Rectangle
}

func (r *stubReader) ReadText(ctx context.Context, region image.Image) (string, error) {
	r.seen = append(r.seen, region.Bounds())
	if r.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return r.text, r.err
}

var plateOutline = vision.Contour{{10, 10}, {110, 10}, {110, 50}, {10, 50}}

func newLPR(extractor vision.ContourExtractor, reader TextReader) *LPRService {
	locator := vision.NewPlateLocator(extractor, vision.FirstQuadrilateral, vision.DefaultEpsilonFactor)
	return NewLPRService(locator, reader, 50*time.Millisecond, zap.NewNop())
}

func TestLPRService_Detect(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 200, 100))
	ctx := context.Background()

	t.Run("crops the quadrilateral and trims text", func(t *testing.T) {
		reader := &stubReader{text: "  KA01AB1234 \n"}
		d, err := newLPR(stubExtractor{contours: []vision.Contour{plateOutline}}, reader).Detect(ctx, frame)
		require.NoError(t, err)
		assert.True(t, d.Found)
		assert.Equal(t, "KA01AB1234", d.Plate)
		assert.Equal(t, image.Rect(10, 10, 111, 51), d.Region)
		require.Len(t, reader.seen, 1)
		assert.Equal(t, 101, reader.seen[0].Dx())
		assert.Equal(t, 41, reader.seen[0].Dy())
	})

	t.Run("no quadrilateral skips ocr", func(t *testing.T) {
		reader := &stubReader{text: "GUESS"}
		triangle := vision.Contour{{0, 0}, {100, 0}, {50, 80}}
		plate, found, err := newLPR(stubExtractor{contours: []vision.Contour{triangle}}, reader).DetectPlate(ctx, frame)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, plate)
		assert.Empty(t, reader.seen)
	})

	t.Run("disabled ocr reports the region only", func(t *testing.T) {
		d, err := newLPR(stubExtractor{contours: []vision.Contour{plateOutline}}, nil).Detect(ctx, frame)
		require.NoError(t, err)
		assert.False(t, d.Found)
		assert.Equal(t, image.Rect(10, 10, 111, 51), d.Region)
	})

	t.Run("blank ocr is absence", func(t *testing.T) {
		reader := &stubReader{text: " \t "}
		_, found, err := newLPR(stubExtractor{contours: []vision.Contour{plateOutline}}, reader).DetectPlate(ctx, frame)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("empty frame", func(t *testing.T) {
		_, found, err := newLPR(stubExtractor{}, &stubReader{}).DetectPlate(ctx, image.NewRGBA(image.Rectangle{}))
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("ocr error is surfaced", func(t *testing.T) {
		boom := errors.New("throttled")
		_, _, err := newLPR(stubExtractor{contours: []vision.Contour{plateOutline}}, &stubReader{err: boom}).DetectPlate(ctx, frame)
		require.ErrorIs(t, err, boom)
	})

	t.Run("ocr deadline", func(t *testing.T) {
		_, _, err := newLPR(stubExtractor{contours: []vision.Contour{plateOutline}}, &stubReader{block: true}).DetectPlate(ctx, frame)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("extractor error is surfaced", func(t *testing.T) {
		boom := errors.New("bad frame")
		_, _, err := newLPR(stubExtractor{err: boom}, &stubReader{}).DetectPlate(ctx, frame)
		require.ErrorIs(t, err, boom)
	})
}
