// Package opencv binds the raster half of plate detection and frame capture to
// OpenCV through gocv. It needs cgo and an OpenCV 4 installation.
package opencv

import (
	"context"
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/amit9129/automated-parking-system/internal/vision"
)

var ErrNoFrame = errors.New("camera returned no frame")

// ContourExtractor converts a frame to grayscale, blurs it, runs Canny and
// traces external contours with simple chain approximation.
type ContourExtractor struct {
	BlurKernel int
	CannyLow   float32
	CannyHigh  float32
}

func NewContourExtractor() *ContourExtractor {
	return &ContourExtractor{BlurKernel: 5, CannyLow: 100, CannyHigh: 200}
}

var _ vision.ContourExtractor = (*ContourExtractor)(nil)

func (e *ContourExtractor) ExternalContours(ctx context.Context, frame image.Image) ([]vision.Contour, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("opencv: convert frame: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(e.BlurKernel, e.BlurKernel), 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, e.CannyLow, e.CannyHigh)

	traced := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer traced.Close()

	contours := make([]vision.Contour, 0, traced.Size())
	for i := 0; i < traced.Size(); i++ {
		contours = append(contours, vision.Contour(traced.At(i).ToPoints()))
	}
	return contours, nil
}

// Camera grabs single frames from a local video device.
type Camera struct {
	DeviceID int
}

func NewCamera(deviceID int) *Camera {
	return &Camera{DeviceID: deviceID}
}

// Capture opens the device, reads one frame and releases the device again.
func (c *Camera) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	webcam, err := gocv.OpenVideoCapture(c.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("opencv: open camera %d: %w", c.DeviceID, err)
	}
	defer webcam.Close()

	mat := gocv.NewMat()
	defer mat.Close()
	if ok := webcam.Read(&mat); !ok || mat.Empty() {
		return nil, ErrNoFrame
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("opencv: decode frame: %w", err)
	}
	return img, nil
}
