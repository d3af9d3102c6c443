package handler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amit9129/automated-parking-system/internal/domain"
	"github.com/amit9129/automated-parking-system/internal/service"
)

type PlateReader interface {
	Detect(ctx context.Context, frame image.Image) (service.PlateDetection, error)
}

// LPRHandler runs detection only; nothing is persisted.
type LPRHandler struct {
	lprService PlateReader
}

func NewLPRHandler(lprService PlateReader) *LPRHandler {
	return &LPRHandler{lprService: lprService}
}

// POST /api/v1/lpr/detect
func (h *LPRHandler) DetectPlate(c *gin.Context) {
	var req domain.LPRRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	frame, err := decodeFrame(req.ImageBase64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image data", "details": err.Error()})
		return
	}

	detection, err := h.lprService.Detect(c.Request.Context(), frame)
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", service.ErrDetectionFailed, err)
	}
	if err != nil {
		writeServiceError(c, "plate detection failed", err)
		return
	}
	if !detection.Found {
		c.JSON(http.StatusOK, domain.LPRResponseDTO{
			Region:       detection.Region,
			ErrorMessage: "no license plate detected",
		})
		return
	}
	c.JSON(http.StatusOK, domain.LPRResponseDTO{
		DetectedPlate: detection.Plate,
		Region:        detection.Region,
	})
}
