package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"

	"github.com/amit9129/automated-parking-system/internal/domain"
	"github.com/amit9129/automated-parking-system/internal/repository"
	"github.com/amit9129/automated-parking-system/internal/service"
)

// ParkingLifecycle is the part of service.ParkingService the HTTP layer drives.
type ParkingLifecycle interface {
	RegisterEntry(ctx context.Context, frame image.Image) (*domain.EntryReceipt, error)
	RegisterEntryFromCamera(ctx context.Context) (*domain.EntryReceipt, error)
	ProcessExit(ctx context.Context, plate string) (*domain.ExitResponse, error)
	ProcessPayment(ctx context.Context, plate string, method domain.PaymentMethod) (*domain.PaymentConfirmation, error)
	PurgeExpired(ctx context.Context) (int, error)
	GetSession(ctx context.Context, id int64) (*domain.ParkingSession, error)
	FindSessions(ctx context.Context, filter domain.ParkingSessionFilterDTO) ([]domain.ParkingSession, error)
}

type ParkingSessionHandler struct {
	parkingService ParkingLifecycle
}

func NewParkingSessionHandler(ps ParkingLifecycle) *ParkingSessionHandler {
	return &ParkingSessionHandler{parkingService: ps}
}

// writeServiceError maps lifecycle errors to HTTP statuses.
func writeServiceError(c *gin.Context, fallback string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrDetectionFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrNotExited), errors.Is(err, service.ErrCaptureBusy):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidPaymentMethod):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrCaptureFailed):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": fallback, "details": err.Error()})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// decodeFrame turns a base64 JPEG/PNG upload into an image.
func decodeFrame(encoded string) (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("empty image")
	}
	return imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
}

// POST /api/v1/entry
func (h *ParkingSessionHandler) RegisterEntry(c *gin.Context) {
	var dto domain.EntryRequestDTO
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&dto); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}
	}

	var (
		receipt *domain.EntryReceipt
		err     error
	)
	if dto.ImageBase64 == "" {
		receipt, err = h.parkingService.RegisterEntryFromCamera(c.Request.Context())
	} else {
		frame, decodeErr := decodeFrame(dto.ImageBase64)
		if decodeErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image data", "details": decodeErr.Error()})
			return
		}
		receipt, err = h.parkingService.RegisterEntry(c.Request.Context(), frame)
	}
	if err != nil {
		writeServiceError(c, "could not register entry", err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

// POST /api/v1/exit
func (h *ParkingSessionHandler) ProcessExit(c *gin.Context) {
	var dto domain.ExitRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.parkingService.ProcessExit(c.Request.Context(), dto.PlateText)
	if err != nil {
		writeServiceError(c, "could not process exit", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "Exit processed",
		"slip":            resp.Slip,
		"payment_options": resp.PaymentOptions,
	})
}

// POST /api/v1/pay
func (h *ParkingSessionHandler) ProcessPayment(c *gin.Context) {
	var dto domain.PaymentRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	conf, err := h.parkingService.ProcessPayment(c.Request.Context(), dto.PlateText, domain.PaymentMethod(dto.PaymentMethod))
	if err != nil {
		writeServiceError(c, "could not record payment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Payment successful",
		"session_id":     conf.SessionID,
		"payment_method": conf.PaymentMethod,
	})
}

// POST /api/v1/purge
func (h *ParkingSessionHandler) PurgeSessions(c *gin.Context) {
	purged, err := h.parkingService.PurgeExpired(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":        "purge interrupted",
			"details":      err.Error(),
			"purged_count": purged,
		})
		return
	}
	c.JSON(http.StatusOK, domain.PurgeResult{PurgedCount: purged})
}

// GET /api/v1/sessions/:id
func (h *ParkingSessionHandler) GetSession(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	session, err := h.parkingService.GetSession(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, "could not load session", err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// GET /api/v1/sessions
func (h *ParkingSessionHandler) FindSessions(c *gin.Context) {
	var filter domain.ParkingSessionFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter", "details": err.Error()})
		return
	}

	sessions, err := h.parkingService.FindSessions(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, "could not list sessions", err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}
