package domain

import "image"

// LPRRequestDTO is used when a client uploads a frame for plate detection only.
type LPRRequestDTO struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
}

// LPRResponseDTO returns the plate candidate; DetectedPlate is empty when nothing was found.
type LPRResponseDTO struct {
	DetectedPlate string          `json:"detected_plate"`
	Region        image.Rectangle `json:"region"`
	ErrorMessage  string          `json:"error_message,omitempty"`
}
