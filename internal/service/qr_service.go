package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/skip2/go-qrcode"

	"github.com/amit9129/automated-parking-system/internal/domain"
)

const qrImageSize = 310

// QRWriter renders a payload as a QR image and returns where it was stored.
type QRWriter interface {
	WriteQR(payload string) (string, error)
}

// EntryQRPayload is the text encoded in the QR code handed out at entry.
func EntryQRPayload(plate string, slot int64, entryTime time.Time) string {
	return fmt.Sprintf("Vehicle: %s, Slot: %d, Entry Time: %s",
		plate, slot, entryTime.UTC().Format(domain.SlipTimeLayout))
}

// SanitizeFilename keeps letters, digits, spaces and underscores and replaces
// every other rune with an underscore, so path separators never survive.
func SanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' {
			return r
		}
		return '_'
	}, name)
}

// FileQRWriter writes PNG QR codes into a directory.
type FileQRWriter struct {
	dir string
}

// NewFileQRWriter creates dir if needed.
func NewFileQRWriter(dir string) (*FileQRWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("FileQRWriter: create %s: %w", dir, err)
	}
	return &FileQRWriter{dir: dir}, nil
}

func (w *FileQRWriter) WriteQR(payload string) (string, error) {
	path := filepath.Join(w.dir, SanitizeFilename(payload)+".png")
	if err := qrcode.WriteFile(payload, qrcode.Medium, qrImageSize, path); err != nil {
		return "", fmt.Errorf("FileQRWriter.WriteQR: %w", err)
	}
	return path, nil
}
