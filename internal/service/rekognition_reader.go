package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

type textDetector interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// RekognitionReader reads plate text with AWS Rekognition DetectText.
type RekognitionReader struct {
	client textDetector
}

func NewRekognitionReader(client textDetector) *RekognitionReader {
	return &RekognitionReader{client: client}
}

// ReadText joins the detected LINE texts, in the order returned, with a space.
func (r *RekognitionReader) ReadText(ctx context.Context, region image.Image) (string, error) {
	if r.client == nil {
		return "", fmt.Errorf("RekognitionReader: client not configured")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, region); err != nil {
		return "", fmt.Errorf("RekognitionReader: encode region: %w", err)
	}

	out, err := r.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: buf.Bytes()},
	})
	if err != nil {
		return "", fmt.Errorf("RekognitionReader.DetectText: %w", err)
	}

	var lines []string
	for _, d := range out.TextDetections {
		if d.Type != types.TextTypesLine {
			continue
		}
		if txt := strings.TrimSpace(aws.ToString(d.DetectedText)); txt != "" {
			lines = append(lines, txt)
		}
	}
	return strings.Join(lines, " "), nil
}
