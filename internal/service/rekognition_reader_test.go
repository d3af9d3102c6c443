package service

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTextDetector struct {
	out   *rekognition.DetectTextOutput
	err   error
	input *rekognition.DetectTextInput
}

func (f *fakeTextDetector) DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error) {
	f.input = params
	return f.out, f.err
}

func TestRekognitionReader_JoinsLines(t *testing.T) {
	client := &fakeTextDetector{out: &rekognition.DetectTextOutput{
		TextDetections: []types.TextDetection{
			{Type: types.TextTypesLine, DetectedText: aws.String("KA01")},
			{Type: types.TextTypesWord, DetectedText: aws.String("KA01")},
			{Type: types.TextTypesLine, DetectedText: aws.String(" AB1234 ")},
			{Type: types.TextTypesWord, DetectedText: aws.String("AB1234")},
			{Type: types.TextTypesLine},
		},
	}}

	text, err := NewRekognitionReader(client).ReadText(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	require.NoError(t, err)
	assert.Equal(t, "KA01 AB1234", text)
	require.NotNil(t, client.input)
	assert.NotEmpty(t, client.input.Image.Bytes)
}

func TestRekognitionReader_Errors(t *testing.T) {
	boom := errors.New("access denied")
	_, err := NewRekognitionReader(&fakeTextDetector{err: boom}).ReadText(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	require.ErrorIs(t, err, boom)

	_, err = NewRekognitionReader(nil).ReadText(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	require.Error(t, err)
}
