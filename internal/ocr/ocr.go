package ocr

import (
	"context"
	"errors"
	"time"
)

// ErrRecognition wraps every failure at the OCR boundary. Callers use
// errors.Is to tell a failed recognition apart from an empty result.
var ErrRecognition = errors.New("ocr: recognition failed")

// Status labels reported through ProgressFunc.
const (
	StatusInitializing = "initializing tesseract"
	StatusRecognizing  = "recognizing text"
)

// Progress is one progress report. Value is in [0,1] and only meaningful
// while Status is StatusRecognizing.
type Progress struct {
	Status string
	Value  float64
}

// ProgressFunc receives progress reports. It may be nil.
type ProgressFunc func(Progress)

// Result is the recognized text of one image.
type Result struct {
	Text     string
	Language string
	Duration time.Duration
	Warnings []string
}

// Recognizer turns image bytes into text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, lang string, progress ProgressFunc) (Result, error)
}

func report(fn ProgressFunc, status string, v float64) {
	if fn != nil {
		fn(Progress{Status: status, Value: v})
	}
}
