package classifier

import (
	"context"
	"errors"
	"io"
)

// Labels produced by the screening model.
const (
	LabelAD = "AD"
	LabelHC = "HC"
)

// Prediction is the outcome of classifying one recording.
type Prediction struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Client classifies a speech recording. The audio reader carries the raw
// recording bytes; languageCode selects the ASR model on the inference side.
type Client interface {
	Classify(ctx context.Context, audio io.Reader, fileName, languageCode string) (Prediction, error)
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("classifier not configured")

// PlaceholderClient is used when no inference service is configured.
type PlaceholderClient struct{}

func (PlaceholderClient) Classify(ctx context.Context, audio io.Reader, fileName, languageCode string) (Prediction, error) {
	_ = ctx
	_ = audio
	_ = fileName
	_ = languageCode
	return Prediction{}, ErrNotConfigured
}

// LabelFromProbability maps a mean positive-class probability to a label,
// mirroring the rounding done by the trained model's prediction step.
func LabelFromProbability(p float64) string {
	if p >= 0.5 {
		return LabelAD
	}
	return LabelHC
}
