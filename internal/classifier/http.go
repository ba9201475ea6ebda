package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// HTTPClient calls an external inference service over HTTP. The service
// accepts a multipart POST with the recording and a language code and returns
// the predicted label with its mean positive-class probability.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a classifier client for the given inference service.
func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("classifier base URL is required")
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type classifyResponse struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Classify streams the recording to the inference service.
func (c *HTTPClient) Classify(ctx context.Context, audio io.Reader, fileName, languageCode string) (Prediction, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return Prediction{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return Prediction{}, fmt.Errorf("copy audio: %w", err)
	}
	if err := writer.WriteField("languageCode", languageCode); err != nil {
		return Prediction{}, fmt.Errorf("write language field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Prediction{}, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", body)
	if err != nil {
		return Prediction{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("classify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Prediction{}, fmt.Errorf("classify request: status %d", resp.StatusCode)
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Prediction{}, fmt.Errorf("decode classify response: %w", err)
	}

	label := strings.TrimSpace(out.Label)
	if label == "" {
		label = LabelFromProbability(out.Probability)
	}
	return Prediction{Label: label, Probability: out.Probability}, nil
}

var _ Client = (*HTTPClient)(nil)
