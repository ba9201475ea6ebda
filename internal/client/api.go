package client

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

const sessionHeader = "X-Session-Token"

// API is the HTTP client for the screening backend. All calls take a
// context so a cancelled session can abort requests already in flight.
type API struct {
	baseURL string
	http    *http.Client
}

// New constructs an API client for the given backend.
func New(baseURL string, timeout time.Duration) (*API, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("server base URL is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &API{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// APIError carries the server's error envelope alongside the HTTP status.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("server error %d", e.StatusCode)
}

// Transient reports whether the error is worth retrying.
func (e *APIError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

type errorEnvelope struct {
	Status string `json:"status"`
	Error  struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// TestConnection sends a small probe artifact to verify the backend can
// receive uploads. The analysis flow must not start if this fails.
func (a *API) TestConnection(ctx context.Context, fileName string, r io.Reader) error {
	resp, err := a.postMultipart(ctx, "/test-connection", fileName, r, nil, "")
	if err != nil {
		return fmt.Errorf("test connection: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return a.asAPIError(resp)
	}
	return nil
}

// SelectLanguage tells the backend which ASR model to use for the next upload.
func (a *API) SelectLanguage(ctx context.Context, code string) error {
	payload, err := json.Marshal(map[string]string{"languageCode": code})
	if err != nil {
		return fmt.Errorf("encode language payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/selected-language", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build language request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("select language: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return a.asAPIError(resp)
	}
	return nil
}

type uploadResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	SessionToken string `json:"sessionToken"`
	JobStatus    string `json:"jobStatus"`
}

// UploadRecording sends the recording and returns the server-issued session
// token. The token must be presented on all subsequent status, result and
// cancel calls.
func (a *API) UploadRecording(ctx context.Context, fileName, languageCode string, r io.Reader) (string, error) {
	fields := map[string]string{}
	if languageCode != "" {
		fields["languageCode"] = languageCode
	}
	resp, err := a.postMultipart(ctx, "/upload", fileName, r, fields, "")
	if err != nil {
		return "", fmt.Errorf("upload recording: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", a.asAPIError(resp)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if strings.TrimSpace(out.SessionToken) == "" {
		return "", fmt.Errorf("upload response missing session token")
	}
	return out.SessionToken, nil
}

type statusResponse struct {
	Complete bool   `json:"complete"`
	Status   string `json:"status"`
}

// UploadStatus asks the backend whether classification has finished. The
// outcome separates "still processing" from "backend unreachable" so callers
// can apply a bounded retry policy instead of masking outages forever.
func (a *API) UploadStatus(ctx context.Context, token string) (PollOutcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/upload-status", nil)
	if err != nil {
		return PollFatalError, fmt.Errorf("build status request: %w", err)
	}
	setSession(req, token)

	resp, err := a.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return PollFatalError, ctx.Err()
		}
		return PollTransientError, fmt.Errorf("status request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var out statusResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return PollTransientError, fmt.Errorf("decode status response: %w", err)
		}
		if out.Complete {
			return PollReady, nil
		}
		if out.Status == "failed" {
			return PollFatalError, fmt.Errorf("screening failed")
		}
		if out.Status == "cancelled" {
			return PollFatalError, fmt.Errorf("screening was cancelled")
		}
		return PollPending, nil
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusBadRequest:
		return PollFatalError, a.asAPIError(resp)
	default:
		return PollTransientError, a.asAPIError(resp)
	}
}

type classificationResponse struct {
	Status         string  `json:"status"`
	Classification string  `json:"classification"`
	Probability    float64 `json:"probability"`
}

// Classification is the backend's verdict for one recording.
type Classification struct {
	Label       string
	Probability float64
}

// FetchClassification retrieves the classification for a completed screening.
func (a *API) FetchClassification(ctx context.Context, token string) (Classification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/get_classification", nil)
	if err != nil {
		return Classification{}, fmt.Errorf("build classification request: %w", err)
	}
	setSession(req, token)

	resp, err := a.http.Do(req)
	if err != nil {
		return Classification{}, fmt.Errorf("classification request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Classification{}, a.asAPIError(resp)
	}

	var out classificationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Classification{}, fmt.Errorf("decode classification response: %w", err)
	}
	return Classification{Label: out.Classification, Probability: out.Probability}, nil
}

// Cancel notifies the backend that the session was abandoned.
func (a *API) Cancel(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/cancel", nil)
	if err != nil {
		return fmt.Errorf("build cancel request: %w", err)
	}
	setSession(req, token)

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("cancel request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return a.asAPIError(resp)
	}
	return nil
}

func (a *API) postMultipart(ctx context.Context, path, fileName string, r io.Reader, fields map[string]string, token string) (*http.Response, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("copy file: %w", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set(sessionHeader, token)
	}

	return a.http.Do(req)
}

func (a *API) asAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var envelope errorEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}

func setSession(req *http.Request, token string) {
	if token != "" {
		req.Header.Set(sessionHeader, token)
	}
}
