package screenings

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"screening-backend/internal/classifier"
	"screening-backend/internal/languages"
)

func newTestRouter(t *testing.T, clf classifier.Client, langSvc *languages.Service) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := newTestService(t, clf, &queueStub{})
	handler := NewHandler(svc, langSvc)

	r := gin.New()
	handler.RegisterRoutes(r.Group("/"))
	return r, svc
}

func multipartUpload(t *testing.T, fields map[string]string, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return out
}

func TestUploadThenPollThenClassification(t *testing.T) {
	clf := stubClassifier{pred: classifier.Prediction{Label: classifier.LabelAD, Probability: 0.91}}
	router, svc := newTestRouter(t, clf, languages.NewService(""))

	body, contentType := multipartUpload(t, map[string]string{"languageCode": "en"}, "sample.wav", "audio-bytes")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	uploadResp := decodeBody(t, rec)
	token, _ := uploadResp["sessionToken"].(string)
	if token == "" {
		t.Fatalf("no session token in response: %v", uploadResp)
	}
	if uploadResp["message"] != "File uploaded successfully" {
		t.Fatalf("message = %v", uploadResp["message"])
	}

	// Run the queued job the way the worker would.
	if err := svc.Process(context.Background(), token); err != nil {
		t.Fatalf("Process: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/upload-status?session="+token, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d: %s", rec.Code, rec.Body.String())
	}
	statusResp := decodeBody(t, rec)
	if statusResp["complete"] != true {
		t.Fatalf("complete = %v, want true", statusResp["complete"])
	}

	req = httptest.NewRequest(http.MethodGet, "/get_classification", nil)
	req.Header.Set("X-Session-Token", token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("classification code = %d: %s", rec.Code, rec.Body.String())
	}
	classResp := decodeBody(t, rec)
	if classResp["classification"] != classifier.LabelAD {
		t.Fatalf("classification = %v, want AD", classResp["classification"])
	}
	if classResp["sessionToken"] != token {
		t.Fatalf("sessionToken = %v, want %s", classResp["sessionToken"], token)
	}
}

func TestUploadWithoutLanguageUsesActiveLanguage(t *testing.T) {
	langSvc := languages.NewService("")
	if err := langSvc.Set("de"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	router, svc := newTestRouter(t, stubClassifier{}, langSvc)

	body, contentType := multipartUpload(t, nil, "sample.wav", "audio")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	token, _ := decodeBody(t, rec)["sessionToken"].(string)

	screening, err := svc.Repo.GetByToken(context.Background(), token)
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if screening.LanguageCode != "de" {
		t.Fatalf("languageCode = %s, want de", screening.LanguageCode)
	}
}

func TestUploadWithoutAnyLanguageFails(t *testing.T) {
	router, _ := newTestRouter(t, stubClassifier{}, languages.NewService(""))

	body, contentType := multipartUpload(t, nil, "sample.wav", "audio")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadStatusUnknownTokenIs404(t *testing.T) {
	router, _ := newTestRouter(t, stubClassifier{}, languages.NewService(""))

	req := httptest.NewRequest(http.MethodGet, "/upload-status?session=nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestUploadStatusWithoutTokenBeforeAnyUpload(t *testing.T) {
	router, _ := newTestRouter(t, stubClassifier{}, languages.NewService(""))

	req := httptest.NewRequest(http.MethodGet, "/upload-status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if decodeBody(t, rec)["complete"] != false {
		t.Fatal("expected complete=false before any upload")
	}
}

func TestUploadStatusRateLimited(t *testing.T) {
	router, _ := newTestRouter(t, stubClassifier{}, languages.NewService(""))

	for i, want := range []int{http.StatusNotFound, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodGet, "/upload-status?session=tok-limit", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("poll %d status = %d, want %d", i, rec.Code, want)
		}
		if want == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
			t.Fatal("missing Retry-After header")
		}
	}
}

func TestClassificationBeforeCompletionIs409(t *testing.T) {
	router, _ := newTestRouter(t, stubClassifier{}, languages.NewService(""))

	body, contentType := multipartUpload(t, map[string]string{"languageCode": "en"}, "sample.wav", "audio")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	token, _ := decodeBody(t, rec)["sessionToken"].(string)

	req = httptest.NewRequest(http.MethodGet, "/get_classification?session="+token, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestCancelledScreeningReports410(t *testing.T) {
	router, svc := newTestRouter(t, stubClassifier{}, languages.NewService(""))

	body, contentType := multipartUpload(t, map[string]string{"languageCode": "en"}, "sample.wav", "audio")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	token, _ := decodeBody(t, rec)["sessionToken"].(string)

	req = httptest.NewRequest(http.MethodPost, "/cancel", nil)
	req.Header.Set("X-Session-Token", token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d: %s", rec.Code, rec.Body.String())
	}
	if decodeBody(t, rec)["message"] != "Process canceled and cleaned up" {
		t.Fatalf("unexpected cancel message: %s", rec.Body.String())
	}

	screening, err := svc.Repo.GetByToken(context.Background(), token)
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if screening.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", screening.Status)
	}

	req = httptest.NewRequest(http.MethodGet, "/get_classification?session="+token, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusGone {
		t.Fatalf("classification status = %d, want 410", rec.Code)
	}
}

func TestCancelWithNothingInFlightIsBestEffort(t *testing.T) {
	router, _ := newTestRouter(t, stubClassifier{}, languages.NewService(""))

	req := httptest.NewRequest(http.MethodPost, "/cancel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
