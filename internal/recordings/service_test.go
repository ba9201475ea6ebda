package recordings

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	localstore "screening-backend/internal/shared/storage/object/local"
)

func newTestRecordingsService(t *testing.T) *Service {
	t.Helper()
	return &Service{
		Store: localstore.New(t.TempDir()),
		Repo:  NewMemoryRepo(),
	}
}

func TestSaveAndOpenArtifact(t *testing.T) {
	svc := newTestRecordingsService(t)
	ctx := context.Background()

	rec, err := svc.Save(ctx, "tok-1", "sample.wav", "en", strings.NewReader("audio-bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if rec.ID == "" || rec.StorageKey == "" {
		t.Fatalf("recording incomplete: %+v", rec)
	}
	if rec.SizeBytes != int64(len("audio-bytes")) {
		t.Fatalf("size = %d", rec.SizeBytes)
	}

	f, err := svc.OpenArtifact(ctx, rec)
	if err != nil {
		t.Fatalf("OpenArtifact: %v", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Fatalf("content = %q", data)
	}
}

func TestSaveRejectsMissingInput(t *testing.T) {
	svc := newTestRecordingsService(t)
	if _, err := svc.Save(context.Background(), "", "a.wav", "en", strings.NewReader("x")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.Save(context.Background(), "tok", "", "en", strings.NewReader("x")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRemoveDeletesArtifactAndRecord(t *testing.T) {
	svc := newTestRecordingsService(t)
	ctx := context.Background()

	rec, err := svc.Save(ctx, "tok-1", "sample.wav", "en", strings.NewReader("audio"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := svc.Remove(ctx, rec); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := svc.Get(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := svc.OpenArtifact(ctx, rec); err == nil {
		t.Fatal("artifact still readable after Remove")
	}
}

func TestProbeLeavesNothingBehind(t *testing.T) {
	dir := t.TempDir()
	svc := &Service{Store: localstore.New(dir), Repo: NewMemoryRepo()}

	if err := svc.Probe(context.Background(), "probe.wav", strings.NewReader("ping")); err != nil {
		t.Fatalf("Probe: %v", err)
	}
}

func TestTestConnectionEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newTestRecordingsService(t)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/"))

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "probe.wav")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write([]byte("ping"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/test-connection", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Test connection successful") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestTestConnectionWithoutFileFails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newTestRecordingsService(t)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/"))

	req := httptest.NewRequest(http.MethodPost, "/test-connection", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
