package screenings

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"screening-backend/internal/languages"
	"screening-backend/internal/shared/server/respond"
)

const maxUploadSize = 25 << 20 // 25MB

// Handler wires HTTP handlers to the screenings service.
type Handler struct {
	Svc       *Service
	Languages *languages.Service
	limiter   *pollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, langSvc *languages.Service) *Handler {
	return &Handler{
		Svc:       svc,
		Languages: langSvc,
		limiter:   newPollLimiter(pollLimitWindow, nil),
	}
}

// RegisterRoutes attaches screening routes to the router group. Route names
// follow the wire contract the mobile client was built against.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload", h.upload)
	rg.GET("/upload-status", h.uploadStatus)
	rg.GET("/get_classification", h.getClassification)
	rg.POST("/cancel", h.cancel)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "No file part in request", nil)
		return
	}
	if fileHeader.Filename == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "No selected file", nil)
		return
	}

	languageCode := c.PostForm("languageCode")
	if languageCode == "" {
		languageCode = h.Languages.Active()
	}
	if languageCode == "" {
		respond.Error(c, http.StatusBadRequest, "language_not_set", "Language code not set", nil)
		return
	}
	if !languages.IsSupported(languageCode) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Unsupported language", gin.H{"supported": languages.Supported()})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	ctx := WithRequestID(c.Request.Context(), c.GetString("requestId"))
	screening, err := h.Svc.Start(ctx, fileHeader.Filename, languageCode, file)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start screening", nil)
		return
	}

	c.Set("sessionToken", screening.Token)
	c.Set("recordingId", screening.RecordingID)
	c.Set("statusTransition", "->queued")

	respond.OK(c, gin.H{
		"status":       "success",
		"message":      "File uploaded successfully",
		"sessionToken": screening.Token,
		"jobStatus":    screening.Status,
	})
}

func (h *Handler) uploadStatus(c *gin.Context) {
	token := tokenFromRequest(c)

	if !h.limiter.Allow(pollKey(c, token)) {
		c.Header("Retry-After", strconv.Itoa(h.limiter.RetryAfterSeconds()))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "polling too fast", nil)
		return
	}

	complete, status, err := h.Svc.Status(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound) && token != "":
			respond.Error(c, http.StatusNotFound, "not_found", "unknown session token", nil)
		case errors.Is(err, ErrNotFound):
			// Legacy clients poll before any upload exists.
			respond.OK(c, gin.H{"complete": false})
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch status", nil)
		}
		return
	}

	c.Set("sessionToken", token)
	respond.OK(c, gin.H{
		"complete": complete,
		"status":   status,
	})
}

func (h *Handler) getClassification(c *gin.Context) {
	token := tokenFromRequest(c)

	screening, err := h.Svc.Result(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound) && token != "":
			respond.Error(c, http.StatusNotFound, "not_found", "unknown session token", nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusBadRequest, "no_recording", "No file uploaded yet", nil)
		case errors.Is(err, ErrNotReady):
			respond.Error(c, http.StatusConflict, "not_ready", "classification not ready", nil)
		case errors.Is(err, ErrCancelled):
			respond.Error(c, http.StatusGone, "cancelled", "screening was cancelled", nil)
		case errors.Is(err, ErrFailed):
			respond.Error(c, http.StatusInternalServerError, "classification_failed", "classification failed", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch classification", nil)
		}
		return
	}

	c.Set("sessionToken", screening.Token)
	respond.OK(c, gin.H{
		"status":         "success",
		"classification": screening.Label,
		"probability":    screening.Probability,
		"sessionToken":   screening.Token,
	})
}

func (h *Handler) cancel(c *gin.Context) {
	token := tokenFromRequest(c)

	if err := h.Svc.Cancel(c.Request.Context(), token); err != nil {
		switch {
		case errors.Is(err, ErrNotFound) && token != "":
			respond.Error(c, http.StatusNotFound, "not_found", "unknown session token", nil)
		case errors.Is(err, ErrNotFound):
			// Nothing in flight; cancel stays best-effort for legacy clients.
			respond.OK(c, gin.H{"status": "success", "message": "Nothing to cancel"})
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to cancel", nil)
		}
		return
	}

	c.Set("sessionToken", token)
	respond.OK(c, gin.H{
		"status":  "success",
		"message": "Process canceled and cleaned up",
	})
}

// tokenFromRequest reads the session token from the query string or header.
// Either works; the query form keeps legacy GET polling simple.
func tokenFromRequest(c *gin.Context) string {
	if token := c.Query("session"); token != "" {
		return token
	}
	return c.GetHeader("X-Session-Token")
}

func pollKey(c *gin.Context, token string) string {
	if token != "" {
		return token
	}
	return c.ClientIP()
}
