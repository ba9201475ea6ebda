package recordings

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"screening-backend/internal/shared/server/respond"
)

const maxProbeSize = 1 << 20 // 1MB

// Handler wires HTTP handlers to the recordings service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches recording routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/test-connection", h.testConnection)
}

func (h *Handler) testConnection(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxProbeSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "No file part in request", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	if err := h.Svc.Probe(c.Request.Context(), fileHeader.Filename, file); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "connectivity check failed", nil)
		return
	}

	respond.OK(c, gin.H{
		"status":  "success",
		"message": "Test connection successful",
	})
}
