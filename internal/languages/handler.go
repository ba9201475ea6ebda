package languages

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"screening-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the language service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches language routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/selected-language", h.setLanguage)
}

type setLanguageRequest struct {
	LanguageCode string `json:"languageCode"`
}

func (h *Handler) setLanguage(c *gin.Context) {
	var req setLanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.LanguageCode == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing 'languageCode' in request body", nil)
		return
	}

	if err := h.Svc.Set(req.LanguageCode); err != nil {
		switch {
		case errors.Is(err, ErrUnsupported):
			respond.Error(c, http.StatusBadRequest, "validation_error",
				fmt.Sprintf("Unsupported language %q", req.LanguageCode),
				gin.H{"supported": Supported()})
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to set language", nil)
		}
		return
	}

	respond.OK(c, gin.H{
		"status":  "success",
		"message": fmt.Sprintf("Language '%s' set successfully", h.Svc.Active()),
	})
}
