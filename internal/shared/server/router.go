package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"screening-backend/internal/languages"
	"screening-backend/internal/recordings"
	"screening-backend/internal/screenings"
	"screening-backend/internal/shared/config"
	"screening-backend/internal/shared/metrics"
	"screening-backend/internal/shared/server/middleware"
	"screening-backend/internal/shared/server/respond"
	"screening-backend/internal/uploads"
)

// RouterDeps carries the handlers the router wires up.
type RouterDeps struct {
	Config           config.Config
	RecordingHandler *recordings.Handler
	ScreeningHandler *screenings.Handler
	LanguageHandler  *languages.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
// Protocol routes live at the root; the mobile client's paths are fixed.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	root := r.Group("/")
	root.GET("/healthz", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	root.GET("/metrics", metrics.Handler())

	if deps.RecordingHandler != nil {
		deps.RecordingHandler.RegisterRoutes(root)
	}
	if deps.LanguageHandler != nil {
		deps.LanguageHandler.RegisterRoutes(root)
	}
	if deps.ScreeningHandler != nil {
		deps.ScreeningHandler.RegisterRoutes(root)
	}
	uploads.RegisterRoutes(root)

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8000"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
