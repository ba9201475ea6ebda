package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes the payload with the given status. Handlers go through this
// package so every endpoint shares one envelope shape.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK writes a 200 JSON response.
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}
