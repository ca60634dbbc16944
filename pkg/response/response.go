package response

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/codam/web-greeter/pkg/errors"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

// JSON sends a payload with caching disabled. Greeters poll, so intermediaries must not cache.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, data)
}

// Error converts err to its HTTP status and writes an ErrorBody.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.AbortWithStatusJSON(appErr.Status, ErrorBody{Error: appErr.Message, Status: StatusError})
}
