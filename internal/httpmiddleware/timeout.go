package httpmiddleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestDeadline bounds every request context so storage calls inherit an
// explicit deadline instead of the client's defaults.
func RequestDeadline(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		d = 10 * time.Second
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
