package router

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestLog tags each request with an id and logs method, path, status and
// latency once the handler chain finishes.
func RequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)

		start := time.Now()
		c.Next()
		log.Printf("http: %s %s %s -> %d (%s)",
			id[:8], c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
