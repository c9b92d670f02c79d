package http

import (
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequireJSON rejects clients that cannot speak JSON. Responses are only
// produced as JSON, and POST bodies must be JSON.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !acceptsJSON(c.GetHeader("Accept")) {
			c.AbortWithStatusJSON(http.StatusNotAcceptable, gin.H{
				"error":       "Not Acceptable",
				"description": "This API only supports JSON-encoded responses",
			})
			return
		}

		if c.Request.Method == http.MethodPost {
			mediaType, _, err := mime.ParseMediaType(c.ContentType())
			if err != nil || mediaType != "application/json" {
				c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
					"error":       "Unsupported Media Type",
					"description": "This API only supports JSON-encoded requests",
				})
				return
			}
		}

		c.Next()
	}
}

func acceptsJSON(accept string) bool {
	if strings.TrimSpace(accept) == "" {
		return true
	}
	for _, part := range strings.Split(accept, ",") {
		mediaType := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		switch strings.ToLower(mediaType) {
		case "application/json", "application/*", "*/*":
			return true
		}
	}
	return false
}

// RequestLogger logs one entry per request
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}
