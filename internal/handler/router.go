package handler

import (
	"bytes"
	"io"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/armchr/imagesearch/internal/config"
	"github.com/armchr/imagesearch/internal/controller"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// responseWriter wraps gin.ResponseWriter to capture the response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func SetupRouter(searchController *controller.SearchController, cfg *config.Config, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(CustomRecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(cfg.App.DebugHTTP, logger))

	v1 := router.Group("/api/v1")
	{
		// Indexing jobs
		v1.POST("/index", searchController.Index)
		v1.GET("/index/:job_id", searchController.IndexStatus)

		v1.POST("/search", searchController.Search)

		v1.GET("/health", searchController.Health)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// maxLoggedBody caps request and response bodies in debug logs; base64
// images make them large
const maxLoggedBody = 10000

func truncateBody(body []byte) string {
	if len(body) <= maxLoggedBody {
		return string(body)
	}
	return string(body[:maxLoggedBody]) + "... (truncated)"
}

// LoggerMiddleware logs every request and response. With debugHTTP the
// bodies are logged too. Prometheus scrapes are logged at debug level.
func LoggerMiddleware(debugHTTP bool, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		logAt := logger.Info
		if path == "/metrics" {
			logAt = logger.Debug
		}

		requestFields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("client_ip", c.ClientIP()),
		}

		var responseBody *bytes.Buffer
		if debugHTTP {
			if c.Request.Body != nil {
				requestBody, _ := io.ReadAll(c.Request.Body)
				// Restore the body for the handler
				c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
				if len(requestBody) > 0 {
					requestFields = append(requestFields, zap.String("request_body", truncateBody(requestBody)))
				}
			}

			responseBody = &bytes.Buffer{}
			c.Writer = &responseWriter{
				ResponseWriter: c.Writer,
				body:           responseBody,
			}
		}
		logAt("HTTP Request", requestFields...)

		c.Next()

		status := c.Writer.Status()
		responseFields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		}
		if responseBody != nil && responseBody.Len() > 0 {
			responseFields = append(responseFields, zap.String("response_body", truncateBody(responseBody.Bytes())))
		}

		if status >= http.StatusInternalServerError {
			logger.Warn("HTTP Response", responseFields...)
			return
		}
		logAt("HTTP Response", responseFields...)
	}
}

func CustomRecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered",
					zap.Any("error", err),
					zap.String("stack", string(debug.Stack())),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}
