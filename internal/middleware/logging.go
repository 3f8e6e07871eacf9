package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// RequestIDKey is the gin context key of the request ID
	RequestIDKey = "request_id"
	// CorrelationIDKey is the gin context key of the correlation ID
	CorrelationIDKey = "correlation_id"
)

// RequestID reuses X-Request-ID when the caller sent one
func RequestID() gin.HandlerFunc {
	return idMiddleware("X-Request-ID", RequestIDKey)
}

// CorrelationID carries X-Correlation-ID across services
func CorrelationID() gin.HandlerFunc {
	return idMiddleware("X-Correlation-ID", CorrelationIDKey)
}

func idMiddleware(header, key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(header)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(key, id)
		c.Header(header, id)
		c.Next()
	}
}

func requestFields(c *gin.Context) logrus.Fields {
	fields := logrus.Fields{
		"request_id":     c.GetString(RequestIDKey),
		"correlation_id": c.GetString(CorrelationIDKey),
		"method":         c.Request.Method,
		"path":           c.Request.URL.Path,
		"status_code":    c.Writer.Status(),
		"client_ip":      c.ClientIP(),
	}
	if claims, ok := ClaimsFromContext(c); ok {
		fields["user_id"] = claims.UserID
		fields["role"] = claims.Role
	}
	return fields
}

// StructuredLogger writes one log entry per request
func StructuredLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := requestFields(c)
		fields["latency_ms"] = float64(time.Since(start).Microseconds()) / 1000
		fields["user_agent"] = c.Request.UserAgent()
		fields["response_size"] = c.Writer.Size()
		if raw := c.Request.URL.RawQuery; raw != "" {
			fields["query"] = raw
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		entry := logger.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("Server error")
		case status >= http.StatusBadRequest:
			entry.Warn("Client error")
		default:
			entry.Info("Request completed")
		}
	}
}

// AuditLogger records who changed what for every write request
func AuditLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		fields := requestFields(c)
		fields["audit"] = true
		fields["operation_ms"] = time.Since(start).Milliseconds()
		fields["operation"] = operationFor(c.Request.Method)

		resource, id := resourceFromPath(c.Request.URL.Path)
		if resource != "" {
			fields["resource_type"] = resource
		}
		if id != "" {
			fields["resource_id"] = id
		}

		logger.WithFields(fields).Info("Audit log")
	}
}

func operationFor(method string) string {
	switch method {
	case http.MethodPost:
		return "CREATE"
	case http.MethodPut, http.MethodPatch:
		return "UPDATE"
	case http.MethodDelete:
		return "DELETE"
	}
	return method
}

var auditedResources = map[string]string{
	"products": "product",
	"rates":    "rate",
	"bills":    "bill",
	"users":    "user",
	"auth":     "session",
}

// resourceFromPath finds the first known collection in path and the segment
// after it when that segment is an ID
func resourceFromPath(path string) (resource, id string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		r, ok := auditedResources[part]
		if !ok {
			continue
		}
		if i+1 < len(parts) {
			if _, err := uuid.Parse(parts[i+1]); err == nil {
				id = parts[i+1]
			}
		}
		return r, id
	}
	return "", ""
}

// PerformanceMonitor warns about requests slower than threshold
func PerformanceMonitor(logger *logrus.Logger, threshold time.Duration) gin.HandlerFunc {
	if threshold == 0 {
		threshold = time.Second
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		if latency <= threshold {
			return
		}

		fields := requestFields(c)
		fields["performance_alert"] = true
		fields["latency_ms"] = latency.Milliseconds()
		fields["threshold_ms"] = threshold.Milliseconds()
		logger.WithFields(fields).Warn("Slow request detected")
	}
}

// Recovery turns a panic into a 500 and logs it with the request context
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		fields := requestFields(c)
		fields["panic"] = recovered
		logger.WithFields(fields).Error("Panic recovered")

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	})
}
