package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ValidationError describes one rejected field
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every error the middleware writes
type ErrorResponse struct {
	Error            string            `json:"error"`
	Message          string            `json:"message"`
	ValidationErrors []ValidationError `json:"validation_errors,omitempty"`
	RequestID        string            `json:"request_id,omitempty"`
	Timestamp        string            `json:"timestamp"`
}

func abortWithError(c *gin.Context, status int, title, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     title,
		Message:   message,
		RequestID: c.GetString(RequestIDKey),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// RequestValidation rejects malformed paging parameters, flags and IDs
// before they reach a handler
func RequestValidation() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := validateQueryParams(c); err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid query parameters", err.Error())
			return
		}

		if id := c.Param("id"); id != "" {
			if _, err := uuid.Parse(id); err != nil {
				abortWithError(c, http.StatusBadRequest, "Invalid path parameters", "invalid id parameter: must be a valid UUID")
				return
			}
		}

		c.Next()
	}
}

func validateQueryParams(c *gin.Context) error {
	if limit := c.Query("limit"); limit != "" {
		if val, err := strconv.Atoi(limit); err != nil || val < 0 || val > 1000 {
			return fmt.Errorf("invalid limit parameter: must be an integer between 0 and 1000")
		}
	}

	if offset := c.Query("offset"); offset != "" {
		if val, err := strconv.Atoi(offset); err != nil || val < 0 {
			return fmt.Errorf("invalid offset parameter: must be a non-negative integer")
		}
	}

	if lowStock := c.Query("low_stock"); lowStock != "" {
		if _, err := strconv.ParseBool(lowStock); err != nil {
			return fmt.Errorf("invalid low_stock parameter: must be true or false")
		}
	}

	return nil
}

// clientLimiter tracks one token bucket per client IP
type clientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rps      rate.Limit
	burst    int
	idle     time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (l *clientLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now

	// drop buckets of clients that went quiet
	if len(l.limiters) > 1024 {
		for k, e := range l.limiters {
			if now.Sub(e.lastSeen) > l.idle {
				delete(l.limiters, k)
			}
		}
	}

	return entry.limiter.AllowN(now, 1)
}

// RateLimiter limits each client IP to requestsPerSecond with burstSize
func RateLimiter(logger *logrus.Logger, requestsPerSecond float64, burstSize int) gin.HandlerFunc {
	limiter := &clientLimiter{
		limiters: make(map[string]*limiterEntry),
		rps:      rate.Limit(requestsPerSecond),
		burst:    burstSize,
		idle:     10 * time.Minute,
	}

	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP(), time.Now()) {
			logger.WithFields(logrus.Fields{
				"client_ip": c.ClientIP(),
				"path":      c.Request.URL.Path,
			}).Warn("Rate limit exceeded")

			abortWithError(c, http.StatusTooManyRequests, "Rate limit exceeded",
				fmt.Sprintf("Too many requests. Limit: %.1f requests per second", requestsPerSecond))
			return
		}
		c.Next()
	}
}

// FormatValidationErrors turns validator errors into response entries
func FormatValidationErrors(validationErrors validator.ValidationErrors) []ValidationError {
	out := make([]ValidationError, 0, len(validationErrors))

	for _, err := range validationErrors {
		var message string

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		default:
			message = fmt.Sprintf("%s is invalid", err.Field())
		}

		out = append(out, ValidationError{
			Field:   err.Field(),
			Tag:     err.Tag(),
			Value:   fmt.Sprintf("%v", err.Value()),
			Message: message,
		})
	}

	return out
}
