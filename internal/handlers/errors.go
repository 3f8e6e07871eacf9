package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"jewellery-billing-api/internal/middleware"
	"jewellery-billing-api/internal/repositories"
	"jewellery-billing-api/internal/services"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error            string                       `json:"error"`
	Message          string                       `json:"message"`
	ValidationErrors []middleware.ValidationError `json:"validation_errors,omitempty"`
}

// classifyError maps a service error to a status code and a short title
func classifyError(err error) (int, string) {
	var productNotFound *services.ProductNotFoundError
	var insufficient *services.InsufficientStockError

	switch {
	case errors.As(err, &productNotFound):
		return http.StatusNotFound, "Product not found"
	case errors.As(err, &insufficient), repositories.IsInsufficientStock(err):
		return http.StatusBadRequest, "Insufficient stock"
	case errors.Is(err, services.ErrRateUnavailable):
		return http.StatusBadRequest, "Rates not set"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, services.ErrValidation), repositories.IsValidation(err):
		return http.StatusBadRequest, "Validation failed"
	case repositories.IsNotFound(err):
		return http.StatusNotFound, "Not found"
	case repositories.IsDuplicate(err), repositories.IsConstraint(err):
		return http.StatusConflict, "Conflict"
	case repositories.IsTransaction(err), repositories.IsConnection(err):
		return http.StatusServiceUnavailable, "Service unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func errorResponse(err error) (int, ErrorResponse) {
	status, title := classifyError(err)
	resp := ErrorResponse{Error: title, Message: err.Error()}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		resp.ValidationErrors = middleware.FormatValidationErrors(fieldErrs)
	}
	switch status {
	case http.StatusInternalServerError:
		resp.Message = "An unexpected error occurred"
	case http.StatusServiceUnavailable:
		resp.Message = "The database is busy, please retry"
	}
	return status, resp
}

// respondError writes err with the status its kind maps to. Server errors
// are logged with the request context and their detail is not sent back.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status, resp := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logger.WithFields(logrus.Fields{
			"request_id": c.GetString(middleware.RequestIDKey),
			"path":       c.Request.URL.Path,
			"error":      err.Error(),
		}).Error("Request failed")
	}
	_ = c.Error(err)
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, title string, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: title, Message: err.Error()})
}
