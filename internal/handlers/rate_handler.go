package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"jewellery-billing-api/internal/middleware"
	"jewellery-billing-api/internal/repositories"
	"jewellery-billing-api/internal/services"
)

// RateHandler serves the metal rate log
type RateHandler struct {
	rateService services.RateService
	logger      *logrus.Logger
}

// NewRateHandler creates a new rate handler
func NewRateHandler(rateService services.RateService, logger *logrus.Logger) *RateHandler {
	return &RateHandler{rateService: rateService, logger: logger}
}

// @Summary Current rates
// @Description The latest snapshot effective today, or the latest one overall
// @Tags rates
// @Produce json
// @Success 200 {object} models.RateSnapshot
// @Failure 404 {object} ErrorResponse
// @Router /rates/today [get]
func (h *RateHandler) GetTodayRates(c *gin.Context) {
	snapshot, err := h.rateService.CurrentSnapshot(c.Request.Context())
	if errors.Is(err, services.ErrRateUnavailable) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "No rates found",
			Message: "No rates found. Please set rates.",
		})
		return
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// @Summary Rate history
// @Tags rates
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of snapshots" default(30)
// @Success 200 {array} models.RateSnapshot
// @Router /rates [get]
func (h *RateHandler) ListRates(c *gin.Context) {
	limit := 30
	if raw := c.Query("limit"); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "Invalid query parameters", err)
			return
		}
		limit = val
	}

	snapshots, err := h.rateService.ListRates(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, snapshots)
}

// @Summary Record rates
// @Description Append a rate snapshot. The effective date may be backdated but not in the future.
// @Tags rates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param rates body services.CreateRatesRequest true "Rates per gram"
// @Success 201 {object} models.RateSnapshot
// @Failure 400 {object} ErrorResponse
// @Router /rates [post]
func (h *RateHandler) CreateRates(c *gin.Context) {
	var req services.CreateRatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	snapshot, err := h.rateService.CreateRates(c.Request.Context(), &req, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, snapshot)
}

// @Summary Update rate settings
// @Description Append a copy of today's snapshot with new GST and default wastage percentages
// @Tags rates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param settings body services.UpdateSettingsRequest true "New percentages"
// @Success 201 {object} models.RateSnapshot
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /rates/settings [patch]
func (h *RateHandler) UpdateSettings(c *gin.Context) {
	var req services.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	snapshot, err := h.rateService.UpdateSettings(c.Request.Context(), &req, middleware.CurrentUserID(c))
	if repositories.IsNotFound(err) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "No rate found for today",
			Message: "Record today's rates before changing settings",
		})
		return
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, snapshot)
}
