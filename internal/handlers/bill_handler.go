package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"jewellery-billing-api/internal/middleware"
	"jewellery-billing-api/internal/services"
	"jewellery-billing-api/pkg/lambda"
)

// BillHandler handles bill and estimate requests for both gin and Lambda
type BillHandler struct {
	billingService services.BillingService
	location       *time.Location
	logger         *logrus.Logger
}

// NewBillHandler creates a new bill handler. loc is used to read plain
// YYYY-MM-DD dates in listings.
func NewBillHandler(billingService services.BillingService, loc *time.Location, logger *logrus.Logger) *BillHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &BillHandler{
		billingService: billingService,
		location:       loc,
		logger:         logger,
	}
}

// @Summary Create a bill or estimate
// @Description Price every line with the current rates and store the document. Bills take stock, estimates do not.
// @Tags bills
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param bill body services.CreateBillRequest true "Bill data"
// @Success 201 {object} models.Bill
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /bills [post]
func (h *BillHandler) CreateBill(c *gin.Context) {
	var req services.CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	bill, err := h.billingService.CreateDocument(c.Request.Context(), &req, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, bill)
}

// @Summary Quote a single line
// @Description Price one product without storing anything
// @Tags bills
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param line body services.QuoteLineRequest true "Line to price"
// @Success 200 {object} services.LineQuote
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /bills/estimate [post]
func (h *BillHandler) QuoteLine(c *gin.Context) {
	var req services.QuoteLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	quote, err := h.billingService.QuoteLine(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// @Summary List bills
// @Description Bills and estimates newest first
// @Tags bills
// @Produce json
// @Security BearerAuth
// @Param start_date query string false "RFC3339 or YYYY-MM-DD, inclusive"
// @Param end_date query string false "RFC3339 (exclusive) or YYYY-MM-DD (inclusive)"
// @Param status query string false "Paid, Pending or Partial"
// @Param type query string false "Bill or Estimate"
// @Param limit query int false "Limit number of results" default(50)
// @Param offset query int false "Offset for pagination" default(0)
// @Success 200 {object} listResponse
// @Failure 400 {object} ErrorResponse
// @Router /bills [get]
func (h *BillHandler) ListBills(c *gin.Context) {
	filters, err := billFilters(c.Query, h.location)
	if err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}

	bills, total, err := h.billingService.ListBills(c.Request.Context(), filters)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, listResponse{Data: bills, Total: total, Limit: filters.Limit, Offset: filters.Offset})
}

// @Summary Today's sales
// @Description Total of today's paid and partially paid bills
// @Tags bills
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.DailySales
// @Router /bills/today-sales [get]
func (h *BillHandler) TodaySales(c *gin.Context) {
	sales, err := h.billingService.TodaySales(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, sales)
}

// @Summary Get a bill
// @Tags bills
// @Produce json
// @Security BearerAuth
// @Param id path string true "Bill ID"
// @Success 200 {object} models.Bill
// @Failure 404 {object} ErrorResponse
// @Router /bills/{id} [get]
func (h *BillHandler) GetBill(c *gin.Context) {
	bill, err := h.billingService.GetBill(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, bill)
}

// @Summary Get a bill by invoice number
// @Tags bills
// @Produce json
// @Security BearerAuth
// @Param number path string true "Invoice number, e.g. AJ-GOLD-2026-0001"
// @Success 200 {object} models.Bill
// @Failure 404 {object} ErrorResponse
// @Router /bills/number/{number} [get]
func (h *BillHandler) GetBillByNumber(c *gin.Context) {
	bill, err := h.billingService.GetBillByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, bill)
}

// @Summary Archived bill document
// @Description The JSON copy stored when the bill was created, regenerated when missing
// @Tags bills
// @Produce json
// @Security BearerAuth
// @Param id path string true "Bill ID"
// @Success 200 {object} models.Bill
// @Failure 404 {object} ErrorResponse
// @Router /bills/{id}/document [get]
func (h *BillHandler) GetBillDocument(c *gin.Context) {
	document, err := h.billingService.GetBillDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Data(http.StatusOK, "application/json", document)
}

// lambdaError renders err the same way respondError does for gin
func (h *BillHandler) lambdaError(err error) *lambda.Response {
	status, resp := errorResponse(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).Error("Request failed")
	}
	return lambda.JSON(status, resp)
}

// HandleCreate handles bill creation for Lambda
func (h *BillHandler) HandleCreate(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	var createReq services.CreateBillRequest
	if err := json.Unmarshal(req.Body, &createReq); err != nil {
		return lambda.Error(http.StatusBadRequest, "Invalid request body", err.Error()), nil
	}

	var createdBy *string
	if req.UserID != "" {
		createdBy = &req.UserID
	}

	bill, err := h.billingService.CreateDocument(ctx, &createReq, createdBy)
	if err != nil {
		return h.lambdaError(err), nil
	}

	return lambda.JSON(http.StatusCreated, bill), nil
}

// HandleQuote handles single-line quotes for Lambda
func (h *BillHandler) HandleQuote(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	var quoteReq services.QuoteLineRequest
	if err := json.Unmarshal(req.Body, &quoteReq); err != nil {
		return lambda.Error(http.StatusBadRequest, "Invalid request body", err.Error()), nil
	}

	quote, err := h.billingService.QuoteLine(ctx, &quoteReq)
	if err != nil {
		return h.lambdaError(err), nil
	}

	return lambda.JSON(http.StatusOK, quote), nil
}

// HandleList handles bill listing for Lambda
func (h *BillHandler) HandleList(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	filters, err := billFilters(req.Query, h.location)
	if err != nil {
		return lambda.Error(http.StatusBadRequest, "Invalid query parameters", err.Error()), nil
	}

	bills, total, err := h.billingService.ListBills(ctx, filters)
	if err != nil {
		return h.lambdaError(err), nil
	}

	return lambda.JSON(http.StatusOK, listResponse{Data: bills, Total: total, Limit: filters.Limit, Offset: filters.Offset}), nil
}

// HandleGet handles bill retrieval for Lambda
func (h *BillHandler) HandleGet(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	id := req.Param("id")
	if id == "" {
		return lambda.Error(http.StatusBadRequest, "Invalid request", "Bill ID is required"), nil
	}

	bill, err := h.billingService.GetBill(ctx, id)
	if err != nil {
		return h.lambdaError(err), nil
	}

	return lambda.JSON(http.StatusOK, bill), nil
}

// HandleTodaySales handles the daily sales summary for Lambda
func (h *BillHandler) HandleTodaySales(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	sales, err := h.billingService.TodaySales(ctx)
	if err != nil {
		return h.lambdaError(err), nil
	}

	return lambda.JSON(http.StatusOK, sales), nil
}
