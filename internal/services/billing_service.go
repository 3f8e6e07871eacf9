package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"jewellery-billing-api/internal/adapters/storage"
	"jewellery-billing-api/internal/clock"
	"jewellery-billing-api/internal/models"
	"jewellery-billing-api/internal/pricing"
	"jewellery-billing-api/internal/repositories"
)

// billingService implements the BillingService interface
type billingService struct {
	repos     repositories.RepositoryManager
	rates     RateService
	numbers   InvoiceNumberAllocator
	archive   storage.FileStorage
	clock     clock.Clock
	validator *validator.Validate
	logger    *logrus.Logger
}

// NewBillingService creates a billing service. archive may be nil, in which
// case bill documents are rendered from the database on demand.
func NewBillingService(
	repos repositories.RepositoryManager,
	rates RateService,
	numbers InvoiceNumberAllocator,
	archive storage.FileStorage,
	clk clock.Clock,
	logger *logrus.Logger,
) BillingService {
	if logger == nil {
		logger = logrus.New()
	}
	return &billingService{
		repos:     repos,
		rates:     rates,
		numbers:   numbers,
		archive:   archive,
		clock:     clk,
		validator: validator.New(),
		logger:    logger,
	}
}

// pricedLine is a line that has been priced but not yet committed
type pricedLine struct {
	product  *models.Product
	quantity int
	item     models.BillItem
}

// CreateDocument prices every line against the current rate snapshot and
// stores the bill or estimate. For a Bill, stock is decremented for each
// line. Stock changes, the invoice number and the bill rows are written in a
// single transaction, so a failure leaves no trace and burns no number.
func (s *billingService) CreateDocument(ctx context.Context, req *CreateBillRequest, createdBy *string) (*models.Bill, error) {
	if err := s.validateBillRequest(req); err != nil {
		return nil, err
	}

	kind := req.Type
	if kind == "" {
		kind = models.KindBill
	}

	var bill *models.Bill
	err := s.repos.WithTransaction(ctx, func(txCtx context.Context) error {
		snapshot, err := s.rates.LatestSnapshot(txCtx)
		if err != nil {
			return err
		}

		lines := make([]pricedLine, 0, len(req.Items))
		for _, line := range req.Items {
			priced, err := s.priceLine(txCtx, &line, snapshot)
			if err != nil {
				return err
			}

			if kind == models.KindBill && !priced.product.HasStock(priced.quantity) {
				return &InsufficientStockError{
					ProductID:   priced.product.ID,
					ProductName: priced.product.Name,
					Requested:   priced.quantity,
					Available:   priced.product.Stock,
				}
			}

			lines = append(lines, priced)
		}

		if kind == models.KindBill {
			for _, line := range lines {
				if err := s.repos.Products().DecrementStock(txCtx, line.product.ID, line.quantity); err != nil {
					if repositories.IsInsufficientStock(err) {
						return &InsufficientStockError{
							ProductID:   line.product.ID,
							ProductName: line.product.Name,
							Requested:   line.quantity,
						}
					}
					return fmt.Errorf("failed to decrement stock: %w", err)
				}
			}
		}

		bill = s.assembleBill(req, kind, lines, snapshot, createdBy)

		number, err := s.numbers.NextNumber(txCtx, bill.MetalType, bill.IsEstimate())
		if err != nil {
			return err
		}
		bill.BillNumber = number

		if err := s.repos.Bills().Create(txCtx, bill); err != nil {
			return fmt.Errorf("failed to store bill: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"bill_id":     bill.ID,
		"bill_number": bill.BillNumber,
		"type":        bill.Kind,
		"items":       len(bill.Items),
		"grand_total": bill.GrandTotal.String(),
	}).Info("Bill created")

	s.archiveBill(ctx, bill)

	return bill, nil
}

func (s *billingService) validateBillRequest(req *CreateBillRequest) error {
	if req == nil {
		return validationErrorf("", "create bill request cannot be nil")
	}

	if err := s.validator.Struct(req); err != nil {
		return newValidationError("", err)
	}

	if req.Type != "" && !req.Type.IsValid() {
		return validationErrorf("type", "invalid document type: %s", req.Type)
	}

	if req.PaymentStatus != "" && !req.PaymentStatus.IsValid() {
		return validationErrorf("payment_status", "invalid payment status: %s", req.PaymentStatus)
	}

	if req.PaymentMethod != "" && !req.PaymentMethod.IsValid() {
		return validationErrorf("payment_method", "invalid payment method: %s", req.PaymentMethod)
	}

	if req.Discount != nil && req.Discount.IsNegative() {
		return validationErrorf("discount", "discount cannot be negative")
	}

	if req.CustomerPhone != nil && !models.IsValidPhone(*req.CustomerPhone) {
		return validationErrorf("customer_phone", "invalid phone number: %s", *req.CustomerPhone)
	}

	for i := range req.Items {
		if err := validateOverrides(&req.Items[i]); err != nil {
			return err
		}
	}

	return nil
}

func validateOverrides(line *BillLineRequest) error {
	overrides := map[string]*decimal.Decimal{
		"wastage_percent": line.WastagePercent,
		"gst_percent":     line.GSTPercent,
		"making_charge":   line.MakingCharge,
	}
	for field, value := range overrides {
		if value != nil && value.IsNegative() {
			return validationErrorf(field, "%s cannot be negative", field)
		}
	}
	return nil
}

// priceLine loads the product for a line and prices it. Inactive products
// are treated as missing.
func (s *billingService) priceLine(ctx context.Context, line *BillLineRequest, snapshot *models.RateSnapshot) (pricedLine, error) {
	product, err := s.repos.Products().GetByID(ctx, line.ProductID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return pricedLine{}, &ProductNotFoundError{ID: line.ProductID}
		}
		return pricedLine{}, fmt.Errorf("failed to load product: %w", err)
	}
	if !product.Active {
		return pricedLine{}, &ProductNotFoundError{ID: line.ProductID}
	}

	rate, err := pricing.ResolveRate(product, snapshot)
	if err != nil {
		return pricedLine{}, err
	}

	quantity := line.Quantity
	if quantity == 0 {
		quantity = 1
	}

	wastagePercent := percentOrDefault(line.WastagePercent, product.WastagePercent)
	gstPercent := percentOrDefault(line.GSTPercent, product.GSTPercent)
	makingCharge := percentOrDefault(line.MakingCharge, product.MakingCharge)

	calc := pricing.PriceLine(product.Weight, rate, wastagePercent, makingCharge, gstPercent, quantity)

	return pricedLine{
		product:  product,
		quantity: quantity,
		item: models.BillItem{
			ProductID:      product.ID,
			Name:           product.Name,
			Category:       product.Category,
			Weight:         product.Weight,
			Rate:           calc.Rate,
			MetalPrice:     calc.MetalPrice,
			WastagePercent: wastagePercent,
			WastageAmount:  calc.WastageAmount,
			MakingCharge:   models.Round2(makingCharge.Mul(decimal.NewFromInt(int64(quantity)))),
			Subtotal:       calc.Subtotal,
			GSTPercent:     gstPercent,
			GSTAmount:      calc.GSTAmount,
			Total:          calc.Total,
			Quantity:       quantity,
		},
	}, nil
}

func (s *billingService) assembleBill(req *CreateBillRequest, kind models.DocumentKind, lines []pricedLine, snapshot *models.RateSnapshot, createdBy *string) *models.Bill {
	bill := models.NewBill(kind)
	bill.CreatedAt = s.clock.Now().UTC()
	bill.RateSnapshotID = snapshot.ID
	bill.CreatedBy = createdBy

	if name := strings.TrimSpace(req.CustomerName); name != "" {
		bill.CustomerName = name
	}
	if req.CustomerPhone != nil && strings.TrimSpace(*req.CustomerPhone) != "" {
		phone := strings.TrimSpace(*req.CustomerPhone)
		bill.CustomerPhone = &phone
	}
	if req.Discount != nil {
		bill.Discount = *req.Discount
	}
	if req.PaymentMethod != "" {
		bill.PaymentMethod = req.PaymentMethod
	}

	switch {
	case kind == models.KindEstimate:
		bill.PaymentStatus = models.PaymentPending
	case req.PaymentStatus != "":
		bill.PaymentStatus = req.PaymentStatus
	}

	for _, line := range lines {
		bill.AddItem(line.item)
	}

	bill.CalculateTotals()
	bill.DeriveMetalType()

	return bill
}

// QuoteLine prices one line without touching stock or storing anything
func (s *billingService) QuoteLine(ctx context.Context, req *QuoteLineRequest) (*LineQuote, error) {
	if req == nil {
		return nil, validationErrorf("", "quote request cannot be nil")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, newValidationError("", err)
	}

	if err := validateOverrides(&req.BillLineRequest); err != nil {
		return nil, err
	}

	snapshot, err := s.rates.CurrentSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	priced, err := s.priceLine(ctx, &req.BillLineRequest, snapshot)
	if err != nil {
		return nil, err
	}

	item := priced.item
	return &LineQuote{
		Product: QuotedProduct{
			ID:       priced.product.ID,
			Name:     priced.product.Name,
			Category: priced.product.Category,
			Weight:   priced.product.Weight,
		},
		WastagePercent: item.WastagePercent,
		GSTPercent:     item.GSTPercent,
		MakingCharge:   percentOrDefault(req.MakingCharge, priced.product.MakingCharge),
		Quantity:       item.Quantity,
		LineItemCalculation: pricing.LineItemCalculation{
			Rate:          item.Rate,
			MetalPrice:    item.MetalPrice,
			WastageAmount: item.WastageAmount,
			Subtotal:      item.Subtotal,
			GSTAmount:     item.GSTAmount,
			Total:         item.Total,
		},
	}, nil
}

// GetBill retrieves a bill with its items
func (s *billingService) GetBill(ctx context.Context, id string) (*models.Bill, error) {
	if strings.TrimSpace(id) == "" {
		return nil, validationErrorf("id", "bill ID cannot be empty")
	}

	bill, err := s.repos.Bills().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	return bill, nil
}

// GetBillByNumber retrieves a bill by its invoice number
func (s *billingService) GetBillByNumber(ctx context.Context, number string) (*models.Bill, error) {
	if strings.TrimSpace(number) == "" {
		return nil, validationErrorf("number", "bill number cannot be empty")
	}

	bill, err := s.repos.Bills().GetByNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	return bill, nil
}

// ListBills lists bills newest first with the total matching the filters
func (s *billingService) ListBills(ctx context.Context, filters *BillFilters) ([]*models.Bill, int64, error) {
	filter := repositories.BillFilter{}

	if filters != nil {
		if filters.StartDate != nil && filters.EndDate != nil && filters.EndDate.Before(*filters.StartDate) {
			return nil, 0, validationErrorf("start_date", "start date cannot be after end date")
		}
		if filters.Status != nil && !filters.Status.IsValid() {
			return nil, 0, validationErrorf("status", "invalid payment status: %s", *filters.Status)
		}
		if filters.Type != nil && !filters.Type.IsValid() {
			return nil, 0, validationErrorf("type", "invalid document type: %s", *filters.Type)
		}
		if filters.Limit < 0 || filters.Offset < 0 {
			return nil, 0, validationErrorf("limit", "limit and offset cannot be negative")
		}

		filter = repositories.BillFilter{
			StartDate: filters.StartDate,
			EndDate:   filters.EndDate,
			Status:    filters.Status,
			Kind:      filters.Type,
			Limit:     filters.Limit,
			Offset:    filters.Offset,
		}
	}

	bills, err := s.repos.Bills().List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bills: %w", err)
	}

	total, err := s.repos.Bills().Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count bills: %w", err)
	}

	return bills, total, nil
}

// TodaySales totals today's settled bills in the shop's time zone
func (s *billingService) TodaySales(ctx context.Context) (*models.DailySales, error) {
	start, end := clock.DayBounds(s.clock)

	sales, err := s.repos.Bills().SalesBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get today's sales: %w", err)
	}

	sales.Date = start.Format("2006-01-02")
	return sales, nil
}

// GetBillDocument returns the archived JSON copy of a bill, re-archiving it
// from the database when the copy is missing
func (s *billingService) GetBillDocument(ctx context.Context, id string) ([]byte, error) {
	bill, err := s.GetBill(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.archive == nil {
		return json.Marshal(bill)
	}

	data, err := s.archive.Retrieve(ctx, s.archiveKey(bill))
	if err == nil {
		return data, nil
	}

	if !storage.IsNotFound(err) {
		return nil, fmt.Errorf("failed to retrieve bill document: %w", err)
	}

	s.logger.WithField("bill_number", bill.BillNumber).Warn("Bill document missing from archive, regenerating")

	data, err = json.Marshal(bill)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bill document: %w", err)
	}

	if err := s.archive.Store(ctx, s.archiveKey(bill), data, &storage.StoreOptions{ContentType: "application/json", Overwrite: true}); err != nil {
		s.logger.WithError(err).WithField("bill_number", bill.BillNumber).Error("Failed to re-archive bill document")
	}

	return data, nil
}

func (s *billingService) archiveKey(bill *models.Bill) string {
	return fmt.Sprintf("bills/%d/%s.json", bill.Year(s.clock.Location()), bill.BillNumber)
}

// archiveBill stores a JSON copy of a committed bill. The bill is already
// durable in the database, so failures are only logged.
func (s *billingService) archiveBill(ctx context.Context, bill *models.Bill) {
	if s.archive == nil {
		return
	}

	data, err := json.Marshal(bill)
	if err != nil {
		s.logger.WithError(err).WithField("bill_number", bill.BillNumber).Error("Failed to encode bill for archive")
		return
	}

	opts := &storage.StoreOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"bill_id": bill.ID,
			"type":    string(bill.Kind),
		},
	}

	if err := s.archive.Store(ctx, s.archiveKey(bill), data, opts); err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.WithField("bill_number", bill.BillNumber).Warn("Bill archive cancelled")
			return
		}
		s.logger.WithError(err).WithField("bill_number", bill.BillNumber).Error("Failed to archive bill document")
	}
}
