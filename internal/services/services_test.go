package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/crypto/bcrypt"

	"jewellery-billing-api/internal/adapters/storage"
	"jewellery-billing-api/internal/clock"
	"jewellery-billing-api/internal/database"
	"jewellery-billing-api/internal/models"
	"jewellery-billing-api/internal/repositories"
	"jewellery-billing-api/internal/repositories/sqlite"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type testEnv struct {
	repos    repositories.RepositoryManager
	clock    *clock.FixedClock
	archive  *storage.MemoryFileStorage
	services *ServiceContainer
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	config := database.DefaultConnectionConfig()
	config.DatabasePath = filepath.Join(t.TempDir(), "test.db")
	config.Logger = testLogger()

	cm := database.NewConnectionManager(config)
	if err := cm.Connect(context.Background()); err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { cm.Close() })

	repos := sqlite.NewSQLiteRepositoryManager(cm.GetDB(), testLogger())
	clk := clock.NewFixedClock(time.Date(2026, 3, 15, 10, 0, 0, 0, ist))
	archive := storage.NewMemoryFileStorage()

	container, err := NewServiceContainer(repos, &ServiceConfig{
		Clock:        clk,
		Location:     "Coimbatore",
		RateCacheTTL: time.Minute,
		BcryptCost:   bcrypt.MinCost,
		Archive:      archive,
		Logger:       testLogger(),
	})
	if err != nil {
		t.Fatalf("NewServiceContainer failed: %v", err)
	}
	if err := container.Validate(); err != nil {
		t.Fatalf("container invalid: %v", err)
	}

	return &testEnv{repos: repos, clock: clk, archive: archive, services: container}
}

// seedRates records the shop's default rates effective now
func (e *testEnv) seedRates(t *testing.T) *models.RateSnapshot {
	t.Helper()
	snapshot, err := e.services.RateService.CreateRates(context.Background(), &CreateRatesRequest{
		GoldRate:    dec("6200"),
		SilverRate:  dec("75"),
		DiamondRate: dec("50000"),
	}, nil)
	if err != nil {
		t.Fatalf("CreateRates failed: %v", err)
	}
	return snapshot
}

func (e *testEnv) createProduct(t *testing.T, name, category, weight string, stock int, customRate *decimal.Decimal) *models.Product {
	t.Helper()
	product, err := e.services.ProductService.CreateProduct(context.Background(), &CreateProductRequest{
		Name:           name,
		Category:       category,
		Weight:         dec(weight),
		MakingCharge:   decPtr("500"),
		WastagePercent: decPtr("8"),
		GSTPercent:     decPtr("3"),
		CustomRate:     customRate,
		Stock:          stock,
	})
	if err != nil {
		t.Fatalf("CreateProduct(%s) failed: %v", name, err)
	}
	return product
}

func (e *testEnv) stock(t *testing.T, id string) int {
	t.Helper()
	product, err := e.services.ProductService.GetProduct(context.Background(), id)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	return product.Stock
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

func TestCreateDocument_GoldBill(t *testing.T) {
	env := setupEnv(t)
	env.seedRates(t)
	necklace := env.createProduct(t, "Gold Necklace", "Gold", "10", 5, nil)

	bill, err := env.services.BillingService.CreateDocument(context.Background(), &CreateBillRequest{
		CustomerName: "Lakshmi",
		Items:        []BillLineRequest{{ProductID: necklace.ID, Quantity: 1}},
	}, nil)
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	if bill.BillNumber != "AJ-GOLD-2026-0001" {
		t.Errorf("BillNumber = %s, want AJ-GOLD-2026-0001", bill.BillNumber)
	}
	if bill.PaymentStatus != models.PaymentPaid {
		t.Errorf("PaymentStatus = %s, want Paid", bill.PaymentStatus)
	}

	item := bill.Items[0]
	assertDecimal(t, "Rate", item.Rate, "6200")
	assertDecimal(t, "MetalPrice", item.MetalPrice, "62000")
	assertDecimal(t, "WastageAmount", item.WastageAmount, "4960")
	assertDecimal(t, "Subtotal", item.Subtotal, "67460")
	assertDecimal(t, "GSTAmount", item.GSTAmount, "2023.80")
	assertDecimal(t, "Total", item.Total, "69483.80")
	assertDecimal(t, "GrandTotal", bill.GrandTotal, "69483.80")

	if got := env.stock(t, necklace.ID); got != 4 {
		t.Errorf("stock = %d, want 4", got)
	}

	stored, err := env.services.BillingService.GetBillByNumber(context.Background(), "aj-gold-2026-0001")
	if err != nil {
		t.Fatalf("GetBillByNumber failed: %v", err)
	}
	if stored.ID != bill.ID || len(stored.Items) != 1 {
		t.Errorf("stored bill = %+v", stored)
	}

	exists, _ := env.archive.Exists(context.Background(), "bills/2026/AJ-GOLD-2026-0001.json")
	if !exists {
		t.Error("bill document was not archived")
	}
}

func TestCreateDocument_EstimateLeavesStockAlone(t *testing.T) {
	env := setupEnv(t)
	env.seedRates(t)
	necklace := env.createProduct(t, "Gold Necklace", "Gold", "10", 5, nil)
	ctx := context.Background()

	estimate, err := env.services.BillingService.CreateDocument(ctx, &CreateBillRequest{
		Items:         []BillLineRequest{{ProductID: necklace.ID}},
		Discount:      decPtr("0"),
		Type:          models.KindEstimate,
		PaymentStatus: models.PaymentPaid,
	}, nil)
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	if estimate.BillNumber != "EST-GOLD-2026-0001" {
		t.Errorf("BillNumber = %s, want EST-GOLD-2026-0001", estimate.BillNumber)
	}
	if estimate.PaymentStatus != models.PaymentPending {
		t.Errorf("PaymentStatus = %s, want Pending", estimate.PaymentStatus)
	}
	if estimate.CustomerName != models.DefaultCustomerName {
		t.Errorf("CustomerName = %q, want %q", estimate.CustomerName, models.DefaultCustomerName)
	}
	if got := env.stock(t, necklace.ID); got != 5 {
		t.Errorf("stock = %d, want 5", got)
	}

	// estimates and bills draw from the same counter
	bill, err := env.services.BillingService.CreateDocument(ctx, &CreateBillRequest{
		Items: []BillLineRequest{{ProductID: necklace.ID}},
	}, nil)
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	if bill.BillNumber != "AJ-GOLD-2026-0002" {
		t.Errorf("BillNumber = %s, want AJ-GOLD-2026-0002", bill.BillNumber)
	}
}

func TestCreateDocument_MetalTypeFromFirstLine(t *testing.T) {
	env := setupEnv(t)
	env.seedRates(t)
	gold := env.createProduct(t, "Gold Ring", "Gold", "4", 3, nil)
	silver := env.createProduct(t, "Silver Anklet", "Silver", "30", 3, nil)

	bill, err := env.services.BillingService.CreateDocument(context.Background(), &CreateBillRequest{
		Items: []BillLineRequest{{ProductID: gold.ID}, {ProductID: silver.ID, Quantity: 2}},
	}, nil)
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	if bill.MetalType != models.MetalTypeGold {
		t.Errorf("MetalType = %s, want GOLD", bill.MetalType)
	}
	if bill.BillNumber != "AJ-GOLD-2026-0001" {
		t.Errorf("BillNumber = %s, want AJ-GOLD-2026-0001", bill.BillNumber)
	}

	silverLine := bill.Items[1]
	assertDecimal(t, "silver MetalPrice", silverLine.MetalPrice, "4500")
	assertDecimal(t, "silver MakingCharge", silverLine.MakingCharge, "1000")

	if got := env.stock(t, silver.ID); got != 1 {
		t.Errorf("silver stock = %d, want 1", got)
	}
}

func TestCreateDocument_CustomRateWins(t *testing.T) {
	env := setupEnv(t)
	env.seedRates(t)
	product := env.createProduct(t, "Antique Bangle", "Gold", "10", 1, decPtr("7000"))

	bill, err := env.services.BillingService.CreateDocument(context.Background(), &CreateBillRequest{
		Items: []BillLineRequest{{ProductID: product.ID}},
	}, nil)
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	assertDecimal(t, "Rate", bill.Items[0].Rate, "7000")
	assertDecimal(t, "MetalPrice", bill.Items[0].MetalPrice, "70000")
}

func TestCreateDocument_Overrides(t *testing.T) {
	env := setupEnv(t)
	env.seedRates(t)
	product := env.createProduct(t, "Gold Chain", "Gold", "10", 2, nil)

	bill, err := env.services.BillingService.CreateDocument(context.Background(), &CreateBillRequest{
		Items: []BillLineRequest{{
			ProductID:      product.ID,
			WastagePercent: decPtr("0"),
			GSTPercent:     decPtr("0"),
			MakingCharge:   decPtr("250"),
		}},
	}, nil)
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	item := bill.Items[0]
	assertDecimal(t, "WastageAmount", item.WastageAmount, "0")
	assertDecimal(t, "GSTAmount", item.GSTAmount, "0")
	assertDecimal(t, "Total", item.Total, "62250")
}

func TestCreateDocument_NegativeGrandTotal(t *testing.T) {
	env := setupEnv(t)
	env.seedRates(t)
	product := env.createProduct(t, "Gold Necklace", "Gold", "10", 1, nil)

	bill, err := env.services.BillingService.CreateDocument(context.Background(), &CreateBillRequest{
		Items:    []BillLineRequest{{ProductID: product.ID}},
		Discount: decPtr("100000"),
	}, nil)
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	assertDecimal(t, "GrandTotal", bill.GrandTotal, "-30516.20")
}

func TestCreateDocument_InsufficientStockRollsBack(t *testing.T) {
	env := setupEnv(t)
	env.seedRates(t)
	ring := env.createProduct(t, "Gold Ring", "Gold", "4", 3, nil)
	pendant := env.createProduct(t, "Gold Pendant", "Gold", "2", 1, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		items []BillLineRequest
	}{
		{"SingleLineTooLarge", []BillLineRequest{{ProductID: pendant.ID, Quantity: 2}}},
		{"LaterLineFails", []BillLineRequest{{ProductID: ring.ID, Quantity: 2}, {ProductID: pendant.ID, Quantity: 5}}},
		{"RepeatedProduct", []BillLineRequest{{ProductID: ring.ID}, {ProductID: pendant.ID}, {ProductID: pendant.ID}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.services.BillingService.CreateDocument(ctx, &CreateBillRequest{Items: tt.items}, nil)

			var stockErr *InsufficientStockError
			if !errors.As(err, &stockErr) {
				t.Fatalf("err = %v, want InsufficientStockError", err)
			}
			if stockErr.ProductID != pendant.ID {
				t.Errorf("ProductID = %s, want %s", stockErr.ProductID, pendant.ID)
			}
			if !repositories.IsInsufficientStock(err) {
				t.Error("IsInsufficientStock = false")
			}

			if got := env.stock(t, ring.ID); got != 3 {
				t.Errorf("ring stock = %d, want 3", got)
			}
			if got := env.stock(t, pendant.ID); got != 1 {
				t.Errorf("pendant stock = %d, want 1", got)
			}
		})
	}

	// failed attempts burn no invoice numbers
	bill, err := env.services.BillingService.CreateDocument(ctx, &CreateBillRequest{
		Items: []BillLineRequest{{ProductID: pendant.ID}},
	}, nil)
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	if bill.BillNumber != "AJ-GOLD-2026-0001" {
		t.Errorf("BillNumber = %s, want AJ-GOLD-2026-0001", bill.BillNumber)
	}
}

func TestCreateDocument_Failures(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	product := env.createProduct(t, "Gold Ring", "Gold", "4", 3, nil)

	_, err := env.services.BillingService.CreateDocument(ctx, &CreateBillRequest{
		Items: []BillLineRequest{{ProductID: product.ID}},
	}, nil)
	if !errors.Is(err, ErrRateUnavailable) {
		t.Errorf("without rates err = %v, want ErrRateUnavailable", err)
	}

	env.seedRates(t)

	_, err = env.services.BillingService.CreateDocument(ctx, &CreateBillRequest{
		Items: []BillLineRequest{{ProductID: "missing"}},
	}, nil)
	var notFound *ProductNotFoundError
	if !errors.As(err, &notFound) || notFound.ID != "missing" {
		t.Errorf("unknown product err = %v, want ProductNotFoundError", err)
	}
	if !repositories.IsNotFound(err) {
		t.Error("IsNotFound = false for unknown product")
	}

	if err := env.services.ProductService.DeleteProduct(ctx, product.ID); err != nil {
		t.Fatalf("DeleteProduct failed: %v", err)
	}
	_, err = env.services.BillingService.CreateDocument(ctx, &CreateBillRequest{
		Items: []BillLineRequest{{ProductID: product.ID}},
	}, nil)
	if !errors.As(err, &notFound) {
		t.Errorf("inactive product err = %v, want ProductNotFoundError", err)
	}
}

func TestCreateDocument_Validation(t *testing.T) {
	env := setupEnv(t)
	env.seedRates(t)
	product := env.createProduct(t, "Gold Ring", "Gold", "4", 3, nil)
	phone := "not-a-phone"

	tests := []struct {
		name string
		req  *CreateBillRequest
	}{
		{"Nil", nil},
		{"NoItems", &CreateBillRequest{}},
		{"MissingProductID", &CreateBillRequest{Items: []BillLineRequest{{Quantity: 1}}}},
		{"NegativeQuantity", &CreateBillRequest{Items: []BillLineRequest{{ProductID: product.ID, Quantity: -1}}}},
		{"NegativeDiscount", &CreateBillRequest{Items: []BillLineRequest{{ProductID: product.ID}}, Discount: decPtr("-1")}},
		{"NegativeOverride", &CreateBillRequest{Items: []BillLineRequest{{ProductID: product.ID, GSTPercent: decPtr("-3")}}}},
		{"UnknownType", &CreateBillRequest{Items: []BillLineRequest{{ProductID: product.ID}}, Type: "Invoice"}},
		{"UnknownStatus", &CreateBillRequest{Items: []BillLineRequest{{ProductID: product.ID}}, PaymentStatus: "Refunded"}},
		{"UnknownMethod", &CreateBillRequest{Items: []BillLineRequest{{ProductID: product.ID}}, PaymentMethod: "Cheque"}},
		{"BadPhone", &CreateBillRequest{Items: []BillLineRequest{{ProductID: product.ID}}, CustomerPhone: &phone}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.services.BillingService.CreateDocument(context.Background(), tt.req, nil)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}

	if got := env.stock(t, product.ID); got != 3 {
		t.Errorf("stock = %d, want 3", got)
	}
}

func TestCreateDocument_ConcurrentNumbering(t *testing.T) {
	env := setupEnv(t)
	env.seedRates(t)
	product := env.createProduct(t, "Gold Coin", "Gold", "1", 100, nil)

	const workers = 20
	numbers := make(chan string, workers)
	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bill, err := env.services.BillingService.CreateDocument(context.Background(), &CreateBillRequest{
				Items: []BillLineRequest{{ProductID: product.ID}},
			}, nil)
			if err != nil {
				errs <- err
				return
			}
			numbers <- bill.BillNumber
		}()
	}
	wg.Wait()
	close(numbers)
	close(errs)

	for err := range errs {
		t.Errorf("CreateDocument failed: %v", err)
	}

	seen := map[string]bool{}
	for n := range numbers {
		if seen[n] {
			t.Errorf("duplicate bill number %s", n)
		}
		seen[n] = true
	}
	for i := 1; i <= workers; i++ {
		want := fmt.Sprintf("AJ-GOLD-2026-%04d", i)
		if !seen[want] {
			t.Errorf("missing bill number %s", want)
		}
	}

	if got := env.stock(t, product.ID); got != 100-workers {
		t.Errorf("stock = %d, want %d", got, 100-workers)
	}
}

func TestQuoteLine(t *testing.T) {
	env := setupEnv(t)
	env.seedRates(t)
	product := env.createProduct(t, "Gold Necklace", "Gold", "10", 1, nil)
	ctx := context.Background()

	quote, err := env.services.BillingService.QuoteLine(ctx, &QuoteLineRequest{
		BillLineRequest: BillLineRequest{ProductID: product.ID, Quantity: 2},
	})
	if err != nil {
		t.Fatalf("QuoteLine failed: %v", err)
	}

	assertDecimal(t, "MetalPrice", quote.MetalPrice, "124000")
	assertDecimal(t, "WastageAmount", quote.WastageAmount, "9920")
	assertDecimal(t, "Subtotal", quote.Subtotal, "134920")
	assertDecimal(t, "MakingCharge", quote.MakingCharge, "500")
	if quote.Quantity != 2 || quote.Product.ID != product.ID {
		t.Errorf("quote = %+v", quote)
	}

	// quoting more than is in stock is allowed and changes nothing
	if got := env.stock(t, product.ID); got != 1 {
		t.Errorf("stock = %d, want 1", got)
	}
	counter, err := env.repos.InvoiceCounters().Get(ctx, 2026, models.MetalTypeGold)
	if err == nil && counter.CurrentNumber != 0 {
		t.Errorf("counter advanced to %d", counter.CurrentNumber)
	}
}

func TestTodaySalesAndListing(t *testing.T) {
	env := setupEnv(t)
	env.seedRates(t)
	product := env.createProduct(t, "Gold Necklace", "Gold", "10", 10, nil)
	billing := env.services.BillingService
	ctx := context.Background()

	requests := []*CreateBillRequest{
		{Items: []BillLineRequest{{ProductID: product.ID}}, PaymentStatus: models.PaymentPaid},
		{Items: []BillLineRequest{{ProductID: product.ID}}, PaymentStatus: models.PaymentPartial, Discount: decPtr("483.80")},
		{Items: []BillLineRequest{{ProductID: product.ID}}, PaymentStatus: models.PaymentPending},
		{Items: []BillLineRequest{{ProductID: product.ID}}, Type: models.KindEstimate},
	}
	for i, req := range requests {
		if _, err := billing.CreateDocument(ctx, req, nil); err != nil {
			t.Fatalf("CreateDocument %d failed: %v", i, err)
		}
	}

	sales, err := billing.TodaySales(ctx)
	if err != nil {
		t.Fatalf("TodaySales failed: %v", err)
	}
	if sales.BillCount != 2 {
		t.Errorf("BillCount = %d, want 2", sales.BillCount)
	}
	assertDecimal(t, "TotalSales", sales.TotalSales, "138483.80")
	if sales.Date != "2026-03-15" {
		t.Errorf("Date = %s, want 2026-03-15", sales.Date)
	}

	estimate := models.KindEstimate
	bills, total, err := billing.ListBills(ctx, &BillFilters{Type: &estimate})
	if err != nil {
		t.Fatalf("ListBills failed: %v", err)
	}
	if total != 1 || len(bills) != 1 || !bills[0].IsEstimate() {
		t.Errorf("estimates = %d (total %d)", len(bills), total)
	}

	start := env.clock.Now()
	end := start.Add(-time.Hour)
	if _, _, err := billing.ListBills(ctx, &BillFilters{StartDate: &start, EndDate: &end}); !errors.Is(err, ErrValidation) {
		t.Errorf("inverted range err = %v, want ErrValidation", err)
	}

	// an empty half-open range is valid and matches nothing
	if bills, total, err := billing.ListBills(ctx, &BillFilters{StartDate: &start, EndDate: &start}); err != nil || total != 0 || len(bills) != 0 {
		t.Errorf("equal bounds = %d bills (total %d), err %v", len(bills), total, err)
	}
}

// TestCreateDocument_SeesRatesFromOtherInstance records rates through a
// second service container sharing the database. Bills must price against
// the new snapshot even while the first container's rate cache is warm.
func TestCreateDocument_SeesRatesFromOtherInstance(t *testing.T) {
	env := setupEnv(t)
	env.seedRates(t)
	necklace := env.createProduct(t, "Gold Necklace", "Gold", "10", 5, nil)
	ctx := context.Background()

	other, err := NewServiceContainer(env.repos, &ServiceConfig{
		Clock:        env.clock,
		Location:     "Coimbatore",
		RateCacheTTL: time.Hour,
		BcryptCost:   bcrypt.MinCost,
		Logger:       testLogger(),
	})
	if err != nil {
		t.Fatalf("NewServiceContainer failed: %v", err)
	}

	billRequest := &CreateBillRequest{Items: []BillLineRequest{{ProductID: necklace.ID}}}

	first, err := env.services.BillingService.CreateDocument(ctx, billRequest, nil)
	if err != nil {
		t.Fatalf("first CreateDocument failed: %v", err)
	}
	assertDecimal(t, "first rate", first.Items[0].Rate, "6200")

	if _, err := env.services.RateService.CurrentSnapshot(ctx); err != nil {
		t.Fatalf("CurrentSnapshot failed: %v", err)
	}

	env.clock.Set(env.clock.Now().Add(time.Minute))
	if _, err := other.RateService.CreateRates(ctx, &CreateRatesRequest{
		GoldRate:    dec("7000"),
		SilverRate:  dec("80"),
		DiamondRate: dec("50000"),
	}, nil); err != nil {
		t.Fatalf("CreateRates on second instance failed: %v", err)
	}

	second, err := env.services.BillingService.CreateDocument(ctx, billRequest, nil)
	if err != nil {
		t.Fatalf("second CreateDocument failed: %v", err)
	}
	assertDecimal(t, "second rate", second.Items[0].Rate, "7000")

	latest, err := env.services.RateService.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("LatestSnapshot failed: %v", err)
	}
	assertDecimal(t, "latest gold", latest.GoldRate, "7000")
}

func TestGetBillDocument(t *testing.T) {
	env := setupEnv(t)
	env.seedRates(t)
	product := env.createProduct(t, "Gold Necklace", "Gold", "10", 2, nil)
	ctx := context.Background()

	bill, err := env.services.BillingService.CreateDocument(ctx, &CreateBillRequest{
		Items: []BillLineRequest{{ProductID: product.ID}},
	}, nil)
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	key := "bills/2026/" + bill.BillNumber + ".json"
	if err := env.archive.Delete(ctx, key); err != nil {
		t.Fatalf("Delete archive failed: %v", err)
	}

	data, err := env.services.BillingService.GetBillDocument(ctx, bill.ID)
	if err != nil {
		t.Fatalf("GetBillDocument failed: %v", err)
	}

	var decoded models.Bill
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("document is not JSON: %v", err)
	}
	if decoded.BillNumber != bill.BillNumber {
		t.Errorf("document bill number = %s, want %s", decoded.BillNumber, bill.BillNumber)
	}

	if exists, _ := env.archive.Exists(ctx, key); !exists {
		t.Error("missing document was not re-archived")
	}
}

func TestCreateDocument_ArchiveFailureIsNotFatal(t *testing.T) {
	env := setupEnv(t)
	env.seedRates(t)
	product := env.createProduct(t, "Gold Necklace", "Gold", "10", 2, nil)

	env.archive.FailNext(storage.ErrStorageUnavailable)

	bill, err := env.services.BillingService.CreateDocument(context.Background(), &CreateBillRequest{
		Items: []BillLineRequest{{ProductID: product.ID}},
	}, nil)
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	if bill.BillNumber == "" {
		t.Error("bill was not numbered")
	}
	if env.archive.Len() != 0 {
		t.Errorf("archive holds %d documents, want 0", env.archive.Len())
	}
}

func TestRateService_CurrentSnapshot(t *testing.T) {
	env := setupEnv(t)
	rates := env.services.RateService
	ctx := context.Background()

	if _, err := rates.CurrentSnapshot(ctx); !errors.Is(err, ErrRateUnavailable) {
		t.Fatalf("empty log err = %v, want ErrRateUnavailable", err)
	}

	yesterday := env.clock.Now().AddDate(0, 0, -1)
	old, err := rates.CreateRates(ctx, &CreateRatesRequest{
		GoldRate: dec("6100"), SilverRate: dec("74"), DiamondRate: dec("49000"), EffectiveDate: &yesterday,
	}, nil)
	if err != nil {
		t.Fatalf("CreateRates failed: %v", err)
	}

	current, err := rates.CurrentSnapshot(ctx)
	if err != nil || current.ID != old.ID {
		t.Fatalf("CurrentSnapshot = %v, %v, want yesterday's snapshot", current, err)
	}
	if _, err := rates.TodaySnapshot(ctx); !repositories.IsNotFound(err) {
		t.Errorf("TodaySnapshot err = %v, want not found", err)
	}

	today := env.seedRates(t)
	current, err = rates.CurrentSnapshot(ctx)
	if err != nil || current.ID != today.ID {
		t.Errorf("CurrentSnapshot after create = %v, %v, want today's snapshot", current, err)
	}

	future := env.clock.Now().Add(time.Hour)
	_, err = rates.CreateRates(ctx, &CreateRatesRequest{
		GoldRate: dec("6300"), SilverRate: dec("76"), DiamondRate: dec("51000"), EffectiveDate: &future,
	}, nil)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("future rate err = %v, want ErrValidation", err)
	}

	_, err = rates.CreateRates(ctx, &CreateRatesRequest{GoldRate: dec("-1"), SilverRate: dec("76"), DiamondRate: dec("51000")}, nil)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("negative rate err = %v, want ErrValidation", err)
	}

	history, err := rates.ListRates(ctx, 0)
	if err != nil || len(history) != 2 {
		t.Errorf("ListRates = %d, %v, want 2", len(history), err)
	}
}

func TestRateService_UpdateSettings(t *testing.T) {
	env := setupEnv(t)
	rates := env.services.RateService
	ctx := context.Background()

	_, err := rates.UpdateSettings(ctx, &UpdateSettingsRequest{GSTPercent: decPtr("5")}, nil)
	if !repositories.IsNotFound(err) {
		t.Fatalf("settings without today's rates err = %v, want not found", err)
	}

	original := env.seedRates(t)
	env.clock.Set(env.clock.Now().Add(time.Minute))

	if _, err := rates.UpdateSettings(ctx, &UpdateSettingsRequest{}, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("empty settings err = %v, want ErrValidation", err)
	}

	updated, err := rates.UpdateSettings(ctx, &UpdateSettingsRequest{GSTPercent: decPtr("5")}, nil)
	if err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	if updated.ID == original.ID {
		t.Error("settings update edited the snapshot in place")
	}
	assertDecimal(t, "GSTPercent", updated.GSTPercent, "5")
	assertDecimal(t, "GoldRate", updated.GoldRate, "6200")
	assertDecimal(t, "DefaultWastagePercent", updated.DefaultWastagePercent, "8")

	current, err := rates.CurrentSnapshot(ctx)
	if err != nil || current.ID != updated.ID {
		t.Errorf("CurrentSnapshot = %v, %v, want updated snapshot", current, err)
	}
}

func TestProductService_Defaults(t *testing.T) {
	env := setupEnv(t)
	products := env.services.ProductService
	ctx := context.Background()

	plain, err := products.CreateProduct(ctx, &CreateProductRequest{Name: "Silver Toe Ring", Category: "silver", Weight: dec("5")})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	assertDecimal(t, "WastagePercent", plain.WastagePercent, "8")
	assertDecimal(t, "GSTPercent", plain.GSTPercent, "3")
	assertDecimal(t, "MakingCharge", plain.MakingCharge, "0")
	if plain.MinStock != models.DefaultMinStock || plain.Category != models.CategorySilver {
		t.Errorf("product = %+v", plain)
	}

	_, err = env.services.RateService.CreateRates(ctx, &CreateRatesRequest{
		GoldRate: dec("6200"), SilverRate: dec("75"), DiamondRate: dec("50000"),
		GSTPercent: decPtr("5"), DefaultWastagePercent: decPtr("12"),
	}, nil)
	if err != nil {
		t.Fatalf("CreateRates failed: %v", err)
	}

	fromRates, err := products.CreateProduct(ctx, &CreateProductRequest{
		Name: "Diamond Stud", Category: "Diamond", Weight: dec("0.5"), CustomRate: decPtr("0"),
	})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	assertDecimal(t, "WastagePercent", fromRates.WastagePercent, "12")
	assertDecimal(t, "GSTPercent", fromRates.GSTPercent, "5")
	if fromRates.CustomRate != nil {
		t.Errorf("CustomRate = %s, want unset", fromRates.CustomRate)
	}

	if _, err := products.CreateProduct(ctx, &CreateProductRequest{Name: "Platinum Band", Category: "Platinum", Weight: dec("3")}); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown category err = %v, want ErrValidation", err)
	}

	stock := 7
	updated, err := products.UpdateStock(ctx, plain.ID, &UpdateStockRequest{Stock: &stock})
	if err != nil || updated.Stock != 7 {
		t.Errorf("UpdateStock = %v, %v", updated, err)
	}

	list, total, err := products.ListProducts(ctx, &ProductFilters{})
	if err != nil || total != 2 || len(list) != 2 {
		t.Errorf("ListProducts = %d (total %d), %v", len(list), total, err)
	}

	low, _, err := products.ListProducts(ctx, &ProductFilters{LowStock: true})
	if err != nil || len(low) != 1 || low[0].ID != fromRates.ID {
		t.Errorf("low stock products = %d, %v, want the diamond stud only", len(low), err)
	}
}

func TestProductService_UpdateStockWarnsAtReorderLevel(t *testing.T) {
	env := setupEnv(t)
	logger, hook := logtest.NewNullLogger()
	products := NewProductService(env.repos.Products(), env.services.RateService, logger)
	ctx := context.Background()

	chain, err := products.CreateProduct(ctx, &CreateProductRequest{Name: "Silver Chain", Category: "Silver", Weight: dec("20"), Stock: 10})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	hook.Reset()

	tests := []struct {
		stock    int
		wantWarn bool
	}{
		{9, false},
		{chain.MinStock, true},
		{0, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("stock %d", tt.stock), func(t *testing.T) {
			hook.Reset()
			stock := tt.stock
			if _, err := products.UpdateStock(ctx, chain.ID, &UpdateStockRequest{Stock: &stock}); err != nil {
				t.Fatalf("UpdateStock failed: %v", err)
			}

			warned := false
			for _, entry := range hook.AllEntries() {
				if entry.Level == logrus.WarnLevel && entry.Data["product_id"] == chain.ID {
					warned = true
				}
			}
			if warned != tt.wantWarn {
				t.Errorf("low stock warning = %v, want %v", warned, tt.wantWarn)
			}
		})
	}
}

func TestUserService(t *testing.T) {
	env := setupEnv(t)
	users := env.services.UserService
	ctx := context.Background()

	admin, created, err := users.EnsureAdmin(ctx, &CreateUserRequest{Name: "Owner", Email: "Owner@Shop.in", Password: "correct-horse"})
	if err != nil || !created {
		t.Fatalf("EnsureAdmin = %v, %v, %v", admin, created, err)
	}
	if admin.Role != models.RoleAdmin || admin.Email != "owner@shop.in" {
		t.Errorf("admin = %+v", admin)
	}

	again, created, err := users.EnsureAdmin(ctx, &CreateUserRequest{Name: "Owner", Email: "owner@shop.in", Password: "correct-horse"})
	if err != nil || created || again.ID != admin.ID {
		t.Errorf("second EnsureAdmin = %v, %v, %v", again, created, err)
	}

	staff, err := users.CreateUser(ctx, &CreateUserRequest{Name: "Counter", Email: "counter@shop.in", Password: "password123"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if staff.Role != models.RoleStaff {
		t.Errorf("Role = %s, want staff", staff.Role)
	}

	if _, _, err := users.EnsureAdmin(ctx, &CreateUserRequest{Name: "Counter", Email: "counter@shop.in", Password: "password123"}); !errors.Is(err, ErrValidation) {
		t.Errorf("EnsureAdmin over a staff account err = %v, want ErrValidation", err)
	}

	if _, err := users.CreateUser(ctx, &CreateUserRequest{Name: "Dup", Email: "COUNTER@shop.in", Password: "password123"}); !repositories.IsDuplicate(err) {
		t.Errorf("duplicate email err = %v, want duplicate", err)
	}
	if _, err := users.CreateUser(ctx, &CreateUserRequest{Name: "Short", Email: "short@shop.in", Password: "short"}); !errors.Is(err, ErrValidation) {
		t.Errorf("short password err = %v, want ErrValidation", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  bool
	}{
		{"Valid", "owner@shop.in", "correct-horse", false},
		{"CaseInsensitiveEmail", " OWNER@shop.in ", "correct-horse", false},
		{"WrongPassword", "owner@shop.in", "battery-staple", true},
		{"UnknownEmail", "nobody@shop.in", "correct-horse", true},
		{"Empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := users.Authenticate(ctx, tt.email, tt.password)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCredentials) {
					t.Errorf("err = %v, want ErrInvalidCredentials", err)
				}
				return
			}
			if err != nil || user.ID != admin.ID {
				t.Errorf("Authenticate = %v, %v", user, err)
			}
		})
	}

	list, err := users.ListUsers(ctx)
	if err != nil || len(list) != 2 {
		t.Errorf("ListUsers = %d, %v, want 2", len(list), err)
	}
}
