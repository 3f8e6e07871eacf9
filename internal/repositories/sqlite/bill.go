package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"jewellery-billing-api/internal/models"
	"jewellery-billing-api/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const billColumns = `id, bill_number, customer_name, customer_phone, total_metal_price,
	total_wastage, total_making_charge, subtotal, total_gst, discount, grand_total,
	metal_type, kind, payment_status, payment_method, rate_snapshot_id, created_by, created_at`

const billItemColumns = `id, bill_id, position, product_id, name, category, weight, rate,
	metal_price, wastage_percent, wastage_amount, making_charge, subtotal, gst_percent,
	gst_amount, total, quantity`

// BillRepository implements the BillRepository interface for SQLite.
// Bills and their items are written once and never updated.
type BillRepository struct {
	*BaseRepository[models.Bill]
}

// NewBillRepository creates a new SQLite bill repository
func NewBillRepository(db *sql.DB, logger *logrus.Logger) repositories.BillRepository {
	return &BillRepository{
		BaseRepository: NewBaseRepository[models.Bill](db, "bills", "bill", logger),
	}
}

func scanBill(row rowScanner) (*models.Bill, error) {
	bill := &models.Bill{Items: []models.BillItem{}}
	err := row.Scan(
		&bill.ID,
		&bill.BillNumber,
		&bill.CustomerName,
		&bill.CustomerPhone,
		&bill.TotalMetalPrice,
		&bill.TotalWastage,
		&bill.TotalMakingCharge,
		&bill.Subtotal,
		&bill.TotalGST,
		&bill.Discount,
		&bill.GrandTotal,
		&bill.MetalType,
		&bill.Kind,
		&bill.PaymentStatus,
		&bill.PaymentMethod,
		&bill.RateSnapshotID,
		&bill.CreatedBy,
		&bill.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return bill, nil
}

func scanBillItem(row rowScanner) (models.BillItem, error) {
	var item models.BillItem
	err := row.Scan(
		&item.ID,
		&item.BillID,
		&item.Position,
		&item.ProductID,
		&item.Name,
		&item.Category,
		&item.Weight,
		&item.Rate,
		&item.MetalPrice,
		&item.WastagePercent,
		&item.WastageAmount,
		&item.MakingCharge,
		&item.Subtotal,
		&item.GSTPercent,
		&item.GSTAmount,
		&item.Total,
		&item.Quantity,
	)
	return item, err
}

// Create inserts the bill and its items. Without a surrounding transaction in
// ctx it opens one so a bill is never stored without its items.
func (r *BillRepository) Create(ctx context.Context, bill *models.Bill) error {
	if err := bill.Validate(); err != nil {
		return repositories.ValidationError("bill", bill.ID, err)
	}

	if _, ok := txFromContext(ctx); ok {
		return r.insert(ctx, bill)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return repositories.TransactionError("begin", err)
	}

	if err := r.insert(contextWithTx(ctx, tx), bill); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			r.logger.WithError(rollbackErr).Error("Failed to rollback bill insert")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return repositories.TransactionError("commit", err)
	}

	return nil
}

func (r *BillRepository) insert(ctx context.Context, bill *models.Bill) error {
	query := `
		INSERT INTO bills (` + billColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.executeExec(ctx, "create", query,
		bill.ID,
		bill.BillNumber,
		bill.CustomerName,
		bill.CustomerPhone,
		bill.TotalMetalPrice,
		bill.TotalWastage,
		bill.TotalMakingCharge,
		bill.Subtotal,
		bill.TotalGST,
		bill.Discount,
		bill.GrandTotal,
		bill.MetalType,
		bill.Kind,
		bill.PaymentStatus,
		bill.PaymentMethod,
		bill.RateSnapshotID,
		bill.CreatedBy,
		bill.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "bill_number") {
				return repositories.DuplicateError("bill", "number", bill.BillNumber)
			}
			return repositories.DuplicateError("bill", "id", bill.ID)
		}
		if isCheckViolation(err) {
			return repositories.ConstraintError("bill", "bills", err)
		}
		return err
	}

	itemQuery := `
		INSERT INTO bill_items (` + billItemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, item := range bill.Items {
		_, err := r.executeExec(ctx, "create_item", itemQuery,
			item.ID,
			bill.ID,
			item.Position,
			item.ProductID,
			item.Name,
			item.Category,
			item.Weight,
			item.Rate,
			item.MetalPrice,
			item.WastagePercent,
			item.WastageAmount,
			item.MakingCharge,
			item.Subtotal,
			item.GSTPercent,
			item.GSTAmount,
			item.Total,
			item.Quantity,
		)
		if err != nil {
			if isCheckViolation(err) {
				return repositories.ConstraintError("bill item", "bill_items", err)
			}
			return err
		}
	}

	return nil
}

// GetByID retrieves a bill with its items
func (r *BillRepository) GetByID(ctx context.Context, id string) (*models.Bill, error) {
	if err := r.validateID(id); err != nil {
		return nil, err
	}

	query := `SELECT ` + billColumns + ` FROM bills WHERE id = ?`

	bill, err := scanBill(r.executeQueryRow(ctx, "get_by_id", query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.NotFoundError("bill", id)
		}
		return nil, repositories.NewRepositoryError("get_by_id", "bill", id, err)
	}

	if err := r.loadItems(ctx, []*models.Bill{bill}); err != nil {
		return nil, err
	}

	return bill, nil
}

// GetByNumber retrieves a bill with its items by invoice number
func (r *BillRepository) GetByNumber(ctx context.Context, number string) (*models.Bill, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, repositories.NewRepositoryError("get_by_number", "bill", "", repositories.ErrInvalidID)
	}

	query := `SELECT ` + billColumns + ` FROM bills WHERE bill_number = ?`

	bill, err := scanBill(r.executeQueryRow(ctx, "get_by_number", query, number))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.NotFoundByError("bill", "number", number)
		}
		return nil, repositories.NewRepositoryError("get_by_number", "bill", number, err)
	}

	if err := r.loadItems(ctx, []*models.Bill{bill}); err != nil {
		return nil, err
	}

	return bill, nil
}

// loadItems fills Items for every bill with a single query
func (r *BillRepository) loadItems(ctx context.Context, bills []*models.Bill) error {
	if len(bills) == 0 {
		return nil
	}

	byID := make(map[string]*models.Bill, len(bills))
	placeholders := make([]string, 0, len(bills))
	args := make([]interface{}, 0, len(bills))
	for _, bill := range bills {
		byID[bill.ID] = bill
		placeholders = append(placeholders, "?")
		args = append(args, bill.ID)
	}

	query := `SELECT ` + billItemColumns + ` FROM bill_items WHERE bill_id IN (` +
		strings.Join(placeholders, ", ") + `) ORDER BY bill_id, position`

	rows, err := r.executeQuery(ctx, "load_items", query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanBillItem(rows)
		if err != nil {
			return repositories.NewRepositoryError("load_items", "bill", "", err)
		}
		if bill, ok := byID[item.BillID]; ok {
			bill.Items = append(bill.Items, item)
		}
	}

	if err := rows.Err(); err != nil {
		return repositories.NewRepositoryError("load_items", "bill", "", err)
	}

	return nil
}

func billWhere(filter repositories.BillFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.StartDate != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.StartDate.UTC())
	}

	if filter.EndDate != nil {
		conditions = append(conditions, "created_at < ?")
		args = append(args, filter.EndDate.UTC())
	}

	if filter.Status != nil {
		conditions = append(conditions, "payment_status = ?")
		args = append(args, *filter.Status)
	}

	if filter.Kind != nil {
		conditions = append(conditions, "kind = ?")
		args = append(args, *filter.Kind)
	}

	if len(conditions) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List retrieves bills matching the filter, newest first
func (r *BillRepository) List(ctx context.Context, filter repositories.BillFilter) ([]*models.Bill, error) {
	where, args := billWhere(filter)
	page, pageArgs := pageClause(filter.Limit, filter.Offset, 50, 500)

	query := `SELECT ` + billColumns + ` FROM bills` + where + ` ORDER BY created_at DESC, bill_number DESC` + page

	rows, err := r.executeQuery(ctx, "list", query, append(args, pageArgs...)...)
	if err != nil {
		return nil, err
	}

	bills := []*models.Bill{}
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			rows.Close()
			return nil, repositories.NewRepositoryError("list", "bill", "", err)
		}
		bills = append(bills, bill)
	}

	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, repositories.NewRepositoryError("list", "bill", "", err)
	}
	rows.Close()

	if err := r.loadItems(ctx, bills); err != nil {
		return nil, err
	}

	return bills, nil
}

// Count returns the number of bills matching the filter
func (r *BillRepository) Count(ctx context.Context, filter repositories.BillFilter) (int64, error) {
	where, args := billWhere(filter)

	var count int64
	if err := r.executeQueryRow(ctx, "count", `SELECT COUNT(*) FROM bills`+where, args...).Scan(&count); err != nil {
		return 0, repositories.NewRepositoryError("count", "bill", "", err)
	}

	return count, nil
}

// SalesBetween sums the grand totals of Bill documents that are Paid or
// Partial. Estimates and pending bills are not takings. Amounts are summed as
// decimals rather than in SQL to avoid floating point drift.
func (r *BillRepository) SalesBetween(ctx context.Context, start, end time.Time) (*models.DailySales, error) {
	query := `
		SELECT grand_total
		FROM bills
		WHERE kind = ? AND payment_status IN (?, ?)
			AND created_at >= ? AND created_at < ?`

	rows, err := r.executeQuery(ctx, "sales_between", query,
		models.KindBill, models.PaymentPaid, models.PaymentPartial, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := &models.DailySales{
		Date:       start.Format("2006-01-02"),
		TotalSales: decimal.Zero,
	}

	for rows.Next() {
		var total decimal.Decimal
		if err := rows.Scan(&total); err != nil {
			return nil, repositories.NewRepositoryError("sales_between", "bill", "", err)
		}
		sales.TotalSales = sales.TotalSales.Add(total)
		sales.BillCount++
	}

	if err := rows.Err(); err != nil {
		return nil, repositories.NewRepositoryError("sales_between", "bill", "", err)
	}

	sales.TotalSales = models.Round2(sales.TotalSales)
	return sales, nil
}
