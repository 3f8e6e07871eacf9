package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"jewellery-billing-api/internal/models"
	"jewellery-billing-api/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const productColumns = `id, name, barcode, category, weight, making_charge, wastage_percent,
	gst_percent, custom_rate, stock, min_stock, active, created_at, updated_at`

// ProductRepository implements the ProductRepository interface for SQLite
type ProductRepository struct {
	*BaseRepository[models.Product]
}

// NewProductRepository creates a new SQLite product repository
func NewProductRepository(db *sql.DB, logger *logrus.Logger) repositories.ProductRepository {
	return &ProductRepository{
		BaseRepository: NewBaseRepository[models.Product](db, "products", "product", logger),
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	product := &models.Product{}
	var customRate decimal.NullDecimal

	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Barcode,
		&product.Category,
		&product.Weight,
		&product.MakingCharge,
		&product.WastagePercent,
		&product.GSTPercent,
		&customRate,
		&product.Stock,
		&product.MinStock,
		&product.Active,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if customRate.Valid {
		rate := customRate.Decimal
		product.CustomRate = &rate
	}

	return product, nil
}

// Create creates a new product
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := product.Validate(); err != nil {
		return repositories.ValidationError("product", product.ID, err)
	}

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.executeExec(ctx, "create", query,
		product.ID,
		product.Name,
		product.Barcode,
		product.Category,
		product.Weight,
		product.MakingCharge,
		product.WastagePercent,
		product.GSTPercent,
		product.CustomRate,
		product.Stock,
		product.MinStock,
		product.Active,
		product.CreatedAt.UTC(),
		product.UpdatedAt.UTC(),
	)

	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "barcode") && product.Barcode != nil {
				return repositories.DuplicateError("product", "barcode", *product.Barcode)
			}
			return repositories.DuplicateError("product", "id", product.ID)
		}
		return err
	}

	return nil
}

// GetByID retrieves a product by ID
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	if err := r.validateID(id); err != nil {
		return nil, err
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`

	product, err := scanProduct(r.executeQueryRow(ctx, "get_by_id", query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.NotFoundError("product", id)
		}
		return nil, repositories.NewRepositoryError("get_by_id", "product", id, err)
	}

	return product, nil
}

// GetByBarcode retrieves an active product by barcode
func (r *ProductRepository) GetByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, repositories.NewRepositoryError("get_by_barcode", "product", "", repositories.ErrInvalidID)
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE barcode = ? AND active = 1`

	product, err := scanProduct(r.executeQueryRow(ctx, "get_by_barcode", query, barcode))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.NotFoundByError("product", "barcode", barcode)
		}
		return nil, repositories.NewRepositoryError("get_by_barcode", "product", barcode, err)
	}

	return product, nil
}

// Update updates an existing product
func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	if err := product.Validate(); err != nil {
		return repositories.ValidationError("product", product.ID, err)
	}

	product.UpdateTimestamp()

	query := `
		UPDATE products
		SET name = ?, barcode = ?, category = ?, weight = ?, making_charge = ?,
			wastage_percent = ?, gst_percent = ?, custom_rate = ?, stock = ?,
			min_stock = ?, active = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.executeExec(ctx, "update", query,
		product.Name,
		product.Barcode,
		product.Category,
		product.Weight,
		product.MakingCharge,
		product.WastagePercent,
		product.GSTPercent,
		product.CustomRate,
		product.Stock,
		product.MinStock,
		product.Active,
		product.UpdatedAt.UTC(),
		product.ID,
	)

	if err != nil {
		if isUniqueViolation(err) && product.Barcode != nil {
			return repositories.DuplicateError("product", "barcode", *product.Barcode)
		}
		return err
	}

	return r.checkRowsAffected(result, "update", product.ID)
}

// SetStock overwrites the stock level of a product
func (r *ProductRepository) SetStock(ctx context.Context, id string, stock int) error {
	if err := r.validateID(id); err != nil {
		return err
	}

	if stock < 0 {
		return repositories.ValidationError("product", id, repositories.ErrConstraint)
	}

	query := `UPDATE products SET stock = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	result, err := r.executeExec(ctx, "set_stock", query, stock, id)
	if err != nil {
		return err
	}

	return r.checkRowsAffected(result, "set_stock", id)
}

// DecrementStock removes quantity units in a single conditional update so
// concurrent sales can never drive stock below zero
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, quantity int) error {
	if err := r.validateID(id); err != nil {
		return err
	}

	query := `
		UPDATE products
		SET stock = stock - ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock >= ?`

	result, err := r.executeExec(ctx, "decrement_stock", query, quantity, id, quantity)
	if err != nil {
		if isCheckViolation(err) {
			return repositories.InsufficientStockError(id, quantity)
		}
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return repositories.NewRepositoryError("decrement_stock", "product", id, err)
	}

	if affected == 0 {
		exists, existsErr := r.Exists(ctx, id)
		if existsErr != nil {
			return existsErr
		}
		if !exists {
			return repositories.NotFoundError("product", id)
		}
		return repositories.InsufficientStockError(id, quantity)
	}

	return nil
}

// SoftDelete marks a product inactive
func (r *ProductRepository) SoftDelete(ctx context.Context, id string) error {
	if err := r.validateID(id); err != nil {
		return err
	}

	query := `UPDATE products SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND active = 1`
	result, err := r.executeExec(ctx, "soft_delete", query, id)
	if err != nil {
		return err
	}

	return r.checkRowsAffected(result, "soft_delete", id)
}

func productWhere(filter repositories.ProductFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if !filter.IncludeInactive {
		conditions = append(conditions, "active = 1")
	}

	if filter.Category != nil {
		conditions = append(conditions, "category = ?")
		args = append(args, *filter.Category)
	}

	if filter.LowStockOnly {
		conditions = append(conditions, "stock <= min_stock")
	}

	if len(conditions) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List retrieves products matching the filter, ordered by name
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductFilter) ([]*models.Product, error) {
	where, args := productWhere(filter)
	page, pageArgs := pageClause(filter.Limit, filter.Offset, 50, 1000)

	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY name ASC` + page

	rows, err := r.executeQuery(ctx, "list", query, append(args, pageArgs...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []*models.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, repositories.NewRepositoryError("list", "product", "", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, repositories.NewRepositoryError("list", "product", "", err)
	}

	return products, nil
}

// Count returns the number of products matching the filter
func (r *ProductRepository) Count(ctx context.Context, filter repositories.ProductFilter) (int64, error) {
	where, args := productWhere(filter)

	var count int64
	if err := r.executeQueryRow(ctx, "count", `SELECT COUNT(*) FROM products`+where, args...).Scan(&count); err != nil {
		return 0, repositories.NewRepositoryError("count", "product", "", err)
	}

	return count, nil
}

// Stats summarises active products by category and lists those at or below
// their reorder level, lowest stock first
func (r *ProductRepository) Stats(ctx context.Context) (*models.ProductStats, error) {
	stats := &models.ProductStats{
		ByCategory:       make(map[models.Category]int),
		LowStockProducts: []models.LowStockProduct{},
	}

	rows, err := r.executeQuery(ctx, "stats_by_category",
		`SELECT category, COUNT(*) FROM products WHERE active = 1 GROUP BY category`)
	if err != nil {
		return nil, err
	}

	for rows.Next() {
		var category models.Category
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			rows.Close()
			return nil, repositories.NewRepositoryError("stats", "product", "", err)
		}
		stats.ByCategory[category] = count
		stats.TotalProducts += count
	}
	rows.Close()

	rows, err = r.executeQuery(ctx, "stats_low_stock", `
		SELECT id, name, category, stock, min_stock
		FROM products
		WHERE active = 1 AND stock <= min_stock
		ORDER BY stock ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p models.LowStockProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Stock, &p.MinStock); err != nil {
			return nil, repositories.NewRepositoryError("stats", "product", "", err)
		}
		stats.LowStockProducts = append(stats.LowStockProducts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, repositories.NewRepositoryError("stats", "product", "", err)
	}

	stats.LowStockCount = len(stats.LowStockProducts)
	return stats, nil
}
