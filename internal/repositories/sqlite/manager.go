package sqlite

import (
	"context"
	"database/sql"

	"jewellery-billing-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// SQLiteRepositoryManager implements the RepositoryManager interface for SQLite
type SQLiteRepositoryManager struct {
	db                 *sql.DB
	logger             *logrus.Logger
	productRepo        repositories.ProductRepository
	rateRepo           repositories.RateRepository
	billRepo           repositories.BillRepository
	counterRepo        repositories.InvoiceCounterRepository
	userRepo           repositories.UserRepository
	transactionManager repositories.TransactionManager
}

// NewSQLiteRepositoryManager builds every repository over an open connection
func NewSQLiteRepositoryManager(db *sql.DB, logger *logrus.Logger) repositories.RepositoryManager {
	if logger == nil {
		logger = logrus.New()
	}

	return &SQLiteRepositoryManager{
		db:                 db,
		logger:             logger,
		productRepo:        NewProductRepository(db, logger),
		rateRepo:           NewRateRepository(db, logger),
		billRepo:           NewBillRepository(db, logger),
		counterRepo:        NewInvoiceCounterRepository(db, logger),
		userRepo:           NewUserRepository(db, logger),
		transactionManager: NewSQLiteTransactionManager(db, logger),
	}
}

// BeginTransaction starts a new transaction
func (m *SQLiteRepositoryManager) BeginTransaction(ctx context.Context) (repositories.Transaction, error) {
	return m.transactionManager.BeginTransaction(ctx)
}

// WithTransaction executes a function within a transaction
func (m *SQLiteRepositoryManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.transactionManager.WithTransaction(ctx, fn)
}

// Products returns the product repository
func (m *SQLiteRepositoryManager) Products() repositories.ProductRepository {
	return m.productRepo
}

// Rates returns the rate snapshot repository
func (m *SQLiteRepositoryManager) Rates() repositories.RateRepository {
	return m.rateRepo
}

// Bills returns the bill repository
func (m *SQLiteRepositoryManager) Bills() repositories.BillRepository {
	return m.billRepo
}

// InvoiceCounters returns the invoice counter repository
func (m *SQLiteRepositoryManager) InvoiceCounters() repositories.InvoiceCounterRepository {
	return m.counterRepo
}

// Users returns the user repository
func (m *SQLiteRepositoryManager) Users() repositories.UserRepository {
	return m.userRepo
}

// Close closes the underlying connection
func (m *SQLiteRepositoryManager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// Health checks the health of the repository connections
func (m *SQLiteRepositoryManager) Health(ctx context.Context) error {
	if m.db == nil {
		return repositories.ConnectionError(repositories.ErrConnection)
	}

	if err := m.db.PingContext(ctx); err != nil {
		return repositories.ConnectionError(err)
	}

	var result int
	if err := m.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return repositories.ConnectionError(err)
	}

	if result != 1 {
		return repositories.ConnectionError(repositories.ErrConnection)
	}

	return nil
}
