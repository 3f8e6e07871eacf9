package repositories

import (
	"context"
)

// Transaction represents a database transaction that can be used across multiple repositories
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns a context carrying the transaction. Repository calls
	// made with it run inside the transaction.
	Context() context.Context
}

// TransactionManager manages database transactions
type TransactionManager interface {
	// BeginTransaction starts a new transaction
	BeginTransaction(ctx context.Context) (Transaction, error)

	// WithTransaction executes fn within a transaction, committing when fn
	// returns nil and rolling back otherwise
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repositories provides access to all repositories
type Repositories interface {
	Products() ProductRepository
	Rates() RateRepository
	Bills() BillRepository
	InvoiceCounters() InvoiceCounterRepository
	Users() UserRepository
}

// RepositoryManager provides access to all repositories and transaction management
type RepositoryManager interface {
	TransactionManager
	Repositories

	// Close closes all repository connections
	Close() error

	// Health checks the health of the repository connections
	Health(ctx context.Context) error
}
