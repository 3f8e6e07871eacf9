package sqlite

import (
	"context"
	"database/sql"

	"jewellery-billing-api/internal/models"
	"jewellery-billing-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

// UserRepository implements the UserRepository interface for SQLite
type UserRepository struct {
	*BaseRepository[models.User]
}

// NewUserRepository creates a new SQLite user repository
func NewUserRepository(db *sql.DB, logger *logrus.Logger) repositories.UserRepository {
	return &UserRepository{
		BaseRepository: NewBaseRepository[models.User](db, "users", "user", logger),
	}
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return repositories.ValidationError("user", user.ID, err)
	}

	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.executeExec(ctx, "create", query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.CreatedAt.UTC(),
		user.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repositories.DuplicateError("user", "email", user.Email)
		}
		return err
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if err := r.validateID(id); err != nil {
		return nil, err
	}

	user, err := scanUser(r.executeQueryRow(ctx, "get_by_id", `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.NotFoundError("user", id)
		}
		return nil, repositories.NewRepositoryError("get_by_id", "user", id, err)
	}

	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)

	user, err := scanUser(r.executeQueryRow(ctx, "get_by_email", `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.NotFoundByError("user", "email", email)
		}
		return nil, repositories.NewRepositoryError("get_by_email", "user", email, err)
	}

	return user, nil
}

// List returns all users ordered by name
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.executeQuery(ctx, "list", `SELECT `+userColumns+` FROM users ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, repositories.NewRepositoryError("list", "user", "", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, repositories.NewRepositoryError("list", "user", "", err)
	}

	return users, nil
}

// Count returns the number of users
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.executeQueryRow(ctx, "count", `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, repositories.NewRepositoryError("count", "user", "", err)
	}
	return count, nil
}
