package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"jewellery-billing-api/internal/models"
	"jewellery-billing-api/internal/repositories"
)

// BcryptCost is the work factor for stored password hashes
const BcryptCost = 12

// userService implements the UserService interface
type userService struct {
	userRepo  repositories.UserRepository
	cost      int
	validator *validator.Validate
	logger    *logrus.Logger
}

// NewUserService creates a user service. cost below bcrypt.MinCost falls back
// to BcryptCost.
func NewUserService(userRepo repositories.UserRepository, cost int, logger *logrus.Logger) UserService {
	if cost < bcrypt.MinCost {
		cost = BcryptCost
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &userService{
		userRepo:  userRepo,
		cost:      cost,
		validator: validator.New(),
		logger:    logger,
	}
}

// CreateUser hashes the password and stores a new account
func (s *userService) CreateUser(ctx context.Context, req *CreateUserRequest) (*models.User, error) {
	if req == nil {
		return nil, validationErrorf("", "create user request cannot be nil")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, newValidationError("", err)
	}

	role := req.Role
	if role == "" {
		role = models.RoleStaff
	}

	user := models.NewUser(req.Name, req.Email, role)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	if err := user.Validate(); err != nil {
		return nil, newValidationError("user", err)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("User created")

	return user, nil
}

// Authenticate checks an email and password pair. Unknown emails and wrong
// passwords both return ErrInvalidCredentials.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}

	return user, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*models.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, validationErrorf("id", "user ID cannot be empty")
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// EnsureAdmin creates the first admin account. The bool reports whether a
// user was created.
func (s *userService) EnsureAdmin(ctx context.Context, req *CreateUserRequest) (*models.User, bool, error) {
	if req == nil {
		return nil, false, validationErrorf("", "admin request cannot be nil")
	}

	existing, err := s.userRepo.GetByEmail(ctx, models.NormalizeEmail(req.Email))
	if err == nil {
		if !existing.IsAdmin() {
			return nil, false, validationErrorf("email", "%s belongs to a %s account", existing.Email, existing.Role)
		}
		return existing, false, nil
	}
	if !repositories.IsNotFound(err) {
		return nil, false, fmt.Errorf("failed to look up admin: %w", err)
	}

	admin := *req
	admin.Role = models.RoleAdmin

	user, err := s.CreateUser(ctx, &admin)
	if err != nil {
		return nil, false, err
	}

	return user, true, nil
}
