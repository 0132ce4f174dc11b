package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"submission_service/internal/domain"
	"submission_service/internal/errdefs"
	"submission_service/pkg/logging"
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.UserRole
}

type UserService struct {
	users  UserRepository
	logger *logging.Logger
}

func NewUserService(users UserRepository, logger *logging.Logger) *UserService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &UserService{users: users, logger: logger}
}

// Register creates an account. Role defaults to student.
func (s *UserService) Register(ctx context.Context, input *RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || email == "" || input.Password == "" {
		return nil, fmt.Errorf("name, email and password are required: %w", errdefs.ErrInvalidArgument)
	}

	role := input.Role
	if role == "" {
		role = domain.UserRoleStudent
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("unknown role %q: %w", role, errdefs.ErrInvalidArgument)
	}

	user := &domain.User{
		Name:  name,
		Email: email,
		Role:  role,
	}
	if err := user.SetPassword(input.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "User registered",
		zap.String("user_id", user.ID.Hex()),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}
