package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	// bcrypt rejects longer inputs.
	maxPasswordBytes = 72
)

type AuthUseCase interface {
	Register(ctx context.Context, input RegisterInput) (*Result, error)
	Login(ctx context.Context, email, password string) (*Result, error)
	Profile(ctx context.Context, userID int64) (*domain.User, error)
}

type TokenIssuer interface {
	Generate(userID int64, email string) (string, error)
}

type RegisterInput struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type Result struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type AuthService struct {
	users      repository.UserRepository
	tokens     TokenIssuer
	logger     *zap.Logger
	bcryptCost int
}

func NewAuthService(users repository.UserRepository, tokens TokenIssuer, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, tokens: tokens, logger: logger, bcryptCost: bcrypt.DefaultCost}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*Result, error) {
	fullName := strings.TrimSpace(input.FullName)
	email := normalizeEmail(input.Email)
	if fullName == "" || email == "" || input.Password == "" {
		return nil, fmt.Errorf("full_name, email and password are required: %w", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("invalid email: %w", domain.ErrInvalidInput)
	}
	if len(input.Password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, domain.ErrInvalidInput)
	}
	if len(input.Password) > maxPasswordBytes {
		return nil, fmt.Errorf("password must be at most %d bytes: %w", maxPasswordBytes, domain.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, domain.Classify(err)
	}

	user := &domain.User{
		FullName:     fullName,
		Email:        email,
		Phone:        strings.TrimSpace(input.Phone),
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, fmt.Errorf("email already registered: %w", domain.ErrInvalidInput)
		}
		return nil, domain.Classify(err)
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID))
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Result, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required: %w", domain.ErrInvalidInput)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
		}
		return nil, domain.Classify(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
	}
	return s.issue(user)
}

func (s *AuthService) Profile(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, domain.Classify(err)
	}
	return user, nil
}

func (s *AuthService) issue(user *domain.User) (*Result, error) {
	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, domain.Classify(err)
	}
	return &Result{Token: token, User: user}, nil
}

var _ AuthUseCase = (*AuthService)(nil)
