package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fueldelivery/internal/apperror"
	"fueldelivery/internal/model"
	"fueldelivery/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SetPriceModifierRequest struct {
	PriceModifier string `json:"price_modifier" binding:"required"`
}

type TokenResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse returns a User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	PriceModifier string    `json:"price_modifier"`
	CreatedAt     string    `json:"created_at"`
}

// TokenIssuer signs access tokens. *middleware.Auth implements it.
type TokenIssuer interface {
	IssueToken(user *model.User) (string, error)
}

// UserService covers registration, login and the admin view of customers.
type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Me(ctx context.Context, actor Actor) (*UserResponse, error)
	ListCustomers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	SetPriceModifier(ctx context.Context, actor Actor, customerID string, req SetPriceModifierRequest) (*UserResponse, error)
	// EnsureAdmin creates an administrator account if none exists with that email.
	EnsureAdmin(ctx context.Context, name, email, password string) error
}

type userService struct {
	repo      repository.UserRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	tokens    TokenIssuer
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager, tokens TokenIssuer) UserService {
	return &userService{repo: repo, auditRepo: auditRepo, txManager: txManager, tokens: tokens}
}

// Helper: parse model to standard json API response
func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		Role:          user.Role,
		PriceModifier: user.PriceModifier.StringFixed(4),
		CreatedAt:     user.CreatedAt.Format(timeLayout),
	}
}

func (s *userService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("name", "is required")
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already exists", apperror.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	// Hash password automatically
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:          name,
		Email:         email,
		Password:      string(hashedPassword),
		Role:          model.RoleCustomer,
		PriceModifier: decimal.Zero,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapToResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", apperror.ErrUnauthorized)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", apperror.ErrUnauthorized)
	}

	token, err := s.tokens.IssueToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &TokenResponse{Token: token, User: *mapToResponse(user)}, nil
}

func (s *userService) Me(ctx context.Context, actor Actor) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return mapToResponse(user), nil
}

func (s *userService) ListCustomers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	page, limit = normalizePage(page, limit)

	users, total, err := s.repo.ListByRole(ctx, model.RoleCustomer, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToResponse(&users[i]))
	}

	return responses, total, nil
}

// SetPriceModifier changes the modifier used for the customer's future bookings. Existing bookings keep their snapshot.
func (s *userService) SetPriceModifier(ctx context.Context, actor Actor, customerID string, req SetPriceModifierRequest) (*UserResponse, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only administrators can set price modifiers", apperror.ErrForbidden)
	}
	id, err := parseID("id", customerID)
	if err != nil {
		return nil, err
	}
	modifier, err := decimal.NewFromString(req.PriceModifier)
	if err != nil {
		return nil, apperror.Validation("price_modifier", "must be a decimal number")
	}

	var user *model.User
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return notFound(err, "customer")
		}
		if current.Role != model.RoleCustomer {
			return apperror.Validation("id", "price modifiers apply to customers only")
		}
		previous := current.PriceModifier

		if err := s.repo.UpdatePriceModifier(txCtx, id, modifier); err != nil {
			return fmt.Errorf("failed to update price modifier: %w", err)
		}
		current.PriceModifier = modifier
		user = current

		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdatePriceModifier, id.String(), current.Name, map[string]string{
			"before": previous.String(),
			"after":  modifier.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	return mapToResponse(user), nil
}

func (s *userService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check admin: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.repo.Create(ctx, &model.User{
		Name:     name,
		Email:    email,
		Password: string(hashedPassword),
		Role:     model.RoleAdmin,
	})
}
