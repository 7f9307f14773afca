package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"propsignal/models"
	"propsignal/storage"
)

const MinPasswordLength = 6

// Errors from account creation are shown to the user exactly as written here
var (
	ErrDuplicateEmail     = errors.New("an account with this email already exists")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidEmail       = errors.New("please enter a valid email address")
	ErrInvalidCredentials = errors.New("email or password is incorrect")
)

// Store is the user-record persistence the service needs
type Store interface {
	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
}

// CreateRequest carries what the interest flow or the wizard collected
type CreateRequest struct {
	Email    string
	Password string
	Name     string
	Company  string
	Phone    string
}

// Service creates and locates accounts
type Service struct {
	store Store
	cost  int
}

// NewService creates an account service. A cost of 0 uses bcrypt.DefaultCost.
func NewService(store Store, cost int) *Service {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{store: store, cost: cost}
}

// NormalizeEmail lower-cases and trims an address, reporting whether it is valid
func NormalizeEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return email, false
	}
	return email, true
}

// CreateAccount registers a new account. Duplicate and weak-password
// failures come back as ErrDuplicateEmail and ErrWeakPassword.
func (s *Service) CreateAccount(ctx context.Context, req CreateRequest) (*models.Account, error) {
	email, ok := NormalizeEmail(req.Email)
	if !ok {
		return nil, ErrInvalidEmail
	}
	if len(req.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	existing, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("password is too long")
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		Company:      strings.TrimSpace(req.Company),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: string(hashed),
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		// Lost a race with another registration for the same address
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

// Authenticate locates an existing account by email and password
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	email, _ = NormalizeEmail(email)
	account, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if account == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify password: %w", err)
	}
	return account, nil
}
