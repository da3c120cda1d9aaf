// Package auth resolves callers into actors: login, registration, access
// tokens and the startup bootstrap of the superuser.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/bankLoan/pkg/ledger"
	"github.com/mcclellann/bankLoan/pkg/models"
	"github.com/mcclellann/bankLoan/pkg/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type Service struct {
	storage store.Storage
	tokens  *TokenManager
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(s store.Storage, tokens *TokenManager, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{storage: s, tokens: tokens, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

type LoginResult struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

// Login checks the password and mints an access token.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		s.logger.Warn("login failed", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	token, expires, err := s.tokens.Mint(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", zap.Stringer("user_id", user.ID), zap.String("role", string(user.Role)))
	return &LoginResult{AccessToken: token, ExpiresAt: expires, User: user}, nil
}

// Authenticate turns a bearer token into an actor.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.Actor, error) {
	userID, _, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	actor, err := ResolveActor(ctx, s.storage, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown user", ErrInvalidToken)
	}
	return actor, err
}

type Credentials struct {
	Username string
	Email    string
	Password string
}

type RegisterProviderInput struct {
	Credentials
	BankID             uuid.UUID
	Name               string
	RegistrationNumber string
	VATNumber          string
	TotalFunds         decimal.Decimal
}

type RegisterCustomerInput struct {
	Credentials
	BankID        uuid.UUID
	SSN           string
	CreditScore   int
	MonthlyIncome decimal.Decimal
}

type RegisterPersonnelInput struct {
	Credentials
	BranchID uuid.UUID
}

// RegisterProvider creates a provider applicant awaiting bank approval.
func (s *Service) RegisterProvider(ctx context.Context, in RegisterProviderInput) (*models.LoanProvider, error) {
	if in.TotalFunds.IsNegative() {
		return nil, fieldError("total_funds", "Total funds must not be negative")
	}
	var provider *models.LoanProvider
	err := s.storage.WithTx(ctx, func(tx store.Tx) error {
		if err := requireBank(ctx, tx, in.BankID); err != nil {
			return err
		}
		user, err := s.createUser(ctx, tx, in.Credentials, models.RoleLoanProvider)
		if err != nil {
			return err
		}
		now := s.now()
		provider = &models.LoanProvider{
			ID:                 uuid.New(),
			UserID:             user.ID,
			BankID:             in.BankID,
			Name:               in.Name,
			RegistrationNumber: in.RegistrationNumber,
			VATNumber:          in.VATNumber,
			TotalFunds:         in.TotalFunds,
			Status:             models.ApplicantStatusPending,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		return tx.CreateProvider(ctx, provider)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("provider registered", zap.Stringer("provider_id", provider.ID), zap.Stringer("bank_id", provider.BankID))
	return provider, nil
}

// RegisterCustomer creates a customer applicant awaiting bank approval.
func (s *Service) RegisterCustomer(ctx context.Context, in RegisterCustomerInput) (*models.LoanCustomer, error) {
	if in.MonthlyIncome.IsNegative() {
		return nil, fieldError("monthly_income", "Monthly income must not be negative")
	}
	var customer *models.LoanCustomer
	err := s.storage.WithTx(ctx, func(tx store.Tx) error {
		if err := requireBank(ctx, tx, in.BankID); err != nil {
			return err
		}
		user, err := s.createUser(ctx, tx, in.Credentials, models.RoleLoanCustomer)
		if err != nil {
			return err
		}
		now := s.now()
		customer = &models.LoanCustomer{
			ID:            uuid.New(),
			UserID:        user.ID,
			BankID:        in.BankID,
			SSN:           in.SSN,
			CreditScore:   in.CreditScore,
			MonthlyIncome: in.MonthlyIncome,
			Status:        models.ApplicantStatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return tx.CreateCustomer(ctx, customer)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("customer registered", zap.Stringer("customer_id", customer.ID), zap.Stringer("bank_id", customer.BankID))
	return customer, nil
}

// RegisterPersonnel adds a staff member to a branch. Admin only.
func (s *Service) RegisterPersonnel(ctx context.Context, actor *models.Actor, in RegisterPersonnelInput) (*models.BankPersonnel, error) {
	if !actor.Can(models.CapManagePersonnel) {
		return nil, ledger.ErrForbidden
	}
	var personnel *models.BankPersonnel
	err := s.storage.WithTx(ctx, func(tx store.Tx) error {
		branch, err := tx.GetBranch(ctx, in.BranchID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fieldError("branch_id", "Branch does not exist")
			}
			return err
		}
		user, err := s.createUser(ctx, tx, in.Credentials, models.RoleBankPersonnel)
		if err != nil {
			return err
		}
		personnel = &models.BankPersonnel{
			ID:        uuid.New(),
			UserID:    user.ID,
			BranchID:  branch.ID,
			BankID:    branch.BankID,
			CreatedAt: s.now(),
		}
		return tx.CreatePersonnel(ctx, personnel)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("personnel registered", zap.Stringer("personnel_id", personnel.ID), zap.Stringer("bank_id", personnel.BankID))
	return personnel, nil
}

func (s *Service) createUser(ctx context.Context, q store.Queries, c Credentials, role models.Role) (*models.User, error) {
	if len(c.Password) < 8 {
		return nil, fieldError("password", "Password must be at least 8 characters")
	}
	hash, err := HashPassword(c.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		ID:           uuid.New(),
		Username:     c.Username,
		Email:        c.Email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    s.now(),
	}
	if err := q.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func requireBank(ctx context.Context, q store.Queries, bankID uuid.UUID) error {
	if _, err := q.GetBank(ctx, bankID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fieldError("bank_id", "Bank does not exist")
		}
		return err
	}
	return nil
}

func fieldError(field, message string) error {
	return &ledger.ValidationError{Fields: []ledger.FieldError{{Field: field, Message: message}}}
}
