package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/bankLoan/pkg/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflicts with an existing record")
)

// LoanFilter narrows ListLoans. Zero-valued fields are ignored.
type LoanFilter struct {
	BankID     uuid.UUID
	ProviderID uuid.UUID
	CustomerID uuid.UUID
	Status     models.LoanStatus
}

// ApplicantFilter narrows ListProviders and ListCustomers.
type ApplicantFilter struct {
	BankID uuid.UUID
	Status models.ApplicantStatus
}

// Queries are the reads and writes available both on the store and inside a
// transaction.
type Queries interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	CreateBank(ctx context.Context, bank *models.Bank) error
	GetBank(ctx context.Context, id uuid.UUID) (*models.Bank, error)
	UpdateBank(ctx context.Context, bank *models.Bank) error
	CreateBranch(ctx context.Context, branch *models.Branch) error
	GetBranch(ctx context.Context, id uuid.UUID) (*models.Branch, error)

	CreatePersonnel(ctx context.Context, p *models.BankPersonnel) error
	GetPersonnelByUser(ctx context.Context, userID uuid.UUID) (*models.BankPersonnel, error)

	CreateProvider(ctx context.Context, p *models.LoanProvider) error
	GetProvider(ctx context.Context, id uuid.UUID) (*models.LoanProvider, error)
	GetProviderByUser(ctx context.Context, userID uuid.UUID) (*models.LoanProvider, error)
	UpdateProvider(ctx context.Context, p *models.LoanProvider) error
	ListProviders(ctx context.Context, f ApplicantFilter) ([]*models.LoanProvider, error)

	CreateCustomer(ctx context.Context, c *models.LoanCustomer) error
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.LoanCustomer, error)
	GetCustomerByUser(ctx context.Context, userID uuid.UUID) (*models.LoanCustomer, error)
	UpdateCustomer(ctx context.Context, c *models.LoanCustomer) error
	ListCustomers(ctx context.Context, f ApplicantFilter) ([]*models.LoanCustomer, error)

	CreatePlan(ctx context.Context, plan *models.LoanPlan) error
	GetPlan(ctx context.Context, id uuid.UUID) (*models.LoanPlan, error)
	ListActivePlans(ctx context.Context, bankID uuid.UUID) ([]*models.LoanPlan, error)
	ListAllPlans(ctx context.Context, bankID uuid.UUID) ([]*models.LoanPlan, error)
	SoftDeletePlan(ctx context.Context, id uuid.UUID, at time.Time) error

	CreateLoan(ctx context.Context, loan *models.Loan) error
	GetLoan(ctx context.Context, id uuid.UUID) (*models.Loan, error)
	UpdateLoan(ctx context.Context, loan *models.Loan) error
	ListLoans(ctx context.Context, f LoanFilter) ([]*models.Loan, error)

	CreatePayments(ctx context.Context, payments []*models.LoanPayment) error
	GetPayment(ctx context.Context, loanID, id uuid.UUID) (*models.LoanPayment, error)
	UpdatePayment(ctx context.Context, payment *models.LoanPayment) error
	ListPayments(ctx context.Context, loanID uuid.UUID) ([]*models.LoanPayment, error)
	NextUnpaidPayment(ctx context.Context, loanID uuid.UUID) (*models.LoanPayment, error)

	CreateTransfer(ctx context.Context, transfer *models.FundTransfer) error
	GetTransfersForLoan(ctx context.Context, loanID uuid.UUID) ([]*models.FundTransfer, error)
}

// Tx is a unit of work. The Lock* reads hold the row until the transaction
// ends, so a check-then-write on the returned entity cannot race another
// transaction doing the same.
type Tx interface {
	Queries
	LockLoan(ctx context.Context, id uuid.UUID) (*models.Loan, error)
	LockBank(ctx context.Context, id uuid.UUID) (*models.Bank, error)
	LockProvider(ctx context.Context, id uuid.UUID) (*models.LoanProvider, error)
	LockCustomer(ctx context.Context, id uuid.UUID) (*models.LoanCustomer, error)
	LockPayment(ctx context.Context, loanID uuid.UUID, installmentNumber int) (*models.LoanPayment, error)
}

// Storage defines the interface for database operations of the loan engine.
type Storage interface {
	Queries
	// WithTx runs fn in a transaction, committing if fn returns nil and rolling
	// back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
