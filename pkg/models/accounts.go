package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleAdmin         Role = "admin"
	RoleBankPersonnel Role = "bank_personnel"
	RoleLoanProvider  Role = "loan_provider"
	RoleLoanCustomer  Role = "loan_customer"
)

type ApplicantStatus string

const (
	ApplicantStatusPending  ApplicantStatus = "pending"
	ApplicantStatusApproved ApplicantStatus = "approved"
	ApplicantStatusRejected ApplicantStatus = "rejected"
)

// Bank is the financial entity loans are booked against.
type Bank struct {
	ID                   uuid.UUID       `json:"id"`
	Name                 string          `json:"name"`
	TotalFunds           decimal.Decimal `json:"total_funds"`
	AvailableFunds       decimal.Decimal `json:"available_funds"`
	InterestEarned       decimal.Decimal `json:"interest_earned"`       // Realized interest from settled installments
	OutstandingPrincipal decimal.Decimal `json:"outstanding_principal"` // Disbursed principal not yet repaid
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

type Branch struct {
	ID          uuid.UUID `json:"id"`
	BankID      uuid.UUID `json:"bank_id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Address     string    `json:"address"`
	PhoneNumber string    `json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsSuperuser  bool      `json:"is_superuser"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// BankPersonnel works at a branch; BankID is resolved through the branch.
type BankPersonnel struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	BranchID  uuid.UUID `json:"branch_id"`
	BankID    uuid.UUID `json:"bank_id"`
	CreatedAt time.Time `json:"created_at"`
}

type LoanProvider struct {
	ID                 uuid.UUID       `json:"id"`
	UserID             uuid.UUID       `json:"user_id"`
	BankID             uuid.UUID       `json:"bank_id"`
	Name               string          `json:"name"`
	RegistrationNumber string          `json:"registration_number"`
	VATNumber          string          `json:"vat_number"`
	TotalFunds         decimal.Decimal `json:"total_funds"` // Capital supplied
	Status             ApplicantStatus `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type LoanCustomer struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	BankID        uuid.UUID       `json:"bank_id"`
	SSN           string          `json:"ssn"`
	CreditScore   int             `json:"credit_score"`
	MonthlyIncome decimal.Decimal `json:"monthly_income"`
	Status        ApplicantStatus `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
