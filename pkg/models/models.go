package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "pending"
	LoanStatusApproved  LoanStatus = "approved"
	LoanStatusDisbursed LoanStatus = "disbursed"
	LoanStatusRejected  LoanStatus = "rejected"
)

// LoanPlan is the template a loan is originated from. Plans are never edited,
// only soft-deleted.
type LoanPlan struct {
	ID                 uuid.UUID       `json:"id"`
	BankID             uuid.UUID       `json:"bank_id"`
	AnnualInterestRate decimal.Decimal `json:"annual_interest_rate"` // Percentage, e.g. 12 for 12%
	MinimumAmount      decimal.Decimal `json:"minimum_amount"`
	MaximumAmount      decimal.Decimal `json:"maximum_amount"`
	DurationInMonths   int             `json:"duration_in_months"`
	CreatedAt          time.Time       `json:"created_at"`
	DeletedAt          *time.Time      `json:"deleted_at,omitempty"`
}

type Loan struct {
	ID                   uuid.UUID       `json:"id"`
	Purpose              string          `json:"purpose"`
	Amount               decimal.Decimal `json:"amount"` // Principal
	PlanID               uuid.UUID       `json:"plan_id"`
	ProviderID           uuid.UUID       `json:"provider_id"`
	CustomerID           uuid.UUID       `json:"customer_id"`
	BankID               uuid.UUID       `json:"bank_id"`
	Status               LoanStatus      `json:"status"`
	IsActive             bool            `json:"is_active"`
	IsAmortized          bool            `json:"is_amortized"`
	MonthlyPayableAmount decimal.Decimal `json:"monthly_payable_amount"` // Frozen at origination
	TotalPayableAmount   decimal.Decimal `json:"total_payable_amount"`   // Frozen at origination
	ApprovedAt           *time.Time      `json:"approved_at,omitempty"`
	DisbursedAt          *time.Time      `json:"disbursed_at,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// LoanPayment is one installment of a disbursed loan's amortization schedule.
type LoanPayment struct {
	ID                 uuid.UUID       `json:"id"`
	LoanID             uuid.UUID       `json:"loan_id"`
	InstallmentNumber  int             `json:"installment_number"`
	Amount             decimal.Decimal `json:"amount"`
	DueDate            time.Time       `json:"due_date"`
	IsPaid             bool            `json:"is_paid"`
	PaidAt             *time.Time      `json:"paid_at,omitempty"`
	InterestPaid       decimal.Decimal `json:"interest_paid"`
	PrincipalPaid      decimal.Decimal `json:"principal_paid"`
	RemainingPrincipal decimal.Decimal `json:"remaining_principal"` // Balance after this installment
	CreatedAt          time.Time       `json:"created_at"`
}

type TransferKind string

const (
	TransferKindDisbursement TransferKind = "disbursement"
	TransferKindRepayment    TransferKind = "repayment"
)

// FundTransfer is a journal entry for money moved on behalf of a loan.
type FundTransfer struct {
	ID        uuid.UUID       `json:"id"`
	LoanID    uuid.UUID       `json:"loan_id"`
	Kind      TransferKind    `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Interest  decimal.Decimal `json:"interest"`
	Principal decimal.Decimal `json:"principal"`
	CreatedAt time.Time       `json:"created_at"`
}
