package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcclellann/bankLoan/pkg/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CreateBankInput struct {
	Name           string
	TotalFunds     decimal.Decimal
	AvailableFunds decimal.Decimal
}

// CreateBank registers a new bank. Admin only.
func (l *Ledger) CreateBank(ctx context.Context, actor *models.Actor, in CreateBankInput) (*models.Bank, error) {
	if !actor.Can(models.CapManageBanks) {
		return nil, ErrForbidden
	}
	verr := &ValidationError{}
	if in.Name == "" {
		verr.add("name", "Name is required")
	}
	if in.TotalFunds.IsNegative() {
		verr.add("total_funds", "Total funds must not be negative")
	}
	if in.AvailableFunds.IsNegative() {
		verr.add("available_funds", "Available funds must not be negative")
	}
	if err := verr.err(); err != nil {
		return nil, err
	}

	now := l.now()
	bank := &models.Bank{
		ID:                   uuid.New(),
		Name:                 in.Name,
		TotalFunds:           in.TotalFunds,
		AvailableFunds:       in.AvailableFunds,
		InterestEarned:       decimal.Zero,
		OutstandingPrincipal: decimal.Zero,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := l.storage.CreateBank(ctx, bank); err != nil {
		return nil, err
	}
	l.logger.Info("bank created", zap.Stringer("bank_id", bank.ID), zap.String("name", bank.Name))
	return bank, nil
}

// GetBank returns a bank the actor belongs to.
func (l *Ledger) GetBank(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Bank, error) {
	if err := l.authorize(actor, models.CapViewBank, id); err != nil {
		return nil, err
	}
	return l.storage.GetBank(ctx, id)
}

type CreateBranchInput struct {
	Name        string
	Code        string
	Address     string
	PhoneNumber string
}

// CreateBranch adds a branch to an existing bank. Admin only.
func (l *Ledger) CreateBranch(ctx context.Context, actor *models.Actor, bankID uuid.UUID, in CreateBranchInput) (*models.Branch, error) {
	if !actor.Can(models.CapManageBanks) {
		return nil, ErrForbidden
	}
	verr := &ValidationError{}
	if in.Name == "" {
		verr.add("name", "Name is required")
	}
	if in.Code == "" {
		verr.add("code", "Code is required")
	}
	if err := verr.err(); err != nil {
		return nil, err
	}
	if _, err := l.storage.GetBank(ctx, bankID); err != nil {
		return nil, err
	}

	branch := &models.Branch{
		ID:          uuid.New(),
		BankID:      bankID,
		Name:        in.Name,
		Code:        in.Code,
		Address:     in.Address,
		PhoneNumber: in.PhoneNumber,
		CreatedAt:   l.now(),
	}
	if err := l.storage.CreateBranch(ctx, branch); err != nil {
		return nil, err
	}
	return branch, nil
}

type CreatePlanInput struct {
	BankID             uuid.UUID
	AnnualInterestRate decimal.Decimal
	MinimumAmount      decimal.Decimal
	MaximumAmount      decimal.Decimal
	DurationInMonths   int
}

// CreatePlan adds a loan plan to a bank. Bank personnel default to their own bank.
func (l *Ledger) CreatePlan(ctx context.Context, actor *models.Actor, in CreatePlanInput) (*models.LoanPlan, error) {
	if in.BankID == uuid.Nil {
		in.BankID, _ = actor.BankID()
	}
	if err := l.authorize(actor, models.CapManagePlans, in.BankID); err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	if in.BankID == uuid.Nil {
		verr.add("bank_id", "Bank is required")
	}
	if in.AnnualInterestRate.IsNegative() || in.AnnualInterestRate.GreaterThan(decimal.NewFromInt(100)) {
		verr.add("annual_interest_rate", "Annual interest rate must be between 0 and 100")
	}
	if !in.MinimumAmount.IsPositive() {
		verr.add("minimum_amount", "Minimum amount must be greater than zero")
	}
	if in.MaximumAmount.LessThan(in.MinimumAmount) {
		verr.add("maximum_amount", "Maximum amount must not be less than minimum amount")
	}
	if in.DurationInMonths <= 0 {
		verr.add("duration_in_months", "Duration in months must be positive")
	}
	if err := verr.err(); err != nil {
		return nil, err
	}
	if _, err := l.storage.GetBank(ctx, in.BankID); err != nil {
		return nil, err
	}

	plan := &models.LoanPlan{
		ID:                 uuid.New(),
		BankID:             in.BankID,
		AnnualInterestRate: in.AnnualInterestRate,
		MinimumAmount:      in.MinimumAmount,
		MaximumAmount:      in.MaximumAmount,
		DurationInMonths:   in.DurationInMonths,
		CreatedAt:          l.now(),
	}
	if err := l.storage.CreatePlan(ctx, plan); err != nil {
		return nil, err
	}
	l.logger.Info("loan plan created", zap.Stringer("plan_id", plan.ID), zap.Stringer("bank_id", plan.BankID))
	return plan, nil
}

// DeletePlan withdraws a plan from new applications. Loans already on the
// plan keep referencing it.
func (l *Ledger) DeletePlan(ctx context.Context, actor *models.Actor, planID uuid.UUID) error {
	plan, err := l.storage.GetPlan(ctx, planID)
	if err != nil {
		return err
	}
	if err := l.authorize(actor, models.CapManagePlans, plan.BankID); err != nil {
		return err
	}
	if err := l.storage.SoftDeletePlan(ctx, planID, l.now()); err != nil {
		return err
	}
	l.logger.Info("loan plan deleted", zap.Stringer("plan_id", planID))
	return nil
}

// ListPlans returns a bank's plans. Deleted plans are only included on request.
func (l *Ledger) ListPlans(ctx context.Context, actor *models.Actor, bankID uuid.UUID, includeDeleted bool) ([]*models.LoanPlan, error) {
	if bankID == uuid.Nil {
		var ok bool
		if bankID, ok = actor.BankID(); !ok {
			return nil, &ValidationError{Fields: []FieldError{{Field: "bank_id", Message: "Bank is required"}}}
		}
	}
	if !actor.InBank(bankID) {
		return nil, ErrForbidden
	}
	if includeDeleted {
		if !actor.Can(models.CapManagePlans) {
			return nil, ErrForbidden
		}
		return l.storage.ListAllPlans(ctx, bankID)
	}
	return l.storage.ListActivePlans(ctx, bankID)
}
