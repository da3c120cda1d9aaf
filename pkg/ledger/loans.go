package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcclellann/bankLoan/pkg/amortization"
	"github.com/mcclellann/bankLoan/pkg/models"
	"github.com/mcclellann/bankLoan/pkg/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateLoanInput is a loan application. A customer actor may leave
// CustomerID empty to apply for itself.
type CreateLoanInput struct {
	PlanID     uuid.UUID
	ProviderID uuid.UUID
	CustomerID uuid.UUID
	Amount     decimal.Decimal
	Purpose    string
}

// CreateLoan records a pending loan application with its payment amounts
// frozen from the plan.
func (l *Ledger) CreateLoan(ctx context.Context, actor *models.Actor, in CreateLoanInput) (*models.Loan, error) {
	if !actor.Can(models.CapCreateLoan) {
		return nil, ErrForbidden
	}
	if c, ok := actor.Customer(); ok {
		if in.CustomerID == uuid.Nil {
			in.CustomerID = c.ID
		}
		if in.CustomerID != c.ID {
			return nil, ErrForbidden
		}
	}

	var loan *models.Loan
	err := l.storage.WithTx(ctx, func(tx store.Tx) error {
		verr := &ValidationError{}

		plan, err := tx.GetPlan(ctx, in.PlanID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			verr.add("plan_id", "Loan plan does not exist")
		}
		provider, err := tx.LockProvider(ctx, in.ProviderID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			verr.add("provider_id", "Loan provider does not exist")
		}
		customer, err := tx.LockCustomer(ctx, in.CustomerID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			verr.add("customer_id", "Loan customer does not exist")
		}
		if customer != nil {
			if err := l.authorize(actor, models.CapCreateLoan, customer.BankID); err != nil {
				return err
			}
		}

		validateAmount(verr, in.Amount, plan)
		if plan != nil {
			if plan.DeletedAt != nil {
				verr.add("plan_id", "Loan plan is no longer offered")
			}
			if provider != nil && provider.BankID != plan.BankID {
				verr.add("provider_id", "Provider does not belong to the plan's bank")
			}
			if customer != nil && customer.BankID != plan.BankID {
				verr.add("customer_id", "Customer does not belong to the plan's bank")
			}
		}
		if customer != nil && customer.Status != models.ApplicantStatusApproved {
			verr.add("customer_id", "Customer is not approved")
		}
		if provider != nil && provider.Status != models.ApplicantStatusApproved {
			verr.add("provider_id", "Provider is not approved")
		}
		if err := verr.err(); err != nil {
			return err
		}

		quote, err := amortization.Calculate(amortization.Terms{
			Principal:          in.Amount,
			AnnualInterestRate: plan.AnnualInterestRate,
			DurationInMonths:   plan.DurationInMonths,
		})
		if err != nil {
			return &ValidationError{Fields: []FieldError{{Field: "plan_id", Message: err.Error()}}}
		}
		if !quote.MonthlyPayableAmount.IsPositive() {
			return &ValidationError{Fields: []FieldError{{Field: "amount", Message: "Amount is too small for the plan"}}}
		}

		now := l.now()
		loan = &models.Loan{
			ID:                   uuid.New(),
			Purpose:              in.Purpose,
			Amount:               in.Amount,
			PlanID:               plan.ID,
			ProviderID:           provider.ID,
			CustomerID:           customer.ID,
			BankID:               plan.BankID,
			Status:               models.LoanStatusPending,
			MonthlyPayableAmount: quote.MonthlyPayableAmount,
			TotalPayableAmount:   quote.TotalPayableAmount,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		return tx.CreateLoan(ctx, loan)
	})
	if err != nil {
		l.logRejected("create loan", uuid.Nil, err)
		return nil, err
	}

	l.logger.Info("loan application created",
		zap.Stringer("loan_id", loan.ID),
		zap.Stringer("customer_id", loan.CustomerID),
		zap.String("amount", loan.Amount.StringFixed(2)),
		zap.String("monthly_payable_amount", loan.MonthlyPayableAmount.StringFixed(2)),
	)
	return loan, nil
}

func validateAmount(verr *ValidationError, amount decimal.Decimal, plan *models.LoanPlan) {
	if !amount.IsPositive() {
		verr.add("amount", "Amount must be greater than zero")
		return
	}
	if !amount.Equal(amount.Round(2)) {
		verr.add("amount", "Amount must have at most 2 decimal places")
	}
	if plan == nil {
		return
	}
	if amount.LessThan(plan.MinimumAmount) || amount.GreaterThan(plan.MaximumAmount) {
		verr.add("amount", fmt.Sprintf("Amount must be between %s and %s",
			plan.MinimumAmount.StringFixed(2), plan.MaximumAmount.StringFixed(2)))
	}
}

// ApproveLoan moves a pending loan to approved. No funds move.
func (l *Ledger) ApproveLoan(ctx context.Context, actor *models.Actor, loanID uuid.UUID) (*models.Loan, error) {
	return l.transitionLoan(ctx, actor, loanID, models.CapApproveLoan, "approve",
		models.LoanStatusPending, func(loan *models.Loan) {
			now := l.now()
			loan.Status = models.LoanStatusApproved
			loan.ApprovedAt = &now
			loan.UpdatedAt = now
		})
}

// RejectLoan moves a pending loan to rejected.
func (l *Ledger) RejectLoan(ctx context.Context, actor *models.Actor, loanID uuid.UUID) (*models.Loan, error) {
	return l.transitionLoan(ctx, actor, loanID, models.CapRejectLoan, "reject",
		models.LoanStatusPending, func(loan *models.Loan) {
			loan.Status = models.LoanStatusRejected
			loan.UpdatedAt = l.now()
		})
}

func (l *Ledger) transitionLoan(ctx context.Context, actor *models.Actor, loanID uuid.UUID,
	c models.Capability, action string, from models.LoanStatus, apply func(*models.Loan)) (*models.Loan, error) {
	var loan *models.Loan
	err := l.storage.WithTx(ctx, func(tx store.Tx) error {
		var err error
		loan, err = tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if err := l.authorize(actor, c, loan.BankID); err != nil {
			return err
		}
		if loan.Status != from {
			return &IllegalTransitionError{Entity: "loan", From: string(loan.Status), Action: action}
		}
		apply(loan)
		return tx.UpdateLoan(ctx, loan)
	})
	if err != nil {
		l.logRejected(action+" loan", loanID, err)
		return nil, err
	}
	l.logTransition("loan", loan.ID, string(from), string(loan.Status), actor)
	return loan, nil
}

// DisburseLoan moves an approved loan's principal from its provider into the
// bank, activates it and materializes its full installment schedule. Either
// all of that happens or none of it does.
func (l *Ledger) DisburseLoan(ctx context.Context, actor *models.Actor, loanID uuid.UUID) (*models.Loan, error) {
	var loan *models.Loan
	err := l.storage.WithTx(ctx, func(tx store.Tx) error {
		var err error
		loan, err = tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if err := l.authorize(actor, models.CapDisburseLoan, loan.BankID); err != nil {
			return err
		}
		if p, ok := actor.Provider(); ok && p.ID != loan.ProviderID {
			return ErrForbidden
		}
		if loan.Status != models.LoanStatusApproved {
			return &IllegalTransitionError{Entity: "loan", From: string(loan.Status), Action: "disburse"}
		}

		plan, err := tx.GetPlan(ctx, loan.PlanID)
		if err != nil {
			return err
		}
		provider, err := tx.LockProvider(ctx, loan.ProviderID)
		if err != nil {
			return err
		}
		bank, err := tx.LockBank(ctx, loan.BankID)
		if err != nil {
			return err
		}

		now := l.now()
		if err := moveToBank(provider, bank, loan.Amount, now); err != nil {
			return err
		}

		installments, err := amortization.Schedule(amortization.Terms{
			Principal:          loan.Amount,
			AnnualInterestRate: plan.AnnualInterestRate,
			DurationInMonths:   plan.DurationInMonths,
		}, loan.MonthlyPayableAmount, now, l.opts.InstallmentIntervalDays)
		if err != nil {
			return fmt.Errorf("failed to build schedule: %w", err)
		}
		payments := make([]*models.LoanPayment, 0, len(installments))
		for _, in := range installments {
			payments = append(payments, &models.LoanPayment{
				ID:                 uuid.New(),
				LoanID:             loan.ID,
				InstallmentNumber:  in.Number,
				Amount:             in.Amount,
				DueDate:            in.DueDate,
				InterestPaid:       in.InterestPaid,
				PrincipalPaid:      in.PrincipalPaid,
				RemainingPrincipal: in.RemainingPrincipal,
				CreatedAt:          now,
			})
		}

		loan.Status = models.LoanStatusDisbursed
		loan.DisbursedAt = &now
		loan.IsActive = true
		loan.UpdatedAt = now

		if err := tx.UpdateProvider(ctx, provider); err != nil {
			return err
		}
		if err := tx.UpdateBank(ctx, bank); err != nil {
			return err
		}
		if err := tx.UpdateLoan(ctx, loan); err != nil {
			return err
		}
		if err := tx.CreatePayments(ctx, payments); err != nil {
			return err
		}
		return tx.CreateTransfer(ctx, newTransfer(loan.ID, models.TransferKindDisbursement,
			loan.Amount, decimal.Zero, loan.Amount, now))
	})
	if err != nil {
		l.logRejected("disburse loan", loanID, err)
		return nil, err
	}
	l.logTransition("loan", loan.ID, string(models.LoanStatusApproved), string(loan.Status), actor)
	return loan, nil
}

// GetLoan returns a loan the actor may see. Loans outside the actor's scope
// are reported as not found.
func (l *Ledger) GetLoan(ctx context.Context, actor *models.Actor, loanID uuid.UUID) (*models.Loan, error) {
	loan, err := l.storage.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !canSeeLoan(actor, loan) {
		return nil, fmt.Errorf("loan %s: %w", loanID, store.ErrNotFound)
	}
	return loan, nil
}

// ListLoans returns every loan in the actor's scope.
func (l *Ledger) ListLoans(ctx context.Context, actor *models.Actor) ([]*models.Loan, error) {
	f, err := loanScope(actor)
	if err != nil {
		return nil, err
	}
	return l.storage.ListLoans(ctx, f)
}

// ListLoanApplications returns the loans awaiting the actor's action: pending
// ones for bank staff, approved ones for the provider that backs them. A
// customer sees all of its own applications.
func (l *Ledger) ListLoanApplications(ctx context.Context, actor *models.Actor) ([]*models.Loan, error) {
	f, err := loanScope(actor)
	if err != nil {
		return nil, err
	}
	switch actor.Role.(type) {
	case models.AdminRole, models.PersonnelRole:
		f.Status = models.LoanStatusPending
	case models.ProviderRole:
		f.Status = models.LoanStatusApproved
	}
	return l.storage.ListLoans(ctx, f)
}

func loanScope(actor *models.Actor) (store.LoanFilter, error) {
	if !actor.Can(models.CapViewLoans) {
		return store.LoanFilter{}, ErrForbidden
	}
	switch r := actor.Role.(type) {
	case models.AdminRole:
		return store.LoanFilter{}, nil
	case models.PersonnelRole:
		return store.LoanFilter{BankID: r.Personnel.BankID}, nil
	case models.ProviderRole:
		return store.LoanFilter{BankID: r.Provider.BankID, ProviderID: r.Provider.ID}, nil
	case models.CustomerRole:
		return store.LoanFilter{BankID: r.Customer.BankID, CustomerID: r.Customer.ID}, nil
	}
	return store.LoanFilter{}, ErrForbidden
}

func canSeeLoan(actor *models.Actor, loan *models.Loan) bool {
	if !actor.Can(models.CapViewLoans) || !actor.InBank(loan.BankID) {
		return false
	}
	if p, ok := actor.Provider(); ok {
		return p.ID == loan.ProviderID
	}
	if c, ok := actor.Customer(); ok {
		return c.ID == loan.CustomerID
	}
	return true
}

// logRejected records a failed operation. Infrastructure failures log at
// error, business rule rejections at warn.
func (l *Ledger) logRejected(op string, id uuid.UUID, err error) {
	fields := []zap.Field{zap.String("operation", op), zap.Error(err)}
	if id != uuid.Nil {
		fields = append(fields, zap.Stringer("id", id))
	}
	if isBusinessError(err) {
		l.logger.Warn("operation rejected", fields...)
		return
	}
	l.logger.Error("operation failed", fields...)
}

func isBusinessError(err error) bool {
	var (
		verr *ValidationError
		terr *IllegalTransitionError
		ferr *InsufficientFundsError
		perr *AlreadyPaidError
		oerr *OutOfOrderPaymentError
	)
	return errors.As(err, &verr) || errors.As(err, &terr) || errors.As(err, &ferr) ||
		errors.As(err, &perr) || errors.As(err, &oerr) ||
		errors.Is(err, ErrForbidden) || errors.Is(err, store.ErrNotFound) || errors.Is(err, ErrNoMorePayments)
}
