package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mcclellann/bankLoan/pkg/models"
	"github.com/mcclellann/bankLoan/pkg/store"
	"go.uber.org/zap"
)

// PayInstallment settles installment number n of a disbursed loan.
func (l *Ledger) PayInstallment(ctx context.Context, actor *models.Actor, loanID uuid.UUID, n int) (*models.LoanPayment, error) {
	return l.pay(ctx, actor, loanID, func(tx store.Tx) (int, error) { return n, nil })
}

// PayPayment settles the installment with the given payment id.
func (l *Ledger) PayPayment(ctx context.Context, actor *models.Actor, loanID, paymentID uuid.UUID) (*models.LoanPayment, error) {
	return l.pay(ctx, actor, loanID, func(tx store.Tx) (int, error) {
		p, err := tx.GetPayment(ctx, loanID, paymentID)
		if err != nil {
			return 0, err
		}
		return p.InstallmentNumber, nil
	})
}

func (l *Ledger) pay(ctx context.Context, actor *models.Actor, loanID uuid.UUID,
	resolve func(tx store.Tx) (int, error)) (*models.LoanPayment, error) {
	var (
		payment *models.LoanPayment
		closed  bool
	)
	err := l.storage.WithTx(ctx, func(tx store.Tx) error {
		// The loan row is locked first; that serializes every payment on it.
		loan, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if err := l.authorize(actor, models.CapPayInstallment, loan.BankID); err != nil {
			return err
		}
		if c, ok := actor.Customer(); ok && c.ID != loan.CustomerID {
			return ErrForbidden
		}
		if loan.Status != models.LoanStatusDisbursed {
			return &IllegalTransitionError{Entity: "loan", From: string(loan.Status), Action: "pay"}
		}

		n, err := resolve(tx)
		if err != nil {
			return err
		}
		payment, err = tx.LockPayment(ctx, loanID, n)
		if err != nil {
			return err
		}
		if payment.IsPaid {
			return &AlreadyPaidError{LoanID: loanID, InstallmentNumber: n}
		}
		if l.opts.StrictPaymentOrder {
			next, err := tx.NextUnpaidPayment(ctx, loanID)
			if err != nil {
				return err
			}
			if next.InstallmentNumber < n {
				return &OutOfOrderPaymentError{Requested: n, Next: next.InstallmentNumber}
			}
		}

		plan, err := tx.GetPlan(ctx, loan.PlanID)
		if err != nil {
			return err
		}
		bank, err := tx.LockBank(ctx, loan.BankID)
		if err != nil {
			return err
		}

		now := l.now()
		payment.IsPaid = true
		payment.PaidAt = &now
		settleIntoBank(bank, payment, now)

		if err := tx.UpdatePayment(ctx, payment); err != nil {
			return err
		}
		if err := tx.UpdateBank(ctx, bank); err != nil {
			return err
		}
		if err := tx.CreateTransfer(ctx, newTransfer(loanID, models.TransferKindRepayment,
			payment.Amount, payment.InterestPaid, payment.PrincipalPaid, now)); err != nil {
			return err
		}

		if payment.InstallmentNumber == plan.DurationInMonths {
			loan.IsActive = false
			loan.IsAmortized = true
			loan.UpdatedAt = now
			closed = true
			return tx.UpdateLoan(ctx, loan)
		}
		return nil
	})
	if err != nil {
		l.logRejected("pay installment", loanID, err)
		return nil, err
	}

	l.logger.Info("installment paid",
		zap.Stringer("loan_id", loanID),
		zap.Int("installment_number", payment.InstallmentNumber),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.Stringer("user_id", actor.UserID()),
	)
	if closed {
		l.logger.Info("loan amortized", zap.Stringer("loan_id", loanID))
	}
	return payment, nil
}

// NextPayment returns the lowest-numbered unpaid installment of a disbursed
// loan, or ErrNoMorePayments once every installment is settled.
func (l *Ledger) NextPayment(ctx context.Context, actor *models.Actor, loanID uuid.UUID) (*models.LoanPayment, error) {
	loan, err := l.GetLoan(ctx, actor, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != models.LoanStatusDisbursed {
		return nil, &IllegalTransitionError{Entity: "loan", From: string(loan.Status), Action: "pay"}
	}
	p, err := l.storage.NextUnpaidPayment(ctx, loanID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoMorePayments
	}
	return p, err
}

// ListPayments returns a loan's schedule in installment order.
func (l *Ledger) ListPayments(ctx context.Context, actor *models.Actor, loanID uuid.UUID) ([]*models.LoanPayment, error) {
	if _, err := l.GetLoan(ctx, actor, loanID); err != nil {
		return nil, err
	}
	return l.storage.ListPayments(ctx, loanID)
}

// ListTransfers returns the fund movements recorded for a loan.
func (l *Ledger) ListTransfers(ctx context.Context, actor *models.Actor, loanID uuid.UUID) ([]*models.FundTransfer, error) {
	if _, err := l.GetLoan(ctx, actor, loanID); err != nil {
		return nil, err
	}
	return l.storage.GetTransfersForLoan(ctx, loanID)
}
