package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/bankLoan/pkg/models"
	"github.com/shopspring/decimal"
)

// moveToBank transfers amount of provider capital into the bank's pool
// backing a loan. Balances are untouched when the provider cannot cover it.
func moveToBank(provider *models.LoanProvider, bank *models.Bank, amount decimal.Decimal, at time.Time) error {
	if provider.TotalFunds.LessThan(amount) {
		return &InsufficientFundsError{Required: amount, Available: provider.TotalFunds}
	}
	provider.TotalFunds = provider.TotalFunds.Sub(amount)
	provider.UpdatedAt = at
	bank.TotalFunds = bank.TotalFunds.Add(amount)
	bank.OutstandingPrincipal = bank.OutstandingPrincipal.Add(amount)
	bank.UpdatedAt = at
	return nil
}

// settleIntoBank books a paid installment against the bank.
func settleIntoBank(bank *models.Bank, payment *models.LoanPayment, at time.Time) {
	bank.AvailableFunds = bank.AvailableFunds.Add(payment.Amount)
	bank.InterestEarned = bank.InterestEarned.Add(payment.InterestPaid)
	outstanding := bank.OutstandingPrincipal.Sub(payment.PrincipalPaid)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}
	bank.OutstandingPrincipal = outstanding
	bank.UpdatedAt = at
}

func newTransfer(loanID uuid.UUID, kind models.TransferKind, amount, interest, principal decimal.Decimal, at time.Time) *models.FundTransfer {
	return &models.FundTransfer{
		ID:        uuid.New(),
		LoanID:    loanID,
		Kind:      kind,
		Amount:    amount,
		Interest:  interest,
		Principal: principal,
		CreatedAt: at,
	}
}
