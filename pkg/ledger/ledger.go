// Package ledger is the loan engine: applicant approval, the loan state
// machine, fund movement between providers and banks, and installment
// settlement. Every mutating operation runs in one store transaction.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/bankLoan/pkg/models"
	"github.com/mcclellann/bankLoan/pkg/store"
	"go.uber.org/zap"
)

const defaultInstallmentIntervalDays = 30

// Options tune engine behavior.
type Options struct {
	// StrictPaymentOrder rejects paying installment k+1 while k is unpaid.
	StrictPaymentOrder      bool
	InstallmentIntervalDays int
}

// DefaultOptions matches the configuration defaults.
func DefaultOptions() Options {
	return Options{StrictPaymentOrder: true, InstallmentIntervalDays: defaultInstallmentIntervalDays}
}

// Ledger handles the business logic for loans and their payments.
type Ledger struct {
	storage store.Storage
	logger  *zap.Logger
	opts    Options
	now     func() time.Time
}

// NewLedger creates a new Ledger with a given Storage implementation.
func NewLedger(s store.Storage, logger *zap.Logger, opts Options) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.InstallmentIntervalDays <= 0 {
		opts.InstallmentIntervalDays = defaultInstallmentIntervalDays
	}
	return &Ledger{
		storage: s,
		logger:  logger,
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// authorize checks the capability and, for bank-scoped actors, that bankID is theirs.
func (l *Ledger) authorize(actor *models.Actor, c models.Capability, bankID uuid.UUID) error {
	if !actor.Can(c) || !actor.InBank(bankID) {
		l.logger.Warn("operation forbidden",
			zap.String("capability", string(c)),
			zap.Stringer("user_id", actor.UserID()),
			zap.Stringer("bank_id", bankID),
		)
		return ErrForbidden
	}
	return nil
}

func (l *Ledger) logTransition(entity string, id uuid.UUID, from, to string, actor *models.Actor) {
	l.logger.Info(entity+" status changed",
		zap.Stringer("id", id),
		zap.String("from", from),
		zap.String("to", to),
		zap.Stringer("user_id", actor.UserID()),
	)
}
