package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcclellann/bankLoan/pkg/models"
	"github.com/mcclellann/bankLoan/pkg/store"
)

// ApproveProvider makes a pending provider eligible to back loans.
func (l *Ledger) ApproveProvider(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.LoanProvider, error) {
	return l.decideProvider(ctx, actor, id, models.CapApproveApplicant, "approve", models.ApplicantStatusApproved)
}

// RejectProvider closes a pending provider application.
func (l *Ledger) RejectProvider(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.LoanProvider, error) {
	return l.decideProvider(ctx, actor, id, models.CapRejectApplicant, "reject", models.ApplicantStatusRejected)
}

// ApproveCustomer makes a pending customer eligible to apply for loans.
func (l *Ledger) ApproveCustomer(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.LoanCustomer, error) {
	return l.decideCustomer(ctx, actor, id, models.CapApproveApplicant, "approve", models.ApplicantStatusApproved)
}

// RejectCustomer closes a pending customer application.
func (l *Ledger) RejectCustomer(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.LoanCustomer, error) {
	return l.decideCustomer(ctx, actor, id, models.CapRejectApplicant, "reject", models.ApplicantStatusRejected)
}

func (l *Ledger) decideProvider(ctx context.Context, actor *models.Actor, id uuid.UUID,
	c models.Capability, action string, to models.ApplicantStatus) (*models.LoanProvider, error) {
	var p *models.LoanProvider
	err := l.storage.WithTx(ctx, func(tx store.Tx) error {
		var err error
		p, err = tx.LockProvider(ctx, id)
		if err != nil {
			return err
		}
		if err := l.authorize(actor, c, p.BankID); err != nil {
			return err
		}
		if p.Status != models.ApplicantStatusPending {
			return &IllegalTransitionError{Entity: "provider", From: string(p.Status), Action: action}
		}
		p.Status = to
		p.UpdatedAt = l.now()
		return tx.UpdateProvider(ctx, p)
	})
	if err != nil {
		l.logRejected(action+" provider", id, err)
		return nil, err
	}
	l.logTransition("provider", p.ID, string(models.ApplicantStatusPending), string(to), actor)
	return p, nil
}

func (l *Ledger) decideCustomer(ctx context.Context, actor *models.Actor, id uuid.UUID,
	c models.Capability, action string, to models.ApplicantStatus) (*models.LoanCustomer, error) {
	var cust *models.LoanCustomer
	err := l.storage.WithTx(ctx, func(tx store.Tx) error {
		var err error
		cust, err = tx.LockCustomer(ctx, id)
		if err != nil {
			return err
		}
		if err := l.authorize(actor, c, cust.BankID); err != nil {
			return err
		}
		if cust.Status != models.ApplicantStatusPending {
			return &IllegalTransitionError{Entity: "customer", From: string(cust.Status), Action: action}
		}
		cust.Status = to
		cust.UpdatedAt = l.now()
		return tx.UpdateCustomer(ctx, cust)
	})
	if err != nil {
		l.logRejected(action+" customer", id, err)
		return nil, err
	}
	l.logTransition("customer", cust.ID, string(models.ApplicantStatusPending), string(to), actor)
	return cust, nil
}

// ListProviderApplications returns the pending providers of the actor's bank.
func (l *Ledger) ListProviderApplications(ctx context.Context, actor *models.Actor) ([]*models.LoanProvider, error) {
	f, err := applicantScope(actor)
	if err != nil {
		return nil, err
	}
	return l.storage.ListProviders(ctx, f)
}

// ListCustomerApplications returns the pending customers of the actor's bank.
func (l *Ledger) ListCustomerApplications(ctx context.Context, actor *models.Actor) ([]*models.LoanCustomer, error) {
	f, err := applicantScope(actor)
	if err != nil {
		return nil, err
	}
	return l.storage.ListCustomers(ctx, f)
}

func applicantScope(actor *models.Actor) (store.ApplicantFilter, error) {
	if !actor.Can(models.CapApproveApplicant) {
		return store.ApplicantFilter{}, ErrForbidden
	}
	f := store.ApplicantFilter{Status: models.ApplicantStatusPending}
	if bankID, ok := actor.BankID(); ok {
		f.BankID = bankID
	}
	return f, nil
}
