package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/mcclellann/bankLoan/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type fixture struct {
	bank     *models.Bank
	plan     *models.LoanPlan
	provider *models.LoanProvider
	customer *models.LoanCustomer
}

func seed(t *testing.T, s *SQLStore) fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	bank := &models.Bank{ID: uuid.New(), Name: "First", TotalFunds: decimal.Zero, AvailableFunds: decimal.Zero,
		InterestEarned: decimal.Zero, OutstandingPrincipal: decimal.Zero, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateBank(ctx, bank))

	providerUser := &models.User{ID: uuid.New(), Username: "provider", Role: models.RoleLoanProvider, IsActive: true, CreatedAt: now}
	customerUser := &models.User{ID: uuid.New(), Username: "customer", Role: models.RoleLoanCustomer, IsActive: true, CreatedAt: now}
	require.NoError(t, s.CreateUser(ctx, providerUser))
	require.NoError(t, s.CreateUser(ctx, customerUser))

	provider := &models.LoanProvider{ID: uuid.New(), UserID: providerUser.ID, BankID: bank.ID, Name: "Capital Co",
		TotalFunds: decimal.NewFromInt(50000), Status: models.ApplicantStatusApproved, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateProvider(ctx, provider))

	customer := &models.LoanCustomer{ID: uuid.New(), UserID: customerUser.ID, BankID: bank.ID, SSN: "123-45",
		CreditScore: 700, MonthlyIncome: decimal.NewFromInt(4000), Status: models.ApplicantStatusApproved, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateCustomer(ctx, customer))

	plan := &models.LoanPlan{ID: uuid.New(), BankID: bank.ID, AnnualInterestRate: decimal.NewFromInt(12),
		MinimumAmount: decimal.NewFromInt(1000), MaximumAmount: decimal.NewFromInt(20000), DurationInMonths: 12, CreatedAt: now}
	require.NoError(t, s.CreatePlan(ctx, plan))

	return fixture{bank: bank, plan: plan, provider: provider, customer: customer}
}

func newLoan(f fixture) *models.Loan {
	now := time.Now().UTC()
	return &models.Loan{
		ID: uuid.New(), Purpose: "car", Amount: decimal.NewFromInt(12000), PlanID: f.plan.ID,
		ProviderID: f.provider.ID, CustomerID: f.customer.ID, BankID: f.bank.ID, Status: models.LoanStatusPending,
		MonthlyPayableAmount: decimal.RequireFromString("1066.19"), TotalPayableAmount: decimal.RequireFromString("12794.28"),
		CreatedAt: now, UpdatedAt: now,
	}
}

func TestSQLiteStore_CreateAndGetLoan(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	loan := newLoan(f)
	require.NoError(t, s.CreateLoan(ctx, loan))

	fetched, err := s.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.ID, fetched.ID)
	assert.Equal(t, models.LoanStatusPending, fetched.Status)
	assert.True(t, fetched.Amount.Equal(loan.Amount))
	assert.True(t, fetched.MonthlyPayableAmount.Equal(loan.MonthlyPayableAmount))
	assert.Nil(t, fetched.ApprovedAt)
	assert.False(t, fetched.IsActive)

	approvedAt := time.Now().UTC()
	fetched.Status = models.LoanStatusApproved
	fetched.ApprovedAt = &approvedAt
	require.NoError(t, s.UpdateLoan(ctx, fetched))

	again, err := s.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusApproved, again.Status)
	require.NotNil(t, again.ApprovedAt)
	assert.WithinDuration(t, approvedAt, *again.ApprovedAt, time.Second)
}

func TestSQLiteStore_GetLoanNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetLoan(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ListLoansFilters(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	pending := newLoan(f)
	approved := newLoan(f)
	approved.Status = models.LoanStatusApproved
	require.NoError(t, s.CreateLoan(ctx, pending))
	require.NoError(t, s.CreateLoan(ctx, approved))

	all, err := s.ListLoans(ctx, LoanFilter{BankID: f.bank.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyApproved, err := s.ListLoans(ctx, LoanFilter{BankID: f.bank.ID, ProviderID: f.provider.ID, Status: models.LoanStatusApproved})
	require.NoError(t, err)
	require.Len(t, onlyApproved, 1)
	assert.Equal(t, approved.ID, onlyApproved[0].ID)

	none, err := s.ListLoans(ctx, LoanFilter{CustomerID: uuid.New()})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteStore_PaymentsScheduleAndNextUnpaid(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	loan := newLoan(f)
	require.NoError(t, s.CreateLoan(ctx, loan))

	now := time.Now().UTC()
	var batch []*models.LoanPayment
	for i := 1; i <= 3; i++ {
		batch = append(batch, &models.LoanPayment{
			ID: uuid.New(), LoanID: loan.ID, InstallmentNumber: i, Amount: loan.MonthlyPayableAmount,
			DueDate: now.AddDate(0, 0, 30*i), InterestPaid: decimal.NewFromInt(1), PrincipalPaid: decimal.NewFromInt(2),
			RemainingPrincipal: decimal.NewFromInt(3), CreatedAt: now,
		})
	}
	require.NoError(t, s.WithTx(ctx, func(tx Tx) error { return tx.CreatePayments(ctx, batch) }))

	listed, err := s.ListPayments(ctx, loan.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for i, p := range listed {
		assert.Equal(t, i+1, p.InstallmentNumber)
	}

	next, err := s.NextUnpaidPayment(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, next.InstallmentNumber)

	paidAt := time.Now().UTC()
	next.IsPaid = true
	next.PaidAt = &paidAt
	require.NoError(t, s.UpdatePayment(ctx, next))

	next, err = s.NextUnpaidPayment(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, next.InstallmentNumber)

	byID, err := s.GetPayment(ctx, loan.ID, listed[0].ID)
	require.NoError(t, err)
	assert.True(t, byID.IsPaid)
	require.NotNil(t, byID.PaidAt)
}

func TestSQLiteStore_DuplicateInstallmentRollsBackBatch(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	loan := newLoan(f)
	require.NoError(t, s.CreateLoan(ctx, loan))

	now := time.Now().UTC()
	mk := func(n int) *models.LoanPayment {
		return &models.LoanPayment{ID: uuid.New(), LoanID: loan.ID, InstallmentNumber: n, Amount: loan.MonthlyPayableAmount,
			DueDate: now, InterestPaid: decimal.Zero, PrincipalPaid: decimal.Zero, RemainingPrincipal: decimal.Zero, CreatedAt: now}
	}
	err := s.WithTx(ctx, func(tx Tx) error {
		return tx.CreatePayments(ctx, []*models.LoanPayment{mk(1), mk(2), mk(2)})
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)

	listed, err := s.ListPayments(ctx, loan.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestSQLiteStore_PlansActiveVersusAll(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.SoftDeletePlan(ctx, f.plan.ID, time.Now().UTC()))

	active, err := s.ListActivePlans(ctx, f.bank.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := s.ListAllPlans(ctx, f.bank.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.NotNil(t, all[0].DeletedAt)

	assert.ErrorIs(t, s.SoftDeletePlan(ctx, f.plan.ID, time.Now().UTC()), ErrNotFound)
}

func TestSQLiteStore_UniqueUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.CreateUser(ctx, &models.User{ID: uuid.New(), Username: "dup", Role: models.RoleAdmin, CreatedAt: now}))
	err := s.CreateUser(ctx, &models.User{ID: uuid.New(), Username: "dup", Role: models.RoleAdmin, CreatedAt: now})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSQLiteStore_PersonnelBankResolvedThroughBranch(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	ctx := context.Background()
	now := time.Now().UTC()

	branch := &models.Branch{ID: uuid.New(), BankID: f.bank.ID, Name: "Main", Code: "001", CreatedAt: now}
	require.NoError(t, s.CreateBranch(ctx, branch))
	user := &models.User{ID: uuid.New(), Username: "teller", Role: models.RoleBankPersonnel, IsActive: true, CreatedAt: now}
	require.NoError(t, s.CreateUser(ctx, user))
	require.NoError(t, s.CreatePersonnel(ctx, &models.BankPersonnel{ID: uuid.New(), UserID: user.ID, BranchID: branch.ID, CreatedAt: now}))

	p, err := s.GetPersonnelByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, f.bank.ID, p.BankID)
	assert.Equal(t, branch.ID, p.BranchID)
}

func TestSQLiteStore_Transfers(t *testing.T) {
	s := newTestStore(t)
	f := seed(t, s)
	ctx := context.Background()

	loan := newLoan(f)
	require.NoError(t, s.CreateLoan(ctx, loan))

	amount := decimal.NewFromInt(12000)
	require.NoError(t, s.CreateTransfer(ctx, &models.FundTransfer{
		ID: uuid.New(), LoanID: loan.ID, Kind: models.TransferKindDisbursement, Amount: amount,
		Interest: decimal.Zero, Principal: amount, CreatedAt: time.Now().UTC(),
	}))

	transfers, err := s.GetTransfersForLoan(ctx, loan.ID)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, models.TransferKindDisbursement, transfers[0].Kind)
	assert.True(t, transfers[0].Amount.Equal(amount))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := newSQLStore(db, postgresDialect)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE banks SET .* WHERE id = \$7`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err = s.WithTx(context.Background(), func(tx Tx) error {
		now := time.Now().UTC()
		if err := tx.UpdateBank(context.Background(), &models.Bank{ID: uuid.New(), UpdatedAt: now}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := newSQLStore(db, postgresDialect)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE loan_payments SET is_paid = \$1, paid_at = \$2 WHERE id = \$3`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = s.WithTx(context.Background(), func(tx Tx) error {
		return tx.UpdatePayment(context.Background(), &models.LoanPayment{ID: uuid.New(), IsPaid: true})
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLockUsesForUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := newSQLStore(db, postgresDialect)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM loans WHERE id = \$1 FOR UPDATE`).WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err = s.WithTx(context.Background(), func(tx Tx) error {
		_, err := tx.LockLoan(context.Background(), id)
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMissingRowIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := newSQLStore(db, sqliteDialect)
	mock.ExpectExec(`UPDATE loans SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err = s.UpdateLoan(context.Background(), &models.Loan{ID: uuid.New()})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "a = $1 AND b = $2", postgresDialect.rebind("a = ? AND b = ?"))
	assert.Equal(t, "a = ? AND b = ?", sqliteDialect.rebind("a = ? AND b = ?"))
}
