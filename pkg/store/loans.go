package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/bankLoan/pkg/models"
)

const planColumns = `id, bank_id, annual_interest_rate, minimum_amount, maximum_amount, duration_in_months, created_at, deleted_at`

func scanPlan(row scanner) (*models.LoanPlan, error) {
	var p models.LoanPlan
	var deletedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.BankID, &p.AnnualInterestRate, &p.MinimumAmount, &p.MaximumAmount, &p.DurationInMonths, &p.CreatedAt, &deletedAt); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		p.DeletedAt = &deletedAt.Time
	}
	return &p, nil
}

// CreatePlan inserts a new loan plan.
func (s *queries) CreatePlan(ctx context.Context, plan *models.LoanPlan) error {
	_, err := s.exec(ctx,
		`INSERT INTO loan_plans (`+planColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.BankID, plan.AnnualInterestRate, plan.MinimumAmount, plan.MaximumAmount, plan.DurationInMonths, plan.CreatedAt, plan.DeletedAt,
	)
	if err != nil {
		return insertErr("loan plan", err)
	}
	return nil
}

// GetPlan retrieves a plan by its ID, deleted or not.
func (s *queries) GetPlan(ctx context.Context, id uuid.UUID) (*models.LoanPlan, error) {
	p, err := scanPlan(s.queryRow(ctx, `SELECT `+planColumns+` FROM loan_plans WHERE id = ?`, id))
	if err != nil {
		return nil, getErr("loan plan", err)
	}
	return p, nil
}

// ListActivePlans lists a bank's plans that have not been deleted.
func (s *queries) ListActivePlans(ctx context.Context, bankID uuid.UUID) ([]*models.LoanPlan, error) {
	return s.listPlans(ctx, `SELECT `+planColumns+` FROM loan_plans WHERE bank_id = ? AND deleted_at IS NULL ORDER BY created_at ASC`, bankID)
}

// ListAllPlans lists every plan of a bank, deleted ones included.
func (s *queries) ListAllPlans(ctx context.Context, bankID uuid.UUID) ([]*models.LoanPlan, error) {
	return s.listPlans(ctx, `SELECT `+planColumns+` FROM loan_plans WHERE bank_id = ? ORDER BY created_at ASC`, bankID)
}

func (s *queries) listPlans(ctx context.Context, query string, args ...any) ([]*models.LoanPlan, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list loan plans: %w", err)
	}
	defer rows.Close()

	var plans []*models.LoanPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan plan row: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return plans, nil
}

// SoftDeletePlan marks a plan deleted. Deleting twice reports ErrNotFound.
func (s *queries) SoftDeletePlan(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.execOne(ctx, "loan plan", `UPDATE loan_plans SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, at, id)
}

const loanColumns = `id, purpose, amount, plan_id, provider_id, customer_id, bank_id, status, is_active, is_amortized, monthly_payable_amount, total_payable_amount, approved_at, disbursed_at, created_at, updated_at`

func scanLoan(row scanner) (*models.Loan, error) {
	var loan models.Loan
	var approvedAt, disbursedAt sql.NullTime
	err := row.Scan(&loan.ID, &loan.Purpose, &loan.Amount, &loan.PlanID, &loan.ProviderID, &loan.CustomerID, &loan.BankID,
		&loan.Status, &loan.IsActive, &loan.IsAmortized, &loan.MonthlyPayableAmount, &loan.TotalPayableAmount,
		&approvedAt, &disbursedAt, &loan.CreatedAt, &loan.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if approvedAt.Valid {
		loan.ApprovedAt = &approvedAt.Time
	}
	if disbursedAt.Valid {
		loan.DisbursedAt = &disbursedAt.Time
	}
	return &loan, nil
}

// CreateLoan inserts a new loan into the database.
func (s *queries) CreateLoan(ctx context.Context, loan *models.Loan) error {
	_, err := s.exec(ctx,
		`INSERT INTO loans (`+loanColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loan.ID, loan.Purpose, loan.Amount, loan.PlanID, loan.ProviderID, loan.CustomerID, loan.BankID,
		loan.Status, loan.IsActive, loan.IsAmortized, loan.MonthlyPayableAmount, loan.TotalPayableAmount,
		loan.ApprovedAt, loan.DisbursedAt, loan.CreatedAt, loan.UpdatedAt,
	)
	if err != nil {
		return insertErr("loan", err)
	}
	return nil
}

// GetLoan retrieves a loan by its ID.
func (s *queries) GetLoan(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	loan, err := scanLoan(s.queryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = ?`, id))
	if err != nil {
		return nil, getErr("loan", err)
	}
	return loan, nil
}

// UpdateLoan writes the mutable part of a loan. Amount, plan, parties and the
// payable amounts are frozen at origination and never rewritten.
func (s *queries) UpdateLoan(ctx context.Context, loan *models.Loan) error {
	return s.execOne(ctx, "loan",
		`UPDATE loans SET status = ?, is_active = ?, is_amortized = ?, approved_at = ?, disbursed_at = ?, updated_at = ? WHERE id = ?`,
		loan.Status, loan.IsActive, loan.IsAmortized, loan.ApprovedAt, loan.DisbursedAt, loan.UpdatedAt, loan.ID,
	)
}

// ListLoans retrieves loans matching the filter, newest first.
func (s *queries) ListLoans(ctx context.Context, f LoanFilter) ([]*models.Loan, error) {
	var conds []string
	var args []any
	if f.BankID != uuid.Nil {
		conds = append(conds, "bank_id = ?")
		args = append(args, f.BankID)
	}
	if f.ProviderID != uuid.Nil {
		conds = append(conds, "provider_id = ?")
		args = append(args, f.ProviderID)
	}
	if f.CustomerID != uuid.Nil {
		conds = append(conds, "customer_id = ?")
		args = append(args, f.CustomerID)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	query := `SELECT ` + loanColumns + ` FROM loans`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	var loans []*models.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan row: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return loans, nil
}

const paymentColumns = `id, loan_id, installment_number, amount, due_date, is_paid, paid_at, interest_paid, principal_paid, remaining_principal, created_at`

func scanPayment(row scanner) (*models.LoanPayment, error) {
	var p models.LoanPayment
	var paidAt sql.NullTime
	err := row.Scan(&p.ID, &p.LoanID, &p.InstallmentNumber, &p.Amount, &p.DueDate, &p.IsPaid, &paidAt,
		&p.InterestPaid, &p.PrincipalPaid, &p.RemainingPrincipal, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		p.PaidAt = &paidAt.Time
	}
	return &p, nil
}

// CreatePayments inserts a whole schedule. Callers run it inside WithTx so the
// batch lands all at once or not at all.
func (s *queries) CreatePayments(ctx context.Context, payments []*models.LoanPayment) error {
	for _, p := range payments {
		_, err := s.exec(ctx,
			`INSERT INTO loan_payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.LoanID, p.InstallmentNumber, p.Amount, p.DueDate, p.IsPaid, p.PaidAt,
			p.InterestPaid, p.PrincipalPaid, p.RemainingPrincipal, p.CreatedAt,
		)
		if err != nil {
			return insertErr(fmt.Sprintf("installment %d", p.InstallmentNumber), err)
		}
	}
	return nil
}

// GetPayment retrieves an installment of a loan by its ID.
func (s *queries) GetPayment(ctx context.Context, loanID, id uuid.UUID) (*models.LoanPayment, error) {
	p, err := scanPayment(s.queryRow(ctx, `SELECT `+paymentColumns+` FROM loan_payments WHERE loan_id = ? AND id = ?`, loanID, id))
	if err != nil {
		return nil, getErr("loan payment", err)
	}
	return p, nil
}

// UpdatePayment writes the settlement state of an installment.
func (s *queries) UpdatePayment(ctx context.Context, payment *models.LoanPayment) error {
	return s.execOne(ctx, "loan payment",
		`UPDATE loan_payments SET is_paid = ?, paid_at = ? WHERE id = ?`,
		payment.IsPaid, payment.PaidAt, payment.ID,
	)
}

// ListPayments retrieves a loan's schedule in installment order.
func (s *queries) ListPayments(ctx context.Context, loanID uuid.UUID) ([]*models.LoanPayment, error) {
	rows, err := s.query(ctx, `SELECT `+paymentColumns+` FROM loan_payments WHERE loan_id = ? ORDER BY installment_number ASC`, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments for loan %s: %w", loanID, err)
	}
	defer rows.Close()

	var payments []*models.LoanPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan payment row: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for loan payments: %w", err)
	}
	return payments, nil
}

// NextUnpaidPayment retrieves the lowest-numbered unpaid installment.
func (s *queries) NextUnpaidPayment(ctx context.Context, loanID uuid.UUID) (*models.LoanPayment, error) {
	p, err := scanPayment(s.queryRow(ctx,
		`SELECT `+paymentColumns+` FROM loan_payments WHERE loan_id = ? AND is_paid = ? ORDER BY installment_number ASC LIMIT 1`,
		loanID, false))
	if err != nil {
		return nil, getErr("loan payment", err)
	}
	return p, nil
}

// CreateTransfer appends a fund transfer to the journal.
func (s *queries) CreateTransfer(ctx context.Context, transfer *models.FundTransfer) error {
	_, err := s.exec(ctx,
		`INSERT INTO fund_transfers (id, loan_id, kind, amount, interest, principal, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		transfer.ID, transfer.LoanID, transfer.Kind, transfer.Amount, transfer.Interest, transfer.Principal, transfer.CreatedAt,
	)
	if err != nil {
		return insertErr("fund transfer", err)
	}
	return nil
}

// GetTransfersForLoan retrieves all fund transfers for a given loan ID.
func (s *queries) GetTransfersForLoan(ctx context.Context, loanID uuid.UUID) ([]*models.FundTransfer, error) {
	rows, err := s.query(ctx,
		`SELECT id, loan_id, kind, amount, interest, principal, created_at FROM fund_transfers WHERE loan_id = ? ORDER BY created_at ASC`, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfers for loan %s: %w", loanID, err)
	}
	defer rows.Close()

	var transfers []*models.FundTransfer
	for rows.Next() {
		var t models.FundTransfer
		if err := rows.Scan(&t.ID, &t.LoanID, &t.Kind, &t.Amount, &t.Interest, &t.Principal, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fund transfer row: %w", err)
		}
		transfers = append(transfers, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for loan transfers: %w", err)
	}
	return transfers, nil
}

// LockLoan reads a loan and holds its row for the rest of the transaction.
func (t *sqlTx) LockLoan(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	loan, err := scanLoan(t.queryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = ?`+t.d.forUpdate, id))
	if err != nil {
		return nil, getErr("loan", err)
	}
	return loan, nil
}

// LockPayment reads an installment and holds its row for the rest of the
// transaction.
func (t *sqlTx) LockPayment(ctx context.Context, loanID uuid.UUID, installmentNumber int) (*models.LoanPayment, error) {
	p, err := scanPayment(t.queryRow(ctx,
		`SELECT `+paymentColumns+` FROM loan_payments WHERE loan_id = ? AND installment_number = ?`+t.d.forUpdate,
		loanID, installmentNumber))
	if err != nil {
		return nil, getErr("loan payment", err)
	}
	return p, nil
}
