package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mcclellann/bankLoan/pkg/models"
)

type scanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, username, email, password_hash, role, is_superuser, is_active, created_at`

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsSuperuser, &u.IsActive, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user.
func (s *queries) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Role, user.IsSuperuser, user.IsActive, user.CreatedAt,
	)
	if err != nil {
		return insertErr("user", err)
	}
	return nil
}

// GetUser retrieves a user by its ID.
func (s *queries) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, getErr("user", err)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by its login name.
func (s *queries) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil {
		return nil, getErr("user", err)
	}
	return u, nil
}

const bankColumns = `id, name, total_funds, available_funds, interest_earned, outstanding_principal, created_at, updated_at`

func scanBank(row scanner) (*models.Bank, error) {
	var b models.Bank
	if err := row.Scan(&b.ID, &b.Name, &b.TotalFunds, &b.AvailableFunds, &b.InterestEarned, &b.OutstandingPrincipal, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBank inserts a new bank.
func (s *queries) CreateBank(ctx context.Context, bank *models.Bank) error {
	_, err := s.exec(ctx,
		`INSERT INTO banks (`+bankColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		bank.ID, bank.Name, bank.TotalFunds, bank.AvailableFunds, bank.InterestEarned, bank.OutstandingPrincipal, bank.CreatedAt, bank.UpdatedAt,
	)
	if err != nil {
		return insertErr("bank", err)
	}
	return nil
}

// GetBank retrieves a bank by its ID.
func (s *queries) GetBank(ctx context.Context, id uuid.UUID) (*models.Bank, error) {
	b, err := scanBank(s.queryRow(ctx, `SELECT `+bankColumns+` FROM banks WHERE id = ?`, id))
	if err != nil {
		return nil, getErr("bank", err)
	}
	return b, nil
}

// UpdateBank writes a bank's balances.
func (s *queries) UpdateBank(ctx context.Context, bank *models.Bank) error {
	return s.execOne(ctx, "bank",
		`UPDATE banks SET name = ?, total_funds = ?, available_funds = ?, interest_earned = ?, outstanding_principal = ?, updated_at = ? WHERE id = ?`,
		bank.Name, bank.TotalFunds, bank.AvailableFunds, bank.InterestEarned, bank.OutstandingPrincipal, bank.UpdatedAt, bank.ID,
	)
}

// CreateBranch inserts a new branch.
func (s *queries) CreateBranch(ctx context.Context, branch *models.Branch) error {
	_, err := s.exec(ctx,
		`INSERT INTO branches (id, bank_id, name, code, address, phone_number, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		branch.ID, branch.BankID, branch.Name, branch.Code, branch.Address, branch.PhoneNumber, branch.CreatedAt,
	)
	if err != nil {
		return insertErr("branch", err)
	}
	return nil
}

// GetBranch retrieves a branch by its ID.
func (s *queries) GetBranch(ctx context.Context, id uuid.UUID) (*models.Branch, error) {
	var b models.Branch
	err := s.queryRow(ctx,
		`SELECT id, bank_id, name, code, address, phone_number, created_at FROM branches WHERE id = ?`, id,
	).Scan(&b.ID, &b.BankID, &b.Name, &b.Code, &b.Address, &b.PhoneNumber, &b.CreatedAt)
	if err != nil {
		return nil, getErr("branch", err)
	}
	return &b, nil
}

// CreatePersonnel inserts a bank personnel record.
func (s *queries) CreatePersonnel(ctx context.Context, p *models.BankPersonnel) error {
	_, err := s.exec(ctx,
		`INSERT INTO bank_personnel (id, user_id, branch_id, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.UserID, p.BranchID, p.CreatedAt,
	)
	if err != nil {
		return insertErr("bank personnel", err)
	}
	return nil
}

// GetPersonnelByUser retrieves the personnel record of a user, with the bank
// resolved through the branch.
func (s *queries) GetPersonnelByUser(ctx context.Context, userID uuid.UUID) (*models.BankPersonnel, error) {
	var p models.BankPersonnel
	err := s.queryRow(ctx,
		`SELECT p.id, p.user_id, p.branch_id, b.bank_id, p.created_at
		FROM bank_personnel p JOIN branches b ON b.id = p.branch_id
		WHERE p.user_id = ?`, userID,
	).Scan(&p.ID, &p.UserID, &p.BranchID, &p.BankID, &p.CreatedAt)
	if err != nil {
		return nil, getErr("bank personnel", err)
	}
	return &p, nil
}

const providerColumns = `id, user_id, bank_id, name, registration_number, vat_number, total_funds, status, created_at, updated_at`

func scanProvider(row scanner) (*models.LoanProvider, error) {
	var p models.LoanProvider
	if err := row.Scan(&p.ID, &p.UserID, &p.BankID, &p.Name, &p.RegistrationNumber, &p.VATNumber, &p.TotalFunds, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProvider inserts a loan provider applicant.
func (s *queries) CreateProvider(ctx context.Context, p *models.LoanProvider) error {
	_, err := s.exec(ctx,
		`INSERT INTO loan_providers (`+providerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.BankID, p.Name, p.RegistrationNumber, p.VATNumber, p.TotalFunds, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return insertErr("loan provider", err)
	}
	return nil
}

// GetProvider retrieves a loan provider by its ID.
func (s *queries) GetProvider(ctx context.Context, id uuid.UUID) (*models.LoanProvider, error) {
	p, err := scanProvider(s.queryRow(ctx, `SELECT `+providerColumns+` FROM loan_providers WHERE id = ?`, id))
	if err != nil {
		return nil, getErr("loan provider", err)
	}
	return p, nil
}

// GetProviderByUser retrieves the loan provider record of a user.
func (s *queries) GetProviderByUser(ctx context.Context, userID uuid.UUID) (*models.LoanProvider, error) {
	p, err := scanProvider(s.queryRow(ctx, `SELECT `+providerColumns+` FROM loan_providers WHERE user_id = ?`, userID))
	if err != nil {
		return nil, getErr("loan provider", err)
	}
	return p, nil
}

// UpdateProvider writes a provider's status and funds.
func (s *queries) UpdateProvider(ctx context.Context, p *models.LoanProvider) error {
	return s.execOne(ctx, "loan provider",
		`UPDATE loan_providers SET name = ?, registration_number = ?, vat_number = ?, total_funds = ?, status = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.RegistrationNumber, p.VATNumber, p.TotalFunds, p.Status, p.UpdatedAt, p.ID,
	)
}

// ListProviders lists loan providers oldest first.
func (s *queries) ListProviders(ctx context.Context, f ApplicantFilter) ([]*models.LoanProvider, error) {
	where, args := applicantWhere(f)
	rows, err := s.query(ctx, `SELECT `+providerColumns+` FROM loan_providers`+where+` ORDER BY created_at ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list loan providers: %w", err)
	}
	defer rows.Close()

	var out []*models.LoanProvider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan provider row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return out, nil
}

const customerColumns = `id, user_id, bank_id, ssn, credit_score, monthly_income, status, created_at, updated_at`

func scanCustomer(row scanner) (*models.LoanCustomer, error) {
	var c models.LoanCustomer
	if err := row.Scan(&c.ID, &c.UserID, &c.BankID, &c.SSN, &c.CreditScore, &c.MonthlyIncome, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCustomer inserts a loan customer applicant.
func (s *queries) CreateCustomer(ctx context.Context, c *models.LoanCustomer) error {
	_, err := s.exec(ctx,
		`INSERT INTO loan_customers (`+customerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.BankID, c.SSN, c.CreditScore, c.MonthlyIncome, c.Status, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return insertErr("loan customer", err)
	}
	return nil
}

// GetCustomer retrieves a loan customer by its ID.
func (s *queries) GetCustomer(ctx context.Context, id uuid.UUID) (*models.LoanCustomer, error) {
	c, err := scanCustomer(s.queryRow(ctx, `SELECT `+customerColumns+` FROM loan_customers WHERE id = ?`, id))
	if err != nil {
		return nil, getErr("loan customer", err)
	}
	return c, nil
}

// GetCustomerByUser retrieves the loan customer record of a user.
func (s *queries) GetCustomerByUser(ctx context.Context, userID uuid.UUID) (*models.LoanCustomer, error) {
	c, err := scanCustomer(s.queryRow(ctx, `SELECT `+customerColumns+` FROM loan_customers WHERE user_id = ?`, userID))
	if err != nil {
		return nil, getErr("loan customer", err)
	}
	return c, nil
}

// UpdateCustomer writes a customer's status and profile.
func (s *queries) UpdateCustomer(ctx context.Context, c *models.LoanCustomer) error {
	return s.execOne(ctx, "loan customer",
		`UPDATE loan_customers SET credit_score = ?, monthly_income = ?, status = ?, updated_at = ? WHERE id = ?`,
		c.CreditScore, c.MonthlyIncome, c.Status, c.UpdatedAt, c.ID,
	)
}

// ListCustomers lists loan customers oldest first.
func (s *queries) ListCustomers(ctx context.Context, f ApplicantFilter) ([]*models.LoanCustomer, error) {
	where, args := applicantWhere(f)
	rows, err := s.query(ctx, `SELECT `+customerColumns+` FROM loan_customers`+where+` ORDER BY created_at ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list loan customers: %w", err)
	}
	defer rows.Close()

	var out []*models.LoanCustomer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan customer row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return out, nil
}

func applicantWhere(f ApplicantFilter) (string, []any) {
	var conds []string
	var args []any
	if f.BankID != uuid.Nil {
		conds = append(conds, "bank_id = ?")
		args = append(args, f.BankID)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// LockBank reads a bank and holds its row for the rest of the transaction.
func (t *sqlTx) LockBank(ctx context.Context, id uuid.UUID) (*models.Bank, error) {
	b, err := scanBank(t.queryRow(ctx, `SELECT `+bankColumns+` FROM banks WHERE id = ?`+t.d.forUpdate, id))
	if err != nil {
		return nil, getErr("bank", err)
	}
	return b, nil
}

// LockProvider reads a provider and holds its row for the rest of the transaction.
func (t *sqlTx) LockProvider(ctx context.Context, id uuid.UUID) (*models.LoanProvider, error) {
	p, err := scanProvider(t.queryRow(ctx, `SELECT `+providerColumns+` FROM loan_providers WHERE id = ?`+t.d.forUpdate, id))
	if err != nil {
		return nil, getErr("loan provider", err)
	}
	return p, nil
}

// LockCustomer reads a customer and holds its row for the rest of the transaction.
func (t *sqlTx) LockCustomer(ctx context.Context, id uuid.UUID) (*models.LoanCustomer, error) {
	c, err := scanCustomer(t.queryRow(ctx, `SELECT `+customerColumns+` FROM loan_customers WHERE id = ?`+t.d.forUpdate, id))
	if err != nil {
		return nil, getErr("loan customer", err)
	}
	return c, nil
}
