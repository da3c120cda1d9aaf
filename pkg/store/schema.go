package store

// schema is shared by both drivers. Decimals are TEXT so no precision is lost;
// TIMESTAMP and BOOLEAN are declared so go-sqlite3 converts them on scan.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL,
	is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS banks (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	total_funds TEXT NOT NULL DEFAULT '0',
	available_funds TEXT NOT NULL DEFAULT '0',
	interest_earned TEXT NOT NULL DEFAULT '0',
	outstanding_principal TEXT NOT NULL DEFAULT '0',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS branches (
	id TEXT PRIMARY KEY,
	bank_id TEXT NOT NULL REFERENCES banks(id),
	name TEXT NOT NULL,
	code TEXT NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	phone_number TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS bank_personnel (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL UNIQUE REFERENCES users(id),
	branch_id TEXT NOT NULL REFERENCES branches(id),
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS loan_providers (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL UNIQUE REFERENCES users(id),
	bank_id TEXT NOT NULL REFERENCES banks(id),
	name TEXT NOT NULL,
	registration_number TEXT NOT NULL DEFAULT '',
	vat_number TEXT NOT NULL DEFAULT '',
	total_funds TEXT NOT NULL DEFAULT '0',
	status TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS loan_customers (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL UNIQUE REFERENCES users(id),
	bank_id TEXT NOT NULL REFERENCES banks(id),
	ssn TEXT NOT NULL UNIQUE,
	credit_score INTEGER NOT NULL DEFAULT 0,
	monthly_income TEXT NOT NULL DEFAULT '0',
	status TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS loan_plans (
	id TEXT PRIMARY KEY,
	bank_id TEXT NOT NULL REFERENCES banks(id),
	annual_interest_rate TEXT NOT NULL,
	minimum_amount TEXT NOT NULL,
	maximum_amount TEXT NOT NULL,
	duration_in_months INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL,
	deleted_at TIMESTAMP
);
CREATE TABLE IF NOT EXISTS loans (
	id TEXT PRIMARY KEY,
	purpose TEXT NOT NULL DEFAULT '',
	amount TEXT NOT NULL,
	plan_id TEXT NOT NULL REFERENCES loan_plans(id),
	provider_id TEXT NOT NULL REFERENCES loan_providers(id),
	customer_id TEXT NOT NULL REFERENCES loan_customers(id),
	bank_id TEXT NOT NULL REFERENCES banks(id),
	status TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT FALSE,
	is_amortized BOOLEAN NOT NULL DEFAULT FALSE,
	monthly_payable_amount TEXT NOT NULL,
	total_payable_amount TEXT NOT NULL,
	approved_at TIMESTAMP,
	disbursed_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_loans_bank ON loans(bank_id);
CREATE INDEX IF NOT EXISTS idx_loans_customer ON loans(customer_id);
CREATE INDEX IF NOT EXISTS idx_loans_provider ON loans(provider_id);
CREATE TABLE IF NOT EXISTS loan_payments (
	id TEXT PRIMARY KEY,
	loan_id TEXT NOT NULL REFERENCES loans(id),
	installment_number INTEGER NOT NULL,
	amount TEXT NOT NULL,
	due_date TIMESTAMP NOT NULL,
	is_paid BOOLEAN NOT NULL DEFAULT FALSE,
	paid_at TIMESTAMP,
	interest_paid TEXT NOT NULL DEFAULT '0',
	principal_paid TEXT NOT NULL DEFAULT '0',
	remaining_principal TEXT NOT NULL DEFAULT '0',
	created_at TIMESTAMP NOT NULL,
	UNIQUE (loan_id, installment_number)
);
CREATE INDEX IF NOT EXISTS idx_loan_payments_loan ON loan_payments(loan_id);
CREATE TABLE IF NOT EXISTS fund_transfers (
	id TEXT PRIMARY KEY,
	loan_id TEXT NOT NULL REFERENCES loans(id),
	kind TEXT NOT NULL,
	amount TEXT NOT NULL,
	interest TEXT NOT NULL DEFAULT '0',
	principal TEXT NOT NULL DEFAULT '0',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fund_transfers_loan ON fund_transfers(loan_id);
`
