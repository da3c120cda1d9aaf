package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcclellann/bankLoan/pkg/auth"
	"github.com/mcclellann/bankLoan/pkg/config"
	"github.com/mcclellann/bankLoan/pkg/ledger"
	"github.com/mcclellann/bankLoan/pkg/logger"
	"github.com/mcclellann/bankLoan/pkg/models"
	"github.com/mcclellann/bankLoan/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestServer(t *testing.T) http.Handler {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = auth.Bootstrap(context.Background(), s, config.BootstrapConfig{
		AdminUsername: "admin", AdminEmail: "admin@localhost", AdminPassword: "admin-password",
	}, zap.NewNop())
	require.NoError(t, err)

	tokens := auth.NewTokenManager("bankloan", "bankloan-api", "0123456789abcdef0123456789abcdef", time.Hour)
	l := ledger.NewLedger(s, zap.NewNop(), ledger.DefaultOptions())
	return NewServer(l, auth.NewService(s, tokens, zap.NewNop()), zap.NewNop()).Handler()
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func login(t *testing.T, h http.Handler, username, password string) string {
	t.Helper()
	rr := call(t, h, "POST", "/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decodeBody[auth.LoginResult](t, rr).AccessToken
}

func TestAPI_LoanLifecycle(t *testing.T) {
	h := setupTestServer(t)
	admin := login(t, h, "admin", "admin-password")

	rr := call(t, h, "POST", "/banks", admin, map[string]any{"name": "First Bank"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	bank := decodeBody[models.Bank](t, rr)

	rr = call(t, h, "POST", "/banks/"+bank.ID.String()+"/branches", admin, map[string]any{"name": "Main", "code": "001"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	branch := decodeBody[models.Branch](t, rr)

	rr = call(t, h, "POST", "/accounts/personnel/register", admin, map[string]any{
		"username": "teller", "password": "teller-password", "branch_id": branch.ID,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	staff := login(t, h, "teller", "teller-password")

	rr = call(t, h, "POST", "/accounts/providers/register", "", map[string]any{
		"username": "capital", "password": "capital-password", "bank_id": bank.ID,
		"name": "Capital Co", "total_funds": "50000",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	provider := decodeBody[models.LoanProvider](t, rr)
	providerToken := login(t, h, "capital", "capital-password")

	rr = call(t, h, "POST", "/accounts/customers/register", "", map[string]any{
		"username": "carol", "password": "carol-password", "bank_id": bank.ID,
		"ssn": "111-22-3333", "credit_score": 700, "monthly_income": "4000",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	customer := decodeBody[models.LoanCustomer](t, rr)
	customerToken := login(t, h, "carol", "carol-password")

	rr = call(t, h, "POST", "/loans/plans", staff, map[string]any{
		"annual_interest_rate": "12", "minimum_amount": "1000", "maximum_amount": "20000", "duration_in_months": 12,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	plan := decodeBody[models.LoanPlan](t, rr)

	rr = call(t, h, "POST", "/banks/providers/applications/"+provider.ID.String()+"/approve", staff, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	application := map[string]any{"plan_id": plan.ID, "provider_id": provider.ID, "amount": "12000", "purpose": "car"}
	rr = call(t, h, "POST", "/loans", customerToken, application)
	require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
	failure := decodeBody[errorBody](t, rr)
	assert.Equal(t, "validation_error", failure.Code)
	assert.Equal(t, "Customer is not approved", failure.Message)

	rr = call(t, h, "POST", "/banks/customers/applications/"+customer.ID.String()+"/approve", customerToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = call(t, h, "POST", "/banks/customers/applications/"+customer.ID.String()+"/approve", staff, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = call(t, h, "POST", "/loans", customerToken, application)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	loan := decodeBody[models.Loan](t, rr)
	assert.True(t, decimal.RequireFromString("1066.19").Equal(loan.MonthlyPayableAmount))
	assert.True(t, decimal.RequireFromString("12794.28").Equal(loan.TotalPayableAmount))
	loanPath := "/loans/applications/" + loan.ID.String()

	rr = call(t, h, "POST", loanPath+"/disburse", providerToken, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = call(t, h, "GET", "/loans/"+loan.ID.String()+"/payments/next-payment", customerToken, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "illegal_transition", decodeBody[errorBody](t, rr).Code)

	rr = call(t, h, "GET", "/loans/applications", staff, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]models.Loan](t, rr), 1)

	rr = call(t, h, "POST", loanPath+"/approve", staff, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = call(t, h, "POST", loanPath+"/disburse", providerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = call(t, h, "POST", loanPath+"/disburse", providerToken, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "illegal_transition", decodeBody[errorBody](t, rr).Code)

	paymentsPath := "/loans/" + loan.ID.String() + "/payments"
	rr = call(t, h, "GET", paymentsPath+"/next-payment", customerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	next := decodeBody[models.LoanPayment](t, rr)
	assert.Equal(t, 1, next.InstallmentNumber)
	assert.True(t, decimal.RequireFromString("946.19").Equal(next.PrincipalPaid))

	rr = call(t, h, "POST", paymentsPath+"/"+next.ID.String()+"/pay", customerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, decodeBody[models.LoanPayment](t, rr).IsPaid)

	rr = call(t, h, "POST", paymentsPath+"/"+next.ID.String()+"/pay", customerToken, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "already_paid", decodeBody[errorBody](t, rr).Code)

	rr = call(t, h, "GET", paymentsPath, customerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]models.LoanPayment](t, rr), 12)

	rr = call(t, h, "GET", "/loans/"+loan.ID.String()+"/transfers", staff, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]models.FundTransfer](t, rr), 2)

	rr = call(t, h, "GET", "/banks/"+bank.ID.String(), staff, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeBody[models.Bank](t, rr)
	assert.True(t, decimal.RequireFromString("12000").Equal(got.TotalFunds))
	assert.True(t, decimal.RequireFromString("120").Equal(got.InterestEarned))
}

func TestAPI_UnknownLoan(t *testing.T) {
	h := setupTestServer(t)
	admin := login(t, h, "admin", "admin-password")

	rr := call(t, h, "GET", "/loans/00000000-0000-0000-0000-000000000001/payments/next-payment", admin, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPI_Authentication(t *testing.T) {
	h := setupTestServer(t)

	rr := call(t, h, "GET", "/loans", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = call(t, h, "GET", "/loans", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = call(t, h, "POST", "/auth/login", "", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	admin := login(t, h, "admin", "admin-password")
	rr = call(t, h, "GET", "/loans", admin, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAPI_RequestValidation(t *testing.T) {
	h := setupTestServer(t)
	admin := login(t, h, "admin", "admin-password")

	rr := call(t, h, "POST", "/banks", admin, map[string]any{"name": ""})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeBody[errorBody](t, rr)
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "name", body.Fields[0].Field)

	rr = call(t, h, "POST", "/banks", admin, map[string]any{"name": "x", "unexpected": true})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = call(t, h, "GET", "/loans/not-a-uuid", admin, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLoggerConfig(t *testing.T) {
	dev := &config.Config{App: config.AppConfig{Env: "development"}}
	assert.Equal(t, logger.DefaultConfig(), loggerConfig(dev))

	prod := &config.Config{App: config.AppConfig{Env: "production"}, Log: config.LogConfig{Level: "warn"}}
	lc := loggerConfig(prod)
	assert.Equal(t, "json", lc.Format)
	assert.Equal(t, "warn", lc.Level)
	assert.Equal(t, "stdout", lc.Output)
}
