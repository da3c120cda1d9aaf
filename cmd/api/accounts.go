package main

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/mcclellann/bankLoan/pkg/auth"
	"github.com/mcclellann/bankLoan/pkg/ledger"
	"github.com/shopspring/decimal"
)

type credentialsRequest struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (c credentialsRequest) credentials() auth.Credentials {
	return auth.Credentials{Username: c.Username, Email: c.Email, Password: c.Password}
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) registerProviderHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		credentialsRequest
		BankID             uuid.UUID       `json:"bank_id" validate:"required"`
		Name               string          `json:"name" validate:"required,max=255"`
		RegistrationNumber string          `json:"registration_number" validate:"max=64"`
		VATNumber          string          `json:"vat_number" validate:"max=64"`
		TotalFunds         decimal.Decimal `json:"total_funds"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	p, err := s.auth.RegisterProvider(r.Context(), auth.RegisterProviderInput{
		Credentials:        req.credentials(),
		BankID:             req.BankID,
		Name:               req.Name,
		RegistrationNumber: req.RegistrationNumber,
		VATNumber:          req.VATNumber,
		TotalFunds:         req.TotalFunds,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) registerCustomerHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		credentialsRequest
		BankID        uuid.UUID       `json:"bank_id" validate:"required"`
		SSN           string          `json:"ssn" validate:"required,max=32"`
		CreditScore   int             `json:"credit_score" validate:"gte=0,lte=900"`
		MonthlyIncome decimal.Decimal `json:"monthly_income"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	c, err := s.auth.RegisterCustomer(r.Context(), auth.RegisterCustomerInput{
		Credentials:   req.credentials(),
		BankID:        req.BankID,
		SSN:           req.SSN,
		CreditScore:   req.CreditScore,
		MonthlyIncome: req.MonthlyIncome,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) registerPersonnelHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		credentialsRequest
		BranchID uuid.UUID `json:"branch_id" validate:"required"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	p, err := s.auth.RegisterPersonnel(r.Context(), actorFrom(r.Context()), auth.RegisterPersonnelInput{
		Credentials: req.credentials(),
		BranchID:    req.BranchID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) createBankHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string          `json:"name" validate:"required,max=150"`
		TotalFunds     decimal.Decimal `json:"total_funds"`
		AvailableFunds decimal.Decimal `json:"available_funds"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	bank, err := s.ledger.CreateBank(r.Context(), actorFrom(r.Context()), ledger.CreateBankInput{
		Name:           req.Name,
		TotalFunds:     req.TotalFunds,
		AvailableFunds: req.AvailableFunds,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bank)
}

func (s *Server) getBankHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	bank, err := s.ledger.GetBank(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

func (s *Server) createBranchHandler(w http.ResponseWriter, r *http.Request) {
	bankID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Name        string `json:"name" validate:"required,max=150"`
		Code        string `json:"code" validate:"required,max=20"`
		Address     string `json:"address" validate:"max=255"`
		PhoneNumber string `json:"phone_number" validate:"max=20"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	branch, err := s.ledger.CreateBranch(r.Context(), actorFrom(r.Context()), bankID, ledger.CreateBranchInput{
		Name:        req.Name,
		Code:        req.Code,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, branch)
}

func (s *Server) listProviderApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	providers, err := s.ledger.ListProviderApplications(r.Context(), actorFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, providers)
}

func (s *Server) listCustomerApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	customers, err := s.ledger.ListCustomerApplications(r.Context(), actorFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) approveProviderHandler(w http.ResponseWriter, r *http.Request) {
	s.decideApplicant(w, r, "Provider approved", func(id uuid.UUID) error {
		_, err := s.ledger.ApproveProvider(r.Context(), actorFrom(r.Context()), id)
		return err
	})
}

func (s *Server) rejectProviderHandler(w http.ResponseWriter, r *http.Request) {
	s.decideApplicant(w, r, "Provider rejected", func(id uuid.UUID) error {
		_, err := s.ledger.RejectProvider(r.Context(), actorFrom(r.Context()), id)
		return err
	})
}

func (s *Server) approveCustomerHandler(w http.ResponseWriter, r *http.Request) {
	s.decideApplicant(w, r, "Customer approved", func(id uuid.UUID) error {
		_, err := s.ledger.ApproveCustomer(r.Context(), actorFrom(r.Context()), id)
		return err
	})
}

func (s *Server) rejectCustomerHandler(w http.ResponseWriter, r *http.Request) {
	s.decideApplicant(w, r, "Customer rejected", func(id uuid.UUID) error {
		_, err := s.ledger.RejectCustomer(r.Context(), actorFrom(r.Context()), id)
		return err
	})
}

func (s *Server) decideApplicant(w http.ResponseWriter, r *http.Request, message string, decide func(uuid.UUID) error) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := decide(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: message})
}
