package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/mcclellann/bankLoan/pkg/ledger"
	"github.com/mcclellann/bankLoan/pkg/models"
	"github.com/shopspring/decimal"
)

func (s *Server) createPlanHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BankID             uuid.UUID       `json:"bank_id"`
		AnnualInterestRate decimal.Decimal `json:"annual_interest_rate"`
		MinimumAmount      decimal.Decimal `json:"minimum_amount"`
		MaximumAmount      decimal.Decimal `json:"maximum_amount"`
		DurationInMonths   int             `json:"duration_in_months" validate:"required,gte=1,lte=600"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	plan, err := s.ledger.CreatePlan(r.Context(), actorFrom(r.Context()), ledger.CreatePlanInput{
		BankID:             req.BankID,
		AnnualInterestRate: req.AnnualInterestRate,
		MinimumAmount:      req.MinimumAmount,
		MaximumAmount:      req.MaximumAmount,
		DurationInMonths:   req.DurationInMonths,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) listPlansHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var bankID uuid.UUID
	if raw := q.Get("bank_id"); raw != "" {
		var err error
		if bankID, err = uuid.Parse(raw); err != nil {
			writeFail(w, http.StatusBadRequest, "invalid_id", "Invalid bank id", nil)
			return
		}
	}
	includeDeleted := false
	if raw := q.Get("include_deleted"); raw != "" {
		var err error
		if includeDeleted, err = strconv.ParseBool(raw); err != nil {
			writeFail(w, http.StatusBadRequest, "invalid_query", "include_deleted must be a boolean", nil)
			return
		}
	}
	plans, err := s.ledger.ListPlans(r.Context(), actorFrom(r.Context()), bankID, includeDeleted)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) deletePlanHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.ledger.DeletePlan(r.Context(), actorFrom(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlanID     uuid.UUID       `json:"plan_id" validate:"required"`
		ProviderID uuid.UUID       `json:"provider_id" validate:"required"`
		CustomerID uuid.UUID       `json:"customer_id"`
		Amount     decimal.Decimal `json:"amount"`
		Purpose    string          `json:"purpose" validate:"max=255"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	loan, err := s.ledger.CreateLoan(r.Context(), actorFrom(r.Context()), ledger.CreateLoanInput{
		PlanID:     req.PlanID,
		ProviderID: req.ProviderID,
		CustomerID: req.CustomerID,
		Amount:     req.Amount,
		Purpose:    req.Purpose,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (s *Server) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	loans, err := s.ledger.ListLoans(r.Context(), actorFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (s *Server) listLoanApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	loans, err := s.ledger.ListLoanApplications(r.Context(), actorFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (s *Server) getLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	loan, err := s.ledger.GetLoan(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

type loanTransition func(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Loan, error)

func (s *Server) transition(w http.ResponseWriter, r *http.Request, message string, fn loanTransition) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	loan, err := fn(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string       `json:"message"`
		Loan    *models.Loan `json:"loan"`
	}{message, loan})
}

func (s *Server) approveLoanHandler(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "Loan approved", s.ledger.ApproveLoan)
}

func (s *Server) rejectLoanHandler(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "Loan rejected", s.ledger.RejectLoan)
}

func (s *Server) disburseLoanHandler(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "Loan disbursed", s.ledger.DisburseLoan)
}

func (s *Server) listPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "loan_id")
	if !ok {
		return
	}
	payments, err := s.ledger.ListPayments(r.Context(), actorFrom(r.Context()), loanID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (s *Server) nextPaymentHandler(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "loan_id")
	if !ok {
		return
	}
	payment, err := s.ledger.NextPayment(r.Context(), actorFrom(r.Context()), loanID)
	if errors.Is(err, ledger.ErrNoMorePayments) {
		writeJSON(w, http.StatusOK, messageBody{Message: "No more payments"})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (s *Server) payHandler(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "loan_id")
	if !ok {
		return
	}
	paymentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	payment, err := s.ledger.PayPayment(r.Context(), actorFrom(r.Context()), loanID, paymentID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (s *Server) listTransfersHandler(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "loan_id")
	if !ok {
		return
	}
	transfers, err := s.ledger.ListTransfers(r.Context(), actorFrom(r.Context()), loanID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transfers)
}
