package main

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/mcclellann/bankLoan/pkg/auth"
	"github.com/mcclellann/bankLoan/pkg/ledger"
	"go.uber.org/zap"
)

const uuidPattern = "[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}"

// Server holds the engine and the auth service behind the HTTP handlers.
type Server struct {
	ledger   *ledger.Ledger
	auth     *auth.Service
	logger   *zap.Logger
	validate *validator.Validate
}

func NewServer(l *ledger.Ledger, a *auth.Service, logger *zap.Logger) *Server {
	return &Server{ledger: l, auth: a, logger: logger, validate: newValidator()}
}

// Handler returns the routed handler wrapped in panic recovery and request logging.
func (s *Server) Handler() http.Handler {
	return s.recoverPanics(withActorHolder(s.logRequests(s.routes())))
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	id := "{id:" + uuidPattern + "}"
	loanID := "{loan_id:" + uuidPattern + "}"

	router.HandleFunc("/auth/login", s.loginHandler).Methods("POST")
	router.HandleFunc("/accounts/providers/register", s.registerProviderHandler).Methods("POST")
	router.HandleFunc("/accounts/customers/register", s.registerCustomerHandler).Methods("POST")

	api := router.NewRoute().Subrouter()
	api.Use(s.authenticate)

	api.HandleFunc("/accounts/personnel/register", s.registerPersonnelHandler).Methods("POST")

	api.HandleFunc("/banks", s.createBankHandler).Methods("POST")
	api.HandleFunc("/banks/providers/applications", s.listProviderApplicationsHandler).Methods("GET")
	api.HandleFunc("/banks/providers/applications/"+id+"/approve", s.approveProviderHandler).Methods("POST")
	api.HandleFunc("/banks/providers/applications/"+id+"/reject", s.rejectProviderHandler).Methods("POST")
	api.HandleFunc("/banks/customers/applications", s.listCustomerApplicationsHandler).Methods("GET")
	api.HandleFunc("/banks/customers/applications/"+id+"/approve", s.approveCustomerHandler).Methods("POST")
	api.HandleFunc("/banks/customers/applications/"+id+"/reject", s.rejectCustomerHandler).Methods("POST")
	api.HandleFunc("/banks/"+id, s.getBankHandler).Methods("GET")
	api.HandleFunc("/banks/"+id+"/branches", s.createBranchHandler).Methods("POST")

	api.HandleFunc("/loans/plans", s.createPlanHandler).Methods("POST")
	api.HandleFunc("/loans/plans", s.listPlansHandler).Methods("GET")
	api.HandleFunc("/loans/plans/"+id, s.deletePlanHandler).Methods("DELETE")

	api.HandleFunc("/loans/applications", s.listLoanApplicationsHandler).Methods("GET")
	api.HandleFunc("/loans/applications/"+id+"/approve", s.approveLoanHandler).Methods("POST")
	api.HandleFunc("/loans/applications/"+id+"/reject", s.rejectLoanHandler).Methods("POST")
	api.HandleFunc("/loans/applications/"+id+"/disburse", s.disburseLoanHandler).Methods("POST")

	api.HandleFunc("/loans", s.createLoanHandler).Methods("POST")
	api.HandleFunc("/loans", s.listLoansHandler).Methods("GET")
	api.HandleFunc("/loans/"+id, s.getLoanHandler).Methods("GET")

	api.HandleFunc("/loans/"+loanID+"/payments", s.listPaymentsHandler).Methods("GET")
	api.HandleFunc("/loans/"+loanID+"/payments/next-payment", s.nextPaymentHandler).Methods("GET")
	api.HandleFunc("/loans/"+loanID+"/payments/"+id+"/pay", s.payHandler).Methods("POST")
	api.HandleFunc("/loans/"+loanID+"/transfers", s.listTransfersHandler).Methods("GET")

	return router
}
