package models

import "github.com/google/uuid"

type Capability string

const (
	CapManageBanks      Capability = "manage_banks"
	CapManagePersonnel  Capability = "manage_personnel"
	CapManagePlans      Capability = "manage_plans"
	CapViewBank         Capability = "view_bank"
	CapApproveApplicant Capability = "approve_applicant"
	CapRejectApplicant  Capability = "reject_applicant"
	CapCreateLoan       Capability = "create_loan"
	CapViewLoans        Capability = "view_loans"
	CapApproveLoan      Capability = "approve_loan"
	CapRejectLoan       Capability = "reject_loan"
	CapDisburseLoan     Capability = "disburse_loan"
	CapPayInstallment   Capability = "pay_installment"
)

var roleCapabilities = map[Role][]Capability{
	RoleBankPersonnel: {
		CapViewBank, CapManagePlans, CapApproveApplicant, CapRejectApplicant,
		CapViewLoans, CapApproveLoan, CapRejectLoan, CapDisburseLoan, CapPayInstallment,
	},
	RoleLoanProvider: {CapViewLoans, CapDisburseLoan},
	RoleLoanCustomer: {CapCreateLoan, CapViewLoans, CapPayInstallment},
}

// ActorRole is the role-specific half of an authenticated actor. Exactly one
// of AdminRole, PersonnelRole, ProviderRole or CustomerRole.
type ActorRole interface {
	Role() Role
	isActorRole()
}

type AdminRole struct{}

type PersonnelRole struct {
	Personnel *BankPersonnel
}

type ProviderRole struct {
	Provider *LoanProvider
}

type CustomerRole struct {
	Customer *LoanCustomer
}

func (AdminRole) Role() Role     { return RoleAdmin }
func (PersonnelRole) Role() Role { return RoleBankPersonnel }
func (ProviderRole) Role() Role  { return RoleLoanProvider }
func (CustomerRole) Role() Role  { return RoleLoanCustomer }

func (AdminRole) isActorRole()     {}
func (PersonnelRole) isActorRole() {}
func (ProviderRole) isActorRole()  {}
func (CustomerRole) isActorRole()  {}

// Actor is the authenticated caller of an engine operation.
type Actor struct {
	User *User
	Role ActorRole
}

// Can reports whether the actor holds the capability. Admins and superusers
// hold every capability.
func (a *Actor) Can(c Capability) bool {
	if a == nil || a.Role == nil {
		return false
	}
	if _, ok := a.Role.(AdminRole); ok {
		return true
	}
	if a.User != nil && a.User.IsSuperuser {
		return true
	}
	for _, held := range roleCapabilities[a.Role.Role()] {
		if held == c {
			return true
		}
	}
	return false
}

// BankID returns the bank the actor is scoped to. Admins are unscoped.
func (a *Actor) BankID() (uuid.UUID, bool) {
	if a == nil {
		return uuid.Nil, false
	}
	switch r := a.Role.(type) {
	case PersonnelRole:
		return r.Personnel.BankID, true
	case ProviderRole:
		return r.Provider.BankID, true
	case CustomerRole:
		return r.Customer.BankID, true
	}
	return uuid.Nil, false
}

// InBank reports whether the actor may act on entities of bankID.
func (a *Actor) InBank(bankID uuid.UUID) bool {
	if a == nil || a.Role == nil {
		return false
	}
	if _, ok := a.Role.(AdminRole); ok {
		return true
	}
	scoped, ok := a.BankID()
	return ok && scoped == bankID
}

// Provider returns the provider record if the actor is a loan provider.
func (a *Actor) Provider() (*LoanProvider, bool) {
	if a == nil {
		return nil, false
	}
	r, ok := a.Role.(ProviderRole)
	if !ok {
		return nil, false
	}
	return r.Provider, true
}

// Customer returns the customer record if the actor is a loan customer.
func (a *Actor) Customer() (*LoanCustomer, bool) {
	if a == nil {
		return nil, false
	}
	r, ok := a.Role.(CustomerRole)
	if !ok {
		return nil, false
	}
	return r.Customer, true
}

// UserID returns the id of the actor's user, or uuid.Nil.
func (a *Actor) UserID() uuid.UUID {
	if a == nil || a.User == nil {
		return uuid.Nil
	}
	return a.User.ID
}
