package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestActorCapabilities(t *testing.T) {
	bankID := uuid.New()
	personnel := &Actor{User: &User{ID: uuid.New()}, Role: PersonnelRole{Personnel: &BankPersonnel{BankID: bankID}}}
	provider := &Actor{User: &User{ID: uuid.New()}, Role: ProviderRole{Provider: &LoanProvider{ID: uuid.New(), BankID: bankID}}}
	customer := &Actor{User: &User{ID: uuid.New()}, Role: CustomerRole{Customer: &LoanCustomer{ID: uuid.New(), BankID: bankID}}}
	admin := &Actor{User: &User{ID: uuid.New()}, Role: AdminRole{}}

	tests := []struct {
		name  string
		actor *Actor
		cap   Capability
		want  bool
	}{
		{"admin manages banks", admin, CapManageBanks, true},
		{"personnel approves loans", personnel, CapApproveLoan, true},
		{"personnel cannot manage banks", personnel, CapManageBanks, false},
		{"provider disburses", provider, CapDisburseLoan, true},
		{"provider cannot approve", provider, CapApproveLoan, false},
		{"provider cannot pay", provider, CapPayInstallment, false},
		{"customer applies", customer, CapCreateLoan, true},
		{"customer pays", customer, CapPayInstallment, true},
		{"customer cannot approve applicants", customer, CapApproveApplicant, false},
		{"nil actor", nil, CapViewLoans, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.actor.Can(tt.cap))
		})
	}
}

func TestActorSuperuserHoldsEverything(t *testing.T) {
	a := &Actor{User: &User{IsSuperuser: true}, Role: CustomerRole{Customer: &LoanCustomer{}}}
	assert.True(t, a.Can(CapManageBanks))
}

func TestActorBankScope(t *testing.T) {
	bankID := uuid.New()
	customer := &Actor{Role: CustomerRole{Customer: &LoanCustomer{BankID: bankID}}}

	got, ok := customer.BankID()
	assert.True(t, ok)
	assert.Equal(t, bankID, got)
	assert.True(t, customer.InBank(bankID))
	assert.False(t, customer.InBank(uuid.New()))

	admin := &Actor{Role: AdminRole{}}
	_, ok = admin.BankID()
	assert.False(t, ok)
	assert.True(t, admin.InBank(uuid.New()))

	c, ok := customer.Customer()
	assert.True(t, ok)
	assert.Equal(t, bankID, c.BankID)
	_, ok = customer.Provider()
	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, customer.UserID())
}
