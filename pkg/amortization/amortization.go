// Package amortization computes fixed-payment loan quotes and installment
// schedules. All arithmetic is done in decimal; amounts are rounded to cents.
package amortization

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const centPlaces = 2

var (
	hundred      = decimal.NewFromInt(100)
	monthsInYear = decimal.NewFromInt(12)
	one          = decimal.NewFromInt(1)
)

var (
	ErrNegativePrincipal = errors.New("principal must not be negative")
	ErrNegativeRate      = errors.New("annual interest rate must not be negative")
	ErrInvalidDuration   = errors.New("duration in months must be positive")
)

// Terms are the inputs a quote is derived from.
type Terms struct {
	Principal          decimal.Decimal
	AnnualInterestRate decimal.Decimal // Percentage, e.g. 12 for 12%
	DurationInMonths   int
}

func (t Terms) validate() error {
	if t.Principal.IsNegative() {
		return ErrNegativePrincipal
	}
	if t.AnnualInterestRate.IsNegative() {
		return ErrNegativeRate
	}
	if t.DurationInMonths <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

// Quote is what a loan freezes at origination.
type Quote struct {
	MonthlyInterestRate  decimal.Decimal
	MonthlyPayableAmount decimal.Decimal
	TotalPayableAmount   decimal.Decimal
}

// Installment is one row of a generated schedule.
type Installment struct {
	Number             int
	Amount             decimal.Decimal
	DueDate            time.Time
	InterestPaid       decimal.Decimal
	PrincipalPaid      decimal.Decimal
	RemainingPrincipal decimal.Decimal
}

// MonthlyInterestRate converts an annual percentage into a monthly fraction.
func MonthlyInterestRate(annualInterestRate decimal.Decimal) decimal.Decimal {
	return annualInterestRate.Div(hundred).Div(monthsInYear)
}

// Calculate returns the monthly and total payable amounts for the terms.
//
//	payment = P * r * (1+r)^n / ((1+r)^n - 1)
//
// A zero rate would divide by zero, so it falls back to the straight-line
// payment P / n. The monthly payment is rounded up to the cent before the
// total is derived, so total == monthly * n holds exactly and the payments
// always cover the principal.
func Calculate(t Terms) (Quote, error) {
	if err := t.validate(); err != nil {
		return Quote{}, err
	}

	r := MonthlyInterestRate(t.AnnualInterestRate)
	n := decimal.NewFromInt(int64(t.DurationInMonths))

	var monthly decimal.Decimal
	if r.IsZero() {
		monthly = t.Principal.Div(n)
	} else {
		factor := one.Add(r).Pow(n)
		monthly = t.Principal.Mul(r).Mul(factor).Div(factor.Sub(one))
	}
	monthly = monthly.RoundCeil(centPlaces)

	return Quote{
		MonthlyInterestRate:  r,
		MonthlyPayableAmount: monthly,
		TotalPayableAmount:   monthly.Mul(n),
	}, nil
}

// Schedule splits each of the t.DurationInMonths payments of monthlyPayment
// into interest and principal. Installment k is due intervalDays*k days after
// start. The last installment retires whatever principal remains, so the
// principal parts always sum to t.Principal. Whenever the principal part is
// capped, the rest of the payment is booked as interest.
func Schedule(t Terms, monthlyPayment decimal.Decimal, start time.Time, intervalDays int) ([]Installment, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	if intervalDays <= 0 {
		intervalDays = 30
	}

	r := MonthlyInterestRate(t.AnnualInterestRate)
	remaining := t.Principal
	out := make([]Installment, 0, t.DurationInMonths)

	for month := 1; month <= t.DurationInMonths; month++ {
		interest := remaining.Mul(r).Round(centPlaces)
		principal := monthlyPayment.Sub(interest)

		if principal.IsNegative() {
			principal = decimal.Zero
			interest = monthlyPayment
		}
		if month == t.DurationInMonths || principal.GreaterThan(remaining) {
			principal = remaining
			interest = monthlyPayment.Sub(principal)
			if interest.IsNegative() {
				interest = decimal.Zero
			}
		}

		remaining = remaining.Sub(principal)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}

		out = append(out, Installment{
			Number:             month,
			Amount:             monthlyPayment,
			DueDate:            start.AddDate(0, 0, intervalDays*month),
			InterestPaid:       interest,
			PrincipalPaid:      principal,
			RemainingPrincipal: remaining,
		})
	}
	return out, nil
}
