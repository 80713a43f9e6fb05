package annuity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/money"
)

func TestAnnualPayout(t *testing.T) {
	a := &Annuity{
		AnnualPayoutBase: money.FromUnits(200),
		AnnualInterest:   money.FromUnits(50),
	}
	require.Equal(t, money.FromUnits(250), a.AnnualPayout())
}

func TestRemainingDebt(t *testing.T) {
	a := &Annuity{
		TotalAmountToPayback: money.FromUnits(1050),
		TotalRepaid:          money.FromUnits(400),
	}
	require.Equal(t, money.FromUnits(650), a.RemainingDebt())
	require.False(t, a.FullyRepaid())

	a.TotalRepaid = money.FromUnits(1050)
	require.Equal(t, money.Amount(0), a.RemainingDebt())
	require.True(t, a.FullyRepaid())
}

func TestMatured(t *testing.T) {
	maturity := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
	a := &Annuity{Terms: Terms{MaturityDate: maturity}}

	require.False(t, a.Matured(maturity.Add(-time.Hour)))
	require.True(t, a.Matured(maturity.Add(time.Hour)))
}

func TestHolderIdentifiers(t *testing.T) {
	require.Equal(t, "ann:x:units", UnitsHolder("x"))
	require.Equal(t, "ann:x:escrow", EscrowHolder("x"))
	require.Equal(t, "ann:x:funds", FundsHolder("x"))
}
