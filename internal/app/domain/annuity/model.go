// Package annuity holds the fixed-income instrument models.
package annuity

import (
	"time"

	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/money"
)

// Status is the instrument lifecycle state.
type Status string

const (
	StatusListed    Status = "listed"    // issued, units on sale
	StatusActive    Status = "active"    // at least one unit sold, payouts accruing
	StatusDefaulted Status = "defaulted" // missed payout, collateral liquidated
	StatusSettled   Status = "settled"   // fully repaid, collateral released
)

// Terms are the issuer-declared economics, fixed at issuance.
type Terms struct {
	ContractType       string       `json:"contract_type,omitempty"`
	ContractRole       string       `json:"contract_role,omitempty"`
	ContractIdentifier string       `json:"contract_identifier,omitempty"`
	Currency           string       `json:"currency,omitempty"`
	Position           string       `json:"position,omitempty"`

	Principal    money.Amount `json:"principal"`
	RatePercent  int64        `json:"rate_percent"`
	IssuedAt     time.Time    `json:"issued_at"`
	MaturityDate time.Time    `json:"maturity_date"`
	TermYears    int64        `json:"term_years"`

	UnitPrice money.Amount `json:"unit_price"`
	Supply    money.Amount `json:"supply"`

	CollateralAssetID string       `json:"collateral_asset_id"`
	CollateralAmount  money.Amount `json:"collateral_amount"`
}

// Annuity is one issued instrument together with its running payout and
// repayment state. Balances (unsold units, escrowed collateral, collected
// funds) live in the ledger under the holder ids below, not on this record.
type Annuity struct {
	ID     string `json:"id"`
	Issuer string `json:"issuer"`
	Terms  Terms  `json:"terms"`

	Status      Status `json:"status"`
	UnitAssetID string `json:"unit_asset_id"`

	// AnnualPayoutBase is principal divided by the payout base divisor,
	// computed at issuance.
	AnnualPayoutBase money.Amount `json:"annual_payout_base"`
	AnnualInterest   money.Amount `json:"annual_interest"`

	LastPayout  time.Time `json:"last_payout"`
	PayoutsMade int64     `json:"payouts_made"`

	TotalAmountToPayback money.Amount `json:"total_amount_to_payback"`
	TotalRepaid          money.Amount `json:"total_repaid"`
	ProceedsWithdrawn    money.Amount `json:"proceeds_withdrawn"`

	CollateralReleased   bool `json:"collateral_released"`
	CollateralLiquidated bool `json:"collateral_liquidated"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AnnualPayout is the per-period claim amount: base plus interest.
func (a *Annuity) AnnualPayout() money.Amount {
	return a.AnnualPayoutBase + a.AnnualInterest
}

// RemainingDebt is what the issuer still owes against the repayment target.
func (a *Annuity) RemainingDebt() money.Amount {
	if a.TotalRepaid >= a.TotalAmountToPayback {
		return 0
	}
	return a.TotalAmountToPayback - a.TotalRepaid
}

// FullyRepaid reports whether the issuer covered the whole repayment target.
func (a *Annuity) FullyRepaid() bool {
	return a.TotalRepaid >= a.TotalAmountToPayback
}

// Matured reports whether the maturity date has passed at the given time.
func (a *Annuity) Matured(now time.Time) bool {
	return !now.Before(a.Terms.MaturityDate)
}

// UnitsHolder returns the ledger holder id of the unsold unit inventory.
func UnitsHolder(annuityID string) string { return "ann:" + annuityID + ":units" }

// EscrowHolder returns the ledger holder id of the collateral escrow.
func EscrowHolder(annuityID string) string { return "ann:" + annuityID + ":escrow" }

// FundsHolder returns the ledger holder id of the collected purchase funds.
func FundsHolder(annuityID string) string { return "ann:" + annuityID + ":funds" }
