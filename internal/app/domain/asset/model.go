// Package asset holds the ledger-level models: asset definitions, holdings
// and the journal entries that move value between holders.
package asset

import (
	"time"

	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/money"
)

// Kind classifies an asset and fixes its divisibility.
type Kind string

const (
	KindCurrency   Kind = "currency"   // fractional, the settlement asset
	KindShare      Kind = "share"      // fractional governance token
	KindUnit       Kind = "unit"       // whole-only annuity unit
	KindBadge      Kind = "badge"      // whole-only admin badge
	KindCollateral Kind = "collateral" // whole-only escrowed collateral marker
)

// Divisible reports whether holdings of the kind may be fractional.
func (k Kind) Divisible() bool {
	return k == KindCurrency || k == KindShare
}

// Asset is one ledger asset definition.
type Asset struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	OrgID     string    `json:"org_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Holding is the balance of one holder in one asset.
type Holding struct {
	HolderID  string       `json:"holder_id"`
	AssetID   string       `json:"asset_id"`
	Amount    money.Amount `json:"amount"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Movement is one leg of a journal entry. Positive amounts credit the
// holder, negative amounts debit it.
type Movement struct {
	HolderID string       `json:"holder_id"`
	AssetID  string       `json:"asset_id"`
	Amount   money.Amount `json:"amount"`
}

// JournalEntry records one atomic batch of movements with its cause.
type JournalEntry struct {
	ID        string     `json:"id"`
	Reason    string     `json:"reason"`
	Reference string     `json:"reference,omitempty"`
	Movements []Movement `json:"movements"`
	CreatedAt time.Time  `json:"created_at"`
}

// MemberHolder returns the ledger holder id of a member identity.
func MemberHolder(memberID string) string { return "member:" + memberID }
