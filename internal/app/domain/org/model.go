// Package org holds the organization-level domain models.
package org

import (
	"time"

	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/money"
)

// PolicyMode gates who may create a proposal. Fixed at organization creation.
type PolicyMode string

const (
	PolicyOpen          PolicyMode = "open"           // any governance-token holder
	PolicyThresholdHeld PolicyMode = "threshold_held" // holders above a minimum amount
	PolicyAdminOnly     PolicyMode = "admin_only"     // owner-badge holder only
)

// CreationPolicy combines the mode with the threshold used by ThresholdHeld.
type CreationPolicy struct {
	Mode      PolicyMode   `json:"mode"`
	Threshold money.Amount `json:"threshold,omitempty"`
}

// Organization is one deployed DAO: its rights tokens, share pricing and the
// identifiers of its ledger holdings.
type Organization struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	IconURL     string   `json:"icon_url,omitempty"`
	TokenImage  string   `json:"token_image,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Purpose     string   `json:"purpose,omitempty"`

	Owner             string `json:"owner"`               // creator identity, holds the owner badge
	GovernanceTokenID string `json:"governance_token_id"` // fungible voting share asset
	OwnerBadgeID      string `json:"owner_badge_id"`      // indivisible admin badge asset

	TokenPrice   money.Amount `json:"token_price"`
	BuyBackPrice money.Amount `json:"buy_back_price"`
	TokenSupply  money.Amount `json:"token_supply"`

	CreationPolicy CreationPolicy `json:"proposal_creation_policy"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Contribution is the cumulative amount an identity has donated to the
// organization treasury. Append-only accounting.
type Contribution struct {
	OrgID       string       `json:"org_id"`
	Contributor string       `json:"contributor"`
	Total       money.Amount `json:"total"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TreasuryHolder returns the ledger holder id of the organization treasury.
func TreasuryHolder(orgID string) string { return "org:" + orgID + ":treasury" }

// ReserveHolder returns the ledger holder id of the unsold share reserve.
func ReserveHolder(orgID string) string { return "org:" + orgID + ":reserve" }
