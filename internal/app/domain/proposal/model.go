// Package proposal holds the governance proposal model and its lifecycle states.
package proposal

import (
	"time"

	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/money"
)

// Kind selects what executing a passed proposal does.
type Kind string

const (
	// KindSpendTreasury buys an annuity from a target issuer with treasury funds.
	KindSpendTreasury Kind = "spend_treasury"
	// KindMintShares mints additional governance tokens into the reserve.
	KindMintShares Kind = "mint_shares"
)

// Weighting is how cast votes are counted.
type Weighting string

const (
	WeightedByHolding Weighting = "weighted_by_holding"
	OneVoterOneVote   Weighting = "one_voter_one_vote"
)

// Status is the proposal lifecycle state.
type Status string

const (
	StatusOpen     Status = "open"
	StatusExecuted Status = "executed"
	StatusRejected Status = "rejected"
)

// Proposal is a request to act on the organization treasury, voted on by
// governance-token holders. IDs are sequential per organization.
type Proposal struct {
	ID    int64  `json:"id"`
	OrgID string `json:"org_id"`

	Kind      Kind      `json:"kind"`
	Title     string    `json:"title,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Proposer  string    `json:"proposer"`
	Weighting Weighting `json:"weighting"`

	// spend_treasury payload
	TargetIssuer string       `json:"target_issuer,omitempty"`
	TargetAmount money.Amount `json:"target_amount,omitempty"`

	// mint_shares payload
	MintAmount money.Amount `json:"mint_amount,omitempty"`

	MinimumQuorum int64     `json:"minimum_quorum"`
	StartAt       time.Time `json:"start_at"`
	EndAt         time.Time `json:"end_at"`

	VotesFor     money.Amount `json:"votes_for"`
	VotesAgainst money.Amount `json:"votes_against"`
	Voters       []string     `json:"voters"`

	Status     Status     `json:"status"`
	ExecutedAt *time.Time `json:"executed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasVoted reports whether the identity already cast a vote.
func (p *Proposal) HasVoted(voter string) bool {
	for _, v := range p.Voters {
		if v == voter {
			return true
		}
	}
	return false
}

// QuorumMet reports whether enough distinct voters participated.
func (p *Proposal) QuorumMet() bool {
	return int64(len(p.Voters)) >= p.MinimumQuorum
}
