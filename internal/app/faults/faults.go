// Package faults defines the error taxonomy shared by the treasury,
// governance and annuity services. Callers branch on these sentinels with
// errors.Is; services wrap them with fmt.Errorf("...: %w", ...) to add
// operation context without losing the kind.
package faults

import "errors"

var (
	// ErrUnauthorized is returned when the caller lacks the required
	// governance token, threshold holding or owner badge.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrWrongAssetType is returned when an asset identity does not match
	// the one a transfer or vote expects.
	ErrWrongAssetType = errors.New("wrong asset type")

	// ErrInsufficientPayment is returned when a payment is below the
	// required price.
	ErrInsufficientPayment = errors.New("insufficient payment")

	// ErrInsufficientTreasury is returned when the organization treasury
	// cannot cover a proposal's target amount.
	ErrInsufficientTreasury = errors.New("insufficient treasury funds")

	// ErrInsufficientFunds is returned when a ledger holding cannot cover
	// a requested debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAlreadyVoted is returned when an identity votes twice on the same
	// proposal.
	ErrAlreadyVoted = errors.New("already voted")

	// ErrTooEarly is returned when a proposal is executed at or before its
	// end time.
	ErrTooEarly = errors.New("too early")

	// ErrPrematureClaim reports a payout claim inside the current payout
	// window. It is an expected outcome, not a fatal failure.
	ErrPrematureClaim = errors.New("premature claim")

	// ErrQuorumNotMet reports an execution attempt with fewer distinct
	// voters than the proposal's minimum quorum. The proposal stays in the
	// registry and the treasury is untouched.
	ErrQuorumNotMet = errors.New("quorum not met")

	// ErrNoSuchIssuer is returned when no annuity is registered for the
	// given issuer identity.
	ErrNoSuchIssuer = errors.New("no such issuer")

	// ErrNoSuchProposal is returned when a proposal id cannot be resolved.
	ErrNoSuchProposal = errors.New("no such proposal")

	// ErrSoldOut is returned when an annuity's escrow holds no more units.
	ErrSoldOut = errors.New("sold out")

	// ErrInvalidTerm is returned when an instrument's maturity yields a
	// term below one whole year.
	ErrInvalidTerm = errors.New("invalid term")

	// ErrActiveProposalsExist blocks share redemption while governance is
	// in progress.
	ErrActiveProposalsExist = errors.New("active proposals exist")

	// ErrNotFound is the generic lookup failure for organizations, assets
	// and other records.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a record with the same identity already
	// exists.
	ErrConflict = errors.New("already exists")
)
