// Package governance implements the proposal state machine: creation gated
// by the organization's policy, token-weighted voting and treasury-backed
// execution.
package governance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harshpreetweb3/insurance-dao/internal/app/clock"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/asset"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/money"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/org"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/proposal"
	"github.com/harshpreetweb3/insurance-dao/internal/app/events"
	"github.com/harshpreetweb3/insurance-dao/internal/app/faults"
	"github.com/harshpreetweb3/insurance-dao/internal/app/ledger"
	"github.com/harshpreetweb3/insurance-dao/internal/app/metrics"
	annsvc "github.com/harshpreetweb3/insurance-dao/internal/app/services/annuity"
	"github.com/harshpreetweb3/insurance-dao/internal/app/storage"
	"github.com/harshpreetweb3/insurance-dao/pkg/logger"
)

// CreateProposalParams carries a proposal request.
type CreateProposalParams struct {
	OrgID    string
	Proposer string

	Kind      proposal.Kind
	Title     string
	Summary   string
	Weighting proposal.Weighting

	TargetIssuer string
	TargetAmount money.Amount
	MintAmount   money.Amount

	MinimumQuorum int64
	StartAt       time.Time
	EndAt         time.Time
}

// Service runs the proposal lifecycle. Execution is serialized by one
// mutex so two executors cannot spend the same treasury funds.
type Service struct {
	mu         sync.Mutex
	orgs       storage.OrganizationStore
	proposals  storage.ProposalStore
	ledger     *ledger.Manager
	annuities  *annsvc.Service
	clock      clock.Clock
	sink       events.Sink
	currencyID string
	log        *logger.Logger
}

// New constructs the governance service.
func New(orgs storage.OrganizationStore, proposals storage.ProposalStore, led *ledger.Manager, annuities *annsvc.Service, clk clock.Clock, sink events.Sink, currencyID string, log *logger.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if sink == nil {
		sink = events.Nop{}
	}
	if log == nil {
		log = logger.NewDefault("governance")
	}
	return &Service{
		orgs:       orgs,
		proposals:  proposals,
		ledger:     led,
		annuities:  annuities,
		clock:      clk,
		sink:       sink,
		currencyID: currencyID,
		log:        log,
	}
}

// authorize enforces the organization's proposal creation policy.
func (s *Service) authorize(ctx context.Context, o *org.Organization, proposer string) error {
	holder := asset.MemberHolder(proposer)
	switch o.CreationPolicy.Mode {
	case org.PolicyOpen:
		ok, err := s.ledger.HoldsAtLeast(ctx, holder, o.GovernanceTokenID, money.FromUnits(1))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("proposer holds no governance token: %w", faults.ErrUnauthorized)
		}
	case org.PolicyThresholdHeld:
		ok, err := s.ledger.HoldsAtLeast(ctx, holder, o.GovernanceTokenID, o.CreationPolicy.Threshold)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("proposer holds under %s governance tokens: %w",
				o.CreationPolicy.Threshold, faults.ErrUnauthorized)
		}
	case org.PolicyAdminOnly:
		ok, err := s.ledger.HoldsAtLeast(ctx, holder, o.OwnerBadgeID, money.FromUnits(1))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("proposer holds no owner badge: %w", faults.ErrUnauthorized)
		}
	default:
		return fmt.Errorf("organization has unknown creation policy %q", o.CreationPolicy.Mode)
	}
	return nil
}

// Create registers a proposal after the policy check. Spend proposals must
// name an issuer that has issued at least one instrument.
func (s *Service) Create(ctx context.Context, p CreateProposalParams) (*proposal.Proposal, error) {
	o, err := s.orgs.GetOrganization(ctx, p.OrgID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, o, p.Proposer); err != nil {
		return nil, err
	}
	if !p.EndAt.After(p.StartAt) {
		return nil, fmt.Errorf("end_time must be after start_time")
	}
	if p.MinimumQuorum < 1 {
		return nil, fmt.Errorf("minimum_quorum must be at least 1")
	}
	switch p.Weighting {
	case proposal.WeightedByHolding, proposal.OneVoterOneVote:
	default:
		return nil, fmt.Errorf("unknown voting type %q", p.Weighting)
	}

	switch p.Kind {
	case proposal.KindSpendTreasury:
		if p.TargetAmount <= 0 {
			return nil, fmt.Errorf("target_amount must be positive")
		}
		if _, err := s.annuities.LatestByIssuer(ctx, p.TargetIssuer); err != nil {
			return nil, err
		}
	case proposal.KindMintShares:
		if p.MintAmount <= 0 {
			return nil, fmt.Errorf("mint_amount must be positive")
		}
	default:
		return nil, fmt.Errorf("unknown proposal kind %q", p.Kind)
	}

	id, err := s.proposals.NextProposalID(ctx, p.OrgID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	pr := &proposal.Proposal{
		ID:            id,
		OrgID:         p.OrgID,
		Kind:          p.Kind,
		Title:         p.Title,
		Summary:       p.Summary,
		Proposer:      p.Proposer,
		Weighting:     p.Weighting,
		TargetIssuer:  p.TargetIssuer,
		TargetAmount:  p.TargetAmount,
		MintAmount:    p.MintAmount,
		MinimumQuorum: p.MinimumQuorum,
		StartAt:       p.StartAt,
		EndAt:         p.EndAt,
		Status:        proposal.StatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.proposals.CreateProposal(ctx, pr); err != nil {
		return nil, err
	}

	s.log.WithField("org_id", p.OrgID).
		WithField("proposal_id", id).
		WithField("kind", string(p.Kind)).
		Info("proposal created")
	s.sink.Emit(events.Event{
		Type:  events.TypeProposalCreated,
		OrgID: p.OrgID,
		Actor: p.Proposer,
		Attributes: map[string]interface{}{
			"proposal_id": id,
			"kind":        string(p.Kind),
		},
		OccurredAt: now,
	})
	return pr, nil
}

// Vote casts one vote. The voter must hold the organization's governance
// token; weight is their holding or one unit depending on the weighting.
// The holding is only inspected, never moved.
func (s *Service) Vote(ctx context.Context, orgID string, proposalID int64, voter string, inFavor bool) (*proposal.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.orgs.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	pr, err := s.proposals.GetProposal(ctx, orgID, proposalID)
	if err != nil {
		return nil, err
	}
	if pr.Status != proposal.StatusOpen {
		return nil, fmt.Errorf("proposal %d is %s: %w", proposalID, pr.Status, faults.ErrConflict)
	}
	now := s.clock.Now()
	if now.Before(pr.StartAt) {
		return nil, fmt.Errorf("voting opens at %s: %w", pr.StartAt.Format(time.RFC3339), faults.ErrConflict)
	}
	if !now.Before(pr.EndAt) {
		return nil, fmt.Errorf("voting closed at %s: %w", pr.EndAt.Format(time.RFC3339), faults.ErrConflict)
	}

	held, err := s.ledger.Balance(ctx, asset.MemberHolder(voter), o.GovernanceTokenID)
	if err != nil {
		return nil, err
	}
	if held <= 0 {
		return nil, fmt.Errorf("voter holds no governance token: %w", faults.ErrWrongAssetType)
	}
	if pr.HasVoted(voter) {
		return nil, fmt.Errorf("identity %s already voted on proposal %d: %w", voter, proposalID, faults.ErrAlreadyVoted)
	}

	weight := money.FromUnits(1)
	if pr.Weighting == proposal.WeightedByHolding {
		weight = held
	}
	if inFavor {
		pr.VotesFor += weight
	} else {
		pr.VotesAgainst += weight
	}
	pr.Voters = append(pr.Voters, voter)
	pr.UpdatedAt = now
	if err := s.proposals.UpdateProposal(ctx, pr); err != nil {
		return nil, err
	}

	s.log.WithField("org_id", orgID).
		WithField("proposal_id", proposalID).
		WithField("voter", voter).
		WithField("in_favor", inFavor).
		Info("vote cast")
	s.sink.Emit(events.Event{
		Type:  events.TypeVoteCast,
		OrgID: orgID,
		Actor: voter,
		Attributes: map[string]interface{}{
			"proposal_id": proposalID,
			"in_favor":    inFavor,
			"weight":      weight.Float(),
		},
		OccurredAt: now,
	})
	return pr, nil
}

// Execute settles a proposal after its voting window. Quorum failure
// rejects the proposal; it stays queryable and the treasury is untouched.
// The tally is recorded for reporting but does not gate execution: a
// quorum-met spend proposal buys one unit from the target issuer's latest
// instrument with treasury funds, a quorum-met mint proposal grows the
// governance supply in the reserve.
func (s *Service) Execute(ctx context.Context, orgID string, proposalID int64, executor string) (*proposal.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.orgs.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	pr, err := s.proposals.GetProposal(ctx, orgID, proposalID)
	if err != nil {
		return nil, err
	}
	if pr.Status != proposal.StatusOpen {
		return nil, fmt.Errorf("proposal %d is %s: %w", proposalID, pr.Status, faults.ErrConflict)
	}
	now := s.clock.Now()
	if !now.After(pr.EndAt) {
		return nil, fmt.Errorf("voting runs until %s: %w", pr.EndAt.Format(time.RFC3339), faults.ErrTooEarly)
	}

	if !pr.QuorumMet() {
		pr.Status = proposal.StatusRejected
		pr.UpdatedAt = now
		if err := s.proposals.UpdateProposal(ctx, pr); err != nil {
			return nil, err
		}
		metrics.RecordProposalOutcome("quorum_not_met")
		s.emitRejected(pr, executor, now, "quorum_not_met")
		return pr, fmt.Errorf("%d of %d required voters: %w",
			len(pr.Voters), pr.MinimumQuorum, faults.ErrQuorumNotMet)
	}
	switch pr.Kind {
	case proposal.KindSpendTreasury:
		if err := s.executeSpend(ctx, o, pr); err != nil {
			return nil, err
		}
	case proposal.KindMintShares:
		if err := s.executeMint(ctx, o, pr); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown proposal kind %q", pr.Kind)
	}

	pr.Status = proposal.StatusExecuted
	pr.ExecutedAt = &now
	pr.UpdatedAt = now
	if err := s.proposals.UpdateProposal(ctx, pr); err != nil {
		return nil, err
	}

	metrics.RecordProposalOutcome("executed")
	s.log.WithField("org_id", orgID).
		WithField("proposal_id", proposalID).
		WithField("kind", string(pr.Kind)).
		Info("proposal executed")
	s.sink.Emit(events.Event{
		Type:  events.TypeProposalExecuted,
		OrgID: orgID,
		Actor: executor,
		Attributes: map[string]interface{}{
			"proposal_id": proposalID,
			"kind":        string(pr.Kind),
		},
		OccurredAt: now,
	})
	return pr, nil
}

func (s *Service) executeSpend(ctx context.Context, o *org.Organization, pr *proposal.Proposal) error {
	treasury, err := s.ledger.Balance(ctx, org.TreasuryHolder(o.ID), s.currencyID)
	if err != nil {
		return err
	}
	if treasury < pr.TargetAmount {
		return fmt.Errorf("treasury %s below target %s: %w",
			treasury, pr.TargetAmount, faults.ErrInsufficientTreasury)
	}
	target, err := s.annuities.LatestByIssuer(ctx, pr.TargetIssuer)
	if err != nil {
		return err
	}
	// The budget is target_amount; only the unit price leaves the treasury.
	_, _, err = s.annuities.PurchaseAs(ctx, target.ID, org.TreasuryHolder(o.ID), pr.TargetAmount)
	return err
}

func (s *Service) executeMint(ctx context.Context, o *org.Organization, pr *proposal.Proposal) error {
	ref := fmt.Sprintf("%s/proposal/%d", o.ID, pr.ID)
	if err := s.ledger.Mint(ctx, org.ReserveHolder(o.ID), o.GovernanceTokenID, pr.MintAmount,
		"governance supply minted by proposal", ref); err != nil {
		return err
	}
	o.TokenSupply += pr.MintAmount
	o.UpdatedAt = s.clock.Now()
	return s.orgs.UpdateOrganization(ctx, o)
}

func (s *Service) emitRejected(pr *proposal.Proposal, executor string, now time.Time, reason string) {
	s.log.WithField("org_id", pr.OrgID).
		WithField("proposal_id", pr.ID).
		WithField("reason", reason).
		Warn("proposal rejected")
	s.sink.Emit(events.Event{
		Type:  events.TypeProposalRejected,
		OrgID: pr.OrgID,
		Actor: executor,
		Attributes: map[string]interface{}{
			"proposal_id": pr.ID,
			"reason":      reason,
		},
		OccurredAt: now,
	})
}

// Get returns one proposal.
func (s *Service) Get(ctx context.Context, orgID string, proposalID int64) (*proposal.Proposal, error) {
	return s.proposals.GetProposal(ctx, orgID, proposalID)
}

// List returns the organization's proposals, oldest first.
func (s *Service) List(ctx context.Context, orgID string) ([]*proposal.Proposal, error) {
	return s.proposals.ListProposals(ctx, orgID)
}
