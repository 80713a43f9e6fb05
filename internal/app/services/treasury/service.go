// Package treasury implements the organization coordinator: deployment,
// share sales and buy-backs, treasury contributions and member deposits.
package treasury

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/harshpreetweb3/insurance-dao/internal/app/clock"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/asset"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/money"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/org"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/proposal"
	"github.com/harshpreetweb3/insurance-dao/internal/app/events"
	"github.com/harshpreetweb3/insurance-dao/internal/app/faults"
	"github.com/harshpreetweb3/insurance-dao/internal/app/ledger"
	"github.com/harshpreetweb3/insurance-dao/internal/app/metrics"
	"github.com/harshpreetweb3/insurance-dao/internal/app/storage"
	"github.com/harshpreetweb3/insurance-dao/pkg/logger"
)

// CreateOrganizationParams carries the deployment request.
type CreateOrganizationParams struct {
	Owner       string
	Name        string
	Description string
	IconURL     string
	TokenImage  string
	Tags        []string
	Purpose     string

	TokenName    string
	TokenSymbol  string
	TokenSupply  money.Amount
	TokenPrice   money.Amount
	BuyBackPrice money.Amount

	CreationPolicy org.CreationPolicy
}

// Service coordinates organizations: their tokens, treasuries and member
// flows. One mutex serializes share trades against the treasury.
type Service struct {
	mu         sync.Mutex
	orgs       storage.OrganizationStore
	proposals  storage.ProposalStore
	ledger     *ledger.Manager
	clock      clock.Clock
	sink       events.Sink
	currencyID string
	log        *logger.Logger
}

// New constructs the coordinator. currencyID is the settlement asset.
func New(orgs storage.OrganizationStore, proposals storage.ProposalStore, led *ledger.Manager, clk clock.Clock, sink events.Sink, currencyID string, log *logger.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if sink == nil {
		sink = events.Nop{}
	}
	if log == nil {
		log = logger.NewDefault("treasury")
	}
	return &Service{
		orgs:       orgs,
		proposals:  proposals,
		ledger:     led,
		clock:      clk,
		sink:       sink,
		currencyID: currencyID,
		log:        log,
	}
}

// CurrencyID returns the settlement asset id.
func (s *Service) CurrencyID() string { return s.currencyID }

// CreateOrganization deploys a DAO: defines its governance token and owner
// badge, mints the full supply into the share reserve and hands the badge
// to the owner.
func (s *Service) CreateOrganization(ctx context.Context, p CreateOrganizationParams) (*org.Organization, error) {
	if p.Owner == "" {
		return nil, fmt.Errorf("owner is required")
	}
	if p.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if p.TokenSupply <= 0 {
		return nil, fmt.Errorf("token_supply must be positive")
	}
	if p.TokenPrice <= 0 || p.BuyBackPrice <= 0 {
		return nil, fmt.Errorf("token_price and buy_back_price must be positive")
	}
	if p.BuyBackPrice > p.TokenPrice {
		return nil, fmt.Errorf("buy_back_price must not exceed token_price")
	}
	switch p.CreationPolicy.Mode {
	case org.PolicyOpen, org.PolicyAdminOnly:
	case org.PolicyThresholdHeld:
		if p.CreationPolicy.Threshold <= 0 {
			return nil, fmt.Errorf("threshold_held policy needs a positive threshold")
		}
	default:
		return nil, fmt.Errorf("unknown proposal creation policy %q", p.CreationPolicy.Mode)
	}

	symbol := p.TokenSymbol
	if symbol == "" {
		symbol = "GOV"
	}
	tokenName := p.TokenName
	if tokenName == "" {
		tokenName = p.Name + " Governance Token"
	}

	id := uuid.NewString()
	token, err := s.ledger.DefineAsset(ctx, asset.KindShare, symbol, tokenName, id)
	if err != nil {
		return nil, err
	}
	badge, err := s.ledger.DefineAsset(ctx, asset.KindBadge, symbol+"-OWNER", p.Name+" Owner Badge", id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	o := &org.Organization{
		ID:                id,
		Name:              p.Name,
		Description:       p.Description,
		IconURL:           p.IconURL,
		TokenImage:        p.TokenImage,
		Tags:              p.Tags,
		Purpose:           p.Purpose,
		Owner:             p.Owner,
		GovernanceTokenID: token.ID,
		OwnerBadgeID:      badge.ID,
		TokenPrice:        p.TokenPrice,
		BuyBackPrice:      p.BuyBackPrice,
		TokenSupply:       p.TokenSupply,
		CreationPolicy:    p.CreationPolicy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.ledger.Mint(ctx, org.ReserveHolder(id), token.ID, p.TokenSupply, "governance supply minted", id); err != nil {
		return nil, err
	}
	if err := s.ledger.Mint(ctx, asset.MemberHolder(p.Owner), badge.ID, money.FromUnits(1), "owner badge minted", id); err != nil {
		return nil, err
	}
	if err := s.orgs.CreateOrganization(ctx, o); err != nil {
		return nil, err
	}

	s.log.WithField("org_id", id).WithField("owner", p.Owner).Info("organization created")
	s.sink.Emit(events.Event{
		Type:  events.TypeOrganizationCreated,
		OrgID: id,
		Actor: p.Owner,
		Attributes: map[string]interface{}{
			"name":         p.Name,
			"token_supply": p.TokenSupply.Float(),
			"token_price":  p.TokenPrice.Float(),
		},
		OccurredAt: now,
	})
	return o, nil
}

// BuyShares sells amount governance tokens to the buyer at token_price.
// Exactly the cost is collected into the treasury; change is whatever part
// of payment was not needed.
func (s *Service) BuyShares(ctx context.Context, orgID, buyer string, payment, amount money.Amount) (money.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.orgs.GetOrganization(ctx, orgID)
	if err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	cost := o.TokenPrice.Mul(amount)
	if payment < cost {
		return 0, fmt.Errorf("payment %s below cost %s: %w", payment, cost, faults.ErrInsufficientPayment)
	}
	reserve, err := s.ledger.Balance(ctx, org.ReserveHolder(orgID), o.GovernanceTokenID)
	if err != nil {
		return 0, err
	}
	if reserve < amount {
		return 0, fmt.Errorf("share reserve has %s of %s requested: %w", reserve, amount, faults.ErrSoldOut)
	}

	err = s.ledger.Apply(ctx, "shares bought", orgID, []asset.Movement{
		{HolderID: asset.MemberHolder(buyer), AssetID: s.currencyID, Amount: -cost},
		{HolderID: org.TreasuryHolder(orgID), AssetID: s.currencyID, Amount: cost},
		{HolderID: org.ReserveHolder(orgID), AssetID: o.GovernanceTokenID, Amount: -amount},
		{HolderID: asset.MemberHolder(buyer), AssetID: o.GovernanceTokenID, Amount: amount},
	})
	if err != nil {
		return 0, err
	}

	change := payment - cost
	metrics.RecordShareTrade("buy")
	s.log.WithField("org_id", orgID).
		WithField("buyer", buyer).
		WithField("amount", amount.String()).
		Info("shares bought")
	s.sink.Emit(events.Event{
		Type:  events.TypeSharesBought,
		OrgID: orgID,
		Actor: buyer,
		Attributes: map[string]interface{}{
			"amount": amount.Float(),
			"cost":   cost.Float(),
		},
		OccurredAt: s.clock.Now(),
	})
	return change, nil
}

// RedeemShares buys amount governance tokens back from the member at
// buy_back_price. Redemption is blocked while any proposal is open.
func (s *Service) RedeemShares(ctx context.Context, orgID, member string, amount money.Amount) (money.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.orgs.GetOrganization(ctx, orgID)
	if err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	open, err := s.proposals.ListProposalsByStatus(ctx, orgID, proposal.StatusOpen)
	if err != nil {
		return 0, err
	}
	if len(open) > 0 {
		return 0, fmt.Errorf("%d open proposal(s): %w", len(open), faults.ErrActiveProposalsExist)
	}

	refund := o.BuyBackPrice.Mul(amount)
	treasury, err := s.ledger.Balance(ctx, org.TreasuryHolder(orgID), s.currencyID)
	if err != nil {
		return 0, err
	}
	if treasury < refund {
		return 0, fmt.Errorf("treasury %s below refund %s: %w", treasury, refund, faults.ErrInsufficientTreasury)
	}

	err = s.ledger.Apply(ctx, "shares redeemed", orgID, []asset.Movement{
		{HolderID: asset.MemberHolder(member), AssetID: o.GovernanceTokenID, Amount: -amount},
		{HolderID: org.ReserveHolder(orgID), AssetID: o.GovernanceTokenID, Amount: amount},
		{HolderID: org.TreasuryHolder(orgID), AssetID: s.currencyID, Amount: -refund},
		{HolderID: asset.MemberHolder(member), AssetID: s.currencyID, Amount: refund},
	})
	if err != nil {
		return 0, err
	}

	metrics.RecordShareTrade("redeem")
	s.log.WithField("org_id", orgID).
		WithField("member", member).
		WithField("amount", amount.String()).
		Info("shares redeemed")
	s.sink.Emit(events.Event{
		Type:  events.TypeSharesRedeemed,
		OrgID: orgID,
		Actor: member,
		Attributes: map[string]interface{}{
			"amount": amount.Float(),
			"refund": refund.Float(),
		},
		OccurredAt: s.clock.Now(),
	})
	return refund, nil
}

// Contribute donates currency into the treasury and records the
// contributor's cumulative total. Contributions are unconditional.
func (s *Service) Contribute(ctx context.Context, orgID, contributor string, amount money.Amount) (*org.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.orgs.GetOrganization(ctx, orgID); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	err := s.ledger.Transfer(ctx, asset.MemberHolder(contributor), org.TreasuryHolder(orgID),
		s.currencyID, amount, "treasury contribution", orgID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	c, err := s.orgs.GetContribution(ctx, orgID, contributor)
	if err != nil {
		if !errors.Is(err, faults.ErrNotFound) {
			return nil, err
		}
		c = &org.Contribution{OrgID: orgID, Contributor: contributor}
	}
	c.Total += amount
	c.UpdatedAt = now
	if err := s.orgs.UpsertContribution(ctx, c); err != nil {
		return nil, err
	}

	s.log.WithField("org_id", orgID).
		WithField("contributor", contributor).
		WithField("amount", amount.String()).
		Info("contribution received")
	s.sink.Emit(events.Event{
		Type:  events.TypeContributionMade,
		OrgID: orgID,
		Actor: contributor,
		Attributes: map[string]interface{}{
			"amount": amount.Float(),
			"total":  c.Total.Float(),
		},
		OccurredAt: now,
	})
	return c, nil
}

// Deposit credits externally sourced currency to a member. This is the
// on-ramp for funds entering the system.
func (s *Service) Deposit(ctx context.Context, member string, amount money.Amount) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	return s.ledger.Mint(ctx, asset.MemberHolder(member), s.currencyID, amount, "member deposit", member)
}

// Get returns one organization.
func (s *Service) Get(ctx context.Context, orgID string) (*org.Organization, error) {
	return s.orgs.GetOrganization(ctx, orgID)
}

// List returns every organization, oldest first.
func (s *Service) List(ctx context.Context) ([]*org.Organization, error) {
	return s.orgs.ListOrganizations(ctx)
}

// TreasuryBalance returns the organization's treasury holding.
func (s *Service) TreasuryBalance(ctx context.Context, orgID string) (money.Amount, error) {
	if _, err := s.orgs.GetOrganization(ctx, orgID); err != nil {
		return 0, err
	}
	return s.ledger.Balance(ctx, org.TreasuryHolder(orgID), s.currencyID)
}

// Contributions lists the organization's contributors and totals.
func (s *Service) Contributions(ctx context.Context, orgID string) ([]*org.Contribution, error) {
	if _, err := s.orgs.GetOrganization(ctx, orgID); err != nil {
		return nil, err
	}
	return s.orgs.ListContributions(ctx, orgID)
}

// MemberHoldings lists a member's non-zero ledger balances.
func (s *Service) MemberHoldings(ctx context.Context, member string) ([]*asset.Holding, error) {
	return s.ledger.Holdings(ctx, asset.MemberHolder(member))
}
