// Package annuity implements the fixed-income instrument engine: issuance,
// unit sales, annual payouts with collateral liquidation on default, issuer
// repayment and collateral release.
package annuity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harshpreetweb3/insurance-dao/internal/app/clock"
	domain "github.com/harshpreetweb3/insurance-dao/internal/app/domain/annuity"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/asset"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/money"
	"github.com/harshpreetweb3/insurance-dao/internal/app/events"
	"github.com/harshpreetweb3/insurance-dao/internal/app/faults"
	"github.com/harshpreetweb3/insurance-dao/internal/app/ledger"
	"github.com/harshpreetweb3/insurance-dao/internal/app/metrics"
	"github.com/harshpreetweb3/insurance-dao/internal/app/storage"
	"github.com/harshpreetweb3/insurance-dao/pkg/logger"
)

// PayoutPolicy tunes the payout arithmetic. The zero value selects the
// current behavior: interest divisor 100, payout base spread over the term,
// remaining time measured against the pre-claim timestamp.
type PayoutPolicy struct {
	// InterestDivisor divides principal*rate. Defaults to 100.
	InterestDivisor int64
	// PayoutBaseDivisorYears fixes the payout base divisor. Zero means
	// divide by the instrument's term in years.
	PayoutBaseDivisorYears int64
	// UpdateTimestampFirst advances last_payout before computing the
	// remaining wait on a premature claim, reproducing the historical
	// behavior. Leave false.
	UpdateTimestampFirst bool
}

func (p PayoutPolicy) interestDivisor() int64 {
	if p.InterestDivisor <= 0 {
		return 100
	}
	return p.InterestDivisor
}

func (p PayoutPolicy) baseDivisor(termYears int64) int64 {
	if p.PayoutBaseDivisorYears > 0 {
		return p.PayoutBaseDivisorYears
	}
	return termYears
}

// ClaimResult reports what a payout claim produced.
type ClaimResult struct {
	Outcome ClaimOutcome `json:"outcome"`
	// Amount paid (Paid) or collateral transferred (Liquidated).
	Amount money.Amount `json:"amount"`
	// AssetID of the paid asset: currency on Paid, collateral on Liquidated.
	AssetID string `json:"asset_id"`
	// RemainingWait until the next payout unlocks, on PrematureClaim.
	RemainingWait time.Duration `json:"remaining_wait,omitempty"`
}

// ClaimOutcome enumerates claim results.
type ClaimOutcome string

const (
	OutcomePaid           ClaimOutcome = "paid"
	OutcomeLiquidated     ClaimOutcome = "liquidated"
	OutcomePrematureClaim ClaimOutcome = "premature_claim"
)

// IssueParams carries the issuer-declared terms.
type IssueParams struct {
	Issuer             string
	ContractType       string
	ContractRole       string
	ContractIdentifier string
	Currency           string
	Position           string

	Principal    money.Amount
	RatePercent  int64
	MaturityDate time.Time

	UnitPrice money.Amount
	Supply    money.Amount

	CollateralAssetID string
	CollateralAmount  money.Amount
}

// Service is the annuity engine. One mutex serializes state transitions so
// a claim and a repayment cannot interleave on the same instrument.
type Service struct {
	mu         sync.Mutex
	store      storage.AnnuityStore
	ledger     *ledger.Manager
	clock      clock.Clock
	sink       events.Sink
	policy     PayoutPolicy
	currencyID string
	log        *logger.Logger
}

// New constructs the annuity engine. currencyID is the settlement asset.
func New(store storage.AnnuityStore, led *ledger.Manager, clk clock.Clock, sink events.Sink, currencyID string, policy PayoutPolicy, log *logger.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if sink == nil {
		sink = events.Nop{}
	}
	if log == nil {
		log = logger.NewDefault("annuity")
	}
	return &Service{
		store:      store,
		ledger:     led,
		clock:      clk,
		sink:       sink,
		policy:     policy,
		currencyID: currencyID,
		log:        log,
	}
}

// Issue lists a new instrument: defines its unit asset, mints the supply
// into the sale inventory and escrows the issuer's collateral.
func (s *Service) Issue(ctx context.Context, p IssueParams) (*domain.Annuity, error) {
	if p.Issuer == "" {
		return nil, fmt.Errorf("issuer is required")
	}
	if p.Principal <= 0 {
		return nil, fmt.Errorf("principal must be positive")
	}
	if p.RatePercent < 0 {
		return nil, fmt.Errorf("rate_percent must not be negative")
	}
	if p.UnitPrice <= 0 {
		return nil, fmt.Errorf("unit_price must be positive")
	}
	if p.Supply < money.FromUnits(1) || !p.Supply.IsWhole() {
		return nil, fmt.Errorf("supply must be a positive whole number of units")
	}

	now := s.clock.Now()
	termYears := clock.YearsBetween(now, p.MaturityDate)
	if termYears < 1 {
		return nil, fmt.Errorf("maturity %s is under one year out: %w",
			p.MaturityDate.Format(time.RFC3339), faults.ErrInvalidTerm)
	}

	unitAsset, err := s.ledger.DefineAsset(ctx, asset.KindUnit, "ANN", "Annuity Unit", "")
	if err != nil {
		return nil, err
	}

	interest := p.Principal.MulInt(p.RatePercent).DivInt(s.policy.interestDivisor())
	a := &domain.Annuity{
		ID:     unitAsset.ID,
		Issuer: p.Issuer,
		Terms: domain.Terms{
			ContractType:       p.ContractType,
			ContractRole:       p.ContractRole,
			ContractIdentifier: p.ContractIdentifier,
			Currency:           p.Currency,
			Position:           p.Position,
			Principal:          p.Principal,
			RatePercent:        p.RatePercent,
			IssuedAt:           now,
			MaturityDate:       p.MaturityDate,
			TermYears:          termYears,
			UnitPrice:          p.UnitPrice,
			Supply:             p.Supply,
			CollateralAssetID:  p.CollateralAssetID,
			CollateralAmount:   p.CollateralAmount,
		},
		Status:               domain.StatusListed,
		UnitAssetID:          unitAsset.ID,
		AnnualPayoutBase:     p.Principal.DivInt(s.policy.baseDivisor(termYears)),
		AnnualInterest:       interest,
		LastPayout:           now,
		TotalAmountToPayback: p.Principal + interest,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.ledger.Mint(ctx, domain.UnitsHolder(a.ID), a.UnitAssetID, p.Supply, "annuity units minted", a.ID); err != nil {
		return nil, err
	}
	if p.CollateralAmount > 0 {
		if err := s.ledger.Transfer(ctx, asset.MemberHolder(p.Issuer), domain.EscrowHolder(a.ID),
			p.CollateralAssetID, p.CollateralAmount, "collateral escrowed", a.ID); err != nil {
			return nil, fmt.Errorf("escrow collateral: %w", err)
		}
	}
	if err := s.store.CreateAnnuity(ctx, a); err != nil {
		return nil, err
	}

	s.log.WithField("annuity_id", a.ID).
		WithField("issuer", p.Issuer).
		WithField("term_years", termYears).
		Info("annuity issued")
	s.sink.Emit(events.Event{
		Type:  events.TypeAnnuityIssued,
		Actor: p.Issuer,
		Attributes: map[string]interface{}{
			"annuity_id": a.ID,
			"principal":  a.Terms.Principal.Float(),
			"unit_price": a.Terms.UnitPrice.Float(),
			"supply":     a.Terms.Supply.Float(),
		},
		OccurredAt: now,
	})
	return a, nil
}

// Purchase sells one unit to the buyer. The buyer pays up to payment from
// their currency holding; exactly unit_price is collected and the rest
// stays untouched. SoldOut when the inventory is empty; defaulted and
// settled instruments no longer sell.
func (s *Service) Purchase(ctx context.Context, annuityID, buyer string, payment money.Amount) (*domain.Annuity, money.Amount, error) {
	return s.PurchaseAs(ctx, annuityID, asset.MemberHolder(buyer), payment)
}

// PurchaseAs is Purchase for an arbitrary ledger holder, such as an
// organization treasury buying through a passed proposal.
func (s *Service) PurchaseAs(ctx context.Context, annuityID, holderID string, payment money.Amount) (*domain.Annuity, money.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.store.GetAnnuity(ctx, annuityID)
	if err != nil {
		return nil, 0, err
	}
	if a.Status == domain.StatusDefaulted || a.Status == domain.StatusSettled {
		return nil, 0, fmt.Errorf("annuity %s is %s: %w", a.ID, a.Status, faults.ErrConflict)
	}
	if payment < a.Terms.UnitPrice {
		return nil, 0, fmt.Errorf("payment %s below unit price %s: %w",
			payment, a.Terms.UnitPrice, faults.ErrInsufficientPayment)
	}
	left, err := s.ledger.Balance(ctx, domain.UnitsHolder(a.ID), a.UnitAssetID)
	if err != nil {
		return nil, 0, err
	}
	if left < money.FromUnits(1) {
		return nil, 0, fmt.Errorf("annuity %s: %w", a.ID, faults.ErrSoldOut)
	}

	err = s.ledger.Apply(ctx, "annuity purchased", a.ID, []asset.Movement{
		{HolderID: holderID, AssetID: s.currencyID, Amount: -a.Terms.UnitPrice},
		{HolderID: domain.FundsHolder(a.ID), AssetID: s.currencyID, Amount: a.Terms.UnitPrice},
		{HolderID: domain.UnitsHolder(a.ID), AssetID: a.UnitAssetID, Amount: -money.FromUnits(1)},
		{HolderID: holderID, AssetID: a.UnitAssetID, Amount: money.FromUnits(1)},
	})
	if err != nil {
		return nil, 0, err
	}

	now := s.clock.Now()
	a.Status = domain.StatusActive
	a.UpdatedAt = now
	if err := s.store.UpdateAnnuity(ctx, a); err != nil {
		return nil, 0, err
	}

	change := payment - a.Terms.UnitPrice
	s.log.WithField("annuity_id", a.ID).WithField("buyer", holderID).Info("annuity unit purchased")
	s.sink.Emit(events.Event{
		Type:  events.TypeAnnuityPurchased,
		Actor: holderID,
		Attributes: map[string]interface{}{
			"annuity_id": a.ID,
			"unit_price": a.Terms.UnitPrice.Float(),
		},
		OccurredAt: now,
	})
	return a, change, nil
}

// ClaimPayout settles one annual payout for a unit holder. Outcomes:
//   - Paid: a full year elapsed and collected funds cover the payout.
//   - Liquidated: funds cannot cover a due payout after maturity; the
//     escrowed collateral moves to the claimant and the instrument defaults.
//   - PrematureClaim: no full year elapsed yet, or funds cannot cover a due
//     payout before maturity. RemainingWait carries the time left.
func (s *Service) ClaimPayout(ctx context.Context, annuityID, claimant string) (*ClaimResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.store.GetAnnuity(ctx, annuityID)
	if err != nil {
		return nil, err
	}
	held, err := s.ledger.Balance(ctx, asset.MemberHolder(claimant), a.UnitAssetID)
	if err != nil {
		return nil, err
	}
	if held < money.FromUnits(1) {
		return nil, fmt.Errorf("claimant holds no unit of annuity %s: %w", a.ID, faults.ErrWrongAssetType)
	}
	if a.CollateralLiquidated {
		return nil, fmt.Errorf("annuity %s already defaulted: %w", a.ID, faults.ErrInsufficientFunds)
	}

	now := s.clock.Now()
	elapsed := now.Sub(a.LastPayout)
	yearsElapsed := int64(elapsed / (clock.SecondsPerYear * time.Second))

	if yearsElapsed < 1 {
		prev := a.LastPayout
		if s.policy.UpdateTimestampFirst {
			a.LastPayout = now
			a.UpdatedAt = now
			if err := s.store.UpdateAnnuity(ctx, a); err != nil {
				return nil, err
			}
			prev = a.LastPayout
		}
		wait := prev.Add(clock.SecondsPerYear * time.Second).Sub(now)
		metrics.RecordPayoutClaim(string(OutcomePrematureClaim))
		return &ClaimResult{Outcome: OutcomePrematureClaim, RemainingWait: wait},
			fmt.Errorf("next payout in %s: %w", wait, faults.ErrPrematureClaim)
	}

	due := a.AnnualPayout()
	funds, err := s.ledger.Balance(ctx, domain.FundsHolder(a.ID), s.currencyID)
	if err != nil {
		return nil, err
	}

	if funds >= due {
		err = s.ledger.Transfer(ctx, domain.FundsHolder(a.ID), asset.MemberHolder(claimant),
			s.currencyID, due, "annual payout", a.ID)
		if err != nil {
			return nil, err
		}
		a.LastPayout = now
		a.PayoutsMade++
		a.UpdatedAt = now
		if err := s.store.UpdateAnnuity(ctx, a); err != nil {
			return nil, err
		}
		metrics.RecordPayoutClaim(string(OutcomePaid))
		s.log.WithField("annuity_id", a.ID).
			WithField("claimant", claimant).
			WithField("amount", due.String()).
			Info("payout claimed")
		s.sink.Emit(events.Event{
			Type:  events.TypePayoutClaimed,
			Actor: claimant,
			Attributes: map[string]interface{}{
				"annuity_id": a.ID,
				"amount":     due.Float(),
			},
			OccurredAt: now,
		})
		return &ClaimResult{Outcome: OutcomePaid, Amount: due, AssetID: s.currencyID}, nil
	}

	if !a.Matured(now) {
		wait := a.Terms.MaturityDate.Sub(now)
		metrics.RecordPayoutClaim(string(OutcomePrematureClaim))
		return &ClaimResult{Outcome: OutcomePrematureClaim, RemainingWait: wait},
			fmt.Errorf("funds short before maturity: %w", faults.ErrPrematureClaim)
	}

	// Due payout, past maturity, funds short: liquidate.
	if a.Terms.CollateralAmount > 0 {
		err = s.ledger.Transfer(ctx, domain.EscrowHolder(a.ID), asset.MemberHolder(claimant),
			a.Terms.CollateralAssetID, a.Terms.CollateralAmount, "collateral liquidated", a.ID)
		if err != nil {
			return nil, err
		}
	}
	a.Status = domain.StatusDefaulted
	a.CollateralLiquidated = true
	a.UpdatedAt = now
	if err := s.store.UpdateAnnuity(ctx, a); err != nil {
		return nil, err
	}
	metrics.RecordPayoutClaim(string(OutcomeLiquidated))
	s.log.WithField("annuity_id", a.ID).WithField("claimant", claimant).Warn("annuity defaulted, collateral liquidated")
	s.sink.Emit(events.Event{
		Type:  events.TypeAnnuityDefaulted,
		Actor: claimant,
		Attributes: map[string]interface{}{
			"annuity_id": a.ID,
			"collateral": a.Terms.CollateralAmount.Float(),
		},
		OccurredAt: now,
	})
	return &ClaimResult{
		Outcome: OutcomeLiquidated,
		Amount:  a.Terms.CollateralAmount,
		AssetID: a.Terms.CollateralAssetID,
	}, nil
}

// Repay lets the issuer deposit toward the repayment target. Deposits are
// cumulative and capped at principal plus annual interest; anything beyond
// the cap stays with the issuer as change.
func (s *Service) Repay(ctx context.Context, annuityID, issuer string, funds money.Amount) (*domain.Annuity, money.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.store.GetAnnuity(ctx, annuityID)
	if err != nil {
		return nil, 0, err
	}
	if a.Issuer != issuer {
		return nil, 0, fmt.Errorf("only the issuer may repay: %w", faults.ErrUnauthorized)
	}
	if funds <= 0 {
		return nil, 0, fmt.Errorf("repayment must be positive")
	}

	accepted := money.Min(funds, a.RemainingDebt())
	change := funds - accepted
	if accepted > 0 {
		err = s.ledger.Transfer(ctx, asset.MemberHolder(issuer), domain.FundsHolder(a.ID),
			s.currencyID, accepted, "issuer repayment", a.ID)
		if err != nil {
			return nil, 0, err
		}
		a.TotalRepaid += accepted
	}

	now := s.clock.Now()
	a.UpdatedAt = now
	if err := s.store.UpdateAnnuity(ctx, a); err != nil {
		return nil, 0, err
	}
	s.log.WithField("annuity_id", a.ID).
		WithField("accepted", accepted.String()).
		WithField("total_repaid", a.TotalRepaid.String()).
		Info("repayment recorded")
	s.sink.Emit(events.Event{
		Type:  events.TypeRepaymentMade,
		Actor: issuer,
		Attributes: map[string]interface{}{
			"annuity_id":   a.ID,
			"accepted":     accepted.Float(),
			"total_repaid": a.TotalRepaid.Float(),
		},
		OccurredAt: now,
	})
	return a, change, nil
}

// ReleaseCollateral returns the escrowed collateral to the issuer once the
// repayment target is fully covered. It succeeds at most once.
func (s *Service) ReleaseCollateral(ctx context.Context, annuityID, issuer string) (*domain.Annuity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.store.GetAnnuity(ctx, annuityID)
	if err != nil {
		return nil, err
	}
	if a.Issuer != issuer {
		return nil, fmt.Errorf("only the issuer may release collateral: %w", faults.ErrUnauthorized)
	}
	if a.CollateralLiquidated {
		return nil, fmt.Errorf("collateral was liquidated: %w", faults.ErrConflict)
	}
	if a.CollateralReleased {
		return nil, fmt.Errorf("collateral already released: %w", faults.ErrConflict)
	}
	if !a.FullyRepaid() {
		return nil, fmt.Errorf("repayment target not met, %s outstanding: %w",
			a.RemainingDebt(), faults.ErrInsufficientFunds)
	}

	if a.Terms.CollateralAmount > 0 {
		err = s.ledger.Transfer(ctx, domain.EscrowHolder(a.ID), asset.MemberHolder(issuer),
			a.Terms.CollateralAssetID, a.Terms.CollateralAmount, "collateral released", a.ID)
		if err != nil {
			return nil, err
		}
	}
	now := s.clock.Now()
	a.CollateralReleased = true
	a.Status = domain.StatusSettled
	a.UpdatedAt = now
	if err := s.store.UpdateAnnuity(ctx, a); err != nil {
		return nil, err
	}
	s.log.WithField("annuity_id", a.ID).Info("collateral released")
	s.sink.Emit(events.Event{
		Type:  events.TypeCollateralReleased,
		Actor: issuer,
		Attributes: map[string]interface{}{
			"annuity_id": a.ID,
			"collateral": a.Terms.CollateralAmount.Float(),
		},
		OccurredAt: now,
	})
	return a, nil
}

// WithdrawProceeds moves unit-sale proceeds out of the collected funds to
// the issuer. Proceeds are capped at units sold times unit price, less what
// was already withdrawn.
func (s *Service) WithdrawProceeds(ctx context.Context, annuityID, issuer string) (money.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.store.GetAnnuity(ctx, annuityID)
	if err != nil {
		return 0, err
	}
	if a.Issuer != issuer {
		return 0, fmt.Errorf("only the issuer may withdraw proceeds: %w", faults.ErrUnauthorized)
	}

	left, err := s.ledger.Balance(ctx, domain.UnitsHolder(a.ID), a.UnitAssetID)
	if err != nil {
		return 0, err
	}
	sold := a.Terms.Supply - left
	entitled := a.Terms.UnitPrice.Mul(sold) - a.ProceedsWithdrawn
	if entitled <= 0 {
		return 0, fmt.Errorf("no proceeds to withdraw: %w", faults.ErrInsufficientFunds)
	}
	funds, err := s.ledger.Balance(ctx, domain.FundsHolder(a.ID), s.currencyID)
	if err != nil {
		return 0, err
	}
	amount := money.Min(entitled, funds)
	if amount <= 0 {
		return 0, fmt.Errorf("collected funds are empty: %w", faults.ErrInsufficientFunds)
	}

	err = s.ledger.Transfer(ctx, domain.FundsHolder(a.ID), asset.MemberHolder(issuer),
		s.currencyID, amount, "issuer proceeds withdrawn", a.ID)
	if err != nil {
		return 0, err
	}
	now := s.clock.Now()
	a.ProceedsWithdrawn += amount
	a.UpdatedAt = now
	if err := s.store.UpdateAnnuity(ctx, a); err != nil {
		return 0, err
	}
	s.log.WithField("annuity_id", a.ID).WithField("amount", amount.String()).Info("proceeds withdrawn")
	s.sink.Emit(events.Event{
		Type:  events.TypeProceedsWithdrawn,
		Actor: issuer,
		Attributes: map[string]interface{}{
			"annuity_id": a.ID,
			"amount":     amount.Float(),
		},
		OccurredAt: now,
	})
	return amount, nil
}

// TimeUntilNextPayout reports how long a unit holder must wait before the
// next claim unlocks. Zero when a payout is already due.
func (s *Service) TimeUntilNextPayout(ctx context.Context, annuityID string) (time.Duration, error) {
	a, err := s.store.GetAnnuity(ctx, annuityID)
	if err != nil {
		return 0, err
	}
	next := a.LastPayout.Add(clock.SecondsPerYear * time.Second)
	wait := next.Sub(s.clock.Now())
	if wait < 0 {
		wait = 0
	}
	return wait, nil
}

// Get returns one instrument.
func (s *Service) Get(ctx context.Context, annuityID string) (*domain.Annuity, error) {
	return s.store.GetAnnuity(ctx, annuityID)
}

// List returns every instrument.
func (s *Service) List(ctx context.Context) ([]*domain.Annuity, error) {
	return s.store.ListAnnuities(ctx)
}

// ListByIssuer returns the issuer's instruments, oldest first.
func (s *Service) ListByIssuer(ctx context.Context, issuer string) ([]*domain.Annuity, error) {
	return s.store.ListAnnuitiesByIssuer(ctx, issuer)
}

// LatestByIssuer returns the issuer's most recent instrument, the one the
// governance purchase path targets. NoSuchIssuer when they have none.
func (s *Service) LatestByIssuer(ctx context.Context, issuer string) (*domain.Annuity, error) {
	list, err := s.store.ListAnnuitiesByIssuer(ctx, issuer)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("issuer %s: %w", issuer, faults.ErrNoSuchIssuer)
	}
	return list[len(list)-1], nil
}
