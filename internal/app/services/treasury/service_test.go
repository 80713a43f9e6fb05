package treasury

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harshpreetweb3/insurance-dao/internal/app/clock"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/asset"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/money"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/org"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/proposal"
	"github.com/harshpreetweb3/insurance-dao/internal/app/events"
	"github.com/harshpreetweb3/insurance-dao/internal/app/faults"
	"github.com/harshpreetweb3/insurance-dao/internal/app/ledger"
	"github.com/harshpreetweb3/insurance-dao/internal/app/storage/memory"
)

type fixture struct {
	svc    *Service
	store  *memory.Store
	ledger *ledger.Manager
	sink   *events.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	led := ledger.NewManager(store, clk, nil)
	_, err := led.EnsureAsset(ctx, "xrd", asset.KindCurrency, "XRD", "Radix")
	require.NoError(t, err)
	sink := events.NewMemory()
	return &fixture{
		svc:    New(store, store, led, clk, sink, "xrd", nil),
		store:  store,
		ledger: led,
		sink:   sink,
	}
}

func (f *fixture) createOrg(t *testing.T) *org.Organization {
	t.Helper()
	o, err := f.svc.CreateOrganization(context.Background(), CreateOrganizationParams{
		Owner:          "alice",
		Name:           "Mutual Cover",
		TokenSupply:    money.FromUnits(100),
		TokenPrice:     money.FromUnits(5),
		BuyBackPrice:   money.FromUnits(4),
		CreationPolicy: org.CreationPolicy{Mode: org.PolicyOpen},
	})
	require.NoError(t, err)
	return o
}

func (f *fixture) balance(t *testing.T, holder, assetID string) money.Amount {
	t.Helper()
	bal, err := f.ledger.Balance(context.Background(), holder, assetID)
	require.NoError(t, err)
	return bal
}

func TestCreateOrganization(t *testing.T) {
	f := newFixture(t)
	o := f.createOrg(t)

	require.NotEmpty(t, o.GovernanceTokenID)
	require.NotEmpty(t, o.OwnerBadgeID)
	require.Equal(t, money.FromUnits(100), f.balance(t, org.ReserveHolder(o.ID), o.GovernanceTokenID))
	require.Equal(t, money.FromUnits(1), f.balance(t, asset.MemberHolder("alice"), o.OwnerBadgeID))
	require.Len(t, f.sink.ByType(events.TypeOrganizationCreated), 1)
}

func TestCreateOrganizationValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOrganization(ctx, CreateOrganizationParams{
		Owner:          "alice",
		Name:           "Bad",
		TokenSupply:    money.FromUnits(10),
		TokenPrice:     money.FromUnits(4),
		BuyBackPrice:   money.FromUnits(5),
		CreationPolicy: org.CreationPolicy{Mode: org.PolicyOpen},
	})
	require.Error(t, err)

	_, err = f.svc.CreateOrganization(ctx, CreateOrganizationParams{
		Owner:          "alice",
		Name:           "Bad",
		TokenSupply:    money.FromUnits(10),
		TokenPrice:     money.FromUnits(5),
		BuyBackPrice:   money.FromUnits(4),
		CreationPolicy: org.CreationPolicy{Mode: org.PolicyThresholdHeld},
	})
	require.Error(t, err)
}

func TestBuySharesExactCost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.createOrg(t)
	require.NoError(t, f.svc.Deposit(ctx, "bob", money.FromUnits(100)))

	change, err := f.svc.BuyShares(ctx, o.ID, "bob", money.FromUnits(60), money.FromUnits(10))
	require.NoError(t, err)
	require.Equal(t, money.FromUnits(10), change)
	require.Equal(t, money.FromUnits(50), f.balance(t, org.TreasuryHolder(o.ID), "xrd"))
	require.Equal(t, money.FromUnits(10), f.balance(t, asset.MemberHolder("bob"), o.GovernanceTokenID))
	require.Equal(t, money.FromUnits(90), f.balance(t, org.ReserveHolder(o.ID), o.GovernanceTokenID))

	_, err = f.svc.BuyShares(ctx, o.ID, "bob", money.FromUnits(1), money.FromUnits(10))
	require.ErrorIs(t, err, faults.ErrInsufficientPayment)

	_, err = f.svc.BuyShares(ctx, o.ID, "bob", money.FromUnits(500), money.FromUnits(95))
	require.ErrorIs(t, err, faults.ErrSoldOut)
}

func TestRedeemShares(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.createOrg(t)
	require.NoError(t, f.svc.Deposit(ctx, "bob", money.FromUnits(100)))
	_, err := f.svc.BuyShares(ctx, o.ID, "bob", money.FromUnits(50), money.FromUnits(10))
	require.NoError(t, err)

	refund, err := f.svc.RedeemShares(ctx, o.ID, "bob", money.FromUnits(2))
	require.NoError(t, err)
	require.Equal(t, money.FromUnits(8), refund)
	require.Equal(t, money.FromUnits(42), f.balance(t, org.TreasuryHolder(o.ID), "xrd"))
	require.Equal(t, money.FromUnits(8), f.balance(t, asset.MemberHolder("bob"), o.GovernanceTokenID))
	require.Equal(t, money.FromUnits(58), f.balance(t, asset.MemberHolder("bob"), "xrd"))
}

func TestRedeemBlockedByOpenProposal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.createOrg(t)
	require.NoError(t, f.svc.Deposit(ctx, "bob", money.FromUnits(100)))
	_, err := f.svc.BuyShares(ctx, o.ID, "bob", money.FromUnits(50), money.FromUnits(10))
	require.NoError(t, err)

	require.NoError(t, f.store.CreateProposal(ctx, &proposal.Proposal{
		ID: 1, OrgID: o.ID, Status: proposal.StatusOpen,
	}))

	_, err = f.svc.RedeemShares(ctx, o.ID, "bob", money.FromUnits(1))
	require.ErrorIs(t, err, faults.ErrActiveProposalsExist)
}

func TestContributeAccumulates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.createOrg(t)
	require.NoError(t, f.svc.Deposit(ctx, "carol", money.FromUnits(100)))

	c, err := f.svc.Contribute(ctx, o.ID, "carol", money.FromUnits(30))
	require.NoError(t, err)
	require.Equal(t, money.FromUnits(30), c.Total)

	c, err = f.svc.Contribute(ctx, o.ID, "carol", money.FromUnits(20))
	require.NoError(t, err)
	require.Equal(t, money.FromUnits(50), c.Total)

	require.Equal(t, money.FromUnits(50), f.balance(t, org.TreasuryHolder(o.ID), "xrd"))

	list, err := f.svc.Contributions(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// Contributions need real funds behind them.
	_, err = f.svc.Contribute(ctx, o.ID, "carol", money.FromUnits(500))
	require.ErrorIs(t, err, faults.ErrInsufficientFunds)
}

func TestTreasuryBalanceAndHoldings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.createOrg(t)
	require.NoError(t, f.svc.Deposit(ctx, "bob", money.FromUnits(100)))
	_, err := f.svc.BuyShares(ctx, o.ID, "bob", money.FromUnits(25), money.FromUnits(5))
	require.NoError(t, err)

	bal, err := f.svc.TreasuryBalance(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, money.FromUnits(25), bal)

	holdings, err := f.svc.MemberHoldings(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, holdings, 2)
}
