package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/asset"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/money"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/org"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/proposal"
	"github.com/harshpreetweb3/insurance-dao/internal/app/faults"
)

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := New(db)
	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)

	currency := &asset.Asset{ID: uuid.NewString(), Kind: asset.KindCurrency, Symbol: "XRD", Name: "Settlement", CreatedAt: now}
	if err := store.CreateAsset(ctx, currency); err != nil {
		t.Fatalf("create asset: %v", err)
	}

	o := &org.Organization{
		ID:                uuid.NewString(),
		Name:              "test dao",
		Owner:             "alice",
		GovernanceTokenID: uuid.NewString(),
		OwnerBadgeID:      uuid.NewString(),
		TokenPrice:        money.FromUnits(5),
		BuyBackPrice:      money.FromUnits(4),
		TokenSupply:       money.FromUnits(100),
		CreationPolicy:    org.CreationPolicy{Mode: org.PolicyOpen},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := store.CreateOrganization(ctx, o); err != nil {
		t.Fatalf("create organization: %v", err)
	}
	got, err := store.GetOrganization(ctx, o.ID)
	if err != nil {
		t.Fatalf("get organization: %v", err)
	}
	if got.TokenPrice != o.TokenPrice || got.CreationPolicy.Mode != org.PolicyOpen {
		t.Fatalf("organization round trip mismatch: %+v", got)
	}

	id, err := store.NextProposalID(ctx, o.ID)
	if err != nil {
		t.Fatalf("next proposal id: %v", err)
	}
	id2, err := store.NextProposalID(ctx, o.ID)
	if err != nil {
		t.Fatalf("next proposal id: %v", err)
	}
	if id2 != id+1 {
		t.Fatalf("proposal ids not sequential: %d then %d", id, id2)
	}

	pr := &proposal.Proposal{
		ID:            id,
		OrgID:         o.ID,
		Kind:          proposal.KindSpendTreasury,
		Proposer:      "alice",
		Weighting:     proposal.WeightedByHolding,
		TargetIssuer:  "bob",
		TargetAmount:  money.FromUnits(50),
		MinimumQuorum: 1,
		StartAt:       now,
		EndAt:         now.Add(time.Hour),
		Status:        proposal.StatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := store.CreateProposal(ctx, pr); err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	pr.Voters = []string{"alice"}
	pr.VotesFor = money.FromUnits(10)
	if err := store.UpdateProposal(ctx, pr); err != nil {
		t.Fatalf("update proposal: %v", err)
	}
	back, err := store.GetProposal(ctx, o.ID, id)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if len(back.Voters) != 1 || back.Voters[0] != "alice" {
		t.Fatalf("voters round trip mismatch: %+v", back.Voters)
	}

	holder := "member:" + uuid.NewString()
	entry := &asset.JournalEntry{
		ID:     uuid.NewString(),
		Reason: "test credit",
		Movements: []asset.Movement{
			{HolderID: holder, AssetID: currency.ID, Amount: money.FromUnits(10)},
		},
		CreatedAt: now,
	}
	if err := store.ApplyEntry(ctx, entry); err != nil {
		t.Fatalf("apply entry: %v", err)
	}

	overdraft := &asset.JournalEntry{
		ID:     uuid.NewString(),
		Reason: "test overdraft",
		Movements: []asset.Movement{
			{HolderID: holder, AssetID: currency.ID, Amount: -money.FromUnits(999)},
		},
		CreatedAt: now,
	}
	if err := store.ApplyEntry(ctx, overdraft); !errors.Is(err, faults.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	h, err := store.GetHolding(ctx, holder, currency.ID)
	if err != nil {
		t.Fatalf("get holding: %v", err)
	}
	if h.Amount != money.FromUnits(10) {
		t.Fatalf("overdraft must not change the balance, got %s", h.Amount)
	}
}
