package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/annuity"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/asset"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/money"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/org"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/proposal"
	"github.com/harshpreetweb3/insurance-dao/internal/app/faults"
)

func TestOrganizationRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	o := &org.Organization{ID: "o1", Name: "Mutual", Owner: "alice"}
	require.NoError(t, s.CreateOrganization(ctx, o))

	got, err := s.GetOrganization(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, "Mutual", got.Name)

	// Reads are clones; mutating the result must not leak into the store.
	got.Name = "changed"
	again, err := s.GetOrganization(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, "Mutual", again.Name)

	_, err = s.GetOrganization(ctx, "missing")
	require.ErrorIs(t, err, faults.ErrNotFound)
}

func TestProposalSequencePerOrg(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	id1, err := s.NextProposalID(ctx, "o1")
	require.NoError(t, err)
	id2, err := s.NextProposalID(ctx, "o1")
	require.NoError(t, err)
	other, err := s.NextProposalID(ctx, "o2")
	require.NoError(t, err)

	require.Equal(t, int64(1), id1)
	require.Equal(t, int64(2), id2)
	require.Equal(t, int64(1), other)
}

func TestProposalLookup(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	pr := &proposal.Proposal{ID: 1, OrgID: "o1", Status: proposal.StatusOpen}
	require.NoError(t, s.CreateProposal(ctx, pr))

	_, err := s.GetProposal(ctx, "o1", 2)
	require.ErrorIs(t, err, faults.ErrNoSuchProposal)

	got, err := s.GetProposal(ctx, "o1", 1)
	require.NoError(t, err)
	require.Equal(t, proposal.StatusOpen, got.Status)
}

func TestAnnuityRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := &annuity.Annuity{
		ID:         "a1",
		Issuer:     "issuer",
		Status:     annuity.StatusListed,
		LastPayout: issued,
		Terms: annuity.Terms{
			Principal:    money.FromUnits(1000),
			IssuedAt:     issued,
			MaturityDate: issued.AddDate(5, 0, 0),
		},
	}
	require.NoError(t, s.CreateAnnuity(ctx, a))

	got, err := s.GetAnnuity(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, issued, got.LastPayout)

	// Reads are clones; mutating the result must not leak into the store.
	got.Status = annuity.StatusDefaulted
	got.LastPayout = issued.AddDate(1, 0, 0)
	again, err := s.GetAnnuity(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, annuity.StatusListed, again.Status)
	require.Equal(t, issued, again.LastPayout)

	byIssuer, err := s.ListAnnuitiesByIssuer(ctx, "issuer")
	require.NoError(t, err)
	require.Len(t, byIssuer, 1)

	_, err = s.GetAnnuity(ctx, "missing")
	require.ErrorIs(t, err, faults.ErrNotFound)
}

func TestApplyEntryAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	a := &asset.Asset{ID: "xrd", Kind: asset.KindCurrency, CreatedAt: time.Now()}
	require.NoError(t, s.CreateAsset(ctx, a))

	credit := &asset.JournalEntry{ID: "e1", Movements: []asset.Movement{
		{HolderID: "member:alice", AssetID: "xrd", Amount: money.FromUnits(10)},
	}}
	require.NoError(t, s.ApplyEntry(ctx, credit))

	// One overdrawing movement fails the whole entry.
	bad := &asset.JournalEntry{ID: "e2", Movements: []asset.Movement{
		{HolderID: "member:alice", AssetID: "xrd", Amount: money.FromUnits(-25)},
		{HolderID: "member:bob", AssetID: "xrd", Amount: money.FromUnits(25)},
	}}
	require.ErrorIs(t, s.ApplyEntry(ctx, bad), faults.ErrInsufficientFunds)

	h, err := s.GetHolding(ctx, "member:alice", "xrd")
	require.NoError(t, err)
	require.Equal(t, money.FromUnits(10), h.Amount)
	h, err = s.GetHolding(ctx, "member:bob", "xrd")
	require.NoError(t, err)
	require.Equal(t, money.Amount(0), h.Amount)

	entries, err := s.ListJournal(ctx, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestGetHoldingUnknownAsset(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.GetHolding(ctx, "member:alice", "ghost")
	require.ErrorIs(t, err, faults.ErrNotFound)
}
