package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harshpreetweb3/insurance-dao/internal/app/clock"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/asset"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/money"
	"github.com/harshpreetweb3/insurance-dao/internal/app/faults"
	"github.com/harshpreetweb3/insurance-dao/internal/app/storage/memory"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewManager(memory.NewStore(), clk, nil)
}

func TestMintAndBalance(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	a, err := m.DefineAsset(ctx, asset.KindCurrency, "XRD", "Radix", "")
	require.NoError(t, err)

	require.NoError(t, m.Mint(ctx, "member:alice", a.ID, money.FromUnits(100), "deposit", "t1"))

	bal, err := m.Balance(ctx, "member:alice", a.ID)
	require.NoError(t, err)
	require.Equal(t, money.FromUnits(100), bal)

	held, err := m.HoldsAtLeast(ctx, "member:alice", a.ID, money.FromUnits(100))
	require.NoError(t, err)
	require.True(t, held)
}

func TestTransferAtomicity(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	a, err := m.DefineAsset(ctx, asset.KindCurrency, "XRD", "Radix", "")
	require.NoError(t, err)
	require.NoError(t, m.Mint(ctx, "member:alice", a.ID, money.FromUnits(10), "deposit", "t1"))

	err = m.Transfer(ctx, "member:alice", "member:bob", a.ID, money.FromUnits(25), "payment", "t2")
	require.ErrorIs(t, err, faults.ErrInsufficientFunds)

	// Neither side moved.
	bal, err := m.Balance(ctx, "member:alice", a.ID)
	require.NoError(t, err)
	require.Equal(t, money.FromUnits(10), bal)
	bal, err = m.Balance(ctx, "member:bob", a.ID)
	require.NoError(t, err)
	require.Equal(t, money.Amount(0), bal)

	require.NoError(t, m.Transfer(ctx, "member:alice", "member:bob", a.ID, money.FromUnits(4), "payment", "t3"))
	bal, err = m.Balance(ctx, "member:bob", a.ID)
	require.NoError(t, err)
	require.Equal(t, money.FromUnits(4), bal)
}

func TestWholeOnlyAssets(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	unit, err := m.DefineAsset(ctx, asset.KindUnit, "ANN", "Annuity Unit", "")
	require.NoError(t, err)

	err = m.Mint(ctx, "ann:x:units", unit.ID, money.FromFloat(1.5), "issue", "t1")
	require.ErrorIs(t, err, faults.ErrWrongAssetType)

	require.NoError(t, m.Mint(ctx, "ann:x:units", unit.ID, money.FromUnits(2), "issue", "t2"))
}

func TestEnsureAssetIdempotent(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	first, err := m.EnsureAsset(ctx, "xrd", asset.KindCurrency, "XRD", "Radix")
	require.NoError(t, err)
	second, err := m.EnsureAsset(ctx, "xrd", asset.KindCurrency, "XRD", "Radix")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestJournalByReference(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	a, err := m.DefineAsset(ctx, asset.KindCurrency, "XRD", "Radix", "")
	require.NoError(t, err)
	require.NoError(t, m.Mint(ctx, "member:alice", a.ID, money.FromUnits(5), "deposit", "ref-1"))
	require.NoError(t, m.Mint(ctx, "member:alice", a.ID, money.FromUnits(5), "deposit", "ref-2"))

	entries, err := m.Journal(ctx, "ref-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "deposit", entries[0].Reason)
}
