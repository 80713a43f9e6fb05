// Package ledger provides the double-entry value-movement layer used by
// every service. All balances in the system live here; services move value
// through journal entries and never track amounts on their own records.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harshpreetweb3/insurance-dao/internal/app/clock"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/asset"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/money"
	"github.com/harshpreetweb3/insurance-dao/internal/app/faults"
	"github.com/harshpreetweb3/insurance-dao/internal/app/metrics"
	"github.com/harshpreetweb3/insurance-dao/internal/app/storage"
	"github.com/harshpreetweb3/insurance-dao/pkg/logger"
)

// Authorizer answers holding-based permission checks for governance policy.
type Authorizer interface {
	HoldsAtLeast(ctx context.Context, holderID, assetID string, min money.Amount) (bool, error)
}

// Manager validates and journals movements on top of a LedgerStore. One
// mutex serializes entries so validate-then-commit stays race free.
type Manager struct {
	mu    sync.Mutex
	store storage.LedgerStore
	clock clock.Clock
	log   *logger.Logger
}

var _ Authorizer = (*Manager)(nil)

// NewManager wires a Manager. A nil clock falls back to the system clock,
// a nil logger to the default one.
func NewManager(store storage.LedgerStore, clk clock.Clock, log *logger.Logger) *Manager {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = logger.NewDefault("ledger")
	}
	return &Manager{store: store, clock: clk, log: log}
}

// DefineAsset registers a new asset and returns it.
func (m *Manager) DefineAsset(ctx context.Context, kind asset.Kind, symbol, name, orgID string) (*asset.Asset, error) {
	a := &asset.Asset{
		ID:        uuid.NewString(),
		Kind:      kind,
		Symbol:    symbol,
		Name:      name,
		OrgID:     orgID,
		CreatedAt: m.clock.Now(),
	}
	if err := m.store.CreateAsset(ctx, a); err != nil {
		return nil, fmt.Errorf("define asset: %w", err)
	}
	m.log.WithField("asset_id", a.ID).WithField("kind", string(kind)).Debug("asset defined")
	return a, nil
}

// EnsureAsset returns the asset with the given id, creating it when it does
// not exist yet. Used for well-known assets such as the settlement currency.
func (m *Manager) EnsureAsset(ctx context.Context, id string, kind asset.Kind, symbol, name string) (*asset.Asset, error) {
	a, err := m.store.GetAsset(ctx, id)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, faults.ErrNotFound) {
		return nil, err
	}
	a = &asset.Asset{
		ID:        id,
		Kind:      kind,
		Symbol:    symbol,
		Name:      name,
		CreatedAt: m.clock.Now(),
	}
	if err := m.store.CreateAsset(ctx, a); err != nil {
		return nil, fmt.Errorf("ensure asset %s: %w", id, err)
	}
	return a, nil
}

// Balance returns the holder's current amount of the asset.
func (m *Manager) Balance(ctx context.Context, holderID, assetID string) (money.Amount, error) {
	h, err := m.store.GetHolding(ctx, holderID, assetID)
	if err != nil {
		return 0, err
	}
	return h.Amount, nil
}

// HoldsAtLeast reports whether the holder's balance meets the minimum.
func (m *Manager) HoldsAtLeast(ctx context.Context, holderID, assetID string, min money.Amount) (bool, error) {
	bal, err := m.Balance(ctx, holderID, assetID)
	if err != nil {
		return false, err
	}
	return bal >= min, nil
}

// Holdings lists the holder's non-zero balances.
func (m *Manager) Holdings(ctx context.Context, holderID string) ([]*asset.Holding, error) {
	return m.store.ListHoldings(ctx, holderID)
}

// Mint credits freshly created value to a holder. Used for external
// deposits and for governance-token supply.
func (m *Manager) Mint(ctx context.Context, holderID, assetID string, amount money.Amount, reason, reference string) error {
	if amount <= 0 {
		return fmt.Errorf("mint amount must be positive: %w", faults.ErrInsufficientFunds)
	}
	return m.Apply(ctx, reason, reference, []asset.Movement{
		{HolderID: holderID, AssetID: assetID, Amount: amount},
	})
}

// Transfer moves amount from one holder to another in a single entry.
func (m *Manager) Transfer(ctx context.Context, from, to, assetID string, amount money.Amount, reason, reference string) error {
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive: %w", faults.ErrInsufficientFunds)
	}
	return m.Apply(ctx, reason, reference, []asset.Movement{
		{HolderID: from, AssetID: assetID, Amount: -amount},
		{HolderID: to, AssetID: assetID, Amount: amount},
	})
}

// Apply journals the movements atomically. Whole-only assets reject
// fractional amounts, and no balance may go negative.
func (m *Manager) Apply(ctx context.Context, reason, reference string, movements []asset.Movement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, mv := range movements {
		a, err := m.store.GetAsset(ctx, mv.AssetID)
		if err != nil {
			return err
		}
		if !a.Kind.Divisible() && !mv.Amount.IsWhole() {
			return fmt.Errorf("asset %s is whole-only: %w", a.ID, faults.ErrWrongAssetType)
		}
	}

	e := &asset.JournalEntry{
		ID:        uuid.NewString(),
		Reason:    reason,
		Reference: reference,
		Movements: movements,
		CreatedAt: m.clock.Now(),
	}
	if err := m.store.ApplyEntry(ctx, e); err != nil {
		return fmt.Errorf("apply %s: %w", reason, err)
	}
	metrics.RecordLedgerEntry()
	m.log.WithField("entry_id", e.ID).WithField("reason", reason).Debug("entry applied")
	return nil
}

// Journal lists entries, optionally filtered by reference.
func (m *Manager) Journal(ctx context.Context, reference string) ([]*asset.JournalEntry, error) {
	return m.store.ListJournal(ctx, reference)
}

// Now exposes the manager's clock for callers that timestamp records.
func (m *Manager) Now() time.Time { return m.clock.Now() }
