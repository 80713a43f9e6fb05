package app

import (
	"context"
	"fmt"

	"github.com/harshpreetweb3/insurance-dao/internal/app/clock"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/asset"
	"github.com/harshpreetweb3/insurance-dao/internal/app/events"
	"github.com/harshpreetweb3/insurance-dao/internal/app/ledger"
	annuitysvc "github.com/harshpreetweb3/insurance-dao/internal/app/services/annuity"
	"github.com/harshpreetweb3/insurance-dao/internal/app/services/governance"
	"github.com/harshpreetweb3/insurance-dao/internal/app/services/treasury"
	"github.com/harshpreetweb3/insurance-dao/internal/app/storage"
	"github.com/harshpreetweb3/insurance-dao/internal/app/storage/memory"
	"github.com/harshpreetweb3/insurance-dao/internal/app/system"
	"github.com/harshpreetweb3/insurance-dao/pkg/logger"
)

// CurrencyAssetID is the well-known id of the settlement currency.
const CurrencyAssetID = "xrd"

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Organizations storage.OrganizationStore
	Proposals     storage.ProposalStore
	Annuities     storage.AnnuityStore
	Ledger        storage.LedgerStore
}

// Options tunes optional collaborators. The zero value is a system clock,
// a log-only event sink and the default payout policy.
type Options struct {
	Clock        clock.Clock
	Events       events.Sink
	PayoutPolicy annuitysvc.PayoutPolicy
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Ledger     *ledger.Manager
	Treasury   *treasury.Service
	Governance *governance.Service
	Annuities  *annuitysvc.Service
	Events     events.Sink
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.NewStore()
	if stores.Organizations == nil {
		stores.Organizations = mem
	}
	if stores.Proposals == nil {
		stores.Proposals = mem
	}
	if stores.Annuities == nil {
		stores.Annuities = mem
	}
	if stores.Ledger == nil {
		stores.Ledger = mem
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}
	sink := opts.Events
	if sink == nil {
		sink = events.NewLog(log)
	}

	led := ledger.NewManager(stores.Ledger, clk, log)
	if _, err := led.EnsureAsset(context.Background(), CurrencyAssetID, asset.KindCurrency, "XRD", "Settlement Currency"); err != nil {
		return nil, fmt.Errorf("ensure settlement currency: %w", err)
	}

	annService := annuitysvc.New(stores.Annuities, led, clk, sink, CurrencyAssetID, opts.PayoutPolicy, log)
	treasuryService := treasury.New(stores.Organizations, stores.Proposals, led, clk, sink, CurrencyAssetID, log)
	governanceService := governance.New(stores.Organizations, stores.Proposals, led, annService, clk, sink, CurrencyAssetID, log)

	manager := system.NewManager()
	for _, name := range []string{"ledger", "treasury", "governance", "annuities"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	return &Application{
		manager:    manager,
		log:        log,
		Ledger:     led,
		Treasury:   treasuryService,
		Governance: governanceService,
		Annuities:  annService,
		Events:     sink,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
