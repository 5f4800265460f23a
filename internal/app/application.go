package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Altruva-Group/noori-bank/internal/app/events"
	"github.com/Altruva-Group/noori-bank/internal/app/guard"
	accountssvc "github.com/Altruva-Group/noori-bank/internal/app/services/accounts"
	bridgesvc "github.com/Altruva-Group/noori-bank/internal/app/services/bridge"
	governorsvc "github.com/Altruva-Group/noori-bank/internal/app/services/governor"
	interestsvc "github.com/Altruva-Group/noori-bank/internal/app/services/interest"
	ledgersvc "github.com/Altruva-Group/noori-bank/internal/app/services/ledger"
	lendingsvc "github.com/Altruva-Group/noori-bank/internal/app/services/lending"
	"github.com/Altruva-Group/noori-bank/internal/app/storage"
	"github.com/Altruva-Group/noori-bank/internal/app/storage/memory"
	"github.com/Altruva-Group/noori-bank/internal/app/system"
	"github.com/Altruva-Group/noori-bank/internal/app/trust"
	"github.com/Altruva-Group/noori-bank/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Accounts storage.AccountStore
	Balances storage.BalanceStore
	Loans    storage.LoanStore
	Bridge   storage.BridgeStore
	Params   storage.ParamStore
}

// Options carries the external collaborators and runner settings. Nil
// collaborators fall back to environment-driven or open implementations.
type Options struct {
	Authz  trust.AuthorizationService
	KYC    trust.KYCService
	Oracle lendingsvc.PriceOracle
	Events *events.Log

	AccrualSchedule    string
	BridgePollInterval time.Duration
}

// Application ties the ledger services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Events   *events.Log
	Governor *governorsvc.Service
	Accounts *accountssvc.Service
	Ledger   *ledgersvc.Service
	Interest *interestsvc.Service
	Lending  *lendingsvc.Service
	Bridge   *bridgesvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Accounts == nil {
		stores.Accounts = mem
	}
	if stores.Balances == nil {
		stores.Balances = mem
	}
	if stores.Loans == nil {
		stores.Loans = mem
	}
	if stores.Bridge == nil {
		stores.Bridge = mem
	}
	if stores.Params == nil {
		stores.Params = mem
	}

	if opts.Authz == nil {
		opts.Authz = trust.NewEnvAuthorization()
	}
	if opts.KYC == nil {
		opts.KYC = trust.OpenKYC{}
	}
	if opts.Oracle == nil {
		log.Warn("no price oracle configured; lending operations will reject until one is attached")
		opts.Oracle = lendingsvc.NewStaticOracle(nil, time.Time{})
	}
	if opts.Events == nil {
		opts.Events = events.NewLog(0, nil)
	}

	manager := system.NewManager()
	accountGuard := guard.New()

	govService := governorsvc.New(stores.Params, opts.Authz, opts.Events, log)
	acctService := accountssvc.New(stores.Accounts, opts.Events, log)
	interestService := interestsvc.New(stores.Accounts, stores.Balances, stores.Params, accountGuard, opts.Events, log)
	ledgerService := ledgersvc.New(stores.Accounts, stores.Balances, govService, accountGuard, acctService, interestService, opts.KYC, opts.Events, log)
	lendingService := lendingsvc.New(stores.Balances, stores.Loans, govService, accountGuard, acctService, opts.Oracle, opts.Events, log)
	bridgeService := bridgesvc.New(stores.Accounts, stores.Balances, stores.Bridge, govService, accountGuard, acctService, opts.Events, log)

	for _, name := range []string{"governor", "accounts", "ledger", "lending"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	sweeper := interestsvc.NewSweeper(interestService, opts.AccrualSchedule, log)
	poller := bridgesvc.NewPoller(bridgeService, opts.BridgePollInterval, log)
	for _, svc := range []system.Service{sweeper, poller} {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}

	return &Application{
		manager:  manager,
		log:      log,
		Events:   opts.Events,
		Governor: govService,
		Accounts: acctService,
		Ledger:   ledgerService,
		Interest: interestService,
		Lending:  lendingService,
		Bridge:   bridgeService,
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
