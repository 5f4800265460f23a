package bridge

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/Altruva-Group/noori-bank/internal/app/domain/bridge"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/ledger"
	"github.com/Altruva-Group/noori-bank/internal/app/services/accounts"
	"github.com/Altruva-Group/noori-bank/internal/app/services/governor"
	"github.com/Altruva-Group/noori-bank/internal/app/storage"
	"github.com/Altruva-Group/noori-bank/internal/app/storage/memory"
	"github.com/Altruva-Group/noori-bank/internal/app/trust"
	serrors "github.com/Altruva-Group/noori-bank/internal/errors"
)

const gasOK = 200_000

type fixture struct {
	store  *memory.Store
	authz  *trust.StaticAuthorization
	bridge *Service
	alice  uint64
	now    time.Time
}

// newFixture seeds alice with 1,000,000 USD and registers the "neo-n3"
// domain. The default large-transfer threshold is 100,000 with a 24h delay.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	authz := trust.NewStaticAuthorization()
	authz.Grant("bridge-ops", trust.CapBridgeOps)
	gov := governor.New(store, authz, nil, nil)
	reg := accounts.New(store, nil, nil)

	acct, err := reg.Create(ctx, "alice", "alice-pw", "alice-rk")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	err = store.Apply(ctx, storage.Mutation{Balances: []ledger.Balance{{
		AccountID:   acct.ID,
		Asset:       "USD",
		Amount:      big.NewInt(1_000_000),
		LastAccrual: time.Now().UTC(),
	}}})
	if err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	f := &fixture{
		store: store,
		authz: authz,
		alice: acct.ID,
		now:   time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}
	f.bridge = New(store, store, store, gov, nil, reg, nil, nil)
	f.bridge.SetClock(func() time.Time { return f.now })

	if _, err := f.bridge.RegisterChain(ctx, "bridge-ops", "neo-n3", "0xbridge"); err != nil {
		t.Fatalf("register chain: %v", err)
	}
	return f
}

func (f *fixture) balance(t *testing.T) *big.Int {
	t.Helper()
	bal, err := f.store.GetBalance(context.Background(), f.alice, "USD")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal.Amount
}

func (f *fixture) escrow(t *testing.T) *big.Int {
	t.Helper()
	amt, err := f.store.PoolBalance(context.Background(), ledger.PoolBridgeEscrow, "USD")
	if err != nil {
		t.Fatalf("escrow: %v", err)
	}
	return amt
}

func TestLockSmallReleasesImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.bridge.Lock(ctx, f.alice, "alice-pw", "USD", big.NewInt(50_000), "neo-n3", "NAddr1", gasOK)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if res.Queued {
		t.Fatal("sub-threshold transfer must not queue")
	}
	if res.TransferID != bridge.TransferID(f.alice, big.NewInt(50_000), "neo-n3", "NAddr1") {
		t.Fatalf("unexpected transfer id %s", res.TransferID)
	}
	if got := f.balance(t); got.Cmp(big.NewInt(950_000)) != 0 {
		t.Fatalf("balance: %s", got)
	}
	if got := f.escrow(t); got.Sign() != 0 {
		t.Fatalf("escrow should settle in the same commit: %s", got)
	}
	pending, _ := f.bridge.PendingTransfers(ctx)
	if len(pending) != 0 {
		t.Fatalf("expected empty queue, got %d", len(pending))
	}
}

func TestLockLargeQueuesAndDeduplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.bridge.Lock(ctx, f.alice, "alice-pw", "USD", big.NewInt(100_000), "neo-n3", "NAddr1", gasOK)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if !res.Queued {
		t.Fatal("threshold transfer must queue")
	}
	if want := f.now.Add(24 * time.Hour); !res.ReadyAt.Equal(want) {
		t.Fatalf("ready at %v, want %v", res.ReadyAt, want)
	}
	if got := f.escrow(t); got.Cmp(big.NewInt(100_000)) != 0 {
		t.Fatalf("escrow: %s", got)
	}

	// Same quadruple again: same record, no second debit.
	dup, err := f.bridge.Lock(ctx, f.alice, "alice-pw", "USD", big.NewInt(100_000), "neo-n3", "NAddr1", gasOK)
	if err != nil {
		t.Fatalf("duplicate lock: %v", err)
	}
	if dup.TransferID != res.TransferID || !dup.Queued {
		t.Fatalf("duplicate should return the queued record: %+v", dup)
	}
	if got := f.balance(t); got.Cmp(big.NewInt(900_000)) != 0 {
		t.Fatalf("duplicate must not debit again: %s", got)
	}
	pending, _ := f.bridge.PendingTransfers(ctx)
	if len(pending) != 1 {
		t.Fatalf("expected one queued transfer, got %d", len(pending))
	}
}

func TestLockGates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	amount := big.NewInt(1000)

	if _, err := f.bridge.Lock(ctx, f.alice, "alice-pw", "", amount, "neo-n3", "NAddr1", gasOK); !serrors.HasCode(err, serrors.CodeInvalidFormat) {
		t.Fatalf("expected InvalidFormat for empty asset, got %v", err)
	}
	if _, err := f.bridge.Lock(ctx, f.alice, "alice-pw", "USD", amount, "neo-n3", "NAddr1", 99_999); !serrors.HasCode(err, serrors.CodeInsufficientGas) {
		t.Fatalf("expected InsufficientGas, got %v", err)
	}
	if _, err := f.bridge.Lock(ctx, f.alice, "wrong-pw", "USD", amount, "neo-n3", "NAddr1", gasOK); !serrors.HasCode(err, serrors.CodeAuthFailed) {
		t.Fatalf("expected AuthFailed, got %v", err)
	}
	if _, err := f.bridge.Lock(ctx, f.alice, "alice-pw", "USD", amount, "no-such-chain", "NAddr1", gasOK); !serrors.HasCode(err, serrors.CodeUnknownDomain) {
		t.Fatalf("expected UnknownDomain, got %v", err)
	}

	if _, err := f.bridge.SetChainEnabled(ctx, "bridge-ops", "neo-n3", false); err != nil {
		t.Fatalf("disable chain: %v", err)
	}
	if _, err := f.bridge.Lock(ctx, f.alice, "alice-pw", "USD", amount, "neo-n3", "NAddr1", gasOK); !serrors.HasCode(err, serrors.CodeDomainDisabled) {
		t.Fatalf("expected DomainDisabled, got %v", err)
	}
	if _, err := f.bridge.SetChainEnabled(ctx, "bridge-ops", "neo-n3", true); err != nil {
		t.Fatalf("enable chain: %v", err)
	}

	if err := f.store.SetSystemStatus(ctx, ledger.SystemStatus{Paused: true}); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := f.bridge.Lock(ctx, f.alice, "alice-pw", "USD", amount, "neo-n3", "NAddr1", gasOK); !serrors.HasCode(err, serrors.CodeSystemPaused) {
		t.Fatalf("expected SystemPaused, got %v", err)
	}
}

func TestProcessDelayed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.bridge.Lock(ctx, f.alice, "alice-pw", "USD", big.NewInt(100_000), "neo-n3", "NAddr1", gasOK)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	if err := f.bridge.ProcessDelayed(ctx, "no-such-transfer"); !serrors.HasCode(err, serrors.CodeNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}

	f.now = f.now.Add(23 * time.Hour)
	if err := f.bridge.ProcessDelayed(ctx, res.TransferID); !serrors.HasCode(err, serrors.CodeDelayNotElapsed) {
		t.Fatalf("expected DelayNotElapsed, got %v", err)
	}

	// A paused system still completes already-queued settlements.
	if err := f.store.SetSystemStatus(ctx, ledger.SystemStatus{Paused: true}); err != nil {
		t.Fatalf("pause: %v", err)
	}
	f.now = f.now.Add(time.Hour)
	if err := f.bridge.ProcessDelayed(ctx, res.TransferID); err != nil {
		t.Fatalf("process after delay while paused: %v", err)
	}
	if got := f.escrow(t); got.Sign() != 0 {
		t.Fatalf("escrow should release: %s", got)
	}

	if err := f.bridge.ProcessDelayed(ctx, res.TransferID); !serrors.HasCode(err, serrors.CodeAlreadyProcessed) {
		t.Fatalf("expected AlreadyProcessed, got %v", err)
	}
}

func TestProcessRemote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.bridge.ProcessRemote(ctx, "nobody", "remote-tx-1", f.alice, "USD", big.NewInt(500)); !serrors.HasCode(err, serrors.CodeForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}

	if err := f.bridge.ProcessRemote(ctx, "bridge-ops", "remote-tx-1", f.alice, "USD", big.NewInt(500)); err != nil {
		t.Fatalf("process remote: %v", err)
	}
	if got := f.balance(t); got.Cmp(big.NewInt(1_000_500)) != 0 {
		t.Fatalf("balance after credit: %s", got)
	}

	if err := f.bridge.ProcessRemote(ctx, "bridge-ops", "remote-tx-1", f.alice, "USD", big.NewInt(500)); !serrors.HasCode(err, serrors.CodeAlreadyProcessed) {
		t.Fatalf("expected AlreadyProcessed, got %v", err)
	}
	if got := f.balance(t); got.Cmp(big.NewInt(1_000_500)) != 0 {
		t.Fatalf("replay must not credit twice: %s", got)
	}
}

func TestPollerSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.bridge.Lock(ctx, f.alice, "alice-pw", "USD", big.NewInt(100_000), "neo-n3", "NAddr1", gasOK)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	poller := NewPoller(f.bridge, time.Minute, nil)
	poller.Sweep(ctx)
	if got, _ := f.store.GetPendingTransfer(ctx, res.TransferID); got.Processed {
		t.Fatal("sweep must not release before the delay")
	}

	f.now = f.now.Add(25 * time.Hour)
	poller.Sweep(ctx)
	if got, _ := f.store.GetPendingTransfer(ctx, res.TransferID); !got.Processed {
		t.Fatal("sweep should release after the delay")
	}
}
