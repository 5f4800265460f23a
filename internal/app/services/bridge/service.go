// Package bridge implements cross-domain settlement: outbound locks with a
// delay queue for large transfers, replay-protected inbound credits, and the
// remote chain registry.
package bridge

import (
	"context"
	"math/big"
	"time"

	"github.com/Altruva-Group/noori-bank/internal/app/domain/bridge"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/event"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/ledger"
	"github.com/Altruva-Group/noori-bank/internal/app/events"
	"github.com/Altruva-Group/noori-bank/internal/app/guard"
	"github.com/Altruva-Group/noori-bank/internal/app/metrics"
	"github.com/Altruva-Group/noori-bank/internal/app/services/governor"
	"github.com/Altruva-Group/noori-bank/internal/app/storage"
	"github.com/Altruva-Group/noori-bank/internal/app/trust"
	serrors "github.com/Altruva-Group/noori-bank/internal/errors"
	"github.com/Altruva-Group/noori-bank/pkg/logger"
)

// CredentialVerifier checks an account credential before funds lock.
type CredentialVerifier interface {
	VerifyCredential(ctx context.Context, accountID uint64, credential string) error
}

// LockResult reports the outcome of an outbound lock: either the transfer
// released immediately or it entered the delay queue.
type LockResult struct {
	TransferID string
	Queued     bool
	ReadyAt    time.Time
}

// Service executes bridge settlement operations.
type Service struct {
	accounts    storage.AccountStore
	balances    storage.BalanceStore
	store       storage.BridgeStore
	governor    *governor.Service
	guard       *guard.AccountGuard
	credentials CredentialVerifier
	events      *events.Log
	log         *logger.Logger
	now         func() time.Time
}

// New constructs the bridge service.
func New(
	accounts storage.AccountStore,
	balances storage.BalanceStore,
	store storage.BridgeStore,
	gov *governor.Service,
	g *guard.AccountGuard,
	credentials CredentialVerifier,
	evts *events.Log,
	log *logger.Logger,
) *Service {
	if g == nil {
		g = guard.New()
	}
	if evts == nil {
		evts = events.NewLog(0, nil)
	}
	if log == nil {
		log = logger.NewDefault("bridge")
	}
	return &Service{
		accounts:    accounts,
		balances:    balances,
		store:       store,
		governor:    gov,
		guard:       g,
		credentials: credentials,
		events:      evts,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source. Tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// RegisterChain adds or replaces a remote domain. New registrations start
// enabled.
func (s *Service) RegisterChain(ctx context.Context, caller, domain, remoteBridge string) (bridge.Chain, error) {
	if err := s.governor.RequireCapability(ctx, caller, trust.CapBridgeOps); err != nil {
		return bridge.Chain{}, err
	}
	if domain == "" || remoteBridge == "" {
		return bridge.Chain{}, serrors.InvalidFormat("domain and remote bridge are required")
	}
	ch, err := s.store.PutChain(ctx, bridge.Chain{Domain: domain, RemoteBridge: remoteBridge, Enabled: true})
	if err != nil {
		return bridge.Chain{}, err
	}
	s.events.Record(event.Event{Kind: event.KindChainRegistered, Details: map[string]string{"domain": domain, "remote_bridge": remoteBridge}})
	s.log.WithField("domain", domain).Info("chain registered")
	return ch, nil
}

// SetChainEnabled toggles a registered domain.
func (s *Service) SetChainEnabled(ctx context.Context, caller, domain string, enabled bool) (bridge.Chain, error) {
	if err := s.governor.RequireCapability(ctx, caller, trust.CapBridgeOps); err != nil {
		return bridge.Chain{}, err
	}
	ch, err := s.store.GetChain(ctx, domain)
	if err != nil {
		return bridge.Chain{}, err
	}
	ch.Enabled = enabled
	ch, err = s.store.PutChain(ctx, ch)
	if err != nil {
		return bridge.Chain{}, err
	}
	s.events.Record(event.Event{Kind: event.KindChainToggled, Details: map[string]string{"domain": domain, "enabled": boolString(enabled)}})
	return ch, nil
}

// Chains lists the registered remote domains.
func (s *Service) Chains(ctx context.Context) ([]bridge.Chain, error) {
	return s.store.ListChains(ctx)
}

// PendingTransfers lists the unprocessed delay queue.
func (s *Service) PendingTransfers(ctx context.Context) ([]bridge.PendingTransfer, error) {
	return s.store.ListUnprocessedTransfers(ctx)
}

// Lock escrows funds for an outbound transfer. Amounts below the
// large-transfer threshold release immediately; at or above it the transfer
// waits in the delay queue. Re-locking an identical queued transfer returns
// the existing record without moving funds again.
func (s *Service) Lock(ctx context.Context, senderID uint64, credential, asset string, amount *big.Int, targetDomain, targetAddress string, gasBudget uint64) (res LockResult, err error) {
	defer s.observe("bridge_lock", time.Now(), &err)

	if amount == nil || amount.Sign() <= 0 {
		return LockResult{}, serrors.InvalidAmount("amount must be positive")
	}
	if asset == "" {
		return LockResult{}, serrors.InvalidFormat("asset is required")
	}
	if targetAddress == "" {
		return LockResult{}, serrors.InvalidFormat("target address is required")
	}
	if err = s.credentials.VerifyCredential(ctx, senderID, credential); err != nil {
		return LockResult{}, err
	}
	if err = s.governor.RequireActive(ctx); err != nil {
		return LockResult{}, err
	}
	if err = s.governor.RequireNotBlacklisted(ctx, senderID); err != nil {
		return LockResult{}, err
	}

	p, err := s.governor.Params(ctx)
	if err != nil {
		return LockResult{}, err
	}
	if gasBudget < p.MinGasForTransfer {
		return LockResult{}, serrors.InsufficientGas("gas budget %d below minimum %d", gasBudget, p.MinGasForTransfer)
	}

	ch, err := s.store.GetChain(ctx, targetDomain)
	if err != nil {
		if serrors.HasCode(err, serrors.CodeNotFound) {
			return LockResult{}, serrors.UnknownDomain(targetDomain)
		}
		return LockResult{}, err
	}
	if !ch.Enabled {
		return LockResult{}, serrors.DomainDisabled(targetDomain)
	}

	release, err := s.guard.Acquire(senderID)
	if err != nil {
		return LockResult{}, err
	}
	defer release()

	id := bridge.TransferID(senderID, amount, targetDomain, targetAddress)
	existing, err := s.store.GetPendingTransfer(ctx, id)
	switch {
	case err == nil && existing.Processed:
		return LockResult{}, serrors.AlreadyProcessed(id)
	case err == nil:
		return LockResult{TransferID: id, Queued: true, ReadyAt: existing.CreatedAt.Add(p.DelayPeriod)}, nil
	case !serrors.HasCode(err, serrors.CodeNotFound):
		return LockResult{}, err
	}

	bal, err := s.balances.GetBalance(ctx, senderID, asset)
	if err != nil {
		return LockResult{}, err
	}
	if bal.Amount.Cmp(amount) < 0 {
		return LockResult{}, serrors.InsufficientBalance("balance %s below %s", bal.Amount, amount)
	}

	now := s.now()
	bal.Amount = new(big.Int).Sub(bal.Amount, amount)
	bal.UpdatedAt = now

	m := storage.Mutation{
		Balances: []ledger.Balance{bal},
		Pools:    []storage.PoolDelta{{Pool: ledger.PoolBridgeEscrow, Asset: asset, Delta: new(big.Int).Set(amount)}},
	}

	queued := amount.Cmp(p.LargeTransferThreshold) >= 0
	if queued {
		m.Transfers = []bridge.PendingTransfer{{
			ID:            id,
			SenderID:      senderID,
			Asset:         asset,
			Amount:        new(big.Int).Set(amount),
			TargetDomain:  targetDomain,
			TargetAddress: targetAddress,
			CreatedAt:     now,
		}}
	} else {
		// Small transfers settle in the same commit: escrow in, release out.
		m.Pools = append(m.Pools, storage.PoolDelta{Pool: ledger.PoolBridgeEscrow, Asset: asset, Delta: new(big.Int).Neg(amount)})
	}
	if err = s.balances.Apply(ctx, m); err != nil {
		return LockResult{}, err
	}

	details := map[string]string{"transfer_id": id, "target_domain": targetDomain, "target_address": targetAddress}
	s.events.Record(event.Event{Kind: event.KindBridgeLocked, AccountID: senderID, Asset: asset, Amount: amount.String(), Details: details})
	if queued {
		s.events.Record(event.Event{Kind: event.KindBridgeQueued, AccountID: senderID, Asset: asset, Amount: amount.String(), Details: details})
		s.log.WithField("transfer_id", id).Info("large transfer queued")
		return LockResult{TransferID: id, Queued: true, ReadyAt: now.Add(p.DelayPeriod)}, nil
	}
	s.events.Record(event.Event{Kind: event.KindBridgeReleased, AccountID: senderID, Asset: asset, Amount: amount.String(), Details: details})
	s.log.WithField("transfer_id", id).Info("transfer released")
	return LockResult{TransferID: id}, nil
}

// ProcessDelayed releases one queued transfer once its delay has elapsed.
// It stays available while the system is paused so already-committed
// settlements can complete, and each transfer processes exactly once.
func (s *Service) ProcessDelayed(ctx context.Context, transferID string) (err error) {
	defer s.observe("bridge_process_delayed", time.Now(), &err)

	t, err := s.store.GetPendingTransfer(ctx, transferID)
	if err != nil {
		return err
	}
	if t.Processed {
		return serrors.AlreadyProcessed(transferID)
	}

	p, err := s.governor.Params(ctx)
	if err != nil {
		return err
	}
	now := s.now()
	if !t.Processable(now, p.DelayPeriod) {
		return serrors.DelayNotElapsed("transfer %s ready at %s", transferID, t.CreatedAt.Add(p.DelayPeriod))
	}

	t.Processed = true
	t.ProcessedAt = now
	err = s.balances.Apply(ctx, storage.Mutation{
		Pools:     []storage.PoolDelta{{Pool: ledger.PoolBridgeEscrow, Asset: t.Asset, Delta: new(big.Int).Neg(t.Amount)}},
		Transfers: []bridge.PendingTransfer{t},
	})
	if err != nil {
		return err
	}

	s.events.Record(event.Event{
		Kind:      event.KindBridgeReleased,
		AccountID: t.SenderID,
		Asset:     t.Asset,
		Amount:    t.Amount.String(),
		Details:   map[string]string{"transfer_id": t.ID, "target_domain": t.TargetDomain},
	})
	s.log.WithField("transfer_id", t.ID).Info("delayed transfer released")
	return nil
}

// ProcessRemote credits a recipient for a transaction finalized on a remote
// domain. Each remote transaction identifier credits at most once.
func (s *Service) ProcessRemote(ctx context.Context, caller, remoteTxID string, recipientID uint64, asset string, amount *big.Int) (err error) {
	defer s.observe("bridge_process_remote", time.Now(), &err)

	if err = s.governor.RequireCapability(ctx, caller, trust.CapBridgeOps); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return serrors.InvalidAmount("amount must be positive")
	}
	if remoteTxID == "" {
		return serrors.InvalidFormat("remote transaction id is required")
	}
	if err = s.governor.RequireActive(ctx); err != nil {
		return err
	}
	if err = s.governor.RequireNotBlacklisted(ctx, recipientID); err != nil {
		return err
	}
	if _, err = s.accounts.GetAccount(ctx, recipientID); err != nil {
		return err
	}

	credited, err := s.store.ProcessRemoteCredit(ctx, remoteTxID, recipientID, asset, amount)
	if err != nil {
		return err
	}
	if !credited {
		return serrors.AlreadyProcessed(remoteTxID)
	}

	s.events.Record(event.Event{
		Kind:      event.KindRemoteCredited,
		AccountID: recipientID,
		Asset:     asset,
		Amount:    amount.String(),
		Details:   map[string]string{"remote_tx_id": remoteTxID},
	})
	s.log.WithField("remote_tx_id", remoteTxID).Info("remote credit applied")
	return nil
}

func (s *Service) observe(operation string, start time.Time, err *error) {
	metrics.RecordOperation(operation, time.Since(start), *err)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
