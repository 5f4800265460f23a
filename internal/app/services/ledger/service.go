// Package ledger implements the custodial balance operations: deposits,
// credential-gated withdrawals, memo-addressable transfers, and the fee
// sweep. Every mutation is checked fully before any state changes and is
// committed as one storage mutation.
package ledger

import (
	"context"
	"math/big"
	"time"

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

// CredentialVerifier checks an account credential before value leaves the
// account.
type CredentialVerifier interface {
	VerifyCredential(ctx context.Context, accountID uint64, credential string) error
}

// Accruer settles pending savings interest on a balance before it changes.
// The ledger holds the account guard when it calls, so the accruer must not
// re-acquire it.
type Accruer interface {
	AccrueHeld(ctx context.Context, accountID uint64, asset string) error
}

// Service executes balance operations against the custodial ledger.
type Service struct {
	accounts    storage.AccountStore
	balances    storage.BalanceStore
	governor    *governor.Service
	guard       *guard.AccountGuard
	credentials CredentialVerifier
	accruer     Accruer
	kyc         trust.KYCService
	events      *events.Log
	log         *logger.Logger
}

// New constructs the ledger service. accruer may be nil, in which case
// balances change without interest settlement.
func New(
	accounts storage.AccountStore,
	balances storage.BalanceStore,
	gov *governor.Service,
	g *guard.AccountGuard,
	credentials CredentialVerifier,
	accruer Accruer,
	kyc trust.KYCService,
	evts *events.Log,
	log *logger.Logger,
) *Service {
	if g == nil {
		g = guard.New()
	}
	if kyc == nil {
		kyc = trust.OpenKYC{}
	}
	if evts == nil {
		evts = events.NewLog(0, nil)
	}
	if log == nil {
		log = logger.NewDefault("ledger")
	}
	return &Service{
		accounts:    accounts,
		balances:    balances,
		governor:    gov,
		guard:       g,
		credentials: credentials,
		accruer:     accruer,
		kyc:         kyc,
		events:      evts,
		log:         log,
	}
}

// Balance returns the account's balance in one asset, zero when never held.
func (s *Service) Balance(ctx context.Context, accountID uint64, asset string) (ledger.Balance, error) {
	return s.balances.GetBalance(ctx, accountID, asset)
}

// Balances returns every asset balance the account holds.
func (s *Service) Balances(ctx context.Context, accountID uint64) ([]ledger.Balance, error) {
	return s.balances.ListBalances(ctx, accountID)
}

// FeePool returns the accumulated fees for one asset.
func (s *Service) FeePool(ctx context.Context, asset string) (*big.Int, error) {
	return s.balances.PoolBalance(ctx, ledger.PoolFees, asset)
}

// Deposit credits the account with custodied funds. Deposits carry no fee.
func (s *Service) Deposit(ctx context.Context, accountID uint64, asset string, amount *big.Int) (err error) {
	defer s.observe("deposit", time.Now(), &err)

	if err = validAmount(amount); err != nil {
		return err
	}
	if asset == "" {
		return serrors.InvalidFormat("asset is required")
	}
	if err = s.governor.RequireActive(ctx); err != nil {
		return err
	}
	if err = s.governor.RequireNotBlacklisted(ctx, accountID); err != nil {
		return err
	}
	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if err = s.checkLimit(ctx, acct.Identity, "deposit", amount); err != nil {
		return err
	}

	release, err := s.guard.Acquire(accountID)
	if err != nil {
		return err
	}
	defer release()

	if err = s.accrue(ctx, accountID, asset); err != nil {
		return err
	}

	bal, err := s.balances.GetBalance(ctx, accountID, asset)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	bal.AccountID = accountID
	bal.Asset = asset
	bal.Amount = new(big.Int).Add(bal.Amount, amount)
	if bal.LastAccrual.IsZero() {
		bal.LastAccrual = now
	}
	bal.UpdatedAt = now

	if err = s.balances.Apply(ctx, storage.Mutation{Balances: []ledger.Balance{bal}}); err != nil {
		return err
	}

	s.events.Record(event.Event{Kind: event.KindDeposit, AccountID: accountID, Asset: asset, Amount: amount.String()})
	s.log.WithField("account_id", accountID).WithField("asset", asset).Info("deposit credited")
	return nil
}

// Withdraw debits the account after verifying its credential. The
// withdrawal fee is charged on top of the requested amount and moved to the
// fee pool.
func (s *Service) Withdraw(ctx context.Context, accountID uint64, credential, asset string, amount *big.Int) (err error) {
	defer s.observe("withdraw", time.Now(), &err)

	if err = validAmount(amount); err != nil {
		return err
	}
	if err = s.credentials.VerifyCredential(ctx, accountID, credential); err != nil {
		return err
	}
	if err = s.governor.RequireWithdrawalsActive(ctx); err != nil {
		return err
	}
	if err = s.governor.RequireNotBlacklisted(ctx, accountID); err != nil {
		return err
	}
	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if err = s.checkLimit(ctx, acct.Identity, "withdraw", amount); err != nil {
		return err
	}

	release, err := s.guard.Acquire(accountID)
	if err != nil {
		return err
	}
	defer release()

	if err = s.accrue(ctx, accountID, asset); err != nil {
		return err
	}

	fees, err := s.governor.Fees(ctx)
	if err != nil {
		return err
	}
	fee := FeeFor(amount, fees.WithdrawalFeeBps)
	total := new(big.Int).Add(amount, fee)

	bal, err := s.balances.GetBalance(ctx, accountID, asset)
	if err != nil {
		return err
	}
	if bal.Amount.Cmp(total) < 0 {
		return serrors.InsufficientBalance("balance %s below %s (amount %s plus fee %s)", bal.Amount, total, amount, fee)
	}

	now := time.Now().UTC()
	bal.Amount = new(big.Int).Sub(bal.Amount, total)
	bal.UpdatedAt = now

	m := storage.Mutation{Balances: []ledger.Balance{bal}}
	if fee.Sign() > 0 {
		m.Pools = []storage.PoolDelta{{Pool: ledger.PoolFees, Asset: asset, Delta: fee}}
	}
	if err = s.balances.Apply(ctx, m); err != nil {
		return err
	}

	s.events.Record(event.Event{
		Kind:      event.KindWithdraw,
		AccountID: accountID,
		Asset:     asset,
		Amount:    amount.String(),
		Details:   map[string]string{"fee": fee.String()},
	})
	s.log.WithField("account_id", accountID).WithField("asset", asset).Info("withdrawal debited")
	return nil
}

// Transfer moves funds between two accounts. The transfer fee is charged to
// the sender on top of the amount; the recipient receives the full amount.
func (s *Service) Transfer(ctx context.Context, senderID uint64, credential string, recipientID uint64, asset string, amount *big.Int) (err error) {
	defer s.observe("transfer", time.Now(), &err)

	if err = validAmount(amount); err != nil {
		return err
	}
	if senderID == recipientID {
		return serrors.SelfTransfer()
	}
	if err = s.credentials.VerifyCredential(ctx, senderID, credential); err != nil {
		return err
	}
	if err = s.governor.RequireTransfersActive(ctx); err != nil {
		return err
	}
	if err = s.governor.RequireNotBlacklisted(ctx, senderID); err != nil {
		return err
	}
	if err = s.governor.RequireNotBlacklisted(ctx, recipientID); err != nil {
		return err
	}
	sender, err := s.accounts.GetAccount(ctx, senderID)
	if err != nil {
		return err
	}
	if _, err = s.accounts.GetAccount(ctx, recipientID); err != nil {
		return err
	}
	if err = s.checkLimit(ctx, sender.Identity, "transfer", amount); err != nil {
		return err
	}

	release, err := s.guard.Acquire(senderID, recipientID)
	if err != nil {
		return err
	}
	defer release()

	if err = s.accrue(ctx, senderID, asset); err != nil {
		return err
	}
	if err = s.accrue(ctx, recipientID, asset); err != nil {
		return err
	}

	fees, err := s.governor.Fees(ctx)
	if err != nil {
		return err
	}
	fee := FeeFor(amount, fees.TransferFeeBps)
	total := new(big.Int).Add(amount, fee)

	from, err := s.balances.GetBalance(ctx, senderID, asset)
	if err != nil {
		return err
	}
	if from.Amount.Cmp(total) < 0 {
		return serrors.InsufficientBalance("balance %s below %s (amount %s plus fee %s)", from.Amount, total, amount, fee)
	}
	to, err := s.balances.GetBalance(ctx, recipientID, asset)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	from.Amount = new(big.Int).Sub(from.Amount, total)
	from.UpdatedAt = now
	to.AccountID = recipientID
	to.Asset = asset
	to.Amount = new(big.Int).Add(to.Amount, amount)
	if to.LastAccrual.IsZero() {
		to.LastAccrual = now
	}
	to.UpdatedAt = now

	m := storage.Mutation{Balances: []ledger.Balance{from, to}}
	if fee.Sign() > 0 {
		m.Pools = []storage.PoolDelta{{Pool: ledger.PoolFees, Asset: asset, Delta: fee}}
	}
	if err = s.balances.Apply(ctx, m); err != nil {
		return err
	}

	s.events.Record(event.Event{
		Kind:      event.KindTransfer,
		AccountID: senderID,
		Asset:     asset,
		Amount:    amount.String(),
		Details:   map[string]string{"recipient": formatID(recipientID), "fee": fee.String()},
	})
	s.log.WithField("sender_id", senderID).WithField("recipient_id", recipientID).Info("transfer settled")
	return nil
}

// ResolveRecipient maps a memo alias to its owning account ID.
func (s *Service) ResolveRecipient(ctx context.Context, memo string) (uint64, error) {
	return s.accounts.ResolveMemo(ctx, memo)
}

// SweepFees moves the accumulated fee pool for one asset to the recipient
// account. The caller needs the fee-sweep capability.
func (s *Service) SweepFees(ctx context.Context, caller string, asset string, recipientID uint64) (swept *big.Int, err error) {
	defer s.observe("sweep_fees", time.Now(), &err)

	if err = s.governor.RequireCapability(ctx, caller, trust.CapSweepFees); err != nil {
		return nil, err
	}
	if _, err = s.accounts.GetAccount(ctx, recipientID); err != nil {
		return nil, err
	}

	release, err := s.guard.Acquire(recipientID)
	if err != nil {
		return nil, err
	}
	defer release()

	pool, err := s.balances.PoolBalance(ctx, ledger.PoolFees, asset)
	if err != nil {
		return nil, err
	}
	if pool.Sign() == 0 {
		return new(big.Int), nil
	}

	bal, err := s.balances.GetBalance(ctx, recipientID, asset)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	bal.AccountID = recipientID
	bal.Asset = asset
	bal.Amount = new(big.Int).Add(bal.Amount, pool)
	if bal.LastAccrual.IsZero() {
		bal.LastAccrual = now
	}
	bal.UpdatedAt = now

	err = s.balances.Apply(ctx, storage.Mutation{
		Balances: []ledger.Balance{bal},
		Pools:    []storage.PoolDelta{{Pool: ledger.PoolFees, Asset: asset, Delta: new(big.Int).Neg(pool)}},
	})
	if err != nil {
		return nil, err
	}

	s.events.Record(event.Event{Kind: event.KindFeesSwept, AccountID: recipientID, Asset: asset, Amount: pool.String()})
	s.log.WithField("asset", asset).WithField("recipient_id", recipientID).Info("fee pool swept")
	return pool, nil
}

// FeeFor computes a basis-point fee, rounding down.
func FeeFor(amount *big.Int, bps uint64) *big.Int {
	fee := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return fee.Div(fee, big.NewInt(ledger.MaxBps))
}

func (s *Service) accrue(ctx context.Context, accountID uint64, asset string) error {
	if s.accruer == nil {
		return nil
	}
	return s.accruer.AccrueHeld(ctx, accountID, asset)
}

func (s *Service) checkLimit(ctx context.Context, identity, operation string, amount *big.Int) error {
	ok, err := s.kyc.CheckLimit(ctx, identity, operation, amount)
	if err != nil {
		return err
	}
	if !ok {
		return serrors.LimitExceeded("%s of %s exceeds the limit for %s", operation, amount, identity)
	}
	return nil
}

func (s *Service) observe(operation string, start time.Time, err *error) {
	metrics.RecordOperation(operation, time.Since(start), *err)
}

func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return serrors.InvalidAmount("amount must be positive")
	}
	return nil
}

func formatID(id uint64) string {
	return new(big.Int).SetUint64(id).String()
}
