// Package interest applies daily-compounding savings interest to custodied
// balances. Accrual is lazy: balances earn per whole elapsed day since their
// accrual anchor, and the sub-day remainder carries forward untouched.
package interest

import (
	"context"
	"math/big"
	"time"

	"github.com/Altruva-Group/noori-bank/internal/app/domain/event"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/ledger"
	"github.com/Altruva-Group/noori-bank/internal/app/events"
	"github.com/Altruva-Group/noori-bank/internal/app/guard"
	"github.com/Altruva-Group/noori-bank/internal/app/storage"
	"github.com/Altruva-Group/noori-bank/pkg/logger"
)

// Service computes and commits savings interest.
type Service struct {
	accounts storage.AccountStore
	balances storage.BalanceStore
	params   storage.ParamStore
	guard    *guard.AccountGuard
	events   *events.Log
	log      *logger.Logger
	now      func() time.Time
}

// New constructs the interest service.
func New(accounts storage.AccountStore, balances storage.BalanceStore, params storage.ParamStore, g *guard.AccountGuard, evts *events.Log, log *logger.Logger) *Service {
	if g == nil {
		g = guard.New()
	}
	if evts == nil {
		evts = events.NewLog(0, nil)
	}
	if log == nil {
		log = logger.NewDefault("interest")
	}
	return &Service{
		accounts: accounts,
		balances: balances,
		params:   params,
		guard:    g,
		events:   evts,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source. Tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Accrue settles pending interest on one balance under the account guard.
// It is a no-op when less than a full day has elapsed since the accrual
// anchor.
func (s *Service) Accrue(ctx context.Context, accountID uint64, asset string) error {
	release, err := s.guard.Acquire(accountID)
	if err != nil {
		return err
	}
	defer release()
	return s.AccrueHeld(ctx, accountID, asset)
}

// AccrueHeld settles pending interest for a caller that already holds the
// account's guard token. Balance operations call this before reading the
// balance they are about to change.
func (s *Service) AccrueHeld(ctx context.Context, accountID uint64, asset string) error {
	bal, err := s.balances.GetBalance(ctx, accountID, asset)
	if err != nil {
		return err
	}
	if bal.LastAccrual.IsZero() {
		return nil
	}

	now := s.now()
	days := uint64(now.Sub(bal.LastAccrual) / ledger.OneDay)
	if days == 0 {
		return nil
	}

	if bal.Amount == nil || bal.Amount.Sign() == 0 {
		// An emptied balance earns nothing, but its anchor still advances
		// so a later deposit cannot collect interest for the gap.
		return s.advanceAnchor(ctx, bal, days, now)
	}

	p, err := s.params.GetParams(ctx)
	if err != nil {
		return err
	}
	if p.SavingsAPRBps == 0 {
		// No rate configured; advance the anchor so a later rate change
		// does not accrue retroactively.
		return s.advanceAnchor(ctx, bal, days, now)
	}

	grown := Compound(bal.Amount, p.SavingsAPRBps, days)
	interest := new(big.Int).Sub(grown, bal.Amount)

	bal.Amount = grown
	bal.LastAccrual = bal.LastAccrual.Add(time.Duration(days) * ledger.OneDay)
	bal.UpdatedAt = now
	if err := s.balances.Apply(ctx, storage.Mutation{Balances: []ledger.Balance{bal}}); err != nil {
		return err
	}

	if interest.Sign() > 0 {
		s.events.Record(event.Event{
			Kind:      event.KindInterestAccrued,
			AccountID: accountID,
			Asset:     asset,
			Amount:    interest.String(),
		})
	}
	return nil
}

func (s *Service) advanceAnchor(ctx context.Context, bal ledger.Balance, days uint64, now time.Time) error {
	bal.LastAccrual = bal.LastAccrual.Add(time.Duration(days) * ledger.OneDay)
	bal.UpdatedAt = now
	return s.balances.Apply(ctx, storage.Mutation{Balances: []ledger.Balance{bal}})
}

// AccrueAll settles pending interest for every balance of every account.
// Per-balance failures are logged and do not abort the sweep.
func (s *Service) AccrueAll(ctx context.Context) error {
	accts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return err
	}
	for _, acct := range accts {
		balances, err := s.balances.ListBalances(ctx, acct.ID)
		if err != nil {
			return err
		}
		for _, bal := range balances {
			if err := s.Accrue(ctx, acct.ID, bal.Asset); err != nil {
				s.log.WithError(err).WithField("account_id", acct.ID).WithField("asset", bal.Asset).Error("interest accrual failed")
			}
		}
	}
	return nil
}

// Compound applies days rounds of daily interest at aprBps, flooring each
// day's accrual: balance += balance * aprBps / 36500.
func Compound(balance *big.Int, aprBps, days uint64) *big.Int {
	rate := new(big.Int).SetUint64(aprBps)
	den := big.NewInt(ledger.InterestDenominator)
	out := new(big.Int).Set(balance)
	step := new(big.Int)
	for i := uint64(0); i < days; i++ {
		step.Mul(out, rate)
		step.Div(step, den)
		if step.Sign() == 0 {
			break
		}
		out.Add(out, step)
	}
	return out
}
