// Package lending implements collateralized borrowing: origination against
// escrowed collateral, repayment, and oracle-driven liquidation. An account
// carries at most one open loan.
package lending

import (
	"context"
	"math/big"
	"time"

	"github.com/Altruva-Group/noori-bank/internal/app/domain/event"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/ledger"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/loan"
	"github.com/Altruva-Group/noori-bank/internal/app/events"
	"github.com/Altruva-Group/noori-bank/internal/app/guard"
	"github.com/Altruva-Group/noori-bank/internal/app/metrics"
	"github.com/Altruva-Group/noori-bank/internal/app/services/governor"
	"github.com/Altruva-Group/noori-bank/internal/app/storage"
	serrors "github.com/Altruva-Group/noori-bank/internal/errors"
	"github.com/Altruva-Group/noori-bank/pkg/logger"
)

// CredentialVerifier checks an account credential before a position opens or
// changes.
type CredentialVerifier interface {
	VerifyCredential(ctx context.Context, accountID uint64, credential string) error
}

// Service manages borrow positions.
type Service struct {
	balances    storage.BalanceStore
	loans       storage.LoanStore
	governor    *governor.Service
	guard       *guard.AccountGuard
	credentials CredentialVerifier
	oracle      PriceOracle
	events      *events.Log
	log         *logger.Logger
	now         func() time.Time
}

// New constructs the lending service.
func New(
	balances storage.BalanceStore,
	loans storage.LoanStore,
	gov *governor.Service,
	g *guard.AccountGuard,
	credentials CredentialVerifier,
	oracle PriceOracle,
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
		log = logger.NewDefault("lending")
	}
	return &Service{
		balances:    balances,
		loans:       loans,
		governor:    gov,
		guard:       g,
		credentials: credentials,
		oracle:      oracle,
		events:      evts,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source. Tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// OpenLoan returns the account's open loan, if any.
func (s *Service) OpenLoan(ctx context.Context, accountID uint64) (loan.Loan, bool, error) {
	return s.loans.GetOpenLoan(ctx, accountID)
}

// History returns every loan the account has held.
func (s *Service) History(ctx context.Context, accountID uint64) ([]loan.Loan, error) {
	return s.loans.ListLoans(ctx, accountID)
}

// Borrow escrows collateral from the account's balance and credits the
// principal. The principal may not exceed the loan-to-value fraction of the
// collateral's oracle value. Top-ups are not supported: one open loan per
// account.
func (s *Service) Borrow(ctx context.Context, accountID uint64, credential, principalAsset string, principal, collateral *big.Int) (out loan.Loan, err error) {
	defer s.observe("borrow", time.Now(), &err)

	if principal == nil || principal.Sign() <= 0 || collateral == nil || collateral.Sign() <= 0 {
		return loan.Loan{}, serrors.InvalidAmount("principal and collateral must be positive")
	}
	if principalAsset == "" {
		return loan.Loan{}, serrors.InvalidFormat("principal asset is required")
	}
	if err = s.credentials.VerifyCredential(ctx, accountID, credential); err != nil {
		return loan.Loan{}, err
	}
	if err = s.governor.RequireLendingActive(ctx); err != nil {
		return loan.Loan{}, err
	}
	if err = s.governor.RequireNotBlacklisted(ctx, accountID); err != nil {
		return loan.Loan{}, err
	}

	release, err := s.guard.Acquire(accountID)
	if err != nil {
		return loan.Loan{}, err
	}
	defer release()

	if _, exists, lerr := s.loans.GetOpenLoan(ctx, accountID); lerr != nil {
		return loan.Loan{}, lerr
	} else if exists {
		return loan.Loan{}, serrors.LoanExists(accountID)
	}

	p, err := s.governor.Params(ctx)
	if err != nil {
		return loan.Loan{}, err
	}
	if principalAsset == p.CollateralAsset {
		return loan.Loan{}, serrors.InvalidFormat("principal asset must differ from collateral asset %s", p.CollateralAsset)
	}

	quote, err := s.freshQuote(ctx, p, principalAsset)
	if err != nil {
		return loan.Loan{}, err
	}
	// principal * MaxBps * priceDen <= LTV * collateral * priceNum
	if exceedsRatio(principal, collateral, quote.Price, p.LTVBps) {
		return loan.Loan{}, serrors.ExceedsLTV("principal %s exceeds %d bps of collateral value", principal, p.LTVBps)
	}

	collBal, err := s.balances.GetBalance(ctx, accountID, p.CollateralAsset)
	if err != nil {
		return loan.Loan{}, err
	}
	if collBal.Amount.Cmp(collateral) < 0 {
		return loan.Loan{}, serrors.InsufficientBalance("collateral balance %s below %s", collBal.Amount, collateral)
	}
	prinBal, err := s.balances.GetBalance(ctx, accountID, principalAsset)
	if err != nil {
		return loan.Loan{}, err
	}

	now := s.now()
	collBal.Amount = new(big.Int).Sub(collBal.Amount, collateral)
	collBal.UpdatedAt = now
	prinBal.AccountID = accountID
	prinBal.Asset = principalAsset
	prinBal.Amount = new(big.Int).Add(prinBal.Amount, principal)
	if prinBal.LastAccrual.IsZero() {
		prinBal.LastAccrual = now
	}
	prinBal.UpdatedAt = now

	out = loan.Loan{
		AccountID:       accountID,
		Principal:       new(big.Int).Set(principal),
		Collateral:      new(big.Int).Set(collateral),
		PrincipalAsset:  principalAsset,
		CollateralAsset: p.CollateralAsset,
		Status:          loan.StatusOpen,
		OriginatedAt:    now,
		UpdatedAt:       now,
	}

	err = s.balances.Apply(ctx, storage.Mutation{
		Balances: []ledger.Balance{collBal, prinBal},
		Pools:    []storage.PoolDelta{{Pool: ledger.PoolCollateral, Asset: p.CollateralAsset, Delta: collateral}},
		Loans:    []loan.Loan{out},
	})
	if err != nil {
		return loan.Loan{}, err
	}

	s.events.Record(event.Event{
		Kind:      event.KindLoanOriginated,
		AccountID: accountID,
		Asset:     principalAsset,
		Amount:    principal.String(),
		Details:   map[string]string{"collateral": collateral.String(), "collateral_asset": p.CollateralAsset},
	})
	s.log.WithField("account_id", accountID).Info("loan originated")
	return out, nil
}

// Repay pays down the open loan's principal from the account's balance.
// Paying it to zero closes the loan and returns the escrowed collateral.
// Repayment stays available while lending is paused.
func (s *Service) Repay(ctx context.Context, accountID uint64, credential string, amount *big.Int) (out loan.Loan, err error) {
	defer s.observe("repay", time.Now(), &err)

	if amount == nil || amount.Sign() <= 0 {
		return loan.Loan{}, serrors.InvalidAmount("amount must be positive")
	}
	if err = s.credentials.VerifyCredential(ctx, accountID, credential); err != nil {
		return loan.Loan{}, err
	}
	if err = s.governor.RequireActive(ctx); err != nil {
		return loan.Loan{}, err
	}

	release, err := s.guard.Acquire(accountID)
	if err != nil {
		return loan.Loan{}, err
	}
	defer release()

	ln, exists, err := s.loans.GetOpenLoan(ctx, accountID)
	if err != nil {
		return loan.Loan{}, err
	}
	if !exists {
		return loan.Loan{}, serrors.NoLoan(accountID)
	}
	if amount.Cmp(ln.Principal) > 0 {
		return loan.Loan{}, serrors.OverRepay()
	}

	bal, err := s.balances.GetBalance(ctx, accountID, ln.PrincipalAsset)
	if err != nil {
		return loan.Loan{}, err
	}
	if bal.Amount.Cmp(amount) < 0 {
		return loan.Loan{}, serrors.InsufficientBalance("balance %s below repayment %s", bal.Amount, amount)
	}

	now := s.now()
	bal.Amount = new(big.Int).Sub(bal.Amount, amount)
	bal.UpdatedAt = now
	ln.Principal = new(big.Int).Sub(ln.Principal, amount)
	ln.UpdatedAt = now

	m := storage.Mutation{Balances: []ledger.Balance{bal}}
	if ln.Principal.Sign() == 0 {
		ln.Status = loan.StatusRepaid
		ln.ClosedAt = now

		collBal, berr := s.balances.GetBalance(ctx, accountID, ln.CollateralAsset)
		if berr != nil {
			return loan.Loan{}, berr
		}
		collBal.AccountID = accountID
		collBal.Asset = ln.CollateralAsset
		collBal.Amount = new(big.Int).Add(collBal.Amount, ln.Collateral)
		if collBal.LastAccrual.IsZero() {
			collBal.LastAccrual = now
		}
		collBal.UpdatedAt = now
		m.Balances = append(m.Balances, collBal)
		m.Pools = []storage.PoolDelta{{Pool: ledger.PoolCollateral, Asset: ln.CollateralAsset, Delta: new(big.Int).Neg(ln.Collateral)}}
	}
	m.Loans = []loan.Loan{ln}
	if err = s.balances.Apply(ctx, m); err != nil {
		return loan.Loan{}, err
	}

	s.events.Record(event.Event{
		Kind:      event.KindLoanRepaid,
		AccountID: accountID,
		Asset:     ln.PrincipalAsset,
		Amount:    amount.String(),
		Details:   map[string]string{"remaining": ln.Principal.String(), "closed": closedFlag(ln)},
	})
	return ln, nil
}

// CheckLiquidation liquidates the account's open loan when its current
// loan-to-value breaches the liquidation threshold. Liquidation writes off
// the principal and seizes the collateral into the liquidation pool; the
// position is terminal afterwards, and checking an account with no open
// loan is a no-op.
func (s *Service) CheckLiquidation(ctx context.Context, accountID uint64) (liquidated bool, err error) {
	defer s.observe("check_liquidation", time.Now(), &err)

	release, err := s.guard.Acquire(accountID)
	if err != nil {
		return false, err
	}
	defer release()

	ln, exists, err := s.loans.GetOpenLoan(ctx, accountID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	p, err := s.governor.Params(ctx)
	if err != nil {
		return false, err
	}
	quote, err := s.freshQuote(ctx, p, ln.PrincipalAsset)
	if err != nil {
		return false, err
	}
	if !exceedsRatio(ln.Principal, ln.Collateral, quote.Price, p.LiquidationThresholdBps) {
		return false, nil
	}

	now := s.now()
	ln.Status = loan.StatusLiquidated
	ln.Liquidated = true
	ln.Principal = new(big.Int)
	ln.ClosedAt = now
	ln.UpdatedAt = now

	err = s.balances.Apply(ctx, storage.Mutation{
		Pools: []storage.PoolDelta{
			{Pool: ledger.PoolCollateral, Asset: ln.CollateralAsset, Delta: new(big.Int).Neg(ln.Collateral)},
			{Pool: ledger.PoolLiquidation, Asset: ln.CollateralAsset, Delta: new(big.Int).Set(ln.Collateral)},
		},
		Loans: []loan.Loan{ln},
	})
	if err != nil {
		return false, err
	}

	metrics.RecordLiquidation()
	s.events.Record(event.Event{
		Kind:      event.KindLoanLiquidated,
		AccountID: accountID,
		Asset:     ln.CollateralAsset,
		Amount:    ln.Collateral.String(),
	})
	s.log.WithField("account_id", accountID).Warn("loan liquidated")
	return true, nil
}

func (s *Service) freshQuote(ctx context.Context, p ledger.Params, principalAsset string) (Quote, error) {
	quote, err := s.oracle.Quote(ctx, p.CollateralAsset, principalAsset)
	if err != nil {
		return Quote{}, err
	}
	if quote.Price == nil || quote.Price.Sign() <= 0 {
		return Quote{}, serrors.StalePrice("oracle returned no usable price")
	}
	if age := s.now().Sub(quote.Time); age > p.OracleHeartbeat {
		return Quote{}, serrors.StalePrice("price is %s old, heartbeat is %s", age, p.OracleHeartbeat)
	}
	return quote, nil
}

// exceedsRatio reports whether principal / (collateral * price) exceeds
// thresholdBps, computed exactly in integers.
func exceedsRatio(principal, collateral *big.Int, price *big.Rat, thresholdBps uint64) bool {
	lhs := new(big.Int).Mul(principal, big.NewInt(ledger.MaxBps))
	lhs.Mul(lhs, price.Denom())

	rhs := new(big.Int).Mul(collateral, price.Num())
	rhs.Mul(rhs, new(big.Int).SetUint64(thresholdBps))

	return lhs.Cmp(rhs) > 0
}

func (s *Service) observe(operation string, start time.Time, err *error) {
	metrics.RecordOperation(operation, time.Since(start), *err)
}

func closedFlag(ln loan.Loan) string {
	if ln.Open() {
		return "false"
	}
	return "true"
}
