package memory

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/Altruva-Group/noori-bank/internal/app/domain/account"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/bridge"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/ledger"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/loan"
	"github.com/Altruva-Group/noori-bank/internal/app/storage"
	serrors "github.com/Altruva-Group/noori-bank/internal/errors"
)

type balanceKey struct {
	accountID uint64
	asset     string
}

type poolKey struct {
	pool  ledger.Pool
	asset string
}

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use; every method and every Apply batch executes under one
// lock, so a mutation is observed fully applied or not at all. It is
// primarily intended for tests and local development.
type Store struct {
	mu              sync.RWMutex
	nextID          uint64
	accounts        map[uint64]account.Account
	accountIdentity map[string]uint64
	memos           map[string]uint64
	balances        map[balanceKey]ledger.Balance
	pools           map[poolKey]*big.Int
	loans           map[uint64][]loan.Loan
	chains          map[string]bridge.Chain
	pending         map[string]bridge.PendingTransfer
	processedRemote map[string]struct{}
	feeSchedule     ledger.FeeSchedule
	status          ledger.SystemStatus
	params          ledger.Params
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.BalanceStore = (*Store)(nil)
var _ storage.LoanStore = (*Store)(nil)
var _ storage.BridgeStore = (*Store)(nil)
var _ storage.ParamStore = (*Store)(nil)

// New creates an empty store seeded with the default fee schedule and
// parameters.
func New() *Store {
	return &Store{
		nextID:          1,
		accounts:        make(map[uint64]account.Account),
		accountIdentity: make(map[string]uint64),
		memos:           make(map[string]uint64),
		balances:        make(map[balanceKey]ledger.Balance),
		pools:           make(map[poolKey]*big.Int),
		loans:           make(map[uint64][]loan.Loan),
		chains:          make(map[string]bridge.Chain),
		pending:         make(map[string]bridge.PendingTransfer),
		processedRemote: make(map[string]struct{}),
		feeSchedule:     ledger.DefaultFeeSchedule(),
		params:          ledger.DefaultParams(),
	}
}

// AccountStore implementation -------------------------------------------------

func (s *Store) CreateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accountIdentity[acct.Identity]; exists {
		return account.Account{}, serrors.AlreadyRegistered(acct.Identity)
	}

	acct.ID = s.nextID
	s.nextID++

	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	acct.Memos = append([]string(nil), acct.Memos...)

	s.accounts[acct.ID] = acct
	s.accountIdentity[acct.Identity] = acct.ID
	for _, memo := range acct.Memos {
		s.memos[memo] = acct.ID
	}
	return cloneAccount(acct), nil
}

func (s *Store) UpdateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.accounts[acct.ID]
	if !ok {
		return account.Account{}, serrors.NotFound("account %d not found", acct.ID)
	}

	acct.Identity = original.Identity
	acct.CreatedAt = original.CreatedAt
	acct.Memos = append([]string(nil), original.Memos...)
	acct.UpdatedAt = time.Now().UTC()

	s.accounts[acct.ID] = acct
	return cloneAccount(acct), nil
}

func (s *Store) GetAccount(_ context.Context, id uint64) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return account.Account{}, serrors.NotFound("account %d not found", id)
	}
	return cloneAccount(acct), nil
}

func (s *Store) GetAccountByIdentity(_ context.Context, identity string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.accountIdentity[identity]
	if !ok {
		return account.Account{}, serrors.NotFound("identity %s not registered", identity)
	}
	return cloneAccount(s.accounts[id]), nil
}

func (s *Store) ListAccounts(_ context.Context) ([]account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]account.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		out = append(out, cloneAccount(acct))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) AddMemo(_ context.Context, accountID uint64, memo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[accountID]
	if !ok {
		return serrors.NotFound("account %d not found", accountID)
	}
	if owner, taken := s.memos[memo]; taken {
		if owner == accountID {
			return nil
		}
		return serrors.MemoTaken(memo)
	}

	acct.Memos = append(acct.Memos, memo)
	acct.UpdatedAt = time.Now().UTC()
	s.accounts[accountID] = acct
	s.memos[memo] = accountID
	return nil
}

func (s *Store) ResolveMemo(_ context.Context, memo string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.memos[memo]
	if !ok {
		return 0, serrors.NotFound("memo %q not found", memo)
	}
	return id, nil
}

// BalanceStore implementation -------------------------------------------------

func (s *Store) GetBalance(_ context.Context, accountID uint64, asset string) (ledger.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balanceLocked(accountID, asset), nil
}

func (s *Store) balanceLocked(accountID uint64, asset string) ledger.Balance {
	if bal, ok := s.balances[balanceKey{accountID, asset}]; ok {
		return bal.Clone()
	}
	return ledger.Balance{AccountID: accountID, Asset: asset, Amount: new(big.Int)}
}

func (s *Store) ListBalances(_ context.Context, accountID uint64) ([]ledger.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ledger.Balance
	for key, bal := range s.balances {
		if key.accountID == accountID {
			out = append(out, bal.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out, nil
}

func (s *Store) PoolBalance(_ context.Context, pool ledger.Pool, asset string) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if amount, ok := s.pools[poolKey{pool, asset}]; ok {
		return new(big.Int).Set(amount), nil
	}
	return new(big.Int), nil
}

func (s *Store) Apply(_ context.Context, m storage.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before touching state.
	for _, bal := range m.Balances {
		if bal.Amount == nil || bal.Amount.Sign() < 0 {
			return serrors.Internal("mutation would set negative balance for account %d asset %s", bal.AccountID, bal.Asset)
		}
	}
	next := make(map[poolKey]*big.Int, len(m.Pools))
	for _, pd := range m.Pools {
		key := poolKey{pd.Pool, pd.Asset}
		current, ok := next[key]
		if !ok {
			current = new(big.Int)
			if existing, have := s.pools[key]; have {
				current.Set(existing)
			}
		}
		current = new(big.Int).Add(current, pd.Delta)
		if current.Sign() < 0 {
			return serrors.Internal("mutation would underflow pool %s/%s", pd.Pool, pd.Asset)
		}
		next[key] = current
	}

	now := time.Now().UTC()
	for _, bal := range m.Balances {
		stored := bal.Clone()
		stored.UpdatedAt = now
		s.balances[balanceKey{bal.AccountID, bal.Asset}] = stored
	}
	for key, amount := range next {
		s.pools[key] = amount
	}
	for _, l := range m.Loans {
		s.applyLoanLocked(l, now)
	}
	for _, t := range m.Transfers {
		s.pending[t.ID] = t.Clone()
	}
	return nil
}

func (s *Store) applyLoanLocked(l loan.Loan, now time.Time) {
	l = l.Clone()
	l.UpdatedAt = now
	history := s.loans[l.AccountID]
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Status == loan.StatusOpen {
			history[i] = l
			s.loans[l.AccountID] = history
			return
		}
	}
	s.loans[l.AccountID] = append(history, l)
}

// LoanStore implementation ----------------------------------------------------

func (s *Store) GetOpenLoan(_ context.Context, accountID uint64) (loan.Loan, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.loans[accountID] {
		if l.Status == loan.StatusOpen {
			return l.Clone(), true, nil
		}
	}
	return loan.Loan{}, false, nil
}

func (s *Store) ListLoans(_ context.Context, accountID uint64) ([]loan.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.loans[accountID]
	out := make([]loan.Loan, 0, len(history))
	for _, l := range history {
		out = append(out, l.Clone())
	}
	return out, nil
}

// BridgeStore implementation --------------------------------------------------

func (s *Store) PutChain(_ context.Context, ch bridge.Chain) (bridge.Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.chains[ch.Domain]; ok {
		ch.RegisteredAt = existing.RegisteredAt
	} else {
		ch.RegisteredAt = now
	}
	ch.UpdatedAt = now
	s.chains[ch.Domain] = ch
	return ch, nil
}

func (s *Store) GetChain(_ context.Context, domain string) (bridge.Chain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.chains[domain]
	if !ok {
		return bridge.Chain{}, serrors.UnknownDomain(domain)
	}
	return ch, nil
}

func (s *Store) ListChains(_ context.Context) ([]bridge.Chain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]bridge.Chain, 0, len(s.chains))
	for _, ch := range s.chains {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, nil
}

func (s *Store) GetPendingTransfer(_ context.Context, id string) (bridge.PendingTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.pending[id]
	if !ok {
		return bridge.PendingTransfer{}, serrors.NotFound("pending transfer %s not found", id)
	}
	return t.Clone(), nil
}

func (s *Store) ListUnprocessedTransfers(_ context.Context) ([]bridge.PendingTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []bridge.PendingTransfer
	for _, t := range s.pending {
		if !t.Processed {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ProcessRemoteCredit(_ context.Context, remoteTxID string, recipient uint64, asset string, amount *big.Int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.processedRemote[remoteTxID]; done {
		return false, nil
	}

	bal := s.balanceLocked(recipient, asset)
	bal.Amount = new(big.Int).Add(bal.Amount, amount)
	bal.UpdatedAt = time.Now().UTC()

	s.processedRemote[remoteTxID] = struct{}{}
	s.balances[balanceKey{recipient, asset}] = bal
	return true, nil
}

func (s *Store) IsRemoteProcessed(_ context.Context, remoteTxID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, done := s.processedRemote[remoteTxID]
	return done, nil
}

// ParamStore implementation ---------------------------------------------------

func (s *Store) GetFeeSchedule(_ context.Context) (ledger.FeeSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feeSchedule, nil
}

func (s *Store) SetFeeSchedule(_ context.Context, fs ledger.FeeSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fs.UpdatedAt = time.Now().UTC()
	s.feeSchedule = fs
	return nil
}

func (s *Store) GetSystemStatus(_ context.Context) (ledger.SystemStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, nil
}

func (s *Store) SetSystemStatus(_ context.Context, st ledger.SystemStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.UpdatedAt = time.Now().UTC()
	s.status = st
	return nil
}

func (s *Store) GetParams(_ context.Context) (ledger.Params, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params.Clone(), nil
}

func (s *Store) SetParams(_ context.Context, p ledger.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.UpdatedAt = time.Now().UTC()
	s.params = p.Clone()
	return nil
}

func cloneAccount(acct account.Account) account.Account {
	acct.Memos = append([]string(nil), acct.Memos...)
	return acct
}
