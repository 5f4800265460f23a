package storage

import (
	"context"
	"math/big"

	"github.com/Altruva-Group/noori-bank/internal/app/domain/account"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/bridge"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/ledger"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/loan"
)

// AccountStore persists account records and the memo alias index.
type AccountStore interface {
	// CreateAccount allocates the next account ID. It fails when the
	// identity is already registered.
	CreateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	GetAccount(ctx context.Context, id uint64) (account.Account, error)
	GetAccountByIdentity(ctx context.Context, identity string) (account.Account, error)
	ListAccounts(ctx context.Context) ([]account.Account, error)

	// AddMemo binds a memo to an account. It fails when the memo is owned
	// by a different account and is a no-op when the account already owns
	// it.
	AddMemo(ctx context.Context, accountID uint64, memo string) error
	ResolveMemo(ctx context.Context, memo string) (uint64, error)
}

// PoolDelta adjusts one protocol pool by a signed amount.
type PoolDelta struct {
	Pool  ledger.Pool
	Asset string
	Delta *big.Int
}

// Mutation is a batch of state changes applied as one indivisible unit.
// Balances and loans are absolute upserts; pool deltas are signed
// adjustments rejected on underflow; transfers upsert pending records.
// Either every change commits or none does.
type Mutation struct {
	Balances  []ledger.Balance
	Pools     []PoolDelta
	Loans     []loan.Loan
	Transfers []bridge.PendingTransfer
}

// BalanceStore persists per-account per-asset balances and the protocol
// pools.
type BalanceStore interface {
	// GetBalance returns the stored balance, or a zero balance when the
	// account has never held the asset.
	GetBalance(ctx context.Context, accountID uint64, asset string) (ledger.Balance, error)
	ListBalances(ctx context.Context, accountID uint64) ([]ledger.Balance, error)
	PoolBalance(ctx context.Context, pool ledger.Pool, asset string) (*big.Int, error)

	// Apply commits a mutation atomically.
	Apply(ctx context.Context, m Mutation) error
}

// LoanStore persists borrow positions.
type LoanStore interface {
	// GetOpenLoan returns the account's open loan; ok is false when none
	// exists.
	GetOpenLoan(ctx context.Context, accountID uint64) (loan.Loan, bool, error)
	ListLoans(ctx context.Context, accountID uint64) ([]loan.Loan, error)
}

// BridgeStore persists the remote chain registry, the outbound delay queue,
// and the inbound replay-protection set.
type BridgeStore interface {
	PutChain(ctx context.Context, ch bridge.Chain) (bridge.Chain, error)
	GetChain(ctx context.Context, domain string) (bridge.Chain, error)
	ListChains(ctx context.Context) ([]bridge.Chain, error)

	GetPendingTransfer(ctx context.Context, id string) (bridge.PendingTransfer, error)
	ListUnprocessedTransfers(ctx context.Context) ([]bridge.PendingTransfer, error)

	// ProcessRemoteCredit atomically inserts remoteTxID into the processed
	// set and credits the recipient. It returns false with no state change
	// when the identifier was already present; concurrent callers with
	// the same identifier resolve so exactly one observes true.
	ProcessRemoteCredit(ctx context.Context, remoteTxID string, recipient uint64, asset string, amount *big.Int) (bool, error)
	IsRemoteProcessed(ctx context.Context, remoteTxID string) (bool, error)
}

// ParamStore persists the governor singletons.
type ParamStore interface {
	GetFeeSchedule(ctx context.Context) (ledger.FeeSchedule, error)
	SetFeeSchedule(ctx context.Context, fs ledger.FeeSchedule) error
	GetSystemStatus(ctx context.Context) (ledger.SystemStatus, error)
	SetSystemStatus(ctx context.Context, st ledger.SystemStatus) error
	GetParams(ctx context.Context) (ledger.Params, error)
	SetParams(ctx context.Context, p ledger.Params) error
}
