package memory

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/Altruva-Group/noori-bank/internal/app/domain/account"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/ledger"
	serrors "github.com/Altruva-Group/noori-bank/internal/errors"
	"github.com/Altruva-Group/noori-bank/internal/app/storage"
)

func TestAccountLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()

	acct, err := store.CreateAccount(ctx, account.Account{Identity: "alice", CredentialHash: "h"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if acct.ID != 1 {
		t.Fatalf("expected first id 1, got %d", acct.ID)
	}

	if _, err := store.CreateAccount(ctx, account.Account{Identity: "alice"}); !errors.Is(err, serrors.AlreadyRegistered("alice")) {
		t.Fatalf("expected AlreadyRegistered, got %v", err)
	}

	second, err := store.CreateAccount(ctx, account.Account{Identity: "bob"})
	if err != nil {
		t.Fatalf("create second account: %v", err)
	}
	if second.ID != acct.ID+1 {
		t.Fatalf("ids must be monotonic: %d then %d", acct.ID, second.ID)
	}

	if err := store.AddMemo(ctx, acct.ID, "coffee-fund"); err != nil {
		t.Fatalf("add memo: %v", err)
	}
	// Re-adding by the owner is a no-op.
	if err := store.AddMemo(ctx, acct.ID, "coffee-fund"); err != nil {
		t.Fatalf("idempotent add memo: %v", err)
	}
	if err := store.AddMemo(ctx, second.ID, "coffee-fund"); !errors.Is(err, serrors.MemoTaken("coffee-fund")) {
		t.Fatalf("expected MemoTaken, got %v", err)
	}

	owner, err := store.ResolveMemo(ctx, "coffee-fund")
	if err != nil || owner != acct.ID {
		t.Fatalf("resolve memo: owner=%d err=%v", owner, err)
	}
}

func TestApplyIsAtomic(t *testing.T) {
	store := New()
	ctx := context.Background()

	err := store.Apply(ctx, storage.Mutation{
		Balances: []ledger.Balance{{AccountID: 1, Asset: "NOORI", Amount: big.NewInt(500)}},
		Pools: []storage.PoolDelta{
			{Pool: ledger.PoolFees, Asset: "NOORI", Delta: big.NewInt(-1)},
		},
	})
	if err == nil {
		t.Fatalf("expected pool underflow rejection")
	}

	// The rejected batch must leave no trace.
	bal, err := store.GetBalance(ctx, 1, "NOORI")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if bal.Amount.Sign() != 0 {
		t.Fatalf("balance leaked from rejected mutation: %s", bal.Amount)
	}

	ok := storage.Mutation{
		Balances: []ledger.Balance{{AccountID: 1, Asset: "NOORI", Amount: big.NewInt(500)}},
		Pools: []storage.PoolDelta{
			{Pool: ledger.PoolFees, Asset: "NOORI", Delta: big.NewInt(5)},
		},
	}
	if err := store.Apply(ctx, ok); err != nil {
		t.Fatalf("apply: %v", err)
	}
	pool, err := store.PoolBalance(ctx, ledger.PoolFees, "NOORI")
	if err != nil || pool.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("fee pool: %s err=%v", pool, err)
	}
}

func TestProcessRemoteCreditExactlyOnce(t *testing.T) {
	store := New()
	ctx := context.Background()

	const callers = 16
	var wg sync.WaitGroup
	results := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.ProcessRemoteCredit(ctx, "remote-tx-1", 7, "NOORI", big.NewInt(100))
			if err != nil {
				t.Errorf("process remote credit: %v", err)
				return
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one success, got %d", succeeded)
	}

	bal, err := store.GetBalance(ctx, 7, "NOORI")
	if err != nil || bal.Amount.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("recipient credited %s, err=%v", bal.Amount, err)
	}
	done, err := store.IsRemoteProcessed(ctx, "remote-tx-1")
	if err != nil || !done {
		t.Fatalf("remote tx should be marked processed")
	}
}
