package postgres

import (
	"context"
	"database/sql"
	"errors"
	"math/big"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/lib/pq"

	"github.com/Altruva-Group/noori-bank/internal/app/domain/account"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/ledger"
	"github.com/Altruva-Group/noori-bank/internal/app/storage"
	serrors "github.com/Altruva-Group/noori-bank/internal/errors"
)

func TestProcessRemoteCreditSkipsCreditWhenReplayed(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	// Insert-if-absent hits a conflict: no rows affected, the transaction
	// rolls back without touching balances.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bridge_processed_remote").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	store := New(db)
	ok, err := store.ProcessRemoteCredit(context.Background(), "tx-1", 3, "NOORI", big.NewInt(50))
	if err != nil {
		t.Fatalf("process remote credit: %v", err)
	}
	if ok {
		t.Fatalf("replayed credit must report false")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestProcessRemoteCreditCommitsCredit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bridge_processed_remote").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO balances").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := New(db)
	ok, err := store.ProcessRemoteCredit(context.Background(), "tx-1", 3, "NOORI", big.NewInt(50))
	if err != nil || !ok {
		t.Fatalf("expected commit, ok=%v err=%v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestApplyRollsBackOnPoolUnderflow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO pools").
		WillReturnError(errors.New(`pq: new row for relation "pools" violates check constraint`))
	mock.ExpectRollback()

	store := New(db)
	m := storage.Mutation{
		Pools: []storage.PoolDelta{{Pool: ledger.PoolFees, Asset: "NOORI", Delta: big.NewInt(-10)}},
	}
	if err := store.Apply(context.Background(), m); err == nil {
		t.Fatalf("expected underflow to fail the batch")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := ApplyMigrations(ctx, db); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	store := New(db)

	acct, err := store.CreateAccount(ctx, account.Account{Identity: "it-owner", CredentialHash: "c", RecoveryHash: "r"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if _, err := store.CreateAccount(ctx, account.Account{Identity: "it-owner"}); !errors.Is(err, serrors.AlreadyRegistered("it-owner")) {
		t.Fatalf("expected AlreadyRegistered, got %v", err)
	}

	m := storage.Mutation{
		Balances: []ledger.Balance{{AccountID: acct.ID, Asset: "NOORI", Amount: big.NewInt(1000)}},
		Pools:    []storage.PoolDelta{{Pool: ledger.PoolFees, Asset: "NOORI", Delta: big.NewInt(10)}},
	}
	if err := store.Apply(ctx, m); err != nil {
		t.Fatalf("apply: %v", err)
	}

	bal, err := store.GetBalance(ctx, acct.ID, "NOORI")
	if err != nil || bal.Amount.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("balance %s err=%v", bal.Amount, err)
	}
}
