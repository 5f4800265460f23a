package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math/big"
	"time"

	"github.com/lib/pq"

	"github.com/Altruva-Group/noori-bank/internal/app/domain/account"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/bridge"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/ledger"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/loan"
	"github.com/Altruva-Group/noori-bank/internal/app/storage"
	serrors "github.com/Altruva-Group/noori-bank/internal/errors"
)

const pqUniqueViolation = "23505"

// Store implements the storage interfaces backed by PostgreSQL. Mutation
// batches and remote credits execute inside a single transaction, so they
// are atomic under concurrent access and across crashes.
type Store struct {
	db *sql.DB
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.BalanceStore = (*Store)(nil)
var _ storage.LoanStore = (*Store)(nil)
var _ storage.BridgeStore = (*Store)(nil)
var _ storage.ParamStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, serrors.Internal("malformed amount %q in store", raw)
	}
	return amount, nil
}

// --- AccountStore -----------------------------------------------------------

func (s *Store) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO accounts (identity, credential_hash, recovery_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, acct.Identity, acct.CredentialHash, acct.RecoveryHash, acct.CreatedAt, acct.UpdatedAt).Scan(&acct.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return account.Account{}, serrors.AlreadyRegistered(acct.Identity)
		}
		return account.Account{}, err
	}
	return acct, nil
}

func (s *Store) UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	acct.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET credential_hash = $2, recovery_hash = $3, updated_at = $4
		WHERE id = $1
	`, acct.ID, acct.CredentialHash, acct.RecoveryHash, acct.UpdatedAt)
	if err != nil {
		return account.Account{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return account.Account{}, err
	}
	if affected == 0 {
		return account.Account{}, serrors.NotFound("account %d not found", acct.ID)
	}
	return s.GetAccount(ctx, acct.ID)
}

func (s *Store) GetAccount(ctx context.Context, id uint64) (account.Account, error) {
	return s.getAccount(ctx, `WHERE id = $1`, id)
}

func (s *Store) GetAccountByIdentity(ctx context.Context, identity string) (account.Account, error) {
	return s.getAccount(ctx, `WHERE identity = $1`, identity)
}

func (s *Store) getAccount(ctx context.Context, where string, arg interface{}) (account.Account, error) {
	var acct account.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, identity, credential_hash, recovery_hash, created_at, updated_at
		FROM accounts `+where,
		arg,
	).Scan(&acct.ID, &acct.Identity, &acct.CredentialHash, &acct.RecoveryHash, &acct.CreatedAt, &acct.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return account.Account{}, serrors.NotFound("account %v not found", arg)
	}
	if err != nil {
		return account.Account{}, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT memo FROM account_memos WHERE account_id = $1 ORDER BY created_at`, acct.ID)
	if err != nil {
		return account.Account{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var memo string
		if err := rows.Scan(&memo); err != nil {
			return account.Account{}, err
		}
		acct.Memos = append(acct.Memos, memo)
	}
	return acct, rows.Err()
}

func (s *Store) ListAccounts(ctx context.Context) ([]account.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, identity, credential_hash, recovery_hash, created_at, updated_at
		FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []account.Account
	for rows.Next() {
		var acct account.Account
		if err := rows.Scan(&acct.ID, &acct.Identity, &acct.CredentialHash, &acct.RecoveryHash, &acct.CreatedAt, &acct.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, rows.Err()
}

func (s *Store) AddMemo(ctx context.Context, accountID uint64, memo string) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO account_memos (memo, account_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (memo) DO NOTHING
	`, memo, accountID, time.Now().UTC())
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	owner, err := s.ResolveMemo(ctx, memo)
	if err != nil {
		return err
	}
	if owner == accountID {
		return nil
	}
	return serrors.MemoTaken(memo)
}

func (s *Store) ResolveMemo(ctx context.Context, memo string) (uint64, error) {
	var owner uint64
	err := s.db.QueryRowContext(ctx, `SELECT account_id FROM account_memos WHERE memo = $1`, memo).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, serrors.NotFound("memo %q not found", memo)
	}
	return owner, err
}

// --- BalanceStore -----------------------------------------------------------

func (s *Store) GetBalance(ctx context.Context, accountID uint64, asset string) (ledger.Balance, error) {
	bal := ledger.Balance{AccountID: accountID, Asset: asset, Amount: new(big.Int)}
	var raw string
	var lastAccrual sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT amount::text, last_accrual, updated_at
		FROM balances WHERE account_id = $1 AND asset = $2
	`, accountID, asset).Scan(&raw, &lastAccrual, &bal.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return bal, nil
	}
	if err != nil {
		return ledger.Balance{}, err
	}
	if bal.Amount, err = parseAmount(raw); err != nil {
		return ledger.Balance{}, err
	}
	if lastAccrual.Valid {
		bal.LastAccrual = lastAccrual.Time
	}
	return bal, nil
}

func (s *Store) ListBalances(ctx context.Context, accountID uint64) ([]ledger.Balance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset, amount::text, last_accrual, updated_at
		FROM balances WHERE account_id = $1 ORDER BY asset
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Balance
	for rows.Next() {
		bal := ledger.Balance{AccountID: accountID}
		var raw string
		var lastAccrual sql.NullTime
		if err := rows.Scan(&bal.Asset, &raw, &lastAccrual, &bal.UpdatedAt); err != nil {
			return nil, err
		}
		if bal.Amount, err = parseAmount(raw); err != nil {
			return nil, err
		}
		if lastAccrual.Valid {
			bal.LastAccrual = lastAccrual.Time
		}
		out = append(out, bal)
	}
	return out, rows.Err()
}

func (s *Store) PoolBalance(ctx context.Context, pool ledger.Pool, asset string) (*big.Int, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT amount::text FROM pools WHERE pool = $1 AND asset = $2
	`, string(pool), asset).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return parseAmount(raw)
}

func (s *Store) Apply(ctx context.Context, m storage.Mutation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	for _, bal := range m.Balances {
		if bal.Amount == nil || bal.Amount.Sign() < 0 {
			return serrors.Internal("mutation would set negative balance for account %d asset %s", bal.AccountID, bal.Asset)
		}
		var lastAccrual interface{}
		if !bal.LastAccrual.IsZero() {
			lastAccrual = bal.LastAccrual
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO balances (account_id, asset, amount, last_accrual, updated_at)
			VALUES ($1, $2, $3::numeric, $4, $5)
			ON CONFLICT (account_id, asset)
			DO UPDATE SET amount = EXCLUDED.amount, last_accrual = EXCLUDED.last_accrual, updated_at = EXCLUDED.updated_at
		`, bal.AccountID, bal.Asset, bal.Amount.String(), lastAccrual, now); err != nil {
			return err
		}
	}

	for _, pd := range m.Pools {
		// The CHECK constraint rejects underflow and rolls back the batch.
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pools (pool, asset, amount, updated_at)
			VALUES ($1, $2, $3::numeric, $4)
			ON CONFLICT (pool, asset)
			DO UPDATE SET amount = pools.amount + EXCLUDED.amount, updated_at = EXCLUDED.updated_at
		`, string(pd.Pool), pd.Asset, pd.Delta.String(), now); err != nil {
			return err
		}
	}

	for _, l := range m.Loans {
		if err := applyLoan(ctx, tx, l, now); err != nil {
			return err
		}
	}

	for _, t := range m.Transfers {
		var processedAt interface{}
		if !t.ProcessedAt.IsZero() {
			processedAt = t.ProcessedAt
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bridge_pending_transfers
				(id, sender_id, asset, amount, target_domain, target_address, created_at, processed, processed_at)
			VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9)
			ON CONFLICT (id)
			DO UPDATE SET processed = EXCLUDED.processed, processed_at = EXCLUDED.processed_at
		`, t.ID, t.SenderID, t.Asset, t.Amount.String(), t.TargetDomain, t.TargetAddress, t.CreatedAt, t.Processed, processedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func applyLoan(ctx context.Context, tx *sql.Tx, l loan.Loan, now time.Time) error {
	var closedAt interface{}
	if !l.ClosedAt.IsZero() {
		closedAt = l.ClosedAt
	}
	result, err := tx.ExecContext(ctx, `
		UPDATE loans
		SET principal = $2::numeric, collateral = $3::numeric, status = $4,
			liquidated = $5, closed_at = $6, updated_at = $7
		WHERE account_id = $1 AND status = 'open'
	`, l.AccountID, l.Principal.String(), l.Collateral.String(), string(l.Status), l.Liquidated, closedAt, now)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO loans
			(account_id, principal, collateral, principal_asset, collateral_asset,
			 status, liquidated, originated_at, closed_at, updated_at)
		VALUES ($1, $2::numeric, $3::numeric, $4, $5, $6, $7, $8, $9, $10)
	`, l.AccountID, l.Principal.String(), l.Collateral.String(), l.PrincipalAsset, l.CollateralAsset,
		string(l.Status), l.Liquidated, l.OriginatedAt, closedAt, now)
	return err
}

// --- LoanStore --------------------------------------------------------------

func (s *Store) GetOpenLoan(ctx context.Context, accountID uint64) (loan.Loan, bool, error) {
	loans, err := s.scanLoans(ctx, `WHERE account_id = $1 AND status = 'open'`, accountID)
	if err != nil {
		return loan.Loan{}, false, err
	}
	if len(loans) == 0 {
		return loan.Loan{}, false, nil
	}
	return loans[0], true, nil
}

func (s *Store) ListLoans(ctx context.Context, accountID uint64) ([]loan.Loan, error) {
	return s.scanLoans(ctx, `WHERE account_id = $1`, accountID)
}

func (s *Store) scanLoans(ctx context.Context, where string, accountID uint64) ([]loan.Loan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id, principal::text, collateral::text, principal_asset, collateral_asset,
			status, liquidated, originated_at, closed_at, updated_at
		FROM loans `+where+` ORDER BY originated_at`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []loan.Loan
	for rows.Next() {
		var l loan.Loan
		var principal, collateral, status string
		var closedAt sql.NullTime
		if err := rows.Scan(&l.AccountID, &principal, &collateral, &l.PrincipalAsset, &l.CollateralAsset,
			&status, &l.Liquidated, &l.OriginatedAt, &closedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		if l.Principal, err = parseAmount(principal); err != nil {
			return nil, err
		}
		if l.Collateral, err = parseAmount(collateral); err != nil {
			return nil, err
		}
		l.Status = loan.Status(status)
		if closedAt.Valid {
			l.ClosedAt = closedAt.Time
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// --- BridgeStore ------------------------------------------------------------

func (s *Store) PutChain(ctx context.Context, ch bridge.Chain) (bridge.Chain, error) {
	now := time.Now().UTC()
	ch.UpdatedAt = now
	if ch.RegisteredAt.IsZero() {
		ch.RegisteredAt = now
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bridge_chains (domain, remote_bridge, enabled, registered_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (domain)
		DO UPDATE SET remote_bridge = EXCLUDED.remote_bridge, enabled = EXCLUDED.enabled, updated_at = EXCLUDED.updated_at
	`, ch.Domain, ch.RemoteBridge, ch.Enabled, ch.RegisteredAt, ch.UpdatedAt)
	if err != nil {
		return bridge.Chain{}, err
	}
	return s.GetChain(ctx, ch.Domain)
}

func (s *Store) GetChain(ctx context.Context, domain string) (bridge.Chain, error) {
	var ch bridge.Chain
	err := s.db.QueryRowContext(ctx, `
		SELECT domain, remote_bridge, enabled, registered_at, updated_at
		FROM bridge_chains WHERE domain = $1
	`, domain).Scan(&ch.Domain, &ch.RemoteBridge, &ch.Enabled, &ch.RegisteredAt, &ch.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return bridge.Chain{}, serrors.UnknownDomain(domain)
	}
	return ch, err
}

func (s *Store) ListChains(ctx context.Context) ([]bridge.Chain, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT domain, remote_bridge, enabled, registered_at, updated_at
		FROM bridge_chains ORDER BY domain`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bridge.Chain
	for rows.Next() {
		var ch bridge.Chain
		if err := rows.Scan(&ch.Domain, &ch.RemoteBridge, &ch.Enabled, &ch.RegisteredAt, &ch.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (s *Store) GetPendingTransfer(ctx context.Context, id string) (bridge.PendingTransfer, error) {
	transfers, err := s.scanTransfers(ctx, `WHERE id = $1`, id)
	if err != nil {
		return bridge.PendingTransfer{}, err
	}
	if len(transfers) == 0 {
		return bridge.PendingTransfer{}, serrors.NotFound("pending transfer %s not found", id)
	}
	return transfers[0], nil
}

func (s *Store) ListUnprocessedTransfers(ctx context.Context) ([]bridge.PendingTransfer, error) {
	return s.scanTransfers(ctx, `WHERE processed = FALSE`)
}

func (s *Store) scanTransfers(ctx context.Context, where string, args ...interface{}) ([]bridge.PendingTransfer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, asset, amount::text, target_domain, target_address, created_at, processed, processed_at
		FROM bridge_pending_transfers `+where+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bridge.PendingTransfer
	for rows.Next() {
		var t bridge.PendingTransfer
		var raw string
		var processedAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.SenderID, &t.Asset, &raw, &t.TargetDomain, &t.TargetAddress,
			&t.CreatedAt, &t.Processed, &processedAt); err != nil {
			return nil, err
		}
		if t.Amount, err = parseAmount(raw); err != nil {
			return nil, err
		}
		if processedAt.Valid {
			t.ProcessedAt = processedAt.Time
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ProcessRemoteCredit(ctx context.Context, remoteTxID string, recipient uint64, asset string, amount *big.Int) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO bridge_processed_remote (tx_id, processed_at)
		VALUES ($1, $2)
		ON CONFLICT (tx_id) DO NOTHING
	`, remoteTxID, time.Now().UTC())
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO balances (account_id, asset, amount, updated_at)
		VALUES ($1, $2, $3::numeric, $4)
		ON CONFLICT (account_id, asset)
		DO UPDATE SET amount = balances.amount + EXCLUDED.amount, updated_at = EXCLUDED.updated_at
	`, recipient, asset, amount.String(), time.Now().UTC()); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

func (s *Store) IsRemoteProcessed(ctx context.Context, remoteTxID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM bridge_processed_remote WHERE tx_id = $1`, remoteTxID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// --- ParamStore -------------------------------------------------------------

// Singleton persistence uses JSON payloads keyed by name; big.Int and
// duration fields round-trip through string forms.

type feeScheduleRow struct {
	TransferFeeBps   uint64 `json:"transfer_fee_bps"`
	TransferFeeCap   uint64 `json:"transfer_fee_cap"`
	WithdrawalFeeBps uint64 `json:"withdrawal_fee_bps"`
	WithdrawalFeeCap uint64 `json:"withdrawal_fee_cap"`
}

type systemStatusRow struct {
	Paused            bool `json:"paused"`
	LendingPaused     bool `json:"lending_paused"`
	WithdrawalsPaused bool `json:"withdrawals_paused"`
	TransfersPaused   bool `json:"transfers_paused"`
}

type paramsRow struct {
	SavingsAPRBps           uint64 `json:"savings_apr_bps"`
	LTVBps                  uint64 `json:"ltv_bps"`
	LiquidationThresholdBps uint64 `json:"liquidation_threshold_bps"`
	OracleHeartbeatSeconds  int64  `json:"oracle_heartbeat_seconds"`
	CollateralAsset         string `json:"collateral_asset"`
	LargeTransferThreshold  string `json:"large_transfer_threshold"`
	DelayPeriodSeconds      int64  `json:"delay_period_seconds"`
	MinGasForTransfer       uint64 `json:"min_gas_for_transfer"`
}

func (s *Store) getSingleton(ctx context.Context, name string, dst interface{}) (bool, time.Time, error) {
	var payload []byte
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx, `SELECT payload, updated_at FROM system_singletons WHERE name = $1`, name).
		Scan(&payload, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, err
	}
	return true, updatedAt, json.Unmarshal(payload, dst)
}

func (s *Store) setSingleton(ctx context.Context, name string, src interface{}) error {
	payload, err := json.Marshal(src)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO system_singletons (name, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`, name, payload, time.Now().UTC())
	return err
}

func (s *Store) GetFeeSchedule(ctx context.Context) (ledger.FeeSchedule, error) {
	var row feeScheduleRow
	found, updatedAt, err := s.getSingleton(ctx, "fee_schedule", &row)
	if err != nil {
		return ledger.FeeSchedule{}, err
	}
	if !found {
		return ledger.DefaultFeeSchedule(), nil
	}
	return ledger.FeeSchedule{
		TransferFeeBps:   row.TransferFeeBps,
		TransferFeeCap:   row.TransferFeeCap,
		WithdrawalFeeBps: row.WithdrawalFeeBps,
		WithdrawalFeeCap: row.WithdrawalFeeCap,
		UpdatedAt:        updatedAt,
	}, nil
}

func (s *Store) SetFeeSchedule(ctx context.Context, fs ledger.FeeSchedule) error {
	return s.setSingleton(ctx, "fee_schedule", feeScheduleRow{
		TransferFeeBps:   fs.TransferFeeBps,
		TransferFeeCap:   fs.TransferFeeCap,
		WithdrawalFeeBps: fs.WithdrawalFeeBps,
		WithdrawalFeeCap: fs.WithdrawalFeeCap,
	})
}

func (s *Store) GetSystemStatus(ctx context.Context) (ledger.SystemStatus, error) {
	var row systemStatusRow
	found, updatedAt, err := s.getSingleton(ctx, "system_status", &row)
	if err != nil {
		return ledger.SystemStatus{}, err
	}
	if !found {
		return ledger.SystemStatus{}, nil
	}
	return ledger.SystemStatus{
		Paused:            row.Paused,
		LendingPaused:     row.LendingPaused,
		WithdrawalsPaused: row.WithdrawalsPaused,
		TransfersPaused:   row.TransfersPaused,
		UpdatedAt:         updatedAt,
	}, nil
}

func (s *Store) SetSystemStatus(ctx context.Context, st ledger.SystemStatus) error {
	return s.setSingleton(ctx, "system_status", systemStatusRow{
		Paused:            st.Paused,
		LendingPaused:     st.LendingPaused,
		WithdrawalsPaused: st.WithdrawalsPaused,
		TransfersPaused:   st.TransfersPaused,
	})
}

func (s *Store) GetParams(ctx context.Context) (ledger.Params, error) {
	var row paramsRow
	found, updatedAt, err := s.getSingleton(ctx, "params", &row)
	if err != nil {
		return ledger.Params{}, err
	}
	if !found {
		return ledger.DefaultParams(), nil
	}
	threshold, err := parseAmount(row.LargeTransferThreshold)
	if err != nil {
		return ledger.Params{}, err
	}
	return ledger.Params{
		SavingsAPRBps:           row.SavingsAPRBps,
		LTVBps:                  row.LTVBps,
		LiquidationThresholdBps: row.LiquidationThresholdBps,
		OracleHeartbeat:         time.Duration(row.OracleHeartbeatSeconds) * time.Second,
		CollateralAsset:         row.CollateralAsset,
		LargeTransferThreshold:  threshold,
		DelayPeriod:             time.Duration(row.DelayPeriodSeconds) * time.Second,
		MinGasForTransfer:       row.MinGasForTransfer,
		UpdatedAt:               updatedAt,
	}, nil
}

func (s *Store) SetParams(ctx context.Context, p ledger.Params) error {
	return s.setSingleton(ctx, "params", paramsRow{
		SavingsAPRBps:           p.SavingsAPRBps,
		LTVBps:                  p.LTVBps,
		LiquidationThresholdBps: p.LiquidationThresholdBps,
		OracleHeartbeatSeconds:  int64(p.OracleHeartbeat / time.Second),
		CollateralAsset:         p.CollateralAsset,
		LargeTransferThreshold:  p.LargeTransferThreshold.String(),
		DelayPeriodSeconds:      int64(p.DelayPeriod / time.Second),
		MinGasForTransfer:       p.MinGasForTransfer,
	})
}
