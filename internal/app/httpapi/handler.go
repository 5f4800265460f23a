// Package httpapi exposes the ledger over a REST surface. Handlers stay
// thin: they decode, delegate to the application services, and map service
// errors onto HTTP statuses.
package httpapi

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	app "github.com/Altruva-Group/noori-bank/internal/app"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/account"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/bridge"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/ledger"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/loan"
	serrors "github.com/Altruva-Group/noori-bank/internal/errors"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a mux exposing the core REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.health)
	mux.HandleFunc("/accounts", h.accounts)
	mux.HandleFunc("/accounts/recover", h.recover)
	mux.HandleFunc("/accounts/", h.accountResources)
	mux.HandleFunc("/memos/", h.memos)
	mux.HandleFunc("/bridge/chains", h.bridgeChains)
	mux.HandleFunc("/bridge/chains/", h.bridgeChain)
	mux.HandleFunc("/bridge/transfers", h.bridgeTransfers)
	mux.HandleFunc("/bridge/transfers/", h.bridgeTransfer)
	mux.HandleFunc("/bridge/remote", h.bridgeRemote)
	mux.HandleFunc("/system/status", h.systemStatus)
	mux.HandleFunc("/system/params", h.systemParams)
	mux.HandleFunc("/system/fees", h.systemFees)
	mux.HandleFunc("/system/fees/sweep", h.sweepFees)
	mux.HandleFunc("/events", h.events)
	return mux
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// accountView is the public shape of an account; credential material never
// leaves the service.
type accountView struct {
	ID        uint64    `json:"id"`
	Identity  string    `json:"identity"`
	Memos     []string  `json:"memos,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func viewAccount(a account.Account) accountView {
	return accountView{ID: a.ID, Identity: a.Identity, Memos: a.Memos, CreatedAt: a.CreatedAt}
}

type balanceView struct {
	AccountID   uint64    `json:"account_id"`
	Asset       string    `json:"asset"`
	Amount      string    `json:"amount"`
	LastAccrual time.Time `json:"last_accrual"`
}

func viewBalance(b ledger.Balance) balanceView {
	return balanceView{AccountID: b.AccountID, Asset: b.Asset, Amount: b.Amount.String(), LastAccrual: b.LastAccrual}
}

type loanView struct {
	AccountID       uint64    `json:"account_id"`
	Principal       string    `json:"principal"`
	Collateral      string    `json:"collateral"`
	PrincipalAsset  string    `json:"principal_asset"`
	CollateralAsset string    `json:"collateral_asset"`
	Status          string    `json:"status"`
	OriginatedAt    time.Time `json:"originated_at"`
}

func viewLoan(l loan.Loan) loanView {
	return loanView{
		AccountID:       l.AccountID,
		Principal:       l.Principal.String(),
		Collateral:      l.Collateral.String(),
		PrincipalAsset:  l.PrincipalAsset,
		CollateralAsset: l.CollateralAsset,
		Status:          string(l.Status),
		OriginatedAt:    l.OriginatedAt,
	}
}

type transferView struct {
	ID            string    `json:"id"`
	SenderID      uint64    `json:"sender_id"`
	Asset         string    `json:"asset"`
	Amount        string    `json:"amount"`
	TargetDomain  string    `json:"target_domain"`
	TargetAddress string    `json:"target_address"`
	CreatedAt     time.Time `json:"created_at"`
	Processed     bool      `json:"processed"`
}

func viewTransfer(t bridge.PendingTransfer) transferView {
	return transferView{
		ID:            t.ID,
		SenderID:      t.SenderID,
		Asset:         t.Asset,
		Amount:        t.Amount.String(),
		TargetDomain:  t.TargetDomain,
		TargetAddress: t.TargetAddress,
		CreatedAt:     t.CreatedAt,
		Processed:     t.Processed,
	}
}

func (h *handler) accounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Identity    string `json:"identity"`
			Credential  string `json:"credential"`
			RecoveryKey string `json:"recovery_key"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeServiceError(w, serrors.InvalidFormat("%s", err))
			return
		}
		acct, err := h.app.Accounts.Create(r.Context(), payload.Identity, payload.Credential, payload.RecoveryKey)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, viewAccount(acct))

	case http.MethodGet:
		accts, err := h.app.Accounts.List(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		views := make([]accountView, 0, len(accts))
		for _, a := range accts {
			views = append(views, viewAccount(a))
		}
		writeJSON(w, http.StatusOK, views)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) recover(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Identity      string `json:"identity"`
		RecoveryKey   string `json:"recovery_key"`
		NewCredential string `json:"new_credential"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeServiceError(w, serrors.InvalidFormat("%s", err))
		return
	}
	if err := h.app.Accounts.Recover(r.Context(), payload.Identity, payload.RecoveryKey, payload.NewCredential); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) memos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	memo := strings.Trim(strings.TrimPrefix(r.URL.Path, "/memos"), "/")
	if memo == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	owner, err := h.app.Accounts.ResolveMemo(r.Context(), memo)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"account_id": owner})
}

func (h *handler) accountResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/accounts"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	accountID, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		writeServiceError(w, serrors.InvalidFormat("account id must be numeric"))
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		acct, err := h.app.Accounts.Get(r.Context(), accountID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewAccount(acct))
		return
	}

	switch parts[1] {
	case "memos":
		h.accountMemos(w, r, accountID)
	case "balances":
		h.accountBalances(w, r, accountID, parts[2:])
	case "deposit":
		h.deposit(w, r, accountID)
	case "withdraw":
		h.withdraw(w, r, accountID)
	case "transfer":
		h.transfer(w, r, accountID)
	case "accrue":
		h.accrue(w, r, accountID)
	case "loans":
		h.accountLoans(w, r, accountID, parts[2:])
	case "bridge":
		h.accountBridge(w, r, accountID, parts[2:])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) accountMemos(w http.ResponseWriter, r *http.Request, accountID uint64) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Memo string `json:"memo"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeServiceError(w, serrors.InvalidFormat("%s", err))
		return
	}
	if err := h.app.Accounts.AddMemo(r.Context(), accountID, payload.Memo); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) accountBalances(w http.ResponseWriter, r *http.Request, accountID uint64, rest []string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if len(rest) == 1 && rest[0] != "" {
		bal, err := h.app.Ledger.Balance(r.Context(), accountID, rest[0])
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewBalance(bal))
		return
	}
	balances, err := h.app.Ledger.Balances(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]balanceView, 0, len(balances))
	for _, b := range balances {
		views = append(views, viewBalance(b))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handler) accrue(w http.ResponseWriter, r *http.Request, accountID uint64) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Asset string `json:"asset"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeServiceError(w, serrors.InvalidFormat("%s", err))
		return
	}
	if payload.Asset == "" {
		writeServiceError(w, serrors.InvalidFormat("asset is required"))
		return
	}
	if err := h.app.Interest.Accrue(r.Context(), accountID, payload.Asset); err != nil {
		writeServiceError(w, err)
		return
	}
	bal, err := h.app.Ledger.Balance(r.Context(), accountID, payload.Asset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewBalance(bal))
}

func (h *handler) deposit(w http.ResponseWriter, r *http.Request, accountID uint64) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Asset  string `json:"asset"`
		Amount string `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeServiceError(w, serrors.InvalidFormat("%s", err))
		return
	}
	amount, err := parseAmount(payload.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.app.Ledger.Deposit(r.Context(), accountID, payload.Asset, amount); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) withdraw(w http.ResponseWriter, r *http.Request, accountID uint64) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Credential string `json:"credential"`
		Asset      string `json:"asset"`
		Amount     string `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeServiceError(w, serrors.InvalidFormat("%s", err))
		return
	}
	amount, err := parseAmount(payload.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.app.Ledger.Withdraw(r.Context(), accountID, payload.Credential, payload.Asset, amount); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) transfer(w http.ResponseWriter, r *http.Request, accountID uint64) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Credential    string `json:"credential"`
		RecipientID   uint64 `json:"recipient_id"`
		RecipientMemo string `json:"recipient_memo"`
		Asset         string `json:"asset"`
		Amount        string `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeServiceError(w, serrors.InvalidFormat("%s", err))
		return
	}
	amount, err := parseAmount(payload.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	recipient := payload.RecipientID
	if recipient == 0 {
		if payload.RecipientMemo == "" {
			writeServiceError(w, serrors.InvalidFormat("recipient_id or recipient_memo is required"))
			return
		}
		recipient, err = h.app.Ledger.ResolveRecipient(r.Context(), payload.RecipientMemo)
		if err != nil {
			writeServiceError(w, err)
			return
		}
	}

	if err := h.app.Ledger.Transfer(r.Context(), accountID, payload.Credential, recipient, payload.Asset, amount); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) accountLoans(w http.ResponseWriter, r *http.Request, accountID uint64, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			loans, err := h.app.Lending.History(r.Context(), accountID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			views := make([]loanView, 0, len(loans))
			for _, l := range loans {
				views = append(views, viewLoan(l))
			}
			writeJSON(w, http.StatusOK, views)

		case http.MethodPost:
			var payload struct {
				Credential     string `json:"credential"`
				PrincipalAsset string `json:"principal_asset"`
				Principal      string `json:"principal"`
				Collateral     string `json:"collateral"`
			}
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeServiceError(w, serrors.InvalidFormat("%s", err))
				return
			}
			principal, err := parseAmount(payload.Principal)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			collateral, err := parseAmount(payload.Collateral)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			ln, err := h.app.Lending.Borrow(r.Context(), accountID, payload.Credential, payload.PrincipalAsset, principal, collateral)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, viewLoan(ln))

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch rest[0] {
	case "open":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ln, ok, err := h.app.Lending.OpenLoan(r.Context(), accountID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if !ok {
			writeServiceError(w, serrors.NoLoan(accountID))
			return
		}
		writeJSON(w, http.StatusOK, viewLoan(ln))

	case "repay":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			Credential string `json:"credential"`
			Amount     string `json:"amount"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeServiceError(w, serrors.InvalidFormat("%s", err))
			return
		}
		amount, err := parseAmount(payload.Amount)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		ln, err := h.app.Lending.Repay(r.Context(), accountID, payload.Credential, amount)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewLoan(ln))

	case "liquidate":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		liquidated, err := h.app.Lending.CheckLiquidation(r.Context(), accountID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"liquidated": liquidated})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) accountBridge(w http.ResponseWriter, r *http.Request, accountID uint64, rest []string) {
	if len(rest) != 1 || rest[0] != "lock" || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var payload struct {
		Credential    string `json:"credential"`
		Asset         string `json:"asset"`
		Amount        string `json:"amount"`
		TargetDomain  string `json:"target_domain"`
		TargetAddress string `json:"target_address"`
		GasBudget     uint64 `json:"gas_budget"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeServiceError(w, serrors.InvalidFormat("%s", err))
		return
	}
	amount, err := parseAmount(payload.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	res, err := h.app.Bridge.Lock(r.Context(), accountID, payload.Credential, payload.Asset, amount, payload.TargetDomain, payload.TargetAddress, payload.GasBudget)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) bridgeChains(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		chains, err := h.app.Bridge.Chains(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, chains)

	case http.MethodPost:
		var payload struct {
			Domain       string `json:"domain"`
			RemoteBridge string `json:"remote_bridge"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeServiceError(w, serrors.InvalidFormat("%s", err))
			return
		}
		ch, err := h.app.Bridge.RegisterChain(r.Context(), Identity(r.Context()), payload.Domain, payload.RemoteBridge)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, ch)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) bridgeChain(w http.ResponseWriter, r *http.Request) {
	domain := strings.Trim(strings.TrimPrefix(r.URL.Path, "/bridge/chains"), "/")
	if domain == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeServiceError(w, serrors.InvalidFormat("%s", err))
		return
	}
	ch, err := h.app.Bridge.SetChainEnabled(r.Context(), Identity(r.Context()), domain, payload.Enabled)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (h *handler) bridgeTransfers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	pending, err := h.app.Bridge.PendingTransfers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]transferView, 0, len(pending))
	for _, t := range pending {
		views = append(views, viewTransfer(t))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handler) bridgeTransfer(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/bridge/transfers"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[1] != "process" || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err := h.app.Bridge.ProcessDelayed(r.Context(), parts[0]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) bridgeRemote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		RemoteTxID  string `json:"remote_tx_id"`
		RecipientID uint64 `json:"recipient_id"`
		Asset       string `json:"asset"`
		Amount      string `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeServiceError(w, serrors.InvalidFormat("%s", err))
		return
	}
	amount, err := parseAmount(payload.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	err = h.app.Bridge.ProcessRemote(r.Context(), Identity(r.Context()), payload.RemoteTxID, payload.RecipientID, payload.Asset, amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) systemStatus(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		st, err := h.app.Governor.Status(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)

	case http.MethodPut:
		var payload struct {
			Paused            bool `json:"paused"`
			LendingPaused     bool `json:"lending_paused"`
			WithdrawalsPaused bool `json:"withdrawals_paused"`
			TransfersPaused   bool `json:"transfers_paused"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeServiceError(w, serrors.InvalidFormat("%s", err))
			return
		}
		st, err := h.app.Governor.SetStatus(r.Context(), Identity(r.Context()), ledger.SystemStatus{
			Paused:            payload.Paused,
			LendingPaused:     payload.LendingPaused,
			WithdrawalsPaused: payload.WithdrawalsPaused,
			TransfersPaused:   payload.TransfersPaused,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) systemParams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		p, err := h.app.Governor.Params(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewParams(p))

	case http.MethodPut:
		var payload struct {
			SavingsAPRBps           uint64 `json:"savings_apr_bps"`
			LTVBps                  uint64 `json:"ltv_bps"`
			LiquidationThresholdBps uint64 `json:"liquidation_threshold_bps"`
			OracleHeartbeatSeconds  int64  `json:"oracle_heartbeat_seconds"`
			CollateralAsset         string `json:"collateral_asset"`
			LargeTransferThreshold  string `json:"large_transfer_threshold"`
			DelayPeriodSeconds      int64  `json:"delay_period_seconds"`
			MinGasForTransfer       uint64 `json:"min_gas_for_transfer"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeServiceError(w, serrors.InvalidFormat("%s", err))
			return
		}
		threshold, err := parseAmount(payload.LargeTransferThreshold)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		p, err := h.app.Governor.SetParams(r.Context(), Identity(r.Context()), ledger.Params{
			SavingsAPRBps:           payload.SavingsAPRBps,
			LTVBps:                  payload.LTVBps,
			LiquidationThresholdBps: payload.LiquidationThresholdBps,
			OracleHeartbeat:         time.Duration(payload.OracleHeartbeatSeconds) * time.Second,
			CollateralAsset:         payload.CollateralAsset,
			LargeTransferThreshold:  threshold,
			DelayPeriod:             time.Duration(payload.DelayPeriodSeconds) * time.Second,
			MinGasForTransfer:       payload.MinGasForTransfer,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewParams(p))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type paramsView struct {
	SavingsAPRBps           uint64 `json:"savings_apr_bps"`
	LTVBps                  uint64 `json:"ltv_bps"`
	LiquidationThresholdBps uint64 `json:"liquidation_threshold_bps"`
	OracleHeartbeatSeconds  int64  `json:"oracle_heartbeat_seconds"`
	CollateralAsset         string `json:"collateral_asset"`
	LargeTransferThreshold  string `json:"large_transfer_threshold"`
	DelayPeriodSeconds      int64  `json:"delay_period_seconds"`
	MinGasForTransfer       uint64 `json:"min_gas_for_transfer"`
}

func viewParams(p ledger.Params) paramsView {
	return paramsView{
		SavingsAPRBps:           p.SavingsAPRBps,
		LTVBps:                  p.LTVBps,
		LiquidationThresholdBps: p.LiquidationThresholdBps,
		OracleHeartbeatSeconds:  int64(p.OracleHeartbeat / time.Second),
		CollateralAsset:         p.CollateralAsset,
		LargeTransferThreshold:  p.LargeTransferThreshold.String(),
		DelayPeriodSeconds:      int64(p.DelayPeriod / time.Second),
		MinGasForTransfer:       p.MinGasForTransfer,
	}
}

func (h *handler) systemFees(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		fs, err := h.app.Governor.Fees(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, fs)

	case http.MethodPut:
		var payload struct {
			TransferFeeBps   uint64 `json:"transfer_fee_bps"`
			TransferFeeCap   uint64 `json:"transfer_fee_cap"`
			WithdrawalFeeBps uint64 `json:"withdrawal_fee_bps"`
			WithdrawalFeeCap uint64 `json:"withdrawal_fee_cap"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeServiceError(w, serrors.InvalidFormat("%s", err))
			return
		}
		fs, err := h.app.Governor.SetFees(r.Context(), Identity(r.Context()), payload.TransferFeeBps, payload.TransferFeeCap, payload.WithdrawalFeeBps, payload.WithdrawalFeeCap)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, fs)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) sweepFees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Asset       string `json:"asset"`
		RecipientID uint64 `json:"recipient_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeServiceError(w, serrors.InvalidFormat("%s", err))
		return
	}
	swept, err := h.app.Ledger.SweepFees(r.Context(), Identity(r.Context()), payload.Asset, payload.RecipientID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"swept": swept.String()})
}

func (h *handler) events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeServiceError(w, serrors.InvalidFormat("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}
	if limit > 0 {
		writeJSON(w, http.StatusOK, h.app.Events.ListLimit(limit))
		return
	}
	writeJSON(w, http.StatusOK, h.app.Events.List())
}

func parseAmount(raw string) (*big.Int, error) {
	if raw == "" {
		return nil, serrors.InvalidAmount("amount is required")
	}
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, serrors.InvalidAmount("amount %q is not a base-10 integer", raw)
	}
	return amount, nil
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := serrors.HTTPStatus(err)
	code := ""
	if se := serrors.GetServiceError(err); se != nil {
		code = string(se.Code)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error(), "code": code})
}
