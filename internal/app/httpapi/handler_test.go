package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	app "github.com/Altruva-Group/noori-bank/internal/app"
	lendingsvc "github.com/Altruva-Group/noori-bank/internal/app/services/lending"
	"github.com/Altruva-Group/noori-bank/internal/app/trust"
)

const testSecret = "handler-test-secret"

func signToken(t *testing.T, identity string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   identity,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newServer(t *testing.T) (*httptest.Server, *app.Application) {
	t.Helper()
	authz := trust.NewStaticAuthorization()
	authz.Grant("governor", trust.CapGovern)
	authz.Grant("treasury", trust.CapSweepFees)
	authz.Grant("bridge-ops", trust.CapBridgeOps)

	application, err := app.New(app.Stores{}, app.Options{
		Authz:  authz,
		Oracle: lendingsvc.NewStaticOracle(big.NewRat(2000, 1), time.Now().UTC()),
	}, nil)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("start application: %v", err)
	}
	t.Cleanup(func() { application.Stop(context.Background()) })

	auth := NewAuthMiddleware(testSecret, nil, []string{"/healthz"})
	srv := httptest.NewServer(auth.Handler(NewHandler(application)))
	t.Cleanup(srv.Close)
	return srv, application
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, identity string, payload any) *http.Response {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if identity != "" {
		req.Header.Set("Authorization", "Bearer "+signToken(t, identity))
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/accounts", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz should skip auth, got %d", resp.StatusCode)
	}
}

func TestAccountAndLedgerFlow(t *testing.T) {
	srv, _ := newServer(t)

	resp := doRequest(t, srv, http.MethodPost, "/accounts", "alice", map[string]string{
		"identity": "alice", "credential": "alice-pw", "recovery_key": "alice-rk",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create account: %d", resp.StatusCode)
	}
	var alice struct {
		ID uint64 `json:"id"`
	}
	decodeBody(t, resp, &alice)

	resp = doRequest(t, srv, http.MethodPost, "/accounts", "bob", map[string]string{
		"identity": "bob", "credential": "bob-pw", "recovery_key": "bob-rk",
	})
	var bob struct {
		ID uint64 `json:"id"`
	}
	decodeBody(t, resp, &bob)

	resp = doRequest(t, srv, http.MethodPost, fmt.Sprintf("/accounts/%d/memos", bob.ID), "bob", map[string]string{"memo": "bob-tips"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("add memo: %d", resp.StatusCode)
	}

	resp = doRequest(t, srv, http.MethodPost, fmt.Sprintf("/accounts/%d/deposit", alice.ID), "alice", map[string]string{
		"asset": "USD", "amount": "10000",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("deposit: %d", resp.StatusCode)
	}

	// Transfer addressed by memo; default fee is 10 bps.
	resp = doRequest(t, srv, http.MethodPost, fmt.Sprintf("/accounts/%d/transfer", alice.ID), "alice", map[string]string{
		"credential": "alice-pw", "recipient_memo": "bob-tips", "asset": "USD", "amount": "1000",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("transfer: %d", resp.StatusCode)
	}

	resp = doRequest(t, srv, http.MethodGet, fmt.Sprintf("/accounts/%d/balances/USD", alice.ID), "alice", nil)
	var bal struct {
		Amount string `json:"amount"`
	}
	decodeBody(t, resp, &bal)
	if bal.Amount != "8999" {
		t.Fatalf("sender balance: %s", bal.Amount)
	}

	// Withdrawal with a wrong credential maps onto 401.
	resp = doRequest(t, srv, http.MethodPost, fmt.Sprintf("/accounts/%d/withdraw", alice.ID), "alice", map[string]string{
		"credential": "wrong", "asset": "USD", "amount": "100",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad credential, got %d", resp.StatusCode)
	}

	// Malformed amounts are 400s.
	resp = doRequest(t, srv, http.MethodPost, fmt.Sprintf("/accounts/%d/deposit", alice.ID), "alice", map[string]string{
		"asset": "USD", "amount": "12.5",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for fractional amount, got %d", resp.StatusCode)
	}
}

func TestGovernorEndpoints(t *testing.T) {
	srv, _ := newServer(t)

	// Non-governors may read but not write.
	resp := doRequest(t, srv, http.MethodGet, "/system/status", "alice", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("read status: %d", resp.StatusCode)
	}
	resp = doRequest(t, srv, http.MethodPut, "/system/status", "alice", map[string]bool{"paused": true})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-governor, got %d", resp.StatusCode)
	}

	resp = doRequest(t, srv, http.MethodPut, "/system/status", "governor", map[string]bool{"paused": true})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("governor pause: %d", resp.StatusCode)
	}

	// Paused system rejects deposits with 409.
	acct := doRequest(t, srv, http.MethodPost, "/accounts", "carol", map[string]string{
		"identity": "carol", "credential": "pw", "recovery_key": "rk",
	})
	var carol struct {
		ID uint64 `json:"id"`
	}
	decodeBody(t, acct, &carol)
	resp = doRequest(t, srv, http.MethodPost, fmt.Sprintf("/accounts/%d/deposit", carol.ID), "carol", map[string]string{
		"asset": "USD", "amount": "100",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 while paused, got %d", resp.StatusCode)
	}

	// Fee bounds are validated.
	resp = doRequest(t, srv, http.MethodPut, "/system/fees", "governor", map[string]uint64{
		"transfer_fee_bps": 200, "transfer_fee_cap": 100, "withdrawal_fee_bps": 50, "withdrawal_fee_cap": 100,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for rate above cap, got %d", resp.StatusCode)
	}
}

func TestBridgeEndpoints(t *testing.T) {
	srv, _ := newServer(t)

	resp := doRequest(t, srv, http.MethodPost, "/bridge/chains", "bridge-ops", map[string]string{
		"domain": "neo-n3", "remote_bridge": "0xbridge",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register chain: %d", resp.StatusCode)
	}

	resp = doRequest(t, srv, http.MethodPost, "/bridge/chains", "alice", map[string]string{
		"domain": "other", "remote_bridge": "0x2",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-operator, got %d", resp.StatusCode)
	}

	acct := doRequest(t, srv, http.MethodPost, "/accounts", "dave", map[string]string{
		"identity": "dave", "credential": "pw", "recovery_key": "rk",
	})
	var dave struct {
		ID uint64 `json:"id"`
	}
	decodeBody(t, acct, &dave)

	resp = doRequest(t, srv, http.MethodPost, "/bridge/remote", "bridge-ops", map[string]any{
		"remote_tx_id": "rtx-1", "recipient_id": dave.ID, "asset": "USD", "amount": "250000",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("remote credit: %d", resp.StatusCode)
	}
	resp = doRequest(t, srv, http.MethodPost, "/bridge/remote", "bridge-ops", map[string]any{
		"remote_tx_id": "rtx-1", "recipient_id": dave.ID, "asset": "USD", "amount": "250000",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on replay, got %d", resp.StatusCode)
	}

	// Locks at or above the large-transfer threshold queue the transfer.
	resp = doRequest(t, srv, http.MethodPost, fmt.Sprintf("/accounts/%d/bridge/lock", dave.ID), "dave", map[string]any{
		"credential": "pw", "asset": "USD", "amount": "150000",
		"target_domain": "neo-n3", "target_address": "NAddr1", "gas_budget": 200000,
	})
	var lock struct {
		TransferID string `json:"TransferID"`
		Queued     bool   `json:"Queued"`
	}
	decodeBody(t, resp, &lock)
	if !lock.Queued || lock.TransferID == "" {
		t.Fatalf("expected queued lock, got %+v", lock)
	}

	resp = doRequest(t, srv, http.MethodPost, "/bridge/transfers/"+lock.TransferID+"/process", "bridge-ops", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 before delay elapses, got %d", resp.StatusCode)
	}
}

func TestAccrueEndpoint(t *testing.T) {
	srv, application := newServer(t)

	resp := doRequest(t, srv, http.MethodPost, "/accounts", "carol", map[string]string{
		"identity": "carol", "credential": "carol-pw", "recovery_key": "carol-rk",
	})
	var carol struct {
		ID uint64 `json:"id"`
	}
	decodeBody(t, resp, &carol)

	resp = doRequest(t, srv, http.MethodPost, fmt.Sprintf("/accounts/%d/deposit", carol.ID), "carol", map[string]string{
		"asset": "USD", "amount": "1000000",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("deposit: %d", resp.StatusCode)
	}

	resp = doRequest(t, srv, http.MethodPost, fmt.Sprintf("/accounts/%d/accrue", carol.ID), "carol", map[string]string{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("accrue without asset: %d", resp.StatusCode)
	}

	application.Interest.SetClock(func() time.Time {
		return time.Now().UTC().Add(24*time.Hour + time.Hour)
	})
	resp = doRequest(t, srv, http.MethodPost, fmt.Sprintf("/accounts/%d/accrue", carol.ID), "carol", map[string]string{"asset": "USD"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accrue: %d", resp.StatusCode)
	}
	var bal struct {
		Amount string `json:"amount"`
	}
	decodeBody(t, resp, &bal)
	if bal.Amount != "1027397" {
		t.Fatalf("expected one day of interest, got %s", bal.Amount)
	}
}

func TestRateLimiter(t *testing.T) {
	limited := NewRateLimiter(1, 1).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	srv := httptest.NewServer(limited)
	defer srv.Close()

	first, err := srv.Client().Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	first.Body.Close()
	if first.StatusCode != http.StatusOK {
		t.Fatalf("first request: %d", first.StatusCode)
	}

	second, err := srv.Client().Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	second.Body.Close()
	if second.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.StatusCode)
	}
}
