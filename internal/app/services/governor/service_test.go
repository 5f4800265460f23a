package governor

import (
	"context"
	"errors"
	"testing"

	"github.com/Altruva-Group/noori-bank/internal/app/domain/ledger"
	"github.com/Altruva-Group/noori-bank/internal/app/storage/memory"
	"github.com/Altruva-Group/noori-bank/internal/app/trust"
	serrors "github.com/Altruva-Group/noori-bank/internal/errors"
)

func newService() (*Service, *trust.StaticAuthorization) {
	authz := trust.NewStaticAuthorization()
	authz.Grant("operator", trust.CapGovern)
	return New(memory.New(), authz, nil, nil), authz
}

func TestPauseGates(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	if err := svc.RequireActive(ctx); err != nil {
		t.Fatalf("fresh system should be active: %v", err)
	}

	if _, err := svc.SetStatus(ctx, "mallory", ledger.SystemStatus{Paused: true}); !errors.Is(err, serrors.Forbidden("")) {
		t.Fatalf("non-governor must be rejected, got %v", err)
	}

	if _, err := svc.SetStatus(ctx, "operator", ledger.SystemStatus{Paused: true}); err != nil {
		t.Fatalf("set status: %v", err)
	}

	if err := svc.RequireActive(ctx); !errors.Is(err, serrors.SystemPaused()) {
		t.Fatalf("expected SystemPaused, got %v", err)
	}
	// The global flag is the stronger gate: every flow reports it.
	if err := svc.RequireLendingActive(ctx); !errors.Is(err, serrors.SystemPaused()) {
		t.Fatalf("expected SystemPaused for lending, got %v", err)
	}

	if _, err := svc.SetStatus(ctx, "operator", ledger.SystemStatus{WithdrawalsPaused: true}); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if err := svc.RequireWithdrawalsActive(ctx); !errors.Is(err, serrors.WithdrawalsPaused()) {
		t.Fatalf("expected WithdrawalsPaused, got %v", err)
	}
	if err := svc.RequireTransfersActive(ctx); err != nil {
		t.Fatalf("transfers unaffected by withdrawal pause: %v", err)
	}
}

func TestSetFeesBounds(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	if _, err := svc.SetFees(ctx, "operator", 20, 100, 60, 100); err != nil {
		t.Fatalf("set fees: %v", err)
	}
	fs, err := svc.Fees(ctx)
	if err != nil || fs.TransferFeeBps != 20 || fs.WithdrawalFeeBps != 60 {
		t.Fatalf("fees not applied: %+v err=%v", fs, err)
	}

	if _, err := svc.SetFees(ctx, "operator", 200, 100, 60, 100); !errors.Is(err, serrors.OutOfBounds("")) {
		t.Fatalf("rate above cap must fail, got %v", err)
	}
	if _, err := svc.SetFees(ctx, "operator", 20, 20000, 60, 100); !errors.Is(err, serrors.OutOfBounds("")) {
		t.Fatalf("cap above MaxBps must fail, got %v", err)
	}

	// The failed updates left the schedule untouched.
	fs, _ = svc.Fees(ctx)
	if fs.TransferFeeBps != 20 {
		t.Fatalf("rejected update leaked: %+v", fs)
	}
}

func TestSetParamsBounds(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	p := ledger.DefaultParams()
	p.SavingsAPRBps = 1200
	updated, err := svc.SetParams(ctx, "operator", p)
	if err != nil || updated.SavingsAPRBps != 1200 {
		t.Fatalf("set params: %+v err=%v", updated, err)
	}

	bad := ledger.DefaultParams()
	bad.LiquidationThresholdBps = bad.LTVBps // threshold must exceed LTV
	if _, err := svc.SetParams(ctx, "operator", bad); !errors.Is(err, serrors.OutOfBounds("")) {
		t.Fatalf("expected OutOfBounds, got %v", err)
	}
}

func TestBlacklistGate(t *testing.T) {
	svc, authz := newService()
	ctx := context.Background()

	if err := svc.RequireNotBlacklisted(ctx, 9); err != nil {
		t.Fatalf("clean account: %v", err)
	}
	authz.SetBlacklisted(9, true)
	if err := svc.RequireNotBlacklisted(ctx, 9); !errors.Is(err, serrors.Blacklisted("9")) {
		t.Fatalf("expected Blacklisted, got %v", err)
	}
}
