// Package governor owns the system pause flags and the bounded operating
// parameters every other component validates against.
package governor

import (
	"context"
	"strconv"

	"github.com/Altruva-Group/noori-bank/internal/app/domain/event"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/ledger"
	"github.com/Altruva-Group/noori-bank/internal/app/events"
	"github.com/Altruva-Group/noori-bank/internal/app/storage"
	"github.com/Altruva-Group/noori-bank/internal/app/trust"
	serrors "github.com/Altruva-Group/noori-bank/internal/errors"
	"github.com/Altruva-Group/noori-bank/pkg/logger"
)

// Service gates operations on system status and manages governed
// parameters.
type Service struct {
	store  storage.ParamStore
	authz  trust.AuthorizationService
	events *events.Log
	log    *logger.Logger
}

// New constructs the governor.
func New(store storage.ParamStore, authz trust.AuthorizationService, evts *events.Log, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("governor")
	}
	if evts == nil {
		evts = events.NewLog(0, nil)
	}
	return &Service{store: store, authz: authz, events: evts, log: log}
}

// Status returns the current pause flags.
func (s *Service) Status(ctx context.Context) (ledger.SystemStatus, error) {
	return s.store.GetSystemStatus(ctx)
}

// Params returns the current operating parameters.
func (s *Service) Params(ctx context.Context) (ledger.Params, error) {
	return s.store.GetParams(ctx)
}

// Fees returns the current fee schedule.
func (s *Service) Fees(ctx context.Context) (ledger.FeeSchedule, error) {
	return s.store.GetFeeSchedule(ctx)
}

// RequireActive rejects when the global pause flag is set.
func (s *Service) RequireActive(ctx context.Context) error {
	st, err := s.store.GetSystemStatus(ctx)
	if err != nil {
		return err
	}
	if st.Paused {
		return serrors.SystemPaused()
	}
	return nil
}

// RequireLendingActive rejects when either the global or the lending pause
// flag is set.
func (s *Service) RequireLendingActive(ctx context.Context) error {
	st, err := s.store.GetSystemStatus(ctx)
	if err != nil {
		return err
	}
	if st.Paused {
		return serrors.SystemPaused()
	}
	if st.LendingPaused {
		return serrors.LendingPaused()
	}
	return nil
}

// RequireWithdrawalsActive rejects when withdrawals are blocked.
func (s *Service) RequireWithdrawalsActive(ctx context.Context) error {
	st, err := s.store.GetSystemStatus(ctx)
	if err != nil {
		return err
	}
	if st.Paused {
		return serrors.SystemPaused()
	}
	if st.WithdrawalsPaused {
		return serrors.WithdrawalsPaused()
	}
	return nil
}

// RequireTransfersActive rejects when transfers are blocked.
func (s *Service) RequireTransfersActive(ctx context.Context) error {
	st, err := s.store.GetSystemStatus(ctx)
	if err != nil {
		return err
	}
	if st.Paused {
		return serrors.SystemPaused()
	}
	if st.TransfersPaused {
		return serrors.TransfersPaused()
	}
	return nil
}

// RequireNotBlacklisted consults the authorization service for the account.
func (s *Service) RequireNotBlacklisted(ctx context.Context, accountID uint64) error {
	flagged, err := s.authz.IsBlacklisted(ctx, accountID)
	if err != nil {
		return err
	}
	if flagged {
		return serrors.Blacklisted(strconv.FormatUint(accountID, 10))
	}
	return nil
}

// RequireCapability rejects callers lacking the capability.
func (s *Service) RequireCapability(ctx context.Context, caller string, cap trust.Capability) error {
	ok, err := s.authz.HasCapability(ctx, caller, cap)
	if err != nil {
		return err
	}
	if !ok {
		return serrors.Forbidden("identity %s lacks %s", caller, cap)
	}
	return nil
}

func (s *Service) requireGovernor(ctx context.Context, caller string) error {
	return s.RequireCapability(ctx, caller, trust.CapGovern)
}

// SetStatus replaces the pause flags.
func (s *Service) SetStatus(ctx context.Context, caller string, st ledger.SystemStatus) (ledger.SystemStatus, error) {
	if err := s.requireGovernor(ctx, caller); err != nil {
		return ledger.SystemStatus{}, err
	}
	if err := s.store.SetSystemStatus(ctx, st); err != nil {
		return ledger.SystemStatus{}, err
	}
	s.events.Record(event.Event{Kind: event.KindStatusChanged, Details: map[string]string{
		"paused":             strconv.FormatBool(st.Paused),
		"lending_paused":     strconv.FormatBool(st.LendingPaused),
		"withdrawals_paused": strconv.FormatBool(st.WithdrawalsPaused),
		"transfers_paused":   strconv.FormatBool(st.TransfersPaused),
	}})
	s.log.WithField("paused", st.Paused).Info("system status updated")
	return s.store.GetSystemStatus(ctx)
}

// SetFees updates the fee schedule. Rates above their caps, or caps above
// MaxBps, are rejected with no state change.
func (s *Service) SetFees(ctx context.Context, caller string, transferBps, transferCap, withdrawalBps, withdrawalCap uint64) (ledger.FeeSchedule, error) {
	if err := s.requireGovernor(ctx, caller); err != nil {
		return ledger.FeeSchedule{}, err
	}
	if transferCap > ledger.MaxBps || withdrawalCap > ledger.MaxBps {
		return ledger.FeeSchedule{}, serrors.OutOfBounds("fee cap exceeds %d bps", ledger.MaxBps)
	}
	if transferBps > transferCap {
		return ledger.FeeSchedule{}, serrors.OutOfBounds("transfer fee %d exceeds cap %d", transferBps, transferCap)
	}
	if withdrawalBps > withdrawalCap {
		return ledger.FeeSchedule{}, serrors.OutOfBounds("withdrawal fee %d exceeds cap %d", withdrawalBps, withdrawalCap)
	}

	fs := ledger.FeeSchedule{
		TransferFeeBps:   transferBps,
		TransferFeeCap:   transferCap,
		WithdrawalFeeBps: withdrawalBps,
		WithdrawalFeeCap: withdrawalCap,
	}
	if err := s.store.SetFeeSchedule(ctx, fs); err != nil {
		return ledger.FeeSchedule{}, err
	}
	s.events.Record(event.Event{Kind: event.KindFeeScheduleChange, Details: map[string]string{
		"transfer_fee_bps":   strconv.FormatUint(transferBps, 10),
		"withdrawal_fee_bps": strconv.FormatUint(withdrawalBps, 10),
	}})
	s.log.WithField("transfer_bps", transferBps).WithField("withdrawal_bps", withdrawalBps).Info("fee schedule updated")
	return s.store.GetFeeSchedule(ctx)
}

// SetParams replaces the operating parameters after bounds checks.
func (s *Service) SetParams(ctx context.Context, caller string, p ledger.Params) (ledger.Params, error) {
	if err := s.requireGovernor(ctx, caller); err != nil {
		return ledger.Params{}, err
	}
	if p.SavingsAPRBps > ledger.MaxBps {
		return ledger.Params{}, serrors.OutOfBounds("savings APR %d exceeds %d bps", p.SavingsAPRBps, ledger.MaxBps)
	}
	if p.LTVBps == 0 || p.LTVBps > ledger.MaxBps {
		return ledger.Params{}, serrors.OutOfBounds("LTV %d outside (0, %d] bps", p.LTVBps, ledger.MaxBps)
	}
	if p.LiquidationThresholdBps <= p.LTVBps || p.LiquidationThresholdBps > ledger.MaxBps {
		return ledger.Params{}, serrors.OutOfBounds("liquidation threshold %d outside (%d, %d] bps", p.LiquidationThresholdBps, p.LTVBps, ledger.MaxBps)
	}
	if p.OracleHeartbeat <= 0 || p.DelayPeriod <= 0 {
		return ledger.Params{}, serrors.OutOfBounds("heartbeat and delay period must be positive")
	}
	if p.LargeTransferThreshold == nil || p.LargeTransferThreshold.Sign() <= 0 {
		return ledger.Params{}, serrors.OutOfBounds("large transfer threshold must be positive")
	}
	if p.CollateralAsset == "" {
		return ledger.Params{}, serrors.OutOfBounds("collateral asset is required")
	}

	if err := s.store.SetParams(ctx, p); err != nil {
		return ledger.Params{}, err
	}
	s.events.Record(event.Event{Kind: event.KindParamsChanged, Details: map[string]string{
		"savings_apr_bps": strconv.FormatUint(p.SavingsAPRBps, 10),
		"ltv_bps":         strconv.FormatUint(p.LTVBps, 10),
	}})
	s.log.Info("operating parameters updated")
	return s.store.GetParams(ctx)
}
