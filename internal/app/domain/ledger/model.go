package ledger

import (
	"math/big"
	"time"
)

// MaxBps is the basis-point denominator: 10000 bps = 100%.
const MaxBps = 10_000

// InterestDenominator converts an annual bps rate into a daily factor:
// dailyInterest = balance * aprBps / 36500.
const InterestDenominator = 36_500

// OneDay is the accrual step for savings interest.
const OneDay = 24 * time.Hour

// Balance is the custodied amount an account holds in one asset. Amount is
// never negative. LastAccrual anchors interest accrual; the residual sub-day
// remainder is preserved when interest is applied.
type Balance struct {
	AccountID   uint64
	Asset       string
	Amount      *big.Int
	LastAccrual time.Time
	UpdatedAt   time.Time
}

// Clone returns a deep copy so callers can mutate amounts freely.
func (b Balance) Clone() Balance {
	out := b
	if b.Amount != nil {
		out.Amount = new(big.Int).Set(b.Amount)
	}
	return out
}

// Pool identifies one of the protocol-owned asset pools.
type Pool string

const (
	// PoolFees accumulates transfer and withdrawal fees per asset.
	PoolFees Pool = "fees"
	// PoolBridgeEscrow holds amounts locked for outbound settlement.
	PoolBridgeEscrow Pool = "bridge_escrow"
	// PoolCollateral holds collateral escrowed against open loans.
	PoolCollateral Pool = "collateral"
	// PoolLiquidation receives collateral seized from liquidated loans.
	PoolLiquidation Pool = "liquidation"
)

// FeeSchedule holds fee rates and the governance caps bounding them. Rates
// and caps are basis points in [0, MaxBps].
type FeeSchedule struct {
	TransferFeeBps   uint64
	TransferFeeCap   uint64
	WithdrawalFeeBps uint64
	WithdrawalFeeCap uint64
	UpdatedAt        time.Time
}

// SystemStatus carries the independently settable pause flags. Paused is the
// stronger gate: it blocks every new financial action regardless of the
// per-flow flags, while completion of already-queued delayed transfers stays
// permitted.
type SystemStatus struct {
	Paused            bool
	LendingPaused     bool
	WithdrawalsPaused bool
	TransfersPaused   bool
	UpdatedAt         time.Time
}

// Params are the governor-controlled operating parameters.
type Params struct {
	SavingsAPRBps           uint64
	LTVBps                  uint64
	LiquidationThresholdBps uint64
	OracleHeartbeat         time.Duration
	CollateralAsset         string
	LargeTransferThreshold  *big.Int
	DelayPeriod             time.Duration
	MinGasForTransfer       uint64
	UpdatedAt               time.Time
}

// Clone returns a deep copy of the parameter set.
func (p Params) Clone() Params {
	out := p
	if p.LargeTransferThreshold != nil {
		out.LargeTransferThreshold = new(big.Int).Set(p.LargeTransferThreshold)
	}
	return out
}

// DefaultParams mirrors the launch configuration of the original deployment.
func DefaultParams() Params {
	return Params{
		SavingsAPRBps:           1000,
		LTVBps:                  6000,
		LiquidationThresholdBps: 8000,
		OracleHeartbeat:         time.Hour,
		CollateralAsset:         "ETH",
		LargeTransferThreshold:  new(big.Int).SetUint64(100_000),
		DelayPeriod:             24 * time.Hour,
		MinGasForTransfer:       100_000,
	}
}

// DefaultFeeSchedule mirrors the launch fee configuration: 0.1% transfer,
// 0.5% withdrawal, both capped at 1%.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		TransferFeeBps:   10,
		TransferFeeCap:   100,
		WithdrawalFeeBps: 50,
		WithdrawalFeeCap: 100,
	}
}
