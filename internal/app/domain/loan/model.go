package loan

import (
	"math/big"
	"time"
)

// Status tracks the loan lifecycle: Open -> Repaid | Liquidated. Both end
// states are terminal.
type Status string

const (
	StatusOpen       Status = "open"
	StatusRepaid     Status = "repaid"
	StatusLiquidated Status = "liquidated"
)

// Loan is a collateralized borrow position. At most one open loan exists per
// account. Collateral is escrowed in the protocol collateral pool while the
// loan is open; liquidation seizes it into the liquidation pool instead of
// returning it to the borrower.
type Loan struct {
	AccountID       uint64
	Principal       *big.Int
	Collateral      *big.Int
	PrincipalAsset  string
	CollateralAsset string
	Status          Status
	Liquidated      bool
	OriginatedAt    time.Time
	ClosedAt        time.Time
	UpdatedAt       time.Time
}

// Clone returns a deep copy so callers can mutate amounts freely.
func (l Loan) Clone() Loan {
	out := l
	if l.Principal != nil {
		out.Principal = new(big.Int).Set(l.Principal)
	}
	if l.Collateral != nil {
		out.Collateral = new(big.Int).Set(l.Collateral)
	}
	return out
}

// Open reports whether the loan still accepts repayments.
func (l Loan) Open() bool { return l.Status == StatusOpen }
