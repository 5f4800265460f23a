package event

import "time"

// Kind names a committed state transition.
type Kind string

const (
	KindAccountCreated    Kind = "account.created"
	KindAccountRecovered  Kind = "account.recovered"
	KindMemoAdded         Kind = "memo.added"
	KindDeposit           Kind = "ledger.deposit"
	KindWithdraw          Kind = "ledger.withdraw"
	KindTransfer          Kind = "ledger.transfer"
	KindFeesSwept         Kind = "ledger.fees_swept"
	KindInterestAccrued   Kind = "interest.accrued"
	KindLoanOriginated    Kind = "loan.originated"
	KindLoanRepaid        Kind = "loan.repaid"
	KindLoanLiquidated    Kind = "loan.liquidated"
	KindBridgeLocked      Kind = "bridge.locked"
	KindBridgeQueued      Kind = "bridge.queued"
	KindBridgeReleased    Kind = "bridge.released"
	KindRemoteCredited    Kind = "bridge.remote_credited"
	KindChainRegistered   Kind = "bridge.chain_registered"
	KindChainToggled      Kind = "bridge.chain_toggled"
	KindStatusChanged     Kind = "governor.status_changed"
	KindParamsChanged     Kind = "governor.params_changed"
	KindFeeScheduleChange Kind = "governor.fees_changed"
)

// Event is one committed transition appended to the side-channel log that
// the external monitoring component consumes. The core never depends on
// consumption succeeding.
type Event struct {
	ID        string            `json:"id"`
	Kind      Kind              `json:"kind"`
	AccountID uint64            `json:"account_id,omitempty"`
	Asset     string            `json:"asset,omitempty"`
	Amount    string            `json:"amount,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Time      time.Time         `json:"time"`
}
