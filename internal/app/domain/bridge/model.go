package bridge

import (
	"encoding/binary"
	"encoding/hex"
	"math/big"
	"time"

	"golang.org/x/crypto/sha3"
)

// Chain is a registered remote execution domain able to receive bridged
// value.
type Chain struct {
	Domain       string
	RemoteBridge string
	Enabled      bool
	RegisteredAt time.Time
	UpdatedAt    time.Time
}

// PendingTransfer is an outbound settlement held in the delay queue because
// its amount met the large-transfer threshold. It becomes processable once
// the delay period has elapsed and is processed exactly once.
type PendingTransfer struct {
	ID            string
	SenderID      uint64
	Asset         string
	Amount        *big.Int
	TargetDomain  string
	TargetAddress string
	CreatedAt     time.Time
	Processed     bool
	ProcessedAt   time.Time
}

// Clone returns a deep copy so callers can mutate amounts freely.
func (t PendingTransfer) Clone() PendingTransfer {
	out := t
	if t.Amount != nil {
		out.Amount = new(big.Int).Set(t.Amount)
	}
	return out
}

// Processable reports whether the delay period has elapsed at the given
// commit time.
func (t PendingTransfer) Processable(now time.Time, delay time.Duration) bool {
	return !now.Before(t.CreatedAt.Add(delay))
}

// TransferID derives the deterministic identifier of an outbound transfer as
// the keccak-256 of (sender, amount, targetDomain, targetAddress). Identical
// quadruples always collapse onto the same pending record.
func TransferID(sender uint64, amount *big.Int, targetDomain, targetAddress string) string {
	h := sha3.NewLegacyKeccak256()

	var senderBytes [8]byte
	binary.BigEndian.PutUint64(senderBytes[:], sender)
	h.Write(senderBytes[:])
	if amount != nil {
		h.Write(amount.Bytes())
	}
	h.Write([]byte(targetDomain))
	h.Write([]byte(targetAddress))

	return hex.EncodeToString(h.Sum(nil))
}
