// Package trust declares the external trust collaborators the core consults
// before mutating state. The core never embeds role storage or KYC rules;
// it only asks these interfaces and treats any failure as a hard rejection
// of the whole operation.
package trust

import (
	"context"
	"math/big"
)

// Capability names an action an identity may be allowed to perform.
type Capability string

const (
	CapGovern    Capability = "system:govern"
	CapSweepFees Capability = "fees:sweep"
	CapBridgeOps Capability = "bridge:operate"
)

// AuthorizationService answers role and blacklist questions.
type AuthorizationService interface {
	HasCapability(ctx context.Context, identity string, cap Capability) (bool, error)
	IsBlacklisted(ctx context.Context, accountID uint64) (bool, error)
}

// KYCService enforces per-operation value limits.
type KYCService interface {
	// CheckLimit reports whether the identity may move the given amount in
	// the named operation (deposit, withdraw, transfer).
	CheckLimit(ctx context.Context, identity, operation string, amount *big.Int) (bool, error)
}
