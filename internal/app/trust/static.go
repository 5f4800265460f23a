package trust

import (
	"context"
	"math/big"
	"sync"
)

// StaticAuthorization is a fixed-answer AuthorizationService for tests and
// local development.
type StaticAuthorization struct {
	mu           sync.RWMutex
	capabilities map[string]map[Capability]bool
	blacklisted  map[uint64]bool
}

func NewStaticAuthorization() *StaticAuthorization {
	return &StaticAuthorization{
		capabilities: make(map[string]map[Capability]bool),
		blacklisted:  make(map[uint64]bool),
	}
}

// Grant gives the identity a capability.
func (a *StaticAuthorization) Grant(identity string, cap Capability) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.capabilities[identity] == nil {
		a.capabilities[identity] = make(map[Capability]bool)
	}
	a.capabilities[identity][cap] = true
}

// SetBlacklisted flags or unflags an account.
func (a *StaticAuthorization) SetBlacklisted(accountID uint64, flagged bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blacklisted[accountID] = flagged
}

func (a *StaticAuthorization) HasCapability(_ context.Context, identity string, cap Capability) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.capabilities[identity][cap], nil
}

func (a *StaticAuthorization) IsBlacklisted(_ context.Context, accountID uint64) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.blacklisted[accountID], nil
}

// LimitKYC rejects operations above a fixed per-call limit.
type LimitKYC struct {
	Limit *big.Int
}

func (k LimitKYC) CheckLimit(_ context.Context, _, _ string, amount *big.Int) (bool, error) {
	if k.Limit == nil {
		return true, nil
	}
	return amount.Cmp(k.Limit) <= 0, nil
}
