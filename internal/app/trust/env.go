package trust

import (
	"context"
	"math/big"
	"os"
	"strconv"
	"strings"
	"sync"
)

// EnvAuthorization is an AuthorizationService backed by comma-separated
// environment allowlists, suitable for local deployments where the real
// role service is not reachable. GOVERNOR_IDENTITIES grants every
// capability; BLACKLISTED_ACCOUNTS is a CSV of account IDs.
type EnvAuthorization struct {
	mu          sync.RWMutex
	governors   map[string]struct{}
	blacklisted map[uint64]struct{}
}

// NewEnvAuthorization loads the allowlists from the environment.
func NewEnvAuthorization() *EnvAuthorization {
	a := &EnvAuthorization{}
	a.Reload()
	return a
}

// Reload re-reads the environment.
func (a *EnvAuthorization) Reload() {
	governors := parseCSVSet(os.Getenv("GOVERNOR_IDENTITIES"))
	blacklisted := make(map[uint64]struct{})
	for raw := range parseCSVSet(os.Getenv("BLACKLISTED_ACCOUNTS")) {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			blacklisted[id] = struct{}{}
		}
	}

	a.mu.Lock()
	a.governors = governors
	a.blacklisted = blacklisted
	a.mu.Unlock()
}

func (a *EnvAuthorization) HasCapability(_ context.Context, identity string, _ Capability) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.governors[strings.TrimSpace(identity)]
	return ok, nil
}

func (a *EnvAuthorization) IsBlacklisted(_ context.Context, accountID uint64) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.blacklisted[accountID]
	return ok, nil
}

func parseCSVSet(raw string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out[trimmed] = struct{}{}
	}
	return out
}

// OpenKYC is a KYCService that approves everything. Deployments wire the
// real limits service instead.
type OpenKYC struct{}

func (OpenKYC) CheckLimit(context.Context, string, string, *big.Int) (bool, error) {
	return true, nil
}
