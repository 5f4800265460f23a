// Package guard provides per-account mutual exclusion for balance-mutating
// operations. A token is acquired before any mutation and released after
// commit or failure; it is never held across an external-collaborator call
// boundary that happens before mutation begins.
package guard

import (
	"sort"
	"sync"

	serrors "github.com/Altruva-Group/noori-bank/internal/errors"
)

// AccountGuard hands out per-account tokens. Re-entry into an account whose
// token is held is rejected rather than queued, so a stuck caller cannot
// serialize unrelated accounts behind it.
type AccountGuard struct {
	mu   sync.Mutex
	held map[uint64]struct{}
}

// New creates an empty guard.
func New() *AccountGuard {
	return &AccountGuard{held: make(map[uint64]struct{})}
}

// Acquire takes the tokens for the given accounts, deduplicated and in
// ascending order so two operations touching the same pair cannot deadlock.
// It returns a release function on success, or AccountBusy naming the first
// contended account.
func (g *AccountGuard) Acquire(accountIDs ...uint64) (func(), error) {
	ids := dedupeSorted(accountIDs)

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range ids {
		if _, busy := g.held[id]; busy {
			return nil, serrors.AccountBusy(id)
		}
	}
	for _, id := range ids {
		g.held[id] = struct{}{}
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			for _, id := range ids {
				delete(g.held, id)
			}
		})
	}
	return release, nil
}

func dedupeSorted(ids []uint64) []uint64 {
	out := append([]uint64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 0
	for i, id := range out {
		if i == 0 || id != out[n-1] {
			out[n] = id
			n++
		}
	}
	return out[:n]
}
