package account

import "time"

// Account represents a registered customer of the ledger. The numeric ID is
// allocated once at registration and never changes; memos are human-friendly
// aliases added after creation, each owned by exactly one account.
type Account struct {
	ID             uint64
	Identity       string
	CredentialHash string
	RecoveryHash   string
	Memos          []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasMemo reports whether the account owns the given memo.
func (a Account) HasMemo(memo string) bool {
	for _, m := range a.Memos {
		if m == memo {
			return true
		}
	}
	return false
}
