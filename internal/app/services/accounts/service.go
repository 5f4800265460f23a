// Package accounts implements the account registry: identity onboarding,
// memo aliases, and credential recovery.
package accounts

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Altruva-Group/noori-bank/internal/app/domain/account"
	"github.com/Altruva-Group/noori-bank/internal/app/domain/event"
	"github.com/Altruva-Group/noori-bank/internal/app/events"
	"github.com/Altruva-Group/noori-bank/internal/app/storage"
	serrors "github.com/Altruva-Group/noori-bank/internal/errors"
	"github.com/Altruva-Group/noori-bank/pkg/logger"
)

// Service manages account registration and recovery.
type Service struct {
	store  storage.AccountStore
	events *events.Log
	log    *logger.Logger
}

// New constructs an account service.
func New(store storage.AccountStore, evts *events.Log, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	if evts == nil {
		evts = events.NewLog(0, nil)
	}
	return &Service{store: store, events: evts, log: log}
}

// Create registers a new account for the identity. An identity registers at
// most once; the allocated ID never changes afterwards.
func (s *Service) Create(ctx context.Context, identity, credential, recoveryKey string) (account.Account, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return account.Account{}, serrors.InvalidFormat("identity is required")
	}
	if credential == "" || recoveryKey == "" {
		return account.Account{}, serrors.InvalidFormat("credential and recovery key are required")
	}

	credentialHash, err := hashSecret(credential)
	if err != nil {
		return account.Account{}, err
	}
	recoveryHash, err := hashSecret(recoveryKey)
	if err != nil {
		return account.Account{}, err
	}

	acct, err := s.store.CreateAccount(ctx, account.Account{
		Identity:       identity,
		CredentialHash: credentialHash,
		RecoveryHash:   recoveryHash,
	})
	if err != nil {
		return account.Account{}, err
	}

	s.events.Record(event.Event{Kind: event.KindAccountCreated, AccountID: acct.ID})
	s.log.WithField("account_id", acct.ID).Info("account created")
	return acct, nil
}

// Get returns the account by ID.
func (s *Service) Get(ctx context.Context, id uint64) (account.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// GetByIdentity returns the account registered for the identity.
func (s *Service) GetByIdentity(ctx context.Context, identity string) (account.Account, error) {
	return s.store.GetAccountByIdentity(ctx, identity)
}

// List returns all accounts ordered by ID.
func (s *Service) List(ctx context.Context) ([]account.Account, error) {
	return s.store.ListAccounts(ctx)
}

// AddMemo binds a memo alias to the account. A memo maps to exactly one
// owner; re-binding by the same owner is a no-op.
func (s *Service) AddMemo(ctx context.Context, accountID uint64, memo string) error {
	memo = strings.TrimSpace(memo)
	if memo == "" {
		return serrors.InvalidFormat("memo is required")
	}
	if err := s.store.AddMemo(ctx, accountID, memo); err != nil {
		return err
	}
	s.events.Record(event.Event{Kind: event.KindMemoAdded, AccountID: accountID, Details: map[string]string{"memo": memo}})
	return nil
}

// ResolveMemo returns the account ID owning the memo.
func (s *Service) ResolveMemo(ctx context.Context, memo string) (uint64, error) {
	return s.store.ResolveMemo(ctx, strings.TrimSpace(memo))
}

// Recover replaces the identity's credential after verifying the recovery
// key. Account ID and balances are untouched.
func (s *Service) Recover(ctx context.Context, identity, recoveryKey, newCredential string) error {
	if newCredential == "" {
		return serrors.InvalidFormat("new credential is required")
	}
	acct, err := s.store.GetAccountByIdentity(ctx, identity)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.RecoveryHash), []byte(recoveryKey)) != nil {
		return serrors.InvalidRecoveryKey()
	}

	credentialHash, err := hashSecret(newCredential)
	if err != nil {
		return err
	}
	acct.CredentialHash = credentialHash
	if _, err := s.store.UpdateAccount(ctx, acct); err != nil {
		return err
	}

	s.events.Record(event.Event{Kind: event.KindAccountRecovered, AccountID: acct.ID})
	s.log.WithField("account_id", acct.ID).Info("account credential recovered")
	return nil
}

// VerifyCredential checks the account's credential, returning AuthFailed on
// mismatch.
func (s *Service) VerifyCredential(ctx context.Context, accountID uint64, credential string) error {
	acct, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.CredentialHash), []byte(credential)) != nil {
		return serrors.AuthFailed()
	}
	return nil
}

func hashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", serrors.Internal("hash secret: %s", err)
	}
	return string(hash), nil
}
