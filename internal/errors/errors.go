// Package errors defines the coded error taxonomy shared by all ledger
// services. Every rejected operation maps to exactly one code, and the
// category decides both retry semantics and the HTTP status of the REST
// surface.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Category classifies where in an operation's lifecycle a rejection occurred.
type Category string

const (
	CategoryValidation    Category = "validation"
	CategoryAuthorization Category = "authorization"
	CategoryState         Category = "state"
	CategoryReplay        Category = "replay"
	CategoryTiming        Category = "timing"
	CategoryInternal      Category = "internal"
)

// Code identifies a rejection reason.
type Code string

const (
	CodeInvalidAmount   Code = "INVALID_AMOUNT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeSelfTransfer    Code = "SELF_TRANSFER"
	CodeInvalidToken    Code = "INVALID_TOKEN"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeAuthFailed      Code = "AUTH_FAILED"
	CodeInvalidRecovery Code = "INVALID_RECOVERY_KEY"
	CodeBlacklisted     Code = "BLACKLISTED"
	CodeLimitExceeded   Code = "LIMIT_EXCEEDED"
	CodeRateLimited     Code = "RATE_LIMITED"

	CodeAlreadyRegistered    Code = "ALREADY_REGISTERED"
	CodeMemoTaken            Code = "MEMO_TAKEN"
	CodeNotFound             Code = "NOT_FOUND"
	CodeSystemPaused         Code = "SYSTEM_PAUSED"
	CodeLendingPaused        Code = "LENDING_PAUSED"
	CodeWithdrawalsPaused    Code = "WITHDRAWALS_PAUSED"
	CodeTransfersPaused      Code = "TRANSFERS_PAUSED"
	CodeInsufficientBalance  Code = "INSUFFICIENT_BALANCE"
	CodeLoanExists           Code = "LOAN_EXISTS"
	CodeNoLoan               Code = "NO_LOAN"
	CodeOverRepay            Code = "OVER_REPAY"
	CodeExceedsLTV           Code = "EXCEEDS_LTV"
	CodeOutOfBounds          Code = "OUT_OF_BOUNDS"
	CodeAccountBusy          Code = "ACCOUNT_BUSY"
	CodeUnknownDomain        Code = "UNKNOWN_DOMAIN"
	CodeDomainDisabled       Code = "DOMAIN_DISABLED"
	CodeInsufficientGas      Code = "INSUFFICIENT_GAS"
	CodeInsufficientEscrow   Code = "INSUFFICIENT_ESCROW"
	CodeFeePoolUnderflow     Code = "FEE_POOL_UNDERFLOW"

	CodeAlreadyProcessed Code = "ALREADY_PROCESSED"

	CodeDelayNotElapsed Code = "DELAY_NOT_ELAPSED"
	CodeStalePrice      Code = "STALE_PRICE"

	CodeInternal Code = "INTERNAL"
)

// ServiceError is the concrete error type produced by the core.
type ServiceError struct {
	Category Category
	Code     Code
	Message  string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports code equality, so sentinel comparisons via errors.Is work
// against any wrapped ServiceError carrying the same code.
func (e *ServiceError) Is(target error) bool {
	var se *ServiceError
	if stderrors.As(target, &se) {
		return e.Code == se.Code
	}
	return false
}

func newError(cat Category, code Code, format string, args ...interface{}) *ServiceError {
	return &ServiceError{Category: cat, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation errors. Rejected before any state is touched.

func InvalidAmount(format string, args ...interface{}) *ServiceError {
	return newError(CategoryValidation, CodeInvalidAmount, format, args...)
}

func InvalidFormat(format string, args ...interface{}) *ServiceError {
	return newError(CategoryValidation, CodeInvalidFormat, format, args...)
}

func SelfTransfer() *ServiceError {
	return newError(CategoryValidation, CodeSelfTransfer, "sender and recipient are the same account")
}

// Authorization errors. Rejected before any state is touched.

func Unauthorized(format string, args ...interface{}) *ServiceError {
	return newError(CategoryAuthorization, CodeUnauthorized, format, args...)
}

func Forbidden(format string, args ...interface{}) *ServiceError {
	return newError(CategoryAuthorization, CodeForbidden, format, args...)
}

func InvalidToken(format string, args ...interface{}) *ServiceError {
	return newError(CategoryAuthorization, CodeInvalidToken, format, args...)
}

func AuthFailed() *ServiceError {
	return newError(CategoryAuthorization, CodeAuthFailed, "credential verification failed")
}

func InvalidRecoveryKey() *ServiceError {
	return newError(CategoryAuthorization, CodeInvalidRecovery, "recovery key verification failed")
}

func Blacklisted(party string) *ServiceError {
	return newError(CategoryAuthorization, CodeBlacklisted, "party %s is blacklisted", party)
}

func LimitExceeded(format string, args ...interface{}) *ServiceError {
	return newError(CategoryAuthorization, CodeLimitExceeded, format, args...)
}

func RateLimitExceeded() *ServiceError {
	return newError(CategoryAuthorization, CodeRateLimited, "rate limit exceeded")
}

// State errors. Rejected after validation, before mutation.

func AlreadyRegistered(identity string) *ServiceError {
	return newError(CategoryState, CodeAlreadyRegistered, "identity %s already has an account", identity)
}

func MemoTaken(memo string) *ServiceError {
	return newError(CategoryState, CodeMemoTaken, "memo %q is owned by another account", memo)
}

func NotFound(format string, args ...interface{}) *ServiceError {
	return newError(CategoryState, CodeNotFound, format, args...)
}

func SystemPaused() *ServiceError {
	return newError(CategoryState, CodeSystemPaused, "system is paused")
}

func LendingPaused() *ServiceError {
	return newError(CategoryState, CodeLendingPaused, "lending is paused")
}

func WithdrawalsPaused() *ServiceError {
	return newError(CategoryState, CodeWithdrawalsPaused, "withdrawals are paused")
}

func TransfersPaused() *ServiceError {
	return newError(CategoryState, CodeTransfersPaused, "transfers are paused")
}

func InsufficientBalance(format string, args ...interface{}) *ServiceError {
	return newError(CategoryState, CodeInsufficientBalance, format, args...)
}

func LoanExists(accountID uint64) *ServiceError {
	return newError(CategoryState, CodeLoanExists, "account %d already has an open loan", accountID)
}

func NoLoan(accountID uint64) *ServiceError {
	return newError(CategoryState, CodeNoLoan, "account %d has no open loan", accountID)
}

func OverRepay() *ServiceError {
	return newError(CategoryState, CodeOverRepay, "repay amount exceeds outstanding principal")
}

func ExceedsLTV(format string, args ...interface{}) *ServiceError {
	return newError(CategoryState, CodeExceedsLTV, format, args...)
}

func OutOfBounds(format string, args ...interface{}) *ServiceError {
	return newError(CategoryState, CodeOutOfBounds, format, args...)
}

func AccountBusy(accountID uint64) *ServiceError {
	return newError(CategoryState, CodeAccountBusy, "operation already in flight for account %d", accountID)
}

func UnknownDomain(domain string) *ServiceError {
	return newError(CategoryState, CodeUnknownDomain, "domain %q is not registered", domain)
}

func DomainDisabled(domain string) *ServiceError {
	return newError(CategoryState, CodeDomainDisabled, "domain %q is disabled", domain)
}

func InsufficientGas(format string, args ...interface{}) *ServiceError {
	return newError(CategoryState, CodeInsufficientGas, format, args...)
}

// Replay errors. Rejected atomically at the insert-check boundary.

func AlreadyProcessed(id string) *ServiceError {
	return newError(CategoryReplay, CodeAlreadyProcessed, "%s already processed", id)
}

// Timing errors.

func DelayNotElapsed(format string, args ...interface{}) *ServiceError {
	return newError(CategoryTiming, CodeDelayNotElapsed, format, args...)
}

func StalePrice(format string, args ...interface{}) *ServiceError {
	return newError(CategoryTiming, CodeStalePrice, format, args...)
}

// Internal wraps unexpected failures (store faults, codec errors).

func Internal(format string, args ...interface{}) *ServiceError {
	return newError(CategoryInternal, CodeInternal, format, args...)
}

// GetServiceError extracts a *ServiceError from an error chain, or wraps the
// error as Internal when it carries no code.
func GetServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return Internal("%s", err.Error())
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// HTTPStatus maps an error to the REST status the gateway should return.
func HTTPStatus(err error) int {
	se := GetServiceError(err)
	if se == nil {
		return http.StatusOK
	}
	switch se.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	}
	switch se.Category {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryAuthorization:
		if se.Code == CodeForbidden || se.Code == CodeBlacklisted || se.Code == CodeLimitExceeded {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case CategoryState, CategoryReplay:
		return http.StatusConflict
	case CategoryTiming:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
