// Package shared holds the error kinds every cfboard layer classifies
// failures with. It imports nothing outside the standard library.
package shared

import (
	"errors"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// KINDS
// Match with errors.Is; DomainError values carry one of these.
// ══════════════════════════════════════════════════════════════════════════════

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	ErrValidation      = errors.New("validation error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("empty value")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError is a failure of one operation in one package.
type DomainError struct {
	Domain  string // "leaderboard", "student", "codeforces"
	Op      string // method or upstream call that failed
	Kind    error  // one of the kinds above
	Message string
	Err     error // cause, may be nil
}

// Error renders "domain.Op: message[: cause]".
func (e *DomainError) Error() string {
	var b strings.Builder
	b.WriteString(e.Domain)
	b.WriteByte('.')
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the cause, or the kind when there is none.
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches the kind as well as anything in the cause chain.
func (e *DomainError) Is(target error) bool {
	return (e.Kind != nil && errors.Is(e.Kind, target)) ||
		(e.Err != nil && errors.Is(e.Err, target))
}

// NewDomainError returns an error without a cause.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return WrapError(domain, op, kind, message, nil)
}

// WrapError attaches domain context to err.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message, Err: err}
}

// ══════════════════════════════════════════════════════════════════════════════
// SENTINELS
// ══════════════════════════════════════════════════════════════════════════════

var (
	ErrInvalidDayOffset = NewDomainError("leaderboard", "Validate", ErrValueOutOfRange, "day offset must be between 0 and 7")
	ErrInvalidSortKey   = NewDomainError("leaderboard", "Validate", ErrInvalidInput, "sort key must be solvedToday or rating")
	ErrBoardUnavailable = NewDomainError("leaderboard", "Build", ErrServiceUnavailable, "leaderboard could not be built and no cached copy exists")
)

var (
	ErrEmptyHandle     = NewDomainError("student", "Validate", ErrEmptyValue, "handle cannot be empty")
	ErrInvalidHandle   = NewDomainError("student", "Validate", ErrInvalidFormat, "handle contains invalid characters")
	ErrHandleNotFound  = NewDomainError("student", "Find", ErrNotFound, "handle not found")
	ErrHandleExists    = NewDomainError("student", "Add", ErrAlreadyExists, "handle already tracked")
	ErrRosterNotLoaded = NewDomainError("student", "Load", ErrExternalService, "roster could not be loaded")
)

// ══════════════════════════════════════════════════════════════════════════════
// CLASSIFIERS
// ══════════════════════════════════════════════════════════════════════════════

func IsNotFound(err error) bool      { return errors.Is(err, ErrNotFound) }
func IsAlreadyExists(err error) bool { return errors.Is(err, ErrAlreadyExists) }

// IsValidation reports bad input, which maps to 400 at the HTTP edge.
func IsValidation(err error) bool {
	return isAny(err, ErrValidation, ErrInvalidInput, ErrEmptyValue, ErrValueOutOfRange, ErrInvalidFormat)
}

// IsExternalService reports upstream trouble worth retrying or serving
// stale data over.
func IsExternalService(err error) bool {
	return isAny(err, ErrExternalService, ErrServiceUnavailable, ErrTimeout, ErrRateLimited)
}

func isAny(err error, kinds ...error) bool {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
