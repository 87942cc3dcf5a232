package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the ledger wraps exactly one of them,
// so callers can branch with errors.Is on the kind or on the specific error.
var (
	ErrNotFound           = errors.New("not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrUnauthenticated    = errors.New("unauthenticated")
)

var (
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrAccountNotFound     = fmt.Errorf("account %w", ErrNotFound)
	ErrCategoryNotFound    = fmt.Errorf("category %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)

	ErrNoAccess               = fmt.Errorf("%w: no access", ErrPermissionDenied)
	ErrInsufficientPermission = fmt.Errorf("%w: insufficient permission", ErrPermissionDenied)
	ErrNotOwner               = fmt.Errorf("%w: only the owner can do this", ErrPermissionDenied)

	ErrNotInstallment  = fmt.Errorf("%w: transaction is not an installment", ErrPreconditionFailed)
	ErrAlreadyComplete = fmt.Errorf("%w: all installments are already paid", ErrPreconditionFailed)
	ErrEmptyChangeset  = fmt.Errorf("%w: nothing to update", ErrPreconditionFailed)
	ErrAccountInUse    = fmt.Errorf("%w: account has transactions", ErrPreconditionFailed)
	ErrCategoryInUse   = fmt.Errorf("%w: category has transactions", ErrPreconditionFailed)

	ErrEmailTaken     = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrCategoryExists = fmt.Errorf("%w: category name already exists", ErrConflict)

	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", ErrUnauthenticated)

	ErrInvalidID              = fmt.Errorf("%w: invalid identifier", ErrValidation)
	ErrInvalidAmount          = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidDay             = fmt.Errorf("%w: invalid day", ErrValidation)
	ErrInvalidMonth           = fmt.Errorf("%w: invalid month", ErrValidation)
	ErrInvalidDate            = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrInvalidWindow          = fmt.Errorf("%w: end must be after start", ErrValidation)
	ErrEmptyDescription       = fmt.Errorf("%w: empty description", ErrValidation)
	ErrEmptyName              = fmt.Errorf("%w: empty name", ErrValidation)
	ErrInvalidEmail           = fmt.Errorf("%w: invalid email", ErrValidation)
	ErrWeakPassword           = fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	ErrInvalidAccountType     = fmt.Errorf("%w: invalid account type", ErrValidation)
	ErrInvalidTransactionType = fmt.Errorf("%w: invalid transaction type", ErrValidation)
	ErrInvalidStatus          = fmt.Errorf("%w: invalid status", ErrValidation)
	ErrInvalidExpenseType     = fmt.Errorf("%w: invalid expense type", ErrValidation)
	ErrInvalidPermission      = fmt.Errorf("%w: invalid permission level", ErrValidation)
	ErrInvalidInstallment     = fmt.Errorf("%w: invalid installment", ErrValidation)
	ErrShareWithSelf          = fmt.Errorf("%w: cannot share an account with its owner", ErrValidation)
)

// Kind reports which error kind err wraps, or nil for unclassified errors.
func Kind(err error) error {
	for _, kind := range []error{ErrNotFound, ErrPermissionDenied, ErrPreconditionFailed, ErrValidation, ErrConflict, ErrUnauthenticated} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
