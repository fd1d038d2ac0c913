/*
errors.go - Centralized error types for the loyalty engine

PURPOSE:
  All engine error types in one place. Transport layers wrap these with
  status codes or rejection replies; the engine itself never formats
  user-facing messages.

ERROR CATEGORIES:
  1. Shop errors - missing items, insufficient balance, duplicate ids
  2. Authorization - admin-gated operations invoked without the role
  3. Input validation - malformed command parameters

USAGE:
  if errors.Is(err, loyalty.ErrInsufficientBalance) {
      var short *loyalty.InsufficientBalanceError
      errors.As(err, &short) // short.Shortfall is the missing amount
  }
*/
package loyalty

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrItemNotFound is returned when a purchase names an item id absent
	// from the catalog.
	ErrItemNotFound = errors.New("shop item not found")

	// ErrInsufficientBalance is returned when a purchase costs more than
	// the member's spendable miles.
	ErrInsufficientBalance = errors.New("insufficient miles")

	// ErrDuplicateItem is returned when additem reuses an existing id.
	// The catalog rejects rather than silently overwriting.
	ErrDuplicateItem = errors.New("shop item id already exists")

	// ErrUnauthorized is returned when an admin-gated command is invoked
	// by an actor without the admin role. No mutation is performed.
	ErrUnauthorized = errors.New("admin role required")

	// ErrInvalidArgument is returned for malformed command parameters
	// (non-positive miles, empty ids, and the like).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMemberNotFound is returned by read paths that do not create
	// accounts lazily (the transaction history of an unknown member).
	ErrMemberNotFound = errors.New("member not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports exactly how many miles are missing.
type InsufficientBalanceError struct {
	MemberID  MemberID
	ItemID    ItemID
	Cost      int64
	Balance   int64
	Shortfall int64 // Cost - Balance
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient miles: item %s costs %d, balance %d, short %d",
		e.ItemID, e.Cost, e.Balance, e.Shortfall)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// ItemNotFoundError names the missing catalog entry.
type ItemNotFoundError struct {
	ItemID ItemID
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("shop item %q not found", e.ItemID)
}

func (e *ItemNotFoundError) Unwrap() error { return ErrItemNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is the caller's fault rather
// than a storage failure. Transports map these to rejection replies
// instead of internal errors.
func IsClientError(err error) bool {
	return errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrDuplicateItem) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrMemberNotFound)
}
