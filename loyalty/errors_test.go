package loyalty_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/krisflyer/loyalty-engine/loyalty"
)

func TestIsClientError_Classification(t *testing.T) {
	// GIVEN: The engine error vocabulary
	// WHEN: Classifying caller-fault vs storage-fault errors
	// THEN: Every client error is recognized, including wrapped and
	//       structured forms; storage failures are not

	clientErrs := []error{
		loyalty.ErrItemNotFound,
		loyalty.ErrInsufficientBalance,
		loyalty.ErrDuplicateItem,
		loyalty.ErrUnauthorized,
		loyalty.ErrInvalidArgument,
		loyalty.ErrMemberNotFound,
		fmt.Errorf("%w: option %q is required", loyalty.ErrInvalidArgument, "miles"),
		&loyalty.ItemNotFoundError{ItemID: "jetpack"},
		&loyalty.InsufficientBalanceError{ItemID: "lounge-pass", Cost: 5_000, Shortfall: 2_000},
	}
	for _, err := range clientErrs {
		if !loyalty.IsClientError(err) {
			t.Errorf("IsClientError(%v) = false, want true", err)
		}
	}

	for _, err := range []error{nil, errors.New("disk I/O error")} {
		if loyalty.IsClientError(err) {
			t.Errorf("IsClientError(%v) = true, want false", err)
		}
	}
}
