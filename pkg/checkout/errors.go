package checkout

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCart rejects a checkout before any order is created.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInsufficientStock is returned by stock deduction when the update
	// would drive stock negative. It is reported loudly, never clamped.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ValidationError rejects a checkout request before any state is touched.
// Product names the offending catalog item when one is known.
type ValidationError struct {
	Product string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Product != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Product, e.Reason)
	}
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// GatewayError wraps a payment provider failure. Checkout-time gateway
// errors leave the pending order in place for later reconciliation.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NotFoundError reports an unresolvable entity reference. No mutation is
// attempted once it is raised.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
