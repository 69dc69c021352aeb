package payment

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrEmptyCart is returned when the user has no active cart or the active
// cart has no lines. A retried settlement whose first attempt succeeded ends
// here, never in a second charge.
var ErrEmptyCart = errors.New("active cart is empty")

// ErrTransactionNotFound is returned by receipt lookups for unknown references.
var ErrTransactionNotFound = errors.New("transaction not found")

// InsufficientFundsError rejects a settlement whose total exceeds the wallet
// balance. Balance and Required let the caller render the shortfall.
type InsufficientFundsError struct {
	Balance  decimal.Decimal
	Required decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient wallet balance: have %s, need %s",
		e.Balance.StringFixed(2), e.Required.StringFixed(2))
}

// InsufficientStockError rejects a settlement whose guarded stock decrement
// found fewer units than the cart line requests. It names the offending item.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// LedgerWriteError marks a storage-level fault while writing the transaction
// header or its lines. It is never a business-rule failure and the caller may
// retry the whole settlement.
type LedgerWriteError struct {
	Reference string
	Err       error
}

func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("write ledger record %s: %v", e.Reference, e.Err)
}

func (e *LedgerWriteError) Unwrap() error { return e.Err }

// IsRejection reports whether err is a business-rule rejection (client-caused,
// state untouched, not retryable) as opposed to a storage or transient fault.
func IsRejection(err error) bool {
	var funds *InsufficientFundsError
	var stock *InsufficientStockError
	return errors.Is(err, ErrEmptyCart) || errors.As(err, &funds) || errors.As(err, &stock)
}
