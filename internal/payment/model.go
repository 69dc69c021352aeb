package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one priced line of an active cart. Unit price and subtotal
// were captured at add-to-cart time and are not re-priced at settlement.
type CartLine struct {
	CartItemID   string          `json:"cartItemId"`
	ProductID    string          `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductBrand string          `json:"productBrand"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

// CartSnapshot is one consistent view of a user's active cart and its lines,
// in cart order.
type CartSnapshot struct {
	CartID string     `json:"cartId"`
	UserID string     `json:"userId"`
	Lines  []CartLine `json:"lines"`
}

// Total sums the captured line subtotals.
func (s *CartSnapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.Subtotal)
	}
	return total
}

// Transaction is an immutable ledger header. Rows are only ever inserted,
// never updated.
type Transaction struct {
	ID            string            `json:"-"`
	Reference     string            `json:"transactionId"`
	UserID        string            `json:"userId"`
	CartID        string            `json:"cartId"`
	TotalAmount   decimal.Decimal   `json:"totalAmount"`
	BalanceBefore decimal.Decimal   `json:"walletBalanceBefore"`
	BalanceAfter  decimal.Decimal   `json:"walletBalanceAfter"`
	PaymentMethod string            `json:"paymentMethod"`
	Status        string            `json:"status"`
	ItemCount     int               `json:"itemsCount"`
	CreatedAt     time.Time         `json:"transactionDate"`
	Lines         []TransactionLine `json:"items"`
}

// TransactionLine is a denormalized copy of product identity, price and
// quantity at time of sale, so later catalog changes never alter receipts.
type TransactionLine struct {
	ProductID    string          `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductBrand string          `json:"productBrand"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

const (
	MethodWallet  = "WALLET"
	StatusSuccess = "SUCCESS"
)

// SettlementResult is returned to the caller after a committed settlement.
type SettlementResult struct {
	Reference   string          `json:"transactionId"`
	TotalAmount decimal.Decimal `json:"amount"`
	NewBalance  decimal.Decimal `json:"newBalance"`
	Timestamp   time.Time       `json:"timestamp"`
}
