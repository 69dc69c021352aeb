package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository exposes the per-step storage operations of a settlement. All
// methods that take a *sql.Tx run inside the caller's unit of work, so either
// every step commits or none do.
type Repository interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)

	// ActiveCart loads the user's active cart joined with its priced lines
	// in cart order. Returns nil when there is no active cart.
	ActiveCart(ctx context.Context, tx *sql.Tx, userID string) (*CartSnapshot, error)

	// WalletBalance reads the current balance inside the unit of work.
	WalletBalance(ctx context.Context, tx *sql.Tx, userID string) (decimal.Decimal, error)

	// InsertTransaction writes the immutable ledger header and one line row
	// per cart line, preserving line order.
	InsertTransaction(ctx context.Context, tx *sql.Tx, t *Transaction) error

	// DecrementStock applies the guarded decrement
	// `stock_quantity = stock_quantity - qty WHERE stock_quantity >= qty`
	// and reports whether a row was affected.
	DecrementStock(ctx context.Context, tx *sql.Tx, productID string, qty int) (bool, error)

	// StockAvailable reads the remaining stock for an item, used to report
	// the shortfall after a failed guarded decrement.
	StockAvailable(ctx context.Context, tx *sql.Tx, productID string) (int, error)

	// DebitWallet applies the guarded decrement
	// `balance = balance - amount WHERE balance >= amount` and returns the
	// post-debit balance. ok is false when the guard rejected the debit.
	DebitWallet(ctx context.Context, tx *sql.Tx, userID string, amount decimal.Decimal) (newBalance decimal.Decimal, ok bool, err error)

	// RetireCart applies the guarded deactivation
	// `is_active = FALSE WHERE id = $1 AND is_active` and clears the cart
	// lines. ok is false when the cart was already retired, which means a
	// concurrent settlement consumed it.
	RetireCart(ctx context.Context, tx *sql.Tx, cartID string) (bool, error)

	// TransactionByReference loads a settled transaction and its lines.
	// Returns ErrTransactionNotFound for unknown references.
	TransactionByReference(ctx context.Context, reference string) (*Transaction, error)
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

func (r *repo) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

func (r *repo) ActiveCart(ctx context.Context, tx *sql.Tx, userID string) (*CartSnapshot, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT c.id, ci.id, ci.product_id, p.name, p.brand, ci.quantity, ci.unit_price, ci.subtotal
		FROM carts c
		JOIN cart_items ci ON ci.cart_id = c.id
		JOIN products p ON p.product_id = ci.product_id
		WHERE c.user_id = $1 AND c.is_active
		ORDER BY ci.position`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select active cart: %w", err)
	}
	defer rows.Close()

	var snap *CartSnapshot
	for rows.Next() {
		var (
			cartID string
			line   CartLine
		)
		if err := rows.Scan(&cartID, &line.CartItemID, &line.ProductID, &line.ProductName,
			&line.ProductBrand, &line.Quantity, &line.UnitPrice, &line.Subtotal); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		if snap == nil {
			snap = &CartSnapshot{CartID: cartID, UserID: userID}
		}
		snap.Lines = append(snap.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}

	return snap, nil
}

func (r *repo) WalletBalance(ctx context.Context, tx *sql.Tx, userID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRowContext(ctx,
		`SELECT balance FROM wallets WHERE user_id = $1`, userID,
	).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("select wallet balance for user %s: %w", userID, err)
	}
	return balance, nil
}

func (r *repo) InsertTransaction(ctx context.Context, tx *sql.Tx, t *Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, reference, user_id, cart_id, total_amount,
			balance_before, balance_after, payment_method, status, item_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.Reference, t.UserID, t.CartID, t.TotalAmount,
		t.BalanceBefore, t.BalanceAfter, t.PaymentMethod, t.Status, t.ItemCount, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	for i, line := range t.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO transaction_items (id, transaction_id, product_id, product_name,
				product_brand, quantity, unit_price, subtotal, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.NewString(), t.ID, line.ProductID, line.ProductName,
			line.ProductBrand, line.Quantity, line.UnitPrice, line.Subtotal, i,
		)
		if err != nil {
			return fmt.Errorf("insert transaction item %s: %w", line.ProductID, err)
		}
	}

	return nil
}

func (r *repo) DecrementStock(ctx context.Context, tx *sql.Tx, productID string, qty int) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $1
		WHERE product_id = $2 AND stock_quantity >= $1`,
		qty, productID,
	)
	if err != nil {
		return false, fmt.Errorf("decrement stock for product %s: %w", productID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement stock rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *repo) StockAvailable(ctx context.Context, tx *sql.Tx, productID string) (int, error) {
	var available int
	err := tx.QueryRowContext(ctx,
		`SELECT stock_quantity FROM products WHERE product_id = $1`, productID,
	).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("select stock for product %s: %w", productID, err)
	}
	return available, nil
}

func (r *repo) DebitWallet(ctx context.Context, tx *sql.Tx, userID string, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	var newBalance decimal.Decimal
	err := tx.QueryRowContext(ctx, `
		UPDATE wallets
		SET balance = balance - $1
		WHERE user_id = $2 AND balance >= $1
		RETURNING balance`,
		amount, userID,
	).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("debit wallet for user %s: %w", userID, err)
	}
	return newBalance, true, nil
}

func (r *repo) RetireCart(ctx context.Context, tx *sql.Tx, cartID string) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE carts SET is_active = FALSE WHERE id = $1 AND is_active`, cartID,
	)
	if err != nil {
		return false, fmt.Errorf("deactivate cart: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deactivate cart rows affected: %w", err)
	}
	if affected != 1 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return false, fmt.Errorf("clear cart items: %w", err)
	}
	return true, nil
}

func (r *repo) TransactionByReference(ctx context.Context, reference string) (*Transaction, error) {
	var t Transaction
	err := r.db.QueryRowContext(ctx, `
		SELECT id, reference, user_id, cart_id, total_amount, balance_before,
			balance_after, payment_method, status, item_count, created_at
		FROM transactions WHERE reference = $1`,
		reference,
	).Scan(&t.ID, &t.Reference, &t.UserID, &t.CartID, &t.TotalAmount, &t.BalanceBefore,
		&t.BalanceAfter, &t.PaymentMethod, &t.Status, &t.ItemCount, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("select transaction: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, product_name, product_brand, quantity, unit_price, subtotal
		FROM transaction_items WHERE transaction_id = $1
		ORDER BY position`,
		t.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("select transaction items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line TransactionLine
		if err := rows.Scan(&line.ProductID, &line.ProductName, &line.ProductBrand,
			&line.Quantity, &line.UnitPrice, &line.Subtotal); err != nil {
			return nil, fmt.Errorf("scan transaction item: %w", err)
		}
		t.Lines = append(t.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction items: %w", err)
	}

	return &t, nil
}
