package payment

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (Repository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(db), mock, db
}

func beginTx(t *testing.T, repo Repository, mock sqlmock.Sqlmock) *sql.Tx {
	t.Helper()
	mock.ExpectBegin()
	tx, err := repo.BeginTx(context.Background())
	require.NoError(t, err)
	return tx
}

func TestActiveCart_NoCart(t *testing.T) {
	repo, mock, _ := newTestRepo(t)
	tx := beginTx(t, repo, mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM carts c")).
		WithArgs("user-x").
		WillReturnRows(sqlmock.NewRows(cartColumns()))

	snap, err := repo.ActiveCart(context.Background(), tx, "user-x")
	require.NoError(t, err)
	require.Nil(t, snap)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveCart_PreservesLineOrder(t *testing.T) {
	repo, mock, _ := newTestRepo(t)
	tx := beginTx(t, repo, mock)

	rows := sqlmock.NewRows(cartColumns()).
		AddRow("cart-9", "item-1", "prod-B", "Item B", "BrandB", 1, "150.00", "150.00").
		AddRow("cart-9", "item-2", "prod-A", "Item A", "BrandA", 2, "100.00", "200.00")
	mock.ExpectQuery(regexp.QuoteMeta("FROM carts c")).
		WithArgs(testUser).
		WillReturnRows(rows)

	snap, err := repo.ActiveCart(context.Background(), tx, testUser)
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, "cart-9", snap.CartID)
	require.Len(t, snap.Lines, 2)
	assert.Equal(t, "prod-B", snap.Lines[0].ProductID)
	assert.Equal(t, "prod-A", snap.Lines[1].ProductID)
	assert.True(t, snap.Total().Equal(dec(t, "350.00")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementStock_Guard(t *testing.T) {
	repo, mock, _ := newTestRepo(t)
	tx := beginTx(t, repo, mock)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE products")).
		WithArgs(3, "prod-A").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products")).
		WithArgs(5, "prod-A").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.DecrementStock(context.Background(), tx, "prod-A", 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementStock(context.Background(), tx, "prod-A", 5)
	require.NoError(t, err)
	assert.False(t, ok, "guard must reject a decrement past zero")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitWallet_Guard(t *testing.T) {
	repo, mock, _ := newTestRepo(t)
	tx := beginTx(t, repo, mock)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE wallets")).
		WithArgs(dec(t, "50.00"), testUser).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("450.00"))

	newBalance, ok, err := repo.DebitWallet(context.Background(), tx, testUser, dec(t, "50.00"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, newBalance.Equal(dec(t, "450.00")))

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE wallets")).
		WithArgs(dec(t, "900.00"), testUser).
		WillReturnError(sql.ErrNoRows)

	_, ok, err = repo.DebitWallet(context.Background(), tx, testUser, dec(t, "900.00"))
	require.NoError(t, err)
	assert.False(t, ok, "guard must reject an overdraft")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionByReference_Found(t *testing.T) {
	repo, mock, _ := newTestRepo(t)

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	header := sqlmock.NewRows([]string{
		"id", "reference", "user_id", "cart_id", "total_amount", "balance_before",
		"balance_after", "payment_method", "status", "item_count", "created_at",
	}).AddRow("txn-id", "TXN20240501120000ABCDEF01", testUser, "cart-1",
		"350.00", "500.00", "150.00", MethodWallet, StatusSuccess, 2, created)

	mock.ExpectQuery(regexp.QuoteMeta("FROM transactions WHERE reference = $1")).
		WithArgs("TXN20240501120000ABCDEF01").
		WillReturnRows(header)

	lines := sqlmock.NewRows([]string{"product_id", "product_name", "product_brand", "quantity", "unit_price", "subtotal"}).
		AddRow("prod-A", "Item A", "BrandA", 2, "100.00", "200.00").
		AddRow("prod-B", "Item B", "BrandB", 1, "150.00", "150.00")
	mock.ExpectQuery(regexp.QuoteMeta("FROM transaction_items WHERE transaction_id = $1")).
		WithArgs("txn-id").
		WillReturnRows(lines)

	txn, err := repo.TransactionByReference(context.Background(), "TXN20240501120000ABCDEF01")
	require.NoError(t, err)
	require.NotNil(t, txn)

	assert.Equal(t, StatusSuccess, txn.Status)
	assert.Equal(t, 2, txn.ItemCount)
	require.Len(t, txn.Lines, 2)
	assert.Equal(t, "prod-A", txn.Lines[0].ProductID)
	assert.True(t, txn.TotalAmount.Equal(dec(t, "350.00")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionByReference_NotFound(t *testing.T) {
	repo, mock, _ := newTestRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM transactions WHERE reference = $1")).
		WithArgs("TXN-missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.TransactionByReference(context.Background(), "TXN-missing")
	require.ErrorIs(t, err, ErrTransactionNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRetireCart_Guard(t *testing.T) {
	repo, mock, _ := newTestRepo(t)
	tx := beginTx(t, repo, mock)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE carts SET is_active = FALSE WHERE id = $1 AND is_active")).
		WithArgs("cart-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE cart_id = $1")).
		WithArgs("cart-1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	ok, err := repo.RetireCart(context.Background(), tx, "cart-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Already-retired cart: the guard matches no row and the lines are
	// left alone.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE carts SET is_active = FALSE WHERE id = $1 AND is_active")).
		WithArgs("cart-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err = repo.RetireCart(context.Background(), tx, "cart-1")
	require.NoError(t, err)
	assert.False(t, ok, "guard must reject retiring a retired cart")
	require.NoError(t, mock.ExpectationsWereMet())
}
