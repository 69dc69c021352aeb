package payment

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Notifier receives a settled transaction after its unit of work committed.
// Implementations must not affect the settlement outcome.
type Notifier interface {
	SettlementSucceeded(ctx context.Context, t *Transaction, result *SettlementResult) error
}

// Service converts a user's active cart into a committed transaction:
// validate funds, write the ledger, decrement stock, debit the wallet and
// retire the cart, all inside one database transaction. Any failure rolls
// the whole unit back, so no other reader ever observes a partial settlement.
type Service struct {
	repo     Repository
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time
}

func NewService(repo Repository, notifier Notifier, logger *log.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Settle processes the payment for the user's active cart.
//
// Business-rule rejections (ErrEmptyCart, *InsufficientFundsError,
// *InsufficientStockError) and storage faults both leave every table
// unchanged; IsRejection distinguishes them for the caller.
func (s *Service) Settle(ctx context.Context, userID string) (*SettlementResult, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin settlement: %w", err)
	}
	defer tx.Rollback()

	snap, err := s.repo.ActiveCart(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if snap == nil || len(snap.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	total := snap.Total()

	// Advisory check for an early exit with the exact shortfall. The
	// authoritative funds check is the guarded debit below, which rechecks
	// the balance atomically against concurrent settlements.
	balance, err := s.repo.WalletBalance(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(total) {
		return nil, &InsufficientFundsError{Balance: balance, Required: total}
	}

	now := s.now().UTC()
	txn := &Transaction{
		Reference:     NewReference(now),
		UserID:        userID,
		CartID:        snap.CartID,
		TotalAmount:   total,
		BalanceBefore: balance,
		BalanceAfter:  balance.Sub(total),
		PaymentMethod: MethodWallet,
		Status:        StatusSuccess,
		ItemCount:     len(snap.Lines),
		CreatedAt:     now,
	}
	for _, line := range snap.Lines {
		txn.Lines = append(txn.Lines, TransactionLine{
			ProductID:    line.ProductID,
			ProductName:  line.ProductName,
			ProductBrand: line.ProductBrand,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			Subtotal:     line.Subtotal,
		})
	}

	if err := s.repo.InsertTransaction(ctx, tx, txn); err != nil {
		return nil, &LedgerWriteError{Reference: txn.Reference, Err: err}
	}

	for _, line := range snap.Lines {
		ok, err := s.repo.DecrementStock(ctx, tx, line.ProductID, line.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			available, err := s.repo.StockAvailable(ctx, tx, line.ProductID)
			if err != nil {
				return nil, err
			}
			return nil, &InsufficientStockError{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: available,
			}
		}
	}

	newBalance, ok, err := s.repo.DebitWallet(ctx, tx, userID, total)
	if err != nil {
		return nil, err
	}
	if !ok {
		// A concurrent settlement for the same account won the race between
		// the advisory check and the debit. Re-read so the reported
		// shortfall reflects the balance at debit time.
		remaining, berr := s.repo.WalletBalance(ctx, tx, userID)
		if berr != nil {
			return nil, berr
		}
		return nil, &InsufficientFundsError{Balance: remaining, Required: total}
	}

	retired, err := s.repo.RetireCart(ctx, tx, snap.CartID)
	if err != nil {
		return nil, err
	}
	if !retired {
		// A concurrent settlement consumed this cart after our snapshot
		// read. Without this guard both would commit a ledger transaction
		// and a debit for the same cart.
		return nil, ErrEmptyCart
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit settlement: %w", err)
	}

	result := &SettlementResult{
		Reference:   txn.Reference,
		TotalAmount: total,
		NewBalance:  newBalance,
		Timestamp:   now,
	}

	s.logger.Printf("settled cart=%s user=%s reference=%s amount=%s newBalance=%s",
		snap.CartID, userID, txn.Reference, total.StringFixed(2), newBalance.StringFixed(2))

	if s.notifier != nil {
		if err := s.notifier.SettlementSucceeded(ctx, txn, result); err != nil {
			// The settlement is committed; a lost notification must not fail it.
			s.logger.Printf("publish settlement %s: %v", txn.Reference, err)
		}
	}

	return result, nil
}

// TransactionByReference looks up a settled transaction for receipt display.
func (s *Service) TransactionByReference(ctx context.Context, reference string) (*Transaction, error) {
	return s.repo.TransactionByReference(ctx, reference)
}
