package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flotadata/flota_backend/config"
	"github.com/flotadata/flota_backend/models"
	"github.com/flotadata/flota_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReversalResult reports the box balance after the reversal. Nil when the
// reversal was a no-op (entry never applied to a box).
type ReversalResult struct {
	BoxBalanceAfter *decimal.Decimal `json:"box_balance_after"`
	Reversed        bool             `json:"reversed"`
}

// ReverseTransaction undoes a previously applied ledger entry: restores
// the box balance to its pre-apply value, appends the reversal history
// row, removes the movement, and cancels any still-pending overflow debt.
// No-ops if the entry was never applied (no box, or a non-applied state);
// a Refunded entry gets an informational zero-delta history row.
func ReverseTransaction(ctx context.Context, entry *models.LedgerEntry) (*ReversalResult, error) {
	ctx, span := tracer.Start(ctx, "workflow.ReverseTransaction")
	defer span.End()

	db := config.GetDB()
	logger := config.GetLogger()

	if entry.HasBox() {
		lock := obtainBoxRedisLock(ctx, entry.BoxId)
		defer releaseBoxRedisLock(ctx, lock)
	}

	var result *ReversalResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = reverseTransactionTx(ctx, tx, entry)
		return txErr
	})
	if err != nil {
		config.LogError(logger, "reversal.go", "ReverseTransaction", "Transaction", entry.ID, err)
		return nil, err
	}
	return result, nil
}

func reverseTransactionTx(ctx context.Context, tx *gorm.DB, entry *models.LedgerEntry) (*ReversalResult, error) {

	if !entry.HasBox() {
		return &ReversalResult{}, nil
	}

	if err := AcquireBoxPostingLock(tx, entry.BoxId); err != nil {
		return nil, err
	}
	defer ReleaseBoxPostingLock(tx, entry.BoxId)

	var box models.OperatingBox
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND business_id = ?", entry.BoxId, entry.BusinessId).
		First(&box).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.WrapBoxError(utils.ErrorBoxNotFound, entry.BoxId, entry.ID)
		}
		return nil, err
	}

	// A refunded entry's effect was already returned through a refund
	// movement; only an informational audit row is written.
	if entry.State == models.TransactionStateRefunded {
		reason := fmt.Sprintf("refund notice for %s", entry.TransactionNumber)
		if _, err := models.AppendBoxHistory(tx, entry.BusinessId, box.ID, decimal.Zero,
			models.MovementKindRefund, reason, entry.ID, box.Balance, box.Balance); err != nil {
			return nil, err
		}
		balance := box.Balance
		return &ReversalResult{BoxBalanceAfter: &balance}, nil
	}

	if entry.State != models.TransactionStateApplied {
		balance := box.Balance
		return &ReversalResult{BoxBalanceAfter: &balance}, nil
	}

	balanceBefore := box.Balance
	var kind models.MovementKind
	var newBalance decimal.Decimal

	if entry.Direction == models.TransactionDirectionIncome {
		kind = models.MovementKindReversalIncome
		newBalance = balanceBefore.Sub(entry.Amount)
		if newBalance.IsNegative() {
			newBalance = decimal.Zero
		}
	} else {
		// The balance moves by the applied portion only, so the box
		// returns exactly to its pre-apply value. The history delta
		// still records the full transaction amount.
		kind = models.MovementKindReversalExpense
		applied := entry.Amount.Sub(entry.OverflowAmount)
		newBalance = balanceBefore.Add(applied)
	}

	reason := fmt.Sprintf("reversal due to update/delete of %s", entry.TransactionNumber)

	if err := tx.Model(&models.OperatingBox{}).Where("id = ?", box.ID).
		Update("balance", newBalance).Error; err != nil {
		return nil, err
	}

	if _, err := models.AppendBoxHistory(tx, entry.BusinessId, box.ID, entry.Amount,
		kind, reason, entry.ID, balanceBefore, newBalance); err != nil {
		return nil, err
	}

	if err := tx.Where("business_id = ? AND ledger_entry_id = ?",
		entry.BusinessId, entry.ID).Delete(&models.BoxMovement{}).Error; err != nil {
		return nil, err
	}

	if config.CascadeCancelPendingPayments() {
		if err := models.CancelPendingPaymentsForEntry(tx, entry.BusinessId, entry.ID); err != nil {
			return nil, err
		}
	}

	signedDelta := newBalance.Sub(balanceBefore)
	if err := models.PublishBoxEvent(ctx, tx, entry.BusinessId, box.ID, entry.ID,
		models.BoxEventActionReverse, kind, signedDelta, newBalance, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := tx.Model(&models.LedgerEntry{}).Where("id = ?", entry.ID).
		Updates(map[string]interface{}{
			"state":           models.TransactionStatePending,
			"overflow_amount": decimal.Zero,
		}).Error; err != nil {
		return nil, err
	}
	entry.State = models.TransactionStatePending
	entry.OverflowAmount = decimal.Zero

	return &ReversalResult{BoxBalanceAfter: &newBalance, Reversed: true}, nil
}
