package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flotadata/flota_backend/config"
	"github.com/flotadata/flota_backend/models"
	"github.com/flotadata/flota_backend/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var tracer trace.Tracer = otel.Tracer("flota-backend/workflow")

// ApplicationResult is what ApplyTransaction reports back to the caller.
// BoxBalanceAfter is nil when the entry carries no box reference.
type ApplicationResult struct {
	BoxBalanceAfter   *decimal.Decimal `json:"box_balance_after"`
	OverflowAmount    decimal.Decimal  `json:"overflow_amount"`
	LowBalanceWarning bool             `json:"low_balance_warning"`
}

// lowBalanceWarning reports whether a post-application balance should raise
// the warning. Landing exactly on the threshold warns, so a box drained to
// zero warns at the default threshold of zero.
func lowBalanceWarning(balance decimal.Decimal, threshold decimal.Decimal) bool {
	return balance.LessThanOrEqual(threshold)
}

// noBoxApplicationResult is what an apply outside any box reports: no
// balance, no overflow, no warning.
func noBoxApplicationResult() *ApplicationResult {
	return &ApplicationResult{OverflowAmount: decimal.Zero}
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// splitExpense splits an expense against the available balance. The box
// never goes negative: the unfunded remainder becomes the overflow.
func splitExpense(balance decimal.Decimal, amount decimal.Decimal) (applied decimal.Decimal, overflow decimal.Decimal) {
	if amount.LessThanOrEqual(balance) {
		return amount, decimal.Zero
	}
	return balance, amount.Sub(balance)
}

// ApplyTransaction applies a ledger entry's balance effect to its box:
// mutates the balance, writes the movement and one history row, and books
// any expense overflow as a pending payment. Everything commits or fails
// as one transaction.
//
// The unique movement per entry turns a second Apply without an
// intervening reversal into ErrorAlreadyApplied.
func ApplyTransaction(ctx context.Context, entry *models.LedgerEntry, responsiblePartyRequired bool) (*ApplicationResult, error) {
	ctx, span := tracer.Start(ctx, "workflow.ApplyTransaction")
	defer span.End()

	db := config.GetDB()
	logger := config.GetLogger()

	if entry.HasBox() {
		lock := obtainBoxRedisLock(ctx, entry.BoxId)
		defer releaseBoxRedisLock(ctx, lock)
	}

	var result *ApplicationResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = applyTransactionTx(ctx, tx, entry, responsiblePartyRequired)
		return txErr
	})
	if err != nil {
		config.LogError(logger, "applicator.go", "ApplyTransaction", "Transaction", entry.ID, err)
		return nil, err
	}
	return result, nil
}

// applyTransactionTx is the transaction-scoped core, composed by the
// update workflow with a preceding reversal in the same transaction.
func applyTransactionTx(ctx context.Context, tx *gorm.DB, entry *models.LedgerEntry, responsiblePartyRequired bool) (*ApplicationResult, error) {

	if !entry.Amount.IsPositive() {
		return nil, utils.ErrorInvalidAmount
	}

	// Cash transactions outside any box skip the box machinery entirely.
	if !entry.HasBox() {
		if err := tx.Model(&models.LedgerEntry{}).Where("id = ?", entry.ID).
			Updates(map[string]interface{}{
				"state":           models.TransactionStateApplied,
				"overflow_amount": decimal.Zero,
			}).Error; err != nil {
			return nil, err
		}
		entry.State = models.TransactionStateApplied
		entry.OverflowAmount = decimal.Zero
		return noBoxApplicationResult(), nil
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

	balanceBefore := box.Balance
	var kind models.MovementKind
	var delta decimal.Decimal // history rows record magnitudes, kind carries direction
	var newBalance decimal.Decimal
	overflow := decimal.Zero
	var reason string

	if entry.Direction == models.TransactionDirectionIncome {
		kind = models.MovementKindIncome
		delta = entry.Amount
		newBalance = balanceBefore.Add(entry.Amount)
		reason = fmt.Sprintf("income %s", entry.TransactionNumber)
	} else {
		var applied decimal.Decimal
		applied, overflow = splitExpense(balanceBefore, entry.Amount)
		if overflow.IsNegative() {
			return nil, utils.ErrorInvalidAmount
		}
		newBalance = balanceBefore.Sub(applied)
		if overflow.IsPositive() {
			kind = models.MovementKindPartialExpense
			delta = applied
			reason = fmt.Sprintf("expense %s total %s applied %s overflow %s",
				entry.TransactionNumber, entry.Amount.StringFixed(2),
				applied.StringFixed(2), overflow.StringFixed(2))
		} else {
			kind = models.MovementKindExpense
			delta = entry.Amount
			reason = fmt.Sprintf("expense %s", entry.TransactionNumber)
		}
	}

	movement := models.BoxMovement{
		BusinessId:     entry.BusinessId,
		LedgerEntryId:  entry.ID,
		BoxId:          entry.BoxId,
		Direction:      entry.Direction,
		Amount:         entry.Amount,
		OverflowAmount: overflow,
	}
	if err := tx.Create(&movement).Error; err != nil {
		if isDuplicateKeyErr(err) {
			return nil, utils.WrapBoxError(utils.ErrorAlreadyApplied, entry.BoxId, entry.ID)
		}
		return nil, err
	}

	if err := tx.Model(&models.OperatingBox{}).Where("id = ?", box.ID).
		Update("balance", newBalance).Error; err != nil {
		return nil, err
	}

	if _, err := models.AppendBoxHistory(tx, entry.BusinessId, box.ID, delta, kind,
		reason, entry.ID, balanceBefore, newBalance); err != nil {
		return nil, err
	}

	if overflow.IsPositive() {
		if _, err := models.CreateOverflowPendingPayment(tx, entry, overflow,
			entry.ResponsiblePartyId, responsiblePartyRequired); err != nil {
			return nil, err
		}
	}

	signedDelta := newBalance.Sub(balanceBefore)
	if err := models.PublishBoxEvent(ctx, tx, entry.BusinessId, box.ID, entry.ID,
		models.BoxEventActionApply, kind, signedDelta, newBalance, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := tx.Model(&models.LedgerEntry{}).Where("id = ?", entry.ID).
		Updates(map[string]interface{}{
			"state":           models.TransactionStateApplied,
			"overflow_amount": overflow,
		}).Error; err != nil {
		return nil, err
	}
	entry.State = models.TransactionStateApplied
	entry.OverflowAmount = overflow

	result := &ApplicationResult{
		BoxBalanceAfter: &newBalance,
		OverflowAmount:  overflow,
	}
	threshold, err := lowBalanceThresholdTx(tx, entry.BusinessId)
	if err != nil {
		config.LogError(config.GetLogger(), "applicator.go", "applyTransactionTx",
			"lowBalanceThresholdTx", entry.BusinessId, err)
	}
	result.LowBalanceWarning = lowBalanceWarning(newBalance, threshold)
	return result, nil
}

func lowBalanceThresholdTx(tx *gorm.DB, businessId string) (decimal.Decimal, error) {
	var business models.Business
	if err := tx.Where("id = ?", businessId).First(&business).Error; err != nil {
		return config.LowBalanceThreshold(), err
	}
	return business.LowBalanceThreshold(), nil
}
