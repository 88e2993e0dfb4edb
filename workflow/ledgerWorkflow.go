package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/flotadata/flota_backend/config"
	"github.com/flotadata/flota_backend/models"
	"github.com/flotadata/flota_backend/utils"
	"github.com/shopspring/decimal"
)

func transactionNumberPrefix(direction models.TransactionDirection) string {
	if direction == models.TransactionDirectionIncome {
		return "INC-"
	}
	return "EXP-"
}

// responsiblePartyRequired is the caller-role policy: driver-submitted
// expenses must name the debtor, admin entries tolerate an unassigned one.
func responsiblePartyRequired(ctx context.Context) bool {
	role, ok := utils.GetUserRoleFromContext(ctx)
	return ok && role == string(models.UserRoleDriver)
}

// CreateLedgerEntry records a transaction and applies its box effect in
// one transaction: either the entry, the movement, the history row and
// any overflow debt all exist, or none do.
func CreateLedgerEntry(ctx context.Context, input *models.NewLedgerEntry) (*models.LedgerEntry, *ApplicationResult, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, nil, errors.New("business id is required")
	}
	if err := input.Validate(ctx, businessId); err != nil {
		return nil, nil, err
	}

	if input.BoxId > 0 {
		lock := obtainBoxRedisLock(ctx, input.BoxId)
		defer releaseBoxRedisLock(ctx, lock)
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	seqNo, err := utils.GetSequence[models.LedgerEntry](ctx, businessId)
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	entry := models.LedgerEntry{
		BusinessId:         businessId,
		TransactionNumber:  transactionNumberPrefix(input.Direction) + fmt.Sprint(seqNo),
		SequenceNo:         decimal.NewFromInt(seqNo),
		Direction:          input.Direction,
		Amount:             input.Amount,
		EntryDate:          input.EntryDate,
		Category:           input.Category,
		BoxId:              input.BoxId,
		ResponsiblePartyId: input.ResponsiblePartyId,
		VehicleRef:         input.VehicleRef,
		Notes:              input.Notes,
		State:              models.TransactionStatePending,
	}
	if err := tx.Create(&entry).Error; err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	result, err := applyTransactionTx(ctx, tx, &entry, responsiblePartyRequired(ctx))
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, nil, err
	}
	return &entry, result, nil
}

// UpdateLedgerEntry reverses the old effect, rewrites the entry's fields
// and applies the new effect, all in one transaction. When the box
// reference changes, the reversal targets the old box and the application
// the new one.
func UpdateLedgerEntry(ctx context.Context, id int, input *models.NewLedgerEntry) (*models.LedgerEntry, *ApplicationResult, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, nil, errors.New("business id is required")
	}
	if err := input.Validate(ctx, businessId); err != nil {
		return nil, nil, err
	}

	entry, err := utils.FetchModel[models.LedgerEntry](ctx, businessId, id)
	if err != nil {
		return nil, nil, err
	}

	if entry.BoxId > 0 {
		lock := obtainBoxRedisLock(ctx, entry.BoxId)
		defer releaseBoxRedisLock(ctx, lock)
	}
	if input.BoxId > 0 && input.BoxId != entry.BoxId {
		lock := obtainBoxRedisLock(ctx, input.BoxId)
		defer releaseBoxRedisLock(ctx, lock)
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	if _, err := reverseTransactionTx(ctx, tx, entry); err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	entry.Direction = input.Direction
	entry.Amount = input.Amount
	entry.EntryDate = input.EntryDate
	entry.Category = input.Category
	entry.BoxId = input.BoxId
	entry.ResponsiblePartyId = input.ResponsiblePartyId
	entry.VehicleRef = input.VehicleRef
	entry.Notes = input.Notes

	if err := tx.Model(&models.LedgerEntry{}).Where("id = ?", entry.ID).
		Updates(map[string]interface{}{
			"direction":            entry.Direction,
			"amount":               entry.Amount,
			"entry_date":           entry.EntryDate,
			"category":             entry.Category,
			"box_id":               entry.BoxId,
			"responsible_party_id": entry.ResponsiblePartyId,
			"vehicle_ref":          entry.VehicleRef,
			"notes":                entry.Notes,
		}).Error; err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	result, err := applyTransactionTx(ctx, tx, entry, responsiblePartyRequired(ctx))
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, nil, err
	}
	return entry, result, nil
}

// DeleteLedgerEntry reverses the box effect and removes the entry. The
// reversal already removes the movement and, per policy, cancels any
// still-pending overflow debt.
func DeleteLedgerEntry(ctx context.Context, id int) (*models.LedgerEntry, *ReversalResult, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, nil, errors.New("business id is required")
	}

	entry, err := utils.FetchModel[models.LedgerEntry](ctx, businessId, id)
	if err != nil {
		return nil, nil, err
	}

	if entry.BoxId > 0 {
		lock := obtainBoxRedisLock(ctx, entry.BoxId)
		defer releaseBoxRedisLock(ctx, lock)
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	result, err := reverseTransactionTx(ctx, tx, entry)
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := tx.Where("id = ? AND business_id = ?", entry.ID, businessId).
		Delete(&models.LedgerEntry{}).Error; err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, nil, err
	}
	return entry, result, nil
}
