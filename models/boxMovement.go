package models

import (
	"context"
	"errors"
	"time"

	"github.com/flotadata/flota_backend/config"
	"github.com/flotadata/flota_backend/utils"
	"github.com/shopspring/decimal"
)

// BoxMovement is the per-transaction record of how much cash entered or
// left a box: exactly one per ledger entry that references a box, created
// and removed in lockstep with it.
//
// The unique index on ledger_entry_id is load-bearing: inserting a second
// movement for the same entry fails with a duplicate key, which the
// applicator surfaces as ErrorAlreadyApplied. That turns the "never apply
// twice without a reversal" caller discipline into a hard guarantee.
type BoxMovement struct {
	ID             int                  `gorm:"primary_key" json:"id"`
	BusinessId     string               `gorm:"index;not null" json:"business_id"`
	LedgerEntryId  int                  `gorm:"uniqueIndex;not null" json:"ledger_entry_id"`
	BoxId          int                  `gorm:"index;not null" json:"box_id"`
	Direction      TransactionDirection `gorm:"type:enum('Income','Expense');not null" json:"direction"`
	Amount         decimal.Decimal      `gorm:"type:decimal(20,4);not null" json:"amount"`
	OverflowAmount decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"overflow_amount"`
	CreatedAt      time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

func (m BoxMovement) GetBusinessId() string {
	return m.BusinessId
}

func GetBoxMovementByEntry(ctx context.Context, ledgerEntryId int) (*BoxMovement, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var movement BoxMovement
	err := db.WithContext(ctx).
		Where("business_id = ? AND ledger_entry_id = ?", businessId, ledgerEntryId).
		First(&movement).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &movement, nil
}
