package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flotadata/flota_backend/config"
	"github.com/flotadata/flota_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PendingPayment is a tracked debt created when an expense overflows a
// box's available balance. It stays Pending until an external settlement
// process marks it Paid, or until the originating entry is deleted and the
// cascade policy cancels it.
type PendingPayment struct {
	ID                 int                 `gorm:"primary_key" json:"id"`
	BusinessId         string              `gorm:"index;not null" json:"business_id"`
	LedgerEntryId      int                 `gorm:"index;not null" json:"ledger_entry_id"`
	ResponsiblePartyId *int                `gorm:"index" json:"responsible_party_id"`
	Amount             decimal.Decimal     `gorm:"type:decimal(20,4);not null" json:"amount"`
	Description        string              `gorm:"type:text" json:"description"`
	State              PendingPaymentState `gorm:"type:enum('Pending','Paid','Cancelled');default:'Pending';not null" json:"state"`
	PaidAt             *time.Time          `json:"paid_at"`
	CreatedAt          time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type PendingPaymentFilter struct {
	ResponsiblePartyId *int
	State              *PendingPaymentState
	FromDate           *time.Time
	ToDate             *time.Time
}

func (p PendingPayment) GetBusinessId() string {
	return p.BusinessId
}

func (p PendingPayment) GetId() int {
	return p.ID
}

// CreateOverflowPendingPayment books the unfunded portion of an expense as
// a debt, inside the caller's apply transaction.
//
// responsiblePartyRequired is the caller-role policy: driver-submitted
// expenses must name the debtor (the driver), admin entries tolerate an
// unassigned debt. When required and absent, the whole apply aborts before
// any balance mutation commits.
func CreateOverflowPendingPayment(tx *gorm.DB, entry *LedgerEntry, amount decimal.Decimal,
	responsiblePartyId int, responsiblePartyRequired bool) (*PendingPayment, error) {

	if !amount.IsPositive() {
		return nil, utils.ErrorInvalidAmount
	}
	if responsiblePartyId <= 0 && responsiblePartyRequired {
		return nil, utils.WrapBoxError(utils.ErrorMissingResponsibleParty, entry.BoxId, entry.ID)
	}

	payment := PendingPayment{
		BusinessId:    entry.BusinessId,
		LedgerEntryId: entry.ID,
		Amount:        amount,
		Description: fmt.Sprintf("overflow of %s on %s (amount %s)",
			amount.StringFixed(2), entry.TransactionNumber, entry.Amount.StringFixed(2)),
		State: PendingPaymentStatePending,
	}
	if responsiblePartyId > 0 {
		payment.ResponsiblePartyId = &responsiblePartyId
	}
	if err := tx.Create(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// CancelPendingPaymentsForEntry marks an entry's still-pending debts
// Cancelled. Called on entry delete when the cascade policy is on; Paid
// debts are left alone.
func CancelPendingPaymentsForEntry(tx *gorm.DB, businessId string, ledgerEntryId int) error {
	return tx.Model(&PendingPayment{}).
		Where("business_id = ? AND ledger_entry_id = ? AND state = ?",
			businessId, ledgerEntryId, PendingPaymentStatePending).
		Update("state", PendingPaymentStateCancelled).Error
}

func ListPendingPayments(ctx context.Context, filter *PendingPaymentFilter) ([]*PendingPayment, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*PendingPayment
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if filter != nil {
		if filter.ResponsiblePartyId != nil && *filter.ResponsiblePartyId > 0 {
			dbCtx = dbCtx.Where("responsible_party_id = ?", filter.ResponsiblePartyId)
		}
		if filter.State != nil && *filter.State != "" {
			dbCtx = dbCtx.Where("state = ?", filter.State)
		}
		if filter.FromDate != nil {
			dbCtx = dbCtx.Where("created_at >= ?", filter.FromDate)
		}
		if filter.ToDate != nil {
			dbCtx = dbCtx.Where("created_at <= ?", filter.ToDate)
		}
	}
	err := dbCtx.Order("created_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetPendingPayment(ctx context.Context, id int) (*PendingPayment, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[PendingPayment](ctx, businessId, id)
}

// SettlePendingPayment flips Pending -> Paid. The actual cash collection
// is an external process; the box balance does not move here. When the
// debt's entry references a box, a zero-delta refund notice is appended
// to its audit trail.
func SettlePendingPayment(ctx context.Context, id int) (*PendingPayment, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	payment, err := utils.FetchModel[PendingPayment](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if payment.State != PendingPaymentStatePending {
		return nil, errors.New("pending payment is not in Pending state")
	}

	now := time.Now().UTC()
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&PendingPayment{}).Where("id = ?", payment.ID).
			Updates(map[string]interface{}{
				"state":   PendingPaymentStatePaid,
				"paid_at": &now,
			}).Error; err != nil {
			return err
		}

		var entry LedgerEntry
		err := tx.Where("id = ? AND business_id = ?", payment.LedgerEntryId, businessId).
			First(&entry).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if !entry.HasBox() {
			return nil
		}

		var box OperatingBox
		if err := tx.Where("id = ? AND business_id = ?", entry.BoxId, businessId).
			First(&box).Error; err != nil {
			return err
		}
		reason := fmt.Sprintf("overflow of %s settled for %s",
			payment.Amount.StringFixed(2), entry.TransactionNumber)
		_, err = AppendBoxHistory(tx, businessId, box.ID, decimal.Zero,
			MovementKindRefund, reason, entry.ID, box.Balance, box.Balance)
		return err
	})
	if err != nil {
		return nil, err
	}
	payment.State = PendingPaymentStatePaid
	payment.PaidAt = &now
	return payment, nil
}
