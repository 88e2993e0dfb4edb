package models

import (
	"context"
	"errors"
	"time"

	"github.com/flotadata/flota_backend/config"
	"github.com/flotadata/flota_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BoxHistoryEntry is one immutable audit record of a balance change.
// The per-box sequence of rows is a total order sufficient to reconstruct
// the balance at any point in time: balance_after of each row equals
// balance_before of the chronologically next one.
type BoxHistoryEntry struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null" json:"business_id"`
	BoxId         int             `gorm:"index;not null" json:"box_id"`
	LedgerEntryId int             `gorm:"index" json:"ledger_entry_id"`
	Kind          MovementKind    `gorm:"size:20;not null" json:"kind"`
	Delta         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"delta"`
	Reason        string          `gorm:"type:text;not null" json:"reason"`
	BalanceBefore decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"balance_after"`
	OccurredAt    time.Time       `gorm:"index;autoCreateTime" json:"occurred_at"`
}

func (h BoxHistoryEntry) GetCursor() string {
	return h.OccurredAt.String()
}

func (h BoxHistoryEntry) GetId() int {
	return h.ID
}

func (h BoxHistoryEntry) GetBusinessId() string {
	return h.BusinessId
}

// History is append-only. GORM hooks turn accidental writes into errors
// instead of silent audit corruption.
func (h *BoxHistoryEntry) BeforeUpdate(tx *gorm.DB) error {
	return errors.New("box history is append-only")
}

func (h *BoxHistoryEntry) BeforeDelete(tx *gorm.DB) error {
	return errors.New("box history is append-only")
}

// AppendBoxHistory writes one audit row inside the caller's transaction.
// Pure append: prior rows are never touched.
func AppendBoxHistory(tx *gorm.DB, businessId string, boxId int, delta decimal.Decimal,
	kind MovementKind, reason string, ledgerEntryId int,
	balanceBefore decimal.Decimal, balanceAfter decimal.Decimal) (*BoxHistoryEntry, error) {

	entry := BoxHistoryEntry{
		BusinessId:    businessId,
		BoxId:         boxId,
		LedgerEntryId: ledgerEntryId,
		Kind:          kind,
		Delta:         delta,
		Reason:        reason,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetBoxHistory returns a box's audit trail oldest-to-newest, optionally
// windowed by date.
func GetBoxHistory(ctx context.Context, boxId int, fromDate *time.Time, toDate *time.Time) ([]*BoxHistoryEntry, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateResourceId[OperatingBox](ctx, businessId, boxId); err != nil {
		return nil, utils.ErrorBoxNotFound
	}

	db := config.GetDB()
	var results []*BoxHistoryEntry
	dbCtx := db.WithContext(ctx).Where("business_id = ? AND box_id = ?", businessId, boxId)
	if fromDate != nil {
		dbCtx = dbCtx.Where("occurred_at >= ?", fromDate)
	}
	if toDate != nil {
		dbCtx = dbCtx.Where("occurred_at <= ?", toDate)
	}
	err := dbCtx.Order("occurred_at ASC, id ASC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func PaginateBoxHistory(ctx context.Context, limit *int, after *string,
	boxId int) (*BoxHistoryConnection, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ? AND box_id = ?", businessId, boxId)
	edges, pageInfo, err := FetchPageCompositeCursor[BoxHistoryEntry](dbCtx, *limit, after, "occurred_at", "<")
	if err != nil {
		return nil, err
	}
	var connection BoxHistoryConnection
	connection.PageInfo = pageInfo
	for _, edge := range edges {
		historyEdge := BoxHistoryEdge(edge)
		connection.Edges = append(connection.Edges, &historyEdge)
	}
	return &connection, err
}

type BoxHistoryEdge Edge[BoxHistoryEntry]
type BoxHistoryConnection struct {
	PageInfo *PageInfo         `json:"pageInfo"`
	Edges    []*BoxHistoryEdge `json:"edges"`
}
