package models

import (
	"context"
	"errors"
	"time"

	"github.com/flotadata/flota_backend/config"
	"github.com/flotadata/flota_backend/utils"
	"github.com/shopspring/decimal"
)

// LedgerEntry is one income/expense transaction. Box effects (balance,
// movement, history, pending payment) are owned by the workflow package;
// this model only carries the record and its reads.
//
// OverflowAmount is set only for expenses, only when the linked box had
// insufficient balance at application time, and never exceeds Amount.
type LedgerEntry struct {
	ID                 int                  `gorm:"primary_key" json:"id"`
	BusinessId         string               `gorm:"index;not null" json:"business_id"`
	TransactionNumber  string               `gorm:"size:255;not null" json:"transaction_number"`
	SequenceNo         decimal.Decimal      `gorm:"type:decimal(15);not null" json:"sequence_no"`
	Direction          TransactionDirection `gorm:"type:enum('Income','Expense');not null" json:"direction"`
	Amount             decimal.Decimal      `gorm:"type:decimal(20,4);not null" json:"amount"`
	EntryDate          time.Time            `gorm:"index;not null" json:"entry_date"`
	Category           string               `gorm:"size:100" json:"category"`
	BoxId              int                  `gorm:"index" json:"box_id"`
	ResponsiblePartyId int                  `gorm:"index" json:"responsible_party_id"`
	VehicleRef         string               `gorm:"size:100" json:"vehicle_ref"`
	Notes              string               `gorm:"type:text" json:"notes"`
	State              TransactionState     `gorm:"type:enum('Pending','Applied','Refunded');default:'Pending';not null" json:"state"`
	OverflowAmount     decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"overflow_amount"`
	CreatedAt          time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewLedgerEntry struct {
	Direction          TransactionDirection `json:"direction" binding:"required"`
	Amount             decimal.Decimal      `json:"amount" binding:"required,gt=0"`
	EntryDate          time.Time            `json:"entry_date" binding:"required"`
	Category           string               `json:"category"`
	BoxId              int                  `json:"box_id"`
	ResponsiblePartyId int                  `json:"responsible_party_id"`
	VehicleRef         string               `json:"vehicle_ref"`
	Notes              string               `json:"notes"`
}

type LedgerEntriesEdge Edge[LedgerEntry]
type LedgerEntriesConnection struct {
	PageInfo *PageInfo            `json:"pageInfo"`
	Edges    []*LedgerEntriesEdge `json:"edges"`
}

func (e LedgerEntry) GetCursor() string {
	return e.EntryDate.String()
}

func (e LedgerEntry) GetId() int {
	return e.ID
}

func (e LedgerEntry) GetBusinessId() string {
	return e.BusinessId
}

// HasBox reports whether this entry touches an operating box at all.
// Cash transactions outside any box are a valid, common path.
func (e *LedgerEntry) HasBox() bool {
	return e.BoxId > 0
}

// Validate checks the payload invariants the engine relies on. Amount and
// box existence are re-checked inside the apply transaction.
func (input *NewLedgerEntry) Validate(ctx context.Context, businessId string) error {
	if !input.Direction.Valid() {
		return errors.New("invalid transaction direction")
	}
	if !input.Amount.IsPositive() {
		return utils.ErrorInvalidAmount
	}
	if input.BoxId > 0 {
		if err := utils.ValidateResourceId[OperatingBox](ctx, businessId, input.BoxId); err != nil {
			return utils.ErrorBoxNotFound
		}
	}
	if input.ResponsiblePartyId > 0 {
		if err := utils.ValidateResourceId[User](ctx, businessId, input.ResponsiblePartyId); err != nil {
			return errors.New("responsible party not found")
		}
	}
	return nil
}

func GetLedgerEntry(ctx context.Context, id int) (*LedgerEntry, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[LedgerEntry](ctx, businessId, id)
}

func GetLedgerEntries(ctx context.Context, boxId *int, direction *TransactionDirection,
	category *string, fromDate *time.Time, toDate *time.Time) ([]*LedgerEntry, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*LedgerEntry
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if boxId != nil && *boxId > 0 {
		dbCtx = dbCtx.Where("box_id = ?", boxId)
	}
	if direction != nil && *direction != "" {
		dbCtx = dbCtx.Where("direction = ?", direction)
	}
	if category != nil && len(*category) > 0 {
		dbCtx = dbCtx.Where("category = ?", category)
	}
	if fromDate != nil {
		dbCtx = dbCtx.Where("entry_date >= ?", fromDate)
	}
	if toDate != nil {
		dbCtx = dbCtx.Where("entry_date <= ?", toDate)
	}
	err := dbCtx.Order("entry_date DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func PaginateLedgerEntry(ctx context.Context, limit *int, after *string,
	boxId *int, direction *TransactionDirection) (*LedgerEntriesConnection, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if boxId != nil && *boxId > 0 {
		dbCtx.Where("box_id = ?", *boxId)
	}
	if direction != nil && *direction != "" {
		dbCtx.Where("direction = ?", *direction)
	}
	edges, pageInfo, err := FetchPageCompositeCursor[LedgerEntry](dbCtx, *limit, after, "entry_date", "<")
	if err != nil {
		return nil, err
	}
	var connection LedgerEntriesConnection
	connection.PageInfo = pageInfo
	for _, edge := range edges {
		entryEdge := LedgerEntriesEdge(edge)
		connection.Edges = append(connection.Edges, &entryEdge)
	}
	return &connection, err
}
