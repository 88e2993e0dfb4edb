package models

import (
	"context"
	"errors"
	"time"

	"github.com/flotadata/flota_backend/config"
	"github.com/flotadata/flota_backend/utils"
	"github.com/shopspring/decimal"
)

// OperatingBox is a named cash account with a single running balance.
//
// Balance is mutated ONLY by the workflow balance applicator / reversal
// engine, always inside one storage transaction with the box row locked.
// It is never negative: an expense beyond available funds clamps the
// balance to zero and books the excess as a pending payment.
type OperatingBox struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null" json:"business_id"`
	Name        string          `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Description string          `gorm:"type:text" json:"description"`
	Balance     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance"`
	IsActive    *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewOperatingBox struct {
	Name           string           `json:"name" binding:"required"`
	Description    string           `json:"description"`
	OpeningBalance *decimal.Decimal `json:"opening_balance" binding:"omitempty,gte=0"`
}

type OperatingBoxesEdge Edge[OperatingBox]
type OperatingBoxesConnection struct {
	PageInfo *PageInfo             `json:"pageInfo"`
	Edges    []*OperatingBoxesEdge `json:"edges"`
}

func (b OperatingBox) GetCursor() string {
	return b.CreatedAt.String()
}

func (b OperatingBox) GetId() int {
	return b.ID
}

func (b OperatingBox) GetBusinessId() string {
	return b.BusinessId
}

// validate input for both create & update. (id = 0 for create)
func (input *NewOperatingBox) validate(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[OperatingBox](ctx, businessId, id); err != nil {
			return err
		}
	}
	// name
	if err := utils.ValidateUnique[OperatingBox](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if input.OpeningBalance != nil && input.OpeningBalance.IsNegative() {
		return errors.New("opening balance cannot be negative")
	}
	return nil
}

func CreateOperatingBox(ctx context.Context, input *NewOperatingBox) (*OperatingBox, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	balance := decimal.Zero
	if input.OpeningBalance != nil {
		balance = *input.OpeningBalance
	}
	box := OperatingBox{
		BusinessId:  businessId,
		Name:        input.Name,
		Description: input.Description,
		Balance:     balance,
		IsActive:    utils.NewTrue(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&box).Error
	if err != nil {
		return nil, err
	}
	return &box, nil
}

// UpdateOperatingBox edits display fields only. Balance never travels
// through here.
func UpdateOperatingBox(ctx context.Context, id int, input *NewOperatingBox) (*OperatingBox, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	box, err := utils.FetchModel[OperatingBox](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&box).Updates(map[string]interface{}{
		"Name":        input.Name,
		"Description": input.Description,
	}).Error
	if err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItem[OperatingBox](id); err != nil {
		return nil, err
	}
	return box, nil
}

// DeleteOperatingBox refuses while history rows reference the box: the
// audit trail outlives the transactions it records.
func DeleteOperatingBox(ctx context.Context, id int) (*OperatingBox, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	result, err := utils.FetchModel[OperatingBox](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[BoxHistoryEntry](ctx, businessId, "box_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("box is referenced by history entries")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItem[OperatingBox](id); err != nil {
		return nil, err
	}

	return result, nil
}

func GetOperatingBox(ctx context.Context, id int) (*OperatingBox, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[OperatingBox](ctx, businessId, id)
}

// GetLowBalanceBoxes returns the active boxes whose balance sits at or
// below the business's effective warning threshold.
func GetLowBalanceBoxes(ctx context.Context) ([]*OperatingBox, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	business, err := GetBusinessById(ctx, businessId)
	if err != nil {
		return nil, err
	}
	threshold := business.LowBalanceThreshold()

	db := config.GetDB()
	var results []*OperatingBox
	err = db.WithContext(ctx).
		Where("business_id = ? AND is_active = ? AND balance <= ?", businessId, true, threshold).
		Order("balance").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetOperatingBoxes(ctx context.Context, name *string) ([]*OperatingBox, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*OperatingBox
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func PaginateOperatingBox(ctx context.Context, limit *int, after *string,
	name *string) (*OperatingBoxesConnection, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && *name != "" {
		dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	edges, pageInfo, err := FetchPageCompositeCursor[OperatingBox](dbCtx, *limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}
	var connection OperatingBoxesConnection
	connection.PageInfo = pageInfo
	for _, edge := range edges {
		boxEdge := OperatingBoxesEdge(edge)
		connection.Edges = append(connection.Edges, &boxEdge)
	}
	return &connection, err
}
