package models

import (
	"context"
	"errors"
	"time"

	"github.com/flotadata/flota_backend/config"
	"github.com/flotadata/flota_backend/utils"
	"github.com/shopspring/decimal"
)

// Business is the tenant: one fleet operator. Every ledger row carries a
// business id and every query filters on it.
type Business struct {
	ID   string `gorm:"primary_key;size:64" json:"id"`
	Name string `gorm:"size:100;not null" json:"name" binding:"required"`
	// LowBalanceThresholdOverride, when set, wins over the env default when
	// deciding whether an application result carries a low-balance warning.
	LowBalanceThresholdOverride *decimal.Decimal `gorm:"type:decimal(20,4)" json:"low_balance_threshold_override"`
	Timezone                    string           `gorm:"size:50" json:"timezone"`
	IsActive                    *bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt                   time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                   time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b Business) GetBusinessId() string {
	return b.ID
}

// LowBalanceThreshold resolves the effective warning threshold for this
// business.
func (b *Business) LowBalanceThreshold() decimal.Decimal {
	if b != nil && b.LowBalanceThresholdOverride != nil {
		return *b.LowBalanceThresholdOverride
	}
	return config.LowBalanceThreshold()
}

func GetBusinessById(ctx context.Context, id string) (*Business, error) {
	db := config.GetDB()
	var business Business
	if err := db.WithContext(ctx).Where("id = ?", id).First(&business).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &business, nil
}

func CreateBusiness(ctx context.Context, business *Business) (*Business, error) {
	if business.ID == "" {
		return nil, errors.New("business id is required")
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(business).Error; err != nil {
		return nil, err
	}
	return business, nil
}
