package models

import (
	"context"
	"time"

	"github.com/flotadata/flota_backend/config"
	"github.com/flotadata/flota_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BoxEventRecord is the transactional outbox row behind the dashboard
// feed: written inside the same transaction as the balance change it
// describes, published to Pub/Sub afterwards by the outbox dispatcher.
type BoxEventRecord struct {
	ID            int             `gorm:"primary_key;index:idx_box_event_dispatch,priority:3" json:"id"`
	BusinessId    string          `gorm:"size:64;not null;index" json:"business_id"`
	BoxId         int             `gorm:"index;not null" json:"box_id"`
	LedgerEntryId int             `gorm:"index" json:"ledger_entry_id"`
	Action        BoxEventAction  `gorm:"type:enum('A','R');not null" json:"action"`
	MovementKind  MovementKind    `gorm:"size:20;not null" json:"movement_kind"`
	Delta         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"delta"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"balance_after"`
	OccurredAt    time.Time       `gorm:"index;not null" json:"occurred_at"`

	// Publish metadata (publish happens after commit via dispatcher).
	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_box_event_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_box_event_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// PublishBoxEvent writes the event record inside the caller's DB
// transaction but does NOT publish to Pub/Sub. Publishing is performed
// asynchronously by the outbox dispatcher after commit.
func PublishBoxEvent(ctx context.Context, tx *gorm.DB, businessId string, boxId int,
	ledgerEntryId int, action BoxEventAction, kind MovementKind,
	delta decimal.Decimal, balanceAfter decimal.Decimal, occurredAt time.Time) error {

	record := BoxEventRecord{
		BusinessId:    businessId,
		BoxId:         boxId,
		LedgerEntryId: ledgerEntryId,
		Action:        action,
		MovementKind:  kind,
		Delta:         delta,
		BalanceAfter:  balanceAfter,
		OccurredAt:    occurredAt,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func ConvertToBoxEventMessage(record BoxEventRecord) config.BoxEventMessage {
	return config.BoxEventMessage{
		ID:            record.ID,
		BusinessId:    record.BusinessId,
		BoxId:         record.BoxId,
		LedgerEntryId: record.LedgerEntryId,
		MovementKind:  string(record.MovementKind),
		Delta:         record.Delta,
		BalanceAfter:  record.BalanceAfter,
		OccurredAt:    record.OccurredAt,
		CorrelationId: record.CorrelationId,
	}
}
