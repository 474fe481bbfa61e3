package model

import "time"

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusInProgress OutboxStatus = "in_progress"
	OutboxStatusSent       OutboxStatus = "sent"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// イベント種別
const (
	EventOrderStatusChanged   = "order.status_changed"
	EventPaymentCreated       = "payment.created"
	EventPaymentStatusChanged = "payment.status_changed"
)

// OutboxEventは業務データと同じトランザクションで保存し、relayがKafkaへ送る。
type OutboxEvent struct {
	ID            int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID       string       `gorm:"type:varchar(36);not null;uniqueIndex" json:"event_id"`
	AggregateType string       `gorm:"type:varchar(50);not null" json:"aggregate_type"`
	AggregateID   string       `gorm:"type:varchar(64);not null;index" json:"aggregate_id"`
	Type          string       `gorm:"type:varchar(100);not null" json:"type"`
	Payload       []byte       `gorm:"type:jsonb;not null" json:"payload"`
	Status        OutboxStatus `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	RelayID       *string      `gorm:"type:varchar(100)" json:"relay_id"`
	LeaseUntil    *time.Time   `json:"lease_until"`
	RetryCount    int          `gorm:"not null;default:0" json:"retry_count"`
	LastError     *string      `gorm:"type:text" json:"last_error"`
	CreatedAt     time.Time    `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (OutboxEvent) TableName() string { return "outbox" }
