package model

import "time"

// 注文ステータス更新、支払い作成など。
type AuditAction string

const (
	//注文ステータスを更新した操作。
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	//支払いを作成した操作。
	AuditActionCreatePayment AuditAction = "CREATE_PAYMENT"
	//支払いステータスを更新した操作。
	AuditActionUpdatePaymentStatus AuditAction = "UPDATE_PAYMENT_STATUS"
	//支払いを削除した操作。
	AuditActionDeletePayment AuditAction = "DELETE_PAYMENT"
)

func (a AuditAction) Valid() bool {
	switch a {
	case AuditActionUpdateOrderStatus, AuditActionCreatePayment, AuditActionUpdatePaymentStatus, AuditActionDeletePayment:
		return true
	}
	return false
}

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceOrder   AuditResourceType = "order"
	AuditResourcePayment AuditResourceType = "payment"
)

func (t AuditResourceType) Valid() bool {
	return t == AuditResourceOrder || t == AuditResourcePayment
}

// 監査ログ。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザーのID。
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	ResourceID int64 `gorm:"not null;index" json:"resource_id"`

	//対象が属する注文。支払いの操作でも入れるので、支払いを消しても注文の履歴に残る。
	OrderID int64 `gorm:"not null;default:0;index" json:"order_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`

	//JSON文字列で保存する。
	AfterJSON string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
