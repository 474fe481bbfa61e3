package model

import "time"

// 支払い方法（銀行振込、e-walletなど）。requires_proofなら証憑のアップロード必須。
type PaymentType struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	Code          string    `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	RequiresProof bool      `gorm:"not null;default:false" json:"requires_proof"`
	SortOrder     int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
