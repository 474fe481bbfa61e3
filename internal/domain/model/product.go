package model

import (
	"time"

	"backoffice/internal/domain/money"

	"gorm.io/gorm"
)

// 商品。出品者(seller)が持つ。
type Product struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID    int64          `gorm:"not null;index" json:"seller_id"`
	CategoryID  int64          `gorm:"not null;index" json:"category_id"`
	UnitID      *int64         `gorm:"index" json:"unit_id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Slug        string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	Description string         `gorm:"type:text" json:"description"`
	Price       money.Money    `gorm:"type:numeric(14,2);not null" json:"price"`
	Stock       int64          `gorm:"not null;default:0" json:"stock"`
	IsActive    bool           `gorm:"not null;default:false" json:"is_active"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
