package model

import "time"

// 1オーナー（email）につきカートは1つ（upsert）
type Cart struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerEmail string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"owner_email"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
