package model

import (
	"time"
)

type Balance struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Sub       string    `gorm:"size:100;uniqueIndex;not null" json:"sub"`
	Amount    float64   `gorm:"type:decimal(20,6);not null;default:0" json:"amount"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Balance) TableName() string {
	return "user_balances"
}
